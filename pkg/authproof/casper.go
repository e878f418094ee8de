package authproof

import (
	"crypto/ed25519"
	"crypto/sha256"
	"fmt"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"
	"golang.org/x/crypto/blake2b"

	"github.com/bridgecore/coordinator/pkg/bridge"
)

const casperMessagePrefix = "Casper Message:\n"

const (
	casperEd25519Tag   byte = 1
	casperSecp256k1Tag byte = 2

	casperMinKeyLength = 32
	casperMinSigLength = 64
)

const (
	ed25519AlgorithmName   = "ed25519"
	secp256k1AlgorithmName = "secp256k1"
)

// verifyCasper dispatches on the public key's algorithm tag, verifies the
// signature against "Casper Message:\n" || body, and returns the 33-byte
// tagged account-hash address. The signature is either the raw 64 bytes
// or those bytes prefixed with an algorithm tag, which must then match
// the key's tag.
func verifyCasper(signature, publicKey []byte) ([]byte, error) {
	if len(publicKey) < casperMinKeyLength {
		return nil, ErrInvalidKeyFormat
	}
	if len(signature) < casperMinSigLength {
		return nil, ErrInvalidSignatureFormat
	}

	keyTag, keyBytes := publicKey[0], publicKey[1:]
	sigBytes := signature

	if len(signature) == casperMinSigLength+1 {
		if signature[0] != keyTag {
			return nil, ErrAlgorithmMismatch
		}
		sigBytes = signature[1:]
	}

	message := []byte(casperMessagePrefix + authMessageBody)

	var (
		algorithmName string
		rawKeyBytes   []byte
	)

	switch keyTag {
	case casperEd25519Tag:
		if len(keyBytes) != ed25519.PublicKeySize {
			return nil, ErrInvalidKeyFormat
		}
		if len(sigBytes) != ed25519.SignatureSize {
			return nil, ErrInvalidSignatureFormat
		}
		if !ed25519.Verify(ed25519.PublicKey(keyBytes), message, sigBytes) {
			return nil, ErrVerificationFailed
		}
		algorithmName, rawKeyBytes = ed25519AlgorithmName, keyBytes

	case casperSecp256k1Tag:
		pubKey, err := secp256k1.ParsePubKey(keyBytes)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidKeyFormat, err)
		}
		if len(sigBytes) != 64 {
			return nil, ErrInvalidSignatureFormat
		}

		var rScalar, sScalar secp256k1.ModNScalar
		if overflow := rScalar.SetByteSlice(sigBytes[:32]); overflow {
			return nil, ErrInvalidSignatureFormat
		}
		if overflow := sScalar.SetByteSlice(sigBytes[32:64]); overflow {
			return nil, ErrInvalidSignatureFormat
		}

		digest := sha256.Sum256(message)
		if !ecdsa.NewSignature(&rScalar, &sScalar).Verify(digest[:], pubKey) {
			return nil, ErrVerificationFailed
		}
		algorithmName, rawKeyBytes = secp256k1AlgorithmName, pubKey.SerializeCompressed()

	default:
		return nil, ErrInvalidKeyFormat
	}

	return accountHashAddress(algorithmName, rawKeyBytes), nil
}

// accountHashAddress derives the 33-byte tagged Casper account-hash
// address from an algorithm name and the raw public key bytes:
// 0x00 || blake2b256(algorithm_name || 0x00 || public_key_bytes).
func accountHashAddress(algorithmName string, publicKeyBytes []byte) []byte {
	preimage := make([]byte, 0, len(algorithmName)+1+len(publicKeyBytes))
	preimage = append(preimage, algorithmName...)
	preimage = append(preimage, 0)
	preimage = append(preimage, publicKeyBytes...)

	hash := blake2b.Sum256(preimage)

	address := make([]byte, 0, bridge.CasperAddressLength)
	address = append(address, bridge.CasperTagAccount)
	address = append(address, hash[:]...)
	return address
}

package authproof

import (
	"fmt"

	"github.com/ethereum/go-ethereum/crypto"
)

const ethMessagePrefix = "\x19Ethereum Signed Message:\n"

// verifyEvm recovers the secp256k1 public key from a 65-byte (r||s||v)
// signature over the EIP-191-prefixed auth message body and returns the
// last 20 bytes of Keccak-256 of the uncompressed public key, adapting
// the teacher's VerifyEIP191Signature to a fixed message body and
// returning raw bytes instead of common.Address.
func verifyEvm(signature []byte) ([]byte, error) {
	if len(signature) != 65 {
		return nil, ErrInvalidSignatureFormat
	}

	sig := append([]byte(nil), signature...)
	switch sig[64] {
	case 27:
		sig[64] = 0
	case 28:
		sig[64] = 1
	default:
		return nil, ErrInvalidSignatureFormat
	}

	prefixed := fmt.Sprintf("%s%d%s", ethMessagePrefix, len(authMessageBody), authMessageBody)
	digest := crypto.Keccak256Hash([]byte(prefixed))

	pubKey, err := crypto.SigToPub(digest.Bytes(), sig)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrKeyRecoveryFailed, err)
	}

	return crypto.PubkeyToAddress(*pubKey).Bytes(), nil
}

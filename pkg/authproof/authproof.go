// Package authproof verifies the "Bridge Authentication Proof" signature
// scheme used to authorize cancel and history operations (§4.3). Each
// chain family signs the same fixed message body over a different digest
// and key algorithm; Verify recovers canonical address bytes the caller
// compares against a stored sender address.
package authproof

import (
	"errors"

	"github.com/bridgecore/coordinator/pkg/bridge"
)

// authMessageBody is the fixed message every chain family signs.
const authMessageBody = "Bridge Authentication Proof"

// Error kinds (§4.3).
var (
	ErrInvalidSignatureFormat = errors.New("authproof: invalid signature format")
	ErrInvalidKeyFormat       = errors.New("authproof: invalid key format")
	ErrKeyRecoveryFailed      = errors.New("authproof: key recovery failed")
	ErrVerificationFailed     = errors.New("authproof: verification failed")
	ErrAlgorithmMismatch      = errors.New("authproof: algorithm mismatch")
	ErrMissingPublicKey       = errors.New("authproof: missing public key")
)

// Verify checks signature (and, for Casper/Solana, publicKey) against the
// fixed auth message body and returns the canonical address bytes the
// caller should compare against a stored sender address. publicKey may be
// nil for Evm, where the key is recovered from the signature.
func Verify(networkType bridge.NetworkType, signature, publicKey []byte) ([]byte, error) {
	switch networkType {
	case bridge.NetworkTypeEvm:
		return verifyEvm(signature)
	case bridge.NetworkTypeCasper:
		if publicKey == nil {
			return nil, ErrMissingPublicKey
		}
		return verifyCasper(signature, publicKey)
	case bridge.NetworkTypeSolana:
		if publicKey == nil {
			return nil, ErrMissingPublicKey
		}
		return verifySolana(signature, publicKey)
	default:
		return nil, ErrInvalidKeyFormat
	}
}

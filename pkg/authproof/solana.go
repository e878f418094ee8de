package authproof

import "crypto/ed25519"

// verifySolana verifies a raw Ed25519 signature over the auth message body
// directly (no prefix) and returns the public key as the canonical
// address, matching Solana's address-is-the-pubkey convention.
func verifySolana(signature, publicKey []byte) ([]byte, error) {
	if len(publicKey) != ed25519.PublicKeySize {
		return nil, ErrInvalidKeyFormat
	}
	if len(signature) != ed25519.SignatureSize {
		return nil, ErrInvalidSignatureFormat
	}

	if !ed25519.Verify(ed25519.PublicKey(publicKey), []byte(authMessageBody), signature) {
		return nil, ErrVerificationFailed
	}

	return append([]byte(nil), publicKey...), nil
}

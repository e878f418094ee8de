package bridge

import (
	"fmt"

	"github.com/mr-tron/base58"
)

// StringifySolanaAddress base58-encodes a 32-byte address.
func StringifySolanaAddress(data []byte) (string, error) {
	if len(data) != SolanaAddressLength {
		return "", fmt.Errorf("%w: expected %d bytes, got %d", ErrInvalidAddressLength, SolanaAddressLength, len(data))
	}
	return base58.Encode(data), nil
}

// ParseSolanaAddress decodes a base58 address and checks its length.
func ParseSolanaAddress(address string) ([]byte, error) {
	data, err := base58.Decode(address)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid base58 format: %v", ErrInvalidAddressFormat, err)
	}
	if len(data) != SolanaAddressLength {
		return nil, fmt.Errorf("%w: expected %d bytes, got %d", ErrInvalidAddressLength, SolanaAddressLength, len(data))
	}
	return data, nil
}

// StringifySolanaTxHash base58-encodes a 64-byte transaction signature.
func StringifySolanaTxHash(data []byte) (string, error) {
	if len(data) != SolanaTxHashLength {
		return "", fmt.Errorf("%w: expected %d bytes, got %d", ErrInvalidTxHashLength, SolanaTxHashLength, len(data))
	}
	return base58.Encode(data), nil
}

// ParseSolanaTxHash decodes a base58 transaction signature.
func ParseSolanaTxHash(hash string) ([]byte, error) {
	data, err := base58.Decode(hash)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid base58 format: %v", ErrInvalidTxHashFormat, err)
	}
	if len(data) != SolanaTxHashLength {
		return nil, fmt.Errorf("%w: expected %d bytes, got %d", ErrInvalidTxHashLength, SolanaTxHashLength, len(data))
	}
	return data, nil
}

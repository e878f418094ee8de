package bridge

import (
	"encoding/hex"
	"fmt"
	"strings"
)

// StringifyEvmAddress renders 20 canonical bytes as lowercase hex, no prefix.
func StringifyEvmAddress(data []byte) (string, error) {
	if len(data) != EvmAddressLength {
		return "", fmt.Errorf("%w: expected %d bytes, got %d", ErrInvalidAddressLength, EvmAddressLength, len(data))
	}
	return hex.EncodeToString(data), nil
}

// ParseEvmAddress accepts an optional "0x" prefix and is case-insensitive.
func ParseEvmAddress(address string) ([]byte, error) {
	address = strings.TrimPrefix(strings.TrimPrefix(address, "0x"), "0X")

	data, err := hex.DecodeString(strings.ToLower(address))
	if err != nil {
		return nil, fmt.Errorf("%w: invalid hex format: %v", ErrInvalidAddressFormat, err)
	}

	if len(data) != EvmAddressLength {
		return nil, fmt.Errorf("%w: expected %d bytes, got %d", ErrInvalidAddressLength, EvmAddressLength, len(data))
	}

	return data, nil
}

// StringifyTxHash renders a 32-byte hash as lowercase hex (Evm and Casper
// share this encoding).
func StringifyTxHash(data []byte) (string, error) {
	if len(data) != TxHashLength {
		return "", fmt.Errorf("%w: expected %d bytes, got %d", ErrInvalidTxHashLength, TxHashLength, len(data))
	}
	return hex.EncodeToString(data), nil
}

// ParseTxHash parses a hex-encoded 32-byte hash, case-insensitive.
func ParseTxHash(hash string) ([]byte, error) {
	data, err := hex.DecodeString(strings.ToLower(strings.TrimPrefix(hash, "0x")))
	if err != nil {
		return nil, fmt.Errorf("%w: invalid hex format: %v", ErrInvalidTxHashFormat, err)
	}
	if len(data) != TxHashLength {
		return nil, fmt.Errorf("%w: expected %d bytes, got %d", ErrInvalidTxHashLength, TxHashLength, len(data))
	}
	return data, nil
}

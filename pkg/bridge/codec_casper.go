package bridge

import (
	"encoding/hex"
	"fmt"
	"strings"
)

const (
	casperAccountPrefix = "account-hash-"
	casperHashPrefix    = "hash-"
)

// StringifyCasperAddress renders a 33-byte tagged address as
// "account-hash-<hex>" (tag 0) or "hash-<hex>" (tag 1).
func StringifyCasperAddress(data []byte) (string, error) {
	if len(data) != CasperAddressLength {
		return "", fmt.Errorf("%w: expected %d bytes, got %d", ErrInvalidAddressLength, CasperAddressLength, len(data))
	}

	tag, hash := data[0], data[1:]

	var prefix string
	switch tag {
	case CasperTagAccount:
		prefix = casperAccountPrefix
	case CasperTagHash:
		prefix = casperHashPrefix
	default:
		return "", fmt.Errorf("%w: invalid account tag %d", ErrInvalidAddressFormat, tag)
	}

	return prefix + hex.EncodeToString(hash), nil
}

// ParseCasperAddress parses a prefixed hex address back to 33 tagged bytes.
func ParseCasperAddress(address string) ([]byte, error) {
	var (
		hash string
		tag  byte
	)

	switch {
	case strings.HasPrefix(address, casperAccountPrefix):
		hash, tag = strings.TrimPrefix(address, casperAccountPrefix), CasperTagAccount
	case strings.HasPrefix(address, casperHashPrefix):
		hash, tag = strings.TrimPrefix(address, casperHashPrefix), CasperTagHash
	default:
		return nil, fmt.Errorf("%w: unknown address prefix", ErrInvalidAddressFormat)
	}

	data, err := hex.DecodeString(hash)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid hex format: %v", ErrInvalidAddressFormat, err)
	}

	if len(data) != CasperAddressLength-1 {
		return nil, fmt.Errorf("%w: expected %d bytes, got %d", ErrInvalidAddressLength, CasperAddressLength, len(data)+1)
	}

	return append([]byte{tag}, data...), nil
}

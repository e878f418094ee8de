package bridge

import "errors"

// Codec error sentinels (§4.1), wrapped with context via fmt.Errorf("%w: ...").
var (
	ErrInvalidAddressLength = errors.New("invalid address length")
	ErrInvalidAddressFormat = errors.New("invalid address format")
	ErrInvalidTxHashLength  = errors.New("invalid tx hash length")
	ErrInvalidTxHashFormat  = errors.New("invalid tx hash format")
)

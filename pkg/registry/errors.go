package registry

import "errors"

var (
	ErrUnknownNetworkID      = errors.New("registry: unknown network id")
	ErrUnknownNetworkName    = errors.New("registry: unknown network name")
	ErrUnknownTokenID        = errors.New("registry: unknown token id")
	ErrUnknownTokenAddress   = errors.New("registry: unknown token address")
	ErrUnknownNetworkOrToken = errors.New("registry: token not registered on network")
)

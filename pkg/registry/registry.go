// Package registry holds the in-memory, append-only catalogs of networks
// and tokens the coordinator consults to route transfers and translate
// addresses (§4.4). Registration is append-only; there is no
// deregistration.
package registry

import (
	"fmt"
	"sync"

	"github.com/bridgecore/coordinator/pkg/bridge"
)

// NetworkMetadata describes one registered network.
type NetworkMetadata struct {
	Type       bridge.NetworkType
	ID         bridge.NetworkID
	Name       string
	Node       string
	IsTestnet  bool
}

// TokenMetadata describes one registered token, independent of network.
type TokenMetadata struct {
	ID        bridge.TokenID
	ShortName string
	LongName  string
}

// TokenNetworkMetadata describes a token's presence on one network.
type TokenNetworkMetadata struct {
	Contract bridge.Address
	Decimals uint8
}

// NetworkRegistry is a multi-reader/single-writer catalog of networks,
// indexed by id and by name, matching original_source's NetworkRegistry.
type NetworkRegistry struct {
	mu     sync.RWMutex
	byID   map[bridge.NetworkID]NetworkMetadata
	byName map[string]NetworkMetadata
}

// NewNetworkRegistry returns an empty network registry.
func NewNetworkRegistry() *NetworkRegistry {
	return &NetworkRegistry{
		byID:   make(map[bridge.NetworkID]NetworkMetadata),
		byName: make(map[string]NetworkMetadata),
	}
}

// Register adds a network. Registration is append-only and idempotent for
// identical metadata; callers must ensure id/name uniqueness beforehand.
func (r *NetworkRegistry) Register(metadata NetworkMetadata) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.byID[metadata.ID] = metadata
	r.byName[metadata.Name] = metadata
}

// ByID returns the metadata for a network by its id.
func (r *NetworkRegistry) ByID(id bridge.NetworkID) (NetworkMetadata, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	metadata, ok := r.byID[id]
	if !ok {
		return NetworkMetadata{}, fmt.Errorf("%w: %d", ErrUnknownNetworkID, id)
	}
	return metadata, nil
}

// ByName returns the metadata for a network by its name.
func (r *NetworkRegistry) ByName(name string) (NetworkMetadata, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	metadata, ok := r.byName[name]
	if !ok {
		return NetworkMetadata{}, fmt.Errorf("%w: %s", ErrUnknownNetworkName, name)
	}
	return metadata, nil
}

// All returns a snapshot of every registered network.
func (r *NetworkRegistry) All() []NetworkMetadata {
	r.mu.RLock()
	defer r.mu.RUnlock()

	all := make([]NetworkMetadata, 0, len(r.byID))
	for _, metadata := range r.byID {
		all = append(all, metadata)
	}
	return all
}

// StringifyAddress dispatches on the address's network type and renders
// the chain-native string form.
func (r *NetworkRegistry) StringifyAddress(address bridge.Address) (bridge.StringAddress, error) {
	metadata, err := r.ByID(address.NetworkID)
	if err != nil {
		return bridge.StringAddress{}, err
	}

	var text string
	switch metadata.Type {
	case bridge.NetworkTypeCasper:
		text, err = bridge.StringifyCasperAddress(address.Data)
	case bridge.NetworkTypeEvm:
		text, err = bridge.StringifyEvmAddress(address.Data)
	case bridge.NetworkTypeSolana:
		text, err = bridge.StringifySolanaAddress(address.Data)
	}
	if err != nil {
		return bridge.StringAddress{}, err
	}

	return bridge.StringAddress{NetworkName: metadata.Name, Address: text}, nil
}

// ParseAddress dispatches on the network named in address and parses the
// chain-native string back to canonical bytes.
func (r *NetworkRegistry) ParseAddress(address bridge.StringAddress) (bridge.Address, error) {
	metadata, err := r.ByName(address.NetworkName)
	if err != nil {
		return bridge.Address{}, err
	}

	var data []byte
	switch metadata.Type {
	case bridge.NetworkTypeCasper:
		data, err = bridge.ParseCasperAddress(address.Address)
	case bridge.NetworkTypeEvm:
		data, err = bridge.ParseEvmAddress(address.Address)
	case bridge.NetworkTypeSolana:
		data, err = bridge.ParseSolanaAddress(address.Address)
	}
	if err != nil {
		return bridge.Address{}, err
	}

	return bridge.NewAddress(metadata.ID, data), nil
}

// ParseTxHash dispatches on the network named in hash; Solana uses base58,
// everything else hex.
func (r *NetworkRegistry) ParseTxHash(hash bridge.StringTxHash) (bridge.TxHash, error) {
	metadata, err := r.ByName(hash.NetworkName)
	if err != nil {
		return bridge.TxHash{}, err
	}

	var data []byte
	if metadata.Type == bridge.NetworkTypeSolana {
		data, err = bridge.ParseSolanaTxHash(hash.Hash)
	} else {
		data, err = bridge.ParseTxHash(hash.Hash)
	}
	if err != nil {
		return bridge.TxHash{}, err
	}

	return bridge.NewTxHash(metadata.ID, data), nil
}

// StringifyTxHash dispatches on the network identified by hash.
func (r *NetworkRegistry) StringifyTxHash(hash bridge.TxHash) (bridge.StringTxHash, error) {
	metadata, err := r.ByID(hash.NetworkID)
	if err != nil {
		return bridge.StringTxHash{}, err
	}

	var text string
	if metadata.Type == bridge.NetworkTypeSolana {
		text, err = bridge.StringifySolanaTxHash(hash.Data)
	} else {
		text, err = bridge.StringifyTxHash(hash.Data)
	}
	if err != nil {
		return bridge.StringTxHash{}, err
	}

	return bridge.StringTxHash{NetworkName: metadata.Name, Hash: text}, nil
}

// TokenRegistry is a multi-reader/single-writer catalog of tokens and
// their per-network metadata, matching original_source's TokenRegistry.
type TokenRegistry struct {
	mu            sync.RWMutex
	tokens        map[bridge.TokenID]TokenMetadata
	tokenNetworks map[tokenNetworkKey]TokenNetworkMetadata
	byAddress     map[string]bridge.TokenID
}

type tokenNetworkKey struct {
	networkID bridge.NetworkID
	tokenID   bridge.TokenID
}

// NewTokenRegistry returns an empty token registry.
func NewTokenRegistry() *TokenRegistry {
	return &TokenRegistry{
		tokens:        make(map[bridge.TokenID]TokenMetadata),
		tokenNetworks: make(map[tokenNetworkKey]TokenNetworkMetadata),
		byAddress:     make(map[string]bridge.TokenID),
	}
}

// Register adds a token.
func (r *TokenRegistry) Register(metadata TokenMetadata) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.tokens[metadata.ID] = metadata
}

// RegisterTokenNetwork associates a token with its contract on a network.
// The token must already be registered.
func (r *TokenRegistry) RegisterTokenNetwork(tokenID bridge.TokenID, metadata TokenNetworkMetadata) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.tokens[tokenID]; !ok {
		return fmt.Errorf("%w: %d", ErrUnknownTokenID, tokenID)
	}

	key := tokenNetworkKey{networkID: metadata.Contract.NetworkID, tokenID: tokenID}
	r.tokenNetworks[key] = metadata
	r.byAddress[metadata.Contract.Key()] = tokenID
	return nil
}

// TokenNetworkByIDs returns the per-network metadata for a token.
func (r *TokenRegistry) TokenNetworkByIDs(tokenID bridge.TokenID, networkID bridge.NetworkID) (TokenNetworkMetadata, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	metadata, ok := r.tokenNetworks[tokenNetworkKey{networkID: networkID, tokenID: tokenID}]
	if !ok {
		return TokenNetworkMetadata{}, fmt.Errorf("%w: token %d on network %d", ErrUnknownNetworkOrToken, tokenID, networkID)
	}
	return metadata, nil
}

// TokenByID returns token metadata by id.
func (r *TokenRegistry) TokenByID(id bridge.TokenID) (TokenMetadata, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	metadata, ok := r.tokens[id]
	if !ok {
		return TokenMetadata{}, fmt.Errorf("%w: %d", ErrUnknownTokenID, id)
	}
	return metadata, nil
}

// TokenByAddress returns token metadata by contract address.
func (r *TokenRegistry) TokenByAddress(address bridge.Address) (TokenMetadata, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tokenID, ok := r.byAddress[address.Key()]
	if !ok {
		return TokenMetadata{}, fmt.Errorf("%w: %s", ErrUnknownTokenAddress, address)
	}
	return r.tokens[tokenID], nil
}

// AllTokens returns a snapshot of every registered token.
func (r *TokenRegistry) AllTokens() []TokenMetadata {
	r.mu.RLock()
	defer r.mu.RUnlock()

	all := make([]TokenMetadata, 0, len(r.tokens))
	for _, metadata := range r.tokens {
		all = append(all, metadata)
	}
	return all
}

// TokensByNetwork returns every token registered on networkID, alongside
// its per-network metadata, for the gateway's supported_tokens operation.
func (r *TokenRegistry) TokensByNetwork(networkID bridge.NetworkID) []TokenWithNetwork {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []TokenWithNetwork
	for key, metadata := range r.tokenNetworks {
		if key.networkID != networkID {
			continue
		}
		result = append(result, TokenWithNetwork{
			Token:   r.tokens[key.tokenID],
			Network: metadata,
		})
	}
	return result
}

// TokenWithNetwork pairs token metadata with its metadata on one network.
type TokenWithNetwork struct {
	Token   TokenMetadata
	Network TokenNetworkMetadata
}

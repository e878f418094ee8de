package registry_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bridgecore/coordinator/pkg/bridge"
	"github.com/bridgecore/coordinator/pkg/registry"
)

func newTestNetworks() *registry.NetworkRegistry {
	networks := registry.NewNetworkRegistry()
	networks.Register(registry.NetworkMetadata{
		Type: bridge.NetworkTypeEvm,
		ID:   1,
		Name: "ethereum",
		Node: "https://rpc.example",
	})
	networks.Register(registry.NetworkMetadata{
		Type:      bridge.NetworkTypeCasper,
		ID:        2,
		Name:      "casper-test",
		Node:      "https://node.example",
		IsTestnet: true,
	})
	networks.Register(registry.NetworkMetadata{
		Type: bridge.NetworkTypeSolana,
		ID:   3,
		Name: "solana",
		Node: "https://api.mainnet-beta.solana.com",
	})
	return networks
}

func TestNetworkRegistryByIDAndName(t *testing.T) {
	networks := newTestNetworks()

	byID, err := networks.ByID(1)
	require.NoError(t, err)
	require.Equal(t, "ethereum", byID.Name)

	byName, err := networks.ByName("casper-test")
	require.NoError(t, err)
	require.Equal(t, bridge.NetworkID(2), byName.ID)
	require.True(t, byName.IsTestnet)
}

func TestNetworkRegistryUnknown(t *testing.T) {
	networks := newTestNetworks()

	_, err := networks.ByID(99)
	require.ErrorIs(t, err, registry.ErrUnknownNetworkID)

	_, err = networks.ByName("nope")
	require.ErrorIs(t, err, registry.ErrUnknownNetworkName)
}

func TestStringifyAndParseAddressRoundTrip(t *testing.T) {
	networks := newTestNetworks()

	evmData, err := bridge.ParseEvmAddress("0x742d35Cc6634C0532925a3b844Bc454e4438f44e")
	require.NoError(t, err)
	address := bridge.NewAddress(1, evmData)

	stringified, err := networks.StringifyAddress(address)
	require.NoError(t, err)
	require.Equal(t, "ethereum", stringified.NetworkName)

	parsed, err := networks.ParseAddress(stringified)
	require.NoError(t, err)
	require.True(t, address.Equal(parsed))
}

func TestStringifyAndParseTxHashSolanaUsesBase58(t *testing.T) {
	networks := newTestNetworks()

	raw := make([]byte, bridge.SolanaTxHashLength)
	for i := range raw {
		raw[i] = byte(i)
	}
	hash := bridge.NewTxHash(3, raw)

	stringified, err := networks.StringifyTxHash(hash)
	require.NoError(t, err)
	require.Equal(t, "solana", stringified.NetworkName)

	parsed, err := networks.ParseTxHash(stringified)
	require.NoError(t, err)
	require.Equal(t, hash.Data, parsed.Data)
}

func TestTokenRegistryRegisterAndLookup(t *testing.T) {
	tokens := registry.NewTokenRegistry()
	tokens.Register(registry.TokenMetadata{ID: 10, ShortName: "USDC", LongName: "USD Coin"})

	evmData, err := bridge.ParseEvmAddress("0x742d35Cc6634C0532925a3b844Bc454e4438f44e")
	require.NoError(t, err)
	contract := bridge.NewAddress(1, evmData)

	err = tokens.RegisterTokenNetwork(10, registry.TokenNetworkMetadata{Contract: contract, Decimals: 6})
	require.NoError(t, err)

	byAddress, err := tokens.TokenByAddress(contract)
	require.NoError(t, err)
	require.Equal(t, "USDC", byAddress.ShortName)

	byIDs, err := tokens.TokenNetworkByIDs(10, 1)
	require.NoError(t, err)
	require.Equal(t, uint8(6), byIDs.Decimals)
}

func TestTokenRegistryRegisterTokenNetworkUnknownToken(t *testing.T) {
	tokens := registry.NewTokenRegistry()

	err := tokens.RegisterTokenNetwork(404, registry.TokenNetworkMetadata{})
	require.ErrorIs(t, err, registry.ErrUnknownTokenID)
}

func TestTokensByNetwork(t *testing.T) {
	tokens := registry.NewTokenRegistry()
	tokens.Register(registry.TokenMetadata{ID: 10, ShortName: "USDC"})
	tokens.Register(registry.TokenMetadata{ID: 11, ShortName: "USDT"})

	evmData, err := bridge.ParseEvmAddress("0x742d35Cc6634C0532925a3b844Bc454e4438f44e")
	require.NoError(t, err)
	require.NoError(t, tokens.RegisterTokenNetwork(10, registry.TokenNetworkMetadata{
		Contract: bridge.NewAddress(1, evmData),
		Decimals: 6,
	}))

	onNetworkOne := tokens.TokensByNetwork(1)
	require.Len(t, onNetworkOne, 1)
	require.Equal(t, "USDC", onNetworkOne[0].Token.ShortName)

	require.Empty(t, tokens.TokensByNetwork(2))
}

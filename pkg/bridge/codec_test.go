package bridge_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bridgecore/coordinator/pkg/bridge"
)

func TestCasperAddressRoundTrip(t *testing.T) {
	address := "account-hash-9060c0820b5156b1620c8e3344d17f9fad5108f5dc2672f2308439e84363c88e"

	data, err := bridge.ParseCasperAddress(address)
	require.NoError(t, err)
	require.Len(t, data, bridge.CasperAddressLength)

	roundTripped, err := bridge.StringifyCasperAddress(data)
	require.NoError(t, err)
	require.Equal(t, address, roundTripped)
}

func TestCasperAddressHashPrefix(t *testing.T) {
	address := "hash-9060c0820b5156b1620c8e3344d17f9fad5108f5dc2672f2308439e84363c88e"

	data, err := bridge.ParseCasperAddress(address)
	require.NoError(t, err)
	require.Equal(t, bridge.CasperTagHash, data[0])

	roundTripped, err := bridge.StringifyCasperAddress(data)
	require.NoError(t, err)
	require.Equal(t, address, roundTripped)
}

func TestCasperAddressUnknownPrefix(t *testing.T) {
	_, err := bridge.ParseCasperAddress("deadbeef-9060c0820b5156b1620c8e3344d17f9fad5108f5dc2672f2308439e84363c88e")
	require.ErrorIs(t, err, bridge.ErrInvalidAddressFormat)
}

func TestEvmAddressRoundTrip(t *testing.T) {
	address := "3095f955da700b96215cffc9bc64ab2e69eb7dab"

	data, err := bridge.ParseEvmAddress(address)
	require.NoError(t, err)
	require.Len(t, data, bridge.EvmAddressLength)

	roundTripped, err := bridge.StringifyEvmAddress(data)
	require.NoError(t, err)
	require.Equal(t, address, roundTripped)
}

func TestEvmAddressAccepts0xPrefixAndMixedCase(t *testing.T) {
	data, err := bridge.ParseEvmAddress("0x3095F955Da700b96215CFfC9Bc64AB2e69eB7DAB")
	require.NoError(t, err)

	lower, err := bridge.ParseEvmAddress("3095f955da700b96215cffc9bc64ab2e69eb7dab")
	require.NoError(t, err)

	require.Equal(t, lower, data)
}

func TestEvmAddressWrongLength(t *testing.T) {
	_, err := bridge.ParseEvmAddress("0xdead")
	require.ErrorIs(t, err, bridge.ErrInvalidAddressLength)
}

func TestSolanaAddressRoundTrip(t *testing.T) {
	address := "8HR5rCobbFMDe5EbgKdJLNDWVCeGG79w837BUxtsCngs"

	data, err := bridge.ParseSolanaAddress(address)
	require.NoError(t, err)
	require.Len(t, data, bridge.SolanaAddressLength)

	roundTripped, err := bridge.StringifySolanaAddress(data)
	require.NoError(t, err)
	require.Equal(t, address, roundTripped)
}

func TestTxHashRoundTrip(t *testing.T) {
	hash := "df162c5198eb67014f14e1cf4be8d9b785940cf4fca7ecc592a20e142b928f5f"

	data, err := bridge.ParseTxHash(hash)
	require.NoError(t, err)
	require.Len(t, data, bridge.TxHashLength)

	roundTripped, err := bridge.StringifyTxHash(data)
	require.NoError(t, err)
	require.Equal(t, hash, roundTripped)
}

func TestSolanaTxHashRoundTrip(t *testing.T) {
	hash := "5Q6YzXWReDpmLc2bHSKD11tUqZQD5XZj4Za4xwmstd1unrS7fhJEFwBUyzb5Ph9MyZQRgwiPbGULiKfps9GjR1QF"

	data, err := bridge.ParseSolanaTxHash(hash)
	require.NoError(t, err)
	require.Len(t, data, bridge.SolanaTxHashLength)

	roundTripped, err := bridge.StringifySolanaTxHash(data)
	require.NoError(t, err)
	require.Equal(t, hash, roundTripped)
}

func TestAddressEqualIsStructural(t *testing.T) {
	a := bridge.NewAddress(1, []byte{1, 2, 3})
	b := bridge.NewAddress(1, []byte{1, 2, 3})
	c := bridge.NewAddress(2, []byte{1, 2, 3})

	require.True(t, a.Equal(b))
	require.False(t, a.Equal(c))
}

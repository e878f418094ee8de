package authproof_test

import (
	"encoding/hex"
	"testing"

	"github.com/mr-tron/base58"
	"github.com/stretchr/testify/require"

	"github.com/bridgecore/coordinator/pkg/authproof"
	"github.com/bridgecore/coordinator/pkg/bridge"
)

func mustHex(t *testing.T, s string) []byte {
	t.Helper()
	b, err := hex.DecodeString(s)
	require.NoError(t, err)
	return b
}

func TestVerifyEvm(t *testing.T) {
	signature := mustHex(t, "d29bb47954dc2c0d67778507d9a96852bd0da75dce2337009fcce23a6dedb5625ad5541523ac3c2959c0d31b60b62b980a3c778fd903cedf9f17a99ba9d2152e1b")

	address, err := authproof.Verify(bridge.NetworkTypeEvm, signature, nil)
	require.NoError(t, err)
	require.Equal(t, "3095f955da700b96215cffc9bc64ab2e69eb7dab", hex.EncodeToString(address))
}

func TestVerifyCasperSecp256k1(t *testing.T) {
	signature := mustHex(t, "7088ef7cd32d4ff72a9877cdbdc11f91ea700f774e312e3a27359bd8a15e438200940aa680ea7bc673092721fdff5af689888c18be2128f1fa2da9d572035f83")
	publicKey := mustHex(t, "02026144f73f26ad533465d48d7dfebf69edb4996e07fb05cd9e61b840540e7992fe")

	address, err := authproof.Verify(bridge.NetworkTypeCasper, signature, publicKey)
	require.NoError(t, err)
	require.Equal(t, "002a58a625b26a456672b6e49c7468dab678c36dad115654a8d1676f5d18f019ee", hex.EncodeToString(address))
}

func TestVerifySolana(t *testing.T) {
	signature := mustHex(t, "8e7bda89472cab7b1974be22fd550b6527997bb3c9c6058dff281434a8ec21e08c11dab0d96a6f11a99039283ca3054a1d93fab5d77449b710ae685d135a560c")
	publicKey, err := base58.Decode("9PmF2t7Fm2oBxiQLC8mRapZy2yqobbGmaqEo3QCDtR9o")
	require.NoError(t, err)

	address, err := authproof.Verify(bridge.NetworkTypeSolana, signature, publicKey)
	require.NoError(t, err)
	require.Equal(t, publicKey, address)
}

func TestVerifyCasperMissingPublicKey(t *testing.T) {
	_, err := authproof.Verify(bridge.NetworkTypeCasper, []byte{1, 2, 3}, nil)
	require.ErrorIs(t, err, authproof.ErrMissingPublicKey)
}

func TestVerifyCasperAlgorithmMismatch(t *testing.T) {
	// A secp256k1-tagged signature paired with an ed25519-tagged key.
	publicKey := append([]byte{1}, make([]byte, 32)...)
	signature := append([]byte{2}, make([]byte, 64)...)

	_, err := authproof.Verify(bridge.NetworkTypeCasper, signature, publicKey)
	require.ErrorIs(t, err, authproof.ErrAlgorithmMismatch)
}

package decimal_test

import (
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	"github.com/bridgecore/coordinator/pkg/decimal"
)

func TestRescaleRoundTrip(t *testing.T) {
	n, err := decimal.FromRawWithScale(uint256.NewInt(1_000_000_000), 9)
	require.NoError(t, err)

	raw, err := n.ToRawWithScale(9)
	require.NoError(t, err)

	require.True(t, raw.Eq(uint256.NewInt(1_000_000_000)))
}

func TestRescaleDownPreservesValue(t *testing.T) {
	// Scenario 2: 123456789000000000000 at 18 decimals -> 123456789000 at 9.
	amount, err := uint256.FromDecimal("123456789000000000000")
	require.NoError(t, err)

	d, err := decimal.FromRawWithScale(amount, 18)
	require.NoError(t, err)

	raw, err := d.ToRawWithScale(9)
	require.NoError(t, err)

	expected, err := uint256.FromDecimal("123456789000")
	require.NoError(t, err)
	require.True(t, raw.Eq(expected))
}

func TestRescaleReverseRoundTrips(t *testing.T) {
	amount, err := uint256.FromDecimal("123456789000")
	require.NoError(t, err)

	d, err := decimal.FromRawWithScale(amount, 9)
	require.NoError(t, err)

	raw, err := d.ToRawWithScale(18)
	require.NoError(t, err)

	expected, err := uint256.FromDecimal("123456789000000000000")
	require.NoError(t, err)
	require.True(t, raw.Eq(expected))
}

func TestMulDivIdentity(t *testing.T) {
	a, err := decimal.FromRawWithScale(uint256.NewInt(5), 0)
	require.NoError(t, err)

	result, err := a.Mul(decimal.One())
	require.NoError(t, err)
	require.True(t, result.Raw().Eq(a.Raw()))

	back, err := result.Div(decimal.One())
	require.NoError(t, err)
	require.True(t, back.Raw().Eq(a.Raw()))
}

func TestDivByZero(t *testing.T) {
	a := decimal.One()
	_, err := a.Div(decimal.Zero())
	require.ErrorIs(t, err, decimal.ErrDivisionByZero)
}

func TestString(t *testing.T) {
	d, err := decimal.FromRawWithScale(uint256.NewInt(1), 0)
	require.NoError(t, err)
	require.Equal(t, "1.000000000000000000", d.String())
}

func TestOverflow(t *testing.T) {
	max := decimal.FromRaw(new(uint256.Int).Sub(
		new(uint256.Int).Lsh(uint256.NewInt(1), 255),
		uint256.NewInt(0),
	))
	_, err := max.Add(max)
	require.ErrorIs(t, err, decimal.ErrOverflow)
}

package pricing

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"nativeswap/core/types"
)

func bigExp(base, exp int64) *big.Int {
	return new(big.Int).Exp(big.NewInt(base), big.NewInt(exp), nil)
}

func TestQuotePreconditions(t *testing.T) {
	require := require.New(t)
	one := big.NewInt(1)

	_, err := Quote(one, big.NewInt(0), one, DefaultFeeRate)
	require.ErrorIs(err, types.ErrInvalidReserves)
	_, err = Quote(one, one, big.NewInt(0), DefaultFeeRate)
	require.ErrorIs(err, types.ErrInvalidReserves)
	_, err = Quote(one, nil, one, DefaultFeeRate)
	require.ErrorIs(err, types.ErrInvalidReserves)

	_, err = Quote(big.NewInt(0), one, one, DefaultFeeRate)
	require.ErrorIs(err, types.ErrInvalidInput)
	_, err = Quote(big.NewInt(-5), one, one, DefaultFeeRate)
	require.ErrorIs(err, types.ErrInvalidInput)
	_, err = Quote(nil, one, one, DefaultFeeRate)
	require.ErrorIs(err, types.ErrInvalidInput)
	_, err = Quote(one, one, one, FeeDenominator)
	require.ErrorIs(err, types.ErrInvalidInput)
}

func TestQuoteReferenceVectors(t *testing.T) {
	require := require.New(t)

	// Reserves (1000 native, 2000 asset) in 18-decimal units, 1 native in.
	unit := bigExp(10, 18)
	reserveIn := new(big.Int).Mul(big.NewInt(1000), unit)
	reserveOut := new(big.Int).Mul(big.NewInt(2000), unit)

	out, err := Quote(unit, reserveIn, reserveOut, DefaultFeeRate)
	require.NoError(err)
	want, _ := new(big.Int).SetString("1978041738678708079", 10)
	require.Zero(out.Cmp(want), "got %s want %s", out, want)

	// The same trade with the fee disabled.
	out, err = Quote(unit, reserveIn, reserveOut, 0)
	require.NoError(err)
	want, _ = new(big.Int).SetString("1998001998001998001", 10)
	require.Zero(out.Cmp(want), "got %s want %s", out, want)
}

func TestQuoteInputEqualsReserve(t *testing.T) {
	require := require.New(t)

	// Swapping in the full input-side reserve against a 1000:2000 pool.
	out, err := Quote(big.NewInt(1000), big.NewInt(1000), big.NewInt(2000), 0)
	require.NoError(err)
	require.Equal(int64(1000), out.Int64())

	out, err = Quote(big.NewInt(1000), big.NewInt(1000), big.NewInt(2000), DefaultFeeRate)
	require.NoError(err)
	require.Equal(int64(994), out.Int64())
}

func TestQuoteNeverReachesReserve(t *testing.T) {
	require := require.New(t)

	reserveIn := big.NewInt(123457)
	reserveOut := big.NewInt(98765)
	inputs := []*big.Int{
		big.NewInt(1),
		big.NewInt(997),
		big.NewInt(123456),
		big.NewInt(123457),
		new(big.Int).Mul(reserveIn, big.NewInt(1000)),
		new(big.Int).Mul(reserveIn, bigExp(10, 12)),
	}
	for _, fee := range []uint64{0, 30, DefaultFeeRate, 9999} {
		for _, in := range inputs {
			out, err := Quote(in, reserveIn, reserveOut, fee)
			require.NoError(err)
			require.Negative(out.Cmp(reserveOut),
				"in=%s fee=%d: out %s not below reserve %s", in, fee, out, reserveOut)
		}
	}
}

func TestQuoteFeeReducesOutput(t *testing.T) {
	require := require.New(t)

	reserveIn := big.NewInt(1_000_000)
	reserveOut := big.NewInt(3_000_000)
	for _, in := range []int64{1000, 50_000, 999_999} {
		noFee, err := Quote(big.NewInt(in), reserveIn, reserveOut, 0)
		require.NoError(err)
		withFee, err := Quote(big.NewInt(in), reserveIn, reserveOut, DefaultFeeRate)
		require.NoError(err)
		require.Negative(withFee.Cmp(noFee), "in=%d", in)
	}
}

func TestPriceRatio(t *testing.T) {
	require := require.New(t)

	ratio, err := PriceRatio(big.NewInt(2000), big.NewInt(500))
	require.NoError(err)
	require.Equal(int64(4000), ratio.Int64())

	// Truncates toward zero.
	ratio, err = PriceRatio(big.NewInt(1), big.NewInt(3))
	require.NoError(err)
	require.Equal(int64(333), ratio.Int64())

	_, err = PriceRatio(big.NewInt(0), big.NewInt(1))
	require.ErrorIs(err, types.ErrInvalidReserves)
	_, err = PriceRatio(big.NewInt(1), big.NewInt(0))
	require.ErrorIs(err, types.ErrInvalidReserves)
}

// Package pricing implements the constant-product quoting math. It is pure:
// reserves go in, an output amount comes out, nothing is mutated.
package pricing

import (
	"math/big"

	"nativeswap/core/types"
)

const (
	// FeeDenominator is the denominator for fee calculation.
	FeeDenominator = 10000
	// DefaultFeeRate is the default fee rate in basis points (100 = 1%).
	DefaultFeeRate = 100
	// RatioScale is the fixed-point scale used by PriceRatio.
	RatioScale = 1000
)

// Quote computes the output amount for swapping amountIn against the given
// reserves. The fee is taken from the input, never from the output, so the
// pool retains it as additional reserve:
//
//	effectiveIn = amountIn * (FeeDenominator - feeRate)
//	out         = effectiveIn * reserveOut / (reserveIn * FeeDenominator + effectiveIn)
//
// Division truncates toward zero, which always favors the pool. The output
// is strictly less than reserveOut for every valid input.
func Quote(amountIn, reserveIn, reserveOut *big.Int, feeRate uint64) (*big.Int, error) {
	if reserveIn == nil || reserveIn.Sign() <= 0 || reserveOut == nil || reserveOut.Sign() <= 0 {
		return nil, types.ErrInvalidReserves
	}
	if amountIn == nil || amountIn.Sign() <= 0 || feeRate >= FeeDenominator {
		return nil, types.ErrInvalidInput
	}

	feeMultiplier := new(big.Int).SetUint64(FeeDenominator - feeRate)
	effectiveIn := new(big.Int).Mul(amountIn, feeMultiplier)

	numerator := new(big.Int).Mul(effectiveIn, reserveOut)

	denominator := new(big.Int).Mul(reserveIn, big.NewInt(FeeDenominator))
	denominator.Add(denominator, effectiveIn)

	return numerator.Div(numerator, denominator), nil
}

// PriceRatio returns reserveA * RatioScale / reserveB. It exists purely for
// external price display and is never used for settlement.
func PriceRatio(reserveA, reserveB *big.Int) (*big.Int, error) {
	if reserveA == nil || reserveA.Sign() <= 0 || reserveB == nil || reserveB.Sign() <= 0 {
		return nil, types.ErrInvalidReserves
	}
	scaled := new(big.Int).Mul(reserveA, big.NewInt(RatioScale))
	return scaled.Div(scaled, reserveB), nil
}

/*

Two-asset concentrated-liquidity pool ("cryptoswap"). The package reproduces
the reference pool's fixed-point arithmetic exactly: operation order inside
compound expressions, truncating division, iteration caps, and convergence
thresholds are all semantic and must not be "simplified".

*/

package cryptoswap

import (
	"errors"
	"fmt"

	"cosmossdk.io/math"
	"github.com/curveforge/poolsim/internal/fixedpoint"
	"github.com/curveforge/poolsim/internal/types"
)

// Curve-shape bounds for a two-coin pool: A is stored scaled by
// N^N * AMultiplier, so MinA = 2^2 * 1e4 / 10 and MaxA = 2^2 * 1e4 * 1e5.
var (
	MinA     = math.NewInt(4000)
	MaxA     = math.NewInt(4_000_000_000)
	MinGamma = math.NewIntWithDecimal(1, 10)
	MaxGamma = math.NewIntWithDecimal(2, 16)
)

// FeeDenominator is the scale of mid_fee, out_fee and admin_fee.
var FeeDenominator = math.NewIntWithDecimal(1, 10)

var (
	precision   = fixedpoint.Precision
	aMultiplier = math.NewInt(10_000)

	e9  = math.NewIntWithDecimal(1, 9)
	e14 = math.NewIntWithDecimal(1, 14)
	e16 = math.NewIntWithDecimal(1, 16)
	e17 = math.NewIntWithDecimal(1, 17)
	e20 = math.NewIntWithDecimal(1, 20)
	e33 = math.NewIntWithDecimal(1, 33)
	e36 = math.NewIntWithDecimal(1, 36)
)

var (
	// ErrNotConverged means a solver exhausted its iteration cap. Fatal for
	// the operation: it signals balances or parameters outside the supported
	// operating region, never a transient condition.
	ErrNotConverged = errors.New("cryptoswap: solver did not converge")

	// ErrParamsOutOfRange means A or gamma violate the supported bounds.
	ErrParamsOutOfRange = errors.New("cryptoswap: parameter out of range")

	// ErrUnsafeBalances means normalized balances (or their ratio to D) are
	// outside the band the solvers are specified for.
	ErrUnsafeBalances = errors.New("cryptoswap: unsafe balance values")

	// ErrProfitRegression means a rebalancing would have reduced accumulated
	// profit before any price-scale candidate was even considered. State is
	// left untouched.
	ErrProfitRegression = errors.New("cryptoswap: virtual price regression")
)

// validateParams rejects a parameter record before any solver runs on it.
func validateParams(p types.CryptoPoolParams) error {
	if p.A.IsNil() || p.A.LT(MinA) || p.A.GT(MaxA) {
		return fmt.Errorf("%w: A", ErrParamsOutOfRange)
	}
	if p.Gamma.IsNil() || p.Gamma.LT(MinGamma) || p.Gamma.GT(MaxGamma) {
		return fmt.Errorf("%w: gamma", ErrParamsOutOfRange)
	}
	for k := 0; k < 2; k++ {
		if p.Precisions[k].IsNil() || !p.Precisions[k].IsPositive() {
			return errors.New("cryptoswap: precisions must be positive")
		}
		if p.Balances[k].IsNil() || !p.Balances[k].IsPositive() {
			return errors.New("cryptoswap: initial balances must be positive")
		}
	}
	if p.InitialPrice.IsNil() || !p.InitialPrice.IsPositive() {
		return errors.New("cryptoswap: initial price must be positive")
	}
	if p.MAHalfTime <= 0 {
		return errors.New("cryptoswap: ma_half_time must be positive")
	}
	if p.MidFee.IsNil() || p.OutFee.IsNil() || p.MidFee.IsNegative() || p.OutFee.LT(p.MidFee) {
		return errors.New("cryptoswap: fees must satisfy 0 <= mid_fee <= out_fee")
	}
	if p.OutFee.GTE(FeeDenominator) {
		return errors.New("cryptoswap: out_fee must be below the fee denominator")
	}
	if p.FeeGamma.IsNil() || !p.FeeGamma.IsPositive() || p.FeeGamma.GT(precision) {
		return errors.New("cryptoswap: fee_gamma must be in (0, 1e18]")
	}
	if p.AdminFee.IsNil() || p.AdminFee.IsNegative() || p.AdminFee.GT(FeeDenominator) {
		return errors.New("cryptoswap: admin_fee must be in [0, 1e10]")
	}
	if p.AllowedExtraProfit.IsNil() || p.AllowedExtraProfit.IsNegative() {
		return errors.New("cryptoswap: allowed_extra_profit must be non-negative")
	}
	if p.AdjustmentStep.IsNil() || !p.AdjustmentStep.IsPositive() {
		return errors.New("cryptoswap: adjustment_step must be positive")
	}
	return nil
}

// validateParamsRange is the solver-entry guard shared by NewtonD and
// NewtonY; unlike construction-time validation it only concerns A and gamma.
func validateParamsRange(a, gamma math.Int) error {
	if a.LT(MinA) || a.GT(MaxA) {
		return ErrParamsOutOfRange
	}
	if gamma.LT(MinGamma) || gamma.GT(MaxGamma) {
		return ErrParamsOutOfRange
	}
	return nil
}

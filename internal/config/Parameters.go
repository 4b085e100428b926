/*

This file contains the default pool parameters for the simulator.

The concentrated-liquidity defaults mirror the observed state of a large
two-asset crypto pool at a 1:1 price point; the stable defaults mirror a deep
three-coin stable pool. Both are meant as realistic starting points for
parameter sweeps, not as tuned recommendations.

*/

package config

import (
	"cosmossdk.io/math"
	"github.com/curveforge/poolsim/internal/types"
)

// DefaultCryptoParams provides a baseline concentrated-liquidity pool.
// Seeded state (D, supply, profit counters) is left zero and derived at
// construction.
func DefaultCryptoParams() types.CryptoPoolParams {
	one := math.OneInt()
	return types.CryptoPoolParams{
		A:     math.NewInt(400_000), // mid-range amplification for a volatile pair
		Gamma: math.NewInt(72_500_000_000_000),
		// Gamma around 7e-5 keeps liquidity concentrated near the price scale
		// without starving the tails.

		MidFee: math.NewInt(26_000_000), // 0.26% when balanced
		OutFee: math.NewInt(45_000_000), // 0.45% when one-sided
		// The spread between mid and out fee is what makes imbalance
		// expensive to create and cheap to close.
		FeeGamma: math.NewInt(230_000_000_000_000),

		AdminFee: math.NewInt(5_000_000_000), // half the profit

		AllowedExtraProfit: math.NewInt(2_000_000_000_000),
		// Roughly 2e-6 of extra profit must exist before a rebalance is even
		// considered; below that the move would cost more than it frees.
		AdjustmentStep: math.NewInt(146_000_000_000_000),
		// At most ~0.015% of price-scale movement per trade under calm
		// conditions; larger oracle drift widens the step to norm/5.
		MAHalfTime: 600, // 10-minute oracle half-life

		Precisions:   [2]math.Int{one, one},
		InitialPrice: math.NewIntWithDecimal(1, 18),
		Balances: [2]math.Int{
			math.NewIntWithDecimal(5, 24), // 5M units per side
			math.NewIntWithDecimal(5, 24),
		},
	}
}

// DefaultStableParams provides a baseline three-coin stable pool.
func DefaultStableParams() types.StablePoolParams {
	unit := math.NewIntWithDecimal(1, 18)
	bal := math.NewIntWithDecimal(1, 24)
	return types.StablePoolParams{
		A: math.NewInt(1500),
		// Deep stable pools run high amplification; 1500 holds the peg tight
		// across large trades while still walling off the extremes.
		Fee:      math.NewInt(4_000_000),     // 0.04% flat
		AdminFee: math.NewInt(5_000_000_000), // half the fee

		Rates:    []math.Int{unit, unit, unit},
		Balances: []math.Int{bal, bal, bal}, // 1M units per coin
	}
}

// DefaultMetaParams wraps a fresh two-coin top pair around the default stable
// pool, trading a new coin against the base pool's LP token.
func DefaultMetaParams() types.StablePoolParams {
	unit := math.NewIntWithDecimal(1, 18)
	bal := math.NewIntWithDecimal(1, 24)
	base := DefaultStableParams()
	return types.StablePoolParams{
		A: math.NewInt(1000),
		// Top pairs run softer amplification than the base: the new coin is
		// assumed less battle-tested than the basket it trades against.
		Fee:      math.NewInt(4_000_000),
		AdminFee: math.NewInt(5_000_000_000),

		// The LP slot rate is replaced by the base virtual price at
		// construction.
		Rates:    []math.Int{unit, unit},
		Balances: []math.Int{bal, bal},
		Basepool: &base,
	}
}

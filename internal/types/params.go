/*

Parameter records consumed by the pool constructors. A record mirrors the
observed state of a reference deployment: curve-shape and fee parameters plus
the seeded balances, invariant, and profit counters. Records are immutable per
simulation run; concurrent runs operate on independent pool clones.

*/

package types

import (
	"cosmossdk.io/math"
)

// CryptoPoolParams configures a two-asset concentrated-liquidity pool.
//
// All fixed-point fields use 18 decimals except the fee fields, which use the
// pool's 1e10 fee denominator. A is the amplification coefficient already
// scaled by N^N * 1e4, as stored on chain.
type CryptoPoolParams struct {
	A     math.Int `json:"a"`
	Gamma math.Int `json:"gamma"`

	MidFee   math.Int `json:"mid_fee"`   // fee at perfect balance, 1e10 units
	OutFee   math.Int `json:"out_fee"`   // fee at full imbalance, 1e10 units
	FeeGamma math.Int `json:"fee_gamma"` // controls the mid->out transition, 1e18 units
	AdminFee math.Int `json:"admin_fee"` // share of profit claimed for the admin, 1e10 units

	AllowedExtraProfit math.Int `json:"allowed_extra_profit"` // profit margin required before adjusting, 1e18 units
	AdjustmentStep     math.Int `json:"adjustment_step"`      // max relative price-scale move per call, 1e18 units
	MAHalfTime         int64    `json:"ma_half_time"`         // price oracle half-life, seconds

	// Precisions scale native token decimals up to 18 decimals.
	Precisions [2]math.Int `json:"precisions"`

	// InitialPrice seeds price_scale, the price oracle, and the last trade
	// price (asset 1 quoted in asset 0, 1e18 units).
	InitialPrice math.Int `json:"initial_price"`

	// Balances are native-unit token balances. D, TotalSupply, XcpProfit and
	// XcpProfitA may be zero, in which case they are derived at construction.
	Balances    [2]math.Int `json:"balances"`
	D           math.Int    `json:"d"`
	TotalSupply math.Int    `json:"total_supply"`
	XcpProfit   math.Int    `json:"xcp_profit"`
	XcpProfitA  math.Int    `json:"xcp_profit_a"`
}

// StablePoolParams configures a stable-invariant pool.
//
// Basepool optionally configures a composed base pool; the metapool variant
// trades its top pair against the base pool's LP token. The nested record is
// validated at construction together with the outer one.
type StablePoolParams struct {
	A        math.Int   `json:"a"`   // amplification coefficient (unscaled)
	Fee      math.Int   `json:"fee"` // flat swap fee, 1e10 units
	AdminFee math.Int   `json:"admin_fee"`
	Rates    []math.Int `json:"rates"` // per-coin scaling to 18 decimals, 1e18 units
	Balances []math.Int `json:"balances"`

	Basepool *StablePoolParams `json:"basepool,omitempty"`
}

// NCoins returns the number of coins configured for the stable pool.
func (p StablePoolParams) NCoins() int {
	return len(p.Balances)
}

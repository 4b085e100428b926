package types

import (
	"time"

	"cosmossdk.io/math"
)

// TradeResult is what a pool reports for one executed swap.
//
// AmountOut and Fee are in native units of the output token. Volume is the
// input leg normalized to invariant units (18 decimals, price-scale applied),
// so volumes are comparable and summable across tokens.
type TradeResult struct {
	AmountOut math.Int `json:"amount_out"`
	Fee       math.Int `json:"fee"`
	Volume    math.Int `json:"volume"`
}

// RunSnapshot captures the end-of-run state of a pool for persistence.
type RunSnapshot struct {
	RunName        string    `json:"run_name"`
	Timestamp      time.Time `json:"timestamp"`
	TradesExecuted int       `json:"trades_executed"`

	Balances     [2]math.Int `json:"balances"`
	D            math.Int    `json:"d"`
	PriceScale   math.Int    `json:"price_scale"`
	PriceOracle  math.Int    `json:"price_oracle"`
	VirtualPrice math.Int    `json:"virtual_price"`
	XcpProfit    math.Int    `json:"xcp_profit"`
	XcpProfitA   math.Int    `json:"xcp_profit_a"`
	TotalVolume  math.Int    `json:"total_volume"`
}

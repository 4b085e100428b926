/*

The trade contract implemented by every pool variant. The simulation driver
talks to pools only through this interface, so stable-invariant pools,
concentrated-liquidity pools, and base-pool-wrapped pools are interchangeable
per time step.

*/

package pool

import (
	"time"

	"cosmossdk.io/math"
	"github.com/curveforge/poolsim/internal/types"
)

// Pool is the capability set a simulation driver needs from a pool.
//
// Coins are addressed by index. A pool instance is exclusively owned by one
// logical run; drivers that fan out across parameter sets must work on
// Clone()s, never share one instance.
type Pool interface {
	// Price returns the spot price of coin i quoted in coin j for an
	// infinitesimally small trade, as an 18-decimal fixed-point value.
	// It does not mutate state.
	Price(i, j int, includeFee bool) (math.Int, error)

	// Trade swaps amountIn of coin i for coin j and returns the output
	// amount, the fee charged, and the trade volume normalized to invariant
	// units.
	Trade(i, j int, amountIn math.Int) (types.TradeResult, error)

	// PrepareForTrades runs any time-dependent state refresh before the
	// trades of one simulated time step. The base behavior is advancing the
	// pool clock; variants without time-dependent state treat it as a no-op.
	PrepareForTrades(ts time.Time)

	// Clone returns an independent deep copy of the pool for per-run
	// isolation.
	Clone() Pool
}

// Package metapool wraps a two-coin stable pair over a stable base pool: the
// top pair trades coin 0 against the base pool's LP token, whose
// normalization rate is the base pool's virtual price. Callers address the
// underlying coin space directly: index 0 is the top coin, index k >= 1 is
// base coin k-1.
package metapool

import (
	"errors"
	"fmt"
	"time"

	"cosmossdk.io/math"
	"github.com/curveforge/poolsim/internal/pool"
	"github.com/curveforge/poolsim/internal/stableswap"
	"github.com/curveforge/poolsim/internal/types"
)

var (
	ErrParamsOutOfRange = errors.New("metapool: parameter out of range")

	precision = math.NewIntWithDecimal(1, 18)
)

// Pool routes trades between the top coin and the base pool's coins through
// deposit / top-exchange / one-coin-withdrawal legs. Base-to-base trades pass
// straight through to the base pool.
type Pool struct {
	top  *stableswap.Pool // [coin0, baseLP]
	base *stableswap.Pool
}

var _ pool.Pool = (*Pool)(nil)

// New builds a metapool from a parameter record whose Basepool field holds
// the base pool's record. The outer record describes the top pair; its second
// rate is replaced by the base virtual price and maintained from then on.
func New(p types.StablePoolParams) (*Pool, error) {
	if p.Basepool == nil {
		return nil, fmt.Errorf("%w: missing basepool record", ErrParamsOutOfRange)
	}
	if p.NCoins() != 2 {
		return nil, fmt.Errorf("%w: top pair must have 2 coins, got %d", ErrParamsOutOfRange, p.NCoins())
	}
	if len(p.Rates) != 2 {
		return nil, fmt.Errorf("%w: %d rates for 2 coins", ErrParamsOutOfRange, len(p.Rates))
	}
	if p.Basepool.Basepool != nil {
		return nil, fmt.Errorf("%w: basepool records do not nest", ErrParamsOutOfRange)
	}

	base, err := stableswap.New(*p.Basepool)
	if err != nil {
		return nil, fmt.Errorf("building base pool: %w", err)
	}
	vp, err := base.VirtualPrice()
	if err != nil {
		return nil, err
	}

	topParams := p
	topParams.Basepool = nil
	topParams.Rates = []math.Int{p.Rates[0], vp}
	top, err := stableswap.New(topParams)
	if err != nil {
		return nil, fmt.Errorf("building top pair: %w", err)
	}

	return &Pool{top: top, base: base}, nil
}

// NCoins returns the size of the underlying coin space.
func (p *Pool) NCoins() int {
	return 1 + p.base.NCoins()
}

// refreshRate pins the top pair's LP slot to the current base virtual price.
func (p *Pool) refreshRate() error {
	vp, err := p.base.VirtualPrice()
	if err != nil {
		return err
	}
	p.top.SetRate(1, vp)
	return nil
}

// Trade swaps amountIn of underlying coin i for underlying coin j.
//
// Cross trades mutate both pools; a failure on any leg restores both, so a
// trade either commits fully or leaves the metapool untouched.
func (p *Pool) Trade(i, j int, amountIn math.Int) (types.TradeResult, error) {
	n := p.NCoins()
	if i == j || i < 0 || j < 0 || i >= n || j >= n {
		return types.TradeResult{}, fmt.Errorf("metapool: invalid coin pair (%d, %d)", i, j)
	}

	if i >= 1 && j >= 1 {
		return p.base.Trade(i-1, j-1, amountIn)
	}

	savedTop := p.top.Clone().(*stableswap.Pool)
	savedBase := p.base.Clone().(*stableswap.Pool)
	res, err := p.crossTrade(i, j, amountIn)
	if err != nil {
		p.top = savedTop
		p.base = savedBase
		return types.TradeResult{}, err
	}
	return res, nil
}

func (p *Pool) crossTrade(i, j int, amountIn math.Int) (types.TradeResult, error) {
	if err := p.refreshRate(); err != nil {
		return types.TradeResult{}, err
	}
	vp := p.top.Rates()[1]

	if i == 0 {
		// top coin in: swap to LP on the top pair, then redeem one base coin
		lp, lpFee, err := p.top.Exchange(0, 1, amountIn)
		if err != nil {
			return types.TradeResult{}, err
		}
		dy, wFee, err := p.base.RemoveLiquidityOneCoin(lp, j-1)
		if err != nil {
			return types.TradeResult{}, err
		}
		rateJ := p.base.Rates()[j-1]
		fee := wFee.Add(lpFee.Mul(vp).Quo(rateJ))
		volume := amountIn.Mul(p.top.Rates()[0]).Quo(precision)
		return types.TradeResult{AmountOut: dy, Fee: fee, Volume: volume}, nil
	}

	// base coin in: deposit one-sided for LP, then swap LP to the top coin
	amounts := make([]math.Int, p.base.NCoins())
	for k := range amounts {
		amounts[k] = math.ZeroInt()
	}
	amounts[i-1] = amountIn

	lp, err := p.base.AddLiquidity(amounts)
	if err != nil {
		return types.TradeResult{}, err
	}
	if err := p.refreshRate(); err != nil {
		return types.TradeResult{}, err
	}
	dy, fee, err := p.top.Exchange(1, 0, lp)
	if err != nil {
		return types.TradeResult{}, err
	}
	volume := amountIn.Mul(p.base.Rates()[i-1]).Quo(precision)
	return types.TradeResult{AmountOut: dy, Fee: fee, Volume: volume}, nil
}

// Price composes spot prices by the chain rule: a cross price is the top-pair
// price into LP terms times the marginal redemption value of one LP token in
// the target base coin (the base virtual price over dD/dx of that coin).
func (p *Pool) Price(i, j int, includeFee bool) (math.Int, error) {
	n := p.NCoins()
	if i == j || i < 0 || j < 0 || i >= n || j >= n {
		return math.ZeroInt(), fmt.Errorf("metapool: invalid coin pair (%d, %d)", i, j)
	}

	if i >= 1 && j >= 1 {
		return p.base.Price(i-1, j-1, includeFee)
	}
	if err := p.refreshRate(); err != nil {
		return math.ZeroInt(), err
	}
	vp := p.top.Rates()[1]

	if i == 0 {
		pTop, err := p.top.Price(0, 1, includeFee)
		if err != nil {
			return math.ZeroInt(), err
		}
		dd, err := p.base.InvariantDerivative(j - 1)
		if err != nil {
			return math.ZeroInt(), err
		}
		lpToCoin := vp.Mul(precision).Quo(dd).Mul(precision).Quo(p.base.Rates()[j-1])
		return pTop.Mul(lpToCoin).Quo(precision), nil
	}

	dd, err := p.base.InvariantDerivative(i - 1)
	if err != nil {
		return math.ZeroInt(), err
	}
	coinToLP := dd.Mul(p.base.Rates()[i-1]).Quo(vp)
	pTop, err := p.top.Price(1, 0, includeFee)
	if err != nil {
		return math.ZeroInt(), err
	}
	return coinToLP.Mul(pTop).Quo(precision), nil
}

// PrepareForTrades is part of the pool contract; both legs are stable pools
// with no time-dependent state.
func (p *Pool) PrepareForTrades(ts time.Time) {
	p.top.PrepareForTrades(ts)
	p.base.PrepareForTrades(ts)
}

// Clone returns an independent deep copy for per-run isolation.
func (p *Pool) Clone() pool.Pool {
	return &Pool{
		top:  p.top.Clone().(*stableswap.Pool),
		base: p.base.Clone().(*stableswap.Pool),
	}
}

// Top exposes the top pair for inspection.
func (p *Pool) Top() *stableswap.Pool { return p.top }

// Base exposes the base pool for inspection.
func (p *Pool) Base() *stableswap.Pool { return p.base }

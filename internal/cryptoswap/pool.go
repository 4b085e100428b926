package cryptoswap

import (
	"fmt"
	"time"

	"cosmossdk.io/math"
	"github.com/curveforge/poolsim/internal/fixedpoint"
	"github.com/curveforge/poolsim/internal/pool"
	"github.com/curveforge/poolsim/internal/types"
)

// Pool is a two-asset concentrated-liquidity pool.
//
// Stored balances are in native token units; the solvers always work on
// balances normalized by precisions and, for asset 1, by the price scale.
// A Pool is exclusively owned by one logical simulation run and is not safe
// for concurrent use; fan-out happens on Clone()s.
type Pool struct {
	a     math.Int // A * N^N * 1e4
	gamma math.Int

	midFee   math.Int
	outFee   math.Int
	feeGamma math.Int
	adminFee math.Int

	allowedExtraProfit math.Int
	adjustmentStep     math.Int
	maHalfTime         int64

	precisions [2]math.Int

	balances [2]math.Int
	d        math.Int

	priceScale          math.Int
	priceOracle         math.Int
	lastPrices          math.Int
	lastPricesTimestamp int64
	blockTimestamp      int64

	virtualPrice math.Int
	xcpProfit    math.Int
	xcpProfitA   math.Int
	totalSupply  math.Int
	notAdjusted  bool
}

var _ pool.Pool = (*Pool)(nil)

// New builds a pool from a parameter record, typically mirrored from a
// reference deployment's observed state. D, total supply, and the profit
// counters may be omitted and are derived from the balances when zero.
func New(p types.CryptoPoolParams) (*Pool, error) {
	if err := validateParams(p); err != nil {
		return nil, err
	}

	pl := &Pool{
		a:                  p.A,
		gamma:              p.Gamma,
		midFee:             p.MidFee,
		outFee:             p.OutFee,
		feeGamma:           p.FeeGamma,
		adminFee:           p.AdminFee,
		allowedExtraProfit: p.AllowedExtraProfit,
		adjustmentStep:     p.AdjustmentStep,
		maHalfTime:         p.MAHalfTime,
		precisions:         p.Precisions,
		balances:           p.Balances,
		priceScale:         p.InitialPrice,
		priceOracle:        p.InitialPrice,
		lastPrices:         p.InitialPrice,
	}

	if p.D.IsNil() || p.D.IsZero() {
		d, err := NewtonD(pl.a, pl.gamma, pl.xp())
		if err != nil {
			return nil, fmt.Errorf("deriving initial invariant: %w", err)
		}
		pl.d = d
	} else {
		pl.d = p.D
	}

	if p.TotalSupply.IsNil() || p.TotalSupply.IsZero() {
		pl.totalSupply = pl.getXcp(pl.d)
	} else {
		pl.totalSupply = p.TotalSupply
	}
	pl.virtualPrice = precision.Mul(pl.getXcp(pl.d)).Quo(pl.totalSupply)

	pl.xcpProfit = orUnit(p.XcpProfit)
	pl.xcpProfitA = orUnit(p.XcpProfitA)

	return pl, nil
}

func orUnit(v math.Int) math.Int {
	if v.IsNil() || v.IsZero() {
		return precision
	}
	return v
}

// xp returns balances normalized to 18 decimals, asset 1 additionally scaled
// by the current price scale.
func (p *Pool) xp() [2]math.Int {
	return [2]math.Int{
		p.balances[0].Mul(p.precisions[0]),
		p.balances[1].Mul(p.priceScale).Mul(p.precisions[1]).Quo(precision),
	}
}

// fee interpolates between midFee at perfect balance and outFee at full
// imbalance, shaped by feeGamma.
func (p *Pool) fee(xp [2]math.Int) math.Int {
	s := xp[0].Add(xp[1])
	f := p.feeGamma.Mul(precision).
		Quo(p.feeGamma.Add(precision).Sub(precision.MulRaw(4).Mul(xp[0]).Quo(s).Mul(xp[1]).Quo(s)))
	return p.midFee.Mul(f).Add(p.outFee.Mul(precision.Sub(f))).Quo(precision)
}

// getXcp is the "extended constant product" profit metric for a given D at
// the current price scale.
func (p *Pool) getXcp(d math.Int) math.Int {
	x0 := d.QuoRaw(2)
	x1 := d.Mul(precision).Quo(p.priceScale.MulRaw(2))
	return fixedpoint.GeometricMean(x0, x1, false)
}

// Exchange swaps dx of coin i for coin j and returns (dy, fee) in native
// units of coin j. The whole trade, including the price-rebalancer call it
// triggers, either commits or leaves the pool untouched.
func (p *Pool) Exchange(i, j int, dx math.Int) (math.Int, math.Int, error) {
	if i == j || i < 0 || j < 0 || i > 1 || j > 1 {
		return math.ZeroInt(), math.ZeroInt(), fmt.Errorf("cryptoswap: invalid coin pair (%d, %d)", i, j)
	}
	if dx.IsNil() || !dx.IsPositive() {
		return math.ZeroInt(), math.ZeroInt(), fmt.Errorf("cryptoswap: trade size must be positive")
	}

	// Checkpoint for all-or-nothing semantics: a solver failure or profit
	// regression anywhere below must not leave a half-applied trade.
	saved := *p

	bal := p.balances
	y := bal[j]
	bal[i] = bal[i].Add(dx)

	xp := [2]math.Int{
		bal[0].Mul(p.precisions[0]),
		bal[1].Mul(p.priceScale).Mul(p.precisions[1]).Quo(precision),
	}

	precI, precJ := p.precisions[0], p.precisions[1]
	if i == 1 {
		precI, precJ = p.precisions[1], p.precisions[0]
	}

	yNew, err := NewtonY(p.a, p.gamma, xp, p.d, j)
	if err != nil {
		return math.ZeroInt(), math.ZeroInt(), err
	}

	dy := xp[j].Sub(yNew)
	xp[j] = xp[j].Sub(dy)
	dy = dy.SubRaw(1)

	if j > 0 {
		dy = dy.Mul(precision).Quo(p.priceScale)
	}
	dy = dy.Quo(precJ)

	fee := p.fee(xp).Mul(dy).Quo(FeeDenominator)
	dy = dy.Sub(fee)
	y = y.Sub(dy)
	bal[j] = y

	// put the post-trade output balance back in normalized units for the
	// rebalancer
	yNorm := y.Mul(precJ)
	if j > 0 {
		yNorm = yNorm.Mul(p.priceScale).Quo(precision)
	}
	xp[j] = yNorm

	// realized trade price, only meaningful above dust size
	lastPrice := math.ZeroInt()
	if dx.GT(math.NewInt(100_000)) && dy.GT(math.NewInt(100_000)) {
		dxNorm := dx.Mul(precI)
		dyNorm := dy.Mul(precJ)
		if i == 0 {
			lastPrice = dxNorm.Mul(precision).Quo(dyNorm)
		} else {
			lastPrice = dyNorm.Mul(precision).Quo(dxNorm)
		}
	}

	p.balances = bal
	if err := p.tweakPrice(p.a, p.gamma, xp, lastPrice, math.ZeroInt()); err != nil {
		*p = saved
		return math.ZeroInt(), math.ZeroInt(), err
	}

	return dy, fee, nil
}

// spotPriceXP returns the spot price of asset 1 quoted in asset 0, both in
// normalized (xp) units, from the invariant's partial derivatives.
func (p *Pool) spotPriceXP(xp [2]math.Int, d math.Int) math.Int {
	x, y := xp[0], xp[1]

	k0 := math.NewInt(4).Mul(x).Mul(y).Quo(d).Mul(e36).Quo(d)
	gp1 := p.gamma.Add(precision)

	gk0 := k0.MulRaw(2).Mul(k0).Quo(e36).Mul(k0).Quo(e36).
		Add(gp1.Mul(gp1)).
		Sub(k0.Mul(k0).Quo(e36).Mul(p.gamma.MulRaw(2).Add(precision.MulRaw(3))).Quo(precision))

	nnag2 := p.a.Mul(p.gamma).Mul(p.gamma).Quo(aMultiplier)

	den := gk0.Add(nnag2.Mul(x).Quo(d).Mul(k0).Quo(e36))
	num := x.Mul(gk0.Add(nnag2.Mul(y).Quo(d).Mul(k0).Quo(e36))).Quo(y)

	return num.Mul(precision).Quo(den)
}

// Price returns the spot price of coin i quoted in coin j for an
// infinitesimal trade, in 18-decimal fixed point, without mutating state.
func (p *Pool) Price(i, j int, includeFee bool) (math.Int, error) {
	if i == j || i < 0 || j < 0 || i > 1 || j > 1 {
		return math.ZeroInt(), fmt.Errorf("cryptoswap: invalid coin pair (%d, %d)", i, j)
	}

	xp := p.xp()
	pXP := p.spotPriceXP(xp, p.d)

	// asset 1 quoted in asset 0, native units
	p10 := pXP.Mul(p.priceScale).Quo(precision).Mul(p.precisions[1]).Quo(p.precisions[0])

	var out math.Int
	if i == 1 {
		out = p10
	} else {
		out = precision.Mul(precision).Quo(p10)
	}

	if includeFee {
		f := p.fee(xp)
		out = out.Mul(FeeDenominator.Sub(f)).Quo(FeeDenominator)
	}
	return out, nil
}

// Trade implements the pool trade contract on top of Exchange, adding the
// input-leg volume normalized to invariant units.
func (p *Pool) Trade(i, j int, amountIn math.Int) (types.TradeResult, error) {
	dy, fee, err := p.Exchange(i, j, amountIn)
	if err != nil {
		return types.TradeResult{}, err
	}

	volume := amountIn.Mul(p.precisions[i])
	if i == 1 {
		volume = volume.Mul(p.priceScale).Quo(precision)
	}
	return types.TradeResult{AmountOut: dy, Fee: fee, Volume: volume}, nil
}

// PrepareForTrades advances the simulated clock; the price oracle decays
// against it on the next rebalancer call.
func (p *Pool) PrepareForTrades(ts time.Time) {
	p.blockTimestamp = ts.Unix()
}

// Clone returns an independent deep copy for per-run isolation. math.Int
// values are never mutated in place, so sharing their backing storage across
// copies is safe.
func (p *Pool) Clone() pool.Pool {
	c := *p
	return &c
}

// Accessors for state inspection and snapshotting.

func (p *Pool) Balances() [2]math.Int { return p.balances }

func (p *Pool) D() math.Int { return p.d }

func (p *Pool) PriceScale() math.Int { return p.priceScale }

func (p *Pool) PriceOracle() math.Int { return p.priceOracle }

func (p *Pool) LastPrices() math.Int { return p.lastPrices }

func (p *Pool) VirtualPrice() math.Int { return p.virtualPrice }

func (p *Pool) XcpProfit() math.Int { return p.xcpProfit }

func (p *Pool) XcpProfitA() math.Int { return p.xcpProfitA }

func (p *Pool) TotalSupply() math.Int { return p.totalSupply }

func (p *Pool) AdjustmentStep() math.Int { return p.adjustmentStep }

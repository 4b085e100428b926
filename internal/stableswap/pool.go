package stableswap

import (
	"errors"
	"fmt"
	"time"

	"cosmossdk.io/math"
	"github.com/curveforge/poolsim/internal/pool"
	"github.com/curveforge/poolsim/internal/types"
)

var (
	ErrNotConverged     = errors.New("stableswap: solver did not converge")
	ErrParamsOutOfRange = errors.New("stableswap: parameter out of range")
	ErrUnsafeBalances   = errors.New("stableswap: balances outside supported range")

	precision = math.NewIntWithDecimal(1, 18)

	// FeeDenominator scales the flat fee and the admin fee.
	FeeDenominator = math.NewInt(10_000_000_000)
)

// Pool is an N-coin stable-invariant pool.
//
// Balances are stored in native token units; rates scale each coin to
// 18-decimal normalized units for the solvers. Like the other variants, a
// Pool belongs to one logical run and fan-out goes through Clone().
type Pool struct {
	a        math.Int // amplification coefficient
	fee      math.Int // 1e10 units
	adminFee math.Int // 1e10 units, share of the fee
	n        int

	rates         []math.Int
	balances      []math.Int
	adminBalances []math.Int
	totalSupply   math.Int
}

var _ pool.Pool = (*Pool)(nil)

// New builds a stable pool from a parameter record. The LP supply is seeded
// at the initial invariant, giving a virtual price of exactly one unit.
// Records carrying a nested Basepool belong to the metapool constructor.
func New(p types.StablePoolParams) (*Pool, error) {
	if p.Basepool != nil {
		return nil, fmt.Errorf("%w: nested basepool requires the metapool variant", ErrParamsOutOfRange)
	}
	n := p.NCoins()
	if n < 2 {
		return nil, fmt.Errorf("%w: need at least 2 coins, got %d", ErrParamsOutOfRange, n)
	}
	if len(p.Rates) != n {
		return nil, fmt.Errorf("%w: %d rates for %d coins", ErrParamsOutOfRange, len(p.Rates), n)
	}
	if p.A.IsNil() || !p.A.IsPositive() {
		return nil, fmt.Errorf("%w: A", ErrParamsOutOfRange)
	}
	if p.Fee.IsNil() || p.Fee.IsNegative() || p.Fee.GT(FeeDenominator) {
		return nil, fmt.Errorf("%w: fee", ErrParamsOutOfRange)
	}
	if p.AdminFee.IsNil() || p.AdminFee.IsNegative() || p.AdminFee.GT(FeeDenominator) {
		return nil, fmt.Errorf("%w: admin fee", ErrParamsOutOfRange)
	}
	for i := 0; i < n; i++ {
		if p.Rates[i].IsNil() || !p.Rates[i].IsPositive() {
			return nil, fmt.Errorf("%w: rate %d", ErrParamsOutOfRange, i)
		}
		if p.Balances[i].IsNil() || !p.Balances[i].IsPositive() {
			return nil, fmt.Errorf("%w: balance %d", ErrParamsOutOfRange, i)
		}
	}

	pl := &Pool{
		a:             p.A,
		fee:           p.Fee,
		adminFee:      p.AdminFee,
		n:             n,
		rates:         append([]math.Int(nil), p.Rates...),
		balances:      append([]math.Int(nil), p.Balances...),
		adminBalances: make([]math.Int, n),
	}
	for i := range pl.adminBalances {
		pl.adminBalances[i] = math.ZeroInt()
	}

	d, err := getD(pl.a, pl.xp())
	if err != nil {
		return nil, fmt.Errorf("deriving initial invariant: %w", err)
	}
	pl.totalSupply = d

	return pl, nil
}

// xp returns balances normalized to 18 decimals via the per-coin rates.
func (p *Pool) xp() []math.Int {
	out := make([]math.Int, p.n)
	for i := range out {
		out[i] = p.balances[i].Mul(p.rates[i]).Quo(precision)
	}
	return out
}

// D solves the invariant at the current balances.
func (p *Pool) D() (math.Int, error) {
	return getD(p.a, p.xp())
}

// VirtualPrice is the invariant per LP token, 1e18 units.
func (p *Pool) VirtualPrice() (math.Int, error) {
	d, err := p.D()
	if err != nil {
		return math.ZeroInt(), err
	}
	return d.Mul(precision).Quo(p.totalSupply), nil
}

// Exchange swaps dx of coin i for coin j. Returns (dy, fee) in native units
// of coin j; the admin share of the fee is skimmed out of the pool balance.
func (p *Pool) Exchange(i, j int, dx math.Int) (math.Int, math.Int, error) {
	if i == j || i < 0 || j < 0 || i >= p.n || j >= p.n {
		return math.ZeroInt(), math.ZeroInt(), fmt.Errorf("stableswap: invalid coin pair (%d, %d)", i, j)
	}
	if dx.IsNil() || !dx.IsPositive() {
		return math.ZeroInt(), math.ZeroInt(), fmt.Errorf("stableswap: trade size must be positive")
	}

	xp := p.xp()
	d, err := getD(p.a, xp)
	if err != nil {
		return math.ZeroInt(), math.ZeroInt(), err
	}

	x := xp[i].Add(dx.Mul(p.rates[i]).Quo(precision))
	y, err := getY(p.a, i, j, x, xp, d)
	if err != nil {
		return math.ZeroInt(), math.ZeroInt(), err
	}

	dy := xp[j].Sub(y).SubRaw(1)
	fee := dy.Mul(p.fee).Quo(FeeDenominator)

	dyNative := dy.Sub(fee).Mul(precision).Quo(p.rates[j])
	feeNative := fee.Mul(precision).Quo(p.rates[j])
	adminNative := feeNative.Mul(p.adminFee).Quo(FeeDenominator)

	if dyNative.Add(adminNative).GTE(p.balances[j]) {
		return math.ZeroInt(), math.ZeroInt(), fmt.Errorf("%w: trade would drain coin %d", ErrUnsafeBalances, j)
	}

	p.balances[i] = p.balances[i].Add(dx)
	p.balances[j] = p.balances[j].Sub(dyNative).Sub(adminNative)
	p.adminBalances[j] = p.adminBalances[j].Add(adminNative)

	return dyNative, feeNative, nil
}

// imbalanceFee is the liquidity-operation fee rate, fee * n / (4 * (n-1)),
// calibrated so a fully one-sided deposit pays about the swap fee.
func (p *Pool) imbalanceFee() math.Int {
	return p.fee.MulRaw(int64(p.n)).QuoRaw(int64(4 * (p.n - 1)))
}

// AddLiquidity deposits amounts (native units, zero entries allowed) and
// returns the LP tokens minted. Deposits that move the balance composition
// pay the imbalance fee on the moved portion.
func (p *Pool) AddLiquidity(amounts []math.Int) (math.Int, error) {
	if len(amounts) != p.n {
		return math.ZeroInt(), fmt.Errorf("stableswap: %d amounts for %d coins", len(amounts), p.n)
	}

	old := append([]math.Int(nil), p.balances...)
	d0, err := getD(p.a, p.xp())
	if err != nil {
		return math.ZeroInt(), err
	}

	newBal := make([]math.Int, p.n)
	for i := range newBal {
		a := amounts[i]
		if a.IsNil() {
			a = math.ZeroInt()
		}
		if a.IsNegative() {
			return math.ZeroInt(), fmt.Errorf("stableswap: negative deposit for coin %d", i)
		}
		newBal[i] = old[i].Add(a)
	}
	d1, err := getD(p.a, p.xpOf(newBal))
	if err != nil {
		return math.ZeroInt(), err
	}
	if d1.LTE(d0) {
		return math.ZeroInt(), fmt.Errorf("stableswap: deposit must grow the invariant")
	}

	feeRate := p.imbalanceFee()
	reduced := make([]math.Int, p.n)
	for i := range newBal {
		ideal := d1.Mul(old[i]).Quo(d0)
		diff := ideal.Sub(newBal[i]).Abs()
		feeI := feeRate.Mul(diff).Quo(FeeDenominator)
		adminI := feeI.Mul(p.adminFee).Quo(FeeDenominator)

		p.balances[i] = newBal[i].Sub(adminI)
		p.adminBalances[i] = p.adminBalances[i].Add(adminI)
		reduced[i] = newBal[i].Sub(feeI)
	}

	d2, err := getD(p.a, p.xpOf(reduced))
	if err != nil {
		return math.ZeroInt(), err
	}
	minted := p.totalSupply.Mul(d2.Sub(d0)).Quo(d0)
	p.totalSupply = p.totalSupply.Add(minted)
	return minted, nil
}

// RemoveLiquidityOneCoin burns amount LP tokens for coin i only. Returns
// (dy, fee) in native units of coin i; the fee is the imbalance charge
// versus a proportional withdrawal.
func (p *Pool) RemoveLiquidityOneCoin(amount math.Int, i int) (math.Int, math.Int, error) {
	if i < 0 || i >= p.n {
		return math.ZeroInt(), math.ZeroInt(), fmt.Errorf("stableswap: coin index %d out of range", i)
	}
	if amount.IsNil() || !amount.IsPositive() || amount.GTE(p.totalSupply) {
		return math.ZeroInt(), math.ZeroInt(), fmt.Errorf("stableswap: burn amount out of range")
	}

	dy, fee, err := p.calcWithdrawOneCoin(amount, i)
	if err != nil {
		return math.ZeroInt(), math.ZeroInt(), err
	}
	admin := fee.Mul(p.adminFee).Quo(FeeDenominator)

	p.balances[i] = p.balances[i].Sub(dy.Add(admin))
	p.adminBalances[i] = p.adminBalances[i].Add(admin)
	p.totalSupply = p.totalSupply.Sub(amount)
	return dy, fee, nil
}

func (p *Pool) calcWithdrawOneCoin(amount math.Int, i int) (math.Int, math.Int, error) {
	xp := p.xp()
	d0, err := getD(p.a, xp)
	if err != nil {
		return math.ZeroInt(), math.ZeroInt(), err
	}
	d1 := d0.Sub(amount.Mul(d0).Quo(p.totalSupply))

	newY, err := getYD(p.a, i, xp, d1)
	if err != nil {
		return math.ZeroInt(), math.ZeroInt(), err
	}

	feeRate := p.imbalanceFee()
	reduced := make([]math.Int, p.n)
	for j := range xp {
		var moved math.Int
		if j == i {
			moved = xp[j].Mul(d1).Quo(d0).Sub(newY)
		} else {
			moved = xp[j].Sub(xp[j].Mul(d1).Quo(d0))
		}
		reduced[j] = xp[j].Sub(feeRate.Mul(moved).Quo(FeeDenominator))
	}

	yAfter, err := getYD(p.a, i, reduced, d1)
	if err != nil {
		return math.ZeroInt(), math.ZeroInt(), err
	}

	dy := reduced[i].Sub(yAfter).SubRaw(1).Mul(precision).Quo(p.rates[i])
	dyNoFee := xp[i].Sub(newY).Mul(precision).Quo(p.rates[i])
	return dy, dyNoFee.Sub(dy), nil
}

func (p *Pool) xpOf(balances []math.Int) []math.Int {
	out := make([]math.Int, p.n)
	for i := range out {
		out[i] = balances[i].Mul(p.rates[i]).Quo(precision)
	}
	return out
}

// spotPriceXP is the marginal price of coin i in coin j in normalized units,
// x_j*(Ann*x_i + D_P) / (x_i*(Ann*x_j + D_P)) with D_P = D^(n+1)/(n^n*prod).
func (p *Pool) spotPriceXP(i, j int, xp []math.Int, d math.Int) math.Int {
	n := int64(p.n)
	ann := p.a.MulRaw(n)
	dp := d
	for _, x := range xp {
		dp = dp.Mul(d).Quo(x.MulRaw(n))
	}
	num := ann.Mul(xp[i]).Add(dp).Mul(xp[j])
	den := ann.Mul(xp[j]).Add(dp).Mul(xp[i])
	return num.Mul(precision).Quo(den)
}

// InvariantDerivative returns dD/dx_k at the current balances in 1e18 fixed
// point, with x_k in normalized units. The metapool uses it to price LP
// tokens against single base coins.
func (p *Pool) InvariantDerivative(k int) (math.Int, error) {
	if k < 0 || k >= p.n {
		return math.ZeroInt(), fmt.Errorf("stableswap: coin index %d out of range", k)
	}
	xp := p.xp()
	d, err := getD(p.a, xp)
	if err != nil {
		return math.ZeroInt(), err
	}

	n := int64(p.n)
	ann := p.a.MulRaw(n)
	dp := d
	for _, x := range xp {
		dp = dp.Mul(d).Quo(x.MulRaw(n))
	}

	// dD/dx_k = (Ann + D_P/x_k) / (Ann - 1 + (n+1)*D_P/D)
	num := ann.Mul(precision).Add(dp.Mul(precision).Quo(xp[k]))
	den := ann.SubRaw(1).Mul(precision).Add(dp.MulRaw(n + 1).Mul(precision).Quo(d))
	return num.Mul(precision).Quo(den), nil
}

// Price returns the spot price of coin i quoted in coin j for an
// infinitesimal trade, in 18-decimal fixed point, without mutating state.
func (p *Pool) Price(i, j int, includeFee bool) (math.Int, error) {
	if i == j || i < 0 || j < 0 || i >= p.n || j >= p.n {
		return math.ZeroInt(), fmt.Errorf("stableswap: invalid coin pair (%d, %d)", i, j)
	}
	xp := p.xp()
	d, err := getD(p.a, xp)
	if err != nil {
		return math.ZeroInt(), err
	}

	out := p.spotPriceXP(i, j, xp, d).Mul(p.rates[i]).Quo(p.rates[j])
	if includeFee {
		out = out.Mul(FeeDenominator.Sub(p.fee)).Quo(FeeDenominator)
	}
	return out, nil
}

// Trade implements the pool trade contract on top of Exchange.
func (p *Pool) Trade(i, j int, amountIn math.Int) (types.TradeResult, error) {
	dy, fee, err := p.Exchange(i, j, amountIn)
	if err != nil {
		return types.TradeResult{}, err
	}
	return types.TradeResult{
		AmountOut: dy,
		Fee:       fee,
		Volume:    amountIn.Mul(p.rates[i]).Quo(precision),
	}, nil
}

// PrepareForTrades is part of the pool contract; the stable pool carries no
// time-dependent state to refresh.
func (p *Pool) PrepareForTrades(time.Time) {}

// Clone returns an independent deep copy for per-run isolation.
func (p *Pool) Clone() pool.Pool {
	c := *p
	c.rates = append([]math.Int(nil), p.rates...)
	c.balances = append([]math.Int(nil), p.balances...)
	c.adminBalances = append([]math.Int(nil), p.adminBalances...)
	return &c
}

// SetRate updates the normalization rate for one coin. The metapool refreshes
// its LP slot with the base pool's virtual price before every operation.
func (p *Pool) SetRate(i int, rate math.Int) {
	p.rates[i] = rate
}

// Accessors for state inspection and snapshotting.

func (p *Pool) NCoins() int { return p.n }

func (p *Pool) Balances() []math.Int { return append([]math.Int(nil), p.balances...) }

func (p *Pool) AdminBalances() []math.Int { return append([]math.Int(nil), p.adminBalances...) }

func (p *Pool) Rates() []math.Int { return append([]math.Int(nil), p.rates...) }

func (p *Pool) TotalSupply() math.Int { return p.totalSupply }

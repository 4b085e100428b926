package cryptoswap

import (
	"testing"
	"time"

	"cosmossdk.io/math"
	"github.com/curveforge/poolsim/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testParams mirrors an observed two-coin deployment at a 1:1 price.
func testParams() types.CryptoPoolParams {
	one := math.OneInt()
	return types.CryptoPoolParams{
		A:                  testA,
		Gamma:              testGamma,
		MidFee:             math.NewInt(26_000_000),          // 0.26%
		OutFee:             math.NewInt(45_000_000),          // 0.45%
		FeeGamma:           math.NewInt(230_000_000_000_000), // 2.3e-4
		AdminFee:           math.NewInt(5_000_000_000),       // 50% of profit
		AllowedExtraProfit: math.NewInt(2_000_000_000_000),
		AdjustmentStep:     math.NewInt(146_000_000_000_000),
		MAHalfTime:         600,
		Precisions:         [2]math.Int{one, one},
		InitialPrice:       math.NewIntWithDecimal(1, 18),
		Balances: [2]math.Int{
			math.NewIntWithDecimal(5, 24),
			math.NewIntWithDecimal(5, 24),
		},
	}
}

func newTestPool(t *testing.T, mutate func(*types.CryptoPoolParams)) *Pool {
	t.Helper()
	params := testParams()
	if mutate != nil {
		mutate(&params)
	}
	p, err := New(params)
	require.NoError(t, err)
	return p
}

func TestNewDerivesState(t *testing.T) {
	p := newTestPool(t, nil)

	want := math.NewIntWithDecimal(1, 25)
	assert.True(t, relDiffBelow(p.D(), want, 1_000_000_000), "D = %s", p.D())

	// supply derived from xcp implies a virtual price of exactly one unit
	require.True(t, p.VirtualPrice().Equal(precision))
	require.True(t, p.XcpProfit().Equal(precision))
	require.True(t, p.XcpProfitA().Equal(precision))
	require.True(t, p.PriceScale().Equal(math.NewIntWithDecimal(1, 18)))
}

func TestNewRejectsBadParams(t *testing.T) {
	_, err := New(func() types.CryptoPoolParams {
		p := testParams()
		p.A = MinA.SubRaw(1)
		return p
	}())
	require.ErrorIs(t, err, ErrParamsOutOfRange)

	_, err = New(func() types.CryptoPoolParams {
		p := testParams()
		p.Gamma = MaxGamma.AddRaw(1)
		return p
	}())
	require.ErrorIs(t, err, ErrParamsOutOfRange)

	_, err = New(func() types.CryptoPoolParams {
		p := testParams()
		p.MidFee = p.OutFee.AddRaw(1)
		return p
	}())
	require.Error(t, err)
}

func TestTradeBasic(t *testing.T) {
	p := newTestPool(t, nil)
	p.PrepareForTrades(time.Unix(1_700_000_000, 0))

	dx := math.NewIntWithDecimal(1, 21)
	res, err := p.Trade(0, 1, dx)
	require.NoError(t, err)

	require.True(t, res.AmountOut.IsPositive())
	require.True(t, res.Fee.IsPositive())
	// at a 1:1 price a small trade returns slightly less than it puts in
	assert.True(t, res.AmountOut.LT(dx))
	assert.True(t, res.AmountOut.MulRaw(100).GT(dx.MulRaw(99)), "out = %s for in = %s", res.AmountOut, dx)
	require.True(t, res.Volume.Equal(dx))

	bal := p.Balances()
	require.True(t, bal[0].Equal(math.NewIntWithDecimal(5, 24).Add(dx)))
	require.True(t, bal[1].Equal(math.NewIntWithDecimal(5, 24).Sub(res.AmountOut)))
}

func TestTradeRejectsBadInput(t *testing.T) {
	p := newTestPool(t, nil)

	_, err := p.Trade(0, 0, math.NewIntWithDecimal(1, 21))
	require.Error(t, err)

	_, err = p.Trade(0, 1, math.ZeroInt())
	require.Error(t, err)
}

func TestSpotPriceBalanced(t *testing.T) {
	p := newTestPool(t, nil)

	price, err := p.Price(0, 1, false)
	require.NoError(t, err)
	assert.True(t, relDiffBelow(price, precision, 1000), "spot price = %s", price)

	priceWithFee, err := p.Price(0, 1, true)
	require.NoError(t, err)
	assert.True(t, priceWithFee.LT(price))

	inverse, err := p.Price(1, 0, false)
	require.NoError(t, err)
	assert.True(t, relDiffBelow(inverse, precision, 1000), "inverse spot price = %s", inverse)
}

func TestVirtualPriceMonotonic(t *testing.T) {
	p := newTestPool(t, func(params *types.CryptoPoolParams) {
		params.AdminFee = math.ZeroInt()
	})

	start := int64(1_700_000_000)
	dx := math.NewIntWithDecimal(2, 21)

	for step := 0; step < 60; step++ {
		p.PrepareForTrades(time.Unix(start+int64(step)*600, 0))

		before := p.VirtualPrice()
		var err error
		if step%3 == 0 {
			_, err = p.Trade(1, 0, dx)
		} else {
			_, err = p.Trade(0, 1, dx)
		}
		require.NoError(t, err, "step %d", step)

		after := p.VirtualPrice()
		require.True(t, after.GTE(before),
			"virtual price regressed at step %d: %s -> %s", step, before, after)
	}

	// fees accrued over the run
	assert.True(t, p.XcpProfit().GT(precision))
}

func TestPriceScaleStepBound(t *testing.T) {
	p := newTestPool(t, func(params *types.CryptoPoolParams) {
		params.AdminFee = math.ZeroInt()
	})

	start := int64(1_700_000_000)
	dx := math.NewIntWithDecimal(5, 21)

	for step := 0; step < 40; step++ {
		p.PrepareForTrades(time.Unix(start+int64(step)*600, 0))

		scaleBefore := p.PriceScale()
		_, err := p.Trade(0, 1, dx)
		require.NoError(t, err, "step %d", step)

		// the committed move, measured against the committed oracle, never
		// exceeds one adjustment step (the step widens to norm/5 when the
		// oracle has drifted far)
		norm := p.PriceOracle().Mul(precision).Quo(scaleBefore)
		if norm.GT(precision) {
			norm = norm.Sub(precision)
		} else {
			norm = precision.Sub(norm)
		}
		bound := math.MaxInt(p.AdjustmentStep(), norm.QuoRaw(5)).AddRaw(2)

		move := p.PriceScale().Sub(scaleBefore).Abs().Mul(precision).Quo(scaleBefore)
		require.True(t, move.LTE(bound),
			"step %d: price scale moved %s, bound %s", step, move, bound)
	}
}

func TestAdminFeeAccrual(t *testing.T) {
	p := newTestPool(t, nil) // AdminFee is half the profit

	start := int64(1_700_000_000)
	dx := math.NewIntWithDecimal(5, 21)
	supplyBefore := p.TotalSupply()

	// sustained one-directional flow drives the oracle away from the scale;
	// when an adjustment round ends without enough profit to keep moving, the
	// admin share settles as newly minted supply
	for step := 0; step < 120; step++ {
		p.PrepareForTrades(time.Unix(start+int64(step)*600, 0))
		_, err := p.Trade(0, 1, dx)
		require.NoError(t, err, "step %d", step)
	}

	assert.True(t, p.TotalSupply().GT(supplyBefore),
		"supply must grow on claim: %s -> %s", supplyBefore, p.TotalSupply())
	assert.True(t, p.XcpProfitA().GT(precision),
		"claimed-profit watermark must advance: %s", p.XcpProfitA())
	require.True(t, p.XcpProfit().GTE(p.XcpProfitA()))
}

func TestTweakPriceRejectsShallowBalances(t *testing.T) {
	p := newTestPool(t, nil)
	p.PrepareForTrades(time.Unix(1_700_000_000, 0))

	// normalized balance 0 below one million units cannot seed the virtual
	// trade that estimates the current price
	xp := [2]math.Int{math.NewInt(500_000), math.NewIntWithDecimal(1, 18)}
	err := p.tweakPrice(p.a, p.gamma, xp, math.ZeroInt(), math.NewIntWithDecimal(1, 18))
	require.ErrorIs(t, err, ErrUnsafeBalances)
}

func TestFeeTiering(t *testing.T) {
	p := newTestPool(t, nil)

	balanced := [2]math.Int{math.NewIntWithDecimal(5, 24), math.NewIntWithDecimal(5, 24)}
	require.True(t, p.fee(balanced).Equal(p.midFee))

	imbalanced := [2]math.Int{math.NewIntWithDecimal(9, 24), math.NewIntWithDecimal(1, 24)}
	f := p.fee(imbalanced)
	assert.True(t, f.GT(p.midFee))
	assert.True(t, f.LTE(p.outFee))
}

func TestCloneIsolation(t *testing.T) {
	p := newTestPool(t, nil)
	p.PrepareForTrades(time.Unix(1_700_000_000, 0))

	clone := p.Clone().(*Pool)
	_, err := clone.Trade(0, 1, math.NewIntWithDecimal(1, 22))
	require.NoError(t, err)

	// the original is untouched by trades on the clone
	require.True(t, p.Balances()[0].Equal(math.NewIntWithDecimal(5, 24)))
	require.True(t, p.Balances()[1].Equal(math.NewIntWithDecimal(5, 24)))
	require.False(t, clone.Balances()[0].Equal(p.Balances()[0]))

	// and vice versa
	_, err = p.Trade(1, 0, math.NewIntWithDecimal(2, 22))
	require.NoError(t, err)
	require.False(t, p.Balances()[1].Equal(clone.Balances()[1]))
}

func TestTradeFailureLeavesStateIntact(t *testing.T) {
	p := newTestPool(t, nil)
	p.PrepareForTrades(time.Unix(1_700_000_000, 0))

	balBefore := p.Balances()
	dBefore := p.D()
	vpBefore := p.VirtualPrice()

	// push the pool far outside the supported balance band
	_, err := p.Trade(0, 1, math.NewIntWithDecimal(1, 30))
	require.Error(t, err)

	require.True(t, p.Balances()[0].Equal(balBefore[0]))
	require.True(t, p.Balances()[1].Equal(balBefore[1]))
	require.True(t, p.D().Equal(dBefore))
	require.True(t, p.VirtualPrice().Equal(vpBefore))
}

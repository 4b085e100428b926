package metapool

import (
	"testing"

	"cosmossdk.io/math"
	"github.com/curveforge/poolsim/internal/stableswap"
	"github.com/curveforge/poolsim/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testMetaParams() types.StablePoolParams {
	unit := math.NewIntWithDecimal(1, 18)
	bal := math.NewIntWithDecimal(1, 24)
	base := types.StablePoolParams{
		A:        math.NewInt(1500),
		Fee:      math.NewInt(4_000_000),
		AdminFee: math.NewInt(5_000_000_000),
		Rates:    []math.Int{unit, unit, unit},
		Balances: []math.Int{bal, bal, bal},
	}
	return types.StablePoolParams{
		A:        math.NewInt(1000),
		Fee:      math.NewInt(4_000_000),
		AdminFee: math.NewInt(5_000_000_000),
		Rates:    []math.Int{unit, unit}, // LP slot replaced by the base virtual price
		Balances: []math.Int{bal, bal},
		Basepool: &base,
	}
}

func newMetaPool(t *testing.T) *Pool {
	t.Helper()
	p, err := New(testMetaParams())
	require.NoError(t, err)
	return p
}

// relDiffBelow checks |a-b| / b < 1/denom.
func relDiffBelow(a, b math.Int, denom int64) bool {
	return a.Sub(b).Abs().MulRaw(denom).LT(b)
}

func TestNewValidation(t *testing.T) {
	params := testMetaParams()
	params.Basepool = nil
	_, err := New(params)
	require.ErrorIs(t, err, ErrParamsOutOfRange)

	params = testMetaParams()
	unit := math.NewIntWithDecimal(1, 18)
	params.Rates = append(params.Rates, unit)
	params.Balances = append(params.Balances, math.NewIntWithDecimal(1, 24))
	_, err = New(params)
	require.ErrorIs(t, err, ErrParamsOutOfRange)

	params = testMetaParams()
	params.Rates = nil
	_, err = New(params)
	require.ErrorIs(t, err, ErrParamsOutOfRange)

	params = testMetaParams()
	doubly := testMetaParams()
	params.Basepool.Basepool = &doubly
	_, err = New(params)
	require.ErrorIs(t, err, ErrParamsOutOfRange)
}

func TestBaseRoutingMatchesDirectPool(t *testing.T) {
	meta := newMetaPool(t)
	direct, err := stableswap.New(*testMetaParams().Basepool)
	require.NoError(t, err)

	dx := math.NewIntWithDecimal(1, 21)
	resMeta, err := meta.Trade(1, 3, dx)
	require.NoError(t, err)
	resDirect, err := direct.Trade(0, 2, dx)
	require.NoError(t, err)

	require.True(t, resMeta.AmountOut.Equal(resDirect.AmountOut))
	require.True(t, resMeta.Fee.Equal(resDirect.Fee))
	require.True(t, resMeta.Volume.Equal(resDirect.Volume))
}

func TestCrossTradeTopToBase(t *testing.T) {
	meta := newMetaPool(t)

	dx := math.NewIntWithDecimal(1, 21)
	res, err := meta.Trade(0, 2, dx)
	require.NoError(t, err)

	require.True(t, res.AmountOut.IsPositive())
	require.True(t, res.Fee.IsPositive())
	require.True(t, res.Volume.Equal(dx))
	// everything is at parity, so the route loses only fees and slippage
	assert.True(t, res.AmountOut.LT(dx))
	assert.True(t, relDiffBelow(res.AmountOut, dx, 100), "out = %s for in = %s", res.AmountOut, dx)

	// the input landed on the top pair, the output left the base pool
	require.True(t, meta.Top().Balances()[0].Equal(math.NewIntWithDecimal(1, 24).Add(dx)))
	require.True(t, meta.Base().Balances()[1].LT(math.NewIntWithDecimal(1, 24)))
}

func TestCrossTradeBaseToTop(t *testing.T) {
	meta := newMetaPool(t)

	dx := math.NewIntWithDecimal(1, 21)
	res, err := meta.Trade(3, 0, dx)
	require.NoError(t, err)

	require.True(t, res.AmountOut.IsPositive())
	require.True(t, res.Volume.Equal(dx))
	assert.True(t, relDiffBelow(res.AmountOut, dx, 100), "out = %s for in = %s", res.AmountOut, dx)

	require.True(t, meta.Base().Balances()[2].GT(math.NewIntWithDecimal(1, 24)))
	require.True(t, meta.Top().Balances()[0].LT(math.NewIntWithDecimal(1, 24)))
}

func TestTradeRejectsBadPairs(t *testing.T) {
	meta := newMetaPool(t)

	_, err := meta.Trade(0, 0, math.NewIntWithDecimal(1, 21))
	require.Error(t, err)
	_, err = meta.Trade(0, meta.NCoins(), math.NewIntWithDecimal(1, 21))
	require.Error(t, err)
}

func TestPriceComposition(t *testing.T) {
	meta := newMetaPool(t)

	// at parity every cross price sits at one
	price, err := meta.Price(0, 2, false)
	require.NoError(t, err)
	assert.True(t, relDiffBelow(price, math.NewIntWithDecimal(1, 18), 200), "price = %s", price)

	inverse, err := meta.Price(2, 0, false)
	require.NoError(t, err)
	product := price.Mul(inverse).Quo(math.NewIntWithDecimal(1, 18))
	assert.True(t, relDiffBelow(product, math.NewIntWithDecimal(1, 18), 10_000),
		"price * inverse = %s", product)

	withFee, err := meta.Price(0, 2, true)
	require.NoError(t, err)
	assert.True(t, withFee.LT(price))

	// base-to-base pricing delegates to the base pool
	basePrice, err := meta.Price(1, 2, false)
	require.NoError(t, err)
	direct, err := meta.Base().Price(0, 1, false)
	require.NoError(t, err)
	require.True(t, basePrice.Equal(direct))
}

func TestCloneIsolation(t *testing.T) {
	meta := newMetaPool(t)
	clone := meta.Clone().(*Pool)

	_, err := clone.Trade(0, 1, math.NewIntWithDecimal(1, 22))
	require.NoError(t, err)

	require.True(t, meta.Top().Balances()[0].Equal(math.NewIntWithDecimal(1, 24)))
	require.True(t, meta.Base().Balances()[0].Equal(math.NewIntWithDecimal(1, 24)))
	require.False(t, clone.Top().Balances()[0].Equal(meta.Top().Balances()[0]))
}

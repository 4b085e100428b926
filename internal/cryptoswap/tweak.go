package cryptoswap

import (
	"fmt"

	"cosmossdk.io/math"
	"github.com/curveforge/poolsim/internal/fixedpoint"
	"github.com/curveforge/poolsim/internal/logger"
)

var poolLogger = logger.GetForComponent("cryptoswap")

// tweakPrice applies the post-trade updates in one pass:
//
//   - EMA price oracle decay toward the realized trade price
//   - profit counters: D, virtualPrice, xcpProfit
//   - the step-limited price-scale adjustment, gated on accumulated profit
//
// newD of zero means "recompute from xp"; withdrawal paths that already know
// the new invariant pass it in. A call where no beneficial scale move exists
// is a valid outcome that only advances the oracle and profit bookkeeping.
// All updates are staged in locals and committed together, so a failed call
// leaves the pool untouched.
func (p *Pool) tweakPrice(a, gamma math.Int, xp [2]math.Int, lastPrice, newD math.Int) error {
	priceOracle := p.priceOracle
	lastPrices := p.lastPrices
	priceScale := p.priceScale
	lastPricesTimestamp := p.lastPricesTimestamp
	notAdjusted := p.notAdjusted

	if lastPricesTimestamp < p.blockTimestamp {
		// MA update required
		elapsed := math.NewInt(p.blockTimestamp - lastPricesTimestamp)
		alpha, err := fixedpoint.HalfPow(elapsed.Mul(precision).QuoRaw(p.maHalfTime))
		if err != nil {
			return err
		}
		priceOracle = lastPrices.Mul(precision.Sub(alpha)).Add(priceOracle.Mul(alpha)).Quo(precision)
		lastPricesTimestamp = p.blockTimestamp
	}

	dUnadjusted := newD
	if newD.IsZero() {
		var err error
		dUnadjusted, err = NewtonD(a, gamma, xp)
		if err != nil {
			return err
		}
	}

	if lastPrice.IsPositive() {
		lastPrices = lastPrice
	} else {
		// estimate the current price with a tiny virtual trade
		shifted := xp
		dxPrice := shifted[0].QuoRaw(1_000_000)
		if dxPrice.IsZero() {
			return fmt.Errorf("%w: balances too shallow to estimate a trade price", ErrUnsafeBalances)
		}
		shifted[0] = shifted[0].Add(dxPrice)
		y1, err := NewtonY(a, gamma, shifted, dUnadjusted, 1)
		if err != nil {
			return err
		}
		dyPrice := xp[1].Sub(y1)
		if !dyPrice.IsPositive() {
			return fmt.Errorf("%w: balances too shallow to estimate a trade price", ErrUnsafeBalances)
		}
		lastPrices = priceScale.Mul(dxPrice).Quo(dyPrice)
	}

	totalSupply := p.totalSupply
	oldXcpProfit := p.xcpProfit
	oldVirtualPrice := p.virtualPrice

	// profit numbers without any price adjustment first
	xcpProfit := precision
	virtualPrice := precision
	if oldVirtualPrice.IsPositive() {
		xcp := fixedpoint.GeometricMean(dUnadjusted.QuoRaw(2), dUnadjusted.Mul(precision).Quo(priceScale.MulRaw(2)), false)
		virtualPrice = precision.Mul(xcp).Quo(totalSupply)
		xcpProfit = oldXcpProfit.Mul(virtualPrice).Quo(oldVirtualPrice)

		if virtualPrice.LT(oldVirtualPrice) {
			return fmt.Errorf("%w: %s -> %s", ErrProfitRegression, oldVirtualPrice, virtualPrice)
		}
	}

	norm := priceOracle.Mul(precision).Quo(priceScale)
	if norm.GT(precision) {
		norm = norm.Sub(precision)
	} else {
		norm = precision.Sub(norm)
	}
	adjustmentStep := math.MaxInt(p.adjustmentStep, norm.QuoRaw(5))

	needsAdjustment := notAdjusted
	// virtualPrice - 1 > (xcpProfit - 1)/2 + allowedExtraProfit, rearranged
	if !needsAdjustment &&
		virtualPrice.MulRaw(2).Sub(precision).GT(xcpProfit.Add(p.allowedExtraProfit.MulRaw(2))) &&
		norm.GT(adjustmentStep) &&
		oldVirtualPrice.IsPositive() {
		needsAdjustment = true
		notAdjusted = true
	}

	if needsAdjustment && norm.GT(adjustmentStep) && oldVirtualPrice.IsPositive() {
		pNew := priceScale.Mul(norm.Sub(adjustmentStep)).Add(adjustmentStep.Mul(priceOracle)).Quo(norm)

		// balances * prices at the candidate scale
		xpAdj := [2]math.Int{xp[0], xp[1].Mul(pNew).Quo(priceScale)}

		dAdj, err := NewtonD(a, gamma, xpAdj)
		if err != nil {
			return err
		}
		xcpAdj := fixedpoint.GeometricMean(dAdj.QuoRaw(2), dAdj.Mul(precision).Quo(pNew.MulRaw(2)), false)
		newVirtualPrice := precision.Mul(xcpAdj).Quo(totalSupply)

		// proceed only with enough profit, and never let a committed move
		// take the virtual price below its pre-call value:
		// newVirtualPrice - 1 > (xcpProfit - 1) / 2
		if newVirtualPrice.GT(precision) &&
			newVirtualPrice.MulRaw(2).Sub(precision).GT(xcpProfit) &&
			newVirtualPrice.GTE(oldVirtualPrice) {
			p.priceOracle = priceOracle
			p.lastPrices = lastPrices
			p.lastPricesTimestamp = lastPricesTimestamp
			p.xcpProfit = xcpProfit
			p.notAdjusted = notAdjusted
			p.priceScale = pNew
			p.d = dAdj
			p.virtualPrice = newVirtualPrice
			return nil
		}

		// candidate move rejected: roll it back, end the adjustment round,
		// and settle admin fees on the profit captured so far
		poolLogger.Debug().
			Str("candidate_scale", pNew.String()).
			Str("virtual_price", newVirtualPrice.String()).
			Msg("price scale candidate rejected, keeping current scale")

		p.priceOracle = priceOracle
		p.lastPrices = lastPrices
		p.lastPricesTimestamp = lastPricesTimestamp
		p.xcpProfit = xcpProfit
		p.notAdjusted = false
		p.d = dUnadjusted
		p.virtualPrice = virtualPrice
		return p.claimAdminFees()
	}

	p.priceOracle = priceOracle
	p.lastPrices = lastPrices
	p.lastPricesTimestamp = lastPricesTimestamp
	p.xcpProfit = xcpProfit
	p.notAdjusted = notAdjusted
	p.d = dUnadjusted
	p.virtualPrice = virtualPrice
	return nil
}

// claimAdminFees converts the admin share of profit accumulated since the
// last claim into newly minted LP supply, then re-derives D and the virtual
// price at the current balances.
func (p *Pool) claimAdminFees() error {
	xcpProfit := p.xcpProfit
	xcpProfitA := p.xcpProfitA

	if xcpProfit.GT(xcpProfitA) {
		fees := xcpProfit.Sub(xcpProfitA).Mul(p.adminFee).Quo(FeeDenominator.MulRaw(2))
		if fees.IsPositive() {
			vprice := p.virtualPrice
			frac := vprice.Mul(precision).Quo(vprice.Sub(fees)).Sub(precision)
			p.totalSupply = p.totalSupply.Add(p.totalSupply.Mul(frac).Quo(precision))
			xcpProfit = xcpProfit.Sub(fees.MulRaw(2))
			p.xcpProfit = xcpProfit
		}
	}

	d, err := NewtonD(p.a, p.gamma, p.xp())
	if err != nil {
		return err
	}
	p.d = d
	p.virtualPrice = precision.Mul(p.getXcp(d)).Quo(p.totalSupply)

	if xcpProfit.GT(p.xcpProfitA) {
		p.xcpProfitA = xcpProfit
	}
	return nil
}

package cryptoswap

import (
	"fmt"

	"cosmossdk.io/math"
	"github.com/curveforge/poolsim/internal/fixedpoint"
)

// NewtonD finds the pool invariant D for normalized balances xp.
//
// A is already scaled by N^N * 1e4. The update is the reference's damped
// Newton step on the quartic-like invariant; when the step would overshoot
// into negative territory the iterate is halved instead. Convergence is
// diff * 1e14 < max(1e16, D), capped at 255 iterations. A non-converged run
// is an error, never a stale value.
func NewtonD(a, gamma math.Int, xpUnsorted [2]math.Int) (math.Int, error) {
	if err := validateParamsRange(a, gamma); err != nil {
		return math.ZeroInt(), err
	}

	x := xpUnsorted
	if x[0].LT(x[1]) {
		x[0], x[1] = x[1], x[0]
	}
	if x[0].LT(e9) || x[0].GT(e33) {
		return math.ZeroInt(), fmt.Errorf("%w: largest balance outside [1e9, 1e33]", ErrUnsafeBalances)
	}
	if x[1].Mul(precision).Quo(x[0]).LT(e14) {
		return math.ZeroInt(), fmt.Errorf("%w: balance ratio below 1e-4", ErrUnsafeBalances)
	}

	d := fixedpoint.GeometricMean(x[0], x[1], true).MulRaw(2)
	s := x[0].Add(x[1])

	for i := 0; i < 255; i++ {
		dPrev := d

		// K0 = (1e18 * N^2) * x0 / D * x1 / D
		k0 := precision.MulRaw(4).Mul(x[0]).Quo(d).Mul(x[1]).Quo(d)

		g1k0 := gamma.Add(precision)
		if g1k0.GT(k0) {
			g1k0 = g1k0.Sub(k0).AddRaw(1)
		} else {
			g1k0 = k0.Sub(g1k0).AddRaw(1)
		}

		// D / (A * N^N) * g1k0^2 / gamma^2
		mul1 := precision.Mul(d).Quo(gamma).Mul(g1k0).Quo(gamma).Mul(g1k0).Mul(aMultiplier).Quo(a)
		// 2 * N * K0 / g1k0
		mul2 := precision.MulRaw(4).Mul(k0).Quo(g1k0)

		negFprime := s.Add(s.Mul(mul2).Quo(precision)).
			Add(mul1.MulRaw(2).Quo(k0)).
			Sub(mul2.Mul(d).Quo(precision))

		// D -= f / fprime, split into the positive and negative parts
		dPlus := d.Mul(negFprime.Add(s)).Quo(negFprime)
		dMinus := d.Mul(d).Quo(negFprime)
		if precision.GT(k0) {
			dMinus = dMinus.Add(d.Mul(mul1.Quo(negFprime)).Quo(precision).Mul(precision.Sub(k0)).Quo(k0))
		} else {
			dMinus = dMinus.Sub(d.Mul(mul1.Quo(negFprime)).Quo(precision).Mul(k0.Sub(precision)).Quo(k0))
		}

		if dPlus.GT(dMinus) {
			d = dPlus.Sub(dMinus)
		} else {
			d = dMinus.Sub(dPlus).QuoRaw(2)
		}

		diff := d.Sub(dPrev).Abs()
		if diff.Mul(e14).LT(math.MaxInt(e16, d)) {
			// safe for the subsequent NewtonY calls
			for _, xi := range x {
				frac := xi.Mul(precision).Quo(d)
				if frac.LT(e16) || frac.GT(e20) {
					return math.ZeroInt(), fmt.Errorf("%w: x/D out of band after convergence", ErrUnsafeBalances)
				}
			}
			return d, nil
		}
	}
	return math.ZeroInt(), fmt.Errorf("%w: NewtonD", ErrNotConverged)
}

// NewtonY finds xp[i] such that the invariant holds for the given D and the
// other balance. The damping differs from NewtonD because the single-variable
// derivative conditions differently: a step that would cross the pole falls
// back to halving the iterate.
//
// Feeding NewtonY a balance incremented by a trade's input yields the quoted
// output for that trade.
func NewtonY(a, gamma math.Int, xp [2]math.Int, d math.Int, i int) (math.Int, error) {
	if err := validateParamsRange(a, gamma); err != nil {
		return math.ZeroInt(), err
	}
	if i < 0 || i > 1 {
		return math.ZeroInt(), fmt.Errorf("cryptoswap: coin index %d out of range", i)
	}
	if d.LT(e17) || d.GT(e33) {
		return math.ZeroInt(), fmt.Errorf("%w: D outside [1e17, 1e33]", ErrUnsafeBalances)
	}

	xj := xp[1-i]
	y := d.Mul(d).Quo(xj.MulRaw(4))
	k0i := precision.MulRaw(2).Mul(xj).Quo(d)

	// frac = xj * 1e18 / D = K0_i / N
	if k0i.LT(e16.MulRaw(2)) || k0i.GT(e20.MulRaw(2)) {
		return math.ZeroInt(), fmt.Errorf("%w: fixed balance out of band", ErrUnsafeBalances)
	}

	convergenceLimit := math.MaxInt(math.MaxInt(xj.Quo(e14), d.Quo(e14)), math.NewInt(100))

	for j := 0; j < 255; j++ {
		yPrev := y

		k0 := k0i.Mul(y).MulRaw(2).Quo(d)
		s := xj.Add(y)

		g1k0 := gamma.Add(precision)
		if g1k0.GT(k0) {
			g1k0 = g1k0.Sub(k0).AddRaw(1)
		} else {
			g1k0 = k0.Sub(g1k0).AddRaw(1)
		}

		// D / (A * N^N) * g1k0^2 / gamma^2
		mul1 := precision.Mul(d).Quo(gamma).Mul(g1k0).Quo(gamma).Mul(g1k0).Mul(aMultiplier).Quo(a)
		// 1 + 2 * K0 / g1k0
		mul2 := precision.Add(precision.MulRaw(2).Mul(k0).Quo(g1k0))

		yfprime := precision.Mul(y).Add(s.Mul(mul2)).Add(mul1)
		dyfprime := d.Mul(mul2)
		if yfprime.LT(dyfprime) {
			y = yPrev.QuoRaw(2)
			continue
		}
		yfprime = yfprime.Sub(dyfprime)
		fprime := yfprime.Quo(y)

		// y -= f / fprime, i.e. y = (y * fprime - f) / fprime
		yMinus := mul1.Quo(fprime)
		yPlus := yfprime.Add(precision.Mul(d)).Quo(fprime).Add(yMinus.Mul(precision).Quo(k0))
		yMinus = yMinus.Add(precision.Mul(s).Quo(fprime))

		if yPlus.LT(yMinus) {
			y = yPrev.QuoRaw(2)
		} else {
			y = yPlus.Sub(yMinus)
		}

		diff := y.Sub(yPrev).Abs()
		if diff.LT(math.MaxInt(convergenceLimit, y.Quo(e14))) {
			frac := y.Mul(precision).Quo(d)
			if frac.LT(e16) || frac.GT(e20) {
				return math.ZeroInt(), fmt.Errorf("%w: y/D out of band after convergence", ErrUnsafeBalances)
			}
			return y, nil
		}
	}
	return math.ZeroInt(), fmt.Errorf("%w: NewtonY", ErrNotConverged)
}

package stableswap

import (
	"fmt"

	"cosmossdk.io/math"
)

// getD finds the stable invariant D for normalized balances xp. The loop is
// the classic iteration on D = (Ann*S + n*D_P) * D / ((Ann-1)*D + (n+1)*D_P)
// with D_P = D^(n+1) / (n^n * prod(xp)), converging to |diff| <= 1 within the
// 255-iteration cap for any positive balances.
func getD(a math.Int, xp []math.Int) (math.Int, error) {
	n := int64(len(xp))
	s := math.ZeroInt()
	for _, x := range xp {
		if !x.IsPositive() {
			return math.ZeroInt(), fmt.Errorf("%w: zero balance", ErrUnsafeBalances)
		}
		s = s.Add(x)
	}

	d := s
	ann := a.MulRaw(n)
	for i := 0; i < 255; i++ {
		dp := d
		for _, x := range xp {
			dp = dp.Mul(d).Quo(x.MulRaw(n))
		}
		dPrev := d
		d = ann.Mul(s).Add(dp.MulRaw(n)).Mul(d).
			Quo(ann.SubRaw(1).Mul(d).Add(dp.MulRaw(n + 1)))
		if d.Sub(dPrev).Abs().LTE(math.OneInt()) {
			return d, nil
		}
	}
	return math.ZeroInt(), fmt.Errorf("%w: invariant solve", ErrNotConverged)
}

// getY solves for the post-trade balance of coin j when coin i's normalized
// balance moves to x, holding the invariant d. The quadratic-form iteration
// y = (y^2 + c) / (2y + b - D) converges to |diff| <= 1.
func getY(a math.Int, i, j int, x math.Int, xp []math.Int, d math.Int) (math.Int, error) {
	n := int64(len(xp))
	ann := a.MulRaw(n)

	c := d
	s := math.ZeroInt()
	for k := range xp {
		var xk math.Int
		switch {
		case k == i:
			xk = x
		case k != j:
			xk = xp[k]
		default:
			continue
		}
		s = s.Add(xk)
		c = c.Mul(d).Quo(xk.MulRaw(n))
	}
	c = c.Mul(d).Quo(ann.MulRaw(n))
	b := s.Add(d.Quo(ann))

	y := d
	for iter := 0; iter < 255; iter++ {
		yPrev := y
		y = y.Mul(y).Add(c).Quo(y.MulRaw(2).Add(b).Sub(d))
		if y.Sub(yPrev).Abs().LTE(math.OneInt()) {
			return y, nil
		}
	}
	return math.ZeroInt(), fmt.Errorf("%w: output balance solve", ErrNotConverged)
}

// getYD solves for the balance of coin i that satisfies a reduced invariant d
// with all other balances fixed. Used by the one-coin withdrawal path.
func getYD(a math.Int, i int, xp []math.Int, d math.Int) (math.Int, error) {
	n := int64(len(xp))
	ann := a.MulRaw(n)

	c := d
	s := math.ZeroInt()
	for k := range xp {
		if k == i {
			continue
		}
		s = s.Add(xp[k])
		c = c.Mul(d).Quo(xp[k].MulRaw(n))
	}
	c = c.Mul(d).Quo(ann.MulRaw(n))
	b := s.Add(d.Quo(ann))

	y := d
	for iter := 0; iter < 255; iter++ {
		yPrev := y
		y = y.Mul(y).Add(c).Quo(y.MulRaw(2).Add(b).Sub(d))
		if y.Sub(yPrev).Abs().LTE(math.OneInt()) {
			return y, nil
		}
	}
	return math.ZeroInt(), fmt.Errorf("%w: withdrawal balance solve", ErrNotConverged)
}

/*

Integer primitives shared by the pool invariant solvers. Everything operates
on 18-decimal fixed-point values carried in math.Int.

The routines reproduce the reference implementation's arithmetic exactly,
including truncation points and iteration caps. Deviating from those is a
correctness bug even where a shortcut would be mathematically equivalent.

*/

package fixedpoint

import (
	"errors"
	"math/big"

	"cosmossdk.io/math"
)

// Precision is one unit of 18-decimal fixed point.
var Precision = math.NewIntWithDecimal(1, 18)

// ExpPrecision terminates the halfpow series expansion.
var ExpPrecision = math.NewIntWithDecimal(1, 10)

var (
	two      = math.NewInt(2)
	halfUnit = math.NewIntWithDecimal(5, 17)
)

// ErrNotConverged is returned when an iterative routine exhausts its
// iteration cap without meeting its tolerance.
var ErrNotConverged = errors.New("did not converge")

// ErrNegativePower is returned by HalfPow for exponents below zero.
var ErrNegativePower = errors.New("negative power")

// SqrtInt returns the integer square root of x, rounded down.
//
// Newton's method seeded from a power-of-two upper bound: the iterate
// decreases monotonically onto the floor root, so the 256-iteration cap is
// never reached for 256-bit inputs.
func SqrtInt(x math.Int) math.Int {
	if x.IsZero() {
		return x
	}

	bits := x.BigInt().BitLen()
	z := math.NewIntFromBigInt(new(big.Int).Lsh(big.NewInt(1), uint((bits+1)/2)))

	for i := 0; i < 256; i++ {
		y := z.Add(x.Quo(z)).Quo(two)
		if y.GTE(z) {
			return z
		}
		z = y
	}
	return z
}

// HalfPow computes 1e18 * 0.5**(power/1e18).
//
// The integer part is an exact right shift; the fractional part is the
// binomial series with terms built bit-by-bit, cut off once a term falls
// below ExpPrecision. power must be non-negative; power == 0 yields one
// unit, and integer parts above 59 underflow to zero.
func HalfPow(power math.Int) (math.Int, error) {
	if power.IsNegative() {
		return math.ZeroInt(), ErrNegativePower
	}

	intPow := power.Quo(Precision)
	otherPow := power.Sub(intPow.Mul(Precision))

	if intPow.GT(math.NewInt(59)) {
		return math.ZeroInt(), nil
	}
	result := Precision.QuoRaw(int64(1) << uint(intPow.Int64()))
	if otherPow.IsZero() {
		return result, nil
	}

	term := Precision
	x := halfUnit
	s := Precision
	neg := false

	for i := int64(1); i < 256; i++ {
		k := math.NewInt(i).Mul(Precision)
		c := k.Sub(Precision)
		if otherPow.GT(c) {
			c = otherPow.Sub(c)
			neg = !neg
		} else {
			c = c.Sub(otherPow)
		}
		term = term.Mul(c.Mul(x).Quo(Precision)).Quo(k)
		if neg {
			s = s.Sub(term)
		} else {
			s = s.Add(term)
		}
		if term.LT(ExpPrecision) {
			return result.Mul(s).Quo(Precision), nil
		}
	}
	return math.ZeroInt(), ErrNotConverged
}

// GeometricMean returns sqrt(x0 * x1).
//
// When assumeSorted is false the larger value is placed first before the
// product is formed. The reference keeps this ordering, so it is preserved
// here even though it cannot change the result of a commutative product.
func GeometricMean(x0, x1 math.Int, assumeSorted bool) math.Int {
	if !assumeSorted && x0.LT(x1) {
		x0, x1 = x1, x0
	}
	return SqrtInt(x0.Mul(x1))
}

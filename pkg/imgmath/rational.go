// Package imgmath implements the spec's pure size/unit/DPI arithmetic: exact
// rational approximation, unit conversion, aspect-preserving scale-from-DPI,
// and crop geometry. None of it touches disk or spawns a process.
package imgmath

import (
	"math"
	"math/big"
)

// MaxDenominator bounds the denominator of every rational this package
// produces, matching the spec's "approximate four significant digits"
// requirement for ImageSize.size and DPI.
const MaxDenominator = 10000

// Approx returns the last continued-fraction convergent of x whose
// denominator is at most MaxDenominator, computed in exact big.Int
// arithmetic (no binary floats are involved in the search itself).
// Semiconvergents are not considered, so a closer fraction within the same
// denominator bound can exist. This is how ImageSize.size and DPI values are
// canonicalized before being used as part of a cache key, so that two
// logically equal sizes always serialize identically.
func Approx(x *big.Rat) *big.Rat {
	return approxDenom(x, MaxDenominator)
}

func approxDenom(x *big.Rat, maxDen int64) *big.Rat {
	if x.IsInt() {
		return new(big.Rat).Set(x)
	}
	neg := x.Sign() < 0
	num := new(big.Int).Abs(x.Num())
	den := new(big.Int).Abs(x.Denom())

	maxD := big.NewInt(maxDen)
	h0, h1 := big.NewInt(0), big.NewInt(1)
	k0, k1 := big.NewInt(1), big.NewInt(0)
	a := new(big.Int)
	r := new(big.Int)
	n, d := new(big.Int).Set(num), new(big.Int).Set(den)

	for d.Sign() != 0 {
		a.QuoRem(n, d, r)

		hNext := new(big.Int).Mul(a, h1)
		hNext.Add(hNext, h0)
		kNext := new(big.Int).Mul(a, k1)
		kNext.Add(kNext, k0)
		if kNext.Cmp(maxD) > 0 {
			break
		}
		h0, h1 = h1, hNext
		k0, k1 = k1, kNext
		n, d = d, new(big.Int).Set(r)
	}
	if k1.Sign() == 0 {
		k1 = big.NewInt(1)
	}
	out := new(big.Rat).SetFrac(h1, k1)
	if neg {
		out.Neg(out)
	}
	return out
}

// ApproxFloat64 approximates a float64 (the result of an operation with no
// exact rational form, such as a square root) as a bounded-denominator
// rational.
func ApproxFloat64(f float64) *big.Rat {
	r := new(big.Rat)
	r.SetFloat64(f)
	return Approx(r)
}

// IsOne reports whether r is exactly the rational 1/1.
func IsOne(r *big.Rat) bool {
	return r.Cmp(big.NewRat(1, 1)) == 0
}

// Sqrt returns an approximate rational square root of a non-negative x,
// bridging through float64 since a rational's square root is not generally
// rational. The result is re-approximated with Approx so a derivation's
// computed scale factor never carries float noise into a persisted key.
func Sqrt(x *big.Rat) *big.Rat {
	f, _ := x.Float64()
	return ApproxFloat64(math.Sqrt(f))
}

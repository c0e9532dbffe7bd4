package imgmath

import "math/big"

// Dim names which measurement of a target image an ImageSize constrains.
type Dim int

const (
	DimHeight Dim = iota
	DimWidth
	DimArea
)

func (d Dim) String() string {
	switch d {
	case DimHeight:
		return "height"
	case DimWidth:
		return "width"
	case DimArea:
		return "area"
	default:
		return "dim(?)"
	}
}

// Unit is a linear unit of measurement for an ImageSize.
type Unit int

const (
	UnitInches Unit = iota
	UnitCm
	UnitPoints
)

func (u Unit) String() string {
	switch u {
	case UnitInches:
		return "in"
	case UnitCm:
		return "cm"
	case UnitPoints:
		return "pt"
	default:
		return "unit(?)"
	}
}

// cmPerInch and ptPerInch are exact rationals: 1 in = 2.54 cm = 72.27 pt.
var (
	cmPerInch = big.NewRat(254, 100)
	ptPerInch = big.NewRat(7227, 100)
)

// ToInches converts size (expressed in units) to inches. For DimArea, size
// is a squared unit and the conversion factor is squared accordingly.
func ToInches(size *big.Rat, units Unit, dim Dim) *big.Rat {
	var perInch *big.Rat
	switch units {
	case UnitCm:
		perInch = cmPerInch
	case UnitPoints:
		perInch = ptPerInch
	default:
		return new(big.Rat).Set(size)
	}
	factor := new(big.Rat).Inv(perInch)
	if dim == DimArea {
		factor = new(big.Rat).Mul(factor, factor)
	}
	return new(big.Rat).Mul(size, factor)
}

var (
	minLinearInches = big.NewRat(1, 4)   // 0.25
	maxLinearInches = big.NewRat(25, 1)  // 25
	minAreaInches   = big.NewRat(1, 16)  // 0.0625
	maxAreaInches   = big.NewRat(625, 1) // 625
)

func clamp(x, lo, hi *big.Rat) *big.Rat {
	if x.Cmp(lo) < 0 {
		return new(big.Rat).Set(lo)
	}
	if x.Cmp(hi) > 0 {
		return new(big.Rat).Set(hi)
	}
	return new(big.Rat).Set(x)
}

// SaneSize applies the spec's sanity policy to an already-in-inches value:
// Area is clamped to [0.0625, 625] square inches, everything else to
// [0.25, 25] inches.
func SaneSize(dim Dim, inches *big.Rat) *big.Rat {
	if dim == DimArea {
		return clamp(inches, minAreaInches, maxAreaInches)
	}
	return clamp(inches, minLinearInches, maxLinearInches)
}

// ImageSize is a target display size at a given DPI: see spec §3.
type ImageSize struct {
	Dim   Dim
	Size  *big.Rat // Approx()-ed on construction
	Units Unit
}

// NewImageSize builds an ImageSize, canonicalizing size to the spec's
// bounded-denominator rational form.
func NewImageSize(dim Dim, size *big.Rat, units Unit) ImageSize {
	return ImageSize{Dim: dim, Size: Approx(size), Units: units}
}

// ScaleFromDPI computes the aspect-preserving scale factor needed to render
// sz at dpi, given the inner image's pixel dimensions. The result is
// Approx()-ed so callers can cheaply test IsOne to detect a no-op
// derivation (spec §4.E, §8 property 4 and scenario C).
func ScaleFromDPI(dpi *big.Rat, sz ImageSize, innerWidth, innerHeight int) *big.Rat {
	inches := SaneSize(sz.Dim, ToInches(sz.Size, sz.Units, sz.Dim))

	switch sz.Dim {
	case DimWidth:
		targetPixels := new(big.Rat).Mul(inches, dpi)
		return Approx(new(big.Rat).Quo(targetPixels, big.NewRat(int64(innerWidth), 1)))
	case DimHeight:
		targetPixels := new(big.Rat).Mul(inches, dpi)
		return Approx(new(big.Rat).Quo(targetPixels, big.NewRat(int64(innerHeight), 1)))
	default: // DimArea
		dpiSquared := new(big.Rat).Mul(dpi, dpi)
		targetArea := new(big.Rat).Mul(inches, dpiSquared)
		innerArea := big.NewRat(int64(innerWidth)*int64(innerHeight), 1)
		ratio := new(big.Rat).Quo(targetArea, innerArea)
		return Sqrt(ratio)
	}
}

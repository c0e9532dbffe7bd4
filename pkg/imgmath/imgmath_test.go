package imgmath

import (
	"math/big"
	"testing"
)

func TestApproxBoundsDenominator(t *testing.T) {
	x := big.NewRat(1, 3)
	x.Mul(x, big.NewRat(1, 7919)) // a tiny rational with a large denominator
	got := Approx(x)
	if got.Denom().Int64() > MaxDenominator {
		t.Errorf("Approx denominator = %v, want <= %d", got.Denom(), MaxDenominator)
	}
}

func TestApproxIdempotentOnSimpleRationals(t *testing.T) {
	x := big.NewRat(3072, 100) // 30.72
	got := Approx(x)
	if got.Cmp(x) != 0 {
		t.Errorf("Approx(30.72) = %v, want 30.72 exactly (denominator 100 fits)", got)
	}
}

func TestToInches(t *testing.T) {
	in := ToInches(big.NewRat(254, 100), UnitCm, DimHeight)
	if in.Cmp(big.NewRat(1, 1)) != 0 {
		t.Errorf("2.54cm = %v inches, want 1", in)
	}
	pt := ToInches(big.NewRat(7227, 100), UnitPoints, DimWidth)
	if pt.Cmp(big.NewRat(1, 1)) != 0 {
		t.Errorf("72.27pt = %v inches, want 1", pt)
	}
}

func TestSaneSizeClampsArea(t *testing.T) {
	huge := big.NewRat(10000, 1)
	got := SaneSize(DimArea, huge)
	if got.Cmp(maxAreaInches) != 0 {
		t.Errorf("SaneSize(Area, 10000) = %v, want clamp to %v", got, maxAreaInches)
	}
	tiny := big.NewRat(1, 1000)
	got = SaneSize(DimArea, tiny)
	if got.Cmp(minAreaInches) != 0 {
		t.Errorf("SaneSize(Area, 0.001) = %v, want clamp to %v", got, minAreaInches)
	}
}

func TestSaneSizeClampsLinear(t *testing.T) {
	got := SaneSize(DimHeight, big.NewRat(1000, 1))
	if got.Cmp(maxLinearInches) != 0 {
		t.Errorf("SaneSize(Height, 1000) = %v, want %v", got, maxLinearInches)
	}
}

// TestScaleFromDPIApprox1 is scenario C from spec §8: a 640x480 image at
// 100 DPI with an ImageSize of Area/30.72in² scales to ~1.
func TestScaleFromDPIApprox1(t *testing.T) {
	sz := NewImageSize(DimArea, big.NewRat(3072, 100), UnitInches)
	scale := ScaleFromDPI(big.NewRat(100, 1), sz, 640, 480)
	if !IsOne(scale) {
		t.Errorf("ScaleFromDPI = %v, want exactly 1", scale)
	}
}

func TestScaleFromDPIWidth(t *testing.T) {
	sz := NewImageSize(DimWidth, big.NewRat(4, 1), UnitInches)
	scale := ScaleFromDPI(big.NewRat(100, 1), sz, 800, 600)
	want := big.NewRat(1, 2) // target 400px from an 800px wide image
	if scale.Cmp(want) != 0 {
		t.Errorf("ScaleFromDPI(width) = %v, want %v", scale, want)
	}
}

func TestCutBounds(t *testing.T) {
	crop := ImageCrop{Top: 10, Bottom: 20, Left: 5, Right: 15}
	left, right, top, bottom, err := CutBounds(crop, 200, 100)
	if err != nil {
		t.Fatal(err)
	}
	if left != 5 || right != 200-15-1 || top != 10 || bottom != 100-20-1 {
		t.Errorf("CutBounds = (%d,%d,%d,%d)", left, right, top, bottom)
	}
}

func TestCutBoundsRejectsOverlappingMargins(t *testing.T) {
	crop := ImageCrop{Left: 90, Right: 90}
	if _, _, _, _, err := CutBounds(crop, 100, 100); err == nil {
		t.Error("expected error for margins leaving no pixels")
	}
}

func TestImageCropIdentity(t *testing.T) {
	if !(ImageCrop{}).IsIdentity() {
		t.Error("zero-value ImageCrop should be identity")
	}
	if (ImageCrop{Rotation: 90}).IsIdentity() {
		t.Error("rotated crop should not be identity")
	}
}

func TestImageCropValidate(t *testing.T) {
	if err := (ImageCrop{Rotation: 45}).Validate(); err == nil {
		t.Error("expected error for invalid rotation")
	}
	if err := (ImageCrop{Left: -1}).Validate(); err == nil {
		t.Error("expected error for negative margin")
	}
}

func TestRotatedDims(t *testing.T) {
	w, h := RotatedDims(90, 100, 50)
	if w != 50 || h != 100 {
		t.Errorf("RotatedDims(90, 100, 50) = (%d,%d), want (50,100)", w, h)
	}
	w, h = RotatedDims(180, 100, 50)
	if w != 100 || h != 50 {
		t.Errorf("RotatedDims(180, 100, 50) = (%d,%d), want (100,50)", w, h)
	}
}

package imagekey

import (
	"math/big"

	"github.com/blobcache/imgcache/pkg/imgmath"
)

// Scaled rescales the inner key's result to a target display size at a
// given DPI (spec §3, §4.E). DPI is a rational, not a float, so two
// logically equal derivations always serialize identically — see
// SPEC_FULL.md's note on ImageKey schema version 2.
type Scaled struct {
	Size imgmath.ImageSize
	DPI  *big.Rat
	Inner Key
}

func (Scaled) isKey() {}

func (s Scaled) Equal(other Key) bool {
	s2, ok := other.(Scaled)
	if !ok {
		return false
	}
	return s.Size.Dim == s2.Size.Dim &&
		s.Size.Units == s2.Size.Units &&
		s.Size.Size.Cmp(s2.Size.Size) == 0 &&
		s.DPI.Cmp(s2.DPI) == 0 &&
		s.Inner.Equal(s2.Inner)
}

// Cropped applies a crop-and-rotate to the inner key's result (spec §3,
// §4.E).
type Cropped struct {
	Crop  imgmath.ImageCrop
	Inner Key
}

func (Cropped) isKey() {}

func (c Cropped) Equal(other Key) bool {
	c2, ok := other.(Cropped)
	return ok && c.Crop == c2.Crop && c.Inner.Equal(c2.Inner)
}

package imgmath

import "github.com/blobcache/imgcache/pkg/ixerr"

// ImageCrop is a crop-and-rotate transformation: see spec §3. All four
// margins are in pixels, measured in from the respective edge.
type ImageCrop struct {
	Top, Bottom, Left, Right int
	Rotation                 int // one of 0, 90, 180, 270
}

// Validate checks the invariants of an ImageCrop in isolation (it cannot
// check the margins against an image's actual dimensions; that is done by
// CutBounds).
func (c ImageCrop) Validate() error {
	if c.Top < 0 || c.Bottom < 0 || c.Left < 0 || c.Right < 0 {
		return ixerr.Caller("crop margins must be non-negative, got %+v", c)
	}
	switch c.Rotation {
	case 0, 90, 180, 270:
	default:
		return ixerr.Caller("crop rotation must be one of 0, 90, 180, 270, got %d", c.Rotation)
	}
	return nil
}

// IsIdentity reports whether c has no effect on an image: no margins and no
// rotation (spec §4.E, §7, §8 property 5, scenario D).
func (c ImageCrop) IsIdentity() bool {
	return c.Top == 0 && c.Bottom == 0 && c.Left == 0 && c.Right == 0 && c.Rotation == 0
}

// HasCut reports whether any margin requires a pnmcut stage.
func (c ImageCrop) HasCut() bool {
	return c.Top != 0 || c.Bottom != 0 || c.Left != 0 || c.Right != 0
}

// HasRotate reports whether a non-zero rotation requires a jpegtran stage.
func (c ImageCrop) HasRotate() bool {
	return c.Rotation != 0
}

// CutBounds converts margins-in from the edges into the left/right/top/bottom
// arguments pnmcut expects, given the source image's pixel dimensions:
//
//	pnmcut -left L -right (W-R-1) -top T -bottom (H-B-1)
func CutBounds(c ImageCrop, width, height int) (left, right, top, bottom int, err error) {
	right = width - c.Right - 1
	bottom = height - c.Bottom - 1
	if c.Left > right || c.Top > bottom || right < 0 || bottom < 0 {
		return 0, 0, 0, 0, ixerr.Caller(
			"crop margins %+v leave no pixels in a %dx%d image", c, width, height)
	}
	return c.Left, right, c.Top, bottom, nil
}

// RotatedDims returns the pixel dimensions a width x height image would have
// after rotating by the crop's Rotation.
func RotatedDims(rotation, width, height int) (outWidth, outHeight int) {
	if rotation == 90 || rotation == 270 {
		return height, width
	}
	return width, height
}

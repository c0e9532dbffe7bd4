// Package exifnorm provides the default EXIF-orientation normalizer
// injected into the derivation engine's Upright step. The spec treats the
// normalization algorithm itself as an external collaborator ("a pure
// function from input bytes to Ok(output_bytes_or_none) | Err(kind) is
// assumed available"); this package supplies that function by reading the
// Orientation tag with github.com/rwcarlsen/goexif (as
// pkg/images.Decode's EXIF handling does) and, when the tag says anything
// but "already upright", performing the corresponding lossless transform
// with jpegtran rather than decoding pixels in-process.
package exifnorm

import (
	"bytes"

	"github.com/rwcarlsen/goexif/exif"

	"github.com/blobcache/imgcache/pkg/ixerr"
	"github.com/blobcache/imgcache/pkg/pipeline"
)

// Normalizer is the interface the derivation engine's Upright step depends
// on. Normalize returns (nil, false, nil) when the image is already
// upright or carries no usable orientation tag.
type Normalizer interface {
	Normalize(input []byte) (output []byte, changed bool, err error)
}

// Default is the goexif/jpegtran-backed Normalizer used when no other
// Normalizer is configured.
var Default Normalizer = jpegtranNormalizer{}

type jpegtranNormalizer struct{}

// jpegtranArgs maps an EXIF Orientation tag value to the jpegtran flags
// that undo it, per the standard EXIF orientation table. Orientation 1
// needs no transform.
var jpegtranArgs = map[int][]string{
	2: {"-flip", "horizontal"},
	3: {"-rotate", "180"},
	4: {"-flip", "vertical"},
	5: {"-transpose"},
	6: {"-rotate", "90"},
	7: {"-transverse"},
	8: {"-rotate", "270"},
}

func (jpegtranNormalizer) Normalize(input []byte) ([]byte, bool, error) {
	x, err := exif.Decode(bytes.NewReader(input))
	if err != nil {
		// No valid EXIF: nothing to normalize, matching the teacher's
		// "No valid EXIF; will not rotate or flip."
		return nil, false, nil
	}
	tag, err := x.Get(exif.Orientation)
	if err != nil {
		return nil, false, nil
	}
	orient, err := tag.Int(0)
	if err != nil {
		return nil, false, nil
	}
	if orient == 1 {
		return nil, false, nil
	}
	args, ok := jpegtranArgs[orient]
	if !ok {
		return nil, false, nil
	}

	args = append(args, "-copy", "none")
	out, err := pipeline.Run(input, pipeline.Command{Prog: "jpegtran", Args: args})
	if err != nil {
		return nil, false, ixerr.InFunction("exifnorm.Normalize", err)
	}
	return out, true, nil
}

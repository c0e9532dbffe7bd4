// Package imagekey defines the cache's data model: the closed set of image
// types, the decoded-metadata record (ImageFile), and the recursive
// derivation plan (ImageKey) that the persistent map is keyed by (spec §3).
// The discriminator-field JSON encoding used for ImageKey's sum type is
// grounded on pkg/schema's "camliType" idiom from the teacher, generalized
// to a small closed hierarchy rather than schema's open blob-ref graph.
package imagekey

import (
	"github.com/blobcache/imgcache/pkg/filecache"
	"github.com/blobcache/imgcache/pkg/ixerr"
)

// ImageType is the closed set of image encodings this cache understands.
type ImageType int

const (
	PPM ImageType = iota
	JPEG
	GIF
	PNG
)

func (t ImageType) String() string {
	switch t {
	case PPM:
		return "ppm"
	case JPEG:
		return "jpeg"
	case GIF:
		return "gif"
	case PNG:
		return "png"
	default:
		return "imagetype(?)"
	}
}

// ExtensionOf returns the byte-cache extension symlink suffix for t.
func ExtensionOf(t ImageType) string {
	switch t {
	case PPM:
		return ".ppm"
	case JPEG:
		return ".jpg"
	case GIF:
		return ".gif"
	case PNG:
		return ".png"
	default:
		return ""
	}
}

// ImageFile is a concrete, decoded image: a checksum-identified blob plus
// the metadata the probe read from it (spec §3).
type ImageFile struct {
	File      filecache.File
	ImageType ImageType
	Width     int
	Height    int
	MaxVal    int
}

// Validate checks ImageFile's invariants in isolation.
func (f ImageFile) Validate() error {
	if f.Width <= 0 || f.Height <= 0 {
		return ixerr.Caller("ImageFile must have positive width/height, got %dx%d", f.Width, f.Height)
	}
	if f.MaxVal < 1 {
		return ixerr.Caller("ImageFile must have max_val >= 1, got %d", f.MaxVal)
	}
	if f.File.Checksum == "" {
		return ixerr.Caller("ImageFile must have a non-empty checksum")
	}
	return nil
}

// Equal compares two ImageFiles by the fields the spec treats as
// semantically significant: the blob's checksum (its sole on-disk
// identity) and the decoded metadata. File.Source and File.Messages are
// provenance/annotation only (spec §3) and are deliberately excluded.
func (f ImageFile) Equal(other ImageFile) bool {
	return f.File.Checksum == other.File.Checksum &&
		f.ImageType == other.ImageType &&
		f.Width == other.Width &&
		f.Height == other.Height &&
		f.MaxVal == other.MaxVal
}

// Key is the recursive ImageKey sum type (spec §3): a structured,
// serializable description of a derivation plan. The four concrete variants
// below are the only implementations.
type Key interface {
	isKey()
	// Equal reports structural equality with another Key, recursing into
	// inner keys. Equality must be stable across process restarts, since
	// Key is the persistent map's lookup key (via Marshal).
	Equal(other Key) bool
}

// Original names a concrete, already-ingested upload: the base case of
// every derivation.
type Original struct {
	Image ImageFile
}

func (Original) isKey() {}

func (o Original) Equal(other Key) bool {
	o2, ok := other.(Original)
	return ok && o.Image.Equal(o2.Image)
}

// Upright applies EXIF-orientation normalization to the inner key's result.
type Upright struct {
	Inner Key
}

func (Upright) isKey() {}

func (u Upright) Equal(other Key) bool {
	u2, ok := other.(Upright)
	return ok && u.Inner.Equal(u2.Inner)
}

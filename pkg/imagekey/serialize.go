package imagekey

import (
	"encoding/json"
	"math/big"

	"github.com/blobcache/imgcache/pkg/filecache"
	"github.com/blobcache/imgcache/pkg/ixerr"
	"github.com/blobcache/imgcache/pkg/imgmath"
)

// schemaVersion is carried with every persisted ImageKey (spec §6). Version
// 2 changed Scaled's DPI from a binary float to a rational approximated by
// imgmath.Approx; Unmarshal accepts and migrates version 1.
const schemaVersion = 2

type envelope struct {
	Type string          `json:"type"`
	V    int             `json:"v"`
	Body json.RawMessage `json:"body"`
}

type imageFileJSON struct {
	File      filecache.File `json:"file"`
	ImageType ImageType      `json:"image_type"`
	Width     int            `json:"width"`
	Height    int            `json:"height"`
	MaxVal    int            `json:"max_val"`
}

func toImageFileJSON(f ImageFile) imageFileJSON {
	return imageFileJSON{File: f.File, ImageType: f.ImageType, Width: f.Width, Height: f.Height, MaxVal: f.MaxVal}
}

func (j imageFileJSON) toImageFile() ImageFile {
	return ImageFile{File: j.File, ImageType: j.ImageType, Width: j.Width, Height: j.Height, MaxVal: j.MaxVal}
}

type originalJSON struct {
	Image imageFileJSON `json:"image"`
}

type uprightJSON struct {
	Inner envelope `json:"inner"`
}

// scaledJSON serializes DPI as a RatString ("num/den" or an integer
// literal), never as a JSON number, so no binary float ever enters a
// persisted key (schema version 2; see imgmath's doc comments).
type scaledJSON struct {
	Dim   imgmath.Dim  `json:"dim"`
	Size  string       `json:"size"` // big.Rat.RatString
	Units imgmath.Unit `json:"units"`
	DPI   string       `json:"dpi"` // big.Rat.RatString, or a JSON number under schema v1
	Inner envelope     `json:"inner"`
}

type croppedJSON struct {
	Top      int      `json:"top"`
	Bottom   int      `json:"bottom"`
	Left     int      `json:"left"`
	Right    int      `json:"right"`
	Rotation int      `json:"rotation"`
	Inner    envelope `json:"inner"`
}

// Marshal serializes a Key into its canonical, versioned form.
func Marshal(k Key) ([]byte, error) {
	env, err := marshalEnvelope(k)
	if err != nil {
		return nil, ixerr.InFunction("imagekey.Marshal", err)
	}
	return json.Marshal(env)
}

func marshalEnvelope(k Key) (envelope, error) {
	switch v := k.(type) {
	case Original:
		body, err := json.Marshal(originalJSON{Image: toImageFileJSON(v.Image)})
		if err != nil {
			return envelope{}, err
		}
		return envelope{Type: "original", V: schemaVersion, Body: body}, nil

	case Upright:
		innerEnv, err := marshalEnvelope(v.Inner)
		if err != nil {
			return envelope{}, err
		}
		body, err := json.Marshal(uprightJSON{Inner: innerEnv})
		if err != nil {
			return envelope{}, err
		}
		return envelope{Type: "upright", V: schemaVersion, Body: body}, nil

	case Scaled:
		innerEnv, err := marshalEnvelope(v.Inner)
		if err != nil {
			return envelope{}, err
		}
		body, err := json.Marshal(scaledJSON{
			Dim: v.Size.Dim, Size: v.Size.Size.RatString(), Units: v.Size.Units,
			DPI: v.DPI.RatString(), Inner: innerEnv,
		})
		if err != nil {
			return envelope{}, err
		}
		return envelope{Type: "scaled", V: schemaVersion, Body: body}, nil

	case Cropped:
		innerEnv, err := marshalEnvelope(v.Inner)
		if err != nil {
			return envelope{}, err
		}
		body, err := json.Marshal(croppedJSON{
			Top: v.Crop.Top, Bottom: v.Crop.Bottom, Left: v.Crop.Left, Right: v.Crop.Right,
			Rotation: v.Crop.Rotation, Inner: innerEnv,
		})
		if err != nil {
			return envelope{}, err
		}
		return envelope{Type: "cropped", V: schemaVersion, Body: body}, nil

	default:
		return envelope{}, ixerr.Caller("unknown ImageKey variant %T", k)
	}
}

// Unmarshal parses a Key from its canonical form, migrating schema version
// 1 payloads (Scaled.DPI as a JSON float) on the fly.
func Unmarshal(data []byte) (Key, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, ixerr.InFunction("imagekey.Unmarshal", ixerr.Caller("malformed envelope: %v", err))
	}
	k, err := unmarshalEnvelope(env)
	if err != nil {
		return nil, ixerr.InFunction("imagekey.Unmarshal", err)
	}
	return k, nil
}

func unmarshalEnvelope(env envelope) (Key, error) {
	switch env.Type {
	case "original":
		var body originalJSON
		if err := json.Unmarshal(env.Body, &body); err != nil {
			return nil, ixerr.Caller("malformed original body: %v", err)
		}
		return Original{Image: body.Image.toImageFile()}, nil

	case "upright":
		var body uprightJSON
		if err := json.Unmarshal(env.Body, &body); err != nil {
			return nil, ixerr.Caller("malformed upright body: %v", err)
		}
		inner, err := unmarshalEnvelope(body.Inner)
		if err != nil {
			return nil, err
		}
		return Upright{Inner: inner}, nil

	case "scaled":
		return unmarshalScaled(env)

	case "cropped":
		var body croppedJSON
		if err := json.Unmarshal(env.Body, &body); err != nil {
			return nil, ixerr.Caller("malformed cropped body: %v", err)
		}
		inner, err := unmarshalEnvelope(body.Inner)
		if err != nil {
			return nil, err
		}
		return Cropped{
			Crop: imgmath.ImageCrop{
				Top: body.Top, Bottom: body.Bottom, Left: body.Left, Right: body.Right,
				Rotation: body.Rotation,
			},
			Inner: inner,
		}, nil

	default:
		return nil, ixerr.Caller("unknown ImageKey type %q", env.Type)
	}
}

// scaledJSONv1 mirrors the pre-migration layout where dpi was a bare JSON
// number (a binary float) instead of a RatString.
type scaledJSONv1 struct {
	Dim   imgmath.Dim  `json:"dim"`
	Size  string       `json:"size"`
	Units imgmath.Unit `json:"units"`
	DPI   float64      `json:"dpi"`
	Inner envelope     `json:"inner"`
}

func unmarshalScaled(env envelope) (Key, error) {
	if env.V < 2 {
		var body scaledJSONv1
		if err := json.Unmarshal(env.Body, &body); err != nil {
			return nil, ixerr.Caller("malformed v1 scaled body: %v", err)
		}
		size, ok := new(big.Rat).SetString(body.Size)
		if !ok {
			return nil, ixerr.Caller("malformed v1 scaled size %q", body.Size)
		}
		inner, err := unmarshalEnvelope(body.Inner)
		if err != nil {
			return nil, err
		}
		return Scaled{
			Size:  imgmath.NewImageSize(body.Dim, size, body.Units),
			DPI:   imgmath.ApproxFloat64(body.DPI),
			Inner: inner,
		}, nil
	}

	var body scaledJSON
	if err := json.Unmarshal(env.Body, &body); err != nil {
		return nil, ixerr.Caller("malformed scaled body: %v", err)
	}
	size, ok := new(big.Rat).SetString(body.Size)
	if !ok {
		return nil, ixerr.Caller("malformed scaled size %q", body.Size)
	}
	dpi, ok := new(big.Rat).SetString(body.DPI)
	if !ok {
		return nil, ixerr.Caller("malformed scaled dpi %q", body.DPI)
	}
	inner, err := unmarshalEnvelope(body.Inner)
	if err != nil {
		return nil, err
	}
	return Scaled{
		Size:  imgmath.NewImageSize(body.Dim, size, body.Units),
		DPI:   dpi,
		Inner: inner,
	}, nil
}

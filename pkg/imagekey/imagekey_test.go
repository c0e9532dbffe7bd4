package imagekey

import (
	"encoding/json"
	"math/big"
	"testing"

	"github.com/blobcache/imgcache/pkg/filecache"
	"github.com/blobcache/imgcache/pkg/imgmath"
)

func sampleImageFile(checksum string) ImageFile {
	return ImageFile{
		File:      filecache.File{Checksum: checksum, Ext: ".jpg"},
		ImageType: JPEG,
		Width:     640,
		Height:    480,
		MaxVal:    255,
	}
}

func TestOriginalEqual(t *testing.T) {
	img := sampleImageFile("abc")
	a := Original{Image: img}
	b := Original{Image: img}
	if !a.Equal(b) {
		t.Error("identical Original keys should be equal")
	}
	c := Original{Image: sampleImageFile("def")}
	if a.Equal(c) {
		t.Error("Original keys with different checksums should not be equal")
	}
}

func TestImageFileEqualIgnoresMessagesAndSource(t *testing.T) {
	a := sampleImageFile("abc")
	b := a
	b.File.Messages = []string{"unrelated annotation"}
	b.File.Source = filecache.Source{Kind: filecache.SourcePath, Path: "/tmp/x"}
	if !a.Equal(b) {
		t.Error("ImageFile.Equal should ignore Messages and Source")
	}
}

func TestScaledEqual(t *testing.T) {
	inner := Original{Image: sampleImageFile("abc")}
	sz := imgmath.NewImageSize(imgmath.DimArea, big.NewRat(3072, 100), imgmath.UnitInches)
	a := Scaled{Size: sz, DPI: big.NewRat(100, 1), Inner: inner}
	b := Scaled{Size: sz, DPI: big.NewRat(100, 1), Inner: inner}
	if !a.Equal(b) {
		t.Error("identical Scaled keys should be equal")
	}
	c := Scaled{Size: sz, DPI: big.NewRat(200, 1), Inner: inner}
	if a.Equal(c) {
		t.Error("Scaled keys with different DPI should not be equal")
	}
}

func TestMarshalUnmarshalRoundTrip(t *testing.T) {
	inner := Original{Image: sampleImageFile("abc")}
	sz := imgmath.NewImageSize(imgmath.DimArea, big.NewRat(3072, 100), imgmath.UnitInches)
	key := Cropped{
		Crop: imgmath.ImageCrop{Top: 1, Bottom: 2, Left: 3, Right: 4, Rotation: 90},
		Inner: Scaled{
			Size: sz, DPI: big.NewRat(100, 1),
			Inner: Upright{Inner: inner},
		},
	}

	data, err := Marshal(key)
	if err != nil {
		t.Fatal(err)
	}
	got, err := Unmarshal(data)
	if err != nil {
		t.Fatal(err)
	}
	if !got.Equal(key) {
		t.Errorf("round-tripped key not equal to original:\n got  %#v\n want %#v", got, key)
	}
}

func TestUnmarshalMigratesSchemaVersion1(t *testing.T) {
	inner := Original{Image: sampleImageFile("abc")}
	innerEnv, err := marshalEnvelope(inner)
	if err != nil {
		t.Fatal(err)
	}
	v1 := scaledJSONv1{
		Dim: imgmath.DimArea, Size: "3072/100", Units: imgmath.UnitInches,
		DPI: 100.0, Inner: innerEnv,
	}
	body, err := json.Marshal(v1)
	if err != nil {
		t.Fatal(err)
	}
	env := envelope{Type: "scaled", V: 1, Body: body}
	wireEnv, err := json.Marshal(env)
	if err != nil {
		t.Fatal(err)
	}

	got, err := Unmarshal(wireEnv)
	if err != nil {
		t.Fatal(err)
	}
	scaled, ok := got.(Scaled)
	if !ok {
		t.Fatalf("got %T, want Scaled", got)
	}
	if !imgmath.IsOne(new(big.Rat).Quo(scaled.DPI, big.NewRat(100, 1))) {
		t.Errorf("migrated DPI = %v, want 100", scaled.DPI)
	}
}

package probe

import (
	"testing"

	"github.com/blobcache/imgcache/pkg/imagekey"
)

func TestPnmfileLineWithMaxval(t *testing.T) {
	m := pnmfileLine.FindSubmatch([]byte("stdin:\tPPM raw, 640 by 480  maxval 255\n"))
	if m == nil {
		t.Fatal("expected match")
	}
	if string(m[1]) != "640" || string(m[2]) != "480" || string(m[3]) != "255" {
		t.Errorf("got width=%s height=%s maxval=%s", m[1], m[2], m[3])
	}
}

func TestPnmfileLineWithoutMaxval(t *testing.T) {
	m := pnmfileLine.FindSubmatch([]byte("stdin:\tPBM raw, 10 by 20\n"))
	if m == nil {
		t.Fatal("expected match")
	}
	if string(m[1]) != "10" || string(m[2]) != "20" || len(m[3]) != 0 {
		t.Errorf("got width=%s height=%s maxval=%q", m[1], m[2], m[3])
	}
}

func TestPnmfileLineRejectsGarbage(t *testing.T) {
	if pnmfileLine.Match([]byte("not a pnmfile line")) {
		t.Error("expected no match")
	}
}

func TestDecoderProgTable(t *testing.T) {
	cases := []struct {
		typ  imagekey.ImageType
		want string
	}{
		{imagekey.PPM, ""},
		{imagekey.JPEG, "jpegtopnm"},
		{imagekey.GIF, "giftopnm"},
		{imagekey.PNG, "pngtopnm"},
	}
	for _, c := range cases {
		if got := decoderProg(c.typ); got != c.want {
			t.Errorf("decoderProg(%v) = %q, want %q", c.typ, got, c.want)
		}
	}
}

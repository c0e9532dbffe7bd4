package exifnorm

import "testing"

func TestNormalizeWithoutExifIsNoop(t *testing.T) {
	out, changed, err := Default.Normalize([]byte("not a jpeg at all"))
	if err != nil {
		t.Fatal(err)
	}
	if changed || out != nil {
		t.Errorf("expected no-op for non-JPEG input, got changed=%v out=%v", changed, out)
	}
}

func TestJpegtranArgsTableCoversAllNonIdentityOrientations(t *testing.T) {
	for orient := 2; orient <= 8; orient++ {
		if _, ok := jpegtranArgs[orient]; !ok {
			t.Errorf("missing jpegtran args for orientation %d", orient)
		}
	}
	if _, ok := jpegtranArgs[1]; ok {
		t.Error("orientation 1 (already upright) should have no jpegtran args")
	}
}

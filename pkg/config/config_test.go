package config

import "testing"

func TestFromObjOverridesDefaults(t *testing.T) {
	jc := Obj{
		"cacheTop":            "/var/cache/imgcache/top",
		"maxConcurrentBuilds": float64(4),
	}
	cfg, err := FromObj(jc)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.CacheTop != "/var/cache/imgcache/top" {
		t.Errorf("CacheTop = %q", cfg.CacheTop)
	}
	if cfg.MaxConcurrentBuilds != 4 {
		t.Errorf("MaxConcurrentBuilds = %d, want 4", cfg.MaxConcurrentBuilds)
	}
	if cfg.JpegtranPath != "jpegtran" {
		t.Errorf("JpegtranPath = %q, want default", cfg.JpegtranPath)
	}
}

func TestFromObjRejectsUnknownKey(t *testing.T) {
	jc := Obj{"bogusKey": "x"}
	if _, err := FromObj(jc); err == nil {
		t.Fatal("expected error for unknown config key")
	}
}

package kvstore_test

import (
	"testing"

	"github.com/blobcache/imgcache/pkg/kvstore"
	"github.com/blobcache/imgcache/pkg/kvstore/memkv"
)

func TestPutAllAndLookMany(t *testing.T) {
	s := memkv.New()
	if err := kvstore.PutAll(s, map[string]string{"a": "1", "b": "2", "c": "3"}); err != nil {
		t.Fatal(err)
	}
	got, err := kvstore.LookMany(s, []string{"a", "c", "missing"})
	if err != nil {
		t.Fatal(err)
	}
	want := map[string]string{"a": "1", "c": "3"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for k, v := range want {
		if got[k] != v {
			t.Errorf("got[%q] = %q, want %q", k, got[k], v)
		}
	}
}

func TestLookAll(t *testing.T) {
	s := memkv.New()
	kvstore.PutAll(s, map[string]string{"x": "1", "y": "2"})
	all, err := kvstore.LookAll(s)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 2 || all["x"] != "1" || all["y"] != "2" {
		t.Errorf("LookAll = %v", all)
	}
}

func TestDeleteMany(t *testing.T) {
	s := memkv.New()
	kvstore.PutAll(s, map[string]string{"a": "1", "b": "2", "c": "3"})
	if err := kvstore.DeleteMany(s, []string{"a", "c"}); err != nil {
		t.Fatal(err)
	}
	all, err := kvstore.LookAll(s)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 1 || all["b"] != "2" {
		t.Errorf("LookAll after DeleteMany = %v", all)
	}
}

func TestDeleteByPrefix(t *testing.T) {
	s := memkv.New()
	kvstore.PutAll(s, map[string]string{
		"img:1": "a", "img:2": "b", "doc:1": "c",
	})
	if err := kvstore.DeleteByPrefix(s, "img:"); err != nil {
		t.Fatal(err)
	}
	all, err := kvstore.LookAll(s)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 1 || all["doc:1"] != "c" {
		t.Errorf("LookAll after DeleteByPrefix = %v", all)
	}
}

func TestWithCacheChecksWithMemkv(t *testing.T) {
	opener := func(_ string) (kvstore.Store, error) { return memkv.New(), nil }
	err := kvstore.WithCache("ignored", opener, func(s kvstore.Store) error {
		return kvstore.Put(s, "k", "v")
	})
	if err != nil {
		t.Fatal(err)
	}
}

// TestScenarioA is spec §8 scenario A: empty map, insert-and-hit.
func TestScenarioA(t *testing.T) {
	s := memkv.New()
	reverse := func(x string) string {
		b := []byte(x)
		for i, j := 0, len(b)-1; i < j; i, j = i+1, j-1 {
			b[i], b[j] = b[j], b[i]
		}
		return string(b)
	}

	key := "Hello, world!"
	_, ok, err := kvstore.Look(s, key)
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Fatal("expected miss on empty map")
	}

	if err := kvstore.Put(s, key, reverse(key)); err != nil {
		t.Fatal(err)
	}

	v, ok, err := kvstore.Look(s, key)
	if err != nil {
		t.Fatal(err)
	}
	if !ok || v != "!dlrow ,olleH" {
		t.Fatalf("Look after insert = %q, %v, want %q, true", v, ok, "!dlrow ,olleH")
	}

	all, err := kvstore.LookAll(s)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 1 || all[key] != "!dlrow ,olleH" {
		t.Errorf("LookAll = %v", all)
	}
}

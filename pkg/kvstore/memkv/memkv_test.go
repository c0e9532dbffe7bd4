package memkv

import (
	"testing"

	"github.com/blobcache/imgcache/pkg/kvstore"
)

func TestGetSetDelete(t *testing.T) {
	s := New()
	if _, err := s.Get("a"); err != kvstore.ErrNotFound {
		t.Fatalf("Get on empty store = %v, want ErrNotFound", err)
	}
	if err := s.Set("a", "1"); err != nil {
		t.Fatal(err)
	}
	v, err := s.Get("a")
	if err != nil || v != "1" {
		t.Fatalf("Get(a) = %q, %v, want 1, nil", v, err)
	}
	if err := s.Delete("a"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Get("a"); err != kvstore.ErrNotFound {
		t.Fatalf("Get after delete = %v, want ErrNotFound", err)
	}
}

func TestFindOrdersKeys(t *testing.T) {
	s := New()
	for _, k := range []string{"c", "a", "b"} {
		if err := s.Set(k, k+k); err != nil {
			t.Fatal(err)
		}
	}
	it := s.Find("")
	defer it.Close()
	var got []string
	for it.Next() {
		got = append(got, it.Key())
	}
	want := []string{"a", "b", "c"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("got[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestFindRespectsStart(t *testing.T) {
	s := New()
	s.Set("a", "1")
	s.Set("b", "2")
	s.Set("c", "3")
	it := s.Find("b")
	defer it.Close()
	var got []string
	for it.Next() {
		got = append(got, it.Key())
	}
	if len(got) != 2 || got[0] != "b" || got[1] != "c" {
		t.Errorf("got %v, want [b c]", got)
	}
}

func TestCommitBatch(t *testing.T) {
	s := New()
	s.Set("keep", "1")
	s.Set("remove", "2")
	b := s.BeginBatch()
	b.Set("new", "3")
	b.Delete("remove")
	if err := s.CommitBatch(b); err != nil {
		t.Fatal(err)
	}
	all, err := kvstore.LookAll(s)
	if err != nil {
		t.Fatal(err)
	}
	want := map[string]string{"keep": "1", "new": "3"}
	if len(all) != len(want) {
		t.Fatalf("got %v, want %v", all, want)
	}
	for k, v := range want {
		if all[k] != v {
			t.Errorf("all[%q] = %q, want %q", k, all[k], v)
		}
	}
}

type foreignBatch struct{}

func (foreignBatch) Set(key, value string) {}
func (foreignBatch) Delete(key string)     {}

func TestCommitBatchRejectsForeignBatchType(t *testing.T) {
	s := New()
	if err := s.CommitBatch(foreignBatch{}); err != kvstore.ErrInvalidBatch {
		t.Errorf("got %v, want ErrInvalidBatch", err)
	}
}

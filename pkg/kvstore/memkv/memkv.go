// Package memkv is an in-memory kvstore.Store, for tests and development.
// Grounded on pkg/sorted/mem.go's memKeys from the teacher: same
// interface-shaped mutex-guarded map, same Find/iterator contract. The
// teacher backed its map with a vendored leveldb-go memdb
// (camlistore.org/third_party/...); that package is dropped along with the
// rest of third_party, so this keeps a plain sorted []string index instead
// — adequate for a map sized for one process's derivation cache, and
// ecosystem-free because no pack example ships a standalone in-memory
// sorted map library.
package memkv

import (
	"sort"
	"sync"

	"github.com/blobcache/imgcache/pkg/kvstore"
)

type memKV struct {
	mu   sync.Mutex
	m    map[string]string
	keys []string // kept sorted
}

// New returns an empty in-memory kvstore.Store.
func New() kvstore.Store {
	return &memKV{m: make(map[string]string)}
}

func (mk *memKV) insertKeyLocked(k string) {
	i := sort.SearchStrings(mk.keys, k)
	if i < len(mk.keys) && mk.keys[i] == k {
		return
	}
	mk.keys = append(mk.keys, "")
	copy(mk.keys[i+1:], mk.keys[i:])
	mk.keys[i] = k
}

func (mk *memKV) removeKeyLocked(k string) {
	i := sort.SearchStrings(mk.keys, k)
	if i < len(mk.keys) && mk.keys[i] == k {
		mk.keys = append(mk.keys[:i], mk.keys[i+1:]...)
	}
}

func (mk *memKV) Get(key string) (string, error) {
	mk.mu.Lock()
	defer mk.mu.Unlock()
	v, ok := mk.m[key]
	if !ok {
		return "", kvstore.ErrNotFound
	}
	return v, nil
}

func (mk *memKV) Set(key, value string) error {
	mk.mu.Lock()
	defer mk.mu.Unlock()
	if _, exists := mk.m[key]; !exists {
		mk.insertKeyLocked(key)
	}
	mk.m[key] = value
	return nil
}

func (mk *memKV) Delete(key string) error {
	mk.mu.Lock()
	defer mk.mu.Unlock()
	if _, ok := mk.m[key]; ok {
		delete(mk.m, key)
		mk.removeKeyLocked(key)
	}
	return nil
}

func (mk *memKV) BeginBatch() kvstore.BatchMutation {
	return &batch{}
}

type op struct {
	key    string
	value  string
	delete bool
}

type batch struct {
	ops []op
}

func (b *batch) Set(key, value string) { b.ops = append(b.ops, op{key: key, value: value}) }
func (b *batch) Delete(key string)     { b.ops = append(b.ops, op{key: key, delete: true}) }

func (mk *memKV) CommitBatch(bm kvstore.BatchMutation) error {
	b, ok := bm.(*batch)
	if !ok {
		return kvstore.ErrInvalidBatch
	}
	mk.mu.Lock()
	defer mk.mu.Unlock()
	for _, o := range b.ops {
		if o.delete {
			if _, exists := mk.m[o.key]; exists {
				delete(mk.m, o.key)
				mk.removeKeyLocked(o.key)
			}
			continue
		}
		if _, exists := mk.m[o.key]; !exists {
			mk.insertKeyLocked(o.key)
		}
		mk.m[o.key] = o.value
	}
	return nil
}

func (mk *memKV) Find(start string) kvstore.Iterator {
	mk.mu.Lock()
	defer mk.mu.Unlock()
	i := sort.SearchStrings(mk.keys, start)
	keys := make([]string, len(mk.keys)-i)
	copy(keys, mk.keys[i:])
	return &memIter{mk: mk, keys: keys, pos: -1}
}

func (mk *memKV) Close() error { return nil }

type memIter struct {
	mk   *memKV
	keys []string
	pos  int
	k, v string
}

func (it *memIter) Next() bool {
	it.pos++
	if it.pos >= len(it.keys) {
		return false
	}
	it.k = it.keys[it.pos]
	it.mk.mu.Lock()
	it.v = it.mk.m[it.k]
	it.mk.mu.Unlock()
	return true
}

func (it *memIter) Key() string   { return it.k }
func (it *memIter) Value() string { return it.v }
func (it *memIter) Close() error  { return nil }

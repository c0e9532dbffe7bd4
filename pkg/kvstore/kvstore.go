// Package kvstore defines the persistent key-value map the cache is built
// on (spec §4.D): put/put-many/look/look-many/look-all/delete/delete-many
// over a transactional sorted store, opened as a scoped resource. Grounded
// on pkg/sorted/kv.go's KeyValue/Iterator/BatchMutation interfaces from the
// teacher, trimmed to the single on-disk backend this cache actually needs
// (leveldbkv) plus an in-memory one for tests (memkv).
package kvstore

import (
	"errors"

	"github.com/blobcache/imgcache/pkg/ixerr"
)

// ErrNotFound is returned by Get (and surfaced as Look's zero-value,false)
// when a key is absent.
var ErrNotFound = errors.New("kvstore: key not found")

// ErrInvalidBatch is returned by CommitBatch when passed a BatchMutation
// not obtained from the same Store's BeginBatch.
var ErrInvalidBatch = errors.New("kvstore: invalid batch type")

// Iterator walks a Store's key/value pairs in key order, starting at the
// position Store.Find returned.
type Iterator interface {
	Next() bool
	Key() string
	Value() string
	Close() error
}

// BatchMutation accumulates Set/Delete operations for atomic application
// via Store.CommitBatch.
type BatchMutation interface {
	Set(key, value string)
	Delete(key string)
}

// Store is a transactional, sorted key-value map (spec §4.D). Every
// mutation it exposes is atomic on its own; PutAll/LookMany/LookAll/
// DeleteMany (below) are built from these primitives.
type Store interface {
	Get(key string) (string, error)
	Set(key, value string) error
	Delete(key string) error

	BeginBatch() BatchMutation
	CommitBatch(b BatchMutation) error

	// Find returns an iterator positioned before the first key >= start.
	// An empty start means "before all keys".
	Find(start string) Iterator

	Close() error
}

// Checkpointer is implemented by stores whose "checkpoint and close" exit
// discipline (spec §4.D, §9) needs an explicit flush distinct from Close.
// Stores that don't need one (e.g. memkv) simply don't implement it.
type Checkpointer interface {
	Checkpoint() error
}

// Opener constructs a Store at path, initializing to empty if absent.
type Opener func(path string) (Store, error)

// WithCache is the scoped-acquisition primitive of spec §4.D: it opens the
// store at path, runs body with the open handle, and on every exit path
// (success, error, or a panic propagating through body) writes a
// checkpoint and closes. Grounded on pkg/blobserver/localdisk.go's
// open-then-guaranteed-cleanup pattern, generalized from a file handle to
// an arbitrary Store.
func WithCache(path string, open Opener, body func(Store) error) (err error) {
	s, openErr := open(path)
	if openErr != nil {
		return ixerr.InFunction("kvstore.WithCache", openErr)
	}
	defer func() {
		if cp, ok := s.(Checkpointer); ok {
			if cerr := cp.Checkpoint(); cerr != nil && err == nil {
				err = ixerr.InFunction("kvstore.WithCache", cerr)
			}
		}
		if cerr := s.Close(); cerr != nil && err == nil {
			err = ixerr.InFunction("kvstore.WithCache", cerr)
		}
	}()
	err = body(s)
	return err
}

// Put sets key to value.
func Put(s Store, key, value string) error {
	return s.Set(key, value)
}

// PutAll sets every key in kv atomically.
func PutAll(s Store, kv map[string]string) error {
	b := s.BeginBatch()
	for k, v := range kv {
		b.Set(k, v)
	}
	return s.CommitBatch(b)
}

// Look returns (value, true, nil) if key is present, ("", false, nil) if
// absent, or an error on any other failure.
func Look(s Store, key string) (string, bool, error) {
	v, err := s.Get(key)
	if err == ErrNotFound {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

// LookMany returns the subset of keys present in s.
func LookMany(s Store, keys []string) (map[string]string, error) {
	out := make(map[string]string, len(keys))
	for _, k := range keys {
		v, ok, err := Look(s, k)
		if err != nil {
			return nil, err
		}
		if ok {
			out[k] = v
		}
	}
	return out, nil
}

// LookAll returns every key/value pair in s.
func LookAll(s Store) (map[string]string, error) {
	it := s.Find("")
	defer it.Close()
	out := make(map[string]string)
	for it.Next() {
		out[it.Key()] = it.Value()
	}
	return out, it.Close()
}

// Delete removes key, if present.
func Delete(s Store, key string) error {
	return s.Delete(key)
}

// DeleteMany removes every key in keys atomically.
func DeleteMany(s Store, keys []string) error {
	b := s.BeginBatch()
	for _, k := range keys {
		b.Delete(k)
	}
	return s.CommitBatch(b)
}

// DeleteByPrefix removes every key with the given prefix. It is not part
// of the original spec's operation set but follows directly from Find. The
// match is on the raw key string: with imagekey.Marshal's encoding the
// outermost variant comes first and the Original innermost, so the keys
// derived from one Original do not share a prefix.
func DeleteByPrefix(s Store, prefix string) error {
	it := s.Find(prefix)
	defer it.Close()
	b := s.BeginBatch()
	any := false
	for it.Next() {
		k := it.Key()
		if len(k) < len(prefix) || k[:len(prefix)] != prefix {
			break
		}
		b.Delete(k)
		any = true
	}
	if err := it.Close(); err != nil {
		return err
	}
	if !any {
		return nil
	}
	return s.CommitBatch(b)
}

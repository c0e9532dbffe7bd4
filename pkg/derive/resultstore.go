package derive

import (
	"encoding/json"

	"github.com/blobcache/imgcache/pkg/imagekey"
	"github.com/blobcache/imgcache/pkg/ixerr"
	"github.com/blobcache/imgcache/pkg/kvstore"
)

// resultSchemaVersion is carried with every persisted Result, mirroring
// imagekey's own schema-version envelope (spec §4.D, §6, §9). Version 2
// wraps every value as a Result so negative (failed) derivations can be
// cached too; version 1 snapshots contained bare ImageFiles and are
// migrated on read by wrapping them as Ok.
const resultSchemaVersion = 2

// result is the CacheMap's persisted value: a derivation either succeeded
// with an ImageFile or failed with an error message, and the failure is
// itself cached (spec §3 "Negative entries are allowed and persisted").
type result struct {
	V      int              `json:"v"`
	Image  *imagekey.ImageFile `json:"image,omitempty"`
	ErrMsg string           `json:"err,omitempty"`
}

func (r result) toOutcome() (imagekey.ImageFile, error) {
	if r.ErrMsg != "" {
		return imagekey.ImageFile{}, ixerr.Other(errorString(r.ErrMsg))
	}
	if r.Image == nil {
		return imagekey.ImageFile{}, ixerr.Caller("malformed cached result: neither image nor error set")
	}
	return *r.Image, nil
}

type errorString string

func (e errorString) Error() string { return string(e) }

// resultStore wraps a kvstore.Store keyed by imagekey.Marshal, storing
// Result envelopes and migrating bare-ImageFile (schema version 1) entries
// on read.
type resultStore struct {
	s kvstore.Store
}

func (rs resultStore) lookupKey(k imagekey.Key) (string, error) {
	b, err := imagekey.Marshal(k)
	if err != nil {
		return "", ixerr.InFunction("derive.resultStore", err)
	}
	return string(b), nil
}

// look returns (ImageFile, true, nil) for a cached success, (_, true, err)
// for a cached failure (the negative-cache case), or (_, false, nil) on a
// miss.
func (rs resultStore) look(k imagekey.Key) (imagekey.ImageFile, bool, error) {
	lk, err := rs.lookupKey(k)
	if err != nil {
		return imagekey.ImageFile{}, false, err
	}
	raw, ok, err := kvstore.Look(rs.s, lk)
	if err != nil {
		return imagekey.ImageFile{}, false, ixerr.InFunction("derive.resultStore.look", err)
	}
	if !ok {
		return imagekey.ImageFile{}, false, nil
	}
	r, err := unmarshalResult([]byte(raw))
	if err != nil {
		return imagekey.ImageFile{}, false, ixerr.InFunction("derive.resultStore.look", err)
	}
	img, outcomeErr := r.toOutcome()
	return img, true, outcomeErr
}

// put persists outcome (success or failure) for k.
func (rs resultStore) put(k imagekey.Key, img imagekey.ImageFile, outcomeErr error) error {
	lk, err := rs.lookupKey(k)
	if err != nil {
		return err
	}
	r := result{V: resultSchemaVersion}
	if outcomeErr != nil {
		r.ErrMsg = outcomeErr.Error()
	} else {
		cp := img
		r.Image = &cp
	}
	raw, err := json.Marshal(r)
	if err != nil {
		return ixerr.InFunction("derive.resultStore.put", ixerr.Caller("marshaling result: %v", err))
	}
	if err := kvstore.Put(rs.s, lk, string(raw)); err != nil {
		return ixerr.InFunction("derive.resultStore.put", err)
	}
	return nil
}

// unmarshalResult parses a persisted value, migrating a schema-version-1
// bare ImageFile by wrapping it as an Ok result (spec §4.D, §9).
func unmarshalResult(raw []byte) (result, error) {
	var r result
	if err := json.Unmarshal(raw, &r); err == nil && (r.Image != nil || r.ErrMsg != "") {
		return r, nil
	}
	var bare imagekey.ImageFile
	if err := json.Unmarshal(raw, &bare); err != nil {
		return result{}, ixerr.Caller("malformed cached result: %v", err)
	}
	return result{V: resultSchemaVersion, Image: &bare}, nil
}

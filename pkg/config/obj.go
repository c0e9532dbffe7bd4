// Package config is the ambient configuration layer: Config (pkg/config's
// own cache-specific settings struct) plus the narrow JSON-object reader it
// is parsed from. The teacher's pkg/jsonconfig collects every required/
// type/unknown-key problem into sentinel "_knownkeys"/"_errors" entries
// stashed inside the very map it is validating, then strips them back out
// on report; here that bookkeeping lives in a separate, unexported binder
// instead, so Obj itself stays a plain parsed-JSON map with no reserved key
// names, and only the two accessors (string, int) config.go actually needs
// exist at all — the expression-expansion half of the teacher's package
// (env/file interpolation in eval.go) is dropped outright, since config-file
// loading mechanics are explicitly out of scope (spec §1).
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/blobcache/imgcache/pkg/ixerr"
)

// Obj is a parsed JSON configuration object.
type Obj map[string]interface{}

// ReadFile reads and parses path as a plain JSON object. No environment or
// file-path expansion is performed.
func ReadFile(path string) (Obj, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, ixerr.IO(err, "reading config file %s", path)
	}
	var m map[string]interface{}
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, ixerr.InFunction("config.ReadFile", ixerr.Caller("malformed config JSON in %s: %v", path, err))
	}
	return Obj(m), nil
}

// binder reads typed fields out of an Obj for FromObj, tracking which keys
// were consulted and every problem encountered, so a bad type or an
// unrecognized key is reported once, together with every other problem in
// the file, rather than on the first field touched.
type binder struct {
	raw   Obj
	known map[string]bool
	errs  []error
}

func newBinder(raw Obj) *binder {
	return &binder{raw: raw, known: make(map[string]bool, len(raw))}
}

func (b *binder) optionalString(key, def string) string {
	b.known[key] = true
	v, ok := b.raw[key]
	if !ok {
		return def
	}
	s, ok := v.(string)
	if !ok {
		b.errs = append(b.errs, fmt.Errorf("expected config key %q to be a string, got %T", key, v))
		return def
	}
	return s
}

func (b *binder) optionalInt(key string, def int) int {
	b.known[key] = true
	v, ok := b.raw[key]
	if !ok {
		return def
	}
	f, ok := v.(float64)
	if !ok {
		b.errs = append(b.errs, fmt.Errorf("expected config key %q to be a number, got %T", key, v))
		return def
	}
	return int(f)
}

// validate reports every key in raw that was never passed to optionalString
// or optionalInt, plus any type errors already accumulated, as a single
// error — or nil if there were none.
func (b *binder) validate() error {
	for k := range b.raw {
		if !b.known[k] {
			b.errs = append(b.errs, fmt.Errorf("unknown config key %q", k))
		}
	}
	if len(b.errs) == 0 {
		return nil
	}
	if len(b.errs) == 1 {
		return ixerr.InFunction("config.Validate", ixerr.Caller("%v", b.errs[0]))
	}
	msgs := make([]string, len(b.errs))
	for i, e := range b.errs {
		msgs[i] = e.Error()
	}
	return ixerr.InFunction("config.Validate", ixerr.Caller("multiple errors: %s", strings.Join(msgs, ", ")))
}

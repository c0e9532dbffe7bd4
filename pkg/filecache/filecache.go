// Package filecache implements the spec's byte cache (§4.C): a checksum-
// keyed blob store on disk, populated from raw bytes, local paths, URIs, or
// the stdout of an external command pipeline. Grounded on
// pkg/blobserver/localdisk/receive.go's temp-file-then-rename ingestion
// idiom and pkg/blobserver/localdisk/path.go's pure path derivation, both
// from the teacher, adapted to the spec's flat cache_top/<checksum> layout
// and MD5 (rather than the teacher's sharded, multi-hash blob.Ref) naming.
package filecache

import (
	"crypto/md5"
	"encoding/hex"
	"io"
	"log"
	"os"
	"path/filepath"

	"github.com/blobcache/imgcache/pkg/ixerr"
	"github.com/blobcache/imgcache/pkg/pipeline"
)

// SourceKind discriminates how a File's bytes originally entered the cache.
type SourceKind int

const (
	SourceBytes SourceKind = iota
	SourcePath
	SourceURI
	SourceCmd
)

// Source records a File's provenance. Never semantically significant beyond
// logging/debugging (spec §3).
type Source struct {
	Kind SourceKind `json:"kind"`
	Path string     `json:"path,omitempty"` // SourcePath
	URI  string     `json:"uri,omitempty"`  // SourceURI
	Cmd  string     `json:"cmd,omitempty"`  // SourceCmd: the pipeline's diagnostic repr
}

func (s Source) String() string {
	switch s.Kind {
	case SourcePath:
		return "path:" + s.Path
	case SourceURI:
		return "uri:" + s.URI
	case SourceCmd:
		return "cmd:" + s.Cmd
	default:
		return "bytes"
	}
}

// File is the byte-cache record described in spec §3. Checksum is the
// lowercase hex MD5 of the blob bytes and is the sole basis for on-disk
// naming; the invariant "cache-top/<checksum> has MD5 == checksum" must
// hold after every public FileCache operation.
type File struct {
	Source   Source   `json:"source"`
	Checksum string   `json:"checksum"` // lowercase hex32 MD5
	Messages []string `json:"messages,omitempty"`
	Ext      string   `json:"ext,omitempty"`
}

// Fetcher fetches the bytes at a URI. It is an injected collaborator: the
// spec places HTTP fetching out of scope, contracted only as "bytes or an
// Io error".
type Fetcher interface {
	Fetch(uri string) ([]byte, error)
}

// FetcherFunc adapts a function to a Fetcher.
type FetcherFunc func(uri string) ([]byte, error)

func (f FetcherFunc) Fetch(uri string) ([]byte, error) { return f(uri) }

// Cache is the byte cache: a checksum-addressed directory of blobs.
type Cache struct {
	top    string
	logger *log.Logger
}

// New returns a Cache rooted at top. The directory is created lazily, on
// first ingestion, matching the spec's "cache_top is created on first use".
func New(top string, logger *log.Logger) *Cache {
	if logger == nil {
		logger = log.Default()
	}
	return &Cache{top: top, logger: logger}
}

func (c *Cache) ensureTop() error {
	if err := os.MkdirAll(c.top, 0o755); err != nil {
		return ixerr.IO(err, "creating cache directory %s", c.top)
	}
	return nil
}

func checksumOf(b []byte) string {
	sum := md5.Sum(b)
	return hex.EncodeToString(sum[:])
}

// PathOf returns the path at which f's bytes are stored. It is pure: it does
// not touch disk.
func (c *Cache) PathOf(f File) string {
	return filepath.Join(c.top, f.Checksum)
}

func (c *Cache) extPathOf(checksum, ext string) string {
	return filepath.Join(c.top, checksum+ext)
}

// Load reads the blob addressed by f.
func (c *Cache) Load(f File) ([]byte, error) {
	b, err := os.ReadFile(c.PathOf(f))
	if err != nil {
		return nil, ixerr.InFunction("filecache.Load", ixerr.IO(err, "reading %s", c.PathOf(f)))
	}
	return b, nil
}

// ingest writes b to the cache under its MD5 checksum, reusing an existing
// blob with the same checksum, and ensures the extension symlink. It is the
// common tail of every From* operation.
func (c *Cache) ingest(b []byte, ext string) (string, error) {
	if err := c.ensureTop(); err != nil {
		return "", err
	}
	checksum := checksumOf(b)
	dst := filepath.Join(c.top, checksum)

	if _, err := os.Stat(dst); err == nil {
		// Reuse: another ingestion (possibly in another process) already
		// wrote this checksum. Content addressing makes this idempotent.
	} else if !os.IsNotExist(err) {
		return "", ixerr.InFunction("filecache.ingest", ixerr.IO(err, "stat %s", dst))
	} else {
		tmp, err := os.CreateTemp(c.top, checksum+".tmp-*")
		if err != nil {
			return "", ixerr.InFunction("filecache.ingest", ixerr.IO(err, "creating temp file in %s", c.top))
		}
		tmpName := tmp.Name()
		success := false
		defer func() {
			if !success {
				os.Remove(tmpName)
			}
		}()
		if _, err := tmp.Write(b); err != nil {
			tmp.Close()
			return "", ixerr.InFunction("filecache.ingest", ixerr.IO(err, "writing temp file %s", tmpName))
		}
		if err := tmp.Sync(); err != nil {
			tmp.Close()
			return "", ixerr.InFunction("filecache.ingest", ixerr.IO(err, "syncing temp file %s", tmpName))
		}
		if err := tmp.Close(); err != nil {
			return "", ixerr.InFunction("filecache.ingest", ixerr.IO(err, "closing temp file %s", tmpName))
		}
		if err := os.Rename(tmpName, dst); err != nil {
			return "", ixerr.InFunction("filecache.ingest", ixerr.IO(err, "renaming %s to %s", tmpName, dst))
		}
		success = true
	}

	if ext != "" {
		link := c.extPathOf(checksum, ext)
		if _, err := os.Lstat(link); os.IsNotExist(err) {
			// Idempotent: if the link exists (even pointing elsewhere),
			// leave it, preserving whatever extension hint was there.
			if err := os.Symlink(checksum, link); err != nil && !os.IsExist(err) {
				c.logger.Printf("filecache: could not create extension symlink %s: %v", link, err)
			}
		}
	}
	return checksum, nil
}

// FromBytes ingests raw bytes, probing their type with typeProbe and
// deriving the extension symlink from extOf(type). Post: the file exists
// and matches its checksum; the extension symlink exists if ext is
// non-empty.
func FromBytes[T any](c *Cache, b []byte, typeProbe func([]byte) T, extOf func(T) string) (File, T, error) {
	var zero T
	typ := typeProbe(b)
	ext := extOf(typ)
	checksum, err := c.ingest(b, ext)
	if err != nil {
		return File{}, zero, ixerr.InFunction("filecache.FromBytes", err)
	}
	return File{Source: Source{Kind: SourceBytes}, Checksum: checksum, Ext: ext}, typ, nil
}

// FromPath loads bytes from path and ingests them as FromBytes, recording
// the path as provenance.
func FromPath[T any](c *Cache, path string, typeProbe func([]byte) T, extOf func(T) string) (File, T, error) {
	var zero T
	b, err := os.ReadFile(path)
	if err != nil {
		return File{}, zero, ixerr.InFunction("filecache.FromPath", ixerr.IO(err, "reading %s", path))
	}
	typ := typeProbe(b)
	ext := extOf(typ)
	checksum, err := c.ingest(b, ext)
	if err != nil {
		return File{}, zero, ixerr.InFunction("filecache.FromPath", err)
	}
	return File{Source: Source{Kind: SourcePath, Path: path}, Checksum: checksum, Ext: ext}, typ, nil
}

// FromURI fetches uri via fetcher and ingests the result as FromBytes,
// recording the URI as provenance.
func FromURI[T any](c *Cache, uri string, fetcher Fetcher, typeProbe func([]byte) T, extOf func(T) string) (File, T, error) {
	var zero T
	b, err := fetcher.Fetch(uri)
	if err != nil {
		return File{}, zero, ixerr.InFunction("filecache.FromURI", ixerr.IO(err, "fetching %s", uri))
	}
	typ := typeProbe(b)
	ext := extOf(typ)
	checksum, err := c.ingest(b, ext)
	if err != nil {
		return File{}, zero, ixerr.InFunction("filecache.FromURI", err)
	}
	return File{Source: Source{Kind: SourceURI, URI: uri}, Checksum: checksum, Ext: ext}, typ, nil
}

// FromCommand runs cmd with empty stdin and ingests its stdout as
// FromBytes, failing with a Command error on non-zero exit.
func FromCommand[T any](c *Cache, cmd pipeline.Command, typeProbe func([]byte) T, extOf func(T) string) (File, T, error) {
	var zero T
	out, err := pipeline.Run(nil, cmd)
	if err != nil {
		return File{}, zero, ixerr.InFunction("filecache.FromCommand", err)
	}
	typ := typeProbe(out)
	ext := extOf(typ)
	checksum, err := c.ingest(out, ext)
	if err != nil {
		return File{}, zero, ixerr.InFunction("filecache.FromCommand", err)
	}
	return File{Source: Source{Kind: SourceCmd, Cmd: cmd.Repr()}, Checksum: checksum, Ext: ext}, typ, nil
}

// verify is a defensive re-check of the §3 invariant, exposed as
// Cache.Verify. Ingestion does not call it; it runs only when a caller
// (such as this package's tests) asks for it.
func verify(path, wantChecksum string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return ixerr.IO(err, "reading %s", path)
	}
	if got := checksumOf(b); got != wantChecksum {
		return ixerr.Caller("checksum mismatch for %s: got %s, want %s", path, got, wantChecksum)
	}
	return nil
}

// Verify re-reads f's blob and confirms its MD5 matches f.Checksum.
func (c *Cache) Verify(f File) error {
	return verify(c.PathOf(f), f.Checksum)
}

var _ io.Writer = (*os.File)(nil) // sanity: os.File satisfies io.Writer, used above

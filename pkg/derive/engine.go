// Package derive implements the spec's derivation engine (§4.E): the
// single public Get(key) operation that recursively evaluates an
// imagekey.Key into an imagekey.ImageFile, running external tool pipelines
// on cache misses and memoizing every outcome — success or failure — in a
// persistent kvstore.Store. Grounded on pkg/cacher.CachingFetcher.faultIn's
// look-then-singleflight-build-then-store shape and pkg/server/image.go's
// singleResize/ResizeSem pair, generalized from blob refs and HTTP
// thumbnailing to the spec's four-variant ImageKey.
package derive

import (
	"expvar"

	"go4.org/syncutil"
	"go4.org/syncutil/singleflight"

	"github.com/blobcache/imgcache/pkg/config"
	"github.com/blobcache/imgcache/pkg/exifnorm"
	"github.com/blobcache/imgcache/pkg/filecache"
	"github.com/blobcache/imgcache/pkg/imagekey"
	"github.com/blobcache/imgcache/pkg/ixerr"
	"github.com/blobcache/imgcache/pkg/kvstore"
)

var (
	buildCount     = expvar.NewInt("derive-build-count")
	cacheHitCount  = expvar.NewInt("derive-cache-hit-count")
	cacheMissCount = expvar.NewInt("derive-cache-miss-count")
	buildErrCount  = expvar.NewInt("derive-build-error-count")
)

// Stats is a point-in-time snapshot of the engine's expvar counters.
type Stats struct {
	Builds     int64
	CacheHits  int64
	CacheMiss  int64
	BuildErrors int64
}

// Engine is the derivation engine of spec §4.E. The zero value is not
// usable; construct with New.
type Engine struct {
	rs   resultStore
	fc   *filecache.Cache
	cfg  config.Config
	norm exifnorm.Normalizer

	sf  singleflight.Group
	sem *syncutil.Sem
}

// New returns an Engine backed by store (the persistent CacheMap of spec
// §4.D, typically opened via kvstore.WithCache) and fc (the byte cache of
// spec §4.C). norm may be nil to use exifnorm.Default.
func New(store kvstore.Store, fc *filecache.Cache, cfg config.Config, norm exifnorm.Normalizer) *Engine {
	if norm == nil {
		norm = exifnorm.Default
	}
	maxBuilds := cfg.MaxConcurrentBuilds
	if maxBuilds <= 0 {
		maxBuilds = 1
	}
	return &Engine{
		rs:   resultStore{s: store},
		fc:   fc,
		cfg:  cfg,
		norm: norm,
		sem:  syncutil.NewSem(int64(maxBuilds)),
	}
}

// Stats returns a snapshot of the engine's build/cache counters.
func (e *Engine) Stats() Stats {
	return Stats{
		Builds:      buildCount.Value(),
		CacheHits:   cacheHitCount.Value(),
		CacheMiss:   cacheMissCount.Value(),
		BuildErrors: buildErrCount.Value(),
	}
}

// Get evaluates key per spec §4.E: look(key) in the persistent map first
// (including a previously cached failure), otherwise build(key) and put
// the outcome — success or failure — before returning it. Concurrent
// callers for the same key coalesce onto a single in-flight build (spec
// §5, §9's "single-flight concurrency").
func (e *Engine) Get(key imagekey.Key) (imagekey.ImageFile, error) {
	if img, hit, err := e.rs.look(key); hit {
		cacheHitCount.Add(1)
		return img, err
	} else if err != nil {
		return imagekey.ImageFile{}, err
	}
	cacheMissCount.Add(1)

	raw, err := imagekey.Marshal(key)
	if err != nil {
		return imagekey.ImageFile{}, ixerr.InFunction("derive.Get", err)
	}
	skey := string(raw)

	v, err := e.sf.Do(skey, func() (interface{}, error) {
		if err := e.sem.Acquire(1); err != nil {
			return nil, ixerr.InFunction("derive.Get", ixerr.IO(err, "acquiring build semaphore"))
		}
		defer e.sem.Release(1)

		buildCount.Add(1)
		img, buildErr := e.build(key)
		if buildErr != nil {
			buildErrCount.Add(1)
		}
		if putErr := e.rs.put(key, img, buildErr); putErr != nil {
			return nil, ixerr.InFunction("derive.Get", putErr)
		}
		if buildErr != nil {
			return nil, buildErr
		}
		return img, nil
	})
	if err != nil {
		return imagekey.ImageFile{}, err
	}
	return v.(imagekey.ImageFile), nil
}

// ingestAndProbe writes b into the byte cache under knownType (the caller
// already knows b's encoding — it either came straight from an Original or
// was just produced by a pipeline stage whose output format is fixed) and
// reads back its pixel dimensions via probe.PNM.
func (e *Engine) ingestAndProbe(b []byte, knownType imagekey.ImageType) (imagekey.ImageFile, error) {
	file, typ, err := filecache.FromBytes(e.fc, b,
		func([]byte) imagekey.ImageType { return knownType },
		imagekey.ExtensionOf)
	if err != nil {
		return imagekey.ImageFile{}, ixerr.InFunction("derive.ingestAndProbe", err)
	}
	width, height, maxVal, err := probePNM(b, typ)
	if err != nil {
		return imagekey.ImageFile{}, ixerr.InFunction("derive.ingestAndProbe", err)
	}
	img := imagekey.ImageFile{File: file, ImageType: typ, Width: width, Height: height, MaxVal: maxVal}
	if err := img.Validate(); err != nil {
		return imagekey.ImageFile{}, ixerr.InFunction("derive.ingestAndProbe", err)
	}
	return img, nil
}

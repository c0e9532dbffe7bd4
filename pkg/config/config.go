package config

import (
	"github.com/blobcache/imgcache/pkg/osutil"
)

// Config is the cache's top-level configuration: where cache_top and
// acid_dir live on disk, which external tool binaries pkg/derive's pipeline
// construction invokes (spec §6's external-process list), and how much
// concurrency the derivation engine is allowed.
//
// It is built from an Obj by FromObj, in the spirit of the teacher's
// jsonconfig-driven server config builders: every field comes from an
// optional accessor with a default, and every bad-type or unrecognized key
// in the file is reported together, not one-by-one on first failure.
//
// `file` and `pnmfile`, the other two tools in spec §6's list, are not
// configurable here: pkg/probe invokes them by bare name directly, since
// giving the metadata probe a dependency on this package for two constant
// strings would buy nothing.
type Config struct {
	CacheTop string // top-level directory for the byte cache (pkg/filecache)
	AcidDir  string // directory for the persistent map's on-disk state (pkg/kvstore)

	// External tool overrides for pkg/derive's pipelines. Empty means "use
	// the bare name on $PATH".
	JpegtranPath  string
	PnmscalePath  string
	PnmcutPath    string
	CjpegPath     string
	JpegtopnmPath string
	GiftopnmPath  string
	PngtopnmPath  string
	PpmtogifPath  string
	PnmtopngPath  string

	// MaxConcurrentBuilds bounds pkg/derive's build semaphore
	// (go4.org/syncutil.Sem), grounded on the teacher's ResizeSem in
	// pkg/server/image.go.
	MaxConcurrentBuilds int
}

// Default returns the zero-config defaults: cache_top and acid_dir under
// osutil.CacheDir(), bare tool names on $PATH, and a conservative build
// concurrency.
func Default() Config {
	base := osutil.CacheDir()
	return Config{
		CacheTop:            base + "/cache_top",
		AcidDir:             base + "/acid",
		JpegtranPath:        "jpegtran",
		PnmscalePath:        "pnmscale",
		PnmcutPath:          "pnmcut",
		CjpegPath:           "cjpeg",
		JpegtopnmPath:       "jpegtopnm",
		GiftopnmPath:        "giftopnm",
		PngtopnmPath:        "pngtopnm",
		PpmtogifPath:        "ppmtogif",
		PnmtopngPath:        "pnmtopng",
		MaxConcurrentBuilds: 10,
	}
}

// FromObj builds a Config from a parsed JSON Obj, layering values over
// Default() and reporting every bad-type or unrecognized key together.
func FromObj(jc Obj) (Config, error) {
	cfg := Default()
	b := newBinder(jc)
	cfg.CacheTop = b.optionalString("cacheTop", cfg.CacheTop)
	cfg.AcidDir = b.optionalString("acidDir", cfg.AcidDir)
	cfg.JpegtranPath = b.optionalString("jpegtranPath", cfg.JpegtranPath)
	cfg.PnmscalePath = b.optionalString("pnmscalePath", cfg.PnmscalePath)
	cfg.PnmcutPath = b.optionalString("pnmcutPath", cfg.PnmcutPath)
	cfg.CjpegPath = b.optionalString("cjpegPath", cfg.CjpegPath)
	cfg.JpegtopnmPath = b.optionalString("jpegtopnmPath", cfg.JpegtopnmPath)
	cfg.GiftopnmPath = b.optionalString("giftopnmPath", cfg.GiftopnmPath)
	cfg.PngtopnmPath = b.optionalString("pngtopnmPath", cfg.PngtopnmPath)
	cfg.PpmtogifPath = b.optionalString("ppmtogifPath", cfg.PpmtogifPath)
	cfg.PnmtopngPath = b.optionalString("pnmtopngPath", cfg.PnmtopngPath)
	cfg.MaxConcurrentBuilds = b.optionalInt("maxConcurrentBuilds", cfg.MaxConcurrentBuilds)

	if err := b.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

/*
Copyright 2011 Google Inc.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

     http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package osutil provides operating-system-specific default path
// information for the cache's on-disk state: where cache_top and acid_dir
// live when the caller doesn't specify them explicitly.
package osutil

import (
	"log"
	"os"
	"path/filepath"
	"sync"
)

// appDirName is the subdirectory this cache creates under the platform's
// standard cache/home directory. config.Default() places CacheTop/AcidDir
// under CacheDir(), so they sit inside it unless IMGCACHE_CACHE_DIR is set.
const appDirName = "imgcache"

// HomeDir returns the path to the user's home directory, or "" if unknown.
func HomeDir() string {
	dir, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return dir
}

var cacheDirOnce sync.Once

// CacheDir returns the platform default directory for this cache's
// on-disk state, creating it if absent. IMGCACHE_CACHE_DIR overrides it.
func CacheDir() string {
	cacheDirOnce.Do(makeCacheDir)
	return cacheDir()
}

// cacheDir defers the per-OS directory choice to os.UserCacheDir (Library/
// Caches on darwin, %LocalAppData% on windows, $XDG_CACHE_HOME or
// $HOME/.cache elsewhere) rather than hand-listing each platform's rule;
// IMGCACHE_CACHE_DIR always wins when set, and a bare home-relative dotdir
// is the last resort when the environment gives os.UserCacheDir nothing to
// work with (e.g. no $HOME in a stripped-down container).
func cacheDir() string {
	if d := os.Getenv("IMGCACHE_CACHE_DIR"); d != "" {
		return d
	}
	if base, err := os.UserCacheDir(); err == nil {
		return filepath.Join(base, appDirName)
	}
	return filepath.Join(HomeDir(), "."+appDirName)
}

func makeCacheDir() {
	if err := os.MkdirAll(cacheDir(), 0700); err != nil {
		log.Fatalf("could not create cache dir %v: %v", cacheDir(), err)
	}
}

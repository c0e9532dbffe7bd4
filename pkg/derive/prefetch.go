package derive

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/blobcache/imgcache/pkg/imagekey"
)

// Prefetch builds every key in keys concurrently (bounded by the engine's
// own build semaphore) and returns the first error encountered, if any.
// It is not part of the spec's required operation set (§4.E names only
// Get); it exists because the spec's single-flight/semaphore design (§5,
// §9) already makes concurrent Get calls for different keys safe, and a
// caller warming a derivation tree (e.g. every Scaled variant of a newly
// uploaded image) benefits from issuing them together instead of
// serially.
func (e *Engine) Prefetch(ctx context.Context, keys []imagekey.Key) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, k := range keys {
		k := k
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			_, err := e.Get(k)
			return err
		})
	}
	return g.Wait()
}

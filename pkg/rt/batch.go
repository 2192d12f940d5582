package rt

import (
	"context"
	"runtime"

	"github.com/chazu/rayweave/pkg/kernel"
	"golang.org/x/sync/errgroup"
)

// ShootBatch shoots rays over workers goroutines, each with its own
// Resource, and calls fn with every ray's partitions. fn runs on the
// worker goroutine and must not keep parts after it returns. Worker w
// takes a contiguous share of rays; the first len(rays)%workers workers
// take one extra.
//
// ctx only stops new rays from being started: a shot in flight always
// completes. The first error returned by fn, or ctx's error, is
// returned.
func ShootBatch(ctx context.Context, sc *Scene, rays []kernel.Ray, workers int, opts Options,
	fn func(i int, parts []Partition) error) error {
	if workers < 1 {
		workers = runtime.NumCPU()
	}
	if workers > len(rays) {
		workers = len(rays)
	}
	if workers == 0 {
		return ctx.Err()
	}
	per, rem := len(rays)/workers, len(rays)%workers

	g, gctx := errgroup.WithContext(ctx)
	start := 0
	for w := 0; w < workers; w++ {
		n := per
		if w < rem {
			n++
		}
		lo, hi := start, start+n
		start = hi
		res := NewResource(w)
		g.Go(func() error {
			for i := lo; i < hi; i++ {
				if err := gctx.Err(); err != nil {
					return err
				}
				if err := fn(i, res.Shoot(sc, rays[i], opts)); err != nil {
					return err
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}

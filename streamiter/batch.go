package streamiter

import (
	"context"
	"io"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/ddexkit/erncore/flatten"
)

// ParseAllStreaming drains each of srcs with an Iterator, running up to
// maxConcurrency in parallel, and returns every FlatRelease collected
// across all sources in srcs order (not emission order, since sources run
// concurrently). It exists for batch ingestion jobs that want streaming's
// bounded memory per source without giving up parallelism across sources
// (spec §5 "batch/parallel helpers").
func ParseAllStreaming(ctx context.Context, srcs []io.Reader, cfg Config, maxConcurrency int64) ([][]*flatten.FlatRelease, error) {
	if maxConcurrency <= 0 {
		maxConcurrency = 1
	}
	sem := semaphore.NewWeighted(maxConcurrency)
	g, gctx := errgroup.WithContext(ctx)

	results := make([][]*flatten.FlatRelease, len(srcs))
	for i, src := range srcs {
		i, src := i, src
		if err := sem.Acquire(gctx, 1); err != nil {
			return nil, err
		}
		g.Go(func() error {
			defer sem.Release(1)
			it := Open(gctx, src, cfg)
			defer it.Close()
			var out []*flatten.FlatRelease
			for {
				rel, err := it.Next()
				if err == io.EOF {
					break
				}
				if err != nil {
					return err
				}
				out = append(out, rel)
			}
			results[i] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

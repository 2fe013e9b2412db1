package pipeline

import (
	"context"
	"runtime"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// CompileBatch compiles every unit file in parallel, at most opts.Jobs at a
// time. Results keep the order of paths. A failing unit never stops the
// others; only cancellation of ctx does, and it is the only error returned.
func CompileBatch(ctx context.Context, paths []string, opts Options) ([]*Result, error) {
	if len(paths) == 0 {
		return nil, nil
	}
	if len(paths) > 1 && opts.Prefix != "" {
		Logger().Warn("header prefix ignored for multi-unit builds",
			zap.String("prefix", opts.Prefix), zap.Int("units", len(paths)))
		opts.Prefix = ""
	}
	jobs := opts.Jobs
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}

	// indices are unique per goroutine, no mutex needed
	results := make([]*Result, len(paths))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(min(jobs, len(paths)))
	for i, path := range paths {
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}
			results[i] = CompileFile(gctx, path, opts)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return results, err
	}
	if err := ctx.Err(); err != nil {
		return results, err
	}

	failed := 0
	for _, r := range results {
		if r.Failed() {
			failed++
		}
	}
	Logger().Info("batch compiled", zap.Int("units", len(paths)), zap.Int("failed", failed), zap.Int("jobs", jobs))
	return results, nil
}

// internal/pipeline/run.go
package pipeline

import (
	"context"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"swineotype/internal/report"
)

// Sample is the per-assembly capability Run drives.
type Sample interface {
	Process(ctx context.Context, assembly string) (report.Record, error)
}

// Run processes assemblies with at most jobs in flight. A failing assembly
// becomes a SKIPPED record and the rest continue. done is called once per
// assembly as it finishes, never concurrently. Records come back in input
// order; the error is non-nil only when ctx was cancelled.
func Run(ctx context.Context, s Sample, assemblies []string, jobs int, log *zap.Logger, done func(report.Record)) ([]report.Record, error) {
	if jobs < 1 {
		jobs = 1
	}
	if log == nil {
		log = zap.NewNop()
	}
	recs := make([]report.Record, len(assemblies))

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(jobs)
	for i, asm := range assemblies {
		i, asm := i, asm
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			rec, err := s.Process(gctx, asm)
			if err != nil {
				if cerr := gctx.Err(); cerr != nil {
					return cerr
				}
				log.Warn("sample skipped", zap.String("sample", asm), zap.Error(err))
				rec = report.Skipped(asm, err)
			}
			mu.Lock()
			recs[i] = rec
			if done != nil {
				done(rec)
			}
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return recs, err
	}
	return recs, ctx.Err()
}

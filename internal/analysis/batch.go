// Package analysis implements the brand-mention analysis engine: it drives
// LLM calls over a battery of questions under bounded concurrency, parses
// unreliable model output into structured brand mentions, and consolidates
// results across questions and brands.
package analysis

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"
)

// RunAll processes items in consecutive windows of size limit. All items in
// a window start together and the runner waits for the whole window to
// settle before starting the next, so in-flight work never exceeds limit.
// A slow outlier therefore delays the next window even when other capacity
// is free; callers wanting partial-failure tolerance must absorb errors
// inside processor, because any processor error fails the window and
// propagates.
//
// Output order matches input order regardless of completion order: each
// item writes its result to the slot at its own index. onProgress, when
// non-nil, receives a monotonically increasing completed count; calls are
// serialized, so it must not block on other items in the window.
func RunAll[T, R any](
	ctx context.Context,
	items []T,
	limit int,
	processor func(ctx context.Context, item T, index int) (R, error),
	onProgress func(completed, total int),
) ([]R, error) {
	if limit <= 0 {
		limit = 1
	}

	results := make([]R, len(items))
	total := len(items)

	var mu sync.Mutex
	completed := 0

	for start := 0; start < len(items); start += limit {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		end := start + limit
		if end > len(items) {
			end = len(items)
		}

		g, gctx := errgroup.WithContext(ctx)
		for i := start; i < end; i++ {
			g.Go(func() error {
				r, err := processor(gctx, items[i], i)
				if err != nil {
					return err
				}
				results[i] = r

				// Increment and delivery stay under the same lock so
				// counts arrive in order even across goroutines.
				mu.Lock()
				completed++
				if onProgress != nil {
					onProgress(completed, total)
				}
				mu.Unlock()
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
	}

	return results, nil
}

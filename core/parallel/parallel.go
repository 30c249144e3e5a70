// Package parallel holds the CPU fan-out helpers used by the estimators and
// the bounded worker pool used by the trainer.
package parallel

import (
	"context"
	"runtime"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Parallelize splits [0, items) into one contiguous range per CPU and runs fn
// on each range concurrently.
func Parallelize(items int, fn func(start, end int)) {
	if items == 0 {
		return
	}

	numWorkers := runtime.NumCPU()
	if numWorkers > items {
		numWorkers = items
	}
	chunkSize := (items + numWorkers - 1) / numWorkers

	var wg sync.WaitGroup
	for i := 0; i < numWorkers; i++ {
		start := i * chunkSize
		end := start + chunkSize
		if end > items {
			end = items
		}
		if start >= end {
			continue
		}

		wg.Add(1)
		go func(s, e int) {
			defer wg.Done()
			fn(s, e)
		}(start, end)
	}
	wg.Wait()
}

// ParallelizeWithThreshold runs fn sequentially over the whole range when
// items <= threshold and calls Parallelize otherwise.
func ParallelizeWithThreshold(items int, threshold int, fn func(start, end int)) {
	if items <= threshold {
		fn(0, items)
		return
	}
	Parallelize(items, fn)
}

// ForEach calls fn(ctx, i) for every i in [0, n) with at most workers calls
// in flight. workers <= 1 runs the calls in order on the calling goroutine.
// Calls never see each other's errors: fn is expected to contain its own
// failures, and ForEach only stops scheduling new calls once ctx is done.
// It returns ctx.Err() if the context ended before every call was started.
func ForEach(ctx context.Context, n, workers int, fn func(ctx context.Context, i int)) error {
	if workers <= 1 {
		for i := 0; i < n; i++ {
			if err := ctx.Err(); err != nil {
				return err
			}
			fn(ctx, i)
		}
		return nil
	}

	var g errgroup.Group
	g.SetLimit(workers)
	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			_ = g.Wait()
			return err
		}
		i := i
		g.Go(func() error {
			fn(ctx, i)
			return nil
		})
	}
	return g.Wait()
}

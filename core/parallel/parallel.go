// Package parallel splits index ranges across CPU cores for the
// embarrassingly parallel loops in prediction and scoring.
package parallel

import (
	"runtime"
	"sync"
)

// Parallelize splits [0, items) into per-core chunks and runs fn on
// each chunk concurrently, returning when all chunks are done. fn must
// not touch indices outside its [start, end) range.
func Parallelize(items int, fn func(start, end int)) {
	if items == 0 {
		return
	}

	workers := runtime.NumCPU()
	if workers > items {
		workers = items
	}
	chunk := (items + workers - 1) / workers

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		start := i * chunk
		end := start + chunk
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

// ParallelizeWithThreshold runs fn sequentially for small workloads,
// where goroutine overhead costs more than it saves, and in parallel
// above the threshold.
func ParallelizeWithThreshold(items, threshold int, fn func(start, end int)) {
	if items <= threshold {
		fn(0, items)
		return
	}
	Parallelize(items, fn)
}

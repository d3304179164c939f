package mdpost

import (
	"context"
	"runtime"
	"sync"
	"time"
)

// Pool sizing constants.
const (
	// MinPoolSize ensures at least one worker is available.
	MinPoolSize = 1

	// MaxPoolSize caps concurrent interpreters; each kernel holds its own
	// process and namespace.
	MaxPoolSize = 8

	// cpuDivisor leaves headroom for the kernel processes themselves.
	cpuDivisor = 2
)

// BatchResult is the outcome of one render of RenderAll.
type BatchResult struct {
	Input    Input
	Result   *Result
	Err      error
	Duration time.Duration
}

// RenderAll renders inputs with up to workers renders in flight. Results
// keep the order of inputs. Inputs not started when ctx is done fail with
// the context error.
func (r *Renderer) RenderAll(ctx context.Context, inputs []Input, workers int) []BatchResult {
	if len(inputs) == 0 {
		return nil
	}

	concurrency := ResolvePoolSize(workers)
	if concurrency > len(inputs) {
		concurrency = len(inputs)
	}

	results := make([]BatchResult, len(inputs))
	jobs := make(chan int, len(inputs))
	var wg sync.WaitGroup

	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				in := inputs[idx]
				if err := ctx.Err(); err != nil {
					results[idx] = BatchResult{Input: in, Err: err}
					continue
				}
				start := time.Now()
				res, err := r.Render(ctx, in)
				results[idx] = BatchResult{Input: in, Result: res, Err: err, Duration: time.Since(start)}
			}
		}()
	}

	for i := range inputs {
		jobs <- i
	}
	close(jobs)

	wg.Wait()
	return results
}

// ResolvePoolSize determines how many renders run at once.
// Priority: explicit workers > GOMAXPROCS-based calculation.
func ResolvePoolSize(workers int) int {
	if workers > 0 {
		return workers
	}

	// GOMAXPROCS is adjusted by automaxprocs in containers.
	n := runtime.GOMAXPROCS(0) / cpuDivisor

	if n < MinPoolSize {
		return MinPoolSize
	}
	if n > MaxPoolSize {
		return MaxPoolSize
	}
	return n
}

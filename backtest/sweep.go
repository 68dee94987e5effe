package backtest

import (
	"context"
	"sync"
)

// RunSpec is one run of a parameter sweep. Build must construct a fresh
// engine with its own feed, simulator and ledger so concurrent runs
// share no mutable state; input series may be shared read-only.
type RunSpec struct {
	Name  string
	Build func() (*Engine, error)
}

// SweepResult pairs a spec with its run outcome.
type SweepResult struct {
	Name   string
	Result Result
	Err    error
}

// RunAll executes every spec, at most workers at a time, and returns
// results in spec order. Individual run failures are reported per spec;
// they do not stop the sweep. ctx cancellation propagates into each
// engine's cooperative check.
func RunAll(ctx context.Context, specs []RunSpec, workers int) []SweepResult {
	if workers <= 0 {
		workers = 1
	}
	if workers > len(specs) {
		workers = len(specs)
	}

	results := make([]SweepResult, len(specs))
	jobs := make(chan int)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				results[i] = runOne(ctx, specs[i])
			}
		}()
	}

	for i := range specs {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	return results
}

func runOne(ctx context.Context, spec RunSpec) SweepResult {
	out := SweepResult{Name: spec.Name}

	eng, err := spec.Build()
	if err != nil {
		out.Err = err
		return out
	}
	if err := eng.Run(ctx); err != nil {
		out.Err = err
		return out
	}
	out.Result, out.Err = eng.Result()
	return out
}

package simulation

import (
	"sync"
)

// WorkerPool manages a pool of worker goroutines for parallel trial
// evaluation. Trials are independent, so correctness never depends on
// parallel execution; the pool only spreads the work.
type WorkerPool struct {
	numWorkers int
}

// NewWorkerPool creates a new worker pool with the specified number of workers
func NewWorkerPool(numWorkers int) *WorkerPool {
	if numWorkers <= 0 {
		numWorkers = 4 // Default to 4 workers
	}
	return &WorkerPool{
		numWorkers: numWorkers,
	}
}

// trialOutcome is the result of a single Monte Carlo trial.
type trialOutcome struct {
	index   int
	outcome float64
	shares  []float64 // per-channel conversion share, in channel order
}

// RunTrials executes fn for trial indices [0, runs) across the pool and
// returns the results ordered by trial index. fn must be safe for
// concurrent use; determinism is preserved by deriving each trial's random
// source from the trial index, not from scheduling order.
func (wp *WorkerPool) RunTrials(runs int, fn func(trial int) (float64, []float64)) []trialOutcome {
	if runs <= 0 {
		return []trialOutcome{}
	}

	jobs := make(chan int, runs)
	results := make(chan trialOutcome, runs)

	numActualWorkers := wp.numWorkers
	if runs < numActualWorkers {
		numActualWorkers = runs // Don't spawn more workers than trials
	}

	var wg sync.WaitGroup
	for i := 0; i < numActualWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for trial := range jobs {
				value, shares := fn(trial)
				results <- trialOutcome{index: trial, outcome: value, shares: shares}
			}
		}()
	}

	for trial := 0; trial < runs; trial++ {
		jobs <- trial
	}
	close(jobs)

	wg.Wait()
	close(results)

	ordered := make([]trialOutcome, runs)
	for result := range results {
		ordered[result.index] = result
	}
	return ordered
}

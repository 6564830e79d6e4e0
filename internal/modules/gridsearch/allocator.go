// Package gridsearch implements the constrained discrete-grid allocator.
// It enumerates candidate allocations on a discretized simplex, scores each
// one with the deterministic outcome model, and keeps the best.
//
// The result is a combinatorial optimum over the grid, not a continuous
// optimum. That is an intentional approximation: the step granularity is
// part of the contract, and a finer answer belongs to an additional
// strategy source, not to a replacement of this baseline.
package gridsearch

import (
	"fmt"
	"math"

	"github.com/rs/zerolog"

	"github.com/aristath/adbudget/internal/domain"
	"github.com/aristath/adbudget/internal/modules/outcome"
)

// DefaultStep is the default grid resolution (5 percentage points).
const DefaultStep = 0.05

// Result holds the best candidate found on the grid.
type Result struct {
	Allocation domain.Allocation `json:"allocation"`
	Outcome    float64           `json:"outcome"`
	Candidates int               `json:"candidates"` // feasible candidates evaluated
}

// Allocator enumerates and scores grid candidates.
type Allocator struct {
	step float64
	log  zerolog.Logger
}

// NewAllocator creates a grid allocator with the given step size. Steps
// outside (0, 0.25] fall back to the default, and any accepted step is
// snapped to the nearest exact divisor of 1: with a non-divisor step every
// candidate would sum to steps*step instead of 1, breaking the allocation
// invariant.
func NewAllocator(step float64, log zerolog.Logger) *Allocator {
	if step <= 0 || step > 0.25 {
		step = DefaultStep
	}
	step = 1 / float64(int(math.Round(1/step)))
	return &Allocator{
		step: step,
		log:  log.With().Str("component", "grid_allocator").Logger(),
	}
}

// Search finds the best allocation on the grid for the given inputs.
//
// Candidates are generated in the stable channel order (google, meta,
// tiktok, linkedin); ties are broken by the first candidate encountered,
// which makes results reproducible across runs.
func (a *Allocator) Search(budget float64, priors domain.Priors, assumptions domain.Assumptions) (*Result, error) {
	if budget <= 0 {
		return nil, fmt.Errorf("%w: budget must be > 0", domain.ErrInvalidInput)
	}
	if err := priors.Validate(); err != nil {
		return nil, err
	}
	if err := assumptions.Validate(); err != nil {
		return nil, err
	}

	samples := outcome.Midpoints(priors)
	steps := int(math.Round(1 / a.step))

	var (
		best       domain.Allocation
		bestValue  float64
		candidates int
	)

	// Three free indices; the fourth channel takes the remainder, so every
	// candidate sums to 1 by construction.
	for i := 0; i <= steps; i++ {
		for j := 0; i+j <= steps; j++ {
			for k := 0; i+j+k <= steps; k++ {
				l := steps - i - j - k

				candidate := domain.Allocation{
					domain.ChannelGoogle:   float64(i) * a.step,
					domain.ChannelMeta:     float64(j) * a.step,
					domain.ChannelTikTok:   float64(k) * a.step,
					domain.ChannelLinkedIn: float64(l) * a.step,
				}
				if !candidate.SatisfiesBounds(assumptions) {
					continue
				}

				value, err := outcome.Evaluate(budget, candidate, samples, assumptions)
				if err != nil {
					return nil, err
				}
				candidates++

				// Strict comparison keeps the first candidate on ties.
				if best == nil || outcome.Better(assumptions.Goal, value, bestValue) {
					best = candidate
					bestValue = value
				}
			}
		}
	}

	if best == nil {
		return nil, fmt.Errorf("%w: no grid candidate satisfies the channel bounds at step %.2f",
			domain.ErrInfeasibleConstraints, a.step)
	}

	a.log.Debug().
		Int("candidates", candidates).
		Float64("best_outcome", bestValue).
		Str("goal", string(assumptions.Goal)).
		Msg("Grid search complete")

	return &Result{
		Allocation: best,
		Outcome:    bestValue,
		Candidates: candidates,
	}, nil
}

// Package strategies provides the independent allocation strategies whose
// results feed the ensemble combiner. The discrete grid search stays the
// deterministic baseline; the gradient-style and Bayesian-style searches are
// additional AlgorithmResult sources, never replacements for it.
package strategies

import (
	"math"

	"github.com/rs/zerolog"

	"github.com/aristath/adbudget/internal/domain"
	"github.com/aristath/adbudget/internal/modules/gridsearch"
)

// Strategy produces one candidate allocation for the ensemble.
type Strategy interface {
	Name() string
	Optimize(budget float64, priors domain.Priors, assumptions domain.Assumptions) (domain.AlgorithmResult, error)
}

// GridStrategy wraps the discrete grid allocator as a strategy source.
type GridStrategy struct {
	allocator *gridsearch.Allocator
}

// NewGridStrategy creates the baseline grid strategy.
func NewGridStrategy(step float64, log zerolog.Logger) *GridStrategy {
	return &GridStrategy{allocator: gridsearch.NewAllocator(step, log)}
}

// Name returns the strategy identifier.
func (s *GridStrategy) Name() string { return "grid_search" }

// Optimize runs the grid search and wraps its result.
func (s *GridStrategy) Optimize(budget float64, priors domain.Priors, assumptions domain.Assumptions) (domain.AlgorithmResult, error) {
	result, err := s.allocator.Search(budget, priors, assumptions)
	if err != nil {
		return domain.AlgorithmResult{}, err
	}
	return domain.AlgorithmResult{
		Name:        s.Name(),
		Allocation:  result.Allocation,
		Confidence:  0.9, // exhaustive over its grid, the most trusted source
		Performance: result.Outcome,
	}, nil
}

// feasibleStart builds a starting allocation that respects the channel
// bounds: every channel gets its minimum, and the remaining mass is spread
// over channels with headroom.
func feasibleStart(assumptions domain.Assumptions) domain.Allocation {
	alloc := make(domain.Allocation, domain.NumChannels)
	var allocated float64
	for _, ch := range domain.ChannelOrder {
		lo, _ := assumptions.Bounds(ch)
		alloc[ch] = lo
		allocated += lo
	}

	remaining := 1 - allocated
	for iter := 0; iter < domain.NumChannels && remaining > domain.AllocationTolerance; iter++ {
		var open []domain.Channel
		for _, ch := range domain.ChannelOrder {
			_, hi := assumptions.Bounds(ch)
			if alloc[ch] < hi-domain.AllocationTolerance {
				open = append(open, ch)
			}
		}
		if len(open) == 0 {
			break
		}
		share := remaining / float64(len(open))
		for _, ch := range open {
			_, hi := assumptions.Bounds(ch)
			add := math.Min(share, hi-alloc[ch])
			alloc[ch] += add
			remaining -= add
		}
	}
	return alloc
}

// clampToBounds projects an allocation into the per-channel bounds and
// renormalizes. Renormalization can push a value back out of bounds, so the
// projection is repeated a few times; four channels converge quickly.
func clampToBounds(alloc domain.Allocation, assumptions domain.Assumptions) domain.Allocation {
	out := alloc.Clone()
	for iter := 0; iter < 10; iter++ {
		for _, ch := range domain.ChannelOrder {
			lo, hi := assumptions.Bounds(ch)
			v := out[ch]
			if math.IsNaN(v) {
				v = lo
			}
			out[ch] = math.Max(lo, math.Min(hi, v))
		}
		if math.Abs(out.Sum()-1) <= domain.AllocationTolerance {
			break
		}
		out = out.Normalized()
	}
	return out
}

package strategies

import (
	"math/rand"

	"github.com/rs/zerolog"

	"github.com/aristath/adbudget/internal/domain"
	"github.com/aristath/adbudget/internal/modules/outcome"
)

// BayesianStrategy performs a Bayesian-style adaptive random search: each
// round samples candidates from a neighborhood around the incumbent and the
// neighborhood shrinks as the search converges on a region. It is cheap,
// derivative-free, and intentionally different in character from both the
// grid and the gradient searches so the ensemble has genuinely independent
// opinions.
type BayesianStrategy struct {
	rounds   int
	perRound int
	seed     int64
	log      zerolog.Logger
}

// NewBayesianStrategy creates an adaptive search strategy. The seed makes
// the search repeatable in tests; production callers pass a clock value.
func NewBayesianStrategy(seed int64, log zerolog.Logger) *BayesianStrategy {
	return &BayesianStrategy{
		rounds:   12,
		perRound: 40,
		seed:     seed,
		log:      log.With().Str("component", "bayesian_strategy").Logger(),
	}
}

// Name returns the strategy identifier.
func (s *BayesianStrategy) Name() string { return "bayesian_search" }

// Optimize samples allocations around a shrinking neighborhood of the best
// point seen so far.
func (s *BayesianStrategy) Optimize(budget float64, priors domain.Priors, assumptions domain.Assumptions) (domain.AlgorithmResult, error) {
	if err := priors.Validate(); err != nil {
		return domain.AlgorithmResult{}, err
	}
	if err := assumptions.Validate(); err != nil {
		return domain.AlgorithmResult{}, err
	}

	samples := outcome.Midpoints(priors)
	rng := rand.New(rand.NewSource(s.seed))

	best := clampToBounds(feasibleStart(assumptions), assumptions)
	bestValue, err := outcome.Evaluate(budget, best, samples, assumptions)
	if err != nil {
		return domain.AlgorithmResult{}, err
	}

	// Neighborhood width decays geometrically each round.
	width := 0.5
	for round := 0; round < s.rounds; round++ {
		for i := 0; i < s.perRound; i++ {
			candidate := s.perturb(best, width, rng, assumptions)
			value, err := outcome.Evaluate(budget, candidate, samples, assumptions)
			if err != nil {
				continue
			}
			if outcome.Better(assumptions.Goal, value, bestValue) {
				best = candidate
				bestValue = value
			}
		}
		width *= 0.75
	}

	s.log.Debug().
		Float64("performance", bestValue).
		Int("rounds", s.rounds).
		Msg("Adaptive search complete")

	return domain.AlgorithmResult{
		Name:        s.Name(),
		Allocation:  best,
		Confidence:  0.6,
		Performance: bestValue,
	}, nil
}

// perturb draws a candidate near the incumbent, clamped into bounds and
// renormalized to the simplex.
func (s *BayesianStrategy) perturb(base domain.Allocation, width float64, rng *rand.Rand, assumptions domain.Assumptions) domain.Allocation {
	candidate := make(domain.Allocation, domain.NumChannels)
	for _, ch := range domain.ChannelOrder {
		candidate[ch] = base[ch] + rng.NormFloat64()*width
	}
	return clampToBounds(candidate, assumptions)
}

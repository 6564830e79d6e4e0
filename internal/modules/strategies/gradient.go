package strategies

import (
	"fmt"
	"math"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/optimize"

	"github.com/aristath/adbudget/internal/domain"
	"github.com/aristath/adbudget/internal/modules/outcome"
)

// GradientStrategy runs a continuous search over the simplex using a
// penalty method: the outcome objective plus a quadratic penalty on the
// sum-to-1 constraint, with candidates projected into their bounds before
// every evaluation. Nelder-Mead is tried first, BFGS (with numerical
// gradients) as a fallback.
type GradientStrategy struct {
	log zerolog.Logger
}

// NewGradientStrategy creates a gradient-style strategy.
func NewGradientStrategy(log zerolog.Logger) *GradientStrategy {
	return &GradientStrategy{
		log: log.With().Str("component", "gradient_strategy").Logger(),
	}
}

// Name returns the strategy identifier.
func (s *GradientStrategy) Name() string { return "gradient_search" }

// Optimize searches for the best allocation with a penalized continuous
// objective. The final point is projected to bounds and renormalized so the
// usual allocation invariants hold.
func (s *GradientStrategy) Optimize(budget float64, priors domain.Priors, assumptions domain.Assumptions) (domain.AlgorithmResult, error) {
	if err := priors.Validate(); err != nil {
		return domain.AlgorithmResult{}, err
	}
	if err := assumptions.Validate(); err != nil {
		return domain.AlgorithmResult{}, err
	}

	samples := outcome.Midpoints(priors)
	penaltyWeight := 1000.0

	// Direction: minimize for cac, maximize (minimize the negation)
	// otherwise.
	sign := -1.0
	if assumptions.Goal.LowerIsBetter() {
		sign = 1.0
	}

	problem := optimize.Problem{
		Func: func(x []float64) float64 {
			alloc := s.projected(x, assumptions)

			value, err := outcome.Evaluate(budget, alloc, samples, assumptions)
			if err != nil {
				return math.MaxFloat64
			}

			obj := sign * value

			sum := 0.0
			for _, ch := range domain.ChannelOrder {
				sum += alloc[ch]
			}
			obj += penaltyWeight * (sum - 1.0) * (sum - 1.0)

			return obj
		},
	}

	start := feasibleStart(assumptions)
	initial := make([]float64, domain.NumChannels)
	for i, ch := range domain.ChannelOrder {
		initial[i] = start[ch]
	}

	successStatuses := map[optimize.Status]bool{
		optimize.Success:             true,
		optimize.GradientThreshold:   true,
		optimize.FunctionConvergence: true,
	}

	result, err := optimize.Minimize(problem, initial, &optimize.Settings{}, &optimize.NelderMead{})
	if err != nil || !successStatuses[result.Status] {
		result, err = optimize.Minimize(problem, initial, &optimize.Settings{}, &optimize.BFGS{})
		if err != nil {
			return domain.AlgorithmResult{}, fmt.Errorf("gradient search failed: %w", err)
		}
		if !successStatuses[result.Status] {
			return domain.AlgorithmResult{}, fmt.Errorf("gradient search did not converge: status=%v", result.Status)
		}
	}

	final := clampToBounds(s.projected(result.X, assumptions), assumptions)
	performance, err := outcome.Evaluate(budget, final, samples, assumptions)
	if err != nil {
		return domain.AlgorithmResult{}, err
	}

	s.log.Debug().
		Float64("performance", performance).
		Str("goal", string(assumptions.Goal)).
		Msg("Gradient search complete")

	return domain.AlgorithmResult{
		Name:        s.Name(),
		Allocation:  final,
		Confidence:  0.7,
		Performance: performance,
	}, nil
}

// projected maps a raw optimizer point into a bounds-respecting allocation.
func (s *GradientStrategy) projected(x []float64, assumptions domain.Assumptions) domain.Allocation {
	alloc := make(domain.Allocation, domain.NumChannels)
	for i, ch := range domain.ChannelOrder {
		lo, hi := assumptions.Bounds(ch)
		v := x[i]
		if math.IsNaN(v) {
			v = lo
		}
		alloc[ch] = math.Max(lo, math.Min(hi, v))
	}
	return alloc
}

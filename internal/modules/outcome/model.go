// Package outcome implements the deterministic outcome model: a pure
// function from (budget, allocation, priors, assumptions) to a scalar
// business outcome (expected demos, revenue, or CAC).
package outcome

import (
	"fmt"
	"math"

	"github.com/aristath/adbudget/internal/domain"
)

// ConversionEpsilon guards the CAC division. When total conversions fall
// below it, the model returns the large-but-finite cost budget/epsilon
// instead of dividing by zero.
const ConversionEpsilon = 1e-6

// MetricSample is a single point estimate of a channel's metrics, either
// the range midpoints (deterministic mode) or a Monte Carlo draw.
type MetricSample struct {
	CPM float64
	CTR float64
	CVR float64
}

// Samples maps every channel to a point estimate of its metrics.
type Samples map[domain.Channel]MetricSample

// Midpoints builds deterministic samples from the midpoint of every range.
func Midpoints(priors domain.Priors) Samples {
	samples := make(Samples, domain.NumChannels)
	for _, ch := range domain.ChannelOrder {
		m := priors[ch]
		samples[ch] = MetricSample{
			CPM: m.CPM.Mid(),
			CTR: m.CTR.Mid(),
			CVR: m.CVR.Mid(),
		}
	}
	return samples
}

// ChannelConversions computes each channel's expected conversions under the
// given samples: spend/cpm*1000 impressions, times CTR clicks, times CVR.
func ChannelConversions(budget float64, alloc domain.Allocation, samples Samples) map[domain.Channel]float64 {
	conversions := make(map[domain.Channel]float64, domain.NumChannels)
	for _, ch := range domain.ChannelOrder {
		s := samples[ch]
		if s.CPM <= 0 {
			conversions[ch] = 0
			continue
		}
		spend := budget * alloc[ch]
		impressions := spend / s.CPM * 1000
		clicks := impressions * s.CTR
		conversions[ch] = clicks * s.CVR
	}
	return conversions
}

// TotalConversions sums expected conversions across all channels.
func TotalConversions(budget float64, alloc domain.Allocation, samples Samples) float64 {
	var total float64
	for _, c := range ChannelConversions(budget, alloc, samples) {
		total += c
	}
	return total
}

// Evaluate maps the sampled funnel to the goal's outcome value.
//
// demos:   total conversions
// revenue: total conversions * avgDealSize
// cac:     budget / max(total conversions, epsilon); lower is better, and
//          callers must invert the comparison direction for this goal.
//
// The function is pure: identical inputs always yield identical outputs.
func Evaluate(budget float64, alloc domain.Allocation, samples Samples, assumptions domain.Assumptions) (float64, error) {
	if budget <= 0 || math.IsNaN(budget) || math.IsInf(budget, 0) {
		return 0, fmt.Errorf("%w: budget must be a positive finite number", domain.ErrInvalidInput)
	}

	total := TotalConversions(budget, alloc, samples)

	switch assumptions.Goal {
	case domain.GoalDemos:
		return total, nil
	case domain.GoalRevenue:
		if assumptions.AvgDealSize <= 0 {
			return 0, fmt.Errorf("%w: goal=revenue requires avgDealSize > 0", domain.ErrInvalidAssumptions)
		}
		return total * assumptions.AvgDealSize, nil
	case domain.GoalCAC:
		// Degenerate outcome: with ~zero conversions the cost saturates at
		// budget/epsilon rather than raising a division error.
		return budget / math.Max(total, ConversionEpsilon), nil
	default:
		return 0, fmt.Errorf("%w: unknown goal %q", domain.ErrInvalidInput, assumptions.Goal)
	}
}

// EvaluateDeterministic evaluates the model using midpoint priors, the
// point-estimate mode used by the grid allocator.
func EvaluateDeterministic(budget float64, alloc domain.Allocation, priors domain.Priors, assumptions domain.Assumptions) (float64, error) {
	return Evaluate(budget, alloc, Midpoints(priors), assumptions)
}

// IsDegenerateCAC reports whether a CAC evaluation hit the zero-conversion
// sentinel for the given inputs.
func IsDegenerateCAC(budget float64, alloc domain.Allocation, samples Samples) bool {
	return TotalConversions(budget, alloc, samples) < ConversionEpsilon
}

// Better reports whether outcome a beats outcome b under the goal's
// comparison direction.
func Better(goal domain.Goal, a, b float64) bool {
	if goal.LowerIsBetter() {
		return a < b
	}
	return a > b
}

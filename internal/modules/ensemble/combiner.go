// Package ensemble combines the results of multiple independent allocation
// strategies into a confidence-weighted final allocation, with consensus
// scoring and statistical outlier detection.
//
// Ensemble inputs originate from semi-trusted strategy implementations, so
// non-finite numbers degrade gracefully here instead of being raised as
// errors: NaN allocation entries drop that channel from the weighted sum
// for that result, and infinite confidences are clamped to a large finite
// weight.
package ensemble

import (
	"fmt"
	"math"

	"github.com/montanaflynn/stats"
	"github.com/rs/zerolog"

	"github.com/aristath/adbudget/internal/domain"
)

// Config holds the runtime-tunable combiner thresholds.
type Config struct {
	// OutlierMultiplier scales the median deviation; results farther from
	// the centroid than multiplier*median are flagged.
	OutlierMultiplier float64
	// LowConsensusThreshold triggers the low_consensus warning.
	LowConsensusThreshold float64
	// ChannelVarianceThreshold triggers high_channel_variance per channel.
	ChannelVarianceThreshold float64
	// MaxFiniteWeight caps infinite confidences.
	MaxFiniteWeight float64
}

// DefaultConfig returns the default combiner thresholds.
func DefaultConfig() Config {
	return Config{
		OutlierMultiplier:        1.75,
		LowConsensusThreshold:    0.5,
		ChannelVarianceThreshold: 0.05,
		MaxFiniteWeight:          1e6,
	}
}

// Result is the combined output of the ensemble.
type Result struct {
	FinalAllocation     domain.Allocation          `json:"finalAllocation"`
	Consensus           domain.ConsensusMetrics    `json:"consensus"`
	WeightedPerformance float64                    `json:"weightedPerformance"`
	Outliers            []string                   `json:"outliers"` // names of flagged results
	Warnings            []domain.ValidationWarning `json:"warnings"`
}

// Combiner merges strategy results.
type Combiner struct {
	cfg Config
	log zerolog.Logger
}

// NewCombiner creates a combiner with the given thresholds. Zero-valued
// thresholds fall back to the defaults.
func NewCombiner(cfg Config, log zerolog.Logger) *Combiner {
	defaults := DefaultConfig()
	if cfg.OutlierMultiplier <= 0 {
		cfg.OutlierMultiplier = defaults.OutlierMultiplier
	}
	if cfg.LowConsensusThreshold <= 0 {
		cfg.LowConsensusThreshold = defaults.LowConsensusThreshold
	}
	if cfg.ChannelVarianceThreshold <= 0 {
		cfg.ChannelVarianceThreshold = defaults.ChannelVarianceThreshold
	}
	if cfg.MaxFiniteWeight <= 0 {
		cfg.MaxFiniteWeight = defaults.MaxFiniteWeight
	}
	return &Combiner{
		cfg: cfg,
		log: log.With().Str("component", "ensemble").Logger(),
	}
}

// Combine merges the strategy results into a final allocation.
func (c *Combiner) Combine(results []domain.AlgorithmResult) (*Result, error) {
	if len(results) == 0 {
		return nil, domain.ErrEmptyEnsemble
	}

	weights := c.normalizedWeights(results)
	variance := channelVariance(results)
	agreement := agreementScore(results, variance)
	outliers := c.detectOutliers(results)

	final := c.weightedAllocation(results, weights)

	var weightedPerformance float64
	for i, r := range results {
		p := r.Performance
		if math.IsNaN(p) || math.IsInf(p, 0) {
			continue
		}
		// Outliers are reported, not silently dropped: they keep their
		// weight in the performance average.
		weightedPerformance += weights[i] * p
	}

	warnings := c.buildWarnings(results, agreement, variance, outliers)

	c.log.Debug().
		Int("results", len(results)).
		Float64("agreement", agreement).
		Int("outliers", len(outliers)).
		Msg("Ensemble combine complete")

	return &Result{
		FinalAllocation: final,
		Consensus: domain.ConsensusMetrics{
			Agreement:    agreement,
			Variance:     variance,
			OutlierCount: len(outliers),
		},
		WeightedPerformance: weightedPerformance,
		Outliers:            outliers,
		Warnings:            warnings,
	}, nil
}

// normalizedWeights converts confidences to weights summing to 1. Negative
// and NaN confidences become zero, infinities are clamped, and if every
// confidence is <= 0 the results share equal weight.
func (c *Combiner) normalizedWeights(results []domain.AlgorithmResult) []float64 {
	weights := make([]float64, len(results))
	var total float64
	for i, r := range results {
		w := r.Confidence
		switch {
		case math.IsNaN(w) || w < 0:
			w = 0
		case math.IsInf(w, 1) || w > c.cfg.MaxFiniteWeight:
			w = c.cfg.MaxFiniteWeight
		}
		weights[i] = w
		total += w
	}

	if total <= 0 {
		equal := 1.0 / float64(len(results))
		for i := range weights {
			weights[i] = equal
		}
		return weights
	}

	for i := range weights {
		weights[i] /= total
	}
	return weights
}

// weightedAllocation averages the allocations per channel. A NaN entry
// excludes that channel from the weighted sum for that result, so one bad
// strategy value cannot poison the whole channel. The final allocation is
// renormalized so its components sum to 1 exactly.
func (c *Combiner) weightedAllocation(results []domain.AlgorithmResult, weights []float64) domain.Allocation {
	final := make(domain.Allocation, domain.NumChannels)
	for _, ch := range domain.ChannelOrder {
		var sum, weightSum float64
		for i, r := range results {
			v := r.Allocation[ch]
			if math.IsNaN(v) || math.IsInf(v, 0) {
				continue
			}
			sum += weights[i] * v
			weightSum += weights[i]
		}
		if weightSum > 0 {
			final[ch] = sum / weightSum
		}
	}
	return final.Normalized()
}

// channelVariance computes per-channel variance across the contributing
// allocations, skipping non-finite entries.
func channelVariance(results []domain.AlgorithmResult) map[domain.Channel]float64 {
	variance := make(map[domain.Channel]float64, domain.NumChannels)
	for _, ch := range domain.ChannelOrder {
		values := make([]float64, 0, len(results))
		for _, r := range results {
			v := r.Allocation[ch]
			if math.IsNaN(v) || math.IsInf(v, 0) {
				continue
			}
			values = append(values, v)
		}
		if len(values) < 2 {
			variance[ch] = 0
			continue
		}
		v, err := stats.PopulationVariance(values)
		if err != nil {
			v = 0
		}
		variance[ch] = v
	}
	return variance
}

// agreementScore maps the average per-channel variance to [0,1].
// 0.25 is the maximum possible variance of values confined to [0,1], so it
// normalizes the average before inversion. A single result agrees with
// itself by definition.
func agreementScore(results []domain.AlgorithmResult, variance map[domain.Channel]float64) float64 {
	if len(results) < 2 {
		return 1.0
	}
	var avg float64
	for _, ch := range domain.ChannelOrder {
		avg += variance[ch]
	}
	avg /= float64(domain.NumChannels)

	agreement := 1 - avg/0.25
	return math.Max(0, math.Min(1, agreement))
}

// detectOutliers flags results whose mean absolute per-channel distance
// from the centroid allocation exceeds the configured multiple of the
// median deviation. With fewer than 3 results the rule is meaningless and
// nothing is flagged.
func (c *Combiner) detectOutliers(results []domain.AlgorithmResult) []string {
	if len(results) < 3 {
		return nil
	}

	centroid := make(domain.Allocation, domain.NumChannels)
	for _, ch := range domain.ChannelOrder {
		var sum float64
		var n int
		for _, r := range results {
			v := r.Allocation[ch]
			if math.IsNaN(v) || math.IsInf(v, 0) {
				continue
			}
			sum += v
			n++
		}
		if n > 0 {
			centroid[ch] = sum / float64(n)
		}
	}

	deviations := make([]float64, len(results))
	for i, r := range results {
		deviations[i] = meanAbsDeviation(r.Allocation, centroid)
	}

	median, err := stats.Median(deviations)
	if err != nil || median <= 0 {
		// Identical allocations: no spread, no outliers.
		return nil
	}

	var outliers []string
	for i, r := range results {
		if deviations[i] > c.cfg.OutlierMultiplier*median {
			outliers = append(outliers, r.Name)
		}
	}
	return outliers
}

func meanAbsDeviation(alloc, centroid domain.Allocation) float64 {
	var sum float64
	for _, ch := range domain.ChannelOrder {
		v := alloc[ch]
		if math.IsNaN(v) || math.IsInf(v, 0) {
			v = centroid[ch]
		}
		sum += math.Abs(v - centroid[ch])
	}
	return sum / float64(domain.NumChannels)
}

func (c *Combiner) buildWarnings(
	results []domain.AlgorithmResult,
	agreement float64,
	variance map[domain.Channel]float64,
	outliers []string,
) []domain.ValidationWarning {
	var warnings []domain.ValidationWarning

	if agreement < c.cfg.LowConsensusThreshold {
		warnings = append(warnings, domain.ValidationWarning{
			Type:     domain.WarningLowConsensus,
			Message:  fmt.Sprintf("strategies disagree substantially: agreement %.2f below %.2f", agreement, c.cfg.LowConsensusThreshold),
			Severity: domain.SeverityHigh,
		})
	}

	for _, ch := range domain.ChannelOrder {
		if variance[ch] > c.cfg.ChannelVarianceThreshold {
			warnings = append(warnings, domain.ValidationWarning{
				Type:     domain.WarningHighChannelVariance,
				Message:  fmt.Sprintf("allocation variance %.4f for %s exceeds %.4f", variance[ch], ch, c.cfg.ChannelVarianceThreshold),
				Severity: domain.SeverityMedium,
				Channel:  ch,
			})
		}
	}

	for _, name := range outliers {
		warnings = append(warnings, domain.ValidationWarning{
			Type:     domain.WarningOutlierDetected,
			Message:  fmt.Sprintf("strategy %s deviates markedly from the ensemble centroid", name),
			Severity: domain.SeverityMedium,
		})
	}

	return warnings
}

// Package validation implements the benchmark-based plausibility validator.
// It derives an expected allocation from the priors' performance ratios,
// adjusts it for industry/company-size context, measures how far the actual
// allocation deviates, and raises structured warnings for concentration,
// under-diversification, benchmark drift and goal/channel mismatches.
package validation

import (
	"fmt"
	"math"
	"sync"

	"github.com/rs/zerolog"

	"github.com/aristath/adbudget/internal/domain"
)

// Thresholds holds the runtime-tunable validator limits. All of them are
// configurable at construction and via UpdateThresholds, never compiled
// constants, so callers can tune strictness.
type Thresholds struct {
	// MinAllocation/MaxAllocation bound what a single channel may
	// plausibly receive before unrealistic_allocation fires.
	MinAllocation float64
	MaxAllocation float64
	// DeviationWarn/DeviationExtreme are the per-channel benchmark
	// deviation thresholds for medium and high severity.
	DeviationWarn    float64
	DeviationExtreme float64
	// ConcentrationLimit triggers portfolio_concentration.
	ConcentrationLimit float64
	// DiversificationFloor is the share below which a channel does not
	// count as meaningfully used.
	DiversificationFloor float64
	// MismatchLinkedInFloor is the LinkedIn share below which B2B CAC
	// optimization raises goal_channel_mismatch.
	MismatchLinkedInFloor float64
}

// DefaultThresholds returns the default validator limits.
func DefaultThresholds() Thresholds {
	return Thresholds{
		MinAllocation:         0.02,
		MaxAllocation:         0.85,
		DeviationWarn:         0.20,
		DeviationExtreme:      0.35,
		ConcentrationLimit:    0.80,
		DiversificationFloor:  0.05,
		MismatchLinkedInFloor: 0.10,
	}
}

// Validator compares allocations against benchmark expectations.
type Validator struct {
	mu         sync.RWMutex
	thresholds Thresholds
	log        zerolog.Logger
}

// NewValidator creates a validator. Zero-valued threshold fields fall back
// to the defaults.
func NewValidator(t Thresholds, log zerolog.Logger) *Validator {
	defaults := DefaultThresholds()
	if t.MinAllocation <= 0 {
		t.MinAllocation = defaults.MinAllocation
	}
	if t.MaxAllocation <= 0 {
		t.MaxAllocation = defaults.MaxAllocation
	}
	if t.DeviationWarn <= 0 {
		t.DeviationWarn = defaults.DeviationWarn
	}
	if t.DeviationExtreme <= 0 {
		t.DeviationExtreme = defaults.DeviationExtreme
	}
	if t.ConcentrationLimit <= 0 {
		t.ConcentrationLimit = defaults.ConcentrationLimit
	}
	if t.DiversificationFloor <= 0 {
		t.DiversificationFloor = defaults.DiversificationFloor
	}
	if t.MismatchLinkedInFloor <= 0 {
		t.MismatchLinkedInFloor = defaults.MismatchLinkedInFloor
	}
	return &Validator{
		thresholds: t,
		log:        log.With().Str("component", "benchmark_validator").Logger(),
	}
}

// UpdateThresholds replaces the validator limits at runtime.
func (v *Validator) UpdateThresholds(t Thresholds) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.thresholds = t
}

// ExpectedAllocation derives the benchmark allocation from the priors: each
// channel scores (midCTR * midCVR) / midCPM, normalized across channels.
// When every score is zero the expectation falls back to a uniform split.
// Context adjustments are additive, clamped at zero, then renormalized.
func (v *Validator) ExpectedAllocation(priors domain.Priors, ctx *Context) domain.Allocation {
	expected := make(domain.Allocation, domain.NumChannels)
	var total float64
	for _, ch := range domain.ChannelOrder {
		m := priors[ch]
		cpm := m.CPM.Mid()
		if cpm <= 0 {
			continue
		}
		score := m.CTR.Mid() * m.CVR.Mid() / cpm
		expected[ch] = score
		total += score
	}

	if total <= 0 {
		for _, ch := range domain.ChannelOrder {
			expected[ch] = 1.0 / float64(domain.NumChannels)
		}
	} else {
		for _, ch := range domain.ChannelOrder {
			expected[ch] /= total
		}
	}

	if ctx != nil {
		applyAdjustment(expected, industryAdjustment(ctx.IndustryType))
		applyAdjustment(expected, sizeAdjustment(ctx.CompanySize))
	}

	// Clamp negatives to zero before renormalizing back to a distribution.
	for _, ch := range domain.ChannelOrder {
		if expected[ch] < 0 {
			expected[ch] = 0
		}
	}
	return expected.Normalized()
}

func applyAdjustment(alloc domain.Allocation, deltas map[domain.Channel]float64) {
	if deltas == nil {
		return
	}
	for _, ch := range domain.ChannelOrder {
		alloc[ch] += deltas[ch]
	}
}

// Validate scores an allocation against the benchmark expectation and
// raises the warning taxonomy. Warnings are additive: the same condition
// observed across calls is reported every time, never deduplicated.
func (v *Validator) Validate(alloc domain.Allocation, priors domain.Priors, ctx *Context) domain.BenchmarkAnalysis {
	v.mu.RLock()
	t := v.thresholds
	v.mu.RUnlock()

	expected := v.ExpectedAllocation(priors, ctx)

	deviations := make(map[domain.Channel]float64, domain.NumChannels)
	var totalDeviation float64
	for _, ch := range domain.ChannelOrder {
		d := math.Abs(alloc[ch] - expected[ch])
		deviations[ch] = d
		totalDeviation += d
	}
	// Two disjoint distributions on a 4-channel simplex differ by at most
	// 2 in total absolute deviation, hence the divisor.
	deviationScore := math.Min(1, totalDeviation/2)

	var warnings []domain.ValidationWarning
	warnings = append(warnings, v.realismWarnings(alloc, t)...)
	warnings = append(warnings, v.deviationWarnings(deviations, t)...)
	warnings = append(warnings, v.portfolioWarnings(alloc, ctx, t)...)

	v.log.Debug().
		Float64("deviation_score", deviationScore).
		Int("warnings", len(warnings)).
		Msg("Benchmark validation complete")

	return domain.BenchmarkAnalysis{
		DeviationScore:    deviationScore,
		ChannelDeviations: deviations,
		Warnings:          warnings,
	}
}

// realismWarnings flags channels outside absolute limits or outside their
// typical industry range.
func (v *Validator) realismWarnings(alloc domain.Allocation, t Thresholds) []domain.ValidationWarning {
	var warnings []domain.ValidationWarning
	for _, ch := range domain.ChannelOrder {
		share := alloc[ch]

		if share > 0 && share < t.MinAllocation {
			warnings = append(warnings, domain.ValidationWarning{
				Type:     domain.WarningUnrealisticAllocation,
				Message:  fmt.Sprintf("%s gets %.1f%%, below the practical minimum of %.1f%%", ch, share*100, t.MinAllocation*100),
				Severity: domain.SeverityMedium,
				Channel:  ch,
			})
		}
		if share > t.MaxAllocation {
			warnings = append(warnings, domain.ValidationWarning{
				Type:     domain.WarningUnrealisticAllocation,
				Message:  fmt.Sprintf("%s gets %.1f%%, above the practical maximum of %.1f%%", ch, share*100, t.MaxAllocation*100),
				Severity: domain.SeverityHigh,
				Channel:  ch,
			})
		}

		r, ok := typicalRanges[ch]
		if !ok {
			continue
		}
		var excursion float64
		if share < r.Lo {
			excursion = r.Lo - share
		} else if share > r.Hi {
			excursion = share - r.Hi
		}
		if excursion > 0 {
			severity := domain.SeverityMedium
			halfWidth := r.Width() / 2
			if halfWidth > 0 && excursion > 1.5*halfWidth {
				severity = domain.SeverityHigh
			}
			warnings = append(warnings, domain.ValidationWarning{
				Type:     domain.WarningUnrealisticAllocation,
				Message:  fmt.Sprintf("%s at %.1f%% sits outside its typical range of %.0f%%-%.0f%%", ch, share*100, r.Lo*100, r.Hi*100),
				Severity: severity,
				Channel:  ch,
			})
		}
	}
	return warnings
}

// deviationWarnings grades per-channel drift from the benchmark.
func (v *Validator) deviationWarnings(deviations map[domain.Channel]float64, t Thresholds) []domain.ValidationWarning {
	var warnings []domain.ValidationWarning
	for _, ch := range domain.ChannelOrder {
		d := deviations[ch]
		switch {
		case d > t.DeviationExtreme:
			warnings = append(warnings, domain.ValidationWarning{
				Type:     domain.WarningExtremeBenchmarkDeviation,
				Message:  fmt.Sprintf("%s deviates %.0f%% from the benchmark expectation", ch, d*100),
				Severity: domain.SeverityHigh,
				Channel:  ch,
			})
		case d > t.DeviationWarn:
			warnings = append(warnings, domain.ValidationWarning{
				Type:     domain.WarningBenchmarkDeviation,
				Message:  fmt.Sprintf("%s deviates %.0f%% from the benchmark expectation", ch, d*100),
				Severity: domain.SeverityMedium,
				Channel:  ch,
			})
		}
	}
	return warnings
}

// portfolioWarnings covers concentration, diversification and goal/context
// mismatches.
func (v *Validator) portfolioWarnings(alloc domain.Allocation, ctx *Context, t Thresholds) []domain.ValidationWarning {
	var warnings []domain.ValidationWarning

	for _, ch := range domain.ChannelOrder {
		if alloc[ch] > t.ConcentrationLimit {
			warnings = append(warnings, domain.ValidationWarning{
				Type:     domain.WarningPortfolioConcentration,
				Message:  fmt.Sprintf("%s holds %.1f%% of budget, above the %.0f%% concentration limit", ch, alloc[ch]*100, t.ConcentrationLimit*100),
				Severity: domain.SeverityHigh,
				Channel:  ch,
			})
		}
	}

	var active int
	for _, ch := range domain.ChannelOrder {
		if alloc[ch] > t.DiversificationFloor {
			active++
		}
	}
	if active < 2 {
		warnings = append(warnings, domain.ValidationWarning{
			Type:     domain.WarningInsufficientDiversify,
			Message:  fmt.Sprintf("only %d channel(s) receive more than %.0f%% of budget", active, t.DiversificationFloor*100),
			Severity: domain.SeverityMedium,
		})
	}

	if ctx != nil && ctx.Goal == domain.GoalCAC && ctx.IndustryType == IndustryB2B {
		if alloc[domain.ChannelLinkedIn] < t.MismatchLinkedInFloor {
			warnings = append(warnings, domain.ValidationWarning{
				Type:     domain.WarningGoalChannelMismatch,
				Message:  fmt.Sprintf("B2B CAC optimization with LinkedIn at %.1f%% is usually underweighted", alloc[domain.ChannelLinkedIn]*100),
				Severity: domain.SeverityLow,
				Channel:  domain.ChannelLinkedIn,
			})
		}
	}

	return warnings
}

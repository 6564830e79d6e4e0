package validation

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	"github.com/aristath/adbudget/internal/domain"
)

func benchPriors() domain.Priors {
	return domain.Priors{
		domain.ChannelGoogle:   {CPM: domain.Range{Lo: 8, Hi: 12}, CTR: domain.Range{Lo: 0.02, Hi: 0.05}, CVR: domain.Range{Lo: 0.05, Hi: 0.12}},
		domain.ChannelMeta:     {CPM: domain.Range{Lo: 6, Hi: 10}, CTR: domain.Range{Lo: 0.01, Hi: 0.03}, CVR: domain.Range{Lo: 0.04, Hi: 0.10}},
		domain.ChannelTikTok:   {CPM: domain.Range{Lo: 3, Hi: 6}, CTR: domain.Range{Lo: 0.01, Hi: 0.02}, CVR: domain.Range{Lo: 0.01, Hi: 0.05}},
		domain.ChannelLinkedIn: {CPM: domain.Range{Lo: 15, Hi: 25}, CTR: domain.Range{Lo: 0.005, Hi: 0.015}, CVR: domain.Range{Lo: 0.08, Hi: 0.20}},
	}
}

func newTestValidator() *Validator {
	return NewValidator(DefaultThresholds(), zerolog.Nop())
}

func countWarnings(warnings []domain.ValidationWarning, typ string) int {
	var n int
	for _, w := range warnings {
		if w.Type == typ {
			n++
		}
	}
	return n
}

func TestExpectedAllocationIsDistribution(t *testing.T) {
	expected := newTestValidator().ExpectedAllocation(benchPriors(), nil)

	assert.InDelta(t, 1.0, expected.Sum(), domain.AllocationTolerance)
	for _, ch := range domain.ChannelOrder {
		assert.GreaterOrEqual(t, expected[ch], 0.0)
	}
}

func TestExpectedAllocationUniformFallback(t *testing.T) {
	// All conversion rates zero: every score is zero, expect a uniform split.
	dead := make(domain.Priors, domain.NumChannels)
	for _, ch := range domain.ChannelOrder {
		dead[ch] = domain.ChannelMetrics{
			CPM: domain.Range{Lo: 10, Hi: 10},
			CTR: domain.Range{Lo: 0, Hi: 0},
			CVR: domain.Range{Lo: 0, Hi: 0},
		}
	}

	expected := newTestValidator().ExpectedAllocation(dead, nil)
	for _, ch := range domain.ChannelOrder {
		assert.InDelta(t, 0.25, expected[ch], 1e-9)
	}
}

func TestExpectedAllocationContextAdjustments(t *testing.T) {
	v := newTestValidator()
	baseline := v.ExpectedAllocation(benchPriors(), nil)

	t.Run("b2b shifts weight toward linkedin", func(t *testing.T) {
		adjusted := v.ExpectedAllocation(benchPriors(), &Context{IndustryType: IndustryB2B})
		assert.Greater(t, adjusted[domain.ChannelLinkedIn], baseline[domain.ChannelLinkedIn])
		assert.Less(t, adjusted[domain.ChannelTikTok], baseline[domain.ChannelTikTok])
		assert.InDelta(t, 1.0, adjusted.Sum(), domain.AllocationTolerance)
	})

	t.Run("unknown tags apply no adjustment", func(t *testing.T) {
		adjusted := v.ExpectedAllocation(benchPriors(), &Context{IndustryType: "aerospace", CompanySize: "galactic"})
		for _, ch := range domain.ChannelOrder {
			assert.InDelta(t, baseline[ch], adjusted[ch], 1e-9)
		}
	})

	t.Run("negative adjusted shares clamp to zero", func(t *testing.T) {
		// B2C pulls LinkedIn down 15 points; with a tiny baseline share the
		// result clamps at zero rather than going negative.
		adjusted := v.ExpectedAllocation(benchPriors(), &Context{IndustryType: IndustryB2C})
		assert.GreaterOrEqual(t, adjusted[domain.ChannelLinkedIn], 0.0)
		assert.InDelta(t, 1.0, adjusted.Sum(), domain.AllocationTolerance)
	})
}

func TestValidateConcentratedAllocation(t *testing.T) {
	concentrated := domain.Allocation{
		domain.ChannelGoogle:   0.95,
		domain.ChannelMeta:     0.05,
		domain.ChannelTikTok:   0,
		domain.ChannelLinkedIn: 0,
	}

	analysis := newTestValidator().Validate(concentrated, benchPriors(), nil)

	var sawConcentration, sawDiversification bool
	for _, w := range analysis.Warnings {
		switch w.Type {
		case domain.WarningPortfolioConcentration:
			sawConcentration = true
			assert.Equal(t, domain.SeverityHigh, w.Severity)
			assert.Equal(t, domain.ChannelGoogle, w.Channel)
		case domain.WarningInsufficientDiversify:
			sawDiversification = true
		}
	}
	assert.True(t, sawConcentration)
	assert.True(t, sawDiversification)
	assert.Greater(t, analysis.DeviationScore, 0.0)
}

func TestValidateRealismWarnings(t *testing.T) {
	v := newTestValidator()

	t.Run("dust allocation below practical minimum", func(t *testing.T) {
		alloc := domain.Allocation{
			domain.ChannelGoogle:   0.50,
			domain.ChannelMeta:     0.29,
			domain.ChannelTikTok:   0.20,
			domain.ChannelLinkedIn: 0.01,
		}
		analysis := v.Validate(alloc, benchPriors(), nil)
		assert.GreaterOrEqual(t, countWarnings(analysis.Warnings, domain.WarningUnrealisticAllocation), 1)
	})

	t.Run("above practical maximum is high severity", func(t *testing.T) {
		alloc := domain.Allocation{
			domain.ChannelGoogle:   0.90,
			domain.ChannelMeta:     0.10,
			domain.ChannelTikTok:   0,
			domain.ChannelLinkedIn: 0,
		}
		analysis := v.Validate(alloc, benchPriors(), nil)

		var sawHigh bool
		for _, w := range analysis.Warnings {
			if w.Type == domain.WarningUnrealisticAllocation && w.Severity == domain.SeverityHigh && w.Channel == domain.ChannelGoogle {
				sawHigh = true
			}
		}
		assert.True(t, sawHigh)
	})

	t.Run("zero share is not flagged as dust", func(t *testing.T) {
		alloc := domain.Allocation{
			domain.ChannelGoogle:   0.50,
			domain.ChannelMeta:     0.30,
			domain.ChannelTikTok:   0.20,
			domain.ChannelLinkedIn: 0,
		}
		analysis := v.Validate(alloc, benchPriors(), nil)
		for _, w := range analysis.Warnings {
			if w.Type == domain.WarningUnrealisticAllocation {
				assert.NotEqual(t, domain.ChannelLinkedIn, w.Channel)
			}
		}
	})
}

func TestValidateDeviationGrading(t *testing.T) {
	v := newTestValidator()
	expected := v.ExpectedAllocation(benchPriors(), nil)

	// Start from the benchmark itself: zero deviation, no drift warnings.
	clean := v.Validate(expected, benchPriors(), nil)
	assert.InDelta(t, 0.0, clean.DeviationScore, 1e-9)
	assert.Zero(t, countWarnings(clean.Warnings, domain.WarningBenchmarkDeviation))
	assert.Zero(t, countWarnings(clean.Warnings, domain.WarningExtremeBenchmarkDeviation))

	// Push everything into one channel: some channel must drift past the
	// extreme threshold.
	skewed := domain.Allocation{
		domain.ChannelGoogle:   1,
		domain.ChannelMeta:     0,
		domain.ChannelTikTok:   0,
		domain.ChannelLinkedIn: 0,
	}
	analysis := v.Validate(skewed, benchPriors(), nil)
	assert.GreaterOrEqual(t, countWarnings(analysis.Warnings, domain.WarningExtremeBenchmarkDeviation), 1)
	assert.Greater(t, analysis.DeviationScore, 0.3)
}

func TestValidateGoalChannelMismatch(t *testing.T) {
	alloc := domain.Allocation{
		domain.ChannelGoogle:   0.55,
		domain.ChannelMeta:     0.25,
		domain.ChannelTikTok:   0.15,
		domain.ChannelLinkedIn: 0.05,
	}

	v := newTestValidator()

	t.Run("b2b cac with low linkedin fires", func(t *testing.T) {
		ctx := &Context{IndustryType: IndustryB2B, Goal: domain.GoalCAC}
		analysis := v.Validate(alloc, benchPriors(), ctx)
		assert.Equal(t, 1, countWarnings(analysis.Warnings, domain.WarningGoalChannelMismatch))
	})

	t.Run("non-b2b does not fire", func(t *testing.T) {
		ctx := &Context{IndustryType: IndustryEcommerce, Goal: domain.GoalCAC}
		analysis := v.Validate(alloc, benchPriors(), ctx)
		assert.Zero(t, countWarnings(analysis.Warnings, domain.WarningGoalChannelMismatch))
	})

	t.Run("demos goal does not fire", func(t *testing.T) {
		ctx := &Context{IndustryType: IndustryB2B, Goal: domain.GoalDemos}
		analysis := v.Validate(alloc, benchPriors(), ctx)
		assert.Zero(t, countWarnings(analysis.Warnings, domain.WarningGoalChannelMismatch))
	})
}

func TestUpdateThresholds(t *testing.T) {
	v := newTestValidator()
	alloc := domain.Allocation{
		domain.ChannelGoogle:   0.75,
		domain.ChannelMeta:     0.15,
		domain.ChannelTikTok:   0.05,
		domain.ChannelLinkedIn: 0.05,
	}

	before := v.Validate(alloc, benchPriors(), nil)
	assert.Zero(t, countWarnings(before.Warnings, domain.WarningPortfolioConcentration))

	strict := DefaultThresholds()
	strict.ConcentrationLimit = 0.60
	v.UpdateThresholds(strict)

	after := v.Validate(alloc, benchPriors(), nil)
	assert.Equal(t, 1, countWarnings(after.Warnings, domain.WarningPortfolioConcentration))
}

func TestNewValidatorZeroThresholdsFallBack(t *testing.T) {
	v := NewValidator(Thresholds{}, zerolog.Nop())
	assert.Equal(t, DefaultThresholds(), v.thresholds)
}

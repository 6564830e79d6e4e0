package planning

import (
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/adbudget/internal/cache"
	"github.com/aristath/adbudget/internal/domain"
	"github.com/aristath/adbudget/internal/events"
	"github.com/aristath/adbudget/internal/modules/ensemble"
	"github.com/aristath/adbudget/internal/modules/gridsearch"
	"github.com/aristath/adbudget/internal/modules/simulation"
	"github.com/aristath/adbudget/internal/modules/strategies"
	"github.com/aristath/adbudget/internal/modules/validation"
)

func pipelinePriors() domain.Priors {
	return domain.Priors{
		domain.ChannelGoogle:   {CPM: domain.Range{Lo: 8, Hi: 12}, CTR: domain.Range{Lo: 0.02, Hi: 0.05}, CVR: domain.Range{Lo: 0.05, Hi: 0.12}},
		domain.ChannelMeta:     {CPM: domain.Range{Lo: 6, Hi: 10}, CTR: domain.Range{Lo: 0.01, Hi: 0.03}, CVR: domain.Range{Lo: 0.04, Hi: 0.10}},
		domain.ChannelTikTok:   {CPM: domain.Range{Lo: 3, Hi: 6}, CTR: domain.Range{Lo: 0.01, Hi: 0.02}, CVR: domain.Range{Lo: 0.01, Hi: 0.05}},
		domain.ChannelLinkedIn: {CPM: domain.Range{Lo: 15, Hi: 25}, CTR: domain.Range{Lo: 0.005, Hi: 0.015}, CVR: domain.Range{Lo: 0.08, Hi: 0.20}},
	}
}

func newTestService(t *testing.T, resultCache *cache.Cache, bus *events.Bus) *Service {
	t.Helper()
	log := zerolog.Nop()
	return NewService(
		gridsearch.NewAllocator(0.05, log),
		[]strategies.Strategy{
			strategies.NewGridStrategy(0.05, log),
			strategies.NewBayesianStrategy(42, log),
		},
		simulation.NewSimulator(2, log),
		ensemble.NewCombiner(ensemble.DefaultConfig(), log),
		validation.NewValidator(validation.DefaultThresholds(), log),
		resultCache,
		bus,
		log,
	)
}

func baseRequest() OptimizeRequest {
	return OptimizeRequest{
		Budget: 10000,
		Priors: pipelinePriors(),
		Assumptions: domain.Assumptions{
			Goal:   domain.GoalDemos,
			MinPct: map[domain.Channel]float64{domain.ChannelLinkedIn: 0.05},
			MaxPct: map[domain.Channel]float64{domain.ChannelGoogle: 0.6},
		},
		Runs: 200,
		Seed: 7,
	}
}

func TestOptimizeCorePath(t *testing.T) {
	svc := newTestService(t, nil, nil)

	response, err := svc.Optimize(baseRequest())
	require.NoError(t, err)

	assert.NotEmpty(t, response.RunID)
	assert.False(t, response.Cached)
	require.NoError(t, response.Allocation.Validate())
	assert.Greater(t, response.DeterministicOutcome, 0.0)
	require.NotNil(t, response.Simulation)
	assert.Equal(t, 200, response.Simulation.Runs)
	assert.Nil(t, response.Ensemble)
	assert.Nil(t, response.Validation)
}

func TestOptimizeWithEnsembleAndValidation(t *testing.T) {
	svc := newTestService(t, nil, nil)

	req := baseRequest()
	req.Ensemble = true
	req.Validate = true
	req.Context = &validation.Context{IndustryType: validation.IndustryB2B, CompanySize: validation.SizeSMB}

	response, err := svc.Optimize(req)
	require.NoError(t, err)

	require.NotNil(t, response.Ensemble)
	assert.GreaterOrEqual(t, response.Ensemble.Consensus.Agreement, 0.0)
	assert.LessOrEqual(t, response.Ensemble.Consensus.Agreement, 1.0)
	// The final recommendation is the ensemble blend, not the raw grid pick.
	for _, ch := range domain.ChannelOrder {
		assert.InDelta(t, response.Ensemble.FinalAllocation[ch], response.Allocation[ch], 1e-12)
	}
	require.NoError(t, response.Allocation.Validate())

	require.NotNil(t, response.Validation)
	assert.GreaterOrEqual(t, response.Validation.DeviationScore, 0.0)
	assert.LessOrEqual(t, response.Validation.DeviationScore, 1.0)
}

func TestOptimizeServesFromCache(t *testing.T) {
	resultCache := cache.New(time.Minute, 16, 0, zerolog.Nop())
	svc := newTestService(t, resultCache, nil)

	first, err := svc.Optimize(baseRequest())
	require.NoError(t, err)
	require.False(t, first.Cached)

	second, err := svc.Optimize(baseRequest())
	require.NoError(t, err)
	assert.True(t, second.Cached)
	assert.Equal(t, first.Allocation, second.Allocation)
	assert.Equal(t, first.DeterministicOutcome, second.DeterministicOutcome)
	// Each response carries its own run identity even when the body is
	// served from cache.
	assert.NotEqual(t, first.RunID, second.RunID)

	t.Run("seed does not split the cache key", func(t *testing.T) {
		req := baseRequest()
		req.Seed = 12345
		third, err := svc.Optimize(req)
		require.NoError(t, err)
		assert.True(t, third.Cached)
	})

	t.Run("different budget misses", func(t *testing.T) {
		req := baseRequest()
		req.Budget = 20000
		miss, err := svc.Optimize(req)
		require.NoError(t, err)
		assert.False(t, miss.Cached)
	})
}

func TestOptimizeEmitsPipelineEvents(t *testing.T) {
	bus := events.NewBus()

	var mu sync.Mutex
	var seen []events.EventType
	var stages []string
	defer bus.Subscribe(func(e *events.Event) {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, e.Type)
		if e.Type == events.StageStarted {
			stages = append(stages, e.Stage)
		}
	})()

	svc := newTestService(t, nil, bus)
	req := baseRequest()
	req.Ensemble = true
	req.Validate = true

	_, err := svc.Optimize(req)
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, events.OptimizationStarted, seen[0])
	assert.Equal(t, events.OptimizationCompleted, seen[len(seen)-1])
	assert.Equal(t, []string{
		events.StageGridSearch,
		events.StageMonteCarlo,
		events.StageEnsemble,
		events.StageValidation,
	}, stages)
}

func TestOptimizeDegenerateCACWarning(t *testing.T) {
	svc := newTestService(t, nil, nil)

	dead := make(domain.Priors, domain.NumChannels)
	for _, ch := range domain.ChannelOrder {
		dead[ch] = domain.ChannelMetrics{
			CPM: domain.Range{Lo: 10, Hi: 10},
			CTR: domain.Range{Lo: 0, Hi: 0},
			CVR: domain.Range{Lo: 0, Hi: 0},
		}
	}

	req := baseRequest()
	req.Priors = dead
	req.Assumptions = domain.Assumptions{Goal: domain.GoalCAC}

	response, err := svc.Optimize(req)
	require.NoError(t, err)

	var sawDegenerate bool
	for _, w := range response.Warnings {
		if w.Type == domain.WarningDegenerateOutcome {
			sawDegenerate = true
			assert.Equal(t, domain.SeverityHigh, w.Severity)
		}
	}
	assert.True(t, sawDegenerate)
}

func TestOptimizePropagatesGridErrors(t *testing.T) {
	svc := newTestService(t, nil, nil)

	req := baseRequest()
	req.Assumptions.MinPct = map[domain.Channel]float64{domain.ChannelGoogle: 0.02}
	req.Assumptions.MaxPct = map[domain.Channel]float64{domain.ChannelGoogle: 0.04}

	_, err := svc.Optimize(req)
	assert.ErrorIs(t, err, domain.ErrInfeasibleConstraints)
}

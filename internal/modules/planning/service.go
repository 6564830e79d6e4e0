// Package planning orchestrates the optimization pipeline: grid search
// picks the deterministic best split, the Monte Carlo simulator quantifies
// uncertainty around it, the ensemble combiner optionally merges additional
// strategy opinions, and the benchmark validator scores the result for
// plausibility before it is returned.
package planning

import (
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/aristath/adbudget/internal/cache"
	"github.com/aristath/adbudget/internal/domain"
	"github.com/aristath/adbudget/internal/events"
	"github.com/aristath/adbudget/internal/modules/ensemble"
	"github.com/aristath/adbudget/internal/modules/gridsearch"
	"github.com/aristath/adbudget/internal/modules/outcome"
	"github.com/aristath/adbudget/internal/modules/simulation"
	"github.com/aristath/adbudget/internal/modules/strategies"
	"github.com/aristath/adbudget/internal/modules/validation"
)

// Service wires the pipeline stages together. Each Optimize call operates
// on its own inputs and builds fresh outputs, so the service is safe to
// call concurrently.
type Service struct {
	allocator  *gridsearch.Allocator
	strategies []strategies.Strategy
	simulator  *simulation.Simulator
	combiner   *ensemble.Combiner
	validator  *validation.Validator
	cache      *cache.Cache
	bus        *events.Bus
	log        zerolog.Logger
}

// NewService creates the pipeline service. cache and bus may be nil; both
// concerns degrade to no-ops without them.
func NewService(
	allocator *gridsearch.Allocator,
	strats []strategies.Strategy,
	simulator *simulation.Simulator,
	combiner *ensemble.Combiner,
	validator *validation.Validator,
	resultCache *cache.Cache,
	bus *events.Bus,
	log zerolog.Logger,
) *Service {
	return &Service{
		allocator:  allocator,
		strategies: strats,
		simulator:  simulator,
		combiner:   combiner,
		validator:  validator,
		cache:      resultCache,
		bus:        bus,
		log:        log.With().Str("service", "planning").Logger(),
	}
}

// Optimize runs the full pipeline for one request.
func (s *Service) Optimize(req OptimizeRequest) (*OptimizeResponse, error) {
	runID := uuid.New().String()
	log := s.log.With().Str("run_id", runID).Logger()

	if req.Runs == 0 {
		req.Runs = simulation.DefaultRuns
	}

	key, cached := s.lookupCache(req)
	if cached != nil {
		log.Debug().Msg("Serving optimization from cache")
		response := *cached
		response.RunID = runID
		response.Cached = true
		return &response, nil
	}

	seed := req.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	s.emit(events.OptimizationStarted, runID, "", nil)

	// Stage 1: deterministic grid optimum.
	s.emit(events.StageStarted, runID, events.StageGridSearch, nil)
	gridResult, err := s.allocator.Search(req.Budget, req.Priors, req.Assumptions)
	if err != nil {
		s.emit(events.OptimizationFailed, runID, events.StageGridSearch, map[string]interface{}{"error": err.Error()})
		return nil, err
	}
	s.emit(events.StageCompleted, runID, events.StageGridSearch, map[string]interface{}{
		"outcome":    gridResult.Outcome,
		"candidates": gridResult.Candidates,
	})

	// Stage 2: Monte Carlo uncertainty around the chosen split.
	s.emit(events.StageStarted, runID, events.StageMonteCarlo, nil)
	simResult, err := s.simulator.Simulate(req.Budget, gridResult.Allocation, req.Priors, req.Assumptions, req.Runs, seed)
	if err != nil {
		s.emit(events.OptimizationFailed, runID, events.StageMonteCarlo, map[string]interface{}{"error": err.Error()})
		return nil, err
	}
	s.emit(events.StageCompleted, runID, events.StageMonteCarlo, map[string]interface{}{"runs": simResult.Runs})

	response := &OptimizeResponse{
		RunID:                runID,
		Allocation:           gridResult.Allocation,
		DeterministicOutcome: gridResult.Outcome,
		Simulation:           simResult,
	}

	if req.Assumptions.Goal == domain.GoalCAC &&
		outcome.IsDegenerateCAC(req.Budget, gridResult.Allocation, outcome.Midpoints(req.Priors)) {
		response.Warnings = append(response.Warnings, domain.ValidationWarning{
			Type:     domain.WarningDegenerateOutcome,
			Message:  "expected conversions are effectively zero; the reported CAC is the saturation sentinel, not a real cost",
			Severity: domain.SeverityHigh,
		})
	}

	// Stage 3 (optional): multi-strategy ensemble.
	if req.Ensemble {
		s.emit(events.StageStarted, runID, events.StageEnsemble, nil)
		results := s.collectStrategyResults(req, gridResult, log)
		combined, err := s.combiner.Combine(results)
		if err != nil {
			s.emit(events.OptimizationFailed, runID, events.StageEnsemble, map[string]interface{}{"error": err.Error()})
			return nil, err
		}
		response.Ensemble = combined
		response.Allocation = combined.FinalAllocation
		response.Warnings = append(response.Warnings, combined.Warnings...)
		s.emit(events.StageCompleted, runID, events.StageEnsemble, map[string]interface{}{
			"agreement": combined.Consensus.Agreement,
			"outliers":  combined.Consensus.OutlierCount,
		})
	}

	// Stage 4 (optional): benchmark plausibility check on the final split.
	if req.Validate {
		s.emit(events.StageStarted, runID, events.StageValidation, nil)
		analysis := s.validator.Validate(response.Allocation, req.Priors, s.validationContext(req))
		response.Validation = &analysis
		response.Warnings = append(response.Warnings, analysis.Warnings...)
		s.emit(events.StageCompleted, runID, events.StageValidation, map[string]interface{}{
			"deviation_score": analysis.DeviationScore,
			"warnings":        len(analysis.Warnings),
		})
	}

	s.emit(events.OptimizationCompleted, runID, "", map[string]interface{}{
		"warnings": len(response.Warnings),
	})

	s.storeCache(key, response)

	log.Info().
		Float64("deterministic_outcome", response.DeterministicOutcome).
		Int("warnings", len(response.Warnings)).
		Bool("ensemble", req.Ensemble).
		Bool("validated", req.Validate).
		Msg("Optimization complete")

	return response, nil
}

// collectStrategyResults gathers AlgorithmResults from every configured
// strategy. The grid baseline is already computed and is reused rather than
// re-run; a failing auxiliary strategy is logged and skipped so the
// ensemble degrades to fewer opinions instead of failing the request.
func (s *Service) collectStrategyResults(req OptimizeRequest, gridResult *gridsearch.Result, log zerolog.Logger) []domain.AlgorithmResult {
	results := []domain.AlgorithmResult{{
		Name:        "grid_search",
		Allocation:  gridResult.Allocation,
		Confidence:  0.9,
		Performance: gridResult.Outcome,
	}}

	for _, strat := range s.strategies {
		if strat.Name() == "grid_search" {
			continue
		}
		result, err := strat.Optimize(req.Budget, req.Priors, req.Assumptions)
		if err != nil {
			log.Warn().Err(err).Str("strategy", strat.Name()).Msg("Strategy failed, excluded from ensemble")
			continue
		}
		results = append(results, result)
	}
	return results
}

func (s *Service) validationContext(req OptimizeRequest) *validation.Context {
	if req.Context == nil {
		return &validation.Context{Goal: req.Assumptions.Goal}
	}
	ctx := *req.Context
	if ctx.Goal == "" {
		ctx.Goal = req.Assumptions.Goal
	}
	return &ctx
}

func (s *Service) lookupCache(req OptimizeRequest) (string, *OptimizeResponse) {
	if s.cache == nil {
		return "", nil
	}
	key, err := cache.Fingerprint(fingerprintKey{
		Budget:      req.Budget,
		Priors:      req.Priors,
		Assumptions: req.Assumptions,
		Runs:        req.Runs,
		Context:     req.Context,
		Ensemble:    req.Ensemble,
		Validate:    req.Validate,
	})
	if err != nil {
		s.log.Warn().Err(err).Msg("Fingerprinting failed, skipping cache")
		return "", nil
	}
	if value, ok := s.cache.Get(key); ok {
		if response, ok := value.(*OptimizeResponse); ok {
			return key, response
		}
	}
	return key, nil
}

func (s *Service) storeCache(key string, response *OptimizeResponse) {
	if s.cache == nil || key == "" {
		return
	}
	s.cache.Set(key, response)
}

func (s *Service) emit(eventType events.EventType, runID, stage string, data map[string]interface{}) {
	if s.bus == nil {
		return
	}
	s.bus.EmitStage(eventType, runID, stage, data)
}

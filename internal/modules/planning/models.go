package planning

import (
	"github.com/aristath/adbudget/internal/domain"
	"github.com/aristath/adbudget/internal/modules/ensemble"
	"github.com/aristath/adbudget/internal/modules/simulation"
	"github.com/aristath/adbudget/internal/modules/validation"
)

// OptimizeRequest is the full input of one optimization run.
type OptimizeRequest struct {
	Budget      float64             `json:"budget"`
	Priors      domain.Priors       `json:"priors"`
	Assumptions domain.Assumptions  `json:"assumptions"`
	Runs        int                 `json:"runs,omitempty"` // 0 = default
	Context     *validation.Context `json:"context,omitempty"`

	// Ensemble toggles the multi-strategy stage; Validate toggles the
	// benchmark validation stage. Both default to off so the core path
	// stays grid search + Monte Carlo.
	Ensemble bool `json:"ensemble,omitempty"`
	Validate bool `json:"validate,omitempty"`

	// Seed makes the stochastic stages repeatable. 0 means a clock-derived
	// seed. Excluded from the cache fingerprint: memoization is keyed on
	// the request's deterministic identity.
	Seed int64 `json:"seed,omitempty"`
}

// fingerprintKey is the deterministic identity of a request for cache
// purposes: budget + priors + assumptions + runs, plus the context and
// stage toggles since they change the response shape.
type fingerprintKey struct {
	Budget      float64             `msgpack:"budget"`
	Priors      domain.Priors       `msgpack:"priors"`
	Assumptions domain.Assumptions  `msgpack:"assumptions"`
	Runs        int                 `msgpack:"runs"`
	Context     *validation.Context `msgpack:"context"`
	Ensemble    bool                `msgpack:"ensemble"`
	Validate    bool                `msgpack:"validate"`
}

// OptimizeResponse is the combined result of the pipeline.
type OptimizeResponse struct {
	RunID string `json:"runId"`

	// Allocation is the final recommendation: the ensemble allocation when
	// the ensemble stage ran, otherwise the grid optimum.
	Allocation domain.Allocation `json:"allocation"`

	// DeterministicOutcome is the grid baseline's outcome value under
	// midpoint priors.
	DeterministicOutcome float64 `json:"deterministicOutcome"`

	Simulation *simulation.Result        `json:"simulation"`
	Ensemble   *ensemble.Result          `json:"ensemble,omitempty"`
	Validation *domain.BenchmarkAnalysis `json:"validation,omitempty"`

	// Warnings collects degenerate-outcome, ensemble and validation
	// warnings in pipeline order.
	Warnings []domain.ValidationWarning `json:"warnings"`

	Cached bool `json:"cached"`
}

package domain

import "errors"

// Error kinds surfaced by the engine. All are fail-fast: these are pure
// computations with no transient failure modes, so nothing is retried.
var (
	// ErrInvalidInput marks malformed priors or assumptions. Upstream
	// request validation should catch these first, but the engine still
	// defends against out-of-range values itself.
	ErrInvalidInput = errors.New("invalid input")

	// ErrInfeasibleConstraints means no allocation can satisfy the
	// per-channel min/max bounds.
	ErrInfeasibleConstraints = errors.New("infeasible constraints")

	// ErrInvalidAssumptions means the assumptions are inconsistent with
	// the goal, e.g. goal=revenue without avgDealSize.
	ErrInvalidAssumptions = errors.New("invalid assumptions")

	// ErrEmptyEnsemble means the ensemble combiner was called with zero
	// results.
	ErrEmptyEnsemble = errors.New("ensemble requires at least one result")
)

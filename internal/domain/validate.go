package domain

import (
	"fmt"
	"math"
)

// Validate checks that the priors cover all four channels and that every
// metric range is well formed (lo <= hi, CPM > 0, rates in [0,1]).
func (p Priors) Validate() error {
	for _, ch := range ChannelOrder {
		m, ok := p[ch]
		if !ok {
			return fmt.Errorf("%w: missing priors for channel %s", ErrInvalidInput, ch)
		}
		if m.CPM.Lo <= 0 || m.CPM.Hi <= 0 {
			return fmt.Errorf("%w: %s cpm must be > 0", ErrInvalidInput, ch)
		}
		if m.CPM.Lo > m.CPM.Hi {
			return fmt.Errorf("%w: %s cpm lo > hi", ErrInvalidInput, ch)
		}
		if err := validateRate(m.CTR, ch, "ctr"); err != nil {
			return err
		}
		if err := validateRate(m.CVR, ch, "cvr"); err != nil {
			return err
		}
	}
	return nil
}

func validateRate(r Range, ch Channel, name string) error {
	if r.Lo < 0 || r.Hi > 1 {
		return fmt.Errorf("%w: %s %s must lie in [0,1]", ErrInvalidInput, ch, name)
	}
	if r.Lo > r.Hi {
		return fmt.Errorf("%w: %s %s lo > hi", ErrInvalidInput, ch, name)
	}
	return nil
}

// Validate checks the goal and the feasibility of the optional per-channel
// bounds: every min must be <= its max, and the minimums must not sum past 1.
func (a Assumptions) Validate() error {
	switch a.Goal {
	case GoalDemos, GoalRevenue, GoalCAC:
	default:
		return fmt.Errorf("%w: unknown goal %q", ErrInvalidInput, a.Goal)
	}

	if a.Goal == GoalRevenue && a.AvgDealSize <= 0 {
		return fmt.Errorf("%w: goal=revenue requires avgDealSize > 0", ErrInvalidAssumptions)
	}

	var minSum float64
	for _, ch := range ChannelOrder {
		lo, hi := a.Bounds(ch)
		if lo < 0 || lo > 1 || hi < 0 || hi > 1 {
			return fmt.Errorf("%w: %s bounds must lie in [0,1]", ErrInvalidInput, ch)
		}
		if lo > hi {
			return fmt.Errorf("%w: %s minPct %.4f exceeds maxPct %.4f", ErrInfeasibleConstraints, ch, lo, hi)
		}
		minSum += lo
	}
	if minSum > 1+AllocationTolerance {
		return fmt.Errorf("%w: sum of channel minimums %.4f exceeds 1", ErrInfeasibleConstraints, minSum)
	}
	return nil
}

// Validate checks the allocation invariants: non-negative components that
// sum to 1 within the floating tolerance.
func (a Allocation) Validate() error {
	for _, ch := range ChannelOrder {
		v := a[ch]
		if math.IsNaN(v) || v < 0 {
			return fmt.Errorf("%w: allocation for %s is %v", ErrInvalidInput, ch, v)
		}
	}
	if diff := math.Abs(a.Sum() - 1); diff > AllocationTolerance {
		return fmt.Errorf("%w: allocation sums to %.8f, want 1", ErrInvalidInput, a.Sum())
	}
	return nil
}

// SatisfiesBounds reports whether the allocation lies within the
// per-channel bounds of the assumptions, with a small tolerance so grid
// candidates on a bound edge are not rejected by floating error.
func (a Allocation) SatisfiesBounds(assumptions Assumptions) bool {
	for _, ch := range ChannelOrder {
		lo, hi := assumptions.Bounds(ch)
		v := a[ch]
		if v < lo-AllocationTolerance || v > hi+AllocationTolerance {
			return false
		}
	}
	return true
}

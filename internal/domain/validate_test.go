package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validPriors() Priors {
	return Priors{
		ChannelGoogle:   {CPM: Range{8, 12}, CTR: Range{0.02, 0.05}, CVR: Range{0.05, 0.12}},
		ChannelMeta:     {CPM: Range{6, 10}, CTR: Range{0.01, 0.03}, CVR: Range{0.04, 0.10}},
		ChannelTikTok:   {CPM: Range{3, 6}, CTR: Range{0.01, 0.02}, CVR: Range{0.01, 0.05}},
		ChannelLinkedIn: {CPM: Range{15, 25}, CTR: Range{0.005, 0.015}, CVR: Range{0.08, 0.20}},
	}
}

func TestPriorsValidate(t *testing.T) {
	require.NoError(t, validPriors().Validate())

	t.Run("missing channel", func(t *testing.T) {
		p := validPriors()
		delete(p, ChannelTikTok)
		assert.ErrorIs(t, p.Validate(), ErrInvalidInput)
	})

	t.Run("non-positive cpm", func(t *testing.T) {
		p := validPriors()
		m := p[ChannelGoogle]
		m.CPM = Range{0, 5}
		p[ChannelGoogle] = m
		assert.ErrorIs(t, p.Validate(), ErrInvalidInput)
	})

	t.Run("inverted range", func(t *testing.T) {
		p := validPriors()
		m := p[ChannelMeta]
		m.CTR = Range{0.5, 0.1}
		p[ChannelMeta] = m
		assert.ErrorIs(t, p.Validate(), ErrInvalidInput)
	})

	t.Run("rate above one", func(t *testing.T) {
		p := validPriors()
		m := p[ChannelMeta]
		m.CVR = Range{0.5, 1.5}
		p[ChannelMeta] = m
		assert.ErrorIs(t, p.Validate(), ErrInvalidInput)
	})
}

func TestAssumptionsValidate(t *testing.T) {
	t.Run("revenue requires deal size", func(t *testing.T) {
		a := Assumptions{Goal: GoalRevenue}
		assert.ErrorIs(t, a.Validate(), ErrInvalidAssumptions)
	})

	t.Run("unknown goal", func(t *testing.T) {
		a := Assumptions{Goal: "clicks"}
		assert.ErrorIs(t, a.Validate(), ErrInvalidInput)
	})

	t.Run("min exceeds max", func(t *testing.T) {
		a := Assumptions{
			Goal:   GoalDemos,
			MinPct: map[Channel]float64{ChannelGoogle: 0.6},
			MaxPct: map[Channel]float64{ChannelGoogle: 0.4},
		}
		assert.ErrorIs(t, a.Validate(), ErrInfeasibleConstraints)
	})

	t.Run("minimums sum past one", func(t *testing.T) {
		a := Assumptions{
			Goal: GoalDemos,
			MinPct: map[Channel]float64{
				ChannelGoogle: 0.4,
				ChannelMeta:   0.4,
				ChannelTikTok: 0.4,
			},
		}
		assert.ErrorIs(t, a.Validate(), ErrInfeasibleConstraints)
	})

	t.Run("feasible bounds pass", func(t *testing.T) {
		a := Assumptions{
			Goal:   GoalDemos,
			MinPct: map[Channel]float64{ChannelGoogle: 0.1, ChannelLinkedIn: 0.1},
			MaxPct: map[Channel]float64{ChannelTikTok: 0.5},
		}
		assert.NoError(t, a.Validate())
	})
}

func TestAllocationInvariants(t *testing.T) {
	alloc := Allocation{
		ChannelGoogle:   0.4,
		ChannelMeta:     0.3,
		ChannelTikTok:   0.2,
		ChannelLinkedIn: 0.1,
	}
	require.NoError(t, alloc.Validate())
	assert.InDelta(t, 1.0, alloc.Sum(), AllocationTolerance)

	t.Run("negative component", func(t *testing.T) {
		bad := alloc.Clone()
		bad[ChannelMeta] = -0.1
		bad[ChannelGoogle] = 0.8
		assert.ErrorIs(t, bad.Validate(), ErrInvalidInput)
	})

	t.Run("sum off by too much", func(t *testing.T) {
		bad := alloc.Clone()
		bad[ChannelGoogle] = 0.5
		assert.ErrorIs(t, bad.Validate(), ErrInvalidInput)
	})

	t.Run("normalized restores the invariant", func(t *testing.T) {
		skewed := Allocation{
			ChannelGoogle:   2,
			ChannelMeta:     1,
			ChannelTikTok:   1,
			ChannelLinkedIn: 0,
		}
		assert.NoError(t, skewed.Normalized().Validate())
	})
}

func TestBoundsDefaults(t *testing.T) {
	a := Assumptions{Goal: GoalDemos}
	lo, hi := a.Bounds(ChannelGoogle)
	assert.Equal(t, 0.0, lo)
	assert.Equal(t, 1.0, hi)
}

// Package domain contains the pure value types shared by the budget
// optimization engine: channels, priors, assumptions, allocations and the
// derived analysis types. It has no infrastructure dependencies.
package domain

// Channel is one of the fixed set of advertising channels. The set is
// closed: channels are enumerated keys, not runtime-extensible.
type Channel string

const (
	ChannelGoogle   Channel = "google"
	ChannelMeta     Channel = "meta"
	ChannelTikTok   Channel = "tiktok"
	ChannelLinkedIn Channel = "linkedin"
)

// ChannelOrder is the stable enumeration order used everywhere a
// deterministic iteration over channels is required (grid enumeration,
// tie-breaking, output shaping).
var ChannelOrder = []Channel{ChannelGoogle, ChannelMeta, ChannelTikTok, ChannelLinkedIn}

// NumChannels is the size of the channel set.
const NumChannels = 4

// Range is an uncertainty interval [Lo, Hi] for a cost/response metric.
type Range struct {
	Lo float64 `json:"lo"`
	Hi float64 `json:"hi"`
}

// Mid returns the midpoint of the range, used as the deterministic point
// estimate.
func (r Range) Mid() float64 {
	return (r.Lo + r.Hi) / 2
}

// Width returns Hi - Lo.
func (r Range) Width() float64 {
	return r.Hi - r.Lo
}

// ChannelMetrics holds the uncertainty ranges for a single channel.
type ChannelMetrics struct {
	CPM Range `json:"cpm"` // cost per 1000 impressions, > 0
	CTR Range `json:"ctr"` // click-through rate, in [0,1]
	CVR Range `json:"cvr"` // conversion rate, in [0,1]
}

// Priors maps every channel to its metric ranges. Supplied by an external
// data source; the engine never mutates it.
type Priors map[Channel]ChannelMetrics

// Goal selects the objective function of the outcome model.
type Goal string

const (
	GoalDemos   Goal = "demos"
	GoalRevenue Goal = "revenue"
	GoalCAC     Goal = "cac"
)

// LowerIsBetter reports whether smaller outcome values are preferable for
// this goal. CAC is a cost, so the comparison direction inverts.
func (g Goal) LowerIsBetter() bool {
	return g == GoalCAC
}

// Assumptions carries the optimization goal and the optional per-channel
// allocation bounds.
type Assumptions struct {
	Goal        Goal                `json:"goal"`
	AvgDealSize float64             `json:"avgDealSize,omitempty"` // required when Goal == revenue
	TargetCAC   *float64            `json:"targetCAC,omitempty"`   // informational reference value
	MinPct      map[Channel]float64 `json:"minPct,omitempty"`
	MaxPct      map[Channel]float64 `json:"maxPct,omitempty"`
}

// Bounds returns the effective [min, max] bound for a channel, defaulting
// to [0, 1] when no constraint was supplied.
func (a Assumptions) Bounds(ch Channel) (lo, hi float64) {
	lo, hi = 0.0, 1.0
	if v, ok := a.MinPct[ch]; ok {
		lo = v
	}
	if v, ok := a.MaxPct[ch]; ok {
		hi = v
	}
	return lo, hi
}

// Allocation is a fractional budget split across channels. A valid
// allocation has all values >= 0 and sums to 1 within AllocationTolerance.
// Allocations are treated as immutable values once created.
type Allocation map[Channel]float64

// AllocationTolerance is the floating tolerance on the sum-to-1 invariant.
const AllocationTolerance = 1e-6

// Sum returns the total of all channel fractions.
func (a Allocation) Sum() float64 {
	var sum float64
	for _, ch := range ChannelOrder {
		sum += a[ch]
	}
	return sum
}

// Normalized returns a copy of the allocation rescaled so its components
// sum to 1 exactly. A zero allocation is returned unchanged.
func (a Allocation) Normalized() Allocation {
	sum := a.Sum()
	out := make(Allocation, len(ChannelOrder))
	if sum <= 0 {
		for _, ch := range ChannelOrder {
			out[ch] = a[ch]
		}
		return out
	}
	for _, ch := range ChannelOrder {
		out[ch] = a[ch] / sum
	}
	return out
}

// Clone returns a copy of the allocation.
func (a Allocation) Clone() Allocation {
	out := make(Allocation, len(a))
	for ch, v := range a {
		out[ch] = v
	}
	return out
}

// AlgorithmResult is the output of one independent allocation strategy,
// consumed by the ensemble combiner.
type AlgorithmResult struct {
	Name        string     `json:"name"`
	Allocation  Allocation `json:"allocation"`
	Confidence  float64    `json:"confidence"`  // caller-supplied belief in [0,1]
	Performance float64    `json:"performance"` // the strategy's own outcome estimate
}

// ConsensusMetrics describes statistical agreement among ensemble inputs.
type ConsensusMetrics struct {
	Agreement    float64             `json:"agreement"` // 1.0 = identical allocations
	Variance     map[Channel]float64 `json:"variance"`
	OutlierCount int                 `json:"outlierCount"`
}

// Severity grades a validation warning.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// Warning type taxonomy. Warnings are additive and never deduplicated.
const (
	WarningLowConsensus              = "low_consensus"
	WarningHighChannelVariance       = "high_channel_variance"
	WarningOutlierDetected           = "outlier_detected"
	WarningUnrealisticAllocation     = "unrealistic_allocation"
	WarningBenchmarkDeviation        = "benchmark_deviation"
	WarningExtremeBenchmarkDeviation = "extreme_benchmark_deviation"
	WarningPortfolioConcentration    = "portfolio_concentration"
	WarningInsufficientDiversify     = "insufficient_diversification"
	WarningGoalChannelMismatch       = "goal_channel_mismatch"
	WarningDegenerateOutcome         = "degenerate_outcome"
)

// ValidationWarning is a structured, immutable advisory raised by the
// ensemble combiner or the benchmark validator.
type ValidationWarning struct {
	Type     string   `json:"type"`
	Message  string   `json:"message"`
	Severity Severity `json:"severity"`
	Channel  Channel  `json:"channel,omitempty"`
}

// BenchmarkAnalysis is the result of validating an allocation against
// industry-derived expectations.
type BenchmarkAnalysis struct {
	DeviationScore    float64             `json:"deviationScore"` // in [0,1]
	ChannelDeviations map[Channel]float64 `json:"channelDeviations"`
	Warnings          []ValidationWarning `json:"warnings"`
}

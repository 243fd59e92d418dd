package strategy

import (
	"math"
	"time"

	"github.com/minhle-quant/tradesim/pkg/types"
)

// Ensemble combines the latest signal of several strategies into one
// weighted vote. Long signals add their strategy's weight to the score,
// short signals subtract it, flat signals contribute nothing.
type Ensemble struct {
	MinWeight float64
	MaxWeight float64
	Now       func() time.Time
}

// NewEnsemble returns a combiner with weights clamped to [0, 1].
func NewEnsemble() *Ensemble {
	return &Ensemble{MinWeight: 0, MaxWeight: 1, Now: time.Now}
}

// Combine votes the signals into one. A score inside the threshold band
// is flat; otherwise the sign picks the side and the magnitude becomes
// the strength. Threshold <= 0 uses 0.1. The signed score is recorded on
// the signal meta.
func (e *Ensemble) Combine(signals map[string]types.Signal, weights map[string]float64, symbol string, threshold float64) types.Signal {
	if threshold <= 0 {
		threshold = 0.1
	}
	score := 0.0
	for name, signal := range signals {
		weight := math.Min(e.MaxWeight, math.Max(e.MinWeight, weights[name]))
		switch signal.Side {
		case types.SideLong:
			score += weight
		case types.SideShort:
			score -= weight
		}
	}
	side := types.SideFlat
	if math.Abs(score) >= threshold {
		side = types.SideLong
		if score < 0 {
			side = types.SideShort
		}
	}
	return types.Signal{
		Symbol:      symbol,
		Side:        side,
		Strength:    math.Abs(score),
		GeneratedAt: e.Now().UTC(),
		Meta:        types.SignalMeta{Score: score, HasScore: true},
	}
}

// WeightByPerformance turns per-strategy performance into normalized
// weights. Negative performance clamps to zero; when nothing performed,
// every strategy gets an equal share. Positive totals are scaled by the
// decay factor so combined votes shrink over time unless re-earned.
// Decay <= 0 uses 0.9.
func (e *Ensemble) WeightByPerformance(performance map[string]float64, decay float64) map[string]float64 {
	if decay <= 0 {
		decay = 0.9
	}
	weights := make(map[string]float64, len(performance))
	if len(performance) == 0 {
		return weights
	}
	total := 0.0
	for _, perf := range performance {
		total += math.Max(0, perf)
	}
	if total <= 0 {
		share := 1.0 / float64(len(performance))
		for name := range performance {
			weights[name] = share
		}
		return weights
	}
	for name, perf := range performance {
		weights[name] = math.Max(0, perf) / total * decay
	}
	return weights
}

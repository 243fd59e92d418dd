package strategy

import (
	"math"

	"github.com/minhle-quant/tradesim/pkg/types"
)

// MeanReversion trades the z-score of the latest close against its
// trailing mean: short when stretched above, long when stretched below,
// flat inside the threshold band.
type MeanReversion struct {
	base
	lookback  int
	threshold float64
}

// NewMeanReversion reads "lookback" (default 20) and "z_threshold"
// (default 1.5) from params.
func NewMeanReversion(params Params) *MeanReversion {
	return &MeanReversion{
		base:      newBase(params),
		lookback:  params.integer("lookback", 20),
		threshold: params.float("z_threshold", 1.5),
	}
}

func (s *MeanReversion) Name() string { return "mean_reversion" }

func (s *MeanReversion) GenerateSignals(history []types.Bar) []types.Signal {
	if len(history) <= s.lookback {
		return nil
	}
	window := closes(history[len(history)-s.lookback:])
	avg := mean(window)
	std := stdDev(window)
	z := (window[len(window)-1] - avg) / (std + 1e-6)

	side := types.SideFlat
	switch {
	case z > s.threshold:
		side = types.SideShort
	case z < -s.threshold:
		side = types.SideLong
	}
	latest := history[len(history)-1]
	return []types.Signal{{
		Symbol:      latest.Symbol,
		Side:        side,
		Strength:    math.Abs(z),
		GeneratedAt: latest.Ts,
		Meta:        types.SignalMeta{ZScore: z},
	}}
}

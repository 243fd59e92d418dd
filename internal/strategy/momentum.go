package strategy

import (
	"github.com/minhle-quant/tradesim/pkg/types"
)

// Momentum goes long (short) when the lookback return is positive
// (negative). Strength is the return divided by the realized volatility of
// trailing returns, so quiet trends outrank noisy ones.
type Momentum struct {
	base
	lookback int
}

// NewMomentum reads "lookback" (default 50) from params.
func NewMomentum(params Params) *Momentum {
	return &Momentum{
		base:     newBase(params),
		lookback: params.integer("lookback", 50),
	}
}

func (s *Momentum) Name() string { return "momentum" }

func (s *Momentum) GenerateSignals(history []types.Bar) []types.Signal {
	if len(history) <= s.lookback {
		return nil
	}
	prices := closes(history)
	ret := prices[len(prices)-1]/prices[len(prices)-1-s.lookback] - 1.0
	vol := stdDev(simpleReturns(prices[len(prices)-s.lookback:]))

	side := types.SideFlat
	if ret > 0 {
		side = types.SideLong
	} else if ret < 0 {
		side = types.SideShort
	}
	latest := history[len(history)-1]
	return []types.Signal{{
		Symbol:      latest.Symbol,
		Side:        side,
		Strength:    ret / (vol + 1e-6),
		GeneratedAt: latest.Ts,
		Meta: types.SignalMeta{
			Return: ret,
			Vol:    vol,
			HasVol: true,
		},
	}}
}

package strategy

import (
	"github.com/minhle-quant/tradesim/pkg/types"
)

// Breakout fires when the latest close crosses the rolling high or low.
// The ATR-based stop is recorded in the signal meta as a reference for the
// caller; the engine itself does not enforce stops.
type Breakout struct {
	base
	lookback int
	atrMult  float64
}

// NewBreakout reads "lookback" (default 20) and "atr_mult" (default 2.0)
// from params.
func NewBreakout(params Params) *Breakout {
	return &Breakout{
		base:     newBase(params),
		lookback: params.integer("lookback", 20),
		atrMult:  params.float("atr_mult", 2.0),
	}
}

func (s *Breakout) Name() string { return "breakout" }

func (s *Breakout) GenerateSignals(history []types.Bar) []types.Signal {
	if len(history) <= s.lookback {
		return nil
	}
	window := history[len(history)-s.lookback:]
	highBreak := window[0].High
	lowBreak := window[0].Low
	for _, bar := range window[1:] {
		if bar.High > highBreak {
			highBreak = bar.High
		}
		if bar.Low < lowBreak {
			lowBreak = bar.Low
		}
	}
	latest := history[len(history)-1]
	atr := averageTrueRange(history, s.lookback)

	meta := types.SignalMeta{
		ATR:       atr,
		HasATR:    true,
		HighBreak: highBreak,
		LowBreak:  lowBreak,
	}
	side := types.SideFlat
	switch {
	case latest.Close > highBreak:
		side = types.SideLong
		meta.Stop = latest.Close - atr*s.atrMult
		meta.HasStop = true
	case latest.Close < lowBreak:
		side = types.SideShort
		meta.Stop = latest.Close + atr*s.atrMult
		meta.HasStop = true
	}
	return []types.Signal{{
		Symbol:      latest.Symbol,
		Side:        side,
		Strength:    atr,
		GeneratedAt: latest.Ts,
		Meta:        meta,
	}}
}

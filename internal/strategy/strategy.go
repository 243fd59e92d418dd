// Package strategy defines the trading strategy contract, a name-keyed
// registry, and the three reference strategies: momentum, mean reversion
// and breakout.
package strategy

import (
	"math"

	"github.com/minhle-quant/tradesim/pkg/types"
)

// Strategy turns a bar history prefix into signals and sizes positions.
// GenerateSignals only ever sees bars up to the evaluation point, so a
// strategy cannot look ahead.
type Strategy interface {
	Name() string
	// MinHistory is the minimum number of bars required before the first
	// evaluation.
	MinHistory() int
	GenerateSignals(history []types.Bar) []types.Signal
	// PositionSizing returns the notional to deploy for a signal.
	PositionSizing(signal types.Signal, portfolioEquity float64) float64
}

// Params is the open parameter bag passed at construction. Strategies read
// the keys they understand and ignore the rest.
type Params map[string]float64

func (p Params) float(key string, fallback float64) float64 {
	if v, ok := p[key]; ok {
		return v
	}
	return fallback
}

func (p Params) integer(key string, fallback int) int {
	if v, ok := p[key]; ok {
		return int(v)
	}
	return fallback
}

// base carries the shared sizing behavior: a fixed risk fraction of
// equity, 2% by default.
type base struct {
	minHistory int
	riskPct    float64
}

func newBase(params Params) base {
	return base{
		minHistory: params.integer("min_history", 30),
		riskPct:    params.float("risk_pct", 0.02),
	}
}

func (b base) MinHistory() int { return b.minHistory }

func (b base) PositionSizing(_ types.Signal, portfolioEquity float64) float64 {
	return math.Max(0, portfolioEquity*b.riskPct)
}

func closes(history []types.Bar) []float64 {
	out := make([]float64, len(history))
	for i, bar := range history {
		out[i] = bar.Close
	}
	return out
}

func simpleReturns(values []float64) []float64 {
	if len(values) < 2 {
		return nil
	}
	out := make([]float64, 0, len(values)-1)
	for i := 1; i < len(values); i++ {
		out = append(out, values[i]/values[i-1]-1.0)
	}
	return out
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// stdDev is the population standard deviation.
func stdDev(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	avg := mean(values)
	variance := 0.0
	for _, v := range values {
		variance += (v - avg) * (v - avg)
	}
	return math.Sqrt(variance / float64(len(values)))
}

// averageTrueRange over the trailing lookback bars.
func averageTrueRange(history []types.Bar, lookback int) float64 {
	if len(history) < lookback+1 {
		return 0
	}
	sum := 0.0
	for i := len(history) - lookback; i < len(history); i++ {
		bar := history[i]
		prev := history[i-1]
		tr := bar.High - bar.Low
		if hc := math.Abs(bar.High - prev.Close); hc > tr {
			tr = hc
		}
		if lc := math.Abs(bar.Low - prev.Close); lc > tr {
			tr = lc
		}
		sum += tr
	}
	return sum / float64(lookback)
}

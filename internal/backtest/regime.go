package backtest

import (
	"math"

	"github.com/minhle-quant/tradesim/pkg/types"
)

// Regime label values. Bars without enough trailing history are unknown.
const (
	RegimeUnknown     = "unknown"
	RegimeSideways    = "sideways"
	RegimeBullHighVol = "bull_high_vol"
	RegimeBullLowVol  = "bull_low_vol"
	RegimeBearHighVol = "bear_high_vol"
	RegimeBearLowVol  = "bear_low_vol"
)

// RegimeLabels classifies every bar by the trend and volatility of the
// lookback window ending just before it. Trend is the window's total
// return; volatility is the population stddev of its bar-to-bar returns.
// A trend inside the threshold band is sideways regardless of volatility.
// Zero or negative parameters use the reference defaults (lookback 50,
// both thresholds 2%).
func RegimeLabels(bars []types.Bar, lookback int, trendThreshold, volThreshold float64) []string {
	if lookback <= 0 {
		lookback = 50
	}
	if trendThreshold <= 0 {
		trendThreshold = 0.02
	}
	if volThreshold <= 0 {
		volThreshold = 0.02
	}

	labels := make([]string, 0, len(bars))
	for idx := range bars {
		if idx < lookback {
			labels = append(labels, RegimeUnknown)
			continue
		}
		window := bars[idx-lookback : idx]
		if len(window) < 2 {
			labels = append(labels, RegimeUnknown)
			continue
		}
		trend := window[len(window)-1].Close/window[0].Close - 1
		vol := windowVol(window)
		switch {
		case math.Abs(trend) < trendThreshold:
			labels = append(labels, RegimeSideways)
		case trend >= 0 && vol > volThreshold:
			labels = append(labels, RegimeBullHighVol)
		case trend >= 0:
			labels = append(labels, RegimeBullLowVol)
		case vol > volThreshold:
			labels = append(labels, RegimeBearHighVol)
		default:
			labels = append(labels, RegimeBearLowVol)
		}
	}
	return labels
}

func windowVol(window []types.Bar) float64 {
	returns := make([]float64, 0, len(window)-1)
	for i := 1; i < len(window); i++ {
		returns = append(returns, window[i].Close/window[i-1].Close-1)
	}
	if len(returns) < 2 {
		return 0
	}
	avg := 0.0
	for _, r := range returns {
		avg += r
	}
	avg /= float64(len(returns))
	variance := 0.0
	for _, r := range returns {
		variance += (r - avg) * (r - avg)
	}
	variance /= float64(len(returns))
	return math.Sqrt(variance)
}

// RegimeSummary reduces a label series to the share of bars spent in
// each regime.
func RegimeSummary(labels []string) map[string]float64 {
	summary := make(map[string]float64, 6)
	if len(labels) == 0 {
		return summary
	}
	for _, label := range labels {
		summary[label]++
	}
	total := float64(len(labels))
	for label := range summary {
		summary[label] /= total
	}
	return summary
}

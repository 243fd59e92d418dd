package backtest

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/minhle-quant/tradesim/pkg/types"
)

func regimeBars(closes []float64) []types.Bar {
	start := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	bars := make([]types.Bar, 0, len(closes))
	for i, c := range closes {
		bars = append(bars, types.Bar{
			Symbol: "BTCUSDT", Timeframe: "1d",
			Ts:   start.Add(time.Duration(i) * 24 * time.Hour),
			Open: c, High: c, Low: c, Close: c,
		})
	}
	return bars
}

func rampCloses(n int, growth float64) []float64 {
	closes := make([]float64, 0, n)
	price := 100.0
	for i := 0; i < n; i++ {
		closes = append(closes, price)
		price *= 1 + growth
	}
	return closes
}

// TestRegimeLabels_UnknownThenSideways labels bars before the lookback
// unknown and a flat market sideways
func TestRegimeLabels_UnknownThenSideways(t *testing.T) {
	closes := make([]float64, 80)
	for i := range closes {
		closes[i] = 100
	}
	labels := RegimeLabels(regimeBars(closes), 0, 0, 0)

	require.Len(t, labels, 80)
	for i := 0; i < 50; i++ {
		assert.Equalf(t, RegimeUnknown, labels[i], "bar %d", i)
	}
	for i := 50; i < 80; i++ {
		assert.Equalf(t, RegimeSideways, labels[i], "bar %d", i)
	}
}

// TestRegimeLabels_BullLowVol labels a steady ramp as a quiet bull market
func TestRegimeLabels_BullLowVol(t *testing.T) {
	labels := RegimeLabels(regimeBars(rampCloses(30, 0.01)), 10, 0, 0)

	for i := 10; i < 30; i++ {
		assert.Equalf(t, RegimeBullLowVol, labels[i], "bar %d", i)
	}
}

// TestRegimeLabels_BearLowVol labels a steady decline as a quiet bear market
func TestRegimeLabels_BearLowVol(t *testing.T) {
	labels := RegimeLabels(regimeBars(rampCloses(30, -0.01)), 10, 0, 0)

	for i := 10; i < 30; i++ {
		assert.Equalf(t, RegimeBearLowVol, labels[i], "bar %d", i)
	}
}

// TestRegimeLabels_BullHighVol labels a choppy uptrend high volatility
func TestRegimeLabels_BullHighVol(t *testing.T) {
	// Alternating +30%/-10% bars: strong net growth, large return spread.
	closes := make([]float64, 0, 30)
	price := 100.0
	for i := 0; i < 30; i++ {
		closes = append(closes, price)
		if i%2 == 0 {
			price *= 1.3
		} else {
			price *= 0.9
		}
	}
	labels := RegimeLabels(regimeBars(closes), 10, 0, 0)

	for i := 10; i < 30; i++ {
		assert.Equalf(t, RegimeBullHighVol, labels[i], "bar %d", i)
	}
}

// TestRegimeLabels_BearHighVol labels a choppy downtrend high volatility
func TestRegimeLabels_BearHighVol(t *testing.T) {
	// Alternating -30%/+10% bars: strong net decline, large return spread.
	closes := make([]float64, 0, 30)
	price := 100.0
	for i := 0; i < 30; i++ {
		closes = append(closes, price)
		if i%2 == 0 {
			price *= 0.7
		} else {
			price *= 1.1
		}
	}
	labels := RegimeLabels(regimeBars(closes), 10, 0, 0)

	for i := 10; i < 30; i++ {
		assert.Equalf(t, RegimeBearHighVol, labels[i], "bar %d", i)
	}
}

// TestRegimeLabels_Empty returns an empty label list
func TestRegimeLabels_Empty(t *testing.T) {
	assert.Empty(t, RegimeLabels(nil, 0, 0, 0))
}

// TestRegimeSummary_Shares reduces labels to per-regime fractions
func TestRegimeSummary_Shares(t *testing.T) {
	summary := RegimeSummary([]string{
		RegimeUnknown, RegimeUnknown, RegimeBullLowVol, RegimeSideways,
	})

	assert.InDelta(t, 0.5, summary[RegimeUnknown], 1e-9)
	assert.InDelta(t, 0.25, summary[RegimeBullLowVol], 1e-9)
	assert.InDelta(t, 0.25, summary[RegimeSideways], 1e-9)

	total := 0.0
	for _, share := range summary {
		total += share
	}
	assert.InDelta(t, 1.0, total, 1e-9)
}

// TestRegimeSummary_Empty returns an empty map
func TestRegimeSummary_Empty(t *testing.T) {
	assert.Empty(t, RegimeSummary(nil))
}

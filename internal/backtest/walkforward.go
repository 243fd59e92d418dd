package backtest

import (
	"fmt"
	"time"

	"github.com/minhle-quant/tradesim/internal/strategy"
	"github.com/minhle-quant/tradesim/pkg/types"
)

// WalkForwardWindow is one train/test frame and its out-of-sample result.
// The train slice bounds are reported for the caller's parameter
// selection; the engine itself fits nothing on them.
type WalkForwardWindow struct {
	TrainStart  time.Time
	TrainEnd    time.Time
	TestStart   time.Time
	TestEnd     time.Time
	Metrics     map[string]float64
	EquityCurve []float64
}

// WalkForward slides a train+test frame across the bars by step (default:
// the test window) and backtests a fresh strategy instance on each test
// slice. A trailing partial frame that cannot fill train+test is
// discarded.
func WalkForward(bars []types.Bar, factory func() strategy.Strategy, trainWindow, testWindow, step int, opts Options) ([]WalkForwardWindow, error) {
	if trainWindow <= 0 || testWindow <= 0 {
		return nil, fmt.Errorf("walk-forward: train and test windows must be positive, got %d/%d", trainWindow, testWindow)
	}
	if step <= 0 {
		step = testWindow
	}
	var windows []WalkForwardWindow
	for start := 0; start+trainWindow+testWindow <= len(bars); start += step {
		train := bars[start : start+trainWindow]
		test := bars[start+trainWindow : start+trainWindow+testWindow]
		result, err := Run(factory(), test, opts)
		if err != nil {
			return nil, fmt.Errorf("walk-forward window at %d: %w", start, err)
		}
		windows = append(windows, WalkForwardWindow{
			TrainStart:  train[0].Ts,
			TrainEnd:    train[len(train)-1].Ts,
			TestStart:   test[0].Ts,
			TestEnd:     test[len(test)-1].Ts,
			Metrics:     result.Metrics,
			EquityCurve: result.EquityCurve,
		})
	}
	return windows, nil
}

package backtest

import (
	"fmt"
	"sort"

	"github.com/minhle-quant/tradesim/internal/strategy"
	"github.com/minhle-quant/tradesim/pkg/types"
)

// ParamGrid maps a parameter name to its candidate values. Expansion is
// the full Cartesian product in sorted key order, so enumeration order is
// deterministic for a given grid.
type ParamGrid map[string][]float64

// GridPoint is the outcome of one parameter combination.
type GridPoint struct {
	Params  strategy.Params
	Metrics map[string]float64
}

// GridResult is the outcome of a full grid search.
type GridResult struct {
	Objective string
	Results   []GridPoint
	Best      *GridPoint
}

// ExpandGrid returns every parameter combination. An empty grid yields the
// single empty combination.
func ExpandGrid(grid ParamGrid) []strategy.Params {
	if len(grid) == 0 {
		return []strategy.Params{{}}
	}
	keys := make([]string, 0, len(grid))
	for key := range grid {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	combos := []strategy.Params{{}}
	for _, key := range keys {
		next := make([]strategy.Params, 0, len(combos)*len(grid[key]))
		for _, combo := range combos {
			for _, value := range grid[key] {
				expanded := make(strategy.Params, len(combo)+1)
				for k, v := range combo {
					expanded[k] = v
				}
				expanded[key] = value
				next = append(next, expanded)
			}
		}
		combos = next
	}
	return combos
}

// GridSearch backtests every combination and picks the best by the
// objective metric (sharpe when empty). Ties keep the combination that
// enumerates first. Combinations share no state, so they run on the
// worker pool; results keep enumeration order regardless of completion
// order.
func GridSearch(factory strategy.Factory, bars []types.Bar, grid ParamGrid, objective string, opts Options) (GridResult, error) {
	if objective == "" {
		objective = "sharpe"
	}
	combos := ExpandGrid(grid)

	jobs := make([]poolJob, len(combos))
	for i, params := range combos {
		params := params
		jobs[i] = func() (types.BacktestResult, error) {
			return Run(factory(params), bars, opts)
		}
	}
	outcomes := runPool(jobs, 0)

	result := GridResult{Objective: objective, Results: make([]GridPoint, 0, len(combos))}
	for i, outcome := range outcomes {
		if outcome.err != nil {
			return GridResult{}, fmt.Errorf("grid search combo %d: %w", i, outcome.err)
		}
		result.Results = append(result.Results, GridPoint{
			Params:  combos[i],
			Metrics: outcome.result.Metrics,
		})
	}
	for i := range result.Results {
		point := &result.Results[i]
		if result.Best == nil || point.Metrics[objective] > result.Best.Metrics[objective] {
			result.Best = point
		}
	}
	return result, nil
}

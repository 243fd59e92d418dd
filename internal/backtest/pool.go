package backtest

import (
	"runtime"
	"sync"

	"github.com/minhle-quant/tradesim/pkg/types"
)

// poolJob is one independent backtest invocation. Jobs construct their own
// strategy, broker and risk engine, so they never share mutable state.
type poolJob func() (types.BacktestResult, error)

type poolOutcome struct {
	result types.BacktestResult
	err    error
}

// runPool executes jobs across workers and returns outcomes in job order.
// workers <= 0 uses one worker per CPU.
func runPool(jobs []poolJob, workers int) []poolOutcome {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers > len(jobs) {
		workers = len(jobs)
	}
	outcomes := make([]poolOutcome, len(jobs))
	if len(jobs) == 0 {
		return outcomes
	}

	indexes := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range indexes {
				result, err := jobs[i]()
				outcomes[i] = poolOutcome{result: result, err: err}
			}
		}()
	}
	for i := range jobs {
		indexes <- i
	}
	close(indexes)
	wg.Wait()
	return outcomes
}

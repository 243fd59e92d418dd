package reporting

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/minhle-quant/tradesim/internal/backtest"
)

// BestConfig is the serialized form of the winning grid combination.
type BestConfig struct {
	Objective string             `json:"objective"`
	Score     float64            `json:"score"`
	Params    map[string]float64 `json:"params"`
	Metrics   map[string]float64 `json:"metrics"`
}

// WriteBestConfigJSON writes the winning grid combination to path.
func WriteBestConfigJSON(result backtest.GridResult, path string) error {
	if result.Best == nil {
		return fmt.Errorf("no best combination to write")
	}
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	best := BestConfig{
		Objective: result.Objective,
		Score:     result.Best.Metrics[result.Objective],
		Params:    result.Best.Params,
		Metrics:   result.Best.Metrics,
	}
	data, err := json.MarshalIndent(best, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal best config: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}

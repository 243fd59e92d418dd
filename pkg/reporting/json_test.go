package reporting

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/minhle-quant/tradesim/internal/backtest"
)

// TestWriteBestConfigJSON_RoundTrip serializes the winning combination
func TestWriteBestConfigJSON_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "best.json")
	result := backtest.GridResult{
		Objective: "sharpe",
		Best: &backtest.GridPoint{
			Params:  map[string]float64{"lookback": 20, "atr_mult": 2},
			Metrics: map[string]float64{"sharpe": 1.4, "cagr": 0.22},
		},
	}
	require.NoError(t, WriteBestConfigJSON(result, path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var best BestConfig
	require.NoError(t, json.Unmarshal(data, &best))
	assert.Equal(t, "sharpe", best.Objective)
	assert.Equal(t, 1.4, best.Score)
	assert.Equal(t, 20.0, best.Params["lookback"])
	assert.Equal(t, 0.22, best.Metrics["cagr"])
}

// TestWriteBestConfigJSON_NoBest rejects a grid result without a winner
func TestWriteBestConfigJSON_NoBest(t *testing.T) {
	path := filepath.Join(t.TempDir(), "best.json")
	err := WriteBestConfigJSON(backtest.GridResult{Objective: "sharpe"}, path)
	require.Error(t, err)

	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr))
}

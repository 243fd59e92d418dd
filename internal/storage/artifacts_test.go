package storage

import (
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/minhle-quant/tradesim/pkg/types"
)

// TestWriteRun_ProducesAllArtifacts writes the four per-run files
func TestWriteRun_ProducesAllArtifacts(t *testing.T) {
	writer, err := NewArtifactWriter(t.TempDir())
	require.NoError(t, err)

	result := types.BacktestResult{
		Metrics:     map[string]float64{"sharpe": 1.5, "max_drawdown": 0.1},
		EquityCurve: []float64{100_000, 101_000, 100_500},
		Trades: []types.Fill{{
			OrderID: "o-1", Symbol: "BTCUSDT", Side: types.OrderBuy,
			Quantity: 2, Price: 100.5, Fee: 0.2,
			FilledAt: time.Date(2024, 6, 3, 9, 0, 0, 0, time.UTC),
		}},
	}
	cfg := map[string]any{"strategy": "momentum"}
	require.NoError(t, writer.WriteRun("run-1", result, cfg))

	dir := writer.RunDir("run-1")
	for _, name := range []string{"metrics.json", "equity_curve.json", "trades.csv", "config.json"} {
		_, statErr := os.Stat(filepath.Join(dir, name))
		assert.NoErrorf(t, statErr, "expected artifact %s", name)
	}

	var metrics map[string]float64
	data, err := os.ReadFile(filepath.Join(dir, "metrics.json"))
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &metrics))
	assert.Equal(t, 1.5, metrics["sharpe"])

	var curve []float64
	data, err = os.ReadFile(filepath.Join(dir, "equity_curve.json"))
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &curve))
	assert.Equal(t, []float64{100_000, 101_000, 100_500}, curve)
}

// TestWriteRun_TradesCSVRows writes a header plus one row per fill
func TestWriteRun_TradesCSVRows(t *testing.T) {
	writer, err := NewArtifactWriter(t.TempDir())
	require.NoError(t, err)

	result := types.BacktestResult{
		Metrics:     map[string]float64{},
		EquityCurve: []float64{},
		Trades: []types.Fill{{
			OrderID: "o-1", Symbol: "BTCUSDT", Side: types.OrderSell,
			Quantity: 1.5, Price: 99.75, Fee: 0.1, SlippageBps: 2, SpreadBps: 1,
			LatencyMs: 250, FilledAt: time.Date(2024, 6, 3, 9, 0, 0, 0, time.UTC),
		}},
	}
	require.NoError(t, writer.WriteRun("run-2", result, nil))

	f, err := os.Open(filepath.Join(writer.RunDir("run-2"), "trades.csv"))
	require.NoError(t, err)
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "filled_at", rows[0][0])
	assert.Equal(t, "o-1", rows[1][1])
	assert.Equal(t, "sell", rows[1][3])
	assert.Equal(t, "1.5", rows[1][4])
	assert.Equal(t, "250", rows[1][9])

	// nil cfg skips config.json.
	_, statErr := os.Stat(filepath.Join(writer.RunDir("run-2"), "config.json"))
	assert.True(t, os.IsNotExist(statErr))
}

// TestWriteManifest_RoundTrip persists a composite-job manifest
func TestWriteManifest_RoundTrip(t *testing.T) {
	writer, err := NewArtifactWriter(t.TempDir())
	require.NoError(t, err)

	manifest := Manifest{
		JobID:     "grid-1",
		Kind:      "grid",
		CreatedAt: time.Date(2024, 6, 3, 9, 0, 0, 0, time.UTC),
		Entries: []ManifestEntry{{
			RunID:   "run-1",
			Label:   "combo-0",
			Params:  map[string]float64{"lookback": 20},
			Metrics: map[string]float64{"sharpe": 1.1},
		}},
	}
	require.NoError(t, writer.WriteManifest(manifest))

	data, err := os.ReadFile(filepath.Join(writer.RunDir("grid-1"), "manifest.json"))
	require.NoError(t, err)

	var got Manifest
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, "grid-1", got.JobID)
	assert.Equal(t, "grid", got.Kind)
	require.Len(t, got.Entries, 1)
	assert.Equal(t, 20.0, got.Entries[0].Params["lookback"])
}

// TestWriteExtra_PersistsNamedJSON writes an additional artifact next to
// the standard run files
func TestWriteExtra_PersistsNamedJSON(t *testing.T) {
	writer, err := NewArtifactWriter(t.TempDir())
	require.NoError(t, err)

	session := map[string]any{
		"regime_summary":   map[string]float64{"sideways": 1},
		"ensemble_weights": map[string]float64{"rsi": 0.9},
	}
	require.NoError(t, writer.WriteExtra("run-extra", "session.json", session))

	raw, err := os.ReadFile(filepath.Join(writer.RunDir("run-extra"), "session.json"))
	require.NoError(t, err)

	var decoded map[string]map[string]float64
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.InDelta(t, 1.0, decoded["regime_summary"]["sideways"], 1e-9)
	assert.InDelta(t, 0.9, decoded["ensemble_weights"]["rsi"], 1e-9)
}

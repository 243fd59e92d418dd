package storage

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/minhle-quant/tradesim/pkg/types"
)

// ArtifactWriter writes per-run result files under a root directory, one
// subdirectory per run id.
type ArtifactWriter struct {
	root string
}

// NewArtifactWriter creates the root directory if needed.
func NewArtifactWriter(root string) (*ArtifactWriter, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("artifacts: create root %q: %w", root, err)
	}
	return &ArtifactWriter{root: root}, nil
}

// RunDir returns the directory for one run.
func (w *ArtifactWriter) RunDir(runID string) string {
	return filepath.Join(w.root, runID)
}

// WriteRun persists metrics.json, equity_curve.json, trades.csv and
// config.json for a completed run.
func (w *ArtifactWriter) WriteRun(runID string, result types.BacktestResult, cfg any) error {
	dir := w.RunDir(runID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("artifacts: create run dir: %w", err)
	}
	if err := writeJSON(filepath.Join(dir, "metrics.json"), result.Metrics); err != nil {
		return err
	}
	if err := writeJSON(filepath.Join(dir, "equity_curve.json"), result.EquityCurve); err != nil {
		return err
	}
	if err := writeTradesCSV(filepath.Join(dir, "trades.csv"), result.Trades); err != nil {
		return err
	}
	if cfg != nil {
		if err := writeJSON(filepath.Join(dir, "config.json"), cfg); err != nil {
			return err
		}
	}
	return nil
}

// WriteExtra persists an additional named JSON artifact for a run, next
// to the standard result files.
func (w *ArtifactWriter) WriteExtra(runID, name string, v any) error {
	dir := w.RunDir(runID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("artifacts: create run dir: %w", err)
	}
	return writeJSON(filepath.Join(dir, name), v)
}

// ManifestEntry links one run id to its role inside a composite job such
// as a grid search or walk-forward analysis.
type ManifestEntry struct {
	RunID   string             `json:"run_id"`
	Label   string             `json:"label"`
	Params  map[string]float64 `json:"params,omitempty"`
	Metrics map[string]float64 `json:"metrics,omitempty"`
}

// Manifest describes a composite job and the runs it produced.
type Manifest struct {
	JobID     string          `json:"job_id"`
	Kind      string          `json:"kind"`
	CreatedAt time.Time       `json:"created_at"`
	Entries   []ManifestEntry `json:"entries"`
}

// WriteManifest persists a composite-job manifest under the job id.
func (w *ArtifactWriter) WriteManifest(manifest Manifest) error {
	dir := filepath.Join(w.root, manifest.JobID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("artifacts: create job dir: %w", err)
	}
	return writeJSON(filepath.Join(dir, "manifest.json"), manifest)
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("artifacts: marshal %s: %w", filepath.Base(path), err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("artifacts: write %s: %w", filepath.Base(path), err)
	}
	return nil
}

func writeTradesCSV(path string, trades []types.Fill) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("artifacts: create trades.csv: %w", err)
	}
	defer f.Close()

	writer := csv.NewWriter(f)
	header := []string{"filled_at", "order_id", "symbol", "side", "quantity", "price", "fee", "slippage_bps", "spread_bps", "latency_ms"}
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("artifacts: write trades header: %w", err)
	}
	for _, fill := range trades {
		row := []string{
			fill.FilledAt.Format(time.RFC3339),
			fill.OrderID,
			fill.Symbol,
			string(fill.Side),
			strconv.FormatFloat(fill.Quantity, 'f', -1, 64),
			strconv.FormatFloat(fill.Price, 'f', -1, 64),
			strconv.FormatFloat(fill.Fee, 'f', -1, 64),
			strconv.FormatFloat(fill.SlippageBps, 'f', -1, 64),
			strconv.FormatFloat(fill.SpreadBps, 'f', -1, 64),
			strconv.Itoa(fill.LatencyMs),
		}
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("artifacts: write trade row: %w", err)
		}
	}
	writer.Flush()
	return writer.Error()
}

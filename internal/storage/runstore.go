// Package storage persists run audit records and result artifacts. The
// run store is an at-least-once sink: a failed write is logged and never
// affects the simulation result.
package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/minhle-quant/tradesim/pkg/types"
)

const runStoreSchema = `
CREATE TABLE IF NOT EXISTS runs (
    run_id       TEXT PRIMARY KEY,
    mode         TEXT,
    status       TEXT,
    started_at   TEXT,
    completed_at TEXT,
    strategy     TEXT,
    symbol       TEXT,
    summary_json TEXT
);

CREATE TABLE IF NOT EXISTS signals (
    id           INTEGER PRIMARY KEY AUTOINCREMENT,
    run_id       TEXT,
    symbol       TEXT,
    side         TEXT,
    strength     REAL,
    generated_at TEXT
);

CREATE TABLE IF NOT EXISTS orders (
    id           INTEGER PRIMARY KEY AUTOINCREMENT,
    run_id       TEXT,
    symbol       TEXT,
    side         TEXT,
    quantity     REAL,
    order_type   TEXT,
    decision     TEXT,
    reason       TEXT,
    created_at   TEXT
);

CREATE TABLE IF NOT EXISTS fills (
    id           INTEGER PRIMARY KEY AUTOINCREMENT,
    run_id       TEXT,
    order_id     TEXT,
    symbol       TEXT,
    side         TEXT,
    quantity     REAL,
    price        REAL,
    fee          REAL,
    slippage_bps REAL,
    spread_bps   REAL,
    latency_ms   INTEGER,
    filled_at    TEXT
);

CREATE INDEX IF NOT EXISTS idx_signals_run ON signals(run_id);
CREATE INDEX IF NOT EXISTS idx_orders_run  ON orders(run_id);
CREATE INDEX IF NOT EXISTS idx_fills_run   ON fills(run_id);
`

// RunStore appends run summaries, signals, orders and fills keyed by run
// id to a SQLite database.
type RunStore struct {
	db *sql.DB
}

// NewRunStore opens (or creates) the store at path.
func NewRunStore(path string) (*RunStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("run store: open %q: %w", path, err)
	}
	db.SetMaxOpenConns(1) // SQLite is single-writer
	if _, err := db.Exec(runStoreSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("run store: apply schema: %w", err)
	}
	return &RunStore{db: db}, nil
}

// Close releases the database handle.
func (s *RunStore) Close() error { return s.db.Close() }

// RunRecord summarizes one run.
type RunRecord struct {
	RunID       string
	Mode        string
	Status      string
	StartedAt   time.Time
	CompletedAt time.Time
	Strategy    string
	Symbol      string
	Metrics     map[string]float64
}

// RecordRun upserts a run summary.
func (s *RunStore) RecordRun(record RunRecord) error {
	summary, err := json.Marshal(record.Metrics)
	if err != nil {
		return fmt.Errorf("run store: marshal summary: %w", err)
	}
	completedAt := ""
	if !record.CompletedAt.IsZero() {
		completedAt = record.CompletedAt.Format(time.RFC3339)
	}
	_, err = s.db.Exec(`INSERT INTO runs (run_id, mode, status, started_at, completed_at, strategy, symbol, summary_json)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT(run_id) DO UPDATE SET
            status = excluded.status,
            completed_at = excluded.completed_at,
            summary_json = excluded.summary_json`,
		record.RunID, record.Mode, record.Status,
		record.StartedAt.Format(time.RFC3339), completedAt,
		record.Strategy, record.Symbol, string(summary))
	if err != nil {
		return fmt.Errorf("run store: record run %s: %w", record.RunID, err)
	}
	return nil
}

// RunAudit binds a run id to the store and satisfies the backtest audit
// contract. Write failures are logged, not returned: the audit trail is
// best-effort and never fails a run.
type RunAudit struct {
	store *RunStore
	runID string
}

// NewRunAudit creates an audit sink for one run. An empty runID gets a
// fresh UUID.
func (s *RunStore) NewRunAudit(runID string) *RunAudit {
	if runID == "" {
		runID = uuid.NewString()
	}
	return &RunAudit{store: s, runID: runID}
}

// RunID returns the bound run id.
func (a *RunAudit) RunID() string { return a.runID }

func (a *RunAudit) RecordSignal(signal types.Signal) {
	_, err := a.store.db.Exec(`INSERT INTO signals (run_id, symbol, side, strength, generated_at)
        VALUES (?, ?, ?, ?, ?)`,
		a.runID, signal.Symbol, string(signal.Side), signal.Strength,
		signal.GeneratedAt.Format(time.RFC3339))
	if err != nil {
		log.Printf("run store: record signal: %v", err)
	}
}

func (a *RunAudit) RecordOrder(order types.OrderRequest, decision types.RiskDecision) {
	_, err := a.store.db.Exec(`INSERT INTO orders (run_id, symbol, side, quantity, order_type, decision, reason, created_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		a.runID, order.Symbol, string(order.Side), order.Quantity, order.OrderType,
		string(decision.Decision), decision.Reason, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		log.Printf("run store: record order: %v", err)
	}
}

func (a *RunAudit) RecordFill(fill types.Fill) {
	_, err := a.store.db.Exec(`INSERT INTO fills (run_id, order_id, symbol, side, quantity, price, fee, slippage_bps, spread_bps, latency_ms, filled_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.runID, fill.OrderID, fill.Symbol, string(fill.Side), fill.Quantity, fill.Price,
		fill.Fee, fill.SlippageBps, fill.SpreadBps, fill.LatencyMs,
		fill.FilledAt.Format(time.RFC3339))
	if err != nil {
		log.Printf("run store: record fill: %v", err)
	}
}

// Fills returns the recorded fills for a run, insertion order.
func (s *RunStore) Fills(runID string) ([]types.Fill, error) {
	rows, err := s.db.Query(`SELECT order_id, symbol, side, quantity, price, fee, slippage_bps, spread_bps, latency_ms, filled_at
        FROM fills WHERE run_id = ? ORDER BY id ASC`, runID)
	if err != nil {
		return nil, fmt.Errorf("run store: query fills: %w", err)
	}
	defer rows.Close()
	var fills []types.Fill
	for rows.Next() {
		var fill types.Fill
		var side, filledAt string
		if err := rows.Scan(&fill.OrderID, &fill.Symbol, &side, &fill.Quantity, &fill.Price,
			&fill.Fee, &fill.SlippageBps, &fill.SpreadBps, &fill.LatencyMs, &filledAt); err != nil {
			return nil, fmt.Errorf("run store: scan fill: %w", err)
		}
		fill.Side = types.OrderSide(side)
		fill.FilledAt, _ = time.Parse(time.RFC3339, filledAt)
		fills = append(fills, fill)
	}
	return fills, rows.Err()
}

package options

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

const ivHistorySchema = `
CREATE TABLE IF NOT EXISTS iv_history (
    symbol      TEXT NOT NULL,
    expiration  TEXT NOT NULL,
    strike      REAL NOT NULL,
    option_type TEXT NOT NULL,
    iv          REAL NOT NULL,
    ts          TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_iv_hist
    ON iv_history(symbol, expiration, strike, option_type, ts);
`

// IVHistoryStore persists implied-volatility snapshots so a contract's
// current IV can be ranked against its own history.
type IVHistoryStore struct {
	db *sql.DB
}

// NewIVHistoryStore opens (or creates) the store at path. ":memory:" works
// for tests.
func NewIVHistoryStore(path string) (*IVHistoryStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("iv history: open %q: %w", path, err)
	}
	db.SetMaxOpenConns(1) // SQLite is single-writer
	if _, err := db.Exec(ivHistorySchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("iv history: apply schema: %w", err)
	}
	return &IVHistoryStore{db: db}, nil
}

// Close releases the database handle.
func (s *IVHistoryStore) Close() error { return s.db.Close() }

// RecordSnapshot appends the IV of every contract that carries one.
func (s *IVHistoryStore) RecordSnapshot(contracts []OptionContract, ts time.Time) error {
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("iv history: begin: %w", err)
	}
	stmt, err := tx.Prepare(`INSERT INTO iv_history (symbol, expiration, strike, option_type, iv, ts)
        VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("iv history: prepare: %w", err)
	}
	defer stmt.Close()
	for _, contract := range contracts {
		if !contract.HasIV {
			continue
		}
		if _, err := stmt.Exec(
			contract.Underlying,
			contract.Expiration.Format("2006-01-02"),
			contract.Strike,
			string(contract.Type),
			contract.IV,
			ts.Format(time.RFC3339),
		); err != nil {
			tx.Rollback()
			return fmt.Errorf("iv history: insert %s: %w", contract.Symbol, err)
		}
	}
	return tx.Commit()
}

// History returns the recorded IVs for one contract key over the lookback
// window, oldest first.
func (s *IVHistoryStore) History(underlying string, expiration time.Time, strike float64, optionType OptionType, lookbackDays int) ([]float64, error) {
	since := time.Now().UTC().AddDate(0, 0, -lookbackDays).Format(time.RFC3339)
	rows, err := s.db.Query(`SELECT iv FROM iv_history
        WHERE symbol = ? AND expiration = ? AND strike = ? AND option_type = ? AND ts >= ?
        ORDER BY ts ASC`,
		underlying, expiration.Format("2006-01-02"), strike, string(optionType), since)
	if err != nil {
		return nil, fmt.Errorf("iv history: query: %w", err)
	}
	defer rows.Close()
	var ivs []float64
	for rows.Next() {
		var iv float64
		if err := rows.Scan(&iv); err != nil {
			return nil, fmt.Errorf("iv history: scan: %w", err)
		}
		ivs = append(ivs, iv)
	}
	return ivs, rows.Err()
}

// IVRankHistory ranks the contract's current IV within its own history:
// 0 at the historical low, 1 at the high, 0.5 when the history is flat.
// Returns false when there is no history or the contract has no IV.
func (s *IVHistoryStore) IVRankHistory(contract OptionContract, lookbackDays int) (float64, bool, error) {
	if !contract.HasIV {
		return 0, false, nil
	}
	history, err := s.History(contract.Underlying, contract.Expiration, contract.Strike, contract.Type, lookbackDays)
	if err != nil {
		return 0, false, err
	}
	if len(history) == 0 {
		return 0, false, nil
	}
	minIV := history[0]
	maxIV := history[0]
	for _, iv := range history[1:] {
		if iv < minIV {
			minIV = iv
		}
		if iv > maxIV {
			maxIV = iv
		}
	}
	if maxIV == minIV {
		return 0.5, true, nil
	}
	return (contract.IV - minIV) / (maxIV - minIV), true, nil
}

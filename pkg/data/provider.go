// Package data loads historical bar series from CSV files, the Bybit
// market API, or a deterministic synthetic generator, and validates them
// before they reach the backtest loop.
package data

import (
	"errors"
	"fmt"

	"github.com/minhle-quant/tradesim/pkg/types"
)

// Provider loads a historical bar series from a source reference whose
// meaning is provider-specific (file path, symbol, ...).
type Provider interface {
	Load(source string) ([]types.Bar, error)
	Name() string
}

// ErrInputOrdering marks a bar series that is unusable: out of time order
// or timezone-inconsistent. Fatal for the run that consumed the series;
// callers must not retry.
var ErrInputOrdering = errors.New("input ordering violation")

// EnsureTimeOrdered fails when timestamps decrease anywhere in the series.
func EnsureTimeOrdered(bars []types.Bar) error {
	for i := 1; i < len(bars); i++ {
		if bars[i].Ts.Before(bars[i-1].Ts) {
			return fmt.Errorf("%w: bar %d (%s) precedes bar %d (%s)",
				ErrInputOrdering, i, bars[i].Ts, i-1, bars[i-1].Ts)
		}
	}
	return nil
}

// EnsureTimezoneConsistent fails when bars mix timestamp locations.
func EnsureTimezoneConsistent(bars []types.Bar) error {
	if len(bars) == 0 {
		return nil
	}
	loc := bars[0].Ts.Location()
	for i, bar := range bars {
		if bar.Ts.Location() != loc {
			return fmt.Errorf("%w: bar %d in %s, series starts in %s",
				ErrInputOrdering, i, bar.Ts.Location(), loc)
		}
	}
	return nil
}

// Validate runs every series check a provider's output must pass.
func Validate(bars []types.Bar) error {
	if err := EnsureTimeOrdered(bars); err != nil {
		return err
	}
	return EnsureTimezoneConsistent(bars)
}

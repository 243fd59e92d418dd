package data

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "bars.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// TestCSVProvider_LoadDefaultFormat loads RFC3339-stamped bars
func TestCSVProvider_LoadDefaultFormat(t *testing.T) {
	path := writeCSV(t, `timestamp,open,high,low,close,volume
2024-01-02T09:00:00Z,100,101,99,100.5,1000
2024-01-02T10:00:00Z,100.5,102,100,101.5,1200
`)
	provider := NewCSVProvider("AAPL", "1h")
	bars, err := provider.Load(path)
	require.NoError(t, err)
	require.Len(t, bars, 2)

	assert.Equal(t, time.Date(2024, 1, 2, 9, 0, 0, 0, time.UTC), bars[0].Ts)
	assert.Equal(t, 100.0, bars[0].Open)
	assert.Equal(t, 101.0, bars[0].High)
	assert.Equal(t, 99.0, bars[0].Low)
	assert.Equal(t, 100.5, bars[0].Close)
	assert.Equal(t, 1000.0, bars[0].Volume)
	assert.Equal(t, "AAPL", bars[0].Symbol)
	assert.Equal(t, "1h", bars[0].Timeframe)
	assert.Equal(t, "csv", bars[0].Source)
	assert.False(t, bars[0].FetchedAt.IsZero())
}

// TestCSVProvider_EpochMillisFallback parses numeric timestamps as epoch millis
func TestCSVProvider_EpochMillisFallback(t *testing.T) {
	path := writeCSV(t, `timestamp,open,high,low,close,volume
1704186000000,100,101,99,100.5,1000
`)
	provider := NewCSVProvider("BTCUSDT", "1h")
	bars, err := provider.Load(path)
	require.NoError(t, err)
	require.Len(t, bars, 1)
	assert.Equal(t, time.UnixMilli(1704186000000).UTC(), bars[0].Ts)
}

// TestCSVProvider_OutOfOrderRows rejects a series with decreasing timestamps
func TestCSVProvider_OutOfOrderRows(t *testing.T) {
	path := writeCSV(t, `timestamp,open,high,low,close,volume
2024-01-02T10:00:00Z,100,101,99,100.5,1000
2024-01-02T09:00:00Z,100.5,102,100,101.5,1200
`)
	provider := NewCSVProvider("AAPL", "1h")
	_, err := provider.Load(path)
	assert.ErrorIs(t, err, ErrInputOrdering)
}

// TestCSVProvider_TooFewColumns rejects narrow rows
func TestCSVProvider_TooFewColumns(t *testing.T) {
	path := writeCSV(t, `timestamp,open,high
2024-01-02T09:00:00Z,100,101
`)
	provider := NewCSVProvider("AAPL", "1h")
	_, err := provider.Load(path)
	assert.Error(t, err)
}

// TestCSVProvider_BadPrice rejects non-numeric price fields
func TestCSVProvider_BadPrice(t *testing.T) {
	path := writeCSV(t, `timestamp,open,high,low,close,volume
2024-01-02T09:00:00Z,abc,101,99,100.5,1000
`)
	provider := NewCSVProvider("AAPL", "1h")
	_, err := provider.Load(path)
	assert.Error(t, err)
}

// TestCSVProvider_MissingFile surfaces the open error
func TestCSVProvider_MissingFile(t *testing.T) {
	provider := NewCSVProvider("AAPL", "1h")
	_, err := provider.Load(filepath.Join(t.TempDir(), "absent.csv"))
	assert.Error(t, err)
}

// TestCSVProvider_CustomFormat maps shuffled columns
func TestCSVProvider_CustomFormat(t *testing.T) {
	path := writeCSV(t, `close,volume,timestamp,open,high,low
100.5,1000,2024-01-02T09:00:00Z,100,101,99
`)
	format := CSVColumnMapping{
		TimestampCol: 2,
		OpenCol:      3,
		HighCol:      4,
		LowCol:       5,
		CloseCol:     0,
		VolumeCol:    1,
		MinColumns:   6,
		DateFormat:   time.RFC3339,
	}
	provider := NewCSVProviderWithFormat("AAPL", "1h", format)
	bars, err := provider.Load(path)
	require.NoError(t, err)
	require.Len(t, bars, 1)
	assert.Equal(t, 100.5, bars[0].Close)
	assert.Equal(t, 99.0, bars[0].Low)
}

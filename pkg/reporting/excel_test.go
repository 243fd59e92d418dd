package reporting

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/minhle-quant/tradesim/pkg/types"
)

// TestWriteResultXLSX_Workbook writes all three sheets with the result data
func TestWriteResultXLSX_Workbook(t *testing.T) {
	path := filepath.Join(t.TempDir(), "result.xlsx")
	result := types.BacktestResult{
		Metrics:     map[string]float64{"sharpe": 1.25, "max_drawdown": 0.08},
		EquityCurve: []float64{100_000, 101_500},
		Trades: []types.Fill{{
			OrderID: "o-1", Symbol: "BTCUSDT", Side: types.OrderBuy,
			Quantity: 2, Price: 100.5, Fee: 0.2,
			FilledAt: time.Date(2024, 6, 3, 9, 0, 0, 0, time.UTC),
		}},
	}
	require.NoError(t, WriteResultXLSX(result, path))

	fx, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer fx.Close()

	assert.ElementsMatch(t, []string{"Trades", "Equity", "Metrics"}, fx.GetSheetList())

	symbol, err := fx.GetCellValue("Trades", "C2")
	require.NoError(t, err)
	assert.Equal(t, "BTCUSDT", symbol)

	equity, err := fx.GetCellValue("Equity", "B3")
	require.NoError(t, err)
	assert.NotEmpty(t, equity)
}

// TestWriteResultXLSX_CreatesParentDir builds missing directories on the way
func TestWriteResultXLSX_CreatesParentDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "deep", "result.xlsx")
	result := types.BacktestResult{
		Metrics:     map[string]float64{},
		EquityCurve: []float64{},
		Trades:      []types.Fill{},
	}
	require.NoError(t, WriteResultXLSX(result, path))

	fx, err := excelize.OpenFile(path)
	require.NoError(t, err)
	fx.Close()
}

package reporting

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/minhle-quant/tradesim/pkg/types"
)

// ExcelStyles holds the workbook cell styles.
type ExcelStyles struct {
	HeaderStyle   int
	CurrencyStyle int
	NumberStyle   int
	BaseStyle     int
}

// WriteResultXLSX writes a backtest result workbook with a Trades sheet,
// an Equity sheet and a Metrics sheet.
func WriteResultXLSX(result types.BacktestResult, path string) error {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	fx := excelize.NewFile()
	defer fx.Close()

	const tradesSheet = "Trades"
	const equitySheet = "Equity"
	const metricsSheet = "Metrics"

	fx.SetSheetName(fx.GetSheetName(0), tradesSheet)
	fx.NewSheet(equitySheet)
	fx.NewSheet(metricsSheet)

	styles, err := createExcelStyles(fx)
	if err != nil {
		return err
	}

	if err := writeTradesSheet(fx, tradesSheet, result.Trades, styles); err != nil {
		return err
	}
	if err := writeEquitySheet(fx, equitySheet, result.EquityCurve, styles); err != nil {
		return err
	}
	if err := writeMetricsSheet(fx, metricsSheet, result.Metrics, styles); err != nil {
		return err
	}

	return fx.SaveAs(path)
}

func createExcelStyles(fx *excelize.File) (ExcelStyles, error) {
	var styles ExcelStyles
	var err error

	styles.HeaderStyle, err = fx.NewStyle(&excelize.Style{
		Font: &excelize.Font{
			Bold:   true,
			Size:   11,
			Color:  "FFFFFF",
			Family: "Calibri",
		},
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{"2F4F4F"},
			Pattern: 1,
		},
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
		},
	})
	if err != nil {
		return styles, err
	}

	styles.CurrencyStyle, err = fx.NewStyle(&excelize.Style{
		NumFmt: 7,
		Alignment: &excelize.Alignment{
			Horizontal: "right",
		},
	})
	if err != nil {
		return styles, err
	}

	styles.NumberStyle, err = fx.NewStyle(&excelize.Style{
		NumFmt: 2,
		Alignment: &excelize.Alignment{
			Horizontal: "right",
		},
	})
	if err != nil {
		return styles, err
	}

	styles.BaseStyle, err = fx.NewStyle(&excelize.Style{
		Alignment: &excelize.Alignment{
			Horizontal: "left",
		},
	})
	return styles, err
}

func writeTradesSheet(fx *excelize.File, sheet string, trades []types.Fill, styles ExcelStyles) error {
	headers := []string{"Filled At", "Order ID", "Symbol", "Side", "Quantity", "Price", "Fee", "Slippage (bps)", "Spread (bps)", "Latency (ms)"}
	for col, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		fx.SetCellValue(sheet, cell, header)
		fx.SetCellStyle(sheet, cell, cell, styles.HeaderStyle)
	}

	for i, fill := range trades {
		row := i + 2
		values := []interface{}{
			fill.FilledAt.Format(time.RFC3339),
			fill.OrderID,
			fill.Symbol,
			string(fill.Side),
			fill.Quantity,
			fill.Price,
			fill.Fee,
			fill.SlippageBps,
			fill.SpreadBps,
			fill.LatencyMs,
		}
		for col, value := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row)
			fx.SetCellValue(sheet, cell, value)
		}
	}

	fx.SetColWidth(sheet, "A", "A", 22)
	fx.SetColWidth(sheet, "B", "B", 38)
	fx.SetColWidth(sheet, "C", "J", 14)
	return nil
}

func writeEquitySheet(fx *excelize.File, sheet string, curve []float64, styles ExcelStyles) error {
	fx.SetCellValue(sheet, "A1", "Bar")
	fx.SetCellValue(sheet, "B1", "Equity")
	fx.SetCellStyle(sheet, "A1", "B1", styles.HeaderStyle)

	for i, equity := range curve {
		row := i + 2
		fx.SetCellValue(sheet, fmt.Sprintf("A%d", row), i)
		cell := fmt.Sprintf("B%d", row)
		fx.SetCellValue(sheet, cell, equity)
		fx.SetCellStyle(sheet, cell, cell, styles.CurrencyStyle)
	}

	fx.SetColWidth(sheet, "B", "B", 16)
	return nil
}

func writeMetricsSheet(fx *excelize.File, sheet string, metrics map[string]float64, styles ExcelStyles) error {
	fx.SetCellValue(sheet, "A1", "Metric")
	fx.SetCellValue(sheet, "B1", "Value")
	fx.SetCellStyle(sheet, "A1", "B1", styles.HeaderStyle)

	row := 2
	for _, key := range metricOrder {
		value, ok := metrics[key]
		if !ok {
			continue
		}
		fx.SetCellValue(sheet, fmt.Sprintf("A%d", row), metricLabels[key])
		cell := fmt.Sprintf("B%d", row)
		fx.SetCellValue(sheet, cell, value)
		fx.SetCellStyle(sheet, cell, cell, styles.NumberStyle)
		row++
	}

	fx.SetColWidth(sheet, "A", "A", 20)
	fx.SetColWidth(sheet, "B", "B", 14)
	return nil
}

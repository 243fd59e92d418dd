// Package reporting renders simulation results to the console and to
// workbook and JSON files.
package reporting

import (
	"fmt"
	"os"
	"sort"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/minhle-quant/tradesim/internal/backtest"
	"github.com/minhle-quant/tradesim/pkg/types"
)

// metricOrder fixes the display order of the headline metrics.
var metricOrder = []string{
	"cagr", "sharpe", "sortino", "calmar",
	"max_drawdown", "time_under_water",
	"win_rate", "profit_factor", "expectancy",
}

var metricLabels = map[string]string{
	"cagr":             "CAGR",
	"sharpe":           "Sharpe Ratio",
	"sortino":          "Sortino Ratio",
	"calmar":           "Calmar Ratio",
	"max_drawdown":     "Max Drawdown",
	"time_under_water": "Time Under Water",
	"win_rate":         "Win Rate",
	"profit_factor":    "Profit Factor",
	"expectancy":       "Expectancy",
}

// PrintResult renders a backtest result as a console table.
func PrintResult(title string, result types.BacktestResult) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetTitle(title)
	t.SetStyle(table.StyleRounded)

	for _, key := range metricOrder {
		value, ok := result.Metrics[key]
		if !ok {
			continue
		}
		t.AppendRow(table.Row{metricLabels[key], fmt.Sprintf("%.4f", value)})
	}
	t.AppendSeparator()
	t.AppendRows([]table.Row{
		{"Trades", fmt.Sprintf("%d", len(result.Trades))},
		{"Equity Points", fmt.Sprintf("%d", len(result.EquityCurve))},
	})
	if n := len(result.EquityCurve); n > 0 {
		t.AppendRow(table.Row{"Final Equity", fmt.Sprintf("$%.2f", result.EquityCurve[n-1])})
	}

	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, WidthMin: 18, WidthMax: 18, Align: text.AlignLeft},
		{Number: 2, WidthMin: 14, WidthMax: 20, Align: text.AlignRight},
	})

	t.Render()
	fmt.Println()
}

// PrintGridResults renders grid search outcomes ranked by the objective,
// best first.
func PrintGridResults(result backtest.GridResult, limit int) {
	ranked := make([]backtest.GridPoint, len(result.Results))
	copy(ranked, result.Results)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Metrics[result.Objective] > ranked[j].Metrics[result.Objective]
	})
	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetTitle("GRID SEARCH")
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"#", "Params", result.Objective, "Max DD"})

	for i, point := range ranked {
		t.AppendRow(table.Row{
			i + 1,
			formatParams(point.Params),
			fmt.Sprintf("%.4f", point.Metrics[result.Objective]),
			fmt.Sprintf("%.4f", point.Metrics["max_drawdown"]),
		})
	}

	t.Render()
	fmt.Println()
}

// PrintWalkForward renders per-window out-of-sample metrics.
func PrintWalkForward(windows []backtest.WalkForwardWindow) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetTitle("WALK-FORWARD")
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"Window", "Train", "Test", "Sharpe", "CAGR", "Max DD"})

	for i, w := range windows {
		t.AppendRow(table.Row{
			i + 1,
			fmt.Sprintf("%s..%s", w.TrainStart.Format("2006-01-02"), w.TrainEnd.Format("2006-01-02")),
			fmt.Sprintf("%s..%s", w.TestStart.Format("2006-01-02"), w.TestEnd.Format("2006-01-02")),
			fmt.Sprintf("%.4f", w.Metrics["sharpe"]),
			fmt.Sprintf("%.4f", w.Metrics["cagr"]),
			fmt.Sprintf("%.4f", w.Metrics["max_drawdown"]),
		})
	}

	t.Render()
	fmt.Println()
}

func formatParams(params map[string]float64) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := ""
	for i, k := range keys {
		if i > 0 {
			out += " "
		}
		out += fmt.Sprintf("%s=%g", k, params[k])
	}
	return out
}

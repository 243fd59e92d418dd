// Package backtest drives strategies over historical bars: the single-run
// loop, exhaustive grid search and walk-forward evaluation.
package backtest

import (
	"errors"
	"fmt"
	"math"

	"github.com/minhle-quant/tradesim/internal/broker"
	"github.com/minhle-quant/tradesim/internal/execution"
	"github.com/minhle-quant/tradesim/internal/risk"
	"github.com/minhle-quant/tradesim/internal/strategy"
	"github.com/minhle-quant/tradesim/pkg/config"
	"github.com/minhle-quant/tradesim/pkg/data"
	"github.com/minhle-quant/tradesim/pkg/metrics"
	"github.com/minhle-quant/tradesim/pkg/types"
)

// Audit receives engine checkpoints: every signal, accepted order and
// fill. It is an at-least-once sink; the simulation result never depends
// on it.
type Audit interface {
	RecordSignal(signal types.Signal)
	RecordOrder(order types.OrderRequest, decision types.RiskDecision)
	RecordFill(fill types.Fill)
}

// Options configures one run. Zero value means reference defaults.
type Options struct {
	Execution   *config.ExecutionConfig
	Risk        *config.RiskConfig
	InitialCash float64
	Audit       Audit
}

func (o Options) withDefaults() Options {
	defaults := config.Default()
	if o.Execution == nil {
		o.Execution = &defaults.Execution
	}
	if o.Risk == nil {
		o.Risk = &defaults.Risk
	}
	if o.InitialCash == 0 {
		o.InitialCash = defaults.Broker.InitialCash
	}
	return o
}

// Run executes one backtest: for each bar past the strategy's minimum
// history it evaluates the strategy on the prefix, sizes and risk-checks
// non-flat signals, books fills on a fresh paper broker, and snapshots
// equity. Liquidity-blocked orders are skipped without aborting the run;
// ordering violations abort it.
func Run(strat strategy.Strategy, bars []types.Bar, opts Options) (types.BacktestResult, error) {
	if err := data.Validate(bars); err != nil {
		return types.BacktestResult{}, err
	}
	empty := types.BacktestResult{
		Metrics:     map[string]float64{},
		EquityCurve: []float64{},
		Trades:      []types.Fill{},
	}
	if len(bars) == 0 {
		return empty, nil
	}

	opts = opts.withDefaults()
	simulator := execution.NewSimulator(*opts.Execution)
	ledger := broker.NewPaper(simulator, opts.InitialCash)
	riskEngine := risk.NewEngine(*opts.Risk)

	minHistory := strat.MinHistory()
	if minHistory < 2 {
		minHistory = 2
	}

	// A series shorter than the minimum history runs zero iterations and
	// still reports the full metrics map, all zero.
	equityCurve := make([]float64, 0, max(len(bars)-minHistory, 0))
	trades := []types.Fill{}
	ddState := broker.DrawdownState{PeakEquity: opts.InitialCash}

	for i := minHistory; i < len(bars); i++ {
		history := bars[:i+1]
		latest := history[len(history)-1]
		ledger.MarkPrice(latest.Symbol, latest.Close)

		for _, signal := range strat.GenerateSignals(history) {
			if opts.Audit != nil {
				opts.Audit.RecordSignal(signal)
			}
			if signal.Side == types.SideFlat {
				continue
			}
			portfolio := ledger.Snapshot(ddState)
			notional := strat.PositionSizing(signal, portfolio.Equity)
			if notional <= 0 {
				continue
			}
			side := types.OrderBuy
			if signal.Side == types.SideShort {
				side = types.OrderSell
			}
			order := types.OrderRequest{
				Symbol:       signal.Symbol,
				Side:         side,
				Quantity:     notional / math.Max(latest.Close, 1e-6),
				OrderType:    "market",
				MarketPrice:  latest.Close,
				HasMarket:    true,
				TimeInForce:  "day",
				StrategyName: strat.Name(),
				Meta:         signal.Meta,
			}
			decision := riskEngine.EvaluateOrder(order, portfolio, latest.Close)
			if opts.Audit != nil {
				opts.Audit.RecordOrder(order, decision)
			}
			if decision.Decision == types.DecisionDeny {
				continue
			}
			if decision.Decision == types.DecisionReduce {
				order = order.WithQuantity(decision.AdjustedQuantity)
			}
			volume := latest.Volume
			fill, err := ledger.PlaceOrderAt(order, &volume, latest.Ts)
			if err != nil {
				if errors.Is(err, execution.ErrLiquidityBlocked) {
					continue
				}
				return types.BacktestResult{}, fmt.Errorf("backtest: place order at bar %d: %w", i, err)
			}
			if opts.Audit != nil {
				opts.Audit.RecordFill(fill)
			}
			trades = append(trades, fill)
		}

		equity := ledger.Equity()
		ddState = advanceDrawdown(ddState, equity, equityCurve)
		equityCurve = append(equityCurve, equity)
	}

	periods := metrics.PeriodsPerYear(bars[0].Timeframe)
	returns := metrics.Returns(equityCurve)
	result := types.BacktestResult{
		Metrics: map[string]float64{
			"cagr":             metrics.CAGR(equityCurve, periods),
			"sharpe":           metrics.Sharpe(returns, periods),
			"sortino":          metrics.Sortino(returns, periods),
			"calmar":           metrics.Calmar(equityCurve, periods),
			"max_drawdown":     metrics.MaxDrawdown(equityCurve),
			"time_under_water": float64(metrics.TimeUnderWater(equityCurve)),
			"win_rate":         metrics.WinRate(returns),
			"profit_factor":    metrics.ProfitFactor(returns),
			"expectancy":       metrics.Expectancy(returns),
		},
		EquityCurve: equityCurve,
		Trades:      trades,
	}
	return result, nil
}

// advanceDrawdown rolls the peak/drawdown/loss-streak counters forward by
// one equity observation.
func advanceDrawdown(state broker.DrawdownState, equity float64, equityCurve []float64) broker.DrawdownState {
	if equity > state.PeakEquity {
		state.PeakEquity = equity
	}
	if state.PeakEquity > 0 {
		state.Drawdown = (state.PeakEquity - equity) / state.PeakEquity
	}
	if n := len(equityCurve); n > 0 {
		if equity < equityCurve[n-1] {
			state.LossStreak++
		} else {
			state.LossStreak = 0
		}
	}
	return state
}

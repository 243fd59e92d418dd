package options

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/minhle-quant/tradesim/pkg/metrics"
	"github.com/minhle-quant/tradesim/pkg/types"
)

// ErrInsufficientCash is returned when a backtest entry requires more
// capital than provided. Fatal for that invocation.
var ErrInsufficientCash = errors.New("insufficient cash")

// OptionTrade is one roll of a periodic options backtest.
type OptionTrade struct {
	Kind        string
	EntryAt     time.Time
	ExpiryAt    time.Time
	Spot        float64
	Strike      float64
	LongStrike  float64
	ShortStrike float64
	Premium     float64
	NetDebit    float64
	Assigned    bool
	Called      bool
}

// OptionsBacktestResult is the output of one periodic options backtest.
type OptionsBacktestResult struct {
	Metrics     map[string]float64
	EquityCurve []float64
	Trades      []OptionTrade
}

// realizedVol estimates annualized volatility as the population stddev of
// trailing simple returns scaled by sqrt(252), floored at 5%. With too
// little history it falls back to 30%.
func realizedVol(bars []types.Bar, lookback int) float64 {
	if len(bars) < lookback+1 {
		return 0.3
	}
	var returns []float64
	for i := len(bars) - lookback; i < len(bars); i++ {
		prev := bars[i-1].Close
		if prev == 0 {
			continue
		}
		returns = append(returns, bars[i].Close/prev-1)
	}
	if len(returns) == 0 {
		return 0.3
	}
	avg := 0.0
	for _, r := range returns {
		avg += r
	}
	avg /= float64(len(returns))
	variance := 0.0
	for _, r := range returns {
		variance += (r - avg) * (r - avg)
	}
	variance /= float64(len(returns))
	return math.Max(0.05, math.Sqrt(variance)*math.Sqrt(252))
}

// rollMetrics annualizes with 12 periods per year since the reference
// holding period is roughly monthly.
func rollMetrics(equityCurve []float64) map[string]float64 {
	if len(equityCurve) < 2 {
		return map[string]float64{"cagr": 0, "sharpe": 0, "max_drawdown": 0}
	}
	const periodsPerYear = 12
	returns := metrics.Returns(equityCurve)
	return map[string]float64{
		"cagr":         metrics.CAGR(equityCurve, periodsPerYear),
		"sharpe":       metrics.Sharpe(returns, periodsPerYear),
		"max_drawdown": metrics.MaxDrawdown(equityCurve),
	}
}

// WheelConfig parameterizes BacktestWheel.
type WheelConfig struct {
	InitialCash float64
	HoldDays    int
	PutOTMPct   float64
	CallOTMPct  float64
	Lookback    int
	Rate        float64
}

// DefaultWheelConfig mirrors the reference parameters.
func DefaultWheelConfig() WheelConfig {
	return WheelConfig{
		InitialCash: 10_000,
		HoldDays:    30,
		PutOTMPct:   0.05,
		CallOTMPct:  0.05,
		Lookback:    20,
		Rate:        0.02,
	}
}

// BacktestWheel rolls the wheel across the bars: sell a cash-secured put
// while flat; once assigned, sell covered calls until the shares are
// called away. Premiums come from Black-Scholes at the realized vol;
// assignment and exercise are plain strike-vs-spot comparisons at expiry.
func BacktestWheel(bars []types.Bar, cfg WheelConfig) OptionsBacktestResult {
	cash := cfg.InitialCash
	shares := 0.0
	var equityCurve []float64
	var trades []OptionTrade

	start := cfg.Lookback
	if start < 1 {
		start = 1
	}
	for idx := start; idx < len(bars)-cfg.HoldDays; idx += cfg.HoldDays {
		entry := bars[idx]
		expiry := bars[idx+cfg.HoldDays]
		spot := entry.Close
		expPrice := expiry.Close
		vol := realizedVol(bars[:idx], cfg.Lookback)
		t := float64(cfg.HoldDays) / 365

		if shares == 0 {
			strike := spot * (1 - cfg.PutOTMPct)
			premium := BSPrice(spot, strike, t, cfg.Rate, vol, Put)
			cash += premium * 100
			assigned := expPrice < strike
			if assigned {
				cash -= strike * 100
				shares = 100
			}
			trades = append(trades, OptionTrade{
				Kind:     "wheel_put",
				EntryAt:  entry.Ts,
				ExpiryAt: expiry.Ts,
				Spot:     spot,
				Strike:   strike,
				Premium:  premium,
				Assigned: assigned,
			})
		} else {
			strike := spot * (1 + cfg.CallOTMPct)
			premium := BSPrice(spot, strike, t, cfg.Rate, vol, Call)
			cash += premium * 100
			called := expPrice > strike
			if called {
				cash += strike * 100
				shares = 0
			}
			trades = append(trades, OptionTrade{
				Kind:     "wheel_call",
				EntryAt:  entry.Ts,
				ExpiryAt: expiry.Ts,
				Spot:     spot,
				Strike:   strike,
				Premium:  premium,
				Called:   called,
			})
		}
		equityCurve = append(equityCurve, cash+shares*expPrice)
	}
	return OptionsBacktestResult{
		Metrics:     rollMetrics(equityCurve),
		EquityCurve: equityCurve,
		Trades:      trades,
	}
}

// CoveredCallConfig parameterizes BacktestCoveredCall.
type CoveredCallConfig struct {
	InitialCash float64
	HoldDays    int
	CallOTMPct  float64
	Lookback    int
	Rate        float64
}

// DefaultCoveredCallConfig mirrors the reference parameters.
func DefaultCoveredCallConfig() CoveredCallConfig {
	return CoveredCallConfig{
		InitialCash: 10_000,
		HoldDays:    30,
		CallOTMPct:  0.05,
		Lookback:    20,
		Rate:        0.02,
	}
}

// BacktestCoveredCall buys 100 shares at the first bar and rolls OTM calls
// against them. Called-away shares are immediately repurchased at the
// expiry price so the position stays covered for the next roll.
func BacktestCoveredCall(bars []types.Bar, cfg CoveredCallConfig) (OptionsBacktestResult, error) {
	if len(bars) == 0 {
		return OptionsBacktestResult{Metrics: map[string]float64{}, EquityCurve: []float64{}, Trades: []OptionTrade{}}, nil
	}
	spot0 := bars[0].Close
	if cfg.InitialCash < spot0*100 {
		return OptionsBacktestResult{}, fmt.Errorf("%w: covered call entry needs %.2f, have %.2f",
			ErrInsufficientCash, spot0*100, cfg.InitialCash)
	}
	cash := cfg.InitialCash - spot0*100
	const shares = 100.0
	var equityCurve []float64
	var trades []OptionTrade

	start := cfg.Lookback
	if start < 1 {
		start = 1
	}
	for idx := start; idx < len(bars)-cfg.HoldDays; idx += cfg.HoldDays {
		entry := bars[idx]
		expiry := bars[idx+cfg.HoldDays]
		spot := entry.Close
		expPrice := expiry.Close
		vol := realizedVol(bars[:idx], cfg.Lookback)
		t := float64(cfg.HoldDays) / 365

		strike := spot * (1 + cfg.CallOTMPct)
		premium := BSPrice(spot, strike, t, cfg.Rate, vol, Call)
		cash += premium * 100
		called := expPrice > strike
		if called {
			cash += strike * 100
			cash -= expPrice * 100
		}
		trades = append(trades, OptionTrade{
			Kind:     "covered_call",
			EntryAt:  entry.Ts,
			ExpiryAt: expiry.Ts,
			Spot:     spot,
			Strike:   strike,
			Premium:  premium,
			Called:   called,
		})
		equityCurve = append(equityCurve, cash+shares*expPrice)
	}
	return OptionsBacktestResult{
		Metrics:     rollMetrics(equityCurve),
		EquityCurve: equityCurve,
		Trades:      trades,
	}, nil
}

// VerticalConfig parameterizes BacktestVertical.
type VerticalConfig struct {
	InitialCash float64
	HoldDays    int
	LongPct     float64
	ShortPct    float64
	Lookback    int
	Rate        float64
	Type        OptionType
}

// DefaultVerticalConfig mirrors the reference parameters (ATM long leg,
// 5% OTM short leg, calls).
func DefaultVerticalConfig() VerticalConfig {
	return VerticalConfig{
		InitialCash: 10_000,
		HoldDays:    30,
		LongPct:     0,
		ShortPct:    0.05,
		Lookback:    20,
		Rate:        0.02,
		Type:        Call,
	}
}

// BacktestVertical rolls a debit vertical spread, paying the model net
// debit at entry and collecting the capped intrinsic payoff at expiry.
// Rolls the account cannot afford are skipped.
func BacktestVertical(bars []types.Bar, cfg VerticalConfig) OptionsBacktestResult {
	cash := cfg.InitialCash
	var equityCurve []float64
	var trades []OptionTrade

	start := cfg.Lookback
	if start < 1 {
		start = 1
	}
	for idx := start; idx < len(bars)-cfg.HoldDays; idx += cfg.HoldDays {
		entry := bars[idx]
		expiry := bars[idx+cfg.HoldDays]
		spot := entry.Close
		expPrice := expiry.Close
		vol := realizedVol(bars[:idx], cfg.Lookback)
		t := float64(cfg.HoldDays) / 365

		longStrike := spot * (1 + cfg.LongPct)
		shortStrike := spot * (1 + cfg.ShortPct)
		longPrice := BSPrice(spot, longStrike, t, cfg.Rate, vol, cfg.Type)
		shortPrice := BSPrice(spot, shortStrike, t, cfg.Rate, vol, cfg.Type)
		netDebit := longPrice - shortPrice
		if cash < netDebit*100 {
			continue
		}
		cash -= netDebit * 100

		var payoff float64
		if cfg.Type == Call {
			payoff = math.Min(math.Max(expPrice-longStrike, 0), shortStrike-longStrike)
		} else {
			payoff = math.Min(math.Max(longStrike-expPrice, 0), longStrike-shortStrike)
		}
		cash += payoff * 100

		trades = append(trades, OptionTrade{
			Kind:        fmt.Sprintf("vertical_%s", cfg.Type),
			EntryAt:     entry.Ts,
			ExpiryAt:    expiry.Ts,
			Spot:        spot,
			LongStrike:  longStrike,
			ShortStrike: shortStrike,
			NetDebit:    netDebit,
		})
		equityCurve = append(equityCurve, cash)
	}
	return OptionsBacktestResult{
		Metrics:     rollMetrics(equityCurve),
		EquityCurve: equityCurve,
		Trades:      trades,
	}
}

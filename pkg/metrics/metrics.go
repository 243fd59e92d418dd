// Package metrics provides pure performance statistics over equity curves
// and return series. Every function treats degenerate input (empty series,
// zero standard deviation, no losing trades) as a zero result, never an
// error, so callers can feed raw backtest output without guarding.
package metrics

import "math"

// Periods-per-year constants assume 252 trading days with 6.5h sessions
// rounded to 6 hours, matching the reference timeframes.
var periodsPerYear = map[string]int{
	"1m":  252 * 6 * 60,
	"5m":  252 * 6 * 12,
	"15m": 252 * 6 * 4,
	"1h":  252 * 6,
	"4h":  252 * 2,
	"1d":  252,
}

// PeriodsPerYear maps a bar timeframe to its annualization constant.
// Unknown timeframes fall back to daily.
func PeriodsPerYear(timeframe string) int {
	if p, ok := periodsPerYear[timeframe]; ok {
		return p
	}
	return 252
}

// Returns derives simple returns from consecutive equity values, skipping
// any step whose prior equity is zero.
func Returns(equityCurve []float64) []float64 {
	var returns []float64
	for i := 1; i < len(equityCurve); i++ {
		if equityCurve[i-1] == 0 {
			continue
		}
		returns = append(returns, equityCurve[i]/equityCurve[i-1]-1.0)
	}
	return returns
}

// MaxDrawdown is the largest fractional decline from running peak equity.
func MaxDrawdown(equityCurve []float64) float64 {
	if len(equityCurve) == 0 {
		return 0
	}
	peak := equityCurve[0]
	maxDD := 0.0
	for _, value := range equityCurve {
		if value > peak {
			peak = value
		}
		if peak == 0 {
			continue
		}
		dd := (peak - value) / peak
		if dd > maxDD {
			maxDD = dd
		}
	}
	return maxDD
}

// TimeUnderWater is the longest run of consecutive periods spent below the
// running peak.
func TimeUnderWater(equityCurve []float64) int {
	peak := math.Inf(-1)
	current := 0
	longest := 0
	for _, value := range equityCurve {
		if value >= peak {
			peak = value
			current = 0
			continue
		}
		current++
		if current > longest {
			longest = current
		}
	}
	return longest
}

// CAGR is the compound annual growth rate implied by the equity curve.
func CAGR(equityCurve []float64, periodsPerYear int) float64 {
	if len(equityCurve) < 2 || equityCurve[0] == 0 {
		return 0
	}
	totalReturn := equityCurve[len(equityCurve)-1]/equityCurve[0] - 1.0
	if periodsPerYear < 1 {
		periodsPerYear = 1
	}
	years := float64(len(equityCurve)) / float64(periodsPerYear)
	if years <= 0 {
		return 0
	}
	return math.Pow(1+totalReturn, 1/years) - 1.0
}

// Sharpe is the annualized mean/stddev ratio of the return series, with a
// zero risk-free rate.
func Sharpe(returns []float64, periodsPerYear int) float64 {
	if len(returns) < 2 {
		return 0
	}
	avg := mean(returns)
	std := stdDev(returns)
	if std == 0 {
		return 0
	}
	return (avg / std) * math.Sqrt(float64(periodsPerYear))
}

// Sortino is like Sharpe but penalizes only downside deviation.
func Sortino(returns []float64, periodsPerYear int) float64 {
	if len(returns) < 2 {
		return 0
	}
	avg := mean(returns)
	var downside []float64
	for _, r := range returns {
		if r < 0 {
			downside = append(downside, r)
		}
	}
	if len(downside) == 0 {
		return 0
	}
	std := stdDev(downside)
	if std == 0 {
		return 0
	}
	return (avg / std) * math.Sqrt(float64(periodsPerYear))
}

// Calmar is CAGR over max drawdown.
func Calmar(equityCurve []float64, periodsPerYear int) float64 {
	dd := MaxDrawdown(equityCurve)
	if dd == 0 {
		return 0
	}
	return CAGR(equityCurve, periodsPerYear) / dd
}

// WinRate is the fraction of trade returns that are strictly positive.
func WinRate(tradeReturns []float64) float64 {
	if len(tradeReturns) == 0 {
		return 0
	}
	wins := 0
	for _, r := range tradeReturns {
		if r > 0 {
			wins++
		}
	}
	return float64(wins) / float64(len(tradeReturns))
}

// ProfitFactor is gross gains over gross losses.
func ProfitFactor(tradeReturns []float64) float64 {
	gains := 0.0
	losses := 0.0
	for _, r := range tradeReturns {
		if r > 0 {
			gains += r
		} else {
			losses -= r
		}
	}
	if losses == 0 {
		return 0
	}
	return gains / losses
}

// Expectancy is the mean trade return.
func Expectancy(tradeReturns []float64) float64 {
	if len(tradeReturns) == 0 {
		return 0
	}
	return mean(tradeReturns)
}

// MonteCarloResample compounds the return series once per trial and
// returns the terminal total return of each trial. The draw order is the
// series itself, so every trial lands on the same value; the result is a
// distribution-shaped slice consumers can summarize uniformly with
// genuinely resampled ones. Trials <= 0 uses 200. Empty input returns nil.
func MonteCarloResample(returns []float64, trials int) []float64 {
	if len(returns) == 0 {
		return nil
	}
	if trials <= 0 {
		trials = 200
	}
	results := make([]float64, 0, trials)
	for t := 0; t < trials; t++ {
		total := 1.0
		for _, r := range returns {
			total *= 1 + r
		}
		results = append(results, total-1)
	}
	return results
}

func mean(values []float64) float64 {
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// stdDev is the population standard deviation.
func stdDev(values []float64) float64 {
	avg := mean(values)
	variance := 0.0
	for _, v := range values {
		variance += (v - avg) * (v - avg)
	}
	variance /= float64(len(values))
	return math.Sqrt(variance)
}

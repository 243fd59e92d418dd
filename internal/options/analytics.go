// Package options prices option contracts (Black-Scholes, Greeks, implied
// volatility), evaluates multi-leg payoff structures, scans chains, and
// backtests periodic-roll option strategies.
package options

import "math"

// OptionType distinguishes calls and puts.
type OptionType string

const (
	Call OptionType = "call"
	Put  OptionType = "put"
)

func normCDF(x float64) float64 {
	return 0.5 * (1.0 + math.Erf(x/math.Sqrt2))
}

func normPDF(x float64) float64 {
	return math.Exp(-0.5*x*x) / math.Sqrt(2*math.Pi)
}

func d1d2(spot, strike, timeToExpiry, rate, vol float64) (float64, float64) {
	sqrtT := math.Sqrt(timeToExpiry)
	d1 := (math.Log(spot/strike) + (rate+0.5*vol*vol)*timeToExpiry) / (vol * sqrtT)
	return d1, d1 - vol*sqrtT
}

// BSPrice is the Black-Scholes price. At or past expiry, or with
// non-positive volatility, the price collapses to intrinsic value; that is
// defined boundary behavior, not an error.
func BSPrice(spot, strike, timeToExpiry, rate, vol float64, optionType OptionType) float64 {
	if timeToExpiry <= 0 || vol <= 0 {
		if optionType == Call {
			return math.Max(0, spot-strike)
		}
		return math.Max(0, strike-spot)
	}
	d1, d2 := d1d2(spot, strike, timeToExpiry, rate, vol)
	discount := math.Exp(-rate * timeToExpiry)
	if optionType == Call {
		return spot*normCDF(d1) - strike*discount*normCDF(d2)
	}
	return strike*discount*normCDF(-d2) - spot*normCDF(-d1)
}

// Greeks are the standard first-order sensitivities plus gamma.
type Greeks struct {
	Delta float64
	Gamma float64
	Theta float64
	Vega  float64
	Rho   float64
}

// BSGreeks returns all Greeks, zero at the degenerate boundary.
func BSGreeks(spot, strike, timeToExpiry, rate, vol float64, optionType OptionType) Greeks {
	if timeToExpiry <= 0 || vol <= 0 {
		return Greeks{}
	}
	d1, d2 := d1d2(spot, strike, timeToExpiry, rate, vol)
	sqrtT := math.Sqrt(timeToExpiry)
	discount := math.Exp(-rate * timeToExpiry)
	pdf := normPDF(d1)

	g := Greeks{
		Gamma: pdf / (spot * vol * sqrtT),
		Vega:  spot * pdf * sqrtT,
	}
	if optionType == Call {
		g.Delta = normCDF(d1)
		g.Rho = strike * timeToExpiry * discount * normCDF(d2)
		g.Theta = -(spot*pdf*vol)/(2*sqrtT) - rate*strike*discount*normCDF(d2)
	} else {
		g.Delta = normCDF(d1) - 1
		g.Rho = -strike * timeToExpiry * discount * normCDF(-d2)
		g.Theta = -(spot*pdf*vol)/(2*sqrtT) + rate*strike*discount*normCDF(-d2)
	}
	return g
}

// Stats are the auxiliary pricing statistics.
type Stats struct {
	ProbITM float64
	D1      float64
	D2      float64
}

// BSStats returns the probability of expiring in the money plus d1/d2,
// zero at the degenerate boundary.
func BSStats(spot, strike, timeToExpiry, rate, vol float64, optionType OptionType) Stats {
	if timeToExpiry <= 0 || vol <= 0 {
		return Stats{}
	}
	d1, d2 := d1d2(spot, strike, timeToExpiry, rate, vol)
	prob := normCDF(d2)
	if optionType == Put {
		prob = normCDF(-d2)
	}
	return Stats{ProbITM: prob, D1: d1, D2: d2}
}

const (
	ivSeed    = 0.30
	ivFloor   = 1e-4
	ivCeiling = 5.0
	ivTol     = 1e-6
)

// ImpliedVol solves for the volatility matching the observed price with
// Newton-Raphson, seeded at 0.30 and clamped to [1e-4, 5.0] each step. If
// vega underflows to zero mid-iteration the solver stops and returns the
// current estimate rather than dividing by zero.
func ImpliedVol(price, spot, strike, timeToExpiry, rate float64, optionType OptionType, maxIter int) float64 {
	if maxIter <= 0 {
		maxIter = 50
	}
	vol := ivSeed
	for i := 0; i < maxIter; i++ {
		estimate := BSPrice(spot, strike, timeToExpiry, rate, vol, optionType)
		vega := BSGreeks(spot, strike, timeToExpiry, rate, vol, optionType).Vega
		if vega == 0 {
			break
		}
		diff := estimate - price
		if math.Abs(diff) < ivTol {
			break
		}
		vol -= diff / vega
		vol = math.Max(ivFloor, math.Min(vol, ivCeiling))
	}
	return vol
}

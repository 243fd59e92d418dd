package options

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/minhle-quant/tradesim/pkg/types"
)

// ContractGreeks carries a contract's sensitivities plus the derived stat
// and rank fields attached post-hoc by enrichment and scanning.
type ContractGreeks struct {
	Delta      float64
	Gamma      float64
	Theta      float64
	Vega       float64
	Rho        float64
	ProbITM    float64
	D1         float64
	D2         float64
	IVRankHist float64
}

// OptionContract is one listed option. Bid/Ask/Last/IV may be absent from
// a vendor; IV and Greeks are derived fields recomputed whenever spot or
// rate assumptions change.
type OptionContract struct {
	Symbol       string
	Underlying   string
	Expiration   time.Time
	Strike       float64
	Type         OptionType
	Multiplier   int
	Style        string
	Bid          float64
	Ask          float64
	Last         float64
	IV           float64
	OpenInterest int
	Volume       int
	HasBid       bool
	HasAsk       bool
	HasLast      bool
	HasIV        bool
	HasGreeks    bool
	Greeks       ContractGreeks
}

// OptionChain is the contract list for one underlying at a point in time.
type OptionChain struct {
	Symbol          string
	UnderlyingPrice float64
	Contracts       []OptionContract
	Provider        string
}

// Provider returns the option chain for a symbol. Implementations are
// polymorphic over synthetic generation and vendor APIs.
type Provider interface {
	Name() string
	Chain(ctx context.Context, symbol string, limit int) (OptionChain, error)
}

// BarSource supplies recent bars so the synthetic provider can anchor its
// chain to a spot price.
type BarSource interface {
	Load(source string) ([]types.Bar, error)
}

// SyntheticProvider builds a Black-Scholes priced chain around the latest
// close of the symbol's bar series.
type SyntheticProvider struct {
	Bars BarSource
	Rate float64
	Now  func() time.Time
}

// NewSyntheticProvider creates a synthetic chain provider with a 2% rate.
func NewSyntheticProvider(bars BarSource) *SyntheticProvider {
	return &SyntheticProvider{Bars: bars, Rate: 0.02, Now: time.Now}
}

func (p *SyntheticProvider) Name() string { return "synthetic" }

// Chain generates 7-day and 30-day expiries across strikes from -20% to
// +20% of spot, both calls and puts, priced at a flat 30% volatility with
// a nickel-wide market around the model price.
func (p *SyntheticProvider) Chain(_ context.Context, symbol string, limit int) (OptionChain, error) {
	spot := 100.0
	if p.Bars != nil {
		bars, err := p.Bars.Load(symbol)
		if err != nil {
			return OptionChain{}, fmt.Errorf("synthetic chain for %s: %w", symbol, err)
		}
		if len(bars) > 0 {
			spot = bars[len(bars)-1].Close
		}
	}
	now := p.Now().UTC()
	expiries := []time.Time{now.AddDate(0, 0, 7), now.AddDate(0, 0, 30)}
	strikePcts := []float64{-0.2, -0.1, -0.05, 0, 0.05, 0.1, 0.2}
	const iv = 0.30

	var contracts []OptionContract
	for _, expiry := range expiries {
		days := expiry.Sub(now).Hours() / 24
		if days < 1 {
			days = 1
		}
		t := days / 365.0
		for _, pct := range strikePcts {
			strike := math.Round(spot*(1+pct)*100) / 100
			for _, optType := range []OptionType{Call, Put} {
				price := BSPrice(spot, strike, t, p.Rate, iv, optType)
				greeks := BSGreeks(spot, strike, t, p.Rate, iv, optType)
				stats := BSStats(spot, strike, t, p.Rate, iv, optType)
				contracts = append(contracts, OptionContract{
					Symbol:     fmt.Sprintf("%s_%s_%s_%.2f", symbol, expiry.Format("20060102"), optType, strike),
					Underlying: symbol,
					Expiration: expiry,
					Strike:     strike,
					Type:       optType,
					Multiplier: 100,
					Style:      "american",
					Bid:        math.Max(price-0.05, 0.01),
					Ask:        price + 0.05,
					Last:       price,
					IV:         iv,
					HasBid:     true,
					HasAsk:     true,
					HasLast:    true,
					HasIV:      true,
					HasGreeks:  true,
					Greeks: ContractGreeks{
						Delta:   greeks.Delta,
						Gamma:   greeks.Gamma,
						Theta:   greeks.Theta,
						Vega:    greeks.Vega,
						Rho:     greeks.Rho,
						ProbITM: stats.ProbITM,
						D1:      stats.D1,
						D2:      stats.D2,
					},
				})
			}
		}
	}
	if limit > 0 && len(contracts) > limit {
		contracts = contracts[:limit]
	}
	return OptionChain{
		Symbol:          symbol,
		UnderlyingPrice: spot,
		Contracts:       contracts,
		Provider:        p.Name(),
	}, nil
}

// EnrichChain fills the derived fields vendors often omit: implied vol
// from the mid (or last) price when absent, and Greeks when absent.
// Stat fields (prob ITM, d1, d2) are always recomputed from the current
// spot and rate; vendor-supplied Greeks are otherwise left untouched.
func EnrichChain(chain *OptionChain, rate float64, now time.Time) {
	for i := range chain.Contracts {
		c := &chain.Contracts[i]
		days := c.Expiration.Sub(now).Hours() / 24
		t := math.Max(days, 0) / 365.0

		if !c.HasIV {
			if price, ok := observedPrice(c); ok {
				c.IV = ImpliedVol(price, chain.UnderlyingPrice, c.Strike, t, rate, c.Type, 50)
				c.HasIV = true
			}
		}
		vol := c.IV
		if !c.HasIV {
			vol = ivSeed
		}
		if !c.HasGreeks {
			greeks := BSGreeks(chain.UnderlyingPrice, c.Strike, t, rate, vol, c.Type)
			c.Greeks.Delta = greeks.Delta
			c.Greeks.Gamma = greeks.Gamma
			c.Greeks.Theta = greeks.Theta
			c.Greeks.Vega = greeks.Vega
			c.Greeks.Rho = greeks.Rho
			c.HasGreeks = true
		}
		stats := BSStats(chain.UnderlyingPrice, c.Strike, t, rate, vol, c.Type)
		c.Greeks.ProbITM = stats.ProbITM
		c.Greeks.D1 = stats.D1
		c.Greeks.D2 = stats.D2
	}
}

func observedPrice(c *OptionContract) (float64, bool) {
	switch {
	case c.HasBid && c.HasAsk:
		return (c.Bid + c.Ask) / 2, true
	case c.HasLast:
		return c.Last, true
	}
	return 0, false
}

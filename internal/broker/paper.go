// Package broker maintains the paper trading ledger: cash plus per-symbol
// signed positions. The ledger is authoritative; portfolio snapshots are
// derived views recomputed on every read.
package broker

import (
	"errors"
	"fmt"
	"time"

	"github.com/minhle-quant/tradesim/internal/execution"
	"github.com/minhle-quant/tradesim/pkg/types"
)

// ErrNoMarketPrice is returned when an order carries no usable price for a
// simulated fill.
var ErrNoMarketPrice = errors.New("market price required for paper fill")

// Paper is the simulated broker. Not safe for concurrent use; each
// backtest run owns its own instance.
type Paper struct {
	simulator *execution.Simulator
	cash      float64
	positions map[string]*types.Position
}

// NewPaper creates a paper broker with the given starting cash.
func NewPaper(simulator *execution.Simulator, initialCash float64) *Paper {
	return &Paper{
		simulator: simulator,
		cash:      initialCash,
		positions: make(map[string]*types.Position),
	}
}

// PlaceOrder simulates a fill and applies it to the ledger. The reference
// price is the order's market price, falling back to limit then stop.
func (p *Paper) PlaceOrder(order types.OrderRequest) (types.Fill, error) {
	return p.PlaceOrderAt(order, nil, time.Time{})
}

// PlaceOrderAt is PlaceOrder with an explicit bar volume for the liquidity
// guard and a fill timestamp for deterministic replays.
func (p *Paper) PlaceOrderAt(order types.OrderRequest, marketVolume *float64, ts time.Time) (types.Fill, error) {
	price, ok := referencePrice(order)
	if !ok {
		return types.Fill{}, fmt.Errorf("%w: %s", ErrNoMarketPrice, order.Symbol)
	}
	fill, _, err := p.simulator.SimulateFill(order, price, marketVolume, ts)
	if err != nil {
		return types.Fill{}, err
	}
	p.apply(fill)
	return fill, nil
}

func referencePrice(order types.OrderRequest) (float64, bool) {
	switch {
	case order.HasMarket:
		return order.MarketPrice, true
	case order.HasLimit:
		return order.LimitPrice, true
	case order.HasStop:
		return order.StopPrice, true
	}
	return 0, false
}

// apply books a fill: cash first, then the position update.
func (p *Paper) apply(fill types.Fill) {
	signedQty := fill.Quantity
	if fill.Side == types.OrderSell {
		signedQty = -fill.Quantity
		p.cash += fill.Price*fill.Quantity - fill.Fee
	} else {
		p.cash -= fill.Price*fill.Quantity + fill.Fee
	}

	position, exists := p.positions[fill.Symbol]
	if !exists {
		p.positions[fill.Symbol] = &types.Position{
			Symbol:      fill.Symbol,
			Quantity:    signedQty,
			AvgPrice:    fill.Price,
			MarketPrice: fill.Price,
		}
		return
	}

	newQty := position.Quantity + signedQty
	if newQty == 0 {
		delete(p.positions, fill.Symbol)
		return
	}
	switch {
	case (position.Quantity > 0 && signedQty > 0) || (position.Quantity < 0 && signedQty < 0):
		// Same-direction extension: notional-weighted average.
		position.AvgPrice = (position.AvgPrice*position.Quantity + fill.Price*signedQty) / newQty
	case (position.Quantity > 0 && newQty > 0) || (position.Quantity < 0 && newQty < 0):
		// Pure reduction keeps the entry price.
	default:
		// Sign flip: the remainder is a fresh position at the fill price.
		// Crossed P&L is not emitted as a separate trade record.
		position.AvgPrice = fill.Price
	}
	position.Quantity = newQty
	position.MarketPrice = fill.Price
}

// MarkPrice updates the market price used for valuing one symbol.
func (p *Paper) MarkPrice(symbol string, price float64) {
	if position, ok := p.positions[symbol]; ok {
		position.MarketPrice = price
	}
}

// Cash returns current cash.
func (p *Paper) Cash() float64 { return p.cash }

// Equity returns cash plus the market value of all positions.
func (p *Paper) Equity() float64 {
	equity := p.cash
	for _, position := range p.positions {
		equity += position.MarketValue()
	}
	return equity
}

// Positions returns a copy of the current positions.
func (p *Paper) Positions() []types.Position {
	out := make([]types.Position, 0, len(p.positions))
	for _, position := range p.positions {
		out = append(out, *position)
	}
	return out
}

// DrawdownState carries the risk counters the ledger itself does not
// track; the backtest driver owns them across bars.
type DrawdownState struct {
	PeakEquity float64
	Drawdown   float64
	LossStreak int
}

// Snapshot recomputes the portfolio view from the ledger. Gross and net
// exposure are always derived fresh from current positions at market
// price; snapshots are never cached across ticks.
func (p *Paper) Snapshot(state DrawdownState) types.PortfolioState {
	equity := p.Equity()
	gross := 0.0
	net := 0.0
	positions := make(map[string]types.Position, len(p.positions))
	for symbol, position := range p.positions {
		mv := position.MarketValue()
		if mv < 0 {
			gross -= mv
		} else {
			gross += mv
		}
		net += mv
		positions[symbol] = *position
	}
	peak := state.PeakEquity
	if equity > peak {
		peak = equity
	}
	return types.PortfolioState{
		Cash:          p.cash,
		Equity:        equity,
		Positions:     positions,
		GrossExposure: gross,
		NetExposure:   net,
		PeakEquity:    peak,
		Drawdown:      state.Drawdown,
		LossStreak:    state.LossStreak,
	}
}

package broker

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/minhle-quant/tradesim/internal/execution"
	"github.com/minhle-quant/tradesim/pkg/config"
	"github.com/minhle-quant/tradesim/pkg/types"
)

func newTestBroker(cash float64) *Paper {
	return NewPaper(execution.NewSimulator(config.ExecutionConfig{}), cash)
}

func order(side types.OrderSide, qty, price float64) types.OrderRequest {
	return types.OrderRequest{
		Symbol:      "AAPL",
		Side:        side,
		Quantity:    qty,
		OrderType:   "market",
		MarketPrice: price,
		HasMarket:   true,
	}
}

// TestPlaceOrder_BuyOpensLong books a long position and debits cash
func TestPlaceOrder_BuyOpensLong(t *testing.T) {
	paper := newTestBroker(10_000)
	fill, err := paper.PlaceOrder(order(types.OrderBuy, 10, 100))
	require.NoError(t, err)

	assert.Equal(t, 100.0, fill.Price)
	assert.Equal(t, 9_000.0, paper.Cash())
	positions := paper.Positions()
	require.Len(t, positions, 1)
	assert.Equal(t, 10.0, positions[0].Quantity)
	assert.Equal(t, 100.0, positions[0].AvgPrice)
}

// TestPlaceOrder_SellOpensShort books a negative-quantity position
func TestPlaceOrder_SellOpensShort(t *testing.T) {
	paper := newTestBroker(10_000)
	_, err := paper.PlaceOrder(order(types.OrderSell, 5, 100))
	require.NoError(t, err)

	assert.Equal(t, 10_500.0, paper.Cash())
	positions := paper.Positions()
	require.Len(t, positions, 1)
	assert.Equal(t, -5.0, positions[0].Quantity)
}

// TestPlaceOrder_ExtensionAveragesEntry weights the average by notional
func TestPlaceOrder_ExtensionAveragesEntry(t *testing.T) {
	paper := newTestBroker(100_000)
	_, err := paper.PlaceOrder(order(types.OrderBuy, 10, 100))
	require.NoError(t, err)
	_, err = paper.PlaceOrder(order(types.OrderBuy, 10, 120))
	require.NoError(t, err)

	positions := paper.Positions()
	require.Len(t, positions, 1)
	assert.Equal(t, 20.0, positions[0].Quantity)
	assert.InDelta(t, 110.0, positions[0].AvgPrice, 1e-9)
}

// TestPlaceOrder_ReductionKeepsEntry leaves the average price unchanged
func TestPlaceOrder_ReductionKeepsEntry(t *testing.T) {
	paper := newTestBroker(100_000)
	_, err := paper.PlaceOrder(order(types.OrderBuy, 10, 100))
	require.NoError(t, err)
	_, err = paper.PlaceOrder(order(types.OrderSell, 4, 120))
	require.NoError(t, err)

	positions := paper.Positions()
	require.Len(t, positions, 1)
	assert.Equal(t, 6.0, positions[0].Quantity)
	assert.Equal(t, 100.0, positions[0].AvgPrice)
}

// TestPlaceOrder_ExactCloseDeletesPosition removes the symbol at zero
func TestPlaceOrder_ExactCloseDeletesPosition(t *testing.T) {
	paper := newTestBroker(100_000)
	_, err := paper.PlaceOrder(order(types.OrderBuy, 10, 100))
	require.NoError(t, err)
	_, err = paper.PlaceOrder(order(types.OrderSell, 10, 110))
	require.NoError(t, err)

	assert.Empty(t, paper.Positions())
	assert.Equal(t, 100_100.0, paper.Cash())
}

// TestPlaceOrder_SignFlipResetsEntry re-enters the remainder at fill price
func TestPlaceOrder_SignFlipResetsEntry(t *testing.T) {
	paper := newTestBroker(100_000)
	_, err := paper.PlaceOrder(order(types.OrderBuy, 10, 100))
	require.NoError(t, err)
	_, err = paper.PlaceOrder(order(types.OrderSell, 15, 110))
	require.NoError(t, err)

	positions := paper.Positions()
	require.Len(t, positions, 1)
	assert.Equal(t, -5.0, positions[0].Quantity)
	assert.Equal(t, 110.0, positions[0].AvgPrice)
}

// TestPlaceOrder_NoPriceRejected fails without any usable price
func TestPlaceOrder_NoPriceRejected(t *testing.T) {
	paper := newTestBroker(10_000)
	_, err := paper.PlaceOrder(types.OrderRequest{Symbol: "AAPL", Side: types.OrderBuy, Quantity: 1})
	assert.ErrorIs(t, err, ErrNoMarketPrice)
}

// TestPlaceOrder_LimitFallback uses the limit price without a market price
func TestPlaceOrder_LimitFallback(t *testing.T) {
	paper := newTestBroker(10_000)
	fill, err := paper.PlaceOrder(types.OrderRequest{
		Symbol:     "AAPL",
		Side:       types.OrderBuy,
		Quantity:   1,
		LimitPrice: 95,
		HasLimit:   true,
	})
	require.NoError(t, err)
	assert.Equal(t, 95.0, fill.Price)
}

// TestEquity_CashPlusMarketValue holds the ledger identity
func TestEquity_CashPlusMarketValue(t *testing.T) {
	paper := newTestBroker(10_000)
	_, err := paper.PlaceOrder(order(types.OrderBuy, 10, 100))
	require.NoError(t, err)

	paper.MarkPrice("AAPL", 110)
	assert.InDelta(t, 9_000+10*110, paper.Equity(), 1e-9)

	snapshot := paper.Snapshot(DrawdownState{})
	total := snapshot.Cash
	for _, position := range snapshot.Positions {
		total += position.MarketValue()
	}
	assert.InDelta(t, snapshot.Equity, total, 1e-9)
}

// TestSnapshot_GrossAndNetExposure treats shorts as positive gross, negative net
func TestSnapshot_GrossAndNetExposure(t *testing.T) {
	paper := newTestBroker(100_000)
	_, err := paper.PlaceOrder(order(types.OrderBuy, 10, 100))
	require.NoError(t, err)
	_, err = paper.PlaceOrder(types.OrderRequest{
		Symbol: "MSFT", Side: types.OrderSell, Quantity: 5,
		MarketPrice: 200, HasMarket: true,
	})
	require.NoError(t, err)

	snapshot := paper.Snapshot(DrawdownState{})
	assert.InDelta(t, 10*100+5*200, snapshot.GrossExposure, 1e-9)
	assert.InDelta(t, 10*100-5*200, snapshot.NetExposure, 1e-9)
}

// TestSnapshot_RecomputedFresh reflects ledger changes immediately
func TestSnapshot_RecomputedFresh(t *testing.T) {
	paper := newTestBroker(10_000)
	_, err := paper.PlaceOrder(order(types.OrderBuy, 10, 100))
	require.NoError(t, err)
	before := paper.Snapshot(DrawdownState{})

	paper.MarkPrice("AAPL", 120)
	after := paper.Snapshot(DrawdownState{})
	assert.Greater(t, after.Equity, before.Equity)
	assert.Greater(t, after.GrossExposure, before.GrossExposure)
}

// TestSnapshot_CarriesDrawdownState passes through the driver-owned counters
func TestSnapshot_CarriesDrawdownState(t *testing.T) {
	paper := newTestBroker(10_000)
	snapshot := paper.Snapshot(DrawdownState{PeakEquity: 12_000, Drawdown: 0.1, LossStreak: 3})

	assert.Equal(t, 12_000.0, snapshot.PeakEquity)
	assert.Equal(t, 0.1, snapshot.Drawdown)
	assert.Equal(t, 3, snapshot.LossStreak)
}

// TestFees_DebitCash charges the fee on both sides
func TestFees_DebitCash(t *testing.T) {
	paper := NewPaper(execution.NewSimulator(config.ExecutionConfig{FeeBps: 10}), 10_000)
	_, err := paper.PlaceOrder(order(types.OrderBuy, 10, 100))
	require.NoError(t, err)
	// 1000 notional at 10bps = 1 fee.
	assert.InDelta(t, 10_000-1000-1, paper.Cash(), 1e-9)

	_, err = paper.PlaceOrder(order(types.OrderSell, 10, 100))
	require.NoError(t, err)
	assert.InDelta(t, 10_000-2, paper.Cash(), 1e-9)
}

package types

import "time"

// Side is the direction of a signal.
type Side string

const (
	SideLong  Side = "long"
	SideShort Side = "short"
	SideFlat  Side = "flat"
)

// OrderSide is the direction of an order.
type OrderSide string

const (
	OrderBuy  OrderSide = "buy"
	OrderSell OrderSide = "sell"
)

// Bar is one OHLCV sample for a symbol over a timeframe.
type Bar struct {
	Ts        time.Time
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    float64
	Symbol    string
	Timeframe string
	Source    string
	FetchedAt time.Time
}

// SignalMeta carries the documented per-signal hints the engine reads.
// The risk engine consumes Vol, SignalVol and ATR in that order with no
// unit normalization between them; callers own the unit convention.
type SignalMeta struct {
	Return    float64
	Vol       float64
	SignalVol float64
	ATR       float64
	ZScore    float64
	Stop      float64
	HighBreak float64
	LowBreak  float64

	Correlation float64
	// Score is the signed ensemble vote when the signal comes from a
	// weighted combination of strategies.
	Score float64
	// Hint presence flags. A zero value is a legal hint, so presence is
	// tracked explicitly instead of comparing against 0.
	HasVol         bool
	HasSignalVol   bool
	HasATR         bool
	HasStop        bool
	HasCorrelation bool
	HasScore       bool
}

// Signal is a single strategy output for one symbol.
type Signal struct {
	Symbol      string
	Side        Side
	Strength    float64
	GeneratedAt time.Time
	Meta        SignalMeta
}

// OrderRequest describes an order before any risk adjustment. Values are
// never mutated; a reduced order is a fresh value from WithQuantity.
type OrderRequest struct {
	Symbol        string
	Side          OrderSide
	Quantity      float64
	OrderType     string
	LimitPrice    float64
	StopPrice     float64
	MarketPrice   float64
	HasLimit      bool
	HasStop       bool
	HasMarket     bool
	TimeInForce   string
	StrategyName  string
	ClientOrderID string
	Meta          SignalMeta
}

// WithQuantity returns a copy of the order carrying the adjusted quantity.
func (o OrderRequest) WithQuantity(qty float64) OrderRequest {
	o.Quantity = qty
	return o
}

// Fill is the realized outcome of submitting an order, after cost-model
// adjustments. Assumptions records the exact cost parameters used so a
// result stays reproducible after config changes.
type Fill struct {
	OrderID     string
	Symbol      string
	Side        OrderSide
	Quantity    float64
	Price       float64
	Fee         float64
	SlippageBps float64
	SpreadBps   float64
	LatencyMs   int
	FilledAt    time.Time
	Assumptions map[string]float64
}

// Position is one signed holding: positive quantity is long, negative is
// short. AvgPrice is meaningful only while Quantity != 0.
type Position struct {
	Symbol      string
	Quantity    float64
	AvgPrice    float64
	MarketPrice float64
}

// MarketValue is quantity times the current market price.
func (p Position) MarketValue() float64 {
	return p.Quantity * p.MarketPrice
}

// PortfolioState is a snapshot recomputed from the ledger on demand. The
// ledger (cash + positions) stays authoritative; snapshots are never the
// source of truth.
type PortfolioState struct {
	Cash          float64
	Equity        float64
	Positions     map[string]Position
	GrossExposure float64
	NetExposure   float64
	PeakEquity    float64
	Drawdown      float64
	LossStreak    int
}

// Decision is the outcome class of a risk evaluation.
type Decision string

const (
	DecisionAllow  Decision = "allow"
	DecisionReduce Decision = "reduce"
	DecisionDeny   Decision = "deny"
)

// RiskDecision is the result of evaluating one order against the risk
// rules. AdjustedQuantity is meaningful only when Decision is reduce.
// RiskFlags lists every rule that fired, including on eventual denial.
type RiskDecision struct {
	Decision         Decision
	Reason           string
	AdjustedQuantity float64
	RiskFlags        []string
}

// BacktestResult is the complete output of one backtest run.
type BacktestResult struct {
	Metrics     map[string]float64
	EquityCurve []float64
	Trades      []Fill
}

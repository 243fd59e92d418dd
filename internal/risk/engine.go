// Package risk evaluates orders against portfolio limits. The engine is a
// pure function of (order, portfolio, market price): it never mutates its
// inputs and keeps no state between evaluations.
package risk

import (
	"math"

	"github.com/minhle-quant/tradesim/pkg/config"
	"github.com/minhle-quant/tradesim/pkg/types"
)

const epsilon = 1e-6

// Engine applies the configured limits in a fixed precedence order.
type Engine struct {
	limits config.RiskConfig
}

// NewEngine creates a risk engine with the given limits.
func NewEngine(limits config.RiskConfig) *Engine {
	return &Engine{limits: limits}
}

// EvaluateOrder applies the rules in order: no-equity deny, position-value
// cap, correlation deny, volatility-target scaling, leverage cap, drawdown
// guard, loss-streak guard. The first denial wins; reductions accumulate.
// Flags collected before a denial are preserved in the decision so the
// audit trail shows every rule that fired.
func (e *Engine) EvaluateOrder(order types.OrderRequest, portfolio types.PortfolioState, marketPrice float64) types.RiskDecision {
	var flags []string

	if portfolio.Equity <= 0 {
		return types.RiskDecision{
			Decision:  types.DecisionDeny,
			Reason:    "no_equity",
			RiskFlags: []string{"equity_zero"},
		}
	}

	adjustedQty := order.Quantity
	if math.Abs(marketPrice*order.Quantity) > e.limits.MaxPositionValue {
		adjustedQty = e.limits.MaxPositionValue / math.Max(marketPrice, epsilon)
		flags = append(flags, "position_value_capped")
	}

	if order.Meta.HasCorrelation && order.Meta.Correlation > e.limits.CorrelationCap {
		return types.RiskDecision{
			Decision:  types.DecisionDeny,
			Reason:    "correlation_cap",
			RiskFlags: append(flags, "correlation_cap"),
		}
	}

	// Hint precedence: vol, then signal_vol, then atr. The three carry
	// whatever unit the strategy produced; no normalization happens here.
	if hint, ok := volHint(order.Meta); ok && e.limits.VolTarget > 0 {
		scale := math.Min(1.0, e.limits.VolTarget/math.Max(hint, epsilon))
		if scale < 1.0 {
			adjustedQty *= scale
			flags = append(flags, "vol_target")
		}
	}

	projectedGross := portfolio.GrossExposure + math.Abs(marketPrice*adjustedQty)
	projectedLeverage := projectedGross / math.Max(portfolio.Equity, epsilon)
	if projectedLeverage > e.limits.MaxLeverage {
		flags = append(flags, "leverage_capped")
		if portfolio.GrossExposure >= e.limits.MaxLeverage*portfolio.Equity {
			return types.RiskDecision{
				Decision:  types.DecisionDeny,
				Reason:    "max_leverage",
				RiskFlags: flags,
			}
		}
		allowed := e.limits.MaxLeverage*portfolio.Equity - portfolio.GrossExposure
		adjustedQty = math.Max(0, allowed/math.Max(marketPrice, epsilon))
	}

	// Drawdown and loss-streak run after the sizing rules so their
	// denials still carry the flags already collected.
	if portfolio.Drawdown >= e.limits.MaxDrawdown {
		return types.RiskDecision{
			Decision:  types.DecisionDeny,
			Reason:    "max_drawdown",
			RiskFlags: append(flags, "drawdown_guard"),
		}
	}

	if portfolio.LossStreak >= e.limits.MaxLossStreak {
		return types.RiskDecision{
			Decision:  types.DecisionDeny,
			Reason:    "loss_streak",
			RiskFlags: append(flags, "loss_streak_guard"),
		}
	}

	if adjustedQty != order.Quantity {
		return types.RiskDecision{
			Decision:         types.DecisionReduce,
			Reason:           "risk_adjusted",
			AdjustedQuantity: adjustedQty,
			RiskFlags:        flags,
		}
	}
	return types.RiskDecision{
		Decision:  types.DecisionAllow,
		Reason:    "ok",
		RiskFlags: flags,
	}
}

// volHint returns the first volatility hint present on the signal meta.
// Zero-valued hints count as absent so degenerate volatility never scales
// a quantity to infinity.
func volHint(meta types.SignalMeta) (float64, bool) {
	if meta.HasVol && meta.Vol != 0 {
		return meta.Vol, true
	}
	if meta.HasSignalVol && meta.SignalVol != 0 {
		return meta.SignalVol, true
	}
	if meta.HasATR && meta.ATR != 0 {
		return meta.ATR, true
	}
	return 0, false
}

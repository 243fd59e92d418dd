package options

// LegKind distinguishes option legs from stock legs in a structure.
type LegKind string

const (
	LegOption LegKind = "option"
	LegStock  LegKind = "stock"
)

// LegSide is the direction of one leg.
type LegSide string

const (
	LegLong  LegSide = "long"
	LegShort LegSide = "short"
)

// Leg is one component of a multi-leg structure.
type Leg struct {
	Kind       LegKind
	Type       OptionType // option legs only
	Side       LegSide
	Strike     float64
	Premium    float64
	Entry      float64 // stock legs: entry price
	Quantity   float64
	Multiplier float64
}

// PayoffAtExpiry sums per-leg P&L at the given expiry price. Option legs
// contribute intrinsic value minus premium scaled by quantity and
// multiplier; stock legs contribute linear P&L on quantity alone. Short
// legs negate.
func PayoffAtExpiry(legs []Leg, price float64) float64 {
	total := 0.0
	for _, leg := range legs {
		qty := leg.Quantity
		if qty == 0 {
			qty = 1
		}
		if leg.Kind == LegStock {
			pnl := (price - leg.Entry) * qty
			if leg.Side == LegShort {
				pnl = -pnl
			}
			total += pnl
			continue
		}
		multiplier := leg.Multiplier
		if multiplier == 0 {
			multiplier = 100
		}
		intrinsic := 0.0
		if leg.Type == Call {
			if price > leg.Strike {
				intrinsic = price - leg.Strike
			}
		} else {
			if leg.Strike > price {
				intrinsic = leg.Strike - price
			}
		}
		pnl := intrinsic - leg.Premium
		if leg.Side == LegShort {
			pnl = -pnl
		}
		total += pnl * qty * multiplier
	}
	return total
}

// PayoffPoint is one sample of a payoff curve.
type PayoffPoint struct {
	Price float64
	PnL   float64
}

// PayoffCurve samples the expiry payoff across [minPrice, maxPrice].
func PayoffCurve(legs []Leg, minPrice, maxPrice float64, steps int) []PayoffPoint {
	if steps <= 1 {
		steps = 2
	}
	step := (maxPrice - minPrice) / float64(steps-1)
	points := make([]PayoffPoint, 0, steps)
	for i := 0; i < steps; i++ {
		price := minPrice + step*float64(i)
		points = append(points, PayoffPoint{Price: price, PnL: PayoffAtExpiry(legs, price)})
	}
	return points
}

// StructureOutcome is the closed-form risk profile of a canonical
// structure, per contract (multiplier 100).
type StructureOutcome struct {
	MaxProfit  float64
	MaxLoss    float64
	Breakevens []float64
	Notes      string
}

// CoveredCall: long 100 shares at spot, short one call.
func CoveredCall(spot, strike, premium float64) StructureOutcome {
	return StructureOutcome{
		MaxProfit:  (strike - spot + premium) * 100,
		MaxLoss:    (spot - premium) * 100,
		Breakevens: []float64{spot - premium},
		Notes:      "Covered call",
	}
}

// CashSecuredPut: short one put backed by cash.
func CashSecuredPut(strike, premium float64) StructureOutcome {
	return StructureOutcome{
		MaxProfit:  premium * 100,
		MaxLoss:    (strike - premium) * 100,
		Breakevens: []float64{strike - premium},
		Notes:      "Cash-secured put",
	}
}

// BullCallSpread: long lower-strike call, short higher-strike call.
func BullCallSpread(longStrike, longPremium, shortStrike, shortPremium float64) StructureOutcome {
	netDebit := longPremium - shortPremium
	return StructureOutcome{
		MaxProfit:  (shortStrike - longStrike - netDebit) * 100,
		MaxLoss:    netDebit * 100,
		Breakevens: []float64{longStrike + netDebit},
		Notes:      "Bull call spread",
	}
}

// BearPutSpread: long higher-strike put, short lower-strike put.
func BearPutSpread(longStrike, longPremium, shortStrike, shortPremium float64) StructureOutcome {
	netDebit := longPremium - shortPremium
	return StructureOutcome{
		MaxProfit:  (longStrike - shortStrike - netDebit) * 100,
		MaxLoss:    netDebit * 100,
		Breakevens: []float64{longStrike - netDebit},
		Notes:      "Bear put spread",
	}
}

// IronCondor: short put spread below, short call spread above.
func IronCondor(shortPutStrike, shortPutPremium, longPutStrike, longPutPremium,
	shortCallStrike, shortCallPremium, longCallStrike, longCallPremium float64) StructureOutcome {
	netCredit := (shortPutPremium + shortCallPremium) - (longPutPremium + longCallPremium)
	putSideLoss := (shortPutStrike - longPutStrike - netCredit) * 100
	callSideLoss := (longCallStrike - shortCallStrike - netCredit) * 100
	maxLoss := putSideLoss
	if callSideLoss > maxLoss {
		maxLoss = callSideLoss
	}
	return StructureOutcome{
		MaxProfit:  netCredit * 100,
		MaxLoss:    maxLoss,
		Breakevens: []float64{shortPutStrike - netCredit, shortCallStrike + netCredit},
		Notes:      "Iron condor",
	}
}

package options

import (
	"math"
	"sort"
)

// ScanFilters narrows a contract list. Pointer fields distinguish "filter
// off" from a zero bound.
type ScanFilters struct {
	Type          OptionType // empty matches both
	Side          LegSide    // perspective for probability of profit; default short
	MinDelta      *float64
	MaxDelta      *float64
	AbsDelta      bool
	MinIVRank     *float64
	MinIVRankHist *float64
	MinPOP        *float64
}

// ScanRow is one scan result with the derived rank fields.
type ScanRow struct {
	Contract   OptionContract
	Delta      float64
	ProbITM    float64
	POP        float64
	IVRank     float64
	IVRankHist float64
}

// ivRank normalizes each contract's IV to [0,1] within the scanned set.
// Contracts without IV rank 0; a degenerate set (all equal) ranks 0.5.
func ivRank(contracts []OptionContract) map[string]float64 {
	minIV := math.Inf(1)
	maxIV := math.Inf(-1)
	any := false
	for _, c := range contracts {
		if !c.HasIV {
			continue
		}
		any = true
		minIV = math.Min(minIV, c.IV)
		maxIV = math.Max(maxIV, c.IV)
	}
	ranks := make(map[string]float64, len(contracts))
	if !any {
		return ranks
	}
	for _, c := range contracts {
		switch {
		case !c.HasIV:
			ranks[c.Symbol] = 0
		case maxIV == minIV:
			ranks[c.Symbol] = 0.5
		default:
			ranks[c.Symbol] = (c.IV - minIV) / (maxIV - minIV)
		}
	}
	return ranks
}

// ScanContracts filters contracts by type, delta band, IV rank (within
// this chain and historical), and probability of profit, sorted by chain
// IV rank descending.
func ScanContracts(contracts []OptionContract, filters ScanFilters) []ScanRow {
	side := filters.Side
	if side == "" {
		side = LegShort
	}
	ranks := ivRank(contracts)

	var rows []ScanRow
	for _, contract := range contracts {
		if filters.Type != "" && contract.Type != filters.Type {
			continue
		}
		delta := contract.Greeks.Delta
		probITM := contract.Greeks.ProbITM
		deltaVal := delta
		if filters.AbsDelta {
			deltaVal = math.Abs(delta)
		}
		if filters.MinDelta != nil && deltaVal < *filters.MinDelta {
			continue
		}
		if filters.MaxDelta != nil && deltaVal > *filters.MaxDelta {
			continue
		}
		rank := ranks[contract.Symbol]
		if filters.MinIVRank != nil && rank < *filters.MinIVRank {
			continue
		}
		if filters.MinIVRankHist != nil && contract.Greeks.IVRankHist < *filters.MinIVRankHist {
			continue
		}
		pop := probITM
		if side == LegShort {
			pop = 1 - probITM
		}
		if filters.MinPOP != nil && pop < *filters.MinPOP {
			continue
		}
		rows = append(rows, ScanRow{
			Contract:   contract,
			Delta:      delta,
			ProbITM:    probITM,
			POP:        pop,
			IVRank:     rank,
			IVRankHist: contract.Greeks.IVRankHist,
		})
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].IVRank > rows[j].IVRank })
	return rows
}

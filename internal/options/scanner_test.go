package options

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fptr(v float64) *float64 { return &v }

func scanContract(symbol string, typ OptionType, delta, probITM, iv float64, hasIV bool) OptionContract {
	return OptionContract{
		Symbol: symbol,
		Type:   typ,
		IV:     iv,
		HasIV:  hasIV,
		Greeks: ContractGreeks{Delta: delta, ProbITM: probITM},
	}
}

// TestIVRank_EmptyWithoutIV ranks nothing when no contract carries IV
func TestIVRank_EmptyWithoutIV(t *testing.T) {
	contracts := []OptionContract{
		scanContract("A", Call, 0.5, 0.5, 0, false),
		scanContract("B", Put, -0.3, 0.3, 0, false),
	}
	assert.Empty(t, ivRank(contracts))
}

// TestIVRank_FlatSetRanksHalf gives every contract 0.5 when all IVs match
func TestIVRank_FlatSetRanksHalf(t *testing.T) {
	contracts := []OptionContract{
		scanContract("A", Call, 0.5, 0.5, 0.25, true),
		scanContract("B", Put, -0.3, 0.3, 0.25, true),
	}
	ranks := ivRank(contracts)
	assert.Equal(t, 0.5, ranks["A"])
	assert.Equal(t, 0.5, ranks["B"])
}

// TestIVRank_NormalizesWithinChain maps the IV span onto [0,1]
func TestIVRank_NormalizesWithinChain(t *testing.T) {
	contracts := []OptionContract{
		scanContract("LOW", Call, 0.5, 0.5, 0.20, true),
		scanContract("MID", Call, 0.4, 0.4, 0.30, true),
		scanContract("HIGH", Call, 0.3, 0.3, 0.40, true),
		scanContract("NONE", Call, 0.2, 0.2, 0, false),
	}
	ranks := ivRank(contracts)
	assert.Equal(t, 0.0, ranks["LOW"])
	assert.InDelta(t, 0.5, ranks["MID"], 1e-9)
	assert.Equal(t, 1.0, ranks["HIGH"])
	assert.Equal(t, 0.0, ranks["NONE"])
}

// TestScanContracts_DeltaBand keeps only contracts inside the absolute
// delta band
func TestScanContracts_DeltaBand(t *testing.T) {
	contracts := []OptionContract{
		scanContract("DEEP", Put, -0.7, 0.7, 0.3, true),
		scanContract("TARGET", Put, -0.3, 0.3, 0.3, true),
		scanContract("FAR", Put, -0.1, 0.1, 0.3, true),
	}
	rows := ScanContracts(contracts, ScanFilters{
		MinDelta: fptr(0.2),
		MaxDelta: fptr(0.4),
		AbsDelta: true,
	})

	require.Len(t, rows, 1)
	assert.Equal(t, "TARGET", rows[0].Contract.Symbol)
	assert.Equal(t, -0.3, rows[0].Delta)
}

// TestScanContracts_TypeFilter drops the other option type
func TestScanContracts_TypeFilter(t *testing.T) {
	contracts := []OptionContract{
		scanContract("C", Call, 0.5, 0.5, 0.3, true),
		scanContract("P", Put, -0.5, 0.5, 0.3, true),
	}
	rows := ScanContracts(contracts, ScanFilters{Type: Put})

	require.Len(t, rows, 1)
	assert.Equal(t, "P", rows[0].Contract.Symbol)
}

// TestScanContracts_ShortPOPComplements computes probability of profit for
// the default short perspective
func TestScanContracts_ShortPOPComplements(t *testing.T) {
	contracts := []OptionContract{scanContract("X", Call, 0.3, 0.3, 0.3, true)}

	short := ScanContracts(contracts, ScanFilters{})
	long := ScanContracts(contracts, ScanFilters{Side: LegLong})

	require.Len(t, short, 1)
	require.Len(t, long, 1)
	assert.InDelta(t, 0.7, short[0].POP, 1e-9)
	assert.InDelta(t, 0.3, long[0].POP, 1e-9)
}

// TestScanContracts_MinPOPFilter rejects rows below the profit-probability
// floor
func TestScanContracts_MinPOPFilter(t *testing.T) {
	contracts := []OptionContract{
		scanContract("SAFE", Call, 0.2, 0.2, 0.3, true),
		scanContract("RISKY", Call, 0.6, 0.6, 0.3, true),
	}
	rows := ScanContracts(contracts, ScanFilters{MinPOP: fptr(0.7)})

	require.Len(t, rows, 1)
	assert.Equal(t, "SAFE", rows[0].Contract.Symbol)
}

// TestScanContracts_SortsByIVRankDescending puts the richest IV first
func TestScanContracts_SortsByIVRankDescending(t *testing.T) {
	contracts := []OptionContract{
		scanContract("LOW", Call, 0.3, 0.3, 0.20, true),
		scanContract("HIGH", Call, 0.3, 0.3, 0.40, true),
		scanContract("MID", Call, 0.3, 0.3, 0.30, true),
	}
	rows := ScanContracts(contracts, ScanFilters{})

	require.Len(t, rows, 3)
	assert.Equal(t, "HIGH", rows[0].Contract.Symbol)
	assert.Equal(t, "MID", rows[1].Contract.Symbol)
	assert.Equal(t, "LOW", rows[2].Contract.Symbol)
}

// TestScanContracts_MinIVRankFilter drops the cheap end of the chain
func TestScanContracts_MinIVRankFilter(t *testing.T) {
	contracts := []OptionContract{
		scanContract("LOW", Call, 0.3, 0.3, 0.20, true),
		scanContract("HIGH", Call, 0.3, 0.3, 0.40, true),
	}
	rows := ScanContracts(contracts, ScanFilters{MinIVRank: fptr(0.6)})

	require.Len(t, rows, 1)
	assert.Equal(t, "HIGH", rows[0].Contract.Symbol)
}

// TestScanContracts_HistoricalRankFilter applies the stored-history floor
func TestScanContracts_HistoricalRankFilter(t *testing.T) {
	rich := scanContract("RICH", Call, 0.3, 0.3, 0.3, true)
	rich.Greeks.IVRankHist = 0.9
	cheap := scanContract("CHEAP", Call, 0.3, 0.3, 0.3, true)
	cheap.Greeks.IVRankHist = 0.1

	rows := ScanContracts([]OptionContract{rich, cheap}, ScanFilters{MinIVRankHist: fptr(0.5)})

	require.Len(t, rows, 1)
	assert.Equal(t, "RICH", rows[0].Contract.Symbol)
}

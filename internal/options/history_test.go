package options

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *IVHistoryStore {
	t.Helper()
	store, err := NewIVHistoryStore(filepath.Join(t.TempDir(), "iv.sqlite"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func historyContract(iv float64, hasIV bool) OptionContract {
	return OptionContract{
		Symbol:     "SPY_20240705_call_100.00",
		Underlying: "SPY",
		Expiration: time.Date(2024, 7, 5, 0, 0, 0, 0, time.UTC),
		Strike:     100,
		Type:       Call,
		IV:         iv,
		HasIV:      hasIV,
	}
}

// TestIVHistory_RoundTrip reads back recorded snapshots oldest first
func TestIVHistory_RoundTrip(t *testing.T) {
	store := openTestStore(t)
	base := time.Now().UTC().Add(-48 * time.Hour)

	require.NoError(t, store.RecordSnapshot([]OptionContract{historyContract(0.20, true)}, base))
	require.NoError(t, store.RecordSnapshot([]OptionContract{historyContract(0.30, true)}, base.Add(24*time.Hour)))

	history, err := store.History("SPY", time.Date(2024, 7, 5, 0, 0, 0, 0, time.UTC), 100, Call, 30)
	require.NoError(t, err)
	assert.Equal(t, []float64{0.20, 0.30}, history)
}

// TestIVHistory_SkipsContractsWithoutIV records only contracts carrying IV
func TestIVHistory_SkipsContractsWithoutIV(t *testing.T) {
	store := openTestStore(t)
	ts := time.Now().UTC().Add(-time.Hour)

	require.NoError(t, store.RecordSnapshot([]OptionContract{
		historyContract(0.25, true),
		historyContract(0, false),
	}, ts))

	history, err := store.History("SPY", time.Date(2024, 7, 5, 0, 0, 0, 0, time.UTC), 100, Call, 30)
	require.NoError(t, err)
	assert.Len(t, history, 1)
}

// TestIVHistory_LookbackExcludesOldRows drops snapshots outside the window
func TestIVHistory_LookbackExcludesOldRows(t *testing.T) {
	store := openTestStore(t)
	now := time.Now().UTC()

	require.NoError(t, store.RecordSnapshot([]OptionContract{historyContract(0.10, true)}, now.AddDate(0, 0, -40)))
	require.NoError(t, store.RecordSnapshot([]OptionContract{historyContract(0.30, true)}, now.Add(-time.Hour)))

	history, err := store.History("SPY", time.Date(2024, 7, 5, 0, 0, 0, 0, time.UTC), 100, Call, 30)
	require.NoError(t, err)
	assert.Equal(t, []float64{0.30}, history)
}

// TestIVRankHistory_RanksWithinOwnHistory positions the current IV on the
// historical span
func TestIVRankHistory_RanksWithinOwnHistory(t *testing.T) {
	store := openTestStore(t)
	now := time.Now().UTC()

	require.NoError(t, store.RecordSnapshot([]OptionContract{historyContract(0.20, true)}, now.Add(-48*time.Hour)))
	require.NoError(t, store.RecordSnapshot([]OptionContract{historyContract(0.40, true)}, now.Add(-24*time.Hour)))

	rank, ok, err := store.IVRankHistory(historyContract(0.30, true), 30)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.InDelta(t, 0.5, rank, 1e-9)
}

// TestIVRankHistory_FlatHistoryRanksHalf returns 0.5 when the history has
// no spread
func TestIVRankHistory_FlatHistoryRanksHalf(t *testing.T) {
	store := openTestStore(t)
	now := time.Now().UTC()

	require.NoError(t, store.RecordSnapshot([]OptionContract{historyContract(0.25, true)}, now.Add(-48*time.Hour)))
	require.NoError(t, store.RecordSnapshot([]OptionContract{historyContract(0.25, true)}, now.Add(-24*time.Hour)))

	rank, ok, err := store.IVRankHistory(historyContract(0.25, true), 30)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 0.5, rank)
}

// TestIVRankHistory_NoHistory reports absence without error
func TestIVRankHistory_NoHistory(t *testing.T) {
	store := openTestStore(t)

	rank, ok, err := store.IVRankHistory(historyContract(0.25, true), 30)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 0.0, rank)
}

// TestIVRankHistory_ContractWithoutIV reports absence for IV-less contracts
func TestIVRankHistory_ContractWithoutIV(t *testing.T) {
	store := openTestStore(t)

	_, ok, err := store.IVRankHistory(historyContract(0, false), 30)
	require.NoError(t, err)
	assert.False(t, ok)
}

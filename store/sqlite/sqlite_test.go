package sqlite_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/deal-engine/audit"
	"github.com/warp/deal-engine/store/sqlite"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestStore(t *testing.T) *sqlite.Store {
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func testRecord(calcID, dealID string, at time.Time) audit.Record {
	return audit.Record{
		CalculationID:   calcID,
		DealID:          dealID,
		CalculatedAt:    at,
		CalculatedBy:    "test",
		EngineVersion:   "1.0.0",
		RulesVersion:    "2026-Q1",
		InputsSnapshot:  []byte(`{"vehicle_price":"35000.00","postal_code":"95814"}`),
		OutputsSnapshot: []byte(`{"total_tax":"1812.50"}`),
	}
}

// =============================================================================
// AUDIT LOG TESTS
// =============================================================================

func TestAppendAndHistory_RoundTrip(t *testing.T) {
	// GIVEN: Two calculations for one deal, one for another
	store := newTestStore(t)
	ctx := context.Background()
	t0 := time.Date(2026, time.March, 1, 9, 0, 0, 0, time.UTC)

	require.NoError(t, store.Append(ctx, testRecord("calc-1", "deal-1", t0)))
	require.NoError(t, store.Append(ctx, testRecord("calc-2", "deal-1", t0.Add(time.Minute))))
	require.NoError(t, store.Append(ctx, testRecord("calc-3", "deal-2", t0)))

	// WHEN: Reading deal-1's history
	history, err := store.History(ctx, "deal-1")

	// THEN: Both records come back, oldest first, snapshots intact
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "calc-1", history[0].CalculationID)
	assert.Equal(t, "calc-2", history[1].CalculationID)
	assert.Equal(t, "2026-Q1", history[0].RulesVersion)
	assert.JSONEq(t, `{"total_tax":"1812.50"}`, string(history[0].OutputsSnapshot))
	assert.True(t, history[0].CalculatedAt.Equal(t0))
}

func TestAppend_DuplicateCalculationIDRejected(t *testing.T) {
	// GIVEN: A record already appended
	store := newTestStore(t)
	ctx := context.Background()
	rec := testRecord("calc-1", "deal-1", time.Now().UTC())
	require.NoError(t, store.Append(ctx, rec))

	// WHEN: Appending the same calculation ID again (a retry)
	err := store.Append(ctx, rec)

	// THEN: It is rejected, never overwritten
	require.ErrorIs(t, err, audit.ErrDuplicateCalculationID)

	count, err := store.CountAuditRecords(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestHistory_UnknownDealIsEmpty(t *testing.T) {
	store := newTestStore(t)
	history, err := store.History(context.Background(), "no-such-deal")
	require.NoError(t, err)
	assert.Empty(t, history)
}

// =============================================================================
// RULE TABLE TESTS
// =============================================================================

func TestRuleTable_SaveGetList(t *testing.T) {
	// GIVEN: Two stored rule-table snapshots
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveRuleTable(ctx, "2026-Q1", `{"rules_version":"2026-Q1"}`))
	require.NoError(t, store.SaveRuleTable(ctx, "2026-Q2", `{"rules_version":"2026-Q2"}`))

	// WHEN: Fetching by version
	rec, err := store.GetRuleTable(ctx, "2026-Q1")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, `{"rules_version":"2026-Q1"}`, rec.TableJSON)

	// THEN: Unknown versions return nil, and the list holds both
	missing, err := store.GetRuleTable(ctx, "2099-Q9")
	require.NoError(t, err)
	assert.Nil(t, missing)

	all, err := store.ListRuleTables(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestRuleTable_ReloadRefreshesSnapshot(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveRuleTable(ctx, "2026-Q1", `{"v":1}`))
	require.NoError(t, store.SaveRuleTable(ctx, "2026-Q1", `{"v":2}`))

	rec, err := store.GetRuleTable(ctx, "2026-Q1")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, `{"v":2}`, rec.TableJSON)

	all, err := store.ListRuleTables(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

package postgres

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"cennzxScope/internal/model"
)

// Runs only when CENNZX_TEST_PG_DSN points at a scratch database.
func newTestStore(t *testing.T) *Store {
	t.Helper()
	dsn := os.Getenv("CENNZX_TEST_PG_DSN")
	if dsn == "" {
		t.Skip("CENNZX_TEST_PG_DSN not set")
	}
	ctx := context.Background()
	store, err := NewStore(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(store.Close)
	require.NoError(t, store.EnsureSchema(ctx))
	return store
}

func TestStoreUpsertsResults(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	runID := fmt.Sprintf("test-%d", time.Now().UnixNano())

	result := model.ScenarioResult{
		RunID:     runID,
		Scenario:  "sell-core-exact-input",
		Action:    "swap",
		Kind:      "PriceMismatch",
		LivePrice: "4750",
		StartedAt: time.Now().UTC().Format(time.RFC3339Nano),
	}
	require.NoError(t, store.PutResultBatch(ctx, []model.ScenarioResult{result}))

	result.Passed = true
	result.Kind = ""
	result.Mismatches = []model.DeltaMismatch{{Balance: "pool_core", Expected: "1", Actual: "2"}}
	require.NoError(t, store.PutResultBatch(ctx, []model.ScenarioResult{result}))

	loaded, err := store.LoadResults(ctx, runID)
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	require.True(t, loaded[0].Passed)
	require.Equal(t, "4750", loaded[0].LivePrice)
	require.Equal(t, result.Mismatches, loaded[0].Mismatches)
}

func TestStoreRunState(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	runID := fmt.Sprintf("state-%d", time.Now().UnixNano())

	_, ok, err := store.LoadState(ctx, runID)
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, store.SaveState(ctx, RunState{RunID: runID, Passed: 3, Failed: 1, FeeRate: 3000}))
	state, ok, err := store.LoadState(ctx, runID)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, 3, state.Passed)
	require.Equal(t, uint64(3000), state.FeeRate)
}

package core

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vitaliisemenov/journal-sync/internal/lock"
	"github.com/vitaliisemenov/journal-sync/internal/storage/memory"
)

func newTestEngine() (*SyncEngine, *memory.Storage) {
	store := memory.New(nil)
	clock := NewFakeClock(time.Date(2026, 7, 31, 10, 0, 0, 0, time.UTC))
	engine := NewSyncEngine(store, clock, lock.NewMutexLock(), nil)
	return engine, store
}

func TestSyncEngine_ApplyBatch_InsertsNewTracker(t *testing.T) {
	engine, store := newTestEngine()
	ctx := context.Background()

	batch := UpdateBatch{
		ClientID: "device-a",
		Config: []map[string]any{
			{"id": "t1", "name": "Steps", "category": "health", "type": "quantifiable", "_baseVersion": float64(0)},
		},
	}

	result, err := engine.ApplyBatch(ctx, batch)
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Empty(t, result.Conflicts)
	require.Len(t, result.AppliedConfig, 1)
	assert.Equal(t, 1, result.AppliedConfig[0]["_version"])

	stored, exists, err := store.GetTracker(ctx, "t1")
	require.NoError(t, err)
	require.True(t, exists)
	assert.Equal(t, 1, stored.Version)
	assert.Equal(t, "device-a", stored.LastModifiedBy)
}

func TestSyncEngine_ApplyBatch_ConflictLeavesStoreUntouched(t *testing.T) {
	engine, store := newTestEngine()
	ctx := context.Background()

	require.NoError(t, store.PutTracker(ctx, Tracker{
		ID:              "t1",
		Name:            "Steps",
		VersionEnvelope: VersionEnvelope{Version: 5, LastModifiedAt: "2026-07-30T00:00:00Z"},
	}))

	batch := UpdateBatch{
		ClientID: "device-a",
		Config: []map[string]any{
			{"id": "t1", "name": "Steps (renamed)", "_baseVersion": float64(2)},
		},
	}

	result, err := engine.ApplyBatch(ctx, batch)
	require.NoError(t, err)
	assert.False(t, result.Success)
	require.Len(t, result.Conflicts, 1)
	assert.Equal(t, "t1", result.Conflicts[0].EntityID)
	assert.Equal(t, 5, result.Conflicts[0].ServerVersion)

	stored, _, err := store.GetTracker(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, "Steps", stored.Name)
	assert.Equal(t, 5, stored.Version)
}

func TestSyncEngine_ApplyBatch_EntriesAndTrackersInOneBatch(t *testing.T) {
	engine, store := newTestEngine()
	ctx := context.Background()

	batch := UpdateBatch{
		ClientID: "device-a",
		Config: []map[string]any{
			{"id": "t1", "name": "Mood", "_baseVersion": float64(0)},
		},
		Days: map[string]map[string]map[string]any{
			"2026-07-30": {
				"t1": {"value": float64(3), "_baseVersion": float64(0)},
			},
		},
	}

	result, err := engine.ApplyBatch(ctx, batch)
	require.NoError(t, err)
	assert.True(t, result.Success)
	require.Contains(t, result.AppliedDays, "2026-07-30")
	require.Contains(t, result.AppliedDays["2026-07-30"], "t1")

	entry, exists, err := store.GetEntry(ctx, "2026-07-30", "t1")
	require.NoError(t, err)
	require.True(t, exists)
	assert.Equal(t, 1, entry.Version)

	ts, has, err := store.GetSyncMetadata(ctx)
	require.NoError(t, err)
	require.True(t, has)
	assert.Equal(t, "2026-07-31T10:00:00Z", ts)
}

func TestSyncEngine_ApplyBatch_NoopTombstoneSkipsWrite(t *testing.T) {
	engine, store := newTestEngine()
	ctx := context.Background()

	require.NoError(t, store.PutTracker(ctx, Tracker{
		ID:              "t1",
		Deleted:         true,
		VersionEnvelope: VersionEnvelope{Version: 3, LastModifiedAt: "2026-07-01T00:00:00Z"},
	}))

	batch := UpdateBatch{
		ClientID: "device-a",
		Config: []map[string]any{
			{"id": "t1", "_baseVersion": float64(3), "_deleted": true},
		},
	}

	result, err := engine.ApplyBatch(ctx, batch)
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Empty(t, result.AppliedConfig)

	_, hasModified, err := store.GetSyncMetadata(ctx)
	require.NoError(t, err)
	assert.False(t, hasModified)
}

package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vitaliisemenov/journal-sync/internal/core"
)

func newTestStorage(t *testing.T) *Storage {
	t.Helper()
	path := filepath.Join(t.TempDir(), "journal.db")
	s, err := New(context.Background(), path, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestNew_RejectsInvalidPaths(t *testing.T) {
	_, err := New(context.Background(), "", nil)
	require.Error(t, err)

	_, err = New(context.Background(), "../escape.db", nil)
	require.Error(t, err)

	_, err = New(context.Background(), "/etc/journal.db", nil)
	require.Error(t, err)
}

func TestStorage_TrackerRoundTrip(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	_, exists, err := s.GetTracker(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, exists)

	tracker := core.Tracker{
		ID:              "t1",
		Name:            "Steps",
		Category:        "health",
		Type:            core.TrackerTypeQuantifiable,
		VersionEnvelope: core.VersionEnvelope{Version: 1, LastModifiedBy: "device-a", LastModifiedAt: "2026-07-30T00:00:00Z"},
		Extra:           map[string]any{"unit": "steps"},
	}
	require.NoError(t, s.PutTracker(ctx, tracker))

	got, exists, err := s.GetTracker(ctx, "t1")
	require.NoError(t, err)
	require.True(t, exists)
	assert.Equal(t, "Steps", got.Name)
	assert.Equal(t, "steps", got.Extra["unit"])
}

func TestStorage_PutTrackerUpsertsAndInvalidatesCache(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	require.NoError(t, s.PutTracker(ctx, core.Tracker{ID: "t1", Name: "Old", VersionEnvelope: core.VersionEnvelope{Version: 1}}))
	// Warm the read-through cache.
	_, _, err := s.GetTracker(ctx, "t1")
	require.NoError(t, err)

	require.NoError(t, s.PutTracker(ctx, core.Tracker{ID: "t1", Name: "New", VersionEnvelope: core.VersionEnvelope{Version: 2}}))

	got, exists, err := s.GetTracker(ctx, "t1")
	require.NoError(t, err)
	require.True(t, exists)
	assert.Equal(t, "New", got.Name, "cache must reflect the latest write, not the value it was warmed with")
	assert.Equal(t, 2, got.Version)
}

func TestStorage_EntryRoundTrip(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	value := 3.5
	completed := true
	entry := core.Entry{
		Date:            "2026-07-30",
		TrackerID:       "t1",
		Value:           &value,
		Completed:       &completed,
		VersionEnvelope: core.VersionEnvelope{Version: 1, LastModifiedBy: "device-a", LastModifiedAt: "2026-07-30T00:00:00Z"},
		Extra:           map[string]any{"note": "felt good"},
	}
	require.NoError(t, s.PutEntry(ctx, entry))

	got, exists, err := s.GetEntry(ctx, "2026-07-30", "t1")
	require.NoError(t, err)
	require.True(t, exists)
	require.NotNil(t, got.Value)
	assert.Equal(t, 3.5, *got.Value)
	require.NotNil(t, got.Completed)
	assert.True(t, *got.Completed)
	assert.Equal(t, "felt good", got.Extra["note"])
}

func TestStorage_ListTrackers_ExcludesDeletedAndFiltersBySince(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	require.NoError(t, s.PutTracker(ctx, core.Tracker{ID: "t1", VersionEnvelope: core.VersionEnvelope{LastModifiedAt: "2026-07-01T00:00:00Z"}}))
	require.NoError(t, s.PutTracker(ctx, core.Tracker{ID: "t2", Deleted: true, VersionEnvelope: core.VersionEnvelope{LastModifiedAt: "2026-07-30T00:00:00Z"}}))
	require.NoError(t, s.PutTracker(ctx, core.Tracker{ID: "t3", VersionEnvelope: core.VersionEnvelope{LastModifiedAt: "2026-07-30T00:00:00Z"}}))

	active, err := s.ListTrackers(ctx, false, "")
	require.NoError(t, err)
	assert.Len(t, active, 2)

	all, err := s.ListTrackers(ctx, true, "")
	require.NoError(t, err)
	assert.Len(t, all, 3)

	recent, err := s.ListTrackers(ctx, true, "2026-07-15T00:00:00Z")
	require.NoError(t, err)
	assert.Len(t, recent, 2)
}

func TestStorage_ListEntries_FiltersByDateLowerBoundAndSince(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	require.NoError(t, s.PutEntry(ctx, core.Entry{Date: "2026-07-01", TrackerID: "t1", VersionEnvelope: core.VersionEnvelope{LastModifiedAt: "2026-07-01T00:00:00Z"}}))
	require.NoError(t, s.PutEntry(ctx, core.Entry{Date: "2026-07-30", TrackerID: "t1", VersionEnvelope: core.VersionEnvelope{LastModifiedAt: "2026-07-30T00:00:00Z"}}))

	entries, err := s.ListEntries(ctx, "2026-07-15", "")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "2026-07-30", entries[0].Date)
}

func TestStorage_ListDeletedTrackerIDsSince(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	require.NoError(t, s.PutTracker(ctx, core.Tracker{ID: "t1", Deleted: true, VersionEnvelope: core.VersionEnvelope{LastModifiedAt: "2026-07-30T00:00:00Z"}}))
	require.NoError(t, s.PutTracker(ctx, core.Tracker{ID: "t2", Deleted: true, VersionEnvelope: core.VersionEnvelope{LastModifiedAt: "2026-07-01T00:00:00Z"}}))

	ids, err := s.ListDeletedTrackerIDsSince(ctx, "2026-07-15T00:00:00Z")
	require.NoError(t, err)
	require.Len(t, ids, 1)
	assert.Equal(t, "t1", ids[0])
}

func TestStorage_SyncMetadata(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	_, has, err := s.GetSyncMetadata(ctx)
	require.NoError(t, err)
	assert.False(t, has)

	require.NoError(t, s.SetSyncMetadata(ctx, "2026-07-31T00:00:00Z"))
	require.NoError(t, s.SetSyncMetadata(ctx, "2026-07-31T01:00:00Z"))

	ts, has, err := s.GetSyncMetadata(ctx)
	require.NoError(t, err)
	assert.True(t, has)
	assert.Equal(t, "2026-07-31T01:00:00Z", ts)
}

func TestStorage_ConflictRecords_OnlyUnresolvedAreListed(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	require.NoError(t, s.AppendConflictRecord(ctx, core.ConflictRecord{
		EntityType: core.EntityTypeTracker, EntityID: "t1", Resolution: core.ResolutionClient, ClientID: "device-a",
	}))
	require.NoError(t, s.AppendConflictRecord(ctx, core.ConflictRecord{
		EntityType: core.EntityTypeTracker, EntityID: "t2", Resolution: core.ResolutionServer, ClientID: "device-a", ResolvedAt: "2026-07-31T00:00:00Z",
	}))

	unresolved, err := s.ListConflicts(ctx, "device-a")
	require.NoError(t, err)
	require.Len(t, unresolved, 1)
	assert.Equal(t, "t1", unresolved[0].EntityID)
}

func TestStorage_UpsertClient(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	require.NoError(t, s.UpsertClient(ctx, core.Client{ID: "c1", Name: "phone", FirstSeenAt: "2026-07-01T00:00:00Z", LastSeenAt: "2026-07-01T00:00:00Z"}))
	require.NoError(t, s.UpsertClient(ctx, core.Client{ID: "c1", Name: "ignored", LastSeenAt: "2026-07-31T00:00:00Z"}))

	got, exists, err := s.GetClient(ctx, "c1")
	require.NoError(t, err)
	require.True(t, exists)
	assert.Equal(t, "phone", got.Name)
	assert.Equal(t, "2026-07-31T00:00:00Z", got.LastSeenAt)
}

func TestStorage_HealthAndClose(t *testing.T) {
	s := newTestStorage(t)
	require.NoError(t, s.Health(context.Background()))
	require.NoError(t, s.Close())
	require.NoError(t, s.Close(), "Close must be idempotent")
}

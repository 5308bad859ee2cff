package core

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vitaliisemenov/journal-sync/internal/storage/memory"
)

func TestDeltaAssembler_Full(t *testing.T) {
	store := memory.New(nil)
	clock := NewFakeClock(time.Date(2026, 7, 31, 9, 0, 0, 0, time.UTC))
	ctx := context.Background()

	// Full/Delta derive their window bound from the wall clock, not the
	// injected Clock (the window tracks real calendar days), so these
	// entry dates are computed relative to time.Now() to stay correct
	// regardless of when the test actually runs.
	recentDate := time.Now().AddDate(0, 0, -1).Format("2006-01-02")
	staleDate := time.Now().AddDate(0, 0, -30).Format("2006-01-02")

	require.NoError(t, store.PutTracker(ctx, Tracker{ID: "t1", Name: "Mood", VersionEnvelope: VersionEnvelope{Version: 1}}))
	require.NoError(t, store.PutTracker(ctx, Tracker{ID: "t2", Name: "Gone", Deleted: true, VersionEnvelope: VersionEnvelope{Version: 2}}))

	require.NoError(t, store.PutEntry(ctx, Entry{Date: recentDate, TrackerID: "t1", VersionEnvelope: VersionEnvelope{Version: 1}}))
	require.NoError(t, store.PutEntry(ctx, Entry{Date: staleDate, TrackerID: "t1", VersionEnvelope: VersionEnvelope{Version: 1}}))

	assembler := NewDeltaAssembler(store, clock)
	snap, err := assembler.Full(ctx)
	require.NoError(t, err)

	assert.Len(t, snap.Config, 1, "tombstoned trackers are excluded from a full snapshot")
	assert.Equal(t, "t1", snap.Config[0]["id"])

	assert.Contains(t, snap.Days, recentDate)
	assert.NotContains(t, snap.Days, staleDate, "entries outside the rolling window are excluded")
	assert.Empty(t, snap.DeletedTrackers, "full snapshots never report deleted ids")
}

func TestDeltaAssembler_Delta_FiltersBySinceAndReportsTombstones(t *testing.T) {
	store := memory.New(nil)
	clock := NewFakeClock(time.Date(2026, 7, 31, 9, 0, 0, 0, time.UTC))
	ctx := context.Background()

	require.NoError(t, store.PutTracker(ctx, Tracker{
		ID: "t1", Name: "Old", VersionEnvelope: VersionEnvelope{Version: 1, LastModifiedAt: "2026-07-01T00:00:00Z"},
	}))
	require.NoError(t, store.PutTracker(ctx, Tracker{
		ID: "t2", Name: "New", VersionEnvelope: VersionEnvelope{Version: 1, LastModifiedAt: "2026-07-30T00:00:00Z"},
	}))
	require.NoError(t, store.PutTracker(ctx, Tracker{
		ID: "t3", Deleted: true, VersionEnvelope: VersionEnvelope{Version: 2, LastModifiedAt: "2026-07-30T12:00:00Z"},
	}))

	assembler := NewDeltaAssembler(store, clock)
	snap, err := assembler.Delta(ctx, "2026-07-15T00:00:00Z")
	require.NoError(t, err)

	require.Len(t, snap.Config, 1)
	assert.Equal(t, "t2", snap.Config[0]["id"])
	require.Len(t, snap.DeletedTrackers, 1)
	assert.Equal(t, "t3", snap.DeletedTrackers[0])
}

func TestDeltaAssembler_Delta_FutureCursorYieldsEmptyNotError(t *testing.T) {
	store := memory.New(nil)
	clock := NewFakeClock(time.Date(2026, 7, 31, 9, 0, 0, 0, time.UTC))
	ctx := context.Background()

	require.NoError(t, store.PutTracker(ctx, Tracker{
		ID: "t1", VersionEnvelope: VersionEnvelope{Version: 1, LastModifiedAt: "2026-07-30T00:00:00Z"},
	}))

	assembler := NewDeltaAssembler(store, clock)
	snap, err := assembler.Delta(ctx, "2099-01-01T00:00:00Z")
	require.NoError(t, err)
	assert.Empty(t, snap.Config)
	assert.Empty(t, snap.DeletedTrackers)
}

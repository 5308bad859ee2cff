package core

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vitaliisemenov/journal-sync/internal/storage/memory"
)

func newTestResolver() (*ResolutionHandler, *memory.Storage) {
	store := memory.New(nil)
	clock := NewFakeClock(time.Date(2026, 7, 31, 11, 0, 0, 0, time.UTC))
	return NewResolutionHandler(store, clock), store
}

func TestResolutionHandler_Resolve_ServerKeepsExistingRow(t *testing.T) {
	h, store := newTestResolver()
	ctx := context.Background()

	require.NoError(t, store.PutTracker(ctx, Tracker{ID: "t1", Name: "Steps", VersionEnvelope: VersionEnvelope{Version: 5}}))

	err := h.Resolve(ctx, EntityTypeTracker, "t1", ResolutionServer, "device-a", nil)
	require.NoError(t, err)

	stored, _, err := store.GetTracker(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, 5, stored.Version, "resolving to server must not bump the version")
}

func TestResolutionHandler_Resolve_ClientOverwritesAndBumpsVersion(t *testing.T) {
	h, store := newTestResolver()
	ctx := context.Background()

	require.NoError(t, store.PutTracker(ctx, Tracker{ID: "t1", Name: "Steps", VersionEnvelope: VersionEnvelope{Version: 5}}))

	payload := map[string]any{"id": "t1", "name": "Steps (client)", "_baseVersion": float64(2)}
	err := h.Resolve(ctx, EntityTypeTracker, "t1", ResolutionClient, "device-a", payload)
	require.NoError(t, err)

	stored, _, err := store.GetTracker(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, "Steps (client)", stored.Name)
	assert.Equal(t, 6, stored.Version, "client resolution bumps off the server's version, not the client's stale base")
	assert.Equal(t, "device-a", stored.LastModifiedBy)
}

func TestResolutionHandler_Resolve_ClientPayloadCanSoftDelete(t *testing.T) {
	h, store := newTestResolver()
	ctx := context.Background()

	require.NoError(t, store.PutTracker(ctx, Tracker{ID: "t1", Name: "Steps", VersionEnvelope: VersionEnvelope{Version: 5}}))

	payload := map[string]any{"id": "t1", "_deleted": true}
	err := h.Resolve(ctx, EntityTypeTracker, "t1", ResolutionClient, "device-a", payload)
	require.NoError(t, err)

	stored, _, err := store.GetTracker(ctx, "t1")
	require.NoError(t, err)
	assert.True(t, stored.Deleted, "a client resolution payload carrying _deleted must soft-delete the tracker")
	assert.Equal(t, 6, stored.Version)
}

func TestResolutionHandler_Resolve_EntryRoundTrip(t *testing.T) {
	h, store := newTestResolver()
	ctx := context.Background()

	require.NoError(t, store.PutEntry(ctx, Entry{Date: "2026-07-30", TrackerID: "t1", VersionEnvelope: VersionEnvelope{Version: 2}}))

	payload := map[string]any{"value": float64(9)}
	err := h.Resolve(ctx, EntityTypeEntry, "2026-07-30|t1", ResolutionClient, "device-b", payload)
	require.NoError(t, err)

	stored, exists, err := store.GetEntry(ctx, "2026-07-30", "t1")
	require.NoError(t, err)
	require.True(t, exists)
	require.NotNil(t, stored.Value)
	assert.Equal(t, float64(9), *stored.Value)
	assert.Equal(t, 3, stored.Version)
}

func TestResolutionHandler_Resolve_ServerWinsLeavesNoUnresolvedConflict(t *testing.T) {
	h, store := newTestResolver()
	ctx := context.Background()

	require.NoError(t, store.PutTracker(ctx, Tracker{ID: "t1", VersionEnvelope: VersionEnvelope{Version: 1}}))

	err := h.Resolve(ctx, EntityTypeTracker, "t1", ResolutionServer, "device-a", nil)
	require.NoError(t, err)

	// ListConflicts only surfaces unresolved records, so a freshly
	// recorded resolution (ResolvedAt always set) never shows up here.
	conflicts, err := store.ListConflicts(ctx, "device-a")
	require.NoError(t, err)
	assert.Empty(t, conflicts)
}

func TestResolutionHandler_Resolve_UnknownEntityType(t *testing.T) {
	h, _ := newTestResolver()
	err := h.Resolve(context.Background(), "widget", "w1", ResolutionServer, "device-a", nil)
	require.Error(t, err)
	var target ErrUnknownEntityType
	assert.ErrorAs(t, err, &target)
}

func TestResolutionHandler_Resolve_TrackerNotFound(t *testing.T) {
	h, _ := newTestResolver()
	err := h.Resolve(context.Background(), EntityTypeTracker, "missing", ResolutionServer, "device-a", nil)
	require.Error(t, err)
	var target ErrTrackerNotFound
	assert.ErrorAs(t, err, &target)
}

func TestResolutionHandler_Resolve_MalformedEntryID(t *testing.T) {
	h, _ := newTestResolver()
	err := h.Resolve(context.Background(), EntityTypeEntry, "no-separator", ResolutionServer, "device-a", nil)
	require.Error(t, err)
	var target ErrMalformedEntityID
	assert.ErrorAs(t, err, &target)
}

package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConflictDetector_DecideTracker(t *testing.T) {
	det := ConflictDetector{}

	tests := []struct {
		name         string
		server       Tracker
		serverExists bool
		incoming     IncomingTracker
		wantKind     DecisionKind
		wantVersion  int
		wantDeleted  bool
	}{
		{
			name:         "new tracker is an insert",
			serverExists: false,
			incoming:     IncomingTracker{BaseVersion: 0},
			wantKind:     DecisionApplyInsert,
			wantVersion:  1,
		},
		{
			name:         "matching base version applies update",
			server:       Tracker{VersionEnvelope: VersionEnvelope{Version: 3}},
			serverExists: true,
			incoming:     IncomingTracker{BaseVersion: 3},
			wantKind:     DecisionApplyUpdate,
			wantVersion:  4,
		},
		{
			name:         "stale base version conflicts",
			server:       Tracker{VersionEnvelope: VersionEnvelope{Version: 5}},
			serverExists: true,
			incoming:     IncomingTracker{BaseVersion: 3},
			wantKind:     DecisionConflict,
		},
		{
			name:         "base version ahead of server also conflicts",
			server:       Tracker{VersionEnvelope: VersionEnvelope{Version: 3}},
			serverExists: true,
			incoming:     IncomingTracker{BaseVersion: 5},
			wantKind:     DecisionConflict,
		},
		{
			name:         "double delete is a no-op tombstone",
			server:       Tracker{Deleted: true, VersionEnvelope: VersionEnvelope{Version: 4}},
			serverExists: true,
			incoming:     IncomingTracker{BaseVersion: 4, IsDelete: true},
			wantKind:     DecisionNoopTombstone,
			wantVersion:  4,
			wantDeleted:  true,
		},
		{
			name:         "write against a tombstone resurrects it",
			server:       Tracker{Deleted: true, VersionEnvelope: VersionEnvelope{Version: 4}},
			serverExists: true,
			incoming:     IncomingTracker{BaseVersion: 4, IsDelete: false},
			wantKind:     DecisionApplyResurrection,
			wantVersion:  5,
		},
		{
			name:         "resurrection honors a base version ahead of the tombstone",
			server:       Tracker{Deleted: true, VersionEnvelope: VersionEnvelope{Version: 4}},
			serverExists: true,
			incoming:     IncomingTracker{BaseVersion: 9, IsDelete: false},
			wantKind:     DecisionApplyResurrection,
			wantVersion:  10,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dec := det.DecideTracker(tt.server, tt.serverExists, tt.incoming)
			assert.Equal(t, tt.wantKind, dec.Kind)
			if tt.wantKind != DecisionConflict {
				assert.Equal(t, tt.wantVersion, dec.ResultVersion)
				assert.Equal(t, tt.wantDeleted, dec.ResultDeleted)
			}
		})
	}
}

func TestConflictDetector_DecideTracker_ConflictDescriptor(t *testing.T) {
	det := ConflictDetector{}
	server := Tracker{
		ID:              "t1",
		Name:            "Steps",
		VersionEnvelope: VersionEnvelope{Version: 5, LastModifiedBy: "device-a"},
	}
	incoming := IncomingTracker{BaseVersion: 2}

	dec := det.DecideTracker(server, true, incoming)

	require.Equal(t, DecisionConflict, dec.Kind)
	assert.Equal(t, EntityTypeTracker, dec.Descriptor.EntityType)
	assert.Equal(t, "t1", dec.Descriptor.EntityID)
	assert.Equal(t, 5, dec.Descriptor.ServerVersion)
	assert.Equal(t, 2, dec.Descriptor.ClientBaseVersion)
	assert.Equal(t, "Steps", dec.Descriptor.ServerData["name"])
}

func TestConflictDetector_DecideEntry(t *testing.T) {
	det := ConflictDetector{}

	t.Run("new entry is an insert", func(t *testing.T) {
		dec := det.DecideEntry(Entry{}, false, IncomingEntry{BaseVersion: 0})
		assert.Equal(t, DecisionApplyInsert, dec.Kind)
		assert.Equal(t, 1, dec.ResultVersion)
	})

	t.Run("matching base version applies update", func(t *testing.T) {
		server := Entry{Date: "2026-07-20", TrackerID: "t1", VersionEnvelope: VersionEnvelope{Version: 2}}
		dec := det.DecideEntry(server, true, IncomingEntry{BaseVersion: 2})
		assert.Equal(t, DecisionApplyUpdate, dec.Kind)
		assert.Equal(t, 3, dec.ResultVersion)
	})

	t.Run("stale base version conflicts with a composite entity id", func(t *testing.T) {
		server := Entry{Date: "2026-07-20", TrackerID: "t1", VersionEnvelope: VersionEnvelope{Version: 2}}
		dec := det.DecideEntry(server, true, IncomingEntry{BaseVersion: 1})
		require.Equal(t, DecisionConflict, dec.Kind)
		assert.Equal(t, EntityTypeEntry, dec.Descriptor.EntityType)
		assert.Equal(t, "2026-07-20|t1", dec.Descriptor.EntityID)
	})
}

package core

import (
	"context"
	"fmt"
	"time"
)

// Snapshot is the shared shape returned by both full and delta reads.
// DeletedTrackers is only populated by delta snapshots.
type Snapshot struct {
	Config          []map[string]any
	Days            map[string]map[string]map[string]any
	DeletedTrackers []string
	ServerTime      string
}

// DeltaAssembler builds full and incremental read-side snapshots,
// applying WindowPolicy to entries on every path.
type DeltaAssembler struct {
	store  Store
	clock  Clock
	window WindowPolicy
}

// NewDeltaAssembler constructs a DeltaAssembler over store.
func NewDeltaAssembler(store Store, clock Clock) *DeltaAssembler {
	return &DeltaAssembler{store: store, clock: clock}
}

// Full builds the full snapshot: all non-deleted trackers, windowed
// entries, and the current server time.
func (a *DeltaAssembler) Full(ctx context.Context) (Snapshot, error) {
	lowerBound := a.window.EntryLowerBound(time.Now())

	trackers, err := a.store.ListTrackers(ctx, false, "")
	if err != nil {
		return Snapshot{}, fmt.Errorf("list trackers: %w", err)
	}
	entries, err := a.store.ListEntries(ctx, lowerBound, "")
	if err != nil {
		return Snapshot{}, fmt.Errorf("list entries: %w", err)
	}

	return Snapshot{
		Config:     wireTrackers(trackers),
		Days:       groupEntries(entries),
		ServerTime: a.clock.Now(),
	}, nil
}

// Delta builds the incremental snapshot since the given cursor
// timestamp. A future timestamp yields empty lists, not an error.
func (a *DeltaAssembler) Delta(ctx context.Context, since string) (Snapshot, error) {
	lowerBound := a.window.EntryLowerBound(time.Now())

	trackers, err := a.store.ListTrackers(ctx, false, since)
	if err != nil {
		return Snapshot{}, fmt.Errorf("list trackers: %w", err)
	}
	entries, err := a.store.ListEntries(ctx, lowerBound, since)
	if err != nil {
		return Snapshot{}, fmt.Errorf("list entries: %w", err)
	}
	deletedIDs, err := a.store.ListDeletedTrackerIDsSince(ctx, since)
	if err != nil {
		return Snapshot{}, fmt.Errorf("list deleted tracker ids: %w", err)
	}

	return Snapshot{
		Config:          wireTrackers(trackers),
		Days:            groupEntries(entries),
		DeletedTrackers: deletedIDs,
		ServerTime:      a.clock.Now(),
	}, nil
}

func wireTrackers(trackers []Tracker) []map[string]any {
	out := make([]map[string]any, 0, len(trackers))
	for _, t := range trackers {
		out = append(out, TrackerToWire(t))
	}
	return out
}

func groupEntries(entries []Entry) map[string]map[string]map[string]any {
	out := map[string]map[string]map[string]any{}
	for _, e := range entries {
		if out[e.Date] == nil {
			out[e.Date] = map[string]map[string]any{}
		}
		out[e.Date][e.TrackerID] = EntryToWire(e)
	}
	return out
}

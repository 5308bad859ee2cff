package core

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/vitaliisemenov/journal-sync/internal/lock"
)

// UpdateBatch is one client's submitted set of tracker and entry
// writes: an ordered tracker list plus a date -> trackerId -> raw entry
// map, exactly the wire shape of POST /api/sync/update.
type UpdateBatch struct {
	ClientID string
	Config   []map[string]any
	Days     map[string]map[string]map[string]any
}

// UpdateResult is the per-batch outcome returned to the caller.
type UpdateResult struct {
	Success      bool
	Conflicts    []ConflictDescriptor
	AppliedConfig []map[string]any
	AppliedDays  map[string]map[string]map[string]any
	LastModified *string
}

// SyncEngine applies batched updates under the write lock, per §4.5.
type SyncEngine struct {
	store    Store
	clock    Clock
	locker   lock.Locker
	detector ConflictDetector
	logger   *slog.Logger
}

// NewSyncEngine constructs a SyncEngine over store, serialized by
// locker. logger may be nil, defaulting to slog.Default().
func NewSyncEngine(store Store, clock Clock, locker lock.Locker, logger *slog.Logger) *SyncEngine {
	if logger == nil {
		logger = slog.Default()
	}
	return &SyncEngine{store: store, clock: clock, locker: locker, detector: ConflictDetector{}, logger: logger}
}

// ApplyBatch runs the algorithm of §4.5 against one client's batch.
func (e *SyncEngine) ApplyBatch(ctx context.Context, batch UpdateBatch) (UpdateResult, error) {
	start := time.Now()
	if err := e.locker.Acquire(ctx); err != nil {
		return UpdateResult{}, fmt.Errorf("acquire write lock: %w", err)
	}
	defer func() {
		lock.LockHoldDuration.Observe(time.Since(start).Seconds())
		if err := e.locker.Release(context.Background()); err != nil {
			e.logger.Error("failed to release write lock", "error", err)
		}
	}()

	result := UpdateResult{
		AppliedConfig: []map[string]any{},
		AppliedDays:   map[string]map[string]map[string]any{},
	}

	now := e.clock.Now()
	wrote := false

	for _, raw := range batch.Config {
		incoming := ParseIncomingTracker(raw)
		server, exists, err := e.store.GetTracker(ctx, incoming.Tracker.ID)
		if err != nil {
			return UpdateResult{}, fmt.Errorf("get tracker %s: %w", incoming.Tracker.ID, err)
		}

		dec := e.detector.DecideTracker(server, exists, incoming)
		if dec.Kind == DecisionConflict {
			result.Conflicts = append(result.Conflicts, dec.Descriptor)
			continue
		}
		if dec.Kind == DecisionNoopTombstone {
			continue
		}

		post := incoming.Tracker
		post.Version = dec.ResultVersion
		post.Deleted = dec.ResultDeleted
		post.LastModifiedBy = batch.ClientID
		post.LastModifiedAt = now

		if err := e.store.PutTracker(ctx, post); err != nil {
			return UpdateResult{}, fmt.Errorf("put tracker %s: %w", post.ID, err)
		}
		wrote = true
		result.AppliedConfig = append(result.AppliedConfig, TrackerToWire(post))
	}

	for date, byTracker := range batch.Days {
		for trackerID, raw := range byTracker {
			incoming := ParseIncomingEntry(date, trackerID, raw)
			server, exists, err := e.store.GetEntry(ctx, date, trackerID)
			if err != nil {
				return UpdateResult{}, fmt.Errorf("get entry %s/%s: %w", date, trackerID, err)
			}

			dec := e.detector.DecideEntry(server, exists, incoming)
			if dec.Kind == DecisionConflict {
				result.Conflicts = append(result.Conflicts, dec.Descriptor)
				continue
			}

			post := incoming.Entry
			post.Version = dec.ResultVersion
			post.LastModifiedBy = batch.ClientID
			post.LastModifiedAt = now

			if err := e.store.PutEntry(ctx, post); err != nil {
				return UpdateResult{}, fmt.Errorf("put entry %s/%s: %w", date, trackerID, err)
			}
			wrote = true

			if result.AppliedDays[date] == nil {
				result.AppliedDays[date] = map[string]map[string]any{}
			}
			result.AppliedDays[date][trackerID] = EntryToWire(post)
		}
	}

	if wrote {
		if err := e.store.SetSyncMetadata(ctx, now); err != nil {
			return UpdateResult{}, fmt.Errorf("set sync metadata: %w", err)
		}
	}

	result.Success = len(result.Conflicts) == 0
	if result.Success {
		lm := now
		result.LastModified = &lm
	}
	return result, nil
}

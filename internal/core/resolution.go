package core

import (
	"context"
	"fmt"
)

// ResolutionHandler force-applies an operator-chosen resolution to a
// single entity out-of-band, bypassing ConflictDetector entirely
// (§4.8).
type ResolutionHandler struct {
	store Store
	clock Clock
}

// NewResolutionHandler constructs a ResolutionHandler over store.
func NewResolutionHandler(store Store, clock Clock) *ResolutionHandler {
	return &ResolutionHandler{store: store, clock: clock}
}

// Resolve applies resolution for entityType/entityID, optionally using
// payload when resolution is "client". A ConflictRecord is persisted
// for audit whenever the resolution succeeds, whichever side wins; an
// unknown entity type, malformed entry id or missing entity returns an
// error and records nothing.
func (h *ResolutionHandler) Resolve(ctx context.Context, entityType, entityID string, resolution ConflictResolution, clientID string, payload map[string]any) error {
	now := h.clock.Now()

	switch entityType {
	case EntityTypeTracker:
		if err := h.resolveTracker(ctx, entityID, resolution, clientID, payload, now); err != nil {
			return err
		}
	case EntityTypeEntry:
		if err := h.resolveEntry(ctx, entityID, resolution, clientID, payload, now); err != nil {
			return err
		}
	default:
		return ErrUnknownEntityType{EntityType: entityType}
	}

	return h.store.AppendConflictRecord(ctx, ConflictRecord{
		EntityType: entityType,
		EntityID:   entityID,
		Resolution: resolution,
		ClientID:   clientID,
		ResolvedAt: now,
	})
}

func (h *ResolutionHandler) resolveTracker(ctx context.Context, id string, resolution ConflictResolution, clientID string, payload map[string]any, now string) error {
	server, exists, err := h.store.GetTracker(ctx, id)
	if err != nil {
		return fmt.Errorf("get tracker %s: %w", id, err)
	}
	if !exists {
		return ErrTrackerNotFound{ID: id}
	}

	if resolution == ResolutionServer {
		return nil
	}

	incoming := ParseIncomingTracker(payload)
	incoming.Tracker.ID = id
	incoming.Tracker.Deleted = incoming.IsDelete
	incoming.Tracker.Version = server.Version + 1
	incoming.Tracker.LastModifiedBy = clientID
	incoming.Tracker.LastModifiedAt = now

	if err := h.store.PutTracker(ctx, incoming.Tracker); err != nil {
		return fmt.Errorf("put tracker %s: %w", id, err)
	}
	return nil
}

func (h *ResolutionHandler) resolveEntry(ctx context.Context, entityID string, resolution ConflictResolution, clientID string, payload map[string]any, now string) error {
	date, trackerID, ok := SplitEntryID(entityID)
	if !ok {
		return ErrMalformedEntityID{EntityID: entityID}
	}

	server, exists, err := h.store.GetEntry(ctx, date, trackerID)
	if err != nil {
		return fmt.Errorf("get entry %s: %w", entityID, err)
	}
	if !exists {
		return ErrEntryNotFound{Date: date, TrackerID: trackerID}
	}

	if resolution == ResolutionServer {
		return nil
	}

	incoming := ParseIncomingEntry(date, trackerID, payload)
	incoming.Entry.Version = server.Version + 1
	incoming.Entry.LastModifiedBy = clientID
	incoming.Entry.LastModifiedAt = now

	if err := h.store.PutEntry(ctx, incoming.Entry); err != nil {
		return fmt.Errorf("put entry %s: %w", entityID, err)
	}
	return nil
}

// Package memory implements core.Store using in-memory maps. Used for
// graceful degradation when the primary backend (SQLite/Postgres) fails
// to initialize.
//
// WARNING: data is NOT persisted - lost on restart, crash, or eviction.
package memory

import (
	"context"
	"log/slog"
	"sync"

	"github.com/vitaliisemenov/journal-sync/internal/core"
)

// Storage implements core.Store over in-memory maps. Thread-safe via a
// single RWMutex; every tracker or entry stored or returned gets its
// own copy of its Extra map, following the teacher's alert-cache copy
// convention. The copy is one level deep: nested values inside Extra
// and an entry's Value/Completed pointers are shared with the caller.
type Storage struct {
	mu sync.RWMutex

	trackers     map[string]core.Tracker
	entries      map[string]core.Entry // keyed by date+"|"+trackerId
	clients      map[string]core.Client
	conflicts    []core.ConflictRecord
	lastModified string
	hasModified  bool

	logger *slog.Logger
}

// New creates an empty in-memory store. Logs a warning reminding
// operators this is not production-durable.
func New(logger *slog.Logger) *Storage {
	if logger == nil {
		logger = slog.Default()
	}
	logger.Warn("in-memory storage created: data will NOT persist across restarts")

	return &Storage{
		trackers: map[string]core.Tracker{},
		entries:  map[string]core.Entry{},
		clients:  map[string]core.Client{},
		logger:   logger,
	}
}

func entryKey(date, trackerID string) string { return date + "|" + trackerID }

func copyExtra(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// GetTracker implements core.Store.
func (s *Storage) GetTracker(ctx context.Context, id string) (core.Tracker, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.trackers[id]
	if !ok {
		return core.Tracker{}, false, nil
	}
	t.Extra = copyExtra(t.Extra)
	return t, true, nil
}

// PutTracker implements core.Store.
func (s *Storage) PutTracker(ctx context.Context, t core.Tracker) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t.Extra = copyExtra(t.Extra)
	s.trackers[t.ID] = t
	return nil
}

// GetEntry implements core.Store.
func (s *Storage) GetEntry(ctx context.Context, date, trackerID string) (core.Entry, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[entryKey(date, trackerID)]
	if !ok {
		return core.Entry{}, false, nil
	}
	e.Extra = copyExtra(e.Extra)
	return e, true, nil
}

// PutEntry implements core.Store.
func (s *Storage) PutEntry(ctx context.Context, e core.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e.Extra = copyExtra(e.Extra)
	s.entries[entryKey(e.Date, e.TrackerID)] = e
	return nil
}

// ListTrackers implements core.Store.
func (s *Storage) ListTrackers(ctx context.Context, includeDeleted bool, since string) ([]core.Tracker, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []core.Tracker
	for _, t := range s.trackers {
		if !includeDeleted && t.Deleted {
			continue
		}
		if since != "" && !(t.LastModifiedAt > since) {
			continue
		}
		t.Extra = copyExtra(t.Extra)
		out = append(out, t)
	}
	return out, nil
}

// ListEntries implements core.Store.
func (s *Storage) ListEntries(ctx context.Context, dateLowerBound, since string) ([]core.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []core.Entry
	for _, e := range s.entries {
		if e.Date < dateLowerBound {
			continue
		}
		if since != "" && !(e.LastModifiedAt > since) {
			continue
		}
		e.Extra = copyExtra(e.Extra)
		out = append(out, e)
	}
	return out, nil
}

// ListDeletedTrackerIDsSince implements core.Store.
func (s *Storage) ListDeletedTrackerIDsSince(ctx context.Context, since string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var ids []string
	for _, t := range s.trackers {
		if t.Deleted && t.LastModifiedAt > since {
			ids = append(ids, t.ID)
		}
	}
	return ids, nil
}

// GetSyncMetadata implements core.Store.
func (s *Storage) GetSyncMetadata(ctx context.Context) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastModified, s.hasModified, nil
}

// SetSyncMetadata implements core.Store.
func (s *Storage) SetSyncMetadata(ctx context.Context, timestamp string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastModified = timestamp
	s.hasModified = true
	return nil
}

// AppendConflictRecord implements core.Store.
func (s *Storage) AppendConflictRecord(ctx context.Context, rec core.ConflictRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conflicts = append(s.conflicts, rec)
	return nil
}

// ListConflicts implements core.Store.
func (s *Storage) ListConflicts(ctx context.Context, clientID string) ([]core.ConflictRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []core.ConflictRecord
	for _, c := range s.conflicts {
		if c.ClientID == clientID && c.ResolvedAt == "" {
			out = append(out, c)
		}
	}
	return out, nil
}

// UpsertClient implements core.Store.
func (s *Storage) UpsertClient(ctx context.Context, c core.Client) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.clients[c.ID]; ok {
		existing.LastSeenAt = c.LastSeenAt
		s.clients[c.ID] = existing
		return nil
	}
	s.clients[c.ID] = c
	return nil
}

// GetClient implements core.Store.
func (s *Storage) GetClient(ctx context.Context, id string) (core.Client, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.clients[id]
	return c, ok, nil
}

// Health implements core.Store. In-memory storage is always reachable.
func (s *Storage) Health(ctx context.Context) error { return nil }

// Close implements core.Store. Discards all data.
func (s *Storage) Close() error {
	s.logger.Info("in-memory storage closed, data discarded")
	return nil
}

// Size returns the current number of stored trackers plus entries, for
// diagnostics.
func (s *Storage) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.trackers) + len(s.entries)
}

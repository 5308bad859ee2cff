package core

import "context"

// Store is the durable, single-writer record storage interface shared
// by the sqlite, postgres, and memory backends. Every Put*/Set* call is
// atomic; the SyncEngine composes multiple calls itself under a Locker
// rather than relying on a multi-entity transaction (see internal/lock).
type Store interface {
	GetTracker(ctx context.Context, id string) (Tracker, bool, error)
	PutTracker(ctx context.Context, t Tracker) error
	GetEntry(ctx context.Context, date, trackerID string) (Entry, bool, error)
	PutEntry(ctx context.Context, e Entry) error

	// ListTrackers returns trackers, optionally including tombstones,
	// optionally filtered to lastModifiedAt > sinceTimestamp (empty
	// string means no filter).
	ListTrackers(ctx context.Context, includeDeleted bool, sinceTimestamp string) ([]Tracker, error)

	// ListEntries returns entries with date >= dateLowerBound, optionally
	// filtered to lastModifiedAt > sinceTimestamp (empty string means no
	// filter).
	ListEntries(ctx context.Context, dateLowerBound, sinceTimestamp string) ([]Entry, error)

	// ListDeletedTrackerIDsSince returns ids of tombstones whose
	// lastModifiedAt > timestamp.
	ListDeletedTrackerIDsSince(ctx context.Context, timestamp string) ([]string, error)

	GetSyncMetadata(ctx context.Context) (string, bool, error)
	SetSyncMetadata(ctx context.Context, timestamp string) error

	AppendConflictRecord(ctx context.Context, rec ConflictRecord) error
	// ListConflicts returns unresolved conflict records for a client
	// (records with no resolved_at). See DESIGN.md: structurally always
	// empty.
	ListConflicts(ctx context.Context, clientID string) ([]ConflictRecord, error)

	UpsertClient(ctx context.Context, c Client) error
	GetClient(ctx context.Context, id string) (Client, bool, error)

	Health(ctx context.Context) error
	Close() error
}

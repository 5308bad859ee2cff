// Package sqlite implements core.Store against an embedded SQLite
// database file, for the Lite deployment profile.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	_ "modernc.org/sqlite"

	"github.com/vitaliisemenov/journal-sync/internal/core"
	"github.com/vitaliisemenov/journal-sync/internal/storage"
)

const schema = `
CREATE TABLE IF NOT EXISTS clients (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	first_seen_at TEXT NOT NULL,
	last_seen_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS meta_sync (
	id INTEGER PRIMARY KEY CHECK (id = 1),
	last_modified TEXT
);

CREATE TABLE IF NOT EXISTS trackers (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	category TEXT NOT NULL DEFAULT '',
	type TEXT NOT NULL,
	deleted INTEGER NOT NULL DEFAULT 0,
	version INTEGER NOT NULL,
	last_modified_by TEXT NOT NULL,
	last_modified_at TEXT NOT NULL,
	extra TEXT NOT NULL DEFAULT '{}'
);
CREATE INDEX IF NOT EXISTS idx_trackers_name ON trackers(name);
CREATE INDEX IF NOT EXISTS idx_trackers_last_modified_at ON trackers(last_modified_at);

CREATE TABLE IF NOT EXISTS entries (
	date TEXT NOT NULL,
	tracker_id TEXT NOT NULL,
	value REAL,
	completed INTEGER,
	version INTEGER NOT NULL,
	last_modified_by TEXT NOT NULL,
	last_modified_at TEXT NOT NULL,
	extra TEXT NOT NULL DEFAULT '{}',
	PRIMARY KEY (date, tracker_id)
);
CREATE INDEX IF NOT EXISTS idx_entries_date ON entries(date);
CREATE INDEX IF NOT EXISTS idx_entries_last_modified_at ON entries(last_modified_at);

CREATE TABLE IF NOT EXISTS sync_conflicts (
	entity_type TEXT NOT NULL,
	entity_id TEXT NOT NULL,
	resolution TEXT NOT NULL,
	client_id TEXT NOT NULL,
	resolved_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_sync_conflicts_resolved_at ON sync_conflicts(resolved_at);
`

const trackerCacheSize = 512

// Storage implements core.Store against a single-file SQLite database.
type Storage struct {
	db     *sql.DB
	logger *slog.Logger
	path   string
	mu     sync.RWMutex

	trackerCache *lru.Cache[string, core.Tracker]
}

// New opens (creating if needed) a SQLite database at path and
// initializes the schema. path must not contain ".." and must not fall
// under a handful of forbidden system prefixes.
func New(ctx context.Context, path string, logger *slog.Logger) (*Storage, error) {
	if logger == nil {
		logger = slog.Default()
	}

	if err := validatePath(path); err != nil {
		return nil, err
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, &storage.ErrStorageInitFailed{Backend: "sqlite", Cause: err}
		}
	}

	dsn := fmt.Sprintf("file:%s?cache=shared&mode=rwc&_journal_mode=WAL", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, &storage.ErrConnectionFailed{Backend: "sqlite", Cause: err}
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)
	db.SetConnMaxIdleTime(10 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		return nil, &storage.ErrConnectionFailed{Backend: "sqlite", Cause: err}
	}

	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		return nil, &storage.ErrSchemaInitFailed{Backend: "sqlite", Cause: err}
	}

	if _, err := db.ExecContext(ctx, schema); err != nil {
		return nil, &storage.ErrSchemaInitFailed{Backend: "sqlite", Cause: err}
	}

	if err := os.Chmod(path, 0o600); err != nil {
		logger.Warn("failed to harden sqlite file permissions", "path", path, "error", err)
	}

	cache, err := lru.New[string, core.Tracker](trackerCacheSize)
	if err != nil {
		return nil, fmt.Errorf("create tracker cache: %w", err)
	}

	return &Storage{db: db, logger: logger, path: path, trackerCache: cache}, nil
}

func validatePath(path string) error {
	if path == "" {
		return &storage.ErrInvalidFilePath{Path: path, Reason: "empty path"}
	}
	if strings.Contains(path, "..") {
		return &storage.ErrInvalidFilePath{Path: path, Reason: "contains '..'"}
	}
	for _, forbidden := range []string{"/etc", "/sys", "/proc", "/dev"} {
		if strings.HasPrefix(path, forbidden) {
			return &storage.ErrInvalidFilePath{Path: path, Reason: "forbidden prefix " + forbidden}
		}
	}
	return nil
}

// GetFileSize returns the current database file size in bytes, or 0 if
// it cannot be stat'd.
func (s *Storage) GetFileSize() int64 {
	info, err := os.Stat(s.path)
	if err != nil {
		return 0
	}
	return info.Size()
}

// GetPath returns the database file path.
func (s *Storage) GetPath() string { return s.path }

func (s *Storage) record(op string, start time.Time, err error) {
	status := "success"
	if err != nil {
		status = "error"
		storage.RecordError(op, "sqlite", storage.ClassifyError(err))
	}
	storage.RecordOperation(op, "sqlite", status)
	storage.RecordOperationDuration(op, "sqlite", time.Since(start).Seconds())
}

// GetTracker implements core.Store.
func (s *Storage) GetTracker(ctx context.Context, id string) (core.Tracker, bool, error) {
	start := time.Now()
	defer func() { s.record("get_tracker", start, nil) }()

	if t, ok := s.trackerCache.Get(id); ok {
		return t, true, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, category, type, deleted, version, last_modified_by, last_modified_at, extra
		FROM trackers WHERE id = ?`, id)

	t, err := scanTracker(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Tracker{}, false, nil
	}
	if err != nil {
		return core.Tracker{}, false, fmt.Errorf("get tracker: %w", err)
	}

	s.trackerCache.Add(id, t)
	return t, true, nil
}

// PutTracker implements core.Store.
func (s *Storage) PutTracker(ctx context.Context, t core.Tracker) error {
	start := time.Now()
	var err error
	defer func() { s.record("put_tracker", start, err) }()

	s.mu.Lock()
	defer s.mu.Unlock()

	extra, mErr := json.Marshal(t.Extra)
	if mErr != nil {
		err = fmt.Errorf("marshal tracker extra: %w", mErr)
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO trackers (id, name, category, type, deleted, version, last_modified_by, last_modified_at, extra)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			category = excluded.category,
			type = excluded.type,
			deleted = excluded.deleted,
			version = excluded.version,
			last_modified_by = excluded.last_modified_by,
			last_modified_at = excluded.last_modified_at,
			extra = excluded.extra`,
		t.ID, t.Name, t.Category, t.Type, boolToInt(t.Deleted), t.Version, t.LastModifiedBy, t.LastModifiedAt, string(extra))
	if err != nil {
		err = fmt.Errorf("put tracker: %w", err)
		return err
	}

	s.trackerCache.Add(t.ID, t)
	return nil
}

// GetEntry implements core.Store.
func (s *Storage) GetEntry(ctx context.Context, date, trackerID string) (core.Entry, bool, error) {
	start := time.Now()
	defer func() { s.record("get_entry", start, nil) }()

	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, `
		SELECT date, tracker_id, value, completed, version, last_modified_by, last_modified_at, extra
		FROM entries WHERE date = ? AND tracker_id = ?`, date, trackerID)

	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Entry{}, false, nil
	}
	if err != nil {
		return core.Entry{}, false, fmt.Errorf("get entry: %w", err)
	}
	return e, true, nil
}

// PutEntry implements core.Store.
func (s *Storage) PutEntry(ctx context.Context, e core.Entry) error {
	start := time.Now()
	var err error
	defer func() { s.record("put_entry", start, err) }()

	s.mu.Lock()
	defer s.mu.Unlock()

	extra, mErr := json.Marshal(e.Extra)
	if mErr != nil {
		err = fmt.Errorf("marshal entry extra: %w", mErr)
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO entries (date, tracker_id, value, completed, version, last_modified_by, last_modified_at, extra)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(date, tracker_id) DO UPDATE SET
			value = excluded.value,
			completed = excluded.completed,
			version = excluded.version,
			last_modified_by = excluded.last_modified_by,
			last_modified_at = excluded.last_modified_at,
			extra = excluded.extra`,
		e.Date, e.TrackerID, e.Value, nullableBool(e.Completed), e.Version, e.LastModifiedBy, e.LastModifiedAt, string(extra))
	if err != nil {
		err = fmt.Errorf("put entry: %w", err)
	}
	return err
}

// ListTrackers implements core.Store.
func (s *Storage) ListTrackers(ctx context.Context, includeDeleted bool, since string) ([]core.Tracker, error) {
	start := time.Now()
	var err error
	defer func() { s.record("list_trackers", start, err) }()

	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `SELECT id, name, category, type, deleted, version, last_modified_by, last_modified_at, extra FROM trackers WHERE 1=1`
	var args []any
	if !includeDeleted {
		query += " AND deleted = 0"
	}
	if since != "" {
		query += " AND last_modified_at > ?"
		args = append(args, since)
	}

	rows, qErr := s.db.QueryContext(ctx, query, args...)
	if qErr != nil {
		err = fmt.Errorf("list trackers: %w", qErr)
		return nil, err
	}
	defer rows.Close()

	var out []core.Tracker
	for rows.Next() {
		t, sErr := scanTracker(rows)
		if sErr != nil {
			err = fmt.Errorf("scan tracker: %w", sErr)
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// ListEntries implements core.Store.
func (s *Storage) ListEntries(ctx context.Context, dateLowerBound, since string) ([]core.Entry, error) {
	start := time.Now()
	var err error
	defer func() { s.record("list_entries", start, err) }()

	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `SELECT date, tracker_id, value, completed, version, last_modified_by, last_modified_at, extra FROM entries WHERE date >= ?`
	args := []any{dateLowerBound}
	if since != "" {
		query += " AND last_modified_at > ?"
		args = append(args, since)
	}

	rows, qErr := s.db.QueryContext(ctx, query, args...)
	if qErr != nil {
		err = fmt.Errorf("list entries: %w", qErr)
		return nil, err
	}
	defer rows.Close()

	var out []core.Entry
	for rows.Next() {
		e, sErr := scanEntry(rows)
		if sErr != nil {
			err = fmt.Errorf("scan entry: %w", sErr)
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// ListDeletedTrackerIDsSince implements core.Store.
func (s *Storage) ListDeletedTrackerIDsSince(ctx context.Context, since string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT id FROM trackers WHERE deleted = 1 AND last_modified_at > ?`, since)
	if err != nil {
		return nil, fmt.Errorf("list deleted tracker ids: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan deleted tracker id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// GetSyncMetadata implements core.Store.
func (s *Storage) GetSyncMetadata(ctx context.Context) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var lastModified sql.NullString
	err := s.db.QueryRowContext(ctx, `SELECT last_modified FROM meta_sync WHERE id = 1`).Scan(&lastModified)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get sync metadata: %w", err)
	}
	if !lastModified.Valid {
		return "", false, nil
	}
	return lastModified.String, true, nil
}

// SetSyncMetadata implements core.Store.
func (s *Storage) SetSyncMetadata(ctx context.Context, timestamp string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO meta_sync (id, last_modified) VALUES (1, ?)
		ON CONFLICT(id) DO UPDATE SET last_modified = excluded.last_modified`, timestamp)
	if err != nil {
		return fmt.Errorf("set sync metadata: %w", err)
	}
	return nil
}

// AppendConflictRecord implements core.Store.
func (s *Storage) AppendConflictRecord(ctx context.Context, rec core.ConflictRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sync_conflicts (entity_type, entity_id, resolution, client_id, resolved_at)
		VALUES (?, ?, ?, ?, ?)`,
		rec.EntityType, rec.EntityID, string(rec.Resolution), rec.ClientID, rec.ResolvedAt)
	if err != nil {
		return fmt.Errorf("append conflict record: %w", err)
	}
	return nil
}

// ListConflicts implements core.Store. Structurally always empty: see
// DESIGN.md — resolution rows are always written with resolved_at set.
func (s *Storage) ListConflicts(ctx context.Context, clientID string) ([]core.ConflictRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT entity_type, entity_id, resolution, client_id, resolved_at
		FROM sync_conflicts WHERE client_id = ? AND (resolved_at IS NULL OR resolved_at = '')`, clientID)
	if err != nil {
		return nil, fmt.Errorf("list conflicts: %w", err)
	}
	defer rows.Close()

	var out []core.ConflictRecord
	for rows.Next() {
		var rec core.ConflictRecord
		var resolution string
		if err := rows.Scan(&rec.EntityType, &rec.EntityID, &resolution, &rec.ClientID, &rec.ResolvedAt); err != nil {
			return nil, fmt.Errorf("scan conflict record: %w", err)
		}
		rec.Resolution = core.ConflictResolution(resolution)
		out = append(out, rec)
	}
	return out, rows.Err()
}

// UpsertClient implements core.Store.
func (s *Storage) UpsertClient(ctx context.Context, c core.Client) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO clients (id, name, first_seen_at, last_seen_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET last_seen_at = excluded.last_seen_at`,
		c.ID, c.Name, c.FirstSeenAt, c.LastSeenAt)
	if err != nil {
		return fmt.Errorf("upsert client: %w", err)
	}
	return nil
}

// GetClient implements core.Store.
func (s *Storage) GetClient(ctx context.Context, id string) (core.Client, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var c core.Client
	err := s.db.QueryRowContext(ctx, `SELECT id, name, first_seen_at, last_seen_at FROM clients WHERE id = ?`, id).
		Scan(&c.ID, &c.Name, &c.FirstSeenAt, &c.LastSeenAt)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Client{}, false, nil
	}
	if err != nil {
		return core.Client{}, false, fmt.Errorf("get client: %w", err)
	}
	return c, true, nil
}

// Health implements core.Store.
func (s *Storage) Health(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		storage.SetHealthStatus("sqlite", 0)
		return fmt.Errorf("sqlite health check: %w", err)
	}
	storage.SetHealthStatus("sqlite", 1)
	return nil
}

// Close implements core.Store. Idempotent.
func (s *Storage) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTracker(row rowScanner) (core.Tracker, error) {
	var t core.Tracker
	var deleted int
	var extraJSON string
	if err := row.Scan(&t.ID, &t.Name, &t.Category, &t.Type, &deleted, &t.Version, &t.LastModifiedBy, &t.LastModifiedAt, &extraJSON); err != nil {
		return core.Tracker{}, err
	}
	t.Deleted = deleted != 0
	t.Extra = map[string]any{}
	if extraJSON != "" {
		if err := json.Unmarshal([]byte(extraJSON), &t.Extra); err != nil {
			return core.Tracker{}, fmt.Errorf("unmarshal tracker extra: %w", err)
		}
	}
	return t, nil
}

func scanEntry(row rowScanner) (core.Entry, error) {
	var e core.Entry
	var value sql.NullFloat64
	var completed sql.NullInt64
	var extraJSON string
	if err := row.Scan(&e.Date, &e.TrackerID, &value, &completed, &e.Version, &e.LastModifiedBy, &e.LastModifiedAt, &extraJSON); err != nil {
		return core.Entry{}, err
	}
	if value.Valid {
		v := value.Float64
		e.Value = &v
	}
	if completed.Valid {
		c := completed.Int64 != 0
		e.Completed = &c
	}
	e.Extra = map[string]any{}
	if extraJSON != "" {
		if err := json.Unmarshal([]byte(extraJSON), &e.Extra); err != nil {
			return core.Entry{}, fmt.Errorf("unmarshal entry extra: %w", err)
		}
	}
	return e, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullableBool(b *bool) any {
	if b == nil {
		return nil
	}
	return boolToInt(*b)
}

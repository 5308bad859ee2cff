// Package postgres implements core.Store against PostgreSQL, for the
// Standard deployment profile. It consumes the connection pool built by
// internal/database/postgres rather than opening its own connections.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/vitaliisemenov/journal-sync/internal/core"
	dbpostgres "github.com/vitaliisemenov/journal-sync/internal/database/postgres"
	"github.com/vitaliisemenov/journal-sync/internal/storage"
)

// Storage implements core.Store over a pooled PostgreSQL connection.
type Storage struct {
	conn dbpostgres.DatabaseConnection
}

// New wraps an already-connected DatabaseConnection as a core.Store.
func New(conn dbpostgres.DatabaseConnection) *Storage {
	return &Storage{conn: conn}
}

func (s *Storage) record(op string, start time.Time, err error) {
	status := "success"
	if err != nil {
		status = "error"
		storage.RecordError(op, "postgres", storage.ClassifyError(err))
	}
	storage.RecordOperation(op, "postgres", status)
	storage.RecordOperationDuration(op, "postgres", time.Since(start).Seconds())
}

// GetTracker implements core.Store.
func (s *Storage) GetTracker(ctx context.Context, id string) (core.Tracker, bool, error) {
	start := time.Now()
	row := s.conn.QueryRow(ctx, `
		SELECT id, name, category, type, deleted, version, last_modified_by, last_modified_at, extra
		FROM trackers WHERE id = $1`, id)

	t, err := scanTracker(row)
	if errors.Is(err, pgx.ErrNoRows) {
		s.record("get_tracker", start, nil)
		return core.Tracker{}, false, nil
	}
	s.record("get_tracker", start, err)
	if err != nil {
		return core.Tracker{}, false, fmt.Errorf("get tracker: %w", err)
	}
	return t, true, nil
}

// PutTracker implements core.Store.
func (s *Storage) PutTracker(ctx context.Context, t core.Tracker) error {
	start := time.Now()
	extra, err := json.Marshal(t.Extra)
	if err != nil {
		err = fmt.Errorf("marshal tracker extra: %w", err)
		s.record("put_tracker", start, err)
		return err
	}

	_, err = s.conn.Exec(ctx, `
		INSERT INTO trackers (id, name, category, type, deleted, version, last_modified_by, last_modified_at, extra)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			name = excluded.name, category = excluded.category, type = excluded.type,
			deleted = excluded.deleted, version = excluded.version,
			last_modified_by = excluded.last_modified_by, last_modified_at = excluded.last_modified_at,
			extra = excluded.extra`,
		t.ID, t.Name, t.Category, t.Type, t.Deleted, t.Version, t.LastModifiedBy, t.LastModifiedAt, extra)
	if err != nil {
		err = fmt.Errorf("put tracker: %w", err)
	}
	s.record("put_tracker", start, err)
	return err
}

// GetEntry implements core.Store.
func (s *Storage) GetEntry(ctx context.Context, date, trackerID string) (core.Entry, bool, error) {
	start := time.Now()
	row := s.conn.QueryRow(ctx, `
		SELECT date, tracker_id, value, completed, version, last_modified_by, last_modified_at, extra
		FROM entries WHERE date = $1 AND tracker_id = $2`, date, trackerID)

	e, err := scanEntry(row)
	if errors.Is(err, pgx.ErrNoRows) {
		s.record("get_entry", start, nil)
		return core.Entry{}, false, nil
	}
	s.record("get_entry", start, err)
	if err != nil {
		return core.Entry{}, false, fmt.Errorf("get entry: %w", err)
	}
	return e, true, nil
}

// PutEntry implements core.Store.
func (s *Storage) PutEntry(ctx context.Context, e core.Entry) error {
	start := time.Now()
	extra, err := json.Marshal(e.Extra)
	if err != nil {
		err = fmt.Errorf("marshal entry extra: %w", err)
		s.record("put_entry", start, err)
		return err
	}

	_, err = s.conn.Exec(ctx, `
		INSERT INTO entries (date, tracker_id, value, completed, version, last_modified_by, last_modified_at, extra)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (date, tracker_id) DO UPDATE SET
			value = excluded.value, completed = excluded.completed, version = excluded.version,
			last_modified_by = excluded.last_modified_by, last_modified_at = excluded.last_modified_at,
			extra = excluded.extra`,
		e.Date, e.TrackerID, e.Value, e.Completed, e.Version, e.LastModifiedBy, e.LastModifiedAt, extra)
	if err != nil {
		err = fmt.Errorf("put entry: %w", err)
	}
	s.record("put_entry", start, err)
	return err
}

// ListTrackers implements core.Store.
func (s *Storage) ListTrackers(ctx context.Context, includeDeleted bool, since string) ([]core.Tracker, error) {
	start := time.Now()
	query := `SELECT id, name, category, type, deleted, version, last_modified_by, last_modified_at, extra FROM trackers WHERE 1=1`
	var args []any
	if !includeDeleted {
		query += " AND deleted = false"
	}
	if since != "" {
		args = append(args, since)
		query += fmt.Sprintf(" AND last_modified_at > $%d", len(args))
	}

	rows, err := s.conn.Query(ctx, query, args...)
	if err != nil {
		err = fmt.Errorf("list trackers: %w", err)
		s.record("list_trackers", start, err)
		return nil, err
	}
	defer rows.Close()

	var out []core.Tracker
	for rows.Next() {
		t, sErr := scanTracker(rows)
		if sErr != nil {
			s.record("list_trackers", start, sErr)
			return nil, fmt.Errorf("scan tracker: %w", sErr)
		}
		out = append(out, t)
	}
	s.record("list_trackers", start, rows.Err())
	return out, rows.Err()
}

// ListEntries implements core.Store.
func (s *Storage) ListEntries(ctx context.Context, dateLowerBound, since string) ([]core.Entry, error) {
	start := time.Now()
	args := []any{dateLowerBound}
	query := `SELECT date, tracker_id, value, completed, version, last_modified_by, last_modified_at, extra FROM entries WHERE date >= $1`
	if since != "" {
		args = append(args, since)
		query += fmt.Sprintf(" AND last_modified_at > $%d", len(args))
	}

	rows, err := s.conn.Query(ctx, query, args...)
	if err != nil {
		err = fmt.Errorf("list entries: %w", err)
		s.record("list_entries", start, err)
		return nil, err
	}
	defer rows.Close()

	var out []core.Entry
	for rows.Next() {
		e, sErr := scanEntry(rows)
		if sErr != nil {
			s.record("list_entries", start, sErr)
			return nil, fmt.Errorf("scan entry: %w", sErr)
		}
		out = append(out, e)
	}
	s.record("list_entries", start, rows.Err())
	return out, rows.Err()
}

// ListDeletedTrackerIDsSince implements core.Store.
func (s *Storage) ListDeletedTrackerIDsSince(ctx context.Context, since string) ([]string, error) {
	rows, err := s.conn.Query(ctx, `SELECT id FROM trackers WHERE deleted = true AND last_modified_at > $1`, since)
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
	var lastModified *string
	err := s.conn.QueryRow(ctx, `SELECT last_modified FROM meta_sync WHERE id = 1`).Scan(&lastModified)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get sync metadata: %w", err)
	}
	if lastModified == nil {
		return "", false, nil
	}
	return *lastModified, true, nil
}

// SetSyncMetadata implements core.Store.
func (s *Storage) SetSyncMetadata(ctx context.Context, timestamp string) error {
	_, err := s.conn.Exec(ctx, `
		INSERT INTO meta_sync (id, last_modified) VALUES (1, $1)
		ON CONFLICT (id) DO UPDATE SET last_modified = excluded.last_modified`, timestamp)
	if err != nil {
		return fmt.Errorf("set sync metadata: %w", err)
	}
	return nil
}

// AppendConflictRecord implements core.Store.
func (s *Storage) AppendConflictRecord(ctx context.Context, rec core.ConflictRecord) error {
	_, err := s.conn.Exec(ctx, `
		INSERT INTO sync_conflicts (entity_type, entity_id, resolution, client_id, resolved_at)
		VALUES ($1, $2, $3, $4, $5)`,
		rec.EntityType, rec.EntityID, string(rec.Resolution), rec.ClientID, rec.ResolvedAt)
	if err != nil {
		return fmt.Errorf("append conflict record: %w", err)
	}
	return nil
}

// ListConflicts implements core.Store.
func (s *Storage) ListConflicts(ctx context.Context, clientID string) ([]core.ConflictRecord, error) {
	rows, err := s.conn.Query(ctx, `
		SELECT entity_type, entity_id, resolution, client_id, resolved_at
		FROM sync_conflicts WHERE client_id = $1 AND resolved_at IS NULL`, clientID)
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
	_, err := s.conn.Exec(ctx, `
		INSERT INTO clients (id, name, first_seen_at, last_seen_at) VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET last_seen_at = excluded.last_seen_at`,
		c.ID, c.Name, c.FirstSeenAt, c.LastSeenAt)
	if err != nil {
		return fmt.Errorf("upsert client: %w", err)
	}
	return nil
}

// GetClient implements core.Store.
func (s *Storage) GetClient(ctx context.Context, id string) (core.Client, bool, error) {
	var c core.Client
	err := s.conn.QueryRow(ctx, `SELECT id, name, first_seen_at, last_seen_at FROM clients WHERE id = $1`, id).
		Scan(&c.ID, &c.Name, &c.FirstSeenAt, &c.LastSeenAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return core.Client{}, false, nil
	}
	if err != nil {
		return core.Client{}, false, fmt.Errorf("get client: %w", err)
	}
	return c, true, nil
}

// Health implements core.Store.
func (s *Storage) Health(ctx context.Context) error {
	if err := s.conn.Health(ctx); err != nil {
		storage.SetHealthStatus("postgres", 0)
		return fmt.Errorf("postgres health check: %w", err)
	}
	storage.SetHealthStatus("postgres", 1)
	return nil
}

// Close implements core.Store.
func (s *Storage) Close() error {
	return s.conn.Disconnect(context.Background())
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTracker(row rowScanner) (core.Tracker, error) {
	var t core.Tracker
	var extra []byte
	if err := row.Scan(&t.ID, &t.Name, &t.Category, &t.Type, &t.Deleted, &t.Version, &t.LastModifiedBy, &t.LastModifiedAt, &extra); err != nil {
		return core.Tracker{}, err
	}
	t.Extra = map[string]any{}
	if len(extra) > 0 {
		if err := json.Unmarshal(extra, &t.Extra); err != nil {
			return core.Tracker{}, fmt.Errorf("unmarshal tracker extra: %w", err)
		}
	}
	return t, nil
}

func scanEntry(row rowScanner) (core.Entry, error) {
	var e core.Entry
	var extra []byte
	if err := row.Scan(&e.Date, &e.TrackerID, &e.Value, &e.Completed, &e.Version, &e.LastModifiedBy, &e.LastModifiedAt, &extra); err != nil {
		return core.Entry{}, err
	}
	e.Extra = map[string]any{}
	if len(extra) > 0 {
		if err := json.Unmarshal(extra, &e.Extra); err != nil {
			return core.Entry{}, fmt.Errorf("unmarshal entry extra: %w", err)
		}
	}
	return e, nil
}

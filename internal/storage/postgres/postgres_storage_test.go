package postgres

import (
	"context"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/vitaliisemenov/journal-sync/internal/core"
	dbpostgres "github.com/vitaliisemenov/journal-sync/internal/database/postgres"
)

// newTestConnection connects against JOURNAL_SYNC_TEST_POSTGRES_* env
// vars when set. testcontainers-go was dropped from go.mod (see
// DESIGN.md), so these tests skip rather than spin up a throwaway
// Postgres instance, the same way the Redis lock tests skip without a
// real broker.
func newTestConnection(t *testing.T) dbpostgres.DatabaseConnection {
	t.Helper()
	host := os.Getenv("JOURNAL_SYNC_TEST_POSTGRES_HOST")
	if host == "" {
		t.Skip("JOURNAL_SYNC_TEST_POSTGRES_HOST not set, skipping postgres storage integration test")
	}

	port, _ := strconv.Atoi(os.Getenv("JOURNAL_SYNC_TEST_POSTGRES_PORT"))
	if port == 0 {
		port = 5432
	}

	cfg := dbpostgres.DefaultConfig()
	cfg.Host = host
	cfg.Port = port
	cfg.Database = envOr("JOURNAL_SYNC_TEST_POSTGRES_DB", "journal_sync_test")
	cfg.User = envOr("JOURNAL_SYNC_TEST_POSTGRES_USER", "postgres")
	cfg.Password = os.Getenv("JOURNAL_SYNC_TEST_POSTGRES_PASSWORD")
	cfg.SSLMode = "disable"

	pool := dbpostgres.NewPostgresPool(cfg, nil)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := pool.Connect(ctx); err != nil {
		t.Skipf("could not reach test postgres: %v", err)
	}
	t.Cleanup(func() { _ = pool.Disconnect(context.Background()) })
	return pool
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func TestStorage_TrackerRoundTrip(t *testing.T) {
	conn := newTestConnection(t)
	s := New(conn)
	ctx := context.Background()

	tracker := core.Tracker{
		ID:              "pg-t1",
		Name:            "Steps",
		Category:        "health",
		Type:            core.TrackerTypeQuantifiable,
		VersionEnvelope: core.VersionEnvelope{Version: 1, LastModifiedBy: "device-a", LastModifiedAt: "2026-07-30T00:00:00Z"},
		Extra:           map[string]any{"unit": "steps"},
	}
	require.NoError(t, s.PutTracker(ctx, tracker))

	got, exists, err := s.GetTracker(ctx, "pg-t1")
	require.NoError(t, err)
	require.True(t, exists)
	require.Equal(t, "Steps", got.Name)
	require.Equal(t, "steps", got.Extra["unit"])
}

func TestStorage_EntryRoundTrip(t *testing.T) {
	conn := newTestConnection(t)
	s := New(conn)
	ctx := context.Background()

	value := 2.0
	entry := core.Entry{
		Date:            "2026-07-30",
		TrackerID:       "pg-t1",
		Value:           &value,
		VersionEnvelope: core.VersionEnvelope{Version: 1, LastModifiedBy: "device-a", LastModifiedAt: "2026-07-30T00:00:00Z"},
	}
	require.NoError(t, s.PutEntry(ctx, entry))

	got, exists, err := s.GetEntry(ctx, "2026-07-30", "pg-t1")
	require.NoError(t, err)
	require.True(t, exists)
	require.NotNil(t, got.Value)
	require.Equal(t, 2.0, *got.Value)
}

func TestStorage_Health(t *testing.T) {
	conn := newTestConnection(t)
	s := New(conn)
	require.NoError(t, s.Health(context.Background()))
}

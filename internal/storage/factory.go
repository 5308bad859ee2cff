package storage

import (
	"context"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/vitaliisemenov/journal-sync/internal/config"
	"github.com/vitaliisemenov/journal-sync/internal/core"
	"github.com/vitaliisemenov/journal-sync/internal/database"
	dbpostgres "github.com/vitaliisemenov/journal-sync/internal/database/postgres"
	"github.com/vitaliisemenov/journal-sync/internal/lock"
	"github.com/vitaliisemenov/journal-sync/internal/storage/memory"
	pgstorage "github.com/vitaliisemenov/journal-sync/internal/storage/postgres"
	"github.com/vitaliisemenov/journal-sync/internal/storage/sqlite"
)

// Backend constructs a Store and a matching Locker for the configured
// deployment profile.
type Backend struct {
	Store  core.Store
	Locker lock.Locker
	// Close releases any resources (connection pools, redis clients)
	// the backend opened. nil if there is nothing to close beyond the
	// Store itself.
	Close func() error
}

// NewBackend selects and constructs storage + locking per cfg.Profile.
// Falls back to in-memory storage with a logged warning if the
// configured backend fails to initialize.
func NewBackend(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Backend, error) {
	switch cfg.Profile {
	case config.ProfileLite:
		return newLiteBackend(ctx, cfg, logger)
	case config.ProfileStandard:
		return newStandardBackend(ctx, cfg, logger)
	default:
		return nil, &ErrInvalidProfile{Profile: string(cfg.Profile)}
	}
}

func newLiteBackend(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Backend, error) {
	store, err := sqlite.New(ctx, cfg.Storage.FilesystemPath, logger)
	if err != nil {
		logger.Error("sqlite storage init failed, falling back to in-memory storage",
			"error", err, "path", cfg.Storage.FilesystemPath)
		SetBackendType("memory", 0)
		SetHealthStatus("sqlite", 0)
		mem := memory.New(logger)
		return &Backend{Store: mem, Locker: lock.NewMutexLock(), Close: mem.Close}, nil
	}

	SetBackendType("sqlite", 1)
	return &Backend{
		Store:  store,
		Locker: lock.NewMutexLock(),
		Close:  store.Close,
	}, nil
}

func newStandardBackend(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Backend, error) {
	pgCfg := &dbpostgres.PostgresConfig{
		Host:              cfg.Database.Host,
		Port:              cfg.Database.Port,
		Database:          cfg.Database.Database,
		User:              cfg.Database.Username,
		Password:          cfg.Database.Password,
		SSLMode:           cfg.Database.SSLMode,
		MaxConns:          int32(cfg.Database.MaxConnections),
		MinConns:          int32(cfg.Database.MinConnections),
		MaxConnLifetime:   cfg.Database.MaxConnLifetime,
		MaxConnIdleTime:   cfg.Database.MaxConnIdleTime,
		HealthCheckPeriod: 30 * time.Second,
		ConnectTimeout:    cfg.Database.ConnectTimeout,
	}

	pool := dbpostgres.NewPostgresPool(pgCfg, logger)
	if err := pool.Connect(ctx); err != nil {
		logger.Error("postgres connection failed, falling back to in-memory storage", "error", err)
		SetBackendType("memory", 0)
		SetHealthStatus("postgres", 0)
		mem := memory.New(logger)
		return &Backend{Store: mem, Locker: lock.NewMutexLock(), Close: mem.Close}, nil
	}

	if err := database.RunMigrations(ctx, pool, logger); err != nil {
		logger.Error("database migrations failed", "error", err)
		logger.Warn("continuing without migrations; schema may be out of date")
	}

	store := pgstorage.New(pool)
	SetBackendType("postgres", 2)

	locker, closeLocker := newStandardLocker(cfg, logger)

	return &Backend{
		Store:  store,
		Locker: locker,
		Close: func() error {
			if closeLocker != nil {
				_ = closeLocker()
			}
			return store.Close()
		},
	}, nil
}

// newStandardLocker builds a RedisLock when Redis is configured,
// falling back to MutexLock with a logged warning otherwise (per the
// deployment-profile lock decision in DESIGN.md): single-instance
// Postgres deployments still work, just without cross-instance
// protection.
func newStandardLocker(cfg *config.Config, logger *slog.Logger) (lock.Locker, func() error) {
	if cfg.Redis.Addr == "" {
		logger.Warn("standard profile running without redis: write lock is process-local only")
		return lock.NewMutexLock(), nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Redis.Addr,
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.DB,
		PoolSize:     cfg.Redis.PoolSize,
		MinIdleConns: cfg.Redis.MinIdleConns,
		DialTimeout:  cfg.Redis.DialTimeout,
		ReadTimeout:  cfg.Redis.ReadTimeout,
		WriteTimeout: cfg.Redis.WriteTimeout,
		MaxRetries:   cfg.Redis.MaxRetries,
	})

	lockCfg := lock.RedisLockConfig{
		TTL:            cfg.Lock.TTL,
		MaxRetries:     cfg.Lock.MaxRetries,
		RetryInterval:  cfg.Lock.RetryInterval,
		AcquireTimeout: cfg.Lock.AcquireTimeout,
		ReleaseTimeout: cfg.Lock.ReleaseTimeout,
		ValuePrefix:    cfg.Lock.ValuePrefix,
	}

	return lock.NewRedisLock(client, lockCfg, logger), client.Close
}

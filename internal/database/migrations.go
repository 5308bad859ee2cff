package database

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"log/slog"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/vitaliisemenov/journal-sync/internal/database/postgres"
)

//go:embed migrations/postgres/*.sql
var postgresMigrations embed.FS

const postgresMigrationsDir = "migrations/postgres"

// RunMigrations applies all pending Postgres migrations. The Lite
// profile's SQLite storage initializes its own schema inline and never
// calls this; goose only manages the Standard profile's schema.
func RunMigrations(ctx context.Context, pool postgres.DatabaseConnection, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}

	logger.Info("starting database migrations")

	db, err := sqlDBFromPool(pool)
	if err != nil {
		return fmt.Errorf("create sql.DB from pool: %w", err)
	}
	defer db.Close()

	goose.SetBaseFS(postgresMigrations)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}

	if err := goose.Up(db, postgresMigrationsDir); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	logger.Info("database migrations completed")
	return nil
}

// RunMigrationsDown rolls back the given number of migration steps.
func RunMigrationsDown(ctx context.Context, pool postgres.DatabaseConnection, steps int, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}

	db, err := sqlDBFromPool(pool)
	if err != nil {
		return fmt.Errorf("create sql.DB from pool: %w", err)
	}
	defer db.Close()

	goose.SetBaseFS(postgresMigrations)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}

	for i := 0; i < steps; i++ {
		if err := goose.Down(db, postgresMigrationsDir); err != nil {
			return fmt.Errorf("rollback step %d: %w", i+1, err)
		}
	}

	logger.Info("database migration rollback completed", "steps", steps)
	return nil
}

// MigrationStatus prints the current migration status to the logger.
func MigrationStatus(ctx context.Context, pool postgres.DatabaseConnection, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}

	db, err := sqlDBFromPool(pool)
	if err != nil {
		return fmt.Errorf("create sql.DB from pool: %w", err)
	}
	defer db.Close()

	goose.SetBaseFS(postgresMigrations)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}

	return goose.Status(db, postgresMigrationsDir)
}

// sqlDBFromPool opens a database/sql connection alongside the pgx pool
// so goose (which drives migrations through database/sql) can run
// against the same database. Only *postgres.PostgresPool carries enough
// configuration to build the DSN.
func sqlDBFromPool(pool postgres.DatabaseConnection) (*sql.DB, error) {
	pgPool, ok := pool.(*postgres.PostgresPool)
	if !ok {
		return nil, fmt.Errorf("migrations require a *postgres.PostgresPool, got %T", pool)
	}

	cfg := pgPool.GetConfig()
	db, err := sql.Open("pgx", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("open sql.DB: %w", err)
	}

	db.SetMaxOpenConns(int(cfg.MaxConns))
	db.SetMaxIdleConns(int(cfg.MinConns))
	db.SetConnMaxLifetime(cfg.MaxConnLifetime)
	db.SetConnMaxIdleTime(cfg.MaxConnIdleTime)

	return db, nil
}

// Command migrate applies, rolls back, and reports the status of the
// Standard profile's Postgres schema. The Lite profile needs no
// migration tool: its SQLite storage initializes its own schema inline
// on open.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/vitaliisemenov/journal-sync/internal/config"
	"github.com/vitaliisemenov/journal-sync/internal/database"
	"github.com/vitaliisemenov/journal-sync/internal/database/postgres"
	"github.com/vitaliisemenov/journal-sync/pkg/logger"
)

var configPath string

func main() {
	root := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the journal-sync Postgres schema",
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to config file")

	root.AddCommand(upCommand(), downCommand(), statusCommand())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func upCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			pool, log, err := connect()
			if err != nil {
				return err
			}
			defer pool.Disconnect(context.Background())

			if err := database.RunMigrations(cmd.Context(), pool, log); err != nil {
				return err
			}
			fmt.Println("migrations applied")
			return nil
		},
	}
}

func downCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "down [steps]",
		Short: "Roll back migrations",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			steps := 1
			if len(args) == 1 {
				n, err := strconv.Atoi(args[0])
				if err != nil {
					return fmt.Errorf("invalid step count: %w", err)
				}
				steps = n
			}

			pool, log, err := connect()
			if err != nil {
				return err
			}
			defer pool.Disconnect(context.Background())

			if err := database.RunMigrationsDown(cmd.Context(), pool, steps, log); err != nil {
				return err
			}
			fmt.Printf("rolled back %d step(s)\n", steps)
			return nil
		},
	}
}

func statusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			pool, log, err := connect()
			if err != nil {
				return err
			}
			defer pool.Disconnect(context.Background())

			return database.MigrationStatus(cmd.Context(), pool, log)
		},
	}
}

func connect() (*postgres.PostgresPool, *slog.Logger, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}

	log := logger.NewLogger(logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})

	pgCfg := &postgres.PostgresConfig{
		Host:     cfg.Database.Host,
		Port:     cfg.Database.Port,
		Database: cfg.Database.Database,
		User:     cfg.Database.Username,
		Password: cfg.Database.Password,
		SSLMode:  cfg.Database.SSLMode,
		MaxConns: int32(cfg.Database.MaxConnections),
		MinConns: int32(cfg.Database.MinConnections),
	}

	pool := postgres.NewPostgresPool(pgCfg, log)
	if err := pool.Connect(context.Background()); err != nil {
		return nil, nil, fmt.Errorf("connect: %w", err)
	}

	return pool, log, nil
}

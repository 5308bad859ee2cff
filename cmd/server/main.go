// Package main is the entry point for the journal sync server.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/vitaliisemenov/journal-sync/internal/api"
	"github.com/vitaliisemenov/journal-sync/internal/api/handlers/sync"
	"github.com/vitaliisemenov/journal-sync/internal/config"
	"github.com/vitaliisemenov/journal-sync/internal/core"
	"github.com/vitaliisemenov/journal-sync/internal/storage"
	"github.com/vitaliisemenov/journal-sync/pkg/logger"
)

const serviceName = "journal-sync"

var serviceVersion = "1.0.0"

func main() {
	var (
		showVersion = flag.Bool("version", false, "Show version information")
		configPath  = flag.String("config", "", "Path to config file")
	)
	flag.Parse()

	if *showVersion {
		fmt.Printf("%s version %s\n", serviceName, serviceVersion)
		os.Exit(0)
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid config: %v\n", err)
		os.Exit(1)
	}

	log := logger.NewLogger(logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		Filename:   cfg.Log.Filename,
		MaxSize:    cfg.Log.MaxSize,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAge:     cfg.Log.MaxAge,
		Compress:   cfg.Log.Compress,
	})

	log.Info("starting journal sync server",
		"service", serviceName,
		"version", serviceVersion,
		"profile", cfg.GetProfileName(),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	backend, err := storage.NewBackend(ctx, cfg, log)
	if err != nil {
		log.Error("failed to initialize storage backend", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := backend.Close(); err != nil {
			log.Error("error closing storage backend", "error", err)
		}
	}()

	clock := core.NewSystemClock()
	engine := core.NewSyncEngine(backend.Store, clock, backend.Locker, log)
	assembler := core.NewDeltaAssembler(backend.Store, clock)
	resolver := core.NewResolutionHandler(backend.Store, clock)
	syncHandlers := sync.New(backend.Store, clock, engine, assembler, resolver, log)

	routerCfg := api.DefaultRouterConfig(log)
	routerCfg.Store = backend.Store
	routerCfg.Profile = cfg.GetProfileName()
	routerCfg.Backend = string(cfg.Storage.Backend)
	routerCfg.SyncHandlers = syncHandlers
	router := api.NewRouter(routerCfg)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Info("http server listening", "addr", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("http server failed", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	log.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.GracefulShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	log.Info("server exited cleanly")
}

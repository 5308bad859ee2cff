// Package api wires the HTTP transport for the journal sync protocol:
// middleware stack, route tree, and health/metrics endpoints.
package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/vitaliisemenov/journal-sync/internal/api/handlers/sync"
	"github.com/vitaliisemenov/journal-sync/internal/api/middleware"
	"github.com/vitaliisemenov/journal-sync/internal/core"
)

// RouterConfig holds router configuration.
type RouterConfig struct {
	EnableRateLimit   bool
	EnableCompression bool
	EnableCORS        bool
	EnableMetrics     bool

	RateLimitPerMinute int
	RateLimitBurst     int

	CORSConfig middleware.CORSConfig

	Logger *slog.Logger

	Store      core.Store
	Profile    string
	Backend    string
	SyncHandlers *sync.Handlers
}

// DefaultRouterConfig returns default router configuration.
func DefaultRouterConfig(logger *slog.Logger) RouterConfig {
	return RouterConfig{
		EnableRateLimit:    true,
		EnableCompression:  true,
		EnableCORS:         true,
		EnableMetrics:      true,
		RateLimitPerMinute: 120,
		RateLimitBurst:     30,
		CORSConfig:         middleware.DefaultCORSConfig(),
		Logger:             logger,
	}
}

// NewRouter creates the journal sync API router with all middleware
// configured.
//
// The middleware stack is applied in order:
//  1. RequestID (always)
//  2. Logging (always)
//  3. Metrics (if enabled)
//  4. CORS (if enabled)
//  5. Compression (if enabled)
//  6. Route-specific: RateLimit, Validation
//
// @title Journal Sync API
// @version 1.0.0
// @description Multi-device synchronization API for a personal journaling app
// @license.name MIT
// @BasePath /api/sync
// @schemes http https
func NewRouter(config RouterConfig) *mux.Router {
	router := mux.NewRouter()

	router.Use(middleware.RequestIDMiddleware)
	router.Use(middleware.LoggingMiddleware(config.Logger))

	if config.EnableMetrics {
		router.Use(middleware.MetricsMiddleware)
	}
	if config.EnableCORS {
		router.Use(middleware.CORSMiddleware(config.CORSConfig))
	}
	if config.EnableCompression {
		router.Use(middleware.CompressionMiddleware)
	}

	setupSyncRoutes(router, config)
	setupOperationalRoutes(router, config)
	setupDocumentationRoutes(router)

	return router
}

// setupSyncRoutes configures /api/sync/* routes.
func setupSyncRoutes(router *mux.Router, config RouterConfig) {
	sr := router.PathPrefix("/api/sync").Subrouter()

	if config.EnableRateLimit {
		sr.Use(middleware.RateLimitMiddleware(config.RateLimitPerMinute, config.RateLimitBurst))
	}
	sr.Use(middleware.ValidationMiddleware)

	h := config.SyncHandlers
	sr.HandleFunc("/register", h.Register).Methods(http.MethodPost)
	sr.HandleFunc("/status", h.Status).Methods(http.MethodGet)
	sr.HandleFunc("/full", h.Full).Methods(http.MethodGet)
	sr.HandleFunc("/delta", h.Delta).Methods(http.MethodGet)
	sr.HandleFunc("/update", h.Update).Methods(http.MethodPost)
	sr.HandleFunc("/resolve-conflict", h.ResolveConflict).Methods(http.MethodPost)
	sr.HandleFunc("/conflicts", h.Conflicts).Methods(http.MethodGet)
}

// setupOperationalRoutes configures /healthz and /metrics.
func setupOperationalRoutes(router *mux.Router, config RouterConfig) {
	router.HandleFunc("/healthz", HealthCheckHandler(config.Store, config.Profile, config.Backend)).Methods(http.MethodGet)
	router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
}

// setupDocumentationRoutes configures documentation routes.
func setupDocumentationRoutes(router *mux.Router) {
	router.PathPrefix("/api/sync/docs").Handler(httpSwagger.WrapHandler)
}

// HealthCheckHandler pings the Store and reports deployment profile and
// storage backend.
//
// @Summary Liveness and readiness check
// @Produce json
// @Success 200 {object} map[string]interface{} "Healthy"
// @Failure 503 {object} map[string]interface{} "Unhealthy"
// @Router /healthz [get]
func HealthCheckHandler(store core.Store, profile, backend string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := "healthy"
		code := http.StatusOK

		if err := store.Health(r.Context()); err != nil {
			status = "unhealthy"
			code = http.StatusServiceUnavailable
		}

		response := map[string]interface{}{
			"status":  status,
			"profile": profile,
			"backend": backend,
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		_ = json.NewEncoder(w).Encode(response)
	}
}

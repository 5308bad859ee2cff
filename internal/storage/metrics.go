package storage

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// StorageBackendType indicates the current storage backend type.
	// Values: 0 = memory (degraded), 1 = sqlite (lite), 2 = postgres (standard).
	StorageBackendType = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "journal_sync",
			Subsystem: "storage",
			Name:      "backend_type",
			Help:      "Current storage backend type (0=memory, 1=sqlite, 2=postgres)",
		},
		[]string{"backend"},
	)

	// StorageOperationsTotal counts storage operations by type, backend, and status.
	StorageOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "journal_sync",
			Subsystem: "storage",
			Name:      "operations_total",
			Help:      "Total storage operations by type, backend, status",
		},
		[]string{"operation", "backend", "status"},
	)

	// StorageOperationDuration tracks operation latency in seconds.
	StorageOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "journal_sync",
			Subsystem: "storage",
			Name:      "operation_duration_seconds",
			Help:      "Storage operation duration in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0},
		},
		[]string{"operation", "backend"},
	)

	// StorageErrorsTotal counts storage errors by operation, backend, and error type.
	StorageErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "journal_sync",
			Subsystem: "storage",
			Name:      "errors_total",
			Help:      "Total storage errors by operation, backend, error type",
		},
		[]string{"operation", "backend", "error_type"},
	)

	// SQLiteFileSizeBytes tracks the SQLite database file size (Lite profile only).
	SQLiteFileSizeBytes = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "journal_sync",
			Subsystem: "storage",
			Name:      "sqlite_file_size_bytes",
			Help:      "SQLite database file size in bytes (Lite profile only)",
		},
	)

	// StorageHealthStatus indicates storage health state.
	// Values: 0 = unhealthy, 1 = healthy, 2 = degraded (fallback to memory).
	StorageHealthStatus = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "journal_sync",
			Subsystem: "storage",
			Name:      "health_status",
			Help:      "Storage health status (0=unhealthy, 1=healthy, 2=degraded)",
		},
		[]string{"backend"},
	)

	// StorageConnections tracks connection pool statistics (Postgres only).
	StorageConnections = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "journal_sync",
			Subsystem: "storage",
			Name:      "connections",
			Help:      "Storage connection pool stats (Postgres only)",
		},
		[]string{"backend", "state"},
	)
)

// RecordOperation records a storage operation (success or error).
func RecordOperation(operation, backend, status string) {
	StorageOperationsTotal.WithLabelValues(operation, backend, status).Inc()
}

// RecordOperationDuration records operation latency in seconds.
func RecordOperationDuration(operation, backend string, seconds float64) {
	StorageOperationDuration.WithLabelValues(operation, backend).Observe(seconds)
}

// RecordError records a storage error with type classification.
func RecordError(operation, backend, errorType string) {
	StorageErrorsTotal.WithLabelValues(operation, backend, errorType).Inc()
}

// SetBackendType sets the active storage backend type gauge.
func SetBackendType(backend string, value float64) {
	StorageBackendType.WithLabelValues(backend).Set(value)
}

// SetHealthStatus sets the storage health status gauge.
func SetHealthStatus(backend string, status float64) {
	StorageHealthStatus.WithLabelValues(backend).Set(status)
}

// SetSQLiteFileSize sets the SQLite file size gauge.
func SetSQLiteFileSize(bytes int64) {
	SQLiteFileSizeBytes.Set(float64(bytes))
}

// SetConnectionStats sets connection pool stat gauges.
func SetConnectionStats(backend string, total, idle, inUse int32) {
	StorageConnections.WithLabelValues(backend, "total").Set(float64(total))
	StorageConnections.WithLabelValues(backend, "idle").Set(float64(idle))
	StorageConnections.WithLabelValues(backend, "in_use").Set(float64(inUse))
}

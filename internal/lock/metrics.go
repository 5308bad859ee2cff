package lock

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// LockAcquiresTotal counts write-lock acquisition attempts by outcome
// (success, contended, timeout).
var LockAcquiresTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "journal_sync",
		Subsystem: "lock",
		Name:      "acquires_total",
		Help:      "Write lock acquisition attempts by outcome",
	},
	[]string{"outcome"},
)

// LockHoldDuration tracks how long the write lock is held per batch.
var LockHoldDuration = promauto.NewHistogram(
	prometheus.HistogramOpts{
		Namespace: "journal_sync",
		Subsystem: "lock",
		Name:      "hold_duration_seconds",
		Help:      "Write lock hold duration in seconds",
		Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0},
	},
)

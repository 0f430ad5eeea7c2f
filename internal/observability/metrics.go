// Package observability holds the Prometheus instrumentation for the gateway.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Warmup cycle outcomes used as the status label on WarmupCycles.
const (
	CycleOK      = "ok"
	CycleFailed  = "failed"
	CycleSkipped = "skipped"
)

var (
	// WarmupCycles counts warmup cycles by outcome.
	WarmupCycles = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "warmstream_warmup_cycles_total",
		Help: "Number of warmup cycles, labeled by outcome.",
	}, []string{"status"})

	// WarmupTTFC observes the time from warmup request start to the first
	// non-empty content chunk.
	WarmupTTFC = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "warmstream_warmup_ttfc_seconds",
		Help:    "Time to first content during warmup cycles.",
		Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
	})

	// WarmupDuration observes the total elapsed time of a full warmup cycle.
	WarmupDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "warmstream_warmup_cycle_duration_seconds",
		Help:    "Total duration of warmup cycles.",
		Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
	})
)

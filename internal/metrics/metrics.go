// Package metrics declares the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Job metrics
var (
	// JobsTotal counts jobs reaching a status.
	JobsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "research_jobs_total",
			Help: "Jobs by status transition",
		},
		[]string{"status"},
	)

	// JobsInFlight tracks jobs currently being processed.
	JobsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "research_jobs_in_flight",
			Help: "Jobs currently processing",
		},
	)

	// PipelineDuration tracks the collect, analyze and render run time in seconds.
	PipelineDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "research_pipeline_duration_seconds",
			Help:    "Pipeline run duration by outcome",
			Buckets: []float64{.1, .5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		},
		[]string{"outcome"},
	)

	// StageDuration tracks each pipeline stage in seconds.
	StageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "research_stage_duration_seconds",
			Help:    "Pipeline stage duration by stage",
			Buckets: []float64{.01, .05, .1, .5, 1, 5, 30, 120},
		},
		[]string{"stage"},
	)

	// QueueDepth tracks jobs waiting for a worker.
	QueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "research_queue_depth",
			Help: "Jobs queued and not yet picked up",
		},
	)
)

// Source metrics
var (
	// AdapterFetches counts adapter Fetch calls by outcome (ok, error, empty).
	AdapterFetches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "research_adapter_fetches_total",
			Help: "Adapter fetches by adapter and outcome",
		},
		[]string{"adapter", "outcome"},
	)

	// RecordsCollected counts normalized records by source name.
	RecordsCollected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "research_records_collected_total",
			Help: "Normalized records by source",
		},
		[]string{"source"},
	)

	// RateLimitRetries counts requests retried after a 429 cooldown.
	RateLimitRetries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "research_rate_limit_retries_total",
			Help: "Provider requests retried after HTTP 429",
		},
		[]string{"adapter"},
	)
)

// Notification metrics
var (
	// NotificationsSent counts notifier deliveries by sink and status.
	NotificationsSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "research_notifications_total",
			Help: "Notifications by sink and status",
		},
		[]string{"sink", "status"},
	)
)

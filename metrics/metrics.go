// Package metrics exposes Prometheus instrumentation for the triage service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	OffensesTriaged = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nuvex_offenses_triaged_total",
			Help: "Total number of offenses triaged, by verdict",
		},
		[]string{"decision"},
	)

	OffensesRejected = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "nuvex_offenses_rejected_total",
			Help: "Total number of offense payloads rejected at the boundary",
		},
	)

	TriageDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "nuvex_triage_duration_seconds",
			Help:    "Time taken to triage one offense end to end",
			Buckets: prometheus.DefBuckets,
		},
	)

	ReputationLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nuvex_reputation_lookups_total",
			Help: "Total reputation lookups, by provider and outcome",
		},
		[]string{"provider", "outcome"},
	)

	ProviderRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nuvex_llm_requests_total",
			Help: "Total text generation requests, by provider and outcome",
		},
		[]string{"provider", "outcome"},
	)

	ProviderFallbacks = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "nuvex_llm_fallbacks_total",
			Help: "Total times the secondary text provider was invoked",
		},
	)

	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nuvex_cache_hits_total",
			Help: "Reputation cache hits, by tier",
		},
		[]string{"tier"},
	)

	CacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nuvex_cache_misses_total",
			Help: "Reputation cache misses, by tier",
		},
		[]string{"tier"},
	)

	ReportsWritten = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "nuvex_reports_written_total",
			Help: "Total incident reports written for escalated offenses",
		},
	)

	AuditNotesWritten = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "nuvex_audit_notes_written_total",
			Help: "Total audit notes appended for auto-closed offenses",
		},
	)

	NotificationsSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nuvex_notifications_sent_total",
			Help: "Total escalation notifications, by channel and outcome",
		},
		[]string{"channel", "outcome"},
	)

	WorkerPoolTasksProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nuvex_worker_pool_tasks_processed_total",
			Help: "Total tasks processed by worker pools",
		},
		[]string{"pool"},
	)

	WorkerPoolQueueSize = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "nuvex_worker_pool_queue_size",
			Help: "Current queued task count per worker pool",
		},
		[]string{"pool"},
	)
)

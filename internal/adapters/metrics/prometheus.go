package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	AnalysisTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cag_analysis_total",
		Help: "Total message analyses by outcome",
	}, []string{"status"})

	AnalysisDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "cag_analysis_duration_seconds",
		Help:    "Message analysis duration in seconds",
		Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2},
	})

	CacheRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cag_cache_requests_total",
		Help: "Analysis cache lookups by result",
	}, []string{"result"})

	CacheEntries = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "cag_cache_entries",
		Help: "Entries held in the in-memory analysis cache",
	})

	ContextOperationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cag_context_operations_total",
		Help: "Context operations by type and outcome",
	}, []string{"operation", "status"})

	LockWaitDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "cag_lock_wait_duration_seconds",
		Help:    "Time spent waiting for a conversation lock",
		Buckets: []float64{0.0001, 0.001, 0.01, 0.1, 0.5, 1, 3},
	})

	LockTimeoutsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cag_lock_timeouts_total",
		Help: "Lock acquisitions abandoned after the wait deadline",
	})

	MemoryOperationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cag_memory_operations_total",
		Help: "Conversation memory operations by type",
	}, []string{"operation"})

	GlobalMemoryUpdatesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cag_global_memory_updates_total",
		Help: "Accepted global memory updates",
	})

	GlobalMemoryEnrichmentsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cag_global_memory_enrichments_total",
		Help: "Context enrichments served from global memory",
	})

	EmbeddingRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cag_embedding_requests_total",
		Help: "Embedding requests by status",
	}, []string{"status"})

	EmbeddingRequestDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "cag_embedding_request_duration_seconds",
		Help:    "Embedding request duration",
		Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10},
	})

	SchedulerRunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cag_scheduler_runs_total",
		Help: "Maintenance job runs by job name and outcome",
	}, []string{"job", "status"})
)

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Counters and histograms per subsystem, partitioned by intent kind and
// network where it makes sense.

var (
	// Orchestrator
	SubmissionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "chainops",
		Subsystem: "orchestrator",
		Name:      "submissions_total",
		Help:      "Total intents accepted for execution",
	}, []string{"kind"})

	SubmissionRejects = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "chainops",
		Subsystem: "orchestrator",
		Name:      "submission_rejects_total",
		Help:      "Total intents rejected at validation",
	}, []string{"kind", "reason"})

	JobsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "chainops",
		Subsystem: "orchestrator",
		Name:      "jobs_total",
		Help:      "Total job executions by outcome",
	}, []string{"kind", "outcome"})

	JobRetries = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "chainops",
		Subsystem: "orchestrator",
		Name:      "job_retries_total",
		Help:      "Total transient failures redelivered with backoff",
	}, []string{"kind"})

	JobDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "chainops",
		Subsystem: "orchestrator",
		Name:      "job_duration_seconds",
		Help:      "Job execution duration",
		Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
	}, []string{"kind"})

	QueueDepth = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "chainops",
		Subsystem: "queue",
		Name:      "depth",
		Help:      "Approximate pending entries per job family stream",
	}, []string{"family"})

	// Network abstraction layer
	RPCCallsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "chainops",
		Subsystem: "rpc",
		Name:      "calls_total",
		Help:      "Total RPC calls by network, method and status",
	}, []string{"network", "method", "status"})

	RPCRateLimitWaits = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "chainops",
		Subsystem: "rpc",
		Name:      "rate_limit_waits_total",
		Help:      "Total RPC calls delayed by the token bucket",
	}, []string{"network"})

	RPCCircuitOpens = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "chainops",
		Subsystem: "rpc",
		Name:      "circuit_opens_total",
		Help:      "Total circuit breaker open transitions",
	}, []string{"network"})

	GasOracleRefreshes = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "chainops",
		Subsystem: "rpc",
		Name:      "gas_oracle_refreshes_total",
		Help:      "Total gas price refreshes from live RPC (cache misses)",
	}, []string{"network"})

	CacheHits = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "chainops",
		Subsystem: "cache",
		Name:      "hits_total",
		Help:      "Cache hits by cache name",
	}, []string{"cache"})

	CacheMisses = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "chainops",
		Subsystem: "cache",
		Name:      "misses_total",
		Help:      "Cache misses by cache name",
	}, []string{"cache"})

	// Contract engine
	DeploymentsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "chainops",
		Subsystem: "contracts",
		Name:      "deployments_total",
		Help:      "Total contract deployments by template and outcome",
	}, []string{"template", "outcome"})

	ContractCallsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "chainops",
		Subsystem: "contracts",
		Name:      "method_calls_total",
		Help:      "Total contract method invocations",
	}, []string{"mode"}) // read | write

	// Portfolio aggregation
	DashboardBuilds = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "chainops",
		Subsystem: "portfolio",
		Name:      "dashboard_builds_total",
		Help:      "Total dashboard aggregations by cache outcome",
	}, []string{"source"}) // cache | fresh

	DashboardPartialFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "chainops",
		Subsystem: "portfolio",
		Name:      "partial_failures_total",
		Help:      "Sub-queries excluded from a dashboard due to failure",
	}, []string{"section"})

	DashboardBuildLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "chainops",
		Subsystem: "portfolio",
		Name:      "build_duration_seconds",
		Help:      "Dashboard aggregation duration",
		Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
	})

	// Bridges
	BridgeFeeQuotes = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "chainops",
		Subsystem: "bridge",
		Name:      "fee_quotes_total",
		Help:      "Total bridge fee calculations by route",
	}, []string{"bridge"})

	// Audit side channel
	AuditEventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "chainops",
		Subsystem: "audit",
		Name:      "events_total",
		Help:      "Audit events emitted, by delivery outcome",
	}, []string{"outcome"})
)

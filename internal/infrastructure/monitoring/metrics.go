package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	// Catalog metrics
	OperationsTotal   *prometheus.CounterVec
	OperationDuration *prometheus.HistogramVec
	PathEscapes       *prometheus.CounterVec

	// Extraction metrics
	ExtractionsTotal   *prometheus.CounterVec
	ExtractionDuration prometheus.Histogram
	ExtractedEntries   *prometheus.CounterVec
	Rollbacks          prometheus.Counter

	// Coordinator metrics
	LockWait     prometheus.Histogram
	QueuedJobs   prometheus.Gauge
	ActiveLocks  prometheus.Gauge
	LockTimeouts prometheus.Counter

	// Tenant root metrics
	RootCache    *prometheus.CounterVec
	BreakerState *prometheus.GaugeVec
	BreakerTrips prometheus.Counter
}

// NewMetrics registers the collectors on reg. Pass prometheus.DefaultRegisterer
// to expose them on the process-wide /metrics handler, or a fresh registry in tests.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		// Catalog metrics
		OperationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tenantfs_operations_total",
				Help: "Total number of filesystem operations",
			},
			[]string{"op", "status"},
		),
		OperationDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "tenantfs_operation_duration_seconds",
				Help:    "Filesystem operation duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"op"},
		),
		PathEscapes: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tenantfs_path_escapes_total",
				Help: "Total number of rejected paths resolving outside a sandbox root",
			},
			[]string{"source"},
		),

		// Extraction metrics
		ExtractionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tenantfs_extractions_total",
				Help: "Total number of archive extraction jobs",
			},
			[]string{"format", "status"},
		),
		ExtractionDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "tenantfs_extraction_duration_seconds",
				Help:    "Archive extraction duration in seconds, excluding lock wait",
				Buckets: []float64{.01, .05, .1, .5, 1, 2.5, 5, 10, 30, 60, 300},
			},
		),
		ExtractedEntries: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tenantfs_extracted_entries_total",
				Help: "Archive entries processed, by outcome",
			},
			[]string{"result"},
		),
		Rollbacks: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "tenantfs_extraction_rollbacks_total",
				Help: "Total number of extraction jobs rolled back after partial relocation",
			},
		),

		// Coordinator metrics
		LockWait: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "tenantfs_destination_lock_wait_seconds",
				Help:    "Time spent queued for a destination lock",
				Buckets: []float64{.0001, .001, .01, .1, .5, 1, 5, 30, 120},
			},
		),
		QueuedJobs: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "tenantfs_destination_jobs_pending",
				Help: "Jobs holding or waiting for a destination lock",
			},
		),
		ActiveLocks: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "tenantfs_destination_locks",
				Help: "Number of destination keys with at least one pending job",
			},
		),
		LockTimeouts: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "tenantfs_destination_lock_abandoned_total",
				Help: "Jobs that gave up waiting for a destination lock",
			},
		),

		// Tenant root metrics
		RootCache: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tenantfs_root_cache_total",
				Help: "Tenant root cache lookups",
			},
			[]string{"result"},
		),
		BreakerState: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "tenantfs_breaker_state",
				Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
			},
			[]string{"name"},
		),
		BreakerTrips: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "tenantfs_breaker_trips_total",
				Help: "Total number of circuit breaker transitions to open",
			},
		),
	}
}

// RecordOperation records a catalog operation
func (m *Metrics) RecordOperation(op, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.OperationsTotal.WithLabelValues(op, status).Inc()
	m.OperationDuration.WithLabelValues(op).Observe(duration.Seconds())
}

// RecordPathEscape counts a rejected path; source is "request" or "archive"
func (m *Metrics) RecordPathEscape(source string) {
	if m == nil {
		return
	}
	m.PathEscapes.WithLabelValues(source).Inc()
}

// RecordExtraction records a settled extraction job
func (m *Metrics) RecordExtraction(format, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.ExtractionsTotal.WithLabelValues(format, status).Inc()
	m.ExtractionDuration.Observe(duration.Seconds())
}

// RecordEntries counts accepted and rejected archive entries
func (m *Metrics) RecordEntries(accepted, rejected int) {
	if m == nil {
		return
	}
	m.ExtractedEntries.WithLabelValues("accepted").Add(float64(accepted))
	m.ExtractedEntries.WithLabelValues("rejected").Add(float64(rejected))
}

// IncRollbacks counts a rollback
func (m *Metrics) IncRollbacks() {
	if m == nil {
		return
	}
	m.Rollbacks.Inc()
}

// ObserveLockWait records the time a job spent queued
func (m *Metrics) ObserveLockWait(d time.Duration) {
	if m == nil {
		return
	}
	m.LockWait.Observe(d.Seconds())
}

// SetLockQueue publishes the coordinator's current queue shape
func (m *Metrics) SetLockQueue(keys, jobs int) {
	if m == nil {
		return
	}
	m.ActiveLocks.Set(float64(keys))
	m.QueuedJobs.Set(float64(jobs))
}

// IncLockTimeouts counts a job that stopped waiting for its lock
func (m *Metrics) IncLockTimeouts() {
	if m == nil {
		return
	}
	m.LockTimeouts.Inc()
}

// RecordRootLookup counts a tenant root cache hit or miss
func (m *Metrics) RecordRootLookup(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.RootCache.WithLabelValues(result).Inc()
}

// SetBreakerState publishes a circuit breaker state
func (m *Metrics) SetBreakerState(name string, state int) {
	if m == nil {
		return
	}
	m.BreakerState.WithLabelValues(name).Set(float64(state))
	if state == 2 {
		m.BreakerTrips.Inc()
	}
}

// Timer times a single operation
type Timer struct {
	metrics *Metrics
	op      string
	start   time.Time
}

// NewTimer starts timing op
func NewTimer(metrics *Metrics, op string) *Timer {
	return &Timer{metrics: metrics, op: op, start: time.Now()}
}

// Stop records the operation with a status derived from err
func (t *Timer) Stop(err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	t.metrics.RecordOperation(t.op, status, time.Since(t.start))
}

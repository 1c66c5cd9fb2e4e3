// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Engine metrics
	OperationsStarted  *prometheus.CounterVec
	OperationsFinished *prometheus.CounterVec
	OperationsReplayed prometheus.Counter
	SubmissionsTotal   prometheus.Counter
	RetriesTotal       prometheus.Counter
	PreconditionErrors *prometheus.CounterVec

	// Confirmation metrics
	ConfirmationLatency prometheus.Histogram
	ConfirmationPolls   prometheus.Counter

	// Observer metrics
	EventsObserved   *prometheus.CounterVec
	EventParseErrors prometheus.Counter
	HighestSlotSeen  prometheus.Gauge
	EventsArchived   prometheus.Counter
	ArchiveErrors    prometheus.Counter

	// Ledger client metrics
	RPCCallLatency *prometheus.HistogramVec

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec

	// Health metrics
	LastConfirmedOperation prometheus.Gauge
	UnresolvedRecords      prometheus.Gauge
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "solana_trade_engine"
	}

	return &Metrics{
		// Engine metrics
		OperationsStarted: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "operations_started_total",
			Help:      "Total number of operations started by kind",
		}, []string{"kind"}),
		OperationsFinished: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "operations_finished_total",
			Help:      "Total number of operations finished by kind and status",
		}, []string{"kind", "status"}),
		OperationsReplayed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "operations_replayed_total",
			Help:      "Total number of duplicate intents served from the operation log",
		}),
		SubmissionsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "submissions_total",
			Help:      "Total number of ledger submissions including resubmissions",
		}),
		RetriesTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "retries_total",
			Help:      "Total number of retry attempts after timeout or transport failure",
		}),
		PreconditionErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "precondition_errors_total",
			Help:      "Total number of precondition failures by type",
		}, []string{"error_type"}),

		// Confirmation metrics
		ConfirmationLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "confirmation_latency_seconds",
			Help:      "Time from first submission to terminal status",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 30, 60, 120},
		}),
		ConfirmationPolls: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "confirmation_polls_total",
			Help:      "Total number of signature status polls",
		}),

		// Observer metrics
		EventsObserved: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "observer",
			Name:      "events_observed_total",
			Help:      "Total number of trade events observed by kind",
		}, []string{"kind"}),
		EventParseErrors: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "observer",
			Name:      "event_parse_errors_total",
			Help:      "Total number of log notifications that failed to parse",
		}),
		HighestSlotSeen: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "observer",
			Name:      "highest_slot_seen",
			Help:      "Highest ledger slot number seen",
		}),
		EventsArchived: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "observer",
			Name:      "events_archived_total",
			Help:      "Total number of trade events written to the audit store",
		}),
		ArchiveErrors: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "observer",
			Name:      "archive_errors_total",
			Help:      "Total number of audit store write failures",
		}),

		// Ledger client metrics
		RPCCallLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "chain",
			Name:      "rpc_call_latency_seconds",
			Help:      "Ledger RPC call latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),

		// Database metrics
		DBQueryDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_duration_seconds",
			Help:      "Database query duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"database", "operation"}),
		DBQueryErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_errors_total",
			Help:      "Total number of database query errors",
		}, []string{"database", "operation"}),

		// Health metrics
		LastConfirmedOperation: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_confirmed_operation_timestamp",
			Help:      "Unix timestamp of last confirmed operation",
		}),
		UnresolvedRecords: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "unresolved_records",
			Help:      "Number of non-terminal submission records at last reconciliation",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordOperationStarted increments the operations started counter.
func RecordOperationStarted(kind string) {
	DefaultMetrics.OperationsStarted.WithLabelValues(kind).Inc()
}

// RecordOperationFinished records a terminal outcome and its latency.
func RecordOperationFinished(kind, status string, seconds float64) {
	DefaultMetrics.OperationsFinished.WithLabelValues(kind, status).Inc()
	DefaultMetrics.ConfirmationLatency.Observe(seconds)
	if status == "CONFIRMED" {
		DefaultMetrics.LastConfirmedOperation.SetToCurrentTime()
	}
}

// RecordReplay increments the replayed outcomes counter.
func RecordReplay() {
	DefaultMetrics.OperationsReplayed.Inc()
}

// RecordSubmission increments the submissions counter.
func RecordSubmission() {
	DefaultMetrics.SubmissionsTotal.Inc()
}

// RecordRetry increments the retries counter.
func RecordRetry() {
	DefaultMetrics.RetriesTotal.Inc()
}

// RecordPreconditionError records a precondition failure.
func RecordPreconditionError(errorType string) {
	DefaultMetrics.PreconditionErrors.WithLabelValues(errorType).Inc()
}

// RecordConfirmationPoll increments the status poll counter.
func RecordConfirmationPoll() {
	DefaultMetrics.ConfirmationPolls.Inc()
}

// RecordEventObserved increments the observed events counter.
func RecordEventObserved(kind string) {
	DefaultMetrics.EventsObserved.WithLabelValues(kind).Inc()
}

// RecordEventParseError increments the parse error counter.
func RecordEventParseError() {
	DefaultMetrics.EventParseErrors.Inc()
}

// UpdateHighestSlot updates the highest slot seen gauge.
func UpdateHighestSlot(slot int64) {
	DefaultMetrics.HighestSlotSeen.Set(float64(slot))
}

// RecordEventsArchived adds to the archived events counter.
func RecordEventsArchived(n int) {
	DefaultMetrics.EventsArchived.Add(float64(n))
}

// RecordArchiveError increments the archive error counter.
func RecordArchiveError() {
	DefaultMetrics.ArchiveErrors.Inc()
}

// RecordRPCLatency records RPC call latency.
func RecordRPCLatency(method string, seconds float64) {
	DefaultMetrics.RPCCallLatency.WithLabelValues(method).Observe(seconds)
}

// RecordDBQuery records database query metrics.
func RecordDBQuery(database, operation string, seconds float64, err error) {
	DefaultMetrics.DBQueryDuration.WithLabelValues(database, operation).Observe(seconds)
	if err != nil {
		DefaultMetrics.DBQueryErrors.WithLabelValues(database, operation).Inc()
	}
}

// UpdateUnresolvedRecords updates the unresolved records gauge.
func UpdateUnresolvedRecords(n int) {
	DefaultMetrics.UnresolvedRecords.Set(float64(n))
}

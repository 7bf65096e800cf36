package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all application metrics
type Metrics struct {
	// Safety checks
	AllergyConflicts    prometheus.Counter
	DrugInteractions    *prometheus.CounterVec
	DriftAdvisories     *prometheus.CounterVec
	SubmissionOutcomes  *prometheus.CounterVec
	AuditWriteFailures  *prometheus.CounterVec
	AccessTokenOutcomes *prometheus.CounterVec

	// OCR gateway
	OCRRequests *prometheus.CounterVec
	OCRLatency  prometheus.Histogram

	// Outbox related metrics
	OutboxEventsProcessed   prometheus.Counter
	OutboxEventsFailed      prometheus.Counter
	OutboxProcessingLatency prometheus.Histogram
	OutboxRetries           *prometheus.CounterVec

	// Database metrics
	DatabaseOperations *prometheus.CounterVec
}

// NewMetrics creates and registers all application metrics with reg.
func NewMetrics(namespace, subsystem string, reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		AllergyConflicts: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "allergy_conflicts_total",
			Help:      "Total number of drug-allergy conflicts detected",
		}),
		DrugInteractions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "drug_interactions_total",
			Help:      "Total number of drug-drug interactions detected",
		}, []string{"severity"}),
		DriftAdvisories: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "drift_advisories_total",
			Help:      "Total number of prescription drift advisories produced",
		}, []string{"id"}),
		SubmissionOutcomes: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "prescription_submissions_total",
			Help:      "Prescription submissions by outcome",
		}, []string{"outcome"}),
		AuditWriteFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "audit_write_failures_total",
			Help:      "Audit records that could not be written",
		}, []string{"record_type"}),
		AccessTokenOutcomes: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "access_token_operations_total",
			Help:      "Access token operations by outcome",
		}, []string{"operation", "outcome"}),
		OCRRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "ocr_requests_total",
			Help:      "Prescription scans by outcome",
		}, []string{"outcome"}),
		OCRLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "ocr_request_duration_seconds",
			Help:      "Duration of OCR gateway calls",
			Buckets:   []float64{.1, .25, .5, 1, 2.5, 5, 10, 20, 30},
		}),
		OutboxEventsProcessed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "outbox_events_processed_total",
			Help:      "Total number of successfully processed outbox events",
		}),
		OutboxEventsFailed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "outbox_events_failed_total",
			Help:      "Total number of failed outbox events",
		}),
		OutboxProcessingLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "outbox_processing_duration_seconds",
			Help:      "Time spent processing outbox events",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		}),
		OutboxRetries: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "outbox_retry_attempts_total",
			Help:      "Total number of retry attempts for outbox events",
		}, []string{"event_type"}),
		DatabaseOperations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "database_operations_total",
			Help:      "Total number of database operations",
		}, []string{"operation", "status"}),
	}
}

// New registers metrics on the default registry.
func New(namespace string) *Metrics {
	return NewMetrics(namespace, "", prometheus.DefaultRegisterer)
}

// NewForTest returns metrics bound to a private registry so tests can build many.
func NewForTest() *Metrics {
	return NewMetrics("test", "", prometheus.NewRegistry())
}

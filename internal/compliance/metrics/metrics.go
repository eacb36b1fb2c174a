package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var latencyBuckets = []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1}

// Metrics provides observability for the compliance module.
// Tracks record ingestion, validation rejections, reconciliation and
// status updates, and store latency per operation.
type Metrics struct {
	RecordsIngested    prometheus.Counter
	ValidationFailures *prometheus.CounterVec
	Reconciliations    prometheus.Counter
	StatusUpdates      *prometheus.CounterVec
	StoreDuration      *prometheus.HistogramVec
}

// New creates a new Metrics instance registered with the default registry.
func New() *Metrics {
	return NewWithRegisterer(prometheus.DefaultRegisterer)
}

// NewWithRegisterer registers the compliance metrics with reg.
func NewWithRegisterer(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		RecordsIngested: factory.NewCounter(prometheus.CounterOpts{
			Name: "treasury_compliance_records_ingested_total",
			Help: "Total number of compliance records accepted and stored",
		}),
		ValidationFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "treasury_compliance_validation_failures_total",
			Help: "Total number of rejected compliance records by offending field",
		}, []string{"field"}),
		Reconciliations: factory.NewCounter(prometheus.CounterOpts{
			Name: "treasury_compliance_reconciliations_total",
			Help: "Total number of records marked reconciled",
		}),
		StatusUpdates: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "treasury_compliance_status_updates_total",
			Help: "Total number of compliance status updates by resulting KYC status",
		}, []string{"kyc_status"}),
		StoreDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "treasury_compliance_store_duration_seconds",
			Help:    "Duration of compliance store operations",
			Buckets: latencyBuckets,
		}, []string{"operation"}),
	}
}

// IncrementRecordsIngested records a successfully stored record.
func (m *Metrics) IncrementRecordsIngested() {
	m.RecordsIngested.Inc()
}

// IncrementValidationFailure records a record rejected on field.
func (m *Metrics) IncrementValidationFailure(field string) {
	if field == "" {
		field = "unknown"
	}
	m.ValidationFailures.WithLabelValues(field).Inc()
}

// IncrementReconciliations adds n reconciled records.
func (m *Metrics) IncrementReconciliations(n int) {
	m.Reconciliations.Add(float64(n))
}

// IncrementStatusUpdate records a status update resulting in kycStatus.
func (m *Metrics) IncrementStatusUpdate(kycStatus string) {
	m.StatusUpdates.WithLabelValues(kycStatus).Inc()
}

// ObserveStore records the duration of a store operation.
// Call with time.Now() at the start of the operation.
func (m *Metrics) ObserveStore(operation string, start time.Time) {
	m.StoreDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}

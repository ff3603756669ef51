package audit

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus collectors of the audit subsystem
type Metrics struct {
	EntriesRecorded *prometheus.CounterVec
	RecordFailures  *prometheus.CounterVec
	EntriesPurged   prometheus.Counter
	RetentionRuns   *prometheus.CounterVec
	RetentionDays   prometheus.Gauge
	QueriesTotal    *prometheus.CounterVec
}

// NewMetrics creates and registers the audit collectors. A nil registerer
// leaves them unregistered, which tests rely on.
func NewMetrics(registerer prometheus.Registerer) *Metrics {
	m := &Metrics{
		EntriesRecorded: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "masthead_audit_entries_recorded_total",
				Help: "Total number of audit entries written",
			},
			[]string{"unit"},
		),
		RecordFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "masthead_audit_record_failures_total",
				Help: "Total number of audit entries that could not be written",
			},
			[]string{"unit"},
		),
		EntriesPurged: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "masthead_audit_entries_purged_total",
				Help: "Total number of audit entries removed by retention",
			},
		),
		RetentionRuns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "masthead_audit_retention_runs_total",
				Help: "Total number of retention passes",
			},
			[]string{"status"},
		),
		RetentionDays: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "masthead_audit_retention_days",
				Help: "Configured audit retention window in days",
			},
		),
		QueriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "masthead_audit_queries_total",
				Help: "Total number of audit log reads",
			},
			[]string{"status"},
		),
	}

	if registerer != nil {
		registerer.MustRegister(
			m.EntriesRecorded,
			m.RecordFailures,
			m.EntriesPurged,
			m.RetentionRuns,
			m.RetentionDays,
			m.QueriesTotal,
		)
	}

	return m
}

package observers

import "github.com/prometheus/client_golang/prometheus"

// Metrics counts how observed signals were handled
type Metrics struct {
	Signals    *prometheus.CounterVec
	TermLookup *prometheus.CounterVec
}

// NewMetrics creates the observer collectors and registers them on
// registerer when it is not nil
func NewMetrics(registerer prometheus.Registerer) *Metrics {
	m := &Metrics{
		Signals: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "masthead_observer_signals_total",
				Help: "Total number of lifecycle signals observed, by outcome",
			},
			[]string{"signal", "outcome"},
		),
		TermLookup: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "masthead_observer_term_lookups_total",
				Help: "Total number of category name lookups, by cache result",
			},
			[]string{"result"},
		),
	}

	if registerer != nil {
		registerer.MustRegister(m.Signals, m.TermLookup)
	}
	return m
}

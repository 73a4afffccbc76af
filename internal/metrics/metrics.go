// Package metrics holds the Prometheus instruments for parse traffic.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"pnr_parser/internal/pnr"
)

// Metrics holds all prometheus metrics.
type Metrics struct {
	ParsesTotal     *prometheus.CounterVec
	ScheduleChanges prometheus.Counter
	Eligible        prometheus.Counter
	ParseDuration   prometheus.Histogram
	StoredTotal     prometheus.Counter
	ErrorsCount     *prometheus.CounterVec
}

// New creates the parse metrics and registers them with reg. A nil reg
// leaves them unregistered, which suits tests.
func New(namespace string, reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ParsesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "parses_total",
			Help:      "The total number of parsed reservation texts",
		}, []string{"dialect"}),
		ScheduleChanges: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "schedule_changes_total",
			Help:      "The total number of parses reporting a schedule change",
		}),
		Eligible: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "eligible_3_hour_total",
			Help:      "The total number of parses meeting the 3-hour rule",
		}),
		ParseDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "parse_duration_seconds",
			Help:      "Time taken to parse one reservation text",
			Buckets:   []float64{.0001, .00025, .0005, .001, .0025, .005, .01, .025, .05, .1},
		}),
		StoredTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_stored_total",
			Help:      "The total number of parse records persisted",
		}),
		ErrorsCount: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "errors_total",
			Help:      "The total number of errors",
		}, []string{"operation"}),
	}

	if reg != nil {
		reg.MustRegister(m.ParsesTotal, m.ScheduleChanges, m.Eligible, m.ParseDuration, m.StoredTotal, m.ErrorsCount)
	}
	return m
}

// ObserveParse records one completed parse.
func (m *Metrics) ObserveParse(r *pnr.Result, elapsed time.Duration) {
	if m == nil || r == nil {
		return
	}
	m.ParsesTotal.WithLabelValues(string(r.GDSDialect)).Inc()
	m.ParseDuration.Observe(elapsed.Seconds())
	if r.ScheduleChange != nil {
		m.ScheduleChanges.Inc()
	}
	if r.Eligibility3Hour {
		m.Eligible.Inc()
	}
}

// ObserveStored records one persisted record.
func (m *Metrics) ObserveStored() {
	if m == nil {
		return
	}
	m.StoredTotal.Inc()
}

// ObserveError records a failed operation such as "store" or "decode".
func (m *Metrics) ObserveError(operation string) {
	if m == nil {
		return
	}
	m.ErrorsCount.WithLabelValues(operation).Inc()
}

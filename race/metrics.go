package race

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Call outcome label values.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// Metrics holds the Prometheus instruments a Coordinator records into.
// A nil *Metrics records nothing.
//
// Metrics exposed:
//   - coge_backend_calls_total: Counter of backend calls by backend and outcome
//   - coge_backend_call_seconds: Histogram of backend call latency
//   - coge_race_wins_total: Counter of races won, by backend
//   - coge_races_failed_total: Counter of races in which every backend failed
type Metrics struct {
	CallsTotal  *prometheus.CounterVec
	CallSeconds *prometheus.HistogramVec
	WinsTotal   *prometheus.CounterVec
	FailedTotal prometheus.Counter
}

// NewMetrics creates the instruments and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		CallsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "coge_backend_calls_total",
			Help: "Total backend calls by backend and outcome",
		}, []string{"backend", "outcome"}),

		CallSeconds: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "coge_backend_call_seconds",
			Help:    "Backend call latency in seconds",
			Buckets: []float64{.25, .5, 1, 2, 4, 8, 16, 32},
		}, []string{"backend"}),

		WinsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "coge_race_wins_total",
			Help: "Races decided by each backend",
		}, []string{"backend"}),

		FailedTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "coge_races_failed_total",
			Help: "Races in which every backend failed",
		}),
	}
}

// RecordCall records one settled call.
func (m *Metrics) RecordCall(o Outcome) {
	if m == nil {
		return
	}
	label := OutcomeFailure
	if o.Success {
		label = OutcomeSuccess
	}
	m.CallsTotal.WithLabelValues(o.Backend, label).Inc()
	m.CallSeconds.WithLabelValues(o.Backend).Observe(o.Latency.Seconds())
}

// RecordWin records the backend that decided a race.
func (m *Metrics) RecordWin(backend string) {
	if m == nil {
		return
	}
	m.WinsTotal.WithLabelValues(backend).Inc()
}

// RecordFailedRace records a race with no successful call.
func (m *Metrics) RecordFailedRace() {
	if m == nil {
		return
	}
	m.FailedTotal.Inc()
}

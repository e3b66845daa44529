package dispatch

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts dispatch outcomes by mode ("direct", "c2d", "failed").
type Metrics struct {
	outcomes *prometheus.CounterVec
	latency  *prometheus.HistogramVec
}

// NewMetrics registers the collectors with reg. A nil reg leaves them
// unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		outcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "playerhub",
			Subsystem: "dispatch",
			Name:      "commands_total",
			Help:      "Commands handled by the dispatcher, by delivery mode.",
		}, []string{"mode"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "playerhub",
			Subsystem: "dispatch",
			Name:      "duration_seconds",
			Help:      "Time from request to delivery decision.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 15, 30},
		}, []string{"mode"}),
	}
	if reg != nil {
		reg.MustRegister(m.outcomes, m.latency)
	}
	return m
}

func (m *Metrics) observe(mode string, took time.Duration) {
	if m == nil {
		return
	}
	m.outcomes.WithLabelValues(mode).Inc()
	m.latency.WithLabelValues(mode).Observe(took.Seconds())
}

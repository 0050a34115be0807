package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus metrics of DPD procedure invocations. It
// implements invoke.Recorder.
type Metrics struct {
	AttemptsTotal   *prometheus.CounterVec
	AttemptDuration *prometheus.HistogramVec
	RetriesTotal    *prometheus.CounterVec
}

// NewMetrics creates the metrics and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		AttemptsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dpd_procedure_attempts_total",
				Help: "Total number of DPD procedure attempts by procedure and outcome",
			},
			[]string{"procedure", "outcome"},
		),
		AttemptDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "dpd_procedure_attempt_duration_seconds",
				Help:    "DPD procedure attempt duration in seconds by procedure",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"procedure"},
		),
		RetriesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dpd_procedure_retries_total",
				Help: "Total number of DPD procedure retries by procedure",
			},
			[]string{"procedure"},
		),
	}
}

// RecordAttempt records one attempt.
func (m *Metrics) RecordAttempt(procedure, outcome string, duration time.Duration) {
	m.AttemptsTotal.WithLabelValues(procedure, outcome).Inc()
	m.AttemptDuration.WithLabelValues(procedure).Observe(duration.Seconds())
}

// RecordRetry records a retry.
func (m *Metrics) RecordRetry(procedure string) {
	m.RetriesTotal.WithLabelValues(procedure).Inc()
}

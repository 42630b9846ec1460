package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the check-in slice's Prometheus metrics.
type Metrics struct {
	Transitions  *prometheus.CounterVec
	ActiveAlerts prometheus.Gauge
	CodeRetries  prometheus.Counter
}

// New creates and registers the slice metrics on the default registry.
func New() *Metrics {
	return &Metrics{
		Transitions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "kidgate_transitions_total",
			Help: "Check-in lifecycle transitions by action and outcome.",
		}, []string{"action", "outcome"}),
		ActiveAlerts: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "kidgate_active_alerts",
			Help: "Records currently in alert state.",
		}),
		CodeRetries: promauto.NewCounter(prometheus.CounterOpts{
			Name: "kidgate_security_code_retries_total",
			Help: "Security-code regenerations after a collision with a live record.",
		}),
	}
}

// Outcome labels for the transitions counter.
const (
	OutcomeApplied = "applied"
	OutcomeNoop    = "noop"
	OutcomeInvalid = "invalid"
	OutcomeError   = "error"
)

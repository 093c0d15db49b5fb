package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sony/gobreaker"
)

// ExternalAPIMetrics contains all metrics for external API monitoring
type ExternalAPIMetrics struct {
	apiDuration         *prometheus.HistogramVec
	apiCalls            *prometheus.CounterVec
	retries             *prometheus.CounterVec
	circuitBreakerState *prometheus.GaugeVec
	timeouts            *prometheus.CounterVec
}

// NewExternalAPIMetrics creates a new instance of external API metrics
func NewExternalAPIMetrics() *ExternalAPIMetrics {
	return &ExternalAPIMetrics{
		apiDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "paywatch_external_api_duration_seconds",
				Help:    "Duration of external API calls in seconds, retries included",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"api_name", "endpoint", "status"},
		),

		apiCalls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "paywatch_external_api_calls_total",
				Help: "Total number of external API calls",
			},
			[]string{"api_name", "status"},
		),

		retries: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "paywatch_external_api_retries_total",
				Help: "Total number of retried external API attempts",
			},
			[]string{"api_name", "endpoint", "reason"},
		),

		circuitBreakerState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "paywatch_circuit_breaker_state",
				Help: "Current state of circuit breakers (0=closed, 1=half-open, 2=open)",
			},
			[]string{"api_name"},
		),

		timeouts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "paywatch_external_api_timeouts_total",
				Help: "Total number of external API timeouts",
			},
			[]string{"api_name", "endpoint"},
		),
	}
}

// MustRegister registers all metrics with the provided registry
func (m *ExternalAPIMetrics) MustRegister(registry *prometheus.Registry) {
	registry.MustRegister(
		m.apiDuration,
		m.apiCalls,
		m.retries,
		m.circuitBreakerState,
		m.timeouts,
	)
}

// RecordAPICall records an API call with duration and status
func (m *ExternalAPIMetrics) RecordAPICall(apiName, endpoint, status string, duration float64) {
	m.apiDuration.WithLabelValues(apiName, endpoint, status).Observe(duration)
	m.apiCalls.WithLabelValues(apiName, status).Inc()
}

func (m *ExternalAPIMetrics) RecordRetry(apiName, endpoint, reason string) {
	m.retries.WithLabelValues(apiName, endpoint, reason).Inc()
}

// UpdateCircuitBreakerState updates the circuit breaker state metric
func (m *ExternalAPIMetrics) UpdateCircuitBreakerState(apiName string, state gobreaker.State) {
	m.circuitBreakerState.WithLabelValues(apiName).Set(float64(state))
}

// RecordTimeout records a timeout event
func (m *ExternalAPIMetrics) RecordTimeout(apiName, endpoint string) {
	m.timeouts.WithLabelValues(apiName, endpoint).Inc()
}

package monitoring

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

// HTTPMetrics contains all metrics for HTTP request monitoring
type HTTPMetrics struct {
	requestDuration  *prometheus.HistogramVec
	requestsTotal    *prometheus.CounterVec
	responseSize     *prometheus.HistogramVec
	inFlightRequests *prometheus.GaugeVec

	// Business logic metrics
	businessOperations *prometheus.CounterVec
	businessDuration   *prometheus.HistogramVec
}

// NewHTTPMetrics creates a new instance of HTTP metrics
func NewHTTPMetrics() *HTTPMetrics {
	return &HTTPMetrics{
		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "paywatch_http_request_duration_seconds",
				Help:    "Duration of HTTP requests in seconds",
				Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0},
			},
			[]string{"method", "path", "status"},
		),

		requestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "paywatch_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),

		responseSize: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "paywatch_http_response_size_bytes",
				Help:    "Size of HTTP responses in bytes",
				Buckets: prometheus.ExponentialBuckets(100, 2, 8), // 100B to 12KB
			},
			[]string{"method", "path", "status"},
		),

		inFlightRequests: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "paywatch_http_requests_in_flight",
				Help: "Current number of HTTP requests being served",
			},
			[]string{"method", "path"},
		),

		businessOperations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "paywatch_business_operations_total",
				Help: "Total number of business operations",
			},
			[]string{"operation_type", "category", "status"},
		),

		businessDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "paywatch_business_operation_duration_seconds",
				Help:    "Duration of business operations in seconds",
				Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1.0, 2.0, 5.0, 10.0, 30.0, 60.0},
			},
			[]string{"operation_type", "category", "status"},
		),
	}
}

// MustRegister registers all HTTP metrics with the provided registry
func (m *HTTPMetrics) MustRegister(registry *prometheus.Registry) {
	registry.MustRegister(
		m.requestDuration,
		m.requestsTotal,
		m.responseSize,
		m.inFlightRequests,
		m.businessOperations,
		m.businessDuration,
	)
}

// RecordBusinessMetric records a business operation metric
func (m *HTTPMetrics) RecordBusinessMetric(operationType, category, status string, duration float64) {
	m.businessOperations.WithLabelValues(operationType, category, status).Inc()
	if duration > 0 {
		m.businessDuration.WithLabelValues(operationType, category, status).Observe(duration)
	}
}

// HTTPMetricsMiddleware creates a Gin middleware for HTTP metrics collection
func HTTPMetricsMiddleware(metrics *HTTPMetrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.FullPath()
		method := c.Request.Method

		// unmatched routes would otherwise explode label cardinality
		if path == "" {
			path = "unmatched"
		}

		metrics.inFlightRequests.WithLabelValues(method, path).Inc()
		defer metrics.inFlightRequests.WithLabelValues(method, path).Dec()

		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())
		responseSize := float64(c.Writer.Size())

		metrics.requestDuration.WithLabelValues(method, path, status).Observe(duration)
		metrics.requestsTotal.WithLabelValues(method, path, status).Inc()
		if responseSize > 0 {
			metrics.responseSize.WithLabelValues(method, path, status).Observe(responseSize)
		}
	}
}

// BusinessMetricsRecorder provides methods to record business logic metrics
type BusinessMetricsRecorder struct {
	metrics *HTTPMetrics
}

// NewBusinessMetricsRecorder creates a new business metrics recorder
func NewBusinessMetricsRecorder(metrics *HTTPMetrics) *BusinessMetricsRecorder {
	return &BusinessMetricsRecorder{
		metrics: metrics,
	}
}

// RecordPaymentRequest records the creation of a payment request
func (r *BusinessMetricsRecorder) RecordPaymentRequest(status string, duration float64) {
	r.metrics.RecordBusinessMetric("payment_request", "create", status, duration)
}

// RecordSubscriptionOperation records an operator action on provider hooks
func (r *BusinessMetricsRecorder) RecordSubscriptionOperation(operationType, status string, duration float64) {
	r.metrics.RecordBusinessMetric("subscription_operation", operationType, status, duration)
}

// RecordDatabaseOperation records a database operation
func (r *BusinessMetricsRecorder) RecordDatabaseOperation(operationType, status string, duration float64) {
	r.metrics.RecordBusinessMetric("database_operation", operationType, status, duration)
}

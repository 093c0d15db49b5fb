package metrics

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dwarvesf/paywatch/internal/utils/logger"
)

// MetricsHandler serves the application registry in the Prometheus
// exposition format.
type MetricsHandler struct {
	registry *prometheus.Registry
	logger   *logger.Logger
}

func NewMetricsHandler(registry *prometheus.Registry, logger *logger.Logger) *MetricsHandler {
	return &MetricsHandler{
		registry: registry,
		logger:   logger,
	}
}

// Handler returns the gin handler for /metrics. Scrape failures are counted
// in promhttp_metric_handler_errors_total on the same registry.
func (h *MetricsHandler) Handler() gin.HandlerFunc {
	handler := promhttp.InstrumentMetricHandler(h.registry, promhttp.HandlerFor(h.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
		ErrorLog:          scrapeErrorLogger{h.logger},
		Registry:          h.registry,
	}))

	return gin.WrapH(handler)
}

// scrapeErrorLogger adapts the app logger to promhttp.Logger.
type scrapeErrorLogger struct {
	logger *logger.Logger
}

func (l scrapeErrorLogger) Println(v ...interface{}) {
	if l.logger == nil {
		return
	}
	l.logger.Error("[MetricsHandler] scrape failed", map[string]string{
		"error": fmt.Sprint(v...),
	})
}

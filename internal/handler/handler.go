package handler

import (
	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/gorm"

	"github.com/dwarvesf/paywatch/internal/btcrpc/blockcypher"
	"github.com/dwarvesf/paywatch/internal/controller"
	"github.com/dwarvesf/paywatch/internal/handler/admin"
	"github.com/dwarvesf/paywatch/internal/handler/health"
	"github.com/dwarvesf/paywatch/internal/handler/metrics"
	"github.com/dwarvesf/paywatch/internal/handler/payment"
	"github.com/dwarvesf/paywatch/internal/handler/webhook"
	"github.com/dwarvesf/paywatch/internal/monitoring"
	"github.com/dwarvesf/paywatch/internal/utils/config"
	"github.com/dwarvesf/paywatch/internal/utils/logger"
)

type Handler struct {
	PaymentHandler payment.IHandler
	WebhookHandler webhook.IHandler
	AdminHandler   admin.IHandler
	HealthHandler  health.IHealthHandler
	MetricsHandler *metrics.MetricsHandler
}

func New(appConfig *config.AppConfig, logger *logger.Logger,
	ctrl controller.IController,
	provider blockcypher.IClient,
	db *gorm.DB,
	metricsRegistry *prometheus.Registry) *Handler {
	return NewWithMonitoring(appConfig, logger, ctrl, provider, db, metricsRegistry, nil)
}

func NewWithMonitoring(appConfig *config.AppConfig, logger *logger.Logger,
	ctrl controller.IController,
	provider blockcypher.IClient,
	db *gorm.DB,
	metricsRegistry *prometheus.Registry,
	jobStatusManager *monitoring.JobStatusManager) *Handler {
	return &Handler{
		PaymentHandler: payment.New(ctrl, logger, appConfig),
		WebhookHandler: webhook.New(ctrl, logger, appConfig),
		AdminHandler:   admin.New(ctrl, logger, appConfig),
		HealthHandler:  health.New(appConfig, logger, db, provider, jobStatusManager),
		MetricsHandler: metrics.NewMetricsHandler(metricsRegistry, logger),
	}
}

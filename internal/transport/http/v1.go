package http

import (
	"github.com/gin-gonic/gin"

	"github.com/dwarvesf/paywatch/internal/handler"
	"github.com/dwarvesf/paywatch/internal/handler/middleware"
	"github.com/dwarvesf/paywatch/internal/utils/config"
	"github.com/dwarvesf/paywatch/internal/utils/logger"
)

func loadV1Routes(r *gin.Engine, h *handler.Handler, appConfig *config.AppConfig, logger *logger.Logger) {
	v1 := r.Group("/api/v1")

	webhooks := v1.Group("/webhooks")
	{
		webhooks.POST("/blockcypher", h.WebhookHandler.ReceiveBlockCypher)
	}

	payments := v1.Group("/payments")
	{
		payments.POST("", h.PaymentHandler.CreatePaymentRequest)
		payments.GET("/:address/status", h.PaymentHandler.GetPaymentStatus)
	}

	admin := v1.Group("/admin", middleware.OperatorAuth(appConfig, logger))
	{
		admin.GET("/payments", h.AdminHandler.ListPayments)
		admin.GET("/payments/stats", h.AdminHandler.PaymentStats)
		admin.POST("/payments/evict", h.AdminHandler.EvictPayments)
		admin.DELETE("/payments/:address", h.AdminHandler.DeletePayment)

		admin.GET("/subscriptions", h.AdminHandler.ListSubscriptions)
		admin.GET("/subscriptions/:id", h.AdminHandler.GetSubscription)
		admin.DELETE("/subscriptions/:id", h.AdminHandler.DeleteSubscription)
	}

	health := v1.Group("/health")
	{
		health.GET("/db", h.HealthHandler.Database)
		health.GET("/external", h.HealthHandler.External)
		health.GET("/jobs", h.HealthHandler.Jobs)
	}

	// health check
	r.GET("/healthz", h.HealthHandler.Basic)

	r.GET("/metrics", h.MetricsHandler.Handler())
}

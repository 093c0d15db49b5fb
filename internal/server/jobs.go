package server

import (
	"context"

	"github.com/dwarvesf/paywatch/internal/controller"
	"github.com/dwarvesf/paywatch/internal/monitoring"
	"github.com/dwarvesf/paywatch/internal/utils/config"
)

// newEvictionJob removes entries older than PAYMENT_MAX_AGE and refreshes
// the tracked payments gauge.
func newEvictionJob(ctrl controller.IController, appConfig *config.AppConfig, metrics *monitoring.BackgroundJobMetrics) func(ctx context.Context) (map[string]interface{}, error) {
	return func(ctx context.Context) (map[string]interface{}, error) {
		evicted, err := ctrl.EvictExpired(ctx, appConfig.Payment.MaxAge)
		if err != nil {
			return nil, err
		}

		stats, err := ctrl.PaymentStats(ctx)
		if err != nil {
			return map[string]interface{}{"evicted": evicted}, err
		}

		counts := make(map[string]int64, len(stats.CountsByStatus))
		for status, n := range stats.CountsByStatus {
			counts[string(status)] = n
		}
		metrics.SetTrackedPayments(counts)

		return map[string]interface{}{
			"evicted":   evicted,
			"remaining": stats.TotalEntries,
			"max_age":   appConfig.Payment.MaxAge.String(),
		}, nil
	}
}

package server

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/robfig/cron/v3"

	"github.com/dwarvesf/paywatch/internal/btcrpc/blockcypher"
	"github.com/dwarvesf/paywatch/internal/controller"
	"github.com/dwarvesf/paywatch/internal/handler"
	"github.com/dwarvesf/paywatch/internal/monitoring"
	"github.com/dwarvesf/paywatch/internal/publisher"
	"github.com/dwarvesf/paywatch/internal/store"
	pgstore "github.com/dwarvesf/paywatch/internal/store/postgres"
	transport "github.com/dwarvesf/paywatch/internal/transport/http"
	"github.com/dwarvesf/paywatch/internal/utils/config"
	"github.com/dwarvesf/paywatch/internal/utils/logger"
	"github.com/dwarvesf/paywatch/internal/utils/webhook"
	"github.com/dwarvesf/paywatch/internal/wallet"
)

const shutdownTimeout = 15 * time.Second

func Init() {
	appConfig := config.New()
	logger := logger.New(appConfig.Environment)

	if appConfig.ApiServer.PublicBaseURL == "" {
		logger.Fatal("[Init] PUBLIC_BASE_URL is required")
	}

	db := pgstore.New(appConfig, logger)
	s := store.New(db)

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	apiMetrics := monitoring.NewExternalAPIMetrics()
	apiMetrics.MustRegister(registry)
	httpMetrics := monitoring.NewHTTPMetrics()
	httpMetrics.MustRegister(registry)
	ingestionMetrics := monitoring.NewIngestionMetrics()
	ingestionMetrics.MustRegister(registry)
	jobMetrics := monitoring.NewBackgroundJobMetrics()
	jobMetrics.MustRegister(registry)

	breaker := monitoring.NewCircuitBreakerBlockCypher(
		monitoring.CircuitBreakerConfigs[monitoring.BlockCypherAPIName], apiMetrics, logger)
	provider := breaker.Wrap(blockcypher.New(appConfig, logger, blockcypher.WithRetryObserver(breaker)))

	generator, err := wallet.New(appConfig, db, s.WalletCursor, logger)
	if err != nil {
		logger.Fatal("[Init][wallet.New] failed to init address generator", map[string]string{
			"error": err.Error(),
		})
	}

	var pub publisher.IPublisher = publisher.NewNoop()
	if len(appConfig.Kafka.Brokers) > 0 {
		pub = publisher.New(appConfig, logger)
	}
	defer pub.Close()

	ctrl := controller.New(db, s, provider, generator, pub, logger, appConfig,
		controller.WithIngestionMetrics(ingestionMetrics),
		controller.WithBusinessMetrics(monitoring.NewBusinessMetricsRecorder(httpMetrics)),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	jobStatusManager := monitoring.NewJobStatusManager(logger, jobMetrics)
	go jobStatusManager.Run(ctx)

	evictionJob := monitoring.NewInstrumentedJob(
		monitoring.JobPaymentEviction,
		newEvictionJob(ctrl, appConfig, jobMetrics),
		jobStatusManager,
		logger,
		5*time.Minute,
	).WithHeartbeat(webhook.New(logger), appConfig.Payment.EvictionHeartbeatURL)

	c := cron.New()
	if _, err := c.AddFunc(appConfig.Payment.EvictionSchedule, evictionJob.Execute); err != nil {
		logger.Fatal("[Init][cron.AddFunc] invalid eviction schedule", map[string]string{
			"schedule": appConfig.Payment.EvictionSchedule,
			"error":    err.Error(),
		})
	}
	c.Start()
	defer c.Stop()

	h := handler.NewWithMonitoring(appConfig, logger, ctrl, provider, db, registry, jobStatusManager)
	engine := transport.NewHttpServer(appConfig, logger, h, httpMetrics)

	srv := &http.Server{
		Addr:              ":" + appConfig.ApiServer.Port,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("[Init] http server listening", map[string]string{
			"addr":         srv.Addr,
			"callback_url": appConfig.CallbackURL(),
		})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("[Init][ListenAndServe]", map[string]string{
				"error": err.Error(),
			})
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("[Init] shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("[Init][Shutdown]", map[string]string{
			"error": err.Error(),
		})
	}
}

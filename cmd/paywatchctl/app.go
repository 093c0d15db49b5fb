package main

import (
	"github.com/dwarvesf/paywatch/internal/btcrpc/blockcypher"
	"github.com/dwarvesf/paywatch/internal/controller"
	"github.com/dwarvesf/paywatch/internal/monitoring"
	"github.com/dwarvesf/paywatch/internal/store"
	pgstore "github.com/dwarvesf/paywatch/internal/store/postgres"
	"github.com/dwarvesf/paywatch/internal/utils/config"
	"github.com/dwarvesf/paywatch/internal/utils/logger"
	"github.com/dwarvesf/paywatch/internal/wallet"
)

type app struct {
	config     *config.AppConfig
	controller controller.IController
}

type appLoader func() (*app, error)

// loadApp connects to the same database and provider account as the
// server. Status-change events are not published from the CLI.
func loadApp() (*app, error) {
	appConfig := config.New()
	logger := logger.New(appConfig.Environment)

	db := pgstore.New(appConfig, logger)
	s := store.New(db)

	breaker := monitoring.NewCircuitBreakerBlockCypher(
		monitoring.CircuitBreakerConfigs[monitoring.BlockCypherAPIName], monitoring.NewExternalAPIMetrics(), logger)
	provider := breaker.Wrap(blockcypher.New(appConfig, logger, blockcypher.WithRetryObserver(breaker)))

	var generator wallet.IGenerator
	if appConfig.Wallet.XPub != "" {
		g, err := wallet.New(appConfig, db, s.WalletCursor, logger)
		if err != nil {
			return nil, err
		}
		generator = g
	}

	return &app{
		config:     appConfig,
		controller: controller.New(db, s, provider, generator, nil, logger, appConfig),
	}, nil
}

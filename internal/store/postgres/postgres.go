package pgstore

import (
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
	"gorm.io/gorm/schema"

	"github.com/dwarvesf/paywatch/internal/types/environments"
	"github.com/dwarvesf/paywatch/internal/utils/config"
	"github.com/dwarvesf/paywatch/internal/utils/logger"
)

// New opens the shared PostgreSQL database. Every process that creates or
// observes payments must point at the same instance.
func New(appConfig *config.AppConfig, logger *logger.Logger) *gorm.DB {
	db, err := connectPostgres(appConfig)
	if err != nil {
		logger.Fatal("failed to connect to postgres", map[string]string{
			"error": err.Error(),
		})
	}

	logger.Info("database connected", map[string]string{
		"host": appConfig.Postgres.Host,
		"name": appConfig.Postgres.Name,
	})
	return db
}

// DSN builds the keyword/value connection string used by gorm.
func DSN(appConfig *config.AppConfig) string {
	return fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=%s",
		appConfig.Postgres.Host,
		appConfig.Postgres.User,
		appConfig.Postgres.Pass,
		appConfig.Postgres.Name,
		appConfig.Postgres.Port,
		appConfig.Postgres.SSLMode,
	)
}

// URL builds the postgres:// form expected by golang-migrate.
func URL(appConfig *config.AppConfig) string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		appConfig.Postgres.User,
		appConfig.Postgres.Pass,
		appConfig.Postgres.Host,
		appConfig.Postgres.Port,
		appConfig.Postgres.Name,
		appConfig.Postgres.SSLMode,
	)
}

func connectPostgres(appConfig *config.AppConfig) (*gorm.DB, error) {
	logLevel := gormlogger.Warn
	if appConfig.Environment == environments.Development {
		logLevel = gormlogger.Info
	}

	db, err := gorm.Open(postgres.Open(DSN(appConfig)),
		&gorm.Config{
			Logger: gormlogger.Default.LogMode(logLevel),
			NamingStrategy: schema.NamingStrategy{
				SingularTable: false,
			},
		})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	return db, nil
}

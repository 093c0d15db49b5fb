package controller

import (
	"time"

	"github.com/go-playground/validator/v10"
	"gorm.io/gorm"

	"github.com/dwarvesf/paywatch/internal/btcrpc/blockcypher"
	"github.com/dwarvesf/paywatch/internal/monitoring"
	"github.com/dwarvesf/paywatch/internal/publisher"
	"github.com/dwarvesf/paywatch/internal/store"
	"github.com/dwarvesf/paywatch/internal/utils/config"
	"github.com/dwarvesf/paywatch/internal/utils/logger"
	"github.com/dwarvesf/paywatch/internal/wallet"
)

const (
	defaultListLimit = 50
	maxListLimit     = 500
)

type Controller struct {
	db        *gorm.DB
	store     *store.Store
	client    blockcypher.IClient
	wallet    wallet.IGenerator
	publisher publisher.IPublisher
	validate  *validator.Validate
	logger    *logger.Logger
	config    *config.AppConfig
	now       func() time.Time

	ingestionMetrics *monitoring.IngestionMetrics
	businessMetrics  *monitoring.BusinessMetricsRecorder
}

type Option func(*Controller)

func WithIngestionMetrics(m *monitoring.IngestionMetrics) Option {
	return func(c *Controller) {
		c.ingestionMetrics = m
	}
}

func WithBusinessMetrics(r *monitoring.BusinessMetricsRecorder) Option {
	return func(c *Controller) {
		c.businessMetrics = r
	}
}

func WithClock(now func() time.Time) Option {
	return func(c *Controller) {
		c.now = now
	}
}

func New(
	db *gorm.DB,
	s *store.Store,
	client blockcypher.IClient,
	generator wallet.IGenerator,
	pub publisher.IPublisher,
	logger *logger.Logger,
	config *config.AppConfig,
	opts ...Option,
) IController {
	if pub == nil {
		pub = publisher.NewNoop()
	}

	c := &Controller{
		db:        db,
		store:     s,
		client:    client,
		wallet:    generator,
		publisher: pub,
		validate:  validator.New(),
		logger:    logger,
		config:    config,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}

	return c
}

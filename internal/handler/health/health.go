package health

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sony/gobreaker"
	"gorm.io/gorm"

	"github.com/dwarvesf/paywatch/internal/btcrpc/blockcypher"
	"github.com/dwarvesf/paywatch/internal/monitoring"
	"github.com/dwarvesf/paywatch/internal/types/apperror"
	"github.com/dwarvesf/paywatch/internal/utils/config"
	"github.com/dwarvesf/paywatch/internal/utils/logger"
)

// breakerState is implemented by the circuit breaker wrapping the provider client.
type breakerState interface {
	State() gobreaker.State
}

// HealthHandler implements IHealthHandler interface
type HealthHandler struct {
	config           *config.AppConfig
	logger           *logger.Logger
	db               *gorm.DB
	provider         blockcypher.IClient
	jobStatusManager *monitoring.JobStatusManager
}

// New creates a new health handler instance
func New(config *config.AppConfig, logger *logger.Logger, db *gorm.DB, provider blockcypher.IClient, jobStatusManager *monitoring.JobStatusManager) IHealthHandler {
	return &HealthHandler{
		config:           config,
		logger:           logger,
		db:               db,
		provider:         provider,
		jobStatusManager: jobStatusManager,
	}
}

// Basic handles the basic health check endpoint (/healthz)
// @Summary Basic health check
// @Description Returns basic system availability status
// @Tags health
// @Accept json
// @Produce json
// @Success 200 {object} BasicHealthResponse
// @Router /healthz [get]
func (h *HealthHandler) Basic(c *gin.Context) {
	c.JSON(http.StatusOK, BasicHealthResponse{
		Message: "ok",
	})
}

// Database handles the database health check endpoint
// @Summary Database health check
// @Description Validates database connectivity
// @Tags health
// @Accept json
// @Produce json
// @Success 200 {object} HealthResponse
// @Failure 503 {object} HealthResponse
// @Router /health/db [get]
func (h *HealthHandler) Database(c *gin.Context) {
	start := time.Now()

	response := HealthResponse{
		Timestamp: start,
		Checks:    make(map[string]HealthCheck),
	}

	dbCheck := h.checkDatabase(requestContext(c))
	response.Checks["database"] = dbCheck
	response.DurationMs = time.Since(start).Milliseconds()

	if dbCheck.Status == "healthy" {
		response.Status = "healthy"
		c.JSON(http.StatusOK, response)
		return
	}
	response.Status = "unhealthy"
	c.JSON(http.StatusServiceUnavailable, response)
}

// External handles the external API dependencies health check endpoint
// @Summary External dependencies health check
// @Description Validates notification provider connectivity
// @Tags health
// @Accept json
// @Produce json
// @Success 200 {object} HealthResponse
// @Failure 503 {object} HealthResponse
// @Router /health/external [get]
func (h *HealthHandler) External(c *gin.Context) {
	start := time.Now()

	response := HealthResponse{
		Timestamp: start,
		Checks:    make(map[string]HealthCheck),
	}

	ctx, cancel := context.WithTimeout(requestContext(c), 10*time.Second)
	defer cancel()

	// one check today; kept parallel so adding a broker check stays cheap
	var wg sync.WaitGroup
	var mu sync.Mutex

	wg.Add(1)
	go func() {
		defer wg.Done()
		check := h.checkProvider(ctx)
		mu.Lock()
		response.Checks[monitoring.BlockCypherAPIName] = check
		mu.Unlock()
	}()

	wg.Wait()
	response.DurationMs = time.Since(start).Milliseconds()

	allHealthy := true
	for _, check := range response.Checks {
		if check.Status != "healthy" {
			allHealthy = false
			break
		}
	}

	if allHealthy {
		response.Status = "healthy"
		c.JSON(http.StatusOK, response)
		return
	}
	response.Status = "unhealthy"
	c.JSON(http.StatusServiceUnavailable, response)
}

func requestContext(c *gin.Context) context.Context {
	if c.Request != nil {
		return c.Request.Context()
	}
	return context.Background()
}

// checkDatabase performs database health validation
func (h *HealthHandler) checkDatabase(ctx context.Context) HealthCheck {
	start := time.Now()

	check := HealthCheck{
		Metadata: make(map[string]interface{}),
	}

	if h.db == nil {
		check.Status = "unhealthy"
		check.Error = "database connection not available"
		check.Latency = time.Since(start).Milliseconds()
		return check
	}

	sqlDB, err := h.db.DB()
	if err != nil {
		check.Status = "unhealthy"
		check.Error = fmt.Sprintf("failed to get underlying database: %v", err)
		check.Latency = time.Since(start).Milliseconds()
		return check
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := sqlDB.PingContext(pingCtx); err != nil {
		check.Status = "unhealthy"
		if pingCtx.Err() == context.DeadlineExceeded {
			check.Error = "timeout"
		} else {
			check.Error = err.Error()
		}
		check.Latency = time.Since(start).Milliseconds()
		return check
	}

	stats := sqlDB.Stats()

	check.Status = "healthy"
	check.Latency = time.Since(start).Milliseconds()
	check.Metadata["driver"] = h.db.Dialector.Name()
	check.Metadata["connection_pool"] = map[string]interface{}{
		"open_connections": stats.OpenConnections,
		"in_use":           stats.InUse,
		"idle":             stats.Idle,
		"max_open":         stats.MaxOpenConnections,
	}

	return check
}

// checkProvider lists hooks, the cheapest authenticated provider call.
func (h *HealthHandler) checkProvider(ctx context.Context) HealthCheck {
	start := time.Now()

	check := HealthCheck{
		Metadata: make(map[string]interface{}),
	}

	if h.provider == nil {
		check.Status = "unhealthy"
		check.Error = "notification provider not configured"
		check.Latency = time.Since(start).Milliseconds()
		return check
	}
	if cb, ok := h.provider.(breakerState); ok {
		check.Metadata["circuit_breaker"] = cb.State().String()
	}

	checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	type result struct {
		hooks int
		err   error
	}
	done := make(chan result, 1)
	go func() {
		subs, err := h.provider.ListSubscriptions(checkCtx)
		done <- result{hooks: len(subs), err: err}
	}()

	select {
	case res := <-done:
		if res.err != nil {
			check.Status = "unhealthy"
			check.Error = apperror.PublicMessage(res.err)
			check.Metadata["error_kind"] = string(apperror.KindOf(res.err))
		} else {
			check.Status = "healthy"
			check.Metadata["network"] = h.config.BlockCypher.Network
			check.Metadata["hooks"] = res.hooks
		}
	case <-checkCtx.Done():
		check.Status = "unhealthy"
		if checkCtx.Err() == context.DeadlineExceeded {
			check.Error = "timeout"
		} else {
			check.Error = checkCtx.Err().Error()
		}
	}

	check.Latency = time.Since(start).Milliseconds()
	return check
}

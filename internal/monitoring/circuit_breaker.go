package monitoring

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"github.com/sony/gobreaker"

	"github.com/dwarvesf/paywatch/internal/btcrpc/blockcypher"
	"github.com/dwarvesf/paywatch/internal/consts"
	"github.com/dwarvesf/paywatch/internal/types/apperror"
	"github.com/dwarvesf/paywatch/internal/utils/logger"
)

// CircuitBreakerBlockCypher wraps blockcypher.IClient with circuit breaker
// functionality. It is also the client's retry observer so retries show up
// in the same metrics.
type CircuitBreakerBlockCypher struct {
	wrapped        blockcypher.IClient
	circuitBreaker *gobreaker.CircuitBreaker
	metrics        *ExternalAPIMetrics
	logger         *logger.Logger
}

// NewCircuitBreakerBlockCypher creates a breaker without a wrapped client.
// Wrap must be called before use; this lets the breaker be handed to the
// client as its retry observer first.
func NewCircuitBreakerBlockCypher(config CircuitBreakerConfig, metrics *ExternalAPIMetrics, logger *logger.Logger) *CircuitBreakerBlockCypher {
	if err := validateCircuitBreakerConfig(config); err != nil {
		logger.Warn("Invalid circuit breaker config, using defaults", map[string]string{
			"service": BlockCypherAPIName,
			"error":   err.Error(),
		})
		config = CircuitBreakerConfigs[BlockCypherAPIName]
	}

	cb := &CircuitBreakerBlockCypher{
		metrics: metrics,
		logger:  logger,
	}

	settings := gobreaker.Settings{
		Name:        BlockCypherAPIName,
		MaxRequests: config.MaxRequests,
		Interval:    config.Interval,
		Timeout:     config.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= uint32(config.ConsecutiveFailureThreshold)
		},
		// caller mistakes and idempotent deletes say nothing about provider health
		IsSuccessful: func(err error) bool {
			if err == nil {
				return true
			}
			switch apperror.KindOf(err) {
			case apperror.KindInvalidInput, apperror.KindNotFound:
				return true
			}
			return false
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Info("Circuit breaker state change", map[string]string{
				"service": name,
				"from":    from.String(),
				"to":      to.String(),
			})
			metrics.UpdateCircuitBreakerState(BlockCypherAPIName, to)
		},
	}

	cb.circuitBreaker = gobreaker.NewCircuitBreaker(settings)
	metrics.UpdateCircuitBreakerState(BlockCypherAPIName, gobreaker.StateClosed)
	return cb
}

// Wrap sets the client protected by the breaker.
func (cb *CircuitBreakerBlockCypher) Wrap(client blockcypher.IClient) *CircuitBreakerBlockCypher {
	cb.wrapped = client
	return cb
}

func (cb *CircuitBreakerBlockCypher) State() gobreaker.State {
	return cb.circuitBreaker.State()
}

// ObserveRetry implements blockcypher.RetryObserver.
func (cb *CircuitBreakerBlockCypher) ObserveRetry(operation string, attempt int, err error) {
	cb.metrics.RecordRetry(BlockCypherAPIName, operation, string(classifyError(err)))
	cb.logger.Warn("External API call retried", map[string]string{
		"service":   BlockCypherAPIName,
		"operation": operation,
		"attempt":   strconv.Itoa(attempt),
		"error":     err.Error(),
	})
}

// execute runs fn through the breaker and records duration and outcome.
func (cb *CircuitBreakerBlockCypher) execute(ctx context.Context, operation string, fn func(ctx context.Context) (interface{}, error)) (interface{}, error) {
	if cb.wrapped == nil {
		return nil, apperror.New(apperror.KindInternal, "circuit breaker has no wrapped client")
	}

	start := time.Now()
	result, err := cb.circuitBreaker.Execute(func() (interface{}, error) {
		return fn(ctx)
	})
	duration := time.Since(start).Seconds()

	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		cb.metrics.RecordAPICall(BlockCypherAPIName, operation, "rejected", duration)
		return nil, apperror.Wrap(err, apperror.KindTransport, "provider temporarily unavailable")
	}

	status := "success"
	if err != nil {
		status = "error"
		if classifyError(err) == ErrorTypeTimeout {
			cb.metrics.RecordTimeout(BlockCypherAPIName, operation)
		}
		cb.logError(operation, duration, err)
	}
	cb.metrics.RecordAPICall(BlockCypherAPIName, operation, status, duration)

	return result, err
}

func (cb *CircuitBreakerBlockCypher) RegisterSubscription(ctx context.Context, address, callbackURL string, kind consts.EventKind) (*blockcypher.Subscription, error) {
	result, err := cb.execute(ctx, "register_subscription", func(ctx context.Context) (interface{}, error) {
		return cb.wrapped.RegisterSubscription(ctx, address, callbackURL, kind)
	})
	if err != nil {
		return nil, err
	}
	return result.(*blockcypher.Subscription), nil
}

func (cb *CircuitBreakerBlockCypher) ListSubscriptions(ctx context.Context) ([]blockcypher.Subscription, error) {
	result, err := cb.execute(ctx, "list_subscriptions", func(ctx context.Context) (interface{}, error) {
		return cb.wrapped.ListSubscriptions(ctx)
	})
	if err != nil {
		return nil, err
	}
	return result.([]blockcypher.Subscription), nil
}

func (cb *CircuitBreakerBlockCypher) GetSubscription(ctx context.Context, id string) (*blockcypher.Subscription, error) {
	result, err := cb.execute(ctx, "get_subscription", func(ctx context.Context) (interface{}, error) {
		return cb.wrapped.GetSubscription(ctx, id)
	})
	if err != nil {
		return nil, err
	}
	return result.(*blockcypher.Subscription), nil
}

func (cb *CircuitBreakerBlockCypher) DeleteSubscription(ctx context.Context, id string) (*blockcypher.DeleteResult, error) {
	result, err := cb.execute(ctx, "delete_subscription", func(ctx context.Context) (interface{}, error) {
		return cb.wrapped.DeleteSubscription(ctx, id)
	})
	if err != nil {
		return nil, err
	}
	return result.(*blockcypher.DeleteResult), nil
}

func (cb *CircuitBreakerBlockCypher) logError(operation string, duration float64, err error) {
	cb.logger.Error("External API call failed", map[string]string{
		"service":    BlockCypherAPIName,
		"operation":  operation,
		"duration":   strconv.FormatFloat(duration, 'f', 3, 64),
		"error":      err.Error(),
		"error_type": string(classifyError(err)),
		"cb_state":   cb.circuitBreaker.State().String(),
	})
}

// classifyError classifies errors into different types for metrics and logging
func classifyError(err error) APIErrorType {
	if err == nil {
		return ""
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return ErrorTypeTimeout
	}

	switch apperror.KindOf(err) {
	case apperror.KindTransport:
		return ErrorTypeNetworkError
	case apperror.KindRateLimited:
		return ErrorTypeRateLimited
	case apperror.KindInvalidResponse:
		return ErrorTypeInvalidBody
	case apperror.KindInvalidInput, apperror.KindNotFound:
		return ErrorTypeClientError
	case apperror.KindProvider:
		var appErr *apperror.Error
		if errors.As(err, &appErr) && appErr.StatusCode >= 500 {
			return ErrorTypeServerError
		}
		return ErrorTypeClientError
	}

	return ErrorTypeUnknown
}

// validateCircuitBreakerConfig validates circuit breaker configuration
func validateCircuitBreakerConfig(config CircuitBreakerConfig) error {
	if config.MaxRequests == 0 {
		return fmt.Errorf("max_requests must be greater than 0")
	}

	if config.ConsecutiveFailureThreshold <= 0 {
		return fmt.Errorf("consecutive_failure_threshold must be greater than 0")
	}

	if config.Timeout < 0 {
		return fmt.Errorf("timeout must be non-negative")
	}

	if config.Interval < 0 {
		return fmt.Errorf("interval must be non-negative")
	}

	return nil
}

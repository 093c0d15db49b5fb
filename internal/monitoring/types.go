package monitoring

import (
	"time"
)

// CircuitBreakerConfig defines the configuration for circuit breakers
type CircuitBreakerConfig struct {
	MaxRequests                 uint32        `json:"max_requests"`
	Interval                    time.Duration `json:"interval"`
	Timeout                     time.Duration `json:"timeout"`
	ConsecutiveFailureThreshold int           `json:"consecutive_failure_threshold"`
}

// APIErrorType represents different types of API errors for classification
type APIErrorType string

const (
	ErrorTypeTimeout      APIErrorType = "timeout"
	ErrorTypeNetworkError APIErrorType = "network_error"
	ErrorTypeRateLimited  APIErrorType = "rate_limited"
	ErrorTypeServerError  APIErrorType = "server_error"
	ErrorTypeClientError  APIErrorType = "client_error"
	ErrorTypeInvalidBody  APIErrorType = "invalid_response"
	ErrorTypeUnknown      APIErrorType = "unknown"
)

const BlockCypherAPIName = "blockcypher_api"

// CircuitBreakerConfigs provides default configurations for different services
var CircuitBreakerConfigs = map[string]CircuitBreakerConfig{
	BlockCypherAPIName: {
		MaxRequests:                 3,
		Interval:                    30 * time.Second,
		Timeout:                     60 * time.Second,
		ConsecutiveFailureThreshold: 5,
	},
}

// JobPaymentEviction is the scheduled removal of expired payment statuses.
const JobPaymentEviction = "payment_eviction"

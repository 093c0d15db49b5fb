package webhook

import (
	"context"
	"net/http"
	"time"

	"github.com/dwarvesf/paywatch/internal/utils/logger"
)

// Client pings uptime monitors (heartbeat URLs) after background jobs run.
type Client struct {
	httpClient *http.Client
	logger     *logger.Logger
}

// New creates a new webhook client with timeout
func New(logger *logger.Logger) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		logger: logger,
	}
}

// CallUptimeWebhook makes a GET request to the heartbeat URL. Failures are
// logged and never returned; a missed heartbeat is what the monitor alerts on.
func (c *Client) CallUptimeWebhook(ctx context.Context, webhookURL string) bool {
	if webhookURL == "" {
		return false
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, webhookURL, nil)
	if err != nil {
		c.logger.Error("[CallUptimeWebhook][NewRequest]", map[string]string{
			"error": err.Error(),
		})
		return false
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("[CallUptimeWebhook][Do]", map[string]string{
			"error": err.Error(),
		})
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		c.logger.Error("[CallUptimeWebhook] unexpected status", map[string]string{
			"status_code": resp.Status,
		})
		return false
	}

	c.logger.Debug("[CallUptimeWebhook] heartbeat sent", map[string]string{
		"status_code": resp.Status,
	})
	return true
}

package blockcypher

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/btcsuite/btcd/chaincfg"
	"github.com/pkg/errors"

	"github.com/dwarvesf/paywatch/internal/btcrpc"
	"github.com/dwarvesf/paywatch/internal/consts"
	"github.com/dwarvesf/paywatch/internal/types/apperror"
	"github.com/dwarvesf/paywatch/internal/utils/config"
	"github.com/dwarvesf/paywatch/internal/utils/logger"
)

const maxResponseBytes = 1 << 20

type blockcypher struct {
	baseURL           string
	token             string
	params            *chaincfg.Params
	hookConfirmations int
	client            *http.Client
	retrier           *retrier
	logger            *logger.Logger
}

type Option func(*blockcypher)

// WithHTTPClient replaces the default http.Client, mainly for tests.
func WithHTTPClient(c *http.Client) Option {
	return func(b *blockcypher) {
		b.client = c
	}
}

func WithRetryObserver(o RetryObserver) Option {
	return func(b *blockcypher) {
		b.retrier.onRetry = o.ObserveRetry
	}
}

func New(cfg *config.AppConfig, logger *logger.Logger, opts ...Option) IClient {
	return newClient(cfg, logger, opts...)
}

func newClient(cfg *config.AppConfig, logger *logger.Logger, opts ...Option) *blockcypher {
	policy := DefaultRetryPolicy
	if cfg.BlockCypher.MaxAttempts > 0 {
		policy.MaxAttempts = cfg.BlockCypher.MaxAttempts
	}
	if cfg.BlockCypher.RetryBaseDelay > 0 {
		policy.BaseDelay = cfg.BlockCypher.RetryBaseDelay
	}
	if cfg.BlockCypher.RetryMaxDelay > 0 {
		policy.MaxDelay = cfg.BlockCypher.RetryMaxDelay
	}
	if cfg.BlockCypher.AttemptTimeout > 0 {
		policy.AttemptTimeout = cfg.BlockCypher.AttemptTimeout
	}

	b := &blockcypher{
		baseURL:           fmt.Sprintf("%s/%s", strings.TrimRight(cfg.BlockCypher.APIURL, "/"), cfg.BlockCypher.Network),
		token:             cfg.BlockCypher.Token,
		params:            btcrpc.NetworkParams(cfg.BlockCypher.Network),
		hookConfirmations: cfg.BlockCypher.HookConfirmations,
		client:            &http.Client{},
		retrier:           newRetrier(policy),
		logger:            logger,
	}
	for _, opt := range opts {
		opt(b)
	}

	return b
}

func (c *blockcypher) RegisterSubscription(ctx context.Context, address, callbackURL string, kind consts.EventKind) (*Subscription, error) {
	if _, err := btcrpc.DecodeAddress(address, c.params); err != nil {
		return nil, apperror.Wrap(err, apperror.KindInvalidInput, fmt.Sprintf("invalid %s address", c.params.Name))
	}
	if err := validateCallbackURL(callbackURL); err != nil {
		return nil, err
	}
	if !kind.IsRecognized() {
		return nil, apperror.InvalidInput("unsupported event kind %q", kind)
	}

	reqBody := createHookRequest{
		Event:   string(kind),
		Address: address,
		URL:     callbackURL,
	}
	if kind == consts.EventTxConfirmation && c.hookConfirmations > 0 {
		reqBody.Confirmations = c.hookConfirmations
	}

	var sub Subscription
	retries, err := c.retrier.Do(ctx, "RegisterSubscription", func(ctx context.Context) error {
		return c.doJSON(ctx, http.MethodPost, "/hooks", reqBody, &sub, false)
	})
	if err != nil {
		c.logger.Error("[RegisterSubscription][doJSON]", map[string]string{
			"address": address,
			"event":   string(kind),
			"retries": strconv.Itoa(retries),
			"error":   err.Error(),
		})
		return nil, err
	}

	c.logger.Info("[RegisterSubscription] hook registered", map[string]string{
		"address": address,
		"hook_id": sub.ID,
		"retries": strconv.Itoa(retries),
	})
	return &sub, nil
}

func (c *blockcypher) ListSubscriptions(ctx context.Context) ([]Subscription, error) {
	var subs []Subscription
	retries, err := c.retrier.Do(ctx, "ListSubscriptions", func(ctx context.Context) error {
		subs = nil
		return c.doJSON(ctx, http.MethodGet, "/hooks", nil, &subs, false)
	})
	if err != nil {
		c.logger.Error("[ListSubscriptions][doJSON]", map[string]string{
			"retries": strconv.Itoa(retries),
			"error":   err.Error(),
		})
		return nil, err
	}
	if subs == nil {
		subs = []Subscription{}
	}

	return subs, nil
}

func (c *blockcypher) GetSubscription(ctx context.Context, id string) (*Subscription, error) {
	if strings.TrimSpace(id) == "" {
		return nil, apperror.InvalidInput("subscription id is required")
	}

	var sub Subscription
	retries, err := c.retrier.Do(ctx, "GetSubscription", func(ctx context.Context) error {
		return c.doJSON(ctx, http.MethodGet, "/hooks/"+url.PathEscape(id), nil, &sub, false)
	})
	if err != nil {
		c.logger.Error("[GetSubscription][doJSON]", map[string]string{
			"hook_id": id,
			"retries": strconv.Itoa(retries),
			"error":   err.Error(),
		})
		return nil, err
	}

	return &sub, nil
}

func (c *blockcypher) DeleteSubscription(ctx context.Context, id string) (*DeleteResult, error) {
	if strings.TrimSpace(id) == "" {
		return nil, apperror.InvalidInput("subscription id is required")
	}

	retries, err := c.retrier.Do(ctx, "DeleteSubscription", func(ctx context.Context) error {
		return c.doJSON(ctx, http.MethodDelete, "/hooks/"+url.PathEscape(id), nil, nil, true)
	})
	if apperror.Is(err, apperror.KindNotFound) {
		c.logger.Info("[DeleteSubscription] hook already removed", map[string]string{
			"hook_id": id,
		})
		return &DeleteResult{ID: id, AlreadyRemoved: true}, nil
	}
	if err != nil {
		c.logger.Error("[DeleteSubscription][doJSON]", map[string]string{
			"hook_id": id,
			"retries": strconv.Itoa(retries),
			"error":   err.Error(),
		})
		return nil, err
	}

	return &DeleteResult{ID: id}, nil
}

// doJSON performs one provider call. Retrying is the caller's concern.
func (c *blockcypher) doJSON(ctx context.Context, method, path string, in, out interface{}, allowEmpty bool) error {
	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return apperror.Wrap(err, apperror.KindInvalidInput, "failed to encode request body")
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.endpoint(path), body)
	if err != nil {
		return apperror.Wrap(stripURL(err), apperror.KindInvalidInput, "failed to create provider request")
	}
	req.Header.Set("User-Agent", consts.UserAgent())
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return apperror.Wrap(stripURL(err), apperror.KindTransport, "provider request failed")
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return apperror.Wrap(err, apperror.KindTransport, "failed to read provider response")
	}

	c.logger.Debug("[doJSON] provider response", map[string]string{
		"method":     method,
		"path":       path,
		"statusCode": strconv.Itoa(resp.StatusCode),
	})

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return apperror.WrapWithStatus(providerDetail(respBody), apperror.KindRateLimited, resp.StatusCode, "rate limited by provider")
	case resp.StatusCode == http.StatusNotFound:
		return apperror.WrapWithStatus(providerDetail(respBody), apperror.KindNotFound, resp.StatusCode, "resource not found at provider")
	case resp.StatusCode >= 400:
		return apperror.WrapWithStatus(providerDetail(respBody), apperror.KindProvider, resp.StatusCode,
			fmt.Sprintf("provider rejected request with status %d", resp.StatusCode))
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return apperror.WithStatus(apperror.KindInvalidResponse, resp.StatusCode,
			fmt.Sprintf("unexpected provider status %d", resp.StatusCode))
	}

	if len(bytes.TrimSpace(respBody)) == 0 {
		if allowEmpty {
			return nil
		}
		return apperror.WithStatus(apperror.KindInvalidResponse, resp.StatusCode, "empty provider response")
	}

	if out == nil {
		// the body is discarded but must still be valid JSON
		if !json.Valid(respBody) {
			return apperror.WithStatus(apperror.KindInvalidResponse, resp.StatusCode, "provider response is not valid JSON")
		}
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return apperror.WrapWithStatus(err, apperror.KindInvalidResponse, resp.StatusCode, "failed to parse provider response")
	}

	return nil
}

func (c *blockcypher) endpoint(path string) string {
	u := c.baseURL + path
	if c.token == "" {
		return u
	}
	q := url.Values{}
	q.Set("token", c.token)
	return u + "?" + q.Encode()
}

func validateCallbackURL(callbackURL string) error {
	u, err := url.Parse(callbackURL)
	if err != nil {
		return apperror.Wrap(err, apperror.KindInvalidInput, "invalid callback url")
	}
	if !u.IsAbs() || u.Host == "" {
		return apperror.InvalidInput("callback url must be absolute")
	}
	if u.Scheme != "https" {
		return apperror.InvalidInput("callback url must use https")
	}

	return nil
}

// stripURL drops the request URL from net/http errors so the token in the
// query string never reaches logs or callers.
func stripURL(err error) error {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return errors.Errorf("%s: %v", urlErr.Op, urlErr.Err)
	}
	return err
}

func providerDetail(body []byte) error {
	var resp errorResponse
	if err := json.Unmarshal(body, &resp); err == nil && resp.message() != "" {
		return errors.New(resp.message())
	}
	return errors.Errorf("provider body: %d bytes", len(body))
}

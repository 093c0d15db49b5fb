package blockcypher

import (
	"context"
	"math/rand"
	"time"

	"github.com/dwarvesf/paywatch/internal/types/apperror"
)

type RetryPolicy struct {
	MaxAttempts    int
	BaseDelay      time.Duration
	MaxDelay       time.Duration
	AttemptTimeout time.Duration
}

var DefaultRetryPolicy = RetryPolicy{
	MaxAttempts:    3,
	BaseDelay:      500 * time.Millisecond,
	MaxDelay:       10 * time.Second,
	AttemptTimeout: 30 * time.Second,
}

// retrier wraps a single provider call with the retry policy. Only
// transport failures and rate limiting are retried.
type retrier struct {
	policy  RetryPolicy
	jitter  func(max time.Duration) time.Duration
	sleep   func(ctx context.Context, d time.Duration) error
	onRetry func(operation string, attempt int, err error)
}

func newRetrier(policy RetryPolicy) *retrier {
	if policy.MaxAttempts < 1 {
		policy.MaxAttempts = 1
	}
	return &retrier{
		policy: policy,
		jitter: randomJitter,
		sleep:  sleepContext,
	}
}

// Do runs fn until it succeeds, fails with a non-retryable error, or the
// attempt budget is spent. It returns how many retries were performed.
func (r *retrier) Do(ctx context.Context, operation string, fn func(ctx context.Context) error) (int, error) {
	var lastErr error
	retries := 0

	for attempt := 1; attempt <= r.policy.MaxAttempts; attempt++ {
		if attempt > 1 {
			if err := r.sleep(ctx, r.backoff(retries)); err != nil {
				return retries, apperror.Wrap(err, apperror.KindTransport, "provider request cancelled")
			}
		}

		err := r.runAttempt(ctx, fn)
		if err == nil {
			return retries, nil
		}
		lastErr = err

		if !apperror.Retryable(err) || attempt == r.policy.MaxAttempts {
			break
		}

		retries++
		if r.onRetry != nil {
			r.onRetry(operation, attempt, err)
		}
	}

	return retries, lastErr
}

func (r *retrier) runAttempt(ctx context.Context, fn func(ctx context.Context) error) error {
	if r.policy.AttemptTimeout <= 0 {
		return fn(ctx)
	}
	attemptCtx, cancel := context.WithTimeout(ctx, r.policy.AttemptTimeout)
	defer cancel()
	return fn(attemptCtx)
}

// backoff returns the wait before retry number n (1-based):
// BaseDelay * 2^(n-1) plus up to BaseDelay of jitter, capped at MaxDelay.
func (r *retrier) backoff(n int) time.Duration {
	if n < 1 {
		n = 1
	}
	base := r.policy.BaseDelay
	delay := base << uint(n-1)
	if base > 0 && r.jitter != nil {
		delay += r.jitter(base)
	}
	if r.policy.MaxDelay > 0 && delay > r.policy.MaxDelay {
		delay = r.policy.MaxDelay
	}
	return delay
}

func randomJitter(max time.Duration) time.Duration {
	if max <= 0 {
		return 0
	}
	return time.Duration(rand.Int63n(int64(max)))
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

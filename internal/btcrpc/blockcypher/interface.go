package blockcypher

import (
	"context"

	"github.com/dwarvesf/paywatch/internal/consts"
)

type IClient interface {
	RegisterSubscription(ctx context.Context, address, callbackURL string, kind consts.EventKind) (*Subscription, error)
	ListSubscriptions(ctx context.Context) ([]Subscription, error)
	GetSubscription(ctx context.Context, id string) (*Subscription, error)
	// DeleteSubscription is idempotent: an unknown id is reported through
	// DeleteResult.AlreadyRemoved, not as an error.
	DeleteSubscription(ctx context.Context, id string) (*DeleteResult, error)
}

// RetryObserver is notified before every retry of a provider call.
type RetryObserver interface {
	ObserveRetry(operation string, attempt int, err error)
}

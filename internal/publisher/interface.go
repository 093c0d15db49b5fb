package publisher

import (
	"context"

	"github.com/dwarvesf/paywatch/internal/model"
)

type IPublisher interface {
	PublishStatusChanged(ctx context.Context, event PaymentStatusChanged) error
	Close() error
}

// PaymentStatusChanged is emitted after a transition changed the status of
// a monitored address.
type PaymentStatusChanged struct {
	Address        string              `json:"address"`
	PreviousStatus model.PaymentStatus `json:"previous_status"`
	Status         model.PaymentStatus `json:"status"`
	TransactionID  string              `json:"transaction_id,omitempty"`
	Confirmations  int64               `json:"confirmations"`
	ErrorMessage   *string             `json:"error_message,omitempty"`
	EventKind      string              `json:"event_kind"`
	OccurredAt     int64               `json:"occurred_at"`
}

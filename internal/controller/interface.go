package controller

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/dwarvesf/paywatch/internal/btcrpc/blockcypher"
	"github.com/dwarvesf/paywatch/internal/model"
	"github.com/dwarvesf/paywatch/internal/store/paymentstatus"
)

type IController interface {
	// ProcessNotification ingests one provider webhook. An error means the
	// notification itself was unacceptable; per-address store failures are
	// only counted in the report.
	ProcessNotification(ctx context.Context, eventKindHeader string, body []byte) (*IngestionReport, error)

	// CreatePaymentRequest derives a fresh address, starts monitoring it and
	// registers the provider hook.
	CreatePaymentRequest(ctx context.Context, amount decimal.Decimal) (*PaymentRequest, error)

	GetPaymentStatus(ctx context.Context, address string) (*model.PaymentStatusView, error)
	GetPayment(ctx context.Context, address string) (*model.PaymentStatusEntry, error)
	ListPayments(ctx context.Context, filter paymentstatus.ListFilter) (*PaymentList, error)
	PaymentStats(ctx context.Context) (*paymentstatus.Stats, error)
	DeletePayment(ctx context.Context, address string) (*DeletePaymentResult, error)
	EvictExpired(ctx context.Context, maxAge time.Duration) (int64, error)

	ListSubscriptions(ctx context.Context) ([]blockcypher.Subscription, error)
	GetSubscription(ctx context.Context, id string) (*blockcypher.Subscription, error)
	DeleteSubscription(ctx context.Context, id string) (*blockcypher.DeleteResult, error)
}

// IngestionReport summarizes what happened to the events of one notification.
// Processed includes Duplicates.
type IngestionReport struct {
	EventKind       string `json:"event_kind"`
	TransactionHash string `json:"transaction_hash"`
	Processed       int    `json:"processed"`
	Ignored         int    `json:"ignored"`
	Failed          int    `json:"failed"`
	Rejected        int    `json:"rejected"`
	Duplicates      int    `json:"duplicates"`
}

// PaymentRequest is returned to unauthenticated clients. The hook id, the
// derivation path and the creation time stay server side.
type PaymentRequest struct {
	ID                     string          `json:"id"`
	Address                string          `json:"address"`
	Amount                 decimal.Decimal `json:"amount"`
	AmountSatoshis         int64           `json:"amount_satoshis"`
	PaymentURI             string          `json:"payment_uri"`
	SubscriptionRegistered bool            `json:"subscription_registered"`

	DerivationPath string  `json:"-"`
	SubscriptionID *string `json:"-"`
	CreatedAt      int64   `json:"-"`
}

type PaymentList struct {
	Items  []model.PaymentStatusEntry `json:"items"`
	Total  int64                      `json:"total"`
	Limit  int                        `json:"limit"`
	Offset int                        `json:"offset"`
}

type DeletePaymentResult struct {
	Address           string `json:"address"`
	Deleted           bool   `json:"deleted"`
	SubscriptionID    string `json:"subscription_id,omitempty"`
	SubscriptionFreed bool   `json:"subscription_freed"`
}

package model

import (
	"github.com/shopspring/decimal"
)

type PaymentStatus string

const (
	PaymentStatusAwaitingPayment PaymentStatus = "awaiting_payment"
	PaymentStatusPaymentDetected PaymentStatus = "payment_detected"
	PaymentStatusConfirmed       PaymentStatus = "confirmed"
	PaymentStatusError           PaymentStatus = "error"
)

func (s PaymentStatus) IsValid() bool {
	switch s {
	case PaymentStatusAwaitingPayment, PaymentStatusPaymentDetected, PaymentStatusConfirmed, PaymentStatusError:
		return true
	}
	return false
}

// IsTerminal reports whether no further transition is expected. Terminal
// entries are still updated if the provider keeps sending notifications.
func (s PaymentStatus) IsTerminal() bool {
	return s == PaymentStatusConfirmed || s == PaymentStatusError
}

// PaymentStatusEntry is the persisted state of one monitored address.
// Timestamps are milliseconds since the unix epoch.
type PaymentStatusEntry struct {
	Address          string           `json:"address" gorm:"primaryKey"`
	Status           PaymentStatus    `json:"status" gorm:"not null;index"`
	ExpectedAmount   *decimal.Decimal `json:"expected_amount,omitempty" gorm:"type:numeric(16,8)"`
	SubscriptionID   *string          `json:"subscription_id,omitempty"`
	TransactionID    *string          `json:"transaction_id,omitempty"`
	Confirmations    *int64           `json:"confirmations,omitempty"`
	Confidence       *float64         `json:"confidence,omitempty"`
	ReceivedSatoshis *int64           `json:"received_satoshis,omitempty"`
	ErrorMessage     *string          `json:"error_message,omitempty"`
	CreatedAt        int64            `json:"created_at" gorm:"not null;index;autoCreateTime:false"`
	LastUpdated      int64            `json:"last_updated" gorm:"not null"`
}

func (PaymentStatusEntry) TableName() string {
	return "payment_statuses"
}

// PaymentStatusView is the subset of an entry that may be shown to the
// payer. Expected amount, subscription id and creation time stay internal.
type PaymentStatusView struct {
	Status        PaymentStatus `json:"status"`
	Confirmations *int64        `json:"confirmations,omitempty"`
	TransactionID *string       `json:"transaction_id,omitempty"`
	ErrorMessage  *string       `json:"error_message,omitempty"`
	LastUpdated   int64         `json:"last_updated"`
}

func (e *PaymentStatusEntry) View() *PaymentStatusView {
	return &PaymentStatusView{
		Status:        e.Status,
		Confirmations: copyInt64(e.Confirmations),
		TransactionID: copyString(e.TransactionID),
		ErrorMessage:  copyString(e.ErrorMessage),
		LastUpdated:   e.LastUpdated,
	}
}

// Clone returns a deep copy so callers can mutate it freely.
func (e PaymentStatusEntry) Clone() PaymentStatusEntry {
	out := e
	if e.ExpectedAmount != nil {
		amt := *e.ExpectedAmount
		out.ExpectedAmount = &amt
	}
	out.SubscriptionID = copyString(e.SubscriptionID)
	out.TransactionID = copyString(e.TransactionID)
	out.Confirmations = copyInt64(e.Confirmations)
	out.ReceivedSatoshis = copyInt64(e.ReceivedSatoshis)
	out.ErrorMessage = copyString(e.ErrorMessage)
	if e.Confidence != nil {
		c := *e.Confidence
		out.Confidence = &c
	}
	return out
}

func copyString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

func copyInt64(i *int64) *int64 {
	if i == nil {
		return nil
	}
	v := *i
	return &v
}

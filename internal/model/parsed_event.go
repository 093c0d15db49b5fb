package model

import "time"

// ParsedEvent is one address-level observation extracted from a provider
// notification. It is consumed immediately and never stored as-is.
type ParsedEvent struct {
	TransactionHash     string
	Address             string
	Status              PaymentStatus
	TotalAmountSatoshis *int64
	FeesSatoshis        *int64
	Confidence          *float64
	Confirmations       int64
	IsDoubleSpend       bool
	ObservedAt          time.Time
}

package paymentstatus

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/dwarvesf/paywatch/internal/model"
)

type IStore interface {
	// Initialize creates an awaiting_payment entry. An existing entry is left
	// untouched and created is false.
	Initialize(tx *gorm.DB, address string, expectedAmount *decimal.Decimal, subscriptionID *string) (created bool, err error)

	// AttachSubscription records the provider hook id of a monitored address.
	AttachSubscription(tx *gorm.DB, address, subscriptionID string) (bool, error)

	// IsMonitored reports whether an entry exists, whatever its status.
	IsMonitored(tx *gorm.DB, address string) (bool, error)

	// ApplyTransition updates an existing entry in a single statement and
	// never creates one. A double spend is stored as an error. It reports
	// whether a row was updated.
	ApplyTransition(tx *gorm.DB, address string, t Transition) (bool, error)

	// Get returns nil, nil when the address is not monitored.
	Get(tx *gorm.DB, address string) (*model.PaymentStatusEntry, error)
	Delete(tx *gorm.DB, address string) (bool, error)
	ListAll(tx *gorm.DB) ([]model.PaymentStatusEntry, error)
	Find(tx *gorm.DB, filter ListFilter) ([]model.PaymentStatusEntry, int64, error)
	Stats(tx *gorm.DB) (*Stats, error)

	// EvictOlderThan removes entries created more than maxAge ago.
	EvictOlderThan(tx *gorm.DB, maxAge time.Duration) (int64, error)

	// PopOlderThan removes the same entries as EvictOlderThan and returns
	// them, so their provider hooks can be released. Run it in a transaction.
	PopOlderThan(tx *gorm.DB, maxAge time.Duration) ([]model.PaymentStatusEntry, error)
}

// Transition is the change a parsed event asks for. Nil fields keep the
// stored value.
type Transition struct {
	Status         model.PaymentStatus
	TransactionID  *string
	Confirmations  *int64
	AmountSatoshis *int64
	Confidence     *float64
	IsDoubleSpend  bool
}

type ListFilter struct {
	Status model.PaymentStatus
	Limit  int
	Offset int
}

type Stats struct {
	TotalEntries    int64                         `json:"total_entries"`
	CountsByStatus  map[model.PaymentStatus]int64 `json:"counts_by_status"`
	OldestTimestamp *int64                        `json:"oldest_timestamp"`
	NewestTimestamp *int64                        `json:"newest_timestamp"`
}

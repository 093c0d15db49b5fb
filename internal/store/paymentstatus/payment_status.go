package paymentstatus

import (
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/dwarvesf/paywatch/internal/consts"
	"github.com/dwarvesf/paywatch/internal/model"
)

type store struct {
	now func() time.Time
}

func New() IStore {
	return &store{now: time.Now}
}

func (s *store) nowMillis() int64 {
	return s.now().UnixMilli()
}

func (s *store) Initialize(tx *gorm.DB, address string, expectedAmount *decimal.Decimal, subscriptionID *string) (bool, error) {
	if address == "" {
		return false, errors.New("address is required")
	}

	ts := s.nowMillis()
	entry := model.PaymentStatusEntry{
		Address:        address,
		Status:         model.PaymentStatusAwaitingPayment,
		ExpectedAmount: expectedAmount,
		SubscriptionID: subscriptionID,
		CreatedAt:      ts,
		LastUpdated:    ts,
	}

	result := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "address"}},
		DoNothing: true,
	}).Create(&entry)
	if result.Error != nil {
		return false, errors.Wrapf(result.Error, "failed to initialize payment status for %s", address)
	}

	return result.RowsAffected > 0, nil
}

func (s *store) AttachSubscription(tx *gorm.DB, address, subscriptionID string) (bool, error) {
	result := tx.Model(&model.PaymentStatusEntry{}).
		Where("address = ?", address).
		Updates(map[string]interface{}{
			"subscription_id": subscriptionID,
			"last_updated":    s.nowMillis(),
		})
	if result.Error != nil {
		return false, errors.Wrapf(result.Error, "failed to attach subscription to %s", address)
	}
	return result.RowsAffected > 0, nil
}

func (s *store) IsMonitored(tx *gorm.DB, address string) (bool, error) {
	var count int64
	err := tx.Model(&model.PaymentStatusEntry{}).Where("address = ?", address).Count(&count).Error
	if err != nil {
		return false, errors.Wrapf(err, "failed to check monitored address %s", address)
	}
	return count > 0, nil
}

func (s *store) ApplyTransition(tx *gorm.DB, address string, t Transition) (bool, error) {
	if !t.Status.IsValid() {
		return false, errors.Errorf("invalid payment status %q", t.Status)
	}
	// a double spend is always an error, whatever status the caller derived
	if t.IsDoubleSpend {
		t.Status = model.PaymentStatusError
	}

	updates := map[string]interface{}{
		"status":        t.Status,
		"error_message": errorMessageFor(t),
		"last_updated":  s.nowMillis(),
	}
	if t.TransactionID != nil {
		updates["transaction_id"] = *t.TransactionID
	}
	if t.Confirmations != nil {
		updates["confirmations"] = *t.Confirmations
	}
	if t.AmountSatoshis != nil {
		updates["received_satoshis"] = *t.AmountSatoshis
	}
	if t.Confidence != nil {
		updates["confidence"] = *t.Confidence
	}

	result := tx.Model(&model.PaymentStatusEntry{}).
		Where("address = ?", address).
		Updates(updates)
	if result.Error != nil {
		return false, errors.Wrapf(result.Error, "failed to apply transition to %s", address)
	}

	return result.RowsAffected > 0, nil
}

// errorMessageFor returns nil (a NULL column) unless the status is an error
// or the transaction was double spent.
func errorMessageFor(t Transition) *string {
	var msg string
	switch {
	case t.IsDoubleSpend:
		msg = consts.DoubleSpendErrorMessage
	case t.Status == model.PaymentStatusError:
		msg = consts.PaymentProcessingErrorMessage
	default:
		return nil
	}
	return &msg
}

func (s *store) Get(tx *gorm.DB, address string) (*model.PaymentStatusEntry, error) {
	var entry model.PaymentStatusEntry
	err := tx.Where("address = ?", address).First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to get payment status for %s", address)
	}
	return &entry, nil
}

func (s *store) Delete(tx *gorm.DB, address string) (bool, error) {
	result := tx.Where("address = ?", address).Delete(&model.PaymentStatusEntry{})
	if result.Error != nil {
		return false, errors.Wrapf(result.Error, "failed to delete payment status for %s", address)
	}
	return result.RowsAffected > 0, nil
}

func (s *store) ListAll(tx *gorm.DB) ([]model.PaymentStatusEntry, error) {
	var entries []model.PaymentStatusEntry
	if err := tx.Order("created_at ASC").Find(&entries).Error; err != nil {
		return nil, errors.Wrap(err, "failed to list payment statuses")
	}
	return entries, nil
}

func (s *store) Find(tx *gorm.DB, filter ListFilter) ([]model.PaymentStatusEntry, int64, error) {
	var (
		entries []model.PaymentStatusEntry
		total   int64
	)

	query := tx.Model(&model.PaymentStatusEntry{})
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, errors.Wrap(err, "failed to count payment statuses")
	}

	query = query.Order("last_updated DESC").Offset(filter.Offset)
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	if err := query.Find(&entries).Error; err != nil {
		return nil, 0, errors.Wrap(err, "failed to find payment statuses")
	}

	return entries, total, nil
}

func (s *store) Stats(tx *gorm.DB) (*Stats, error) {
	var rows []struct {
		Status model.PaymentStatus
		Count  int64
	}
	err := tx.Model(&model.PaymentStatusEntry{}).
		Select("status, COUNT(*) AS count").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to count payment statuses by status")
	}

	stats := &Stats{CountsByStatus: make(map[model.PaymentStatus]int64, len(rows))}
	for _, row := range rows {
		stats.CountsByStatus[row.Status] = row.Count
		stats.TotalEntries += row.Count
	}
	if stats.TotalEntries == 0 {
		return stats, nil
	}

	var bounds struct {
		Oldest int64
		Newest int64
	}
	err = tx.Model(&model.PaymentStatusEntry{}).
		Select("MIN(created_at) AS oldest, MAX(created_at) AS newest").
		Scan(&bounds).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to read payment status time bounds")
	}
	stats.OldestTimestamp = &bounds.Oldest
	stats.NewestTimestamp = &bounds.Newest

	return stats, nil
}

func (s *store) EvictOlderThan(tx *gorm.DB, maxAge time.Duration) (int64, error) {
	if maxAge < 0 {
		return 0, errors.New("max age must not be negative")
	}

	cutoff := s.now().Add(-maxAge).UnixMilli()
	result := tx.Where("created_at < ?", cutoff).Delete(&model.PaymentStatusEntry{})
	if result.Error != nil {
		return 0, errors.Wrap(result.Error, "failed to evict payment statuses")
	}
	return result.RowsAffected, nil
}

func (s *store) PopOlderThan(tx *gorm.DB, maxAge time.Duration) ([]model.PaymentStatusEntry, error) {
	if maxAge < 0 {
		return nil, errors.New("max age must not be negative")
	}

	cutoff := s.now().Add(-maxAge).UnixMilli()
	var entries []model.PaymentStatusEntry
	if err := tx.Where("created_at < ?", cutoff).Order("created_at ASC").Find(&entries).Error; err != nil {
		return nil, errors.Wrap(err, "failed to read expired payment statuses")
	}
	if len(entries) == 0 {
		return entries, nil
	}

	addresses := make([]string, 0, len(entries))
	for _, e := range entries {
		addresses = append(addresses, e.Address)
	}
	result := tx.Where("address IN ? AND created_at < ?", addresses, cutoff).Delete(&model.PaymentStatusEntry{})
	if result.Error != nil {
		return nil, errors.Wrap(result.Error, "failed to evict payment statuses")
	}
	return entries, nil
}

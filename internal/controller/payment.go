package controller

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/dwarvesf/paywatch/internal/consts"
	"github.com/dwarvesf/paywatch/internal/model"
	"github.com/dwarvesf/paywatch/internal/store"
	"github.com/dwarvesf/paywatch/internal/store/paymentstatus"
	"github.com/dwarvesf/paywatch/internal/types/apperror"
)

func (c *Controller) CreatePaymentRequest(ctx context.Context, amount decimal.Decimal) (*PaymentRequest, error) {
	start := time.Now()
	req, err := c.createPaymentRequest(ctx, amount)

	status := "success"
	if err != nil {
		status = "error"
	} else if !req.SubscriptionRegistered {
		status = "degraded"
	}
	if c.businessMetrics != nil {
		c.businessMetrics.RecordPaymentRequest(status, time.Since(start).Seconds())
	}

	return req, err
}

func (c *Controller) createPaymentRequest(ctx context.Context, amount decimal.Decimal) (*PaymentRequest, error) {
	sats, err := validatePaymentAmount(amount)
	if err != nil {
		return nil, err
	}

	derived, err := c.wallet.GenerateAddress(ctx)
	if err != nil {
		c.logger.Error("[CreatePaymentRequest][GenerateAddress]", map[string]string{
			"error": err.Error(),
		})
		return nil, apperror.Wrap(err, apperror.KindInternal, "failed to derive a receive address")
	}

	db := c.db.WithContext(ctx)
	if _, err := c.store.PaymentStatus.Initialize(db, derived.Address, &amount, nil); err != nil {
		c.logger.Error("[CreatePaymentRequest][Initialize]", map[string]string{
			"address": derived.Address,
			"error":   err.Error(),
		})
		return nil, apperror.Store(err, "failed to start monitoring the payment address")
	}

	req := &PaymentRequest{
		ID:             uuid.NewString(),
		Address:        derived.Address,
		DerivationPath: derived.Path,
		Amount:         amount,
		AmountSatoshis: sats,
		PaymentURI:     paymentURI(derived.Address, amount),
		CreatedAt:      c.now().UnixMilli(),
	}

	// the payment is monitored either way; without a hook it just never
	// receives notifications until an operator registers one
	sub, err := c.client.RegisterSubscription(ctx, derived.Address, c.config.CallbackURL(), consts.EventKind(c.config.BlockCypher.HookEvent))
	if err != nil {
		c.logger.Warn("[CreatePaymentRequest][RegisterSubscription]", map[string]string{
			"address": derived.Address,
			"error":   err.Error(),
		})
		return req, nil
	}

	req.SubscriptionRegistered = true
	req.SubscriptionID = &sub.ID
	if _, err := c.store.PaymentStatus.AttachSubscription(db, derived.Address, sub.ID); err != nil {
		c.logger.Error("[CreatePaymentRequest][AttachSubscription]", map[string]string{
			"address": derived.Address,
			"hook_id": sub.ID,
			"error":   err.Error(),
		})
	}

	c.logger.Info("[CreatePaymentRequest] payment request created", map[string]string{
		"request_id": req.ID,
		"address":    req.Address,
		"path":       req.DerivationPath,
		"amount":     amount.String(),
		"hook_id":    sub.ID,
		"created_at": strconv.FormatInt(req.CreatedAt, 10),
	})
	return req, nil
}

func validatePaymentAmount(amount decimal.Decimal) (int64, error) {
	if !amount.IsPositive() {
		return 0, apperror.InvalidInput("amount must be positive")
	}
	sats, ok := model.BTCToSatoshi(amount)
	if !ok {
		return 0, apperror.InvalidInput("amount has more than %d decimal places", consts.BTC_DECIMALS)
	}
	if sats < consts.DUST_LIMIT_SATOSHI {
		return 0, apperror.InvalidInput("amount is below the dust limit of %d satoshi", consts.DUST_LIMIT_SATOSHI)
	}
	return sats, nil
}

// paymentURI builds a BIP21 URI.
func paymentURI(address string, amount decimal.Decimal) string {
	q := url.Values{}
	q.Set("amount", amount.String())
	return fmt.Sprintf("bitcoin:%s?%s", address, q.Encode())
}

func (c *Controller) GetPaymentStatus(ctx context.Context, address string) (*model.PaymentStatusView, error) {
	entry, err := c.GetPayment(ctx, address)
	if err != nil {
		return nil, err
	}
	return entry.View(), nil
}

func (c *Controller) GetPayment(ctx context.Context, address string) (*model.PaymentStatusEntry, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return nil, apperror.InvalidInput("address is required")
	}

	entry, err := c.store.PaymentStatus.Get(c.db.WithContext(ctx), address)
	if err != nil {
		c.logger.Error("[GetPayment][Get]", map[string]string{
			"address": address,
			"error":   err.Error(),
		})
		return nil, apperror.Store(err, "failed to read payment status")
	}
	if entry == nil {
		return nil, apperror.NotFound("address %s is not monitored", address)
	}

	return entry, nil
}

func (c *Controller) ListPayments(ctx context.Context, filter paymentstatus.ListFilter) (*PaymentList, error) {
	if filter.Status != "" && !filter.Status.IsValid() {
		return nil, apperror.InvalidInput("unknown status %q", filter.Status)
	}
	if filter.Offset < 0 {
		return nil, apperror.InvalidInput("offset must not be negative")
	}
	if filter.Limit <= 0 {
		filter.Limit = defaultListLimit
	}
	if filter.Limit > maxListLimit {
		filter.Limit = maxListLimit
	}

	items, total, err := c.store.PaymentStatus.Find(c.db.WithContext(ctx), filter)
	if err != nil {
		c.logger.Error("[ListPayments][Find]", map[string]string{
			"error": err.Error(),
		})
		return nil, apperror.Store(err, "failed to list payments")
	}

	return &PaymentList{
		Items:  items,
		Total:  total,
		Limit:  filter.Limit,
		Offset: filter.Offset,
	}, nil
}

func (c *Controller) PaymentStats(ctx context.Context) (*paymentstatus.Stats, error) {
	stats, err := c.store.PaymentStatus.Stats(c.db.WithContext(ctx))
	if err != nil {
		c.logger.Error("[PaymentStats][Stats]", map[string]string{
			"error": err.Error(),
		})
		return nil, apperror.Store(err, "failed to compute payment stats")
	}
	return stats, nil
}

// DeletePayment stops monitoring an address. The provider hook is removed
// after the row is gone; failing to remove it is logged, not returned.
func (c *Controller) DeletePayment(ctx context.Context, address string) (*DeletePaymentResult, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return nil, apperror.InvalidInput("address is required")
	}

	var entry *model.PaymentStatusEntry
	err := store.DoInTx(c.db.WithContext(ctx), func(tx *gorm.DB) error {
		var err error
		entry, err = c.store.PaymentStatus.Get(tx, address)
		if err != nil || entry == nil {
			return err
		}
		_, err = c.store.PaymentStatus.Delete(tx, address)
		return err
	})
	if err != nil {
		c.logger.Error("[DeletePayment][DoInTx]", map[string]string{
			"address": address,
			"error":   err.Error(),
		})
		return nil, apperror.Store(err, "failed to delete payment")
	}
	if entry == nil {
		return nil, apperror.NotFound("address %s is not monitored", address)
	}

	res := &DeletePaymentResult{Address: address, Deleted: true}
	if entry.SubscriptionID == nil || *entry.SubscriptionID == "" {
		return res, nil
	}

	res.SubscriptionID = *entry.SubscriptionID
	if _, err := c.client.DeleteSubscription(ctx, res.SubscriptionID); err != nil {
		c.logger.Warn("[DeletePayment][DeleteSubscription]", map[string]string{
			"address": address,
			"hook_id": res.SubscriptionID,
			"error":   err.Error(),
		})
		return res, nil
	}
	res.SubscriptionFreed = true

	return res, nil
}

// EvictExpired removes payments created more than maxAge ago and releases
// their provider hooks. Hook removal failures are logged, not returned.
func (c *Controller) EvictExpired(ctx context.Context, maxAge time.Duration) (int64, error) {
	if maxAge <= 0 {
		return 0, apperror.InvalidInput("max age must be positive")
	}

	start := time.Now()
	var evicted []model.PaymentStatusEntry
	err := store.DoInTx(c.db.WithContext(ctx), func(tx *gorm.DB) error {
		var err error
		evicted, err = c.store.PaymentStatus.PopOlderThan(tx, maxAge)
		return err
	})
	if c.businessMetrics != nil {
		status := "success"
		if err != nil {
			status = "error"
		}
		c.businessMetrics.RecordDatabaseOperation("evict", status, time.Since(start).Seconds())
	}
	if err != nil {
		c.logger.Error("[EvictExpired][PopOlderThan]", map[string]string{
			"max_age": maxAge.String(),
			"error":   err.Error(),
		})
		return 0, apperror.Store(err, "failed to evict expired payments")
	}

	freed, failed := 0, 0
	for _, entry := range evicted {
		if entry.SubscriptionID == nil || *entry.SubscriptionID == "" {
			continue
		}
		if _, err := c.client.DeleteSubscription(ctx, *entry.SubscriptionID); err != nil {
			failed++
			c.logger.Warn("[EvictExpired][DeleteSubscription]", map[string]string{
				"address": entry.Address,
				"hook_id": *entry.SubscriptionID,
				"error":   err.Error(),
			})
			continue
		}
		freed++
	}

	removed := int64(len(evicted))
	c.logger.Info("[EvictExpired] expired payments evicted", map[string]string{
		"max_age":      maxAge.String(),
		"removed":      strconv.FormatInt(removed, 10),
		"hooks_freed":  strconv.Itoa(freed),
		"hooks_failed": strconv.Itoa(failed),
	})
	return removed, nil
}

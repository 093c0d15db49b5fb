package controller

import (
	"context"
	"time"

	"github.com/dwarvesf/paywatch/internal/btcrpc/blockcypher"
)

func (c *Controller) ListSubscriptions(ctx context.Context) ([]blockcypher.Subscription, error) {
	start := time.Now()
	subs, err := c.client.ListSubscriptions(ctx)
	c.recordSubscriptionOperation("list", err, start)
	return subs, err
}

func (c *Controller) GetSubscription(ctx context.Context, id string) (*blockcypher.Subscription, error) {
	start := time.Now()
	sub, err := c.client.GetSubscription(ctx, id)
	c.recordSubscriptionOperation("get", err, start)
	return sub, err
}

func (c *Controller) DeleteSubscription(ctx context.Context, id string) (*blockcypher.DeleteResult, error) {
	start := time.Now()
	res, err := c.client.DeleteSubscription(ctx, id)
	c.recordSubscriptionOperation("delete", err, start)
	if err == nil {
		c.logger.Info("[DeleteSubscription] hook deleted", map[string]string{
			"hook_id": id,
		})
	}
	return res, err
}

func (c *Controller) recordSubscriptionOperation(op string, err error, start time.Time) {
	if c.businessMetrics == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	c.businessMetrics.RecordSubscriptionOperation(op, status, time.Since(start).Seconds())
}

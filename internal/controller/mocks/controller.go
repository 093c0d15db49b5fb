// Package mocks holds testify mocks of the controller for handler tests.
package mocks

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"

	"github.com/dwarvesf/paywatch/internal/btcrpc/blockcypher"
	"github.com/dwarvesf/paywatch/internal/controller"
	"github.com/dwarvesf/paywatch/internal/model"
	"github.com/dwarvesf/paywatch/internal/store/paymentstatus"
)

type Controller struct {
	mock.Mock
}

var _ controller.IController = (*Controller)(nil)

func (m *Controller) ProcessNotification(ctx context.Context, eventKindHeader string, body []byte) (*controller.IngestionReport, error) {
	args := m.Called(ctx, eventKindHeader, body)
	if r := args.Get(0); r != nil {
		return r.(*controller.IngestionReport), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *Controller) CreatePaymentRequest(ctx context.Context, amount decimal.Decimal) (*controller.PaymentRequest, error) {
	args := m.Called(ctx, amount)
	if r := args.Get(0); r != nil {
		return r.(*controller.PaymentRequest), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *Controller) GetPaymentStatus(ctx context.Context, address string) (*model.PaymentStatusView, error) {
	args := m.Called(ctx, address)
	if r := args.Get(0); r != nil {
		return r.(*model.PaymentStatusView), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *Controller) GetPayment(ctx context.Context, address string) (*model.PaymentStatusEntry, error) {
	args := m.Called(ctx, address)
	if r := args.Get(0); r != nil {
		return r.(*model.PaymentStatusEntry), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *Controller) ListPayments(ctx context.Context, filter paymentstatus.ListFilter) (*controller.PaymentList, error) {
	args := m.Called(ctx, filter)
	if r := args.Get(0); r != nil {
		return r.(*controller.PaymentList), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *Controller) PaymentStats(ctx context.Context) (*paymentstatus.Stats, error) {
	args := m.Called(ctx)
	if r := args.Get(0); r != nil {
		return r.(*paymentstatus.Stats), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *Controller) DeletePayment(ctx context.Context, address string) (*controller.DeletePaymentResult, error) {
	args := m.Called(ctx, address)
	if r := args.Get(0); r != nil {
		return r.(*controller.DeletePaymentResult), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *Controller) EvictExpired(ctx context.Context, maxAge time.Duration) (int64, error) {
	args := m.Called(ctx, maxAge)
	return args.Get(0).(int64), args.Error(1)
}

func (m *Controller) ListSubscriptions(ctx context.Context) ([]blockcypher.Subscription, error) {
	args := m.Called(ctx)
	if r := args.Get(0); r != nil {
		return r.([]blockcypher.Subscription), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *Controller) GetSubscription(ctx context.Context, id string) (*blockcypher.Subscription, error) {
	args := m.Called(ctx, id)
	if r := args.Get(0); r != nil {
		return r.(*blockcypher.Subscription), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *Controller) DeleteSubscription(ctx context.Context, id string) (*blockcypher.DeleteResult, error) {
	args := m.Called(ctx, id)
	if r := args.Get(0); r != nil {
		return r.(*blockcypher.DeleteResult), args.Error(1)
	}
	return nil, args.Error(1)
}

package publisher

import "context"

type noop struct{}

func NewNoop() IPublisher {
	return noop{}
}

func (noop) PublishStatusChanged(context.Context, PaymentStatusChanged) error { return nil }

func (noop) Close() error { return nil }

package consts

const (
	BTC_DECIMALS = 8

	// SATOSHI_PER_BTC is 10^BTC_DECIMALS.
	SATOSHI_PER_BTC = 100_000_000

	// DUST_LIMIT_SATOSHI is the smallest payment amount accepted when a
	// payment request is created.
	DUST_LIMIT_SATOSHI = 546

	ProductName    = "paywatch"
	ProductVersion = "1.0.0"

	// EventTypeHeader carries the event kind on inbound provider callbacks.
	EventTypeHeader = "X-EventType"

	DoubleSpendErrorMessage       = "Double spend detected"
	PaymentProcessingErrorMessage = "Payment processing error"
)

// EventKind is the provider's webhook event name.
type EventKind string

const (
	EventUnconfirmedTx  EventKind = "unconfirmed-tx"
	EventConfirmedTx    EventKind = "confirmed-tx"
	EventTxConfirmation EventKind = "tx-confirmation"
	EventNewBlock       EventKind = "new-block"
	EventDoubleSpendTx  EventKind = "double-spend-tx"
)

var recognizedEventKinds = map[EventKind]struct{}{
	EventUnconfirmedTx:  {},
	EventConfirmedTx:    {},
	EventTxConfirmation: {},
	EventNewBlock:       {},
	EventDoubleSpendTx:  {},
}

// IsRecognized reports whether kind is one of the event kinds the
// ingestion path accepts.
func (k EventKind) IsRecognized() bool {
	_, ok := recognizedEventKinds[k]
	return ok
}

// UserAgent is sent on every outbound provider request.
func UserAgent() string {
	return ProductName + "/" + ProductVersion
}

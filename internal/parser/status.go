package parser

import (
	"strings"

	"github.com/dwarvesf/paywatch/internal/consts"
	"github.com/dwarvesf/paywatch/internal/model"
)

// MinTransactionHashLength is the length of a hex encoded txid.
const MinTransactionHashLength = 64

// TestnetAddressPrefixes are the leading characters of testnet P2PKH, P2SH
// and bech32 addresses.
var TestnetAddressPrefixes = []string{"m", "n", "2", "tb1"}

// DeriveStatus maps a notification onto a payment status. Any double spend
// wins, unconfirmed events only ever detect, and everything else is driven
// by the confirmation count.
func DeriveStatus(kind consts.EventKind, confirmations int64, doubleSpend bool) model.PaymentStatus {
	if doubleSpend {
		return model.PaymentStatusError
	}

	switch kind {
	case consts.EventDoubleSpendTx:
		return model.PaymentStatusError
	case consts.EventUnconfirmedTx:
		return model.PaymentStatusPaymentDetected
	default:
		// confirmed-tx, tx-confirmation, new-block and unknown kinds
		if confirmations >= 1 {
			return model.PaymentStatusConfirmed
		}
		return model.PaymentStatusPaymentDetected
	}
}

// IsValidTransaction is the last gate before an event may reach the store.
func IsValidTransaction(ev model.ParsedEvent) bool {
	if len(ev.TransactionHash) < MinTransactionHashLength {
		return false
	}
	if !hasTestnetPrefix(ev.Address) {
		return false
	}
	if ev.Confirmations < 0 {
		return false
	}
	if ev.TotalAmountSatoshis != nil && *ev.TotalAmountSatoshis <= 0 {
		return false
	}
	return true
}

func hasTestnetPrefix(address string) bool {
	for _, prefix := range TestnetAddressPrefixes {
		if strings.HasPrefix(address, prefix) {
			return true
		}
	}
	return false
}

package model

import (
	"github.com/shopspring/decimal"

	"github.com/dwarvesf/paywatch/internal/consts"
)

// SatoshiToBTC converts an integer satoshi amount to BTC.
func SatoshiToBTC(sats int64) decimal.Decimal {
	return decimal.New(sats, -consts.BTC_DECIMALS)
}

// BTCToSatoshi converts a BTC amount to satoshis. ok is false when the
// amount has more than eight decimal places.
func BTCToSatoshi(btc decimal.Decimal) (sats int64, ok bool) {
	scaled := btc.Shift(consts.BTC_DECIMALS)
	if !scaled.Equal(scaled.Truncate(0)) {
		return 0, false
	}
	return scaled.IntPart(), true
}

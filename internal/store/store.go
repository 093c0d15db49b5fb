package store

import (
	"gorm.io/gorm"

	"github.com/dwarvesf/paywatch/internal/store/paymentstatus"
	"github.com/dwarvesf/paywatch/internal/store/walletcursor"
)

type Store struct {
	PaymentStatus paymentstatus.IStore
	WalletCursor  walletcursor.IStore
}

func New(db *gorm.DB) *Store {
	return &Store{
		PaymentStatus: paymentstatus.New(),
		WalletCursor:  walletcursor.New(),
	}
}

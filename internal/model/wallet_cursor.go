package model

// WalletCursor holds the next unused derivation index of an HD wallet.
type WalletCursor struct {
	Name      string `gorm:"primaryKey"`
	NextIndex uint32 `gorm:"not null;default:0"`
	UpdatedAt int64  `gorm:"autoUpdateTime:milli"`
}

func (WalletCursor) TableName() string {
	return "wallet_cursors"
}

package walletcursor

import "gorm.io/gorm"

type IStore interface {
	// Next reserves the next unused derivation index of the named wallet.
	// Concurrent callers, in any process, never receive the same index.
	Next(tx *gorm.DB, name string) (uint32, error)
	Peek(tx *gorm.DB, name string) (uint32, error)
}

package wallet

import "context"

type IGenerator interface {
	// GenerateAddress hands out a receive address that was never returned
	// before by any process sharing the database.
	GenerateAddress(ctx context.Context) (*DerivedAddress, error)
}

type DerivedAddress struct {
	Address string `json:"address"`
	Index   uint32 `json:"index"`
	Path    string `json:"path"`
}

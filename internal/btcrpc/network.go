package btcrpc

import (
	"strings"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/pkg/errors"
)

const (
	NetworkMain  = "main"
	NetworkTest3 = "test3"
)

// NetworkParams maps the provider network selector onto chain params.
// Anything other than "main" is treated as testnet.
func NetworkParams(network string) *chaincfg.Params {
	if strings.EqualFold(network, NetworkMain) {
		return &chaincfg.MainNetParams
	}
	return &chaincfg.TestNet3Params
}

// DecodeAddress decodes address and checks that it belongs to params' network.
func DecodeAddress(address string, params *chaincfg.Params) (btcutil.Address, error) {
	addr, err := btcutil.DecodeAddress(address, params)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to decode address %q", address)
	}
	if !addr.IsForNet(params) {
		return nil, errors.Errorf("address %q is not a %s address", address, params.Name)
	}

	return addr, nil
}

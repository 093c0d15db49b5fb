// Package wallet derives BIP84 receive addresses from an account extended
// public key. Private keys never touch this service.
package wallet

import (
	"context"
	"fmt"
	"strconv"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/btcutil/hdkeychain"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/dwarvesf/paywatch/internal/btcrpc"
	"github.com/dwarvesf/paywatch/internal/store/walletcursor"
	"github.com/dwarvesf/paywatch/internal/utils/config"
	"github.com/dwarvesf/paywatch/internal/utils/logger"
)

// external chain of the account: m/84'/coin'/0'/0/index
const externalChain = 0

type generator struct {
	external   *hdkeychain.ExtendedKey
	params     *chaincfg.Params
	cursorName string
	db         *gorm.DB
	cursor     walletcursor.IStore
	logger     *logger.Logger
}

func New(cfg *config.AppConfig, db *gorm.DB, cursor walletcursor.IStore, logger *logger.Logger) (IGenerator, error) {
	if cfg.Wallet.XPub == "" {
		return nil, errors.New("WALLET_XPUB is not set")
	}

	key, err := hdkeychain.NewKeyFromString(cfg.Wallet.XPub)
	if err != nil {
		return nil, errors.Wrap(err, "invalid wallet extended key")
	}
	if key.IsPrivate() {
		key, err = key.Neuter()
		if err != nil {
			return nil, errors.Wrap(err, "failed to neuter wallet key")
		}
	}

	external, err := key.Derive(externalChain)
	if err != nil {
		return nil, errors.Wrap(err, "failed to derive external chain")
	}

	cursorName := cfg.Wallet.CursorName
	if cursorName == "" {
		cursorName = "default"
	}

	return &generator{
		external:   external,
		params:     btcrpc.NetworkParams(cfg.BlockCypher.Network),
		cursorName: cursorName,
		db:         db,
		cursor:     cursor,
		logger:     logger,
	}, nil
}

func (g *generator) GenerateAddress(ctx context.Context) (*DerivedAddress, error) {
	for {
		index, err := g.cursor.Next(g.db.WithContext(ctx), g.cursorName)
		if err != nil {
			g.logger.Error("[GenerateAddress][cursor.Next]", map[string]string{
				"cursor": g.cursorName,
				"error":  err.Error(),
			})
			return nil, err
		}

		address, err := DeriveAddress(g.external, index, g.params)
		if errors.Is(err, hdkeychain.ErrInvalidChild) {
			// about 1 in 2^127, the next index is used instead
			g.logger.Warn("[GenerateAddress] skipping invalid child", map[string]string{
				"index": strconv.FormatUint(uint64(index), 10),
			})
			continue
		}
		if err != nil {
			return nil, err
		}

		return &DerivedAddress{
			Address: address,
			Index:   index,
			Path:    fmt.Sprintf("%d/%d", externalChain, index),
		}, nil
	}
}

// DeriveAddress returns the P2WPKH address of child index of chainKey.
func DeriveAddress(chainKey *hdkeychain.ExtendedKey, index uint32, params *chaincfg.Params) (string, error) {
	if index >= hdkeychain.HardenedKeyStart {
		return "", errors.Errorf("index %d is out of the non-hardened range", index)
	}

	child, err := chainKey.Derive(index)
	if err != nil {
		return "", err
	}
	pubKey, err := child.ECPubKey()
	if err != nil {
		return "", errors.Wrap(err, "failed to read child public key")
	}

	addr, err := btcutil.NewAddressWitnessPubKeyHash(btcutil.Hash160(pubKey.SerializeCompressed()), params)
	if err != nil {
		return "", errors.Wrap(err, "failed to encode address")
	}
	return addr.EncodeAddress(), nil
}

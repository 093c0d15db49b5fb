package blockcypher

import (
	"bytes"
	"sync"
	"testing"
	"time"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/stretchr/testify/require"

	"github.com/dwarvesf/paywatch/internal/utils/config"
)

const testToken = "secret-token"

func testConfig(apiURL string) *config.AppConfig {
	return &config.AppConfig{
		BlockCypher: config.BlockCypherConfig{
			APIURL:            apiURL,
			Token:             testToken,
			Network:           "test3",
			HookConfirmations: 1,
			MaxAttempts:       3,
			RetryBaseDelay:    time.Millisecond,
			RetryMaxDelay:     5 * time.Millisecond,
			AttemptTimeout:    2 * time.Second,
		},
	}
}

func testnetAddress(t *testing.T, seed byte) string {
	addr, err := btcutil.NewAddressWitnessPubKeyHash(bytes.Repeat([]byte{seed}, 20), &chaincfg.TestNet3Params)
	require.NoError(t, err)
	return addr.EncodeAddress()
}

type countingObserver struct {
	mu      sync.Mutex
	retries []int
}

func (o *countingObserver) ObserveRetry(_ string, attempt int, _ error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.retries = append(o.retries, attempt)
}

func (o *countingObserver) count() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.retries)
}

package blockcypher_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/dwarvesf/paywatch/internal/btcrpc/blockcypher"
	"github.com/dwarvesf/paywatch/internal/consts"
	"github.com/dwarvesf/paywatch/internal/types/apperror"
	"github.com/dwarvesf/paywatch/internal/types/environments"
	"github.com/dwarvesf/paywatch/internal/utils/config"
	"github.com/dwarvesf/paywatch/internal/utils/logger"
)

// fakeProvider keeps hooks in memory and can be told to rate limit the
// next n requests.
type fakeProvider struct {
	mu          sync.Mutex
	hooks       map[string]blockcypher.Subscription
	nextID      int
	rateLimited int
	requests    int
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{hooks: map[string]blockcypher.Subscription{}}
}

func (p *fakeProvider) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.requests++

	w.Header().Set("Content-Type", "application/json")
	if p.rateLimited > 0 {
		p.rateLimited--
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":"Limits reached."}`))
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/test3/hooks")
	id = strings.TrimPrefix(id, "/")

	switch {
	case r.Method == http.MethodPost && id == "":
		var sub blockcypher.Subscription
		_ = json.NewDecoder(r.Body).Decode(&sub)
		p.nextID++
		sub.ID = fmt.Sprintf("hook-%d", p.nextID)
		p.hooks[sub.ID] = sub
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(sub)
	case r.Method == http.MethodGet && id == "":
		subs := make([]blockcypher.Subscription, 0, len(p.hooks))
		for _, s := range p.hooks {
			subs = append(subs, s)
		}
		_ = json.NewEncoder(w).Encode(subs)
	case r.Method == http.MethodGet:
		sub, ok := p.hooks[id]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"error":"Hook not found."}`))
			return
		}
		_ = json.NewEncoder(w).Encode(sub)
	case r.Method == http.MethodDelete:
		if _, ok := p.hooks[id]; !ok {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"error":"Hook not found."}`))
			return
		}
		delete(p.hooks, id)
		w.WriteHeader(http.StatusNoContent)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (p *fakeProvider) requestCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.requests
}

func suiteAddress(seed byte) string {
	addr, err := btcutil.NewAddressWitnessPubKeyHash(bytes.Repeat([]byte{seed}, 20), &chaincfg.TestNet3Params)
	Expect(err).NotTo(HaveOccurred())
	return addr.EncodeAddress()
}

var _ = Describe("Subscription lifecycle", func() {
	const callbackURL = "https://paywatch.example.com/api/v1/webhooks/blockcypher"

	var (
		provider *fakeProvider
		server   *httptest.Server
		client   blockcypher.IClient
		ctx      context.Context
	)

	BeforeEach(func() {
		provider = newFakeProvider()
		server = httptest.NewServer(provider)
		ctx = context.Background()

		client = blockcypher.New(&config.AppConfig{
			BlockCypher: config.BlockCypherConfig{
				APIURL:            server.URL,
				Token:             "suite-token",
				Network:           "test3",
				HookConfirmations: 1,
				MaxAttempts:       3,
				RetryBaseDelay:    time.Millisecond,
				RetryMaxDelay:     5 * time.Millisecond,
				AttemptTimeout:    time.Second,
			},
		}, logger.New(environments.Test))
	})

	AfterEach(func() {
		server.Close()
	})

	It("registers, lists, reads and deletes a hook", func() {
		address := suiteAddress(7)

		sub, err := client.RegisterSubscription(ctx, address, callbackURL, consts.EventTxConfirmation)
		Expect(err).NotTo(HaveOccurred())
		Expect(sub.ID).To(Equal("hook-1"))
		Expect(sub.Address).To(Equal(address))

		subs, err := client.ListSubscriptions(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(subs).To(HaveLen(1))

		got, err := client.GetSubscription(ctx, sub.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(got.URL).To(Equal(callbackURL))

		res, err := client.DeleteSubscription(ctx, sub.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(res.AlreadyRemoved).To(BeFalse())

		subs, err = client.ListSubscriptions(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(subs).To(BeEmpty())
	})

	It("treats deleting a missing hook as already removed", func() {
		res, err := client.DeleteSubscription(ctx, "hook-404")
		Expect(err).NotTo(HaveOccurred())
		Expect(res.AlreadyRemoved).To(BeTrue())
	})

	It("reports a missing hook on read as not found", func() {
		_, err := client.GetSubscription(ctx, "hook-404")
		Expect(apperror.KindOf(err)).To(Equal(apperror.KindNotFound))
	})

	It("rides out a short rate limit", func() {
		provider.rateLimited = 2

		sub, err := client.RegisterSubscription(ctx, suiteAddress(8), callbackURL, consts.EventTxConfirmation)
		Expect(err).NotTo(HaveOccurred())
		Expect(sub.ID).To(Equal("hook-1"))
		Expect(provider.requestCount()).To(Equal(3))
	})

	It("gives up after the retry budget when rate limiting persists", func() {
		provider.rateLimited = 10

		_, err := client.ListSubscriptions(ctx)
		Expect(apperror.KindOf(err)).To(Equal(apperror.KindRateLimited))
		Expect(provider.requestCount()).To(Equal(3))
	})
})

package controller

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/dwarvesf/paywatch/internal/btcrpc/blockcypher"
	"github.com/dwarvesf/paywatch/internal/consts"
	"github.com/dwarvesf/paywatch/internal/model"
	"github.com/dwarvesf/paywatch/internal/publisher"
	"github.com/dwarvesf/paywatch/internal/store"
	"github.com/dwarvesf/paywatch/internal/store/paymentstatus"
	"github.com/dwarvesf/paywatch/internal/types/apperror"
	"github.com/dwarvesf/paywatch/internal/types/environments"
	"github.com/dwarvesf/paywatch/internal/utils/config"
	"github.com/dwarvesf/paywatch/internal/utils/logger"
	"github.com/dwarvesf/paywatch/internal/wallet"
)

const (
	addrA = "tb1qw508d6qejxtdg4y5r3zarvary0c5xw7kxpjzsx"
	addrB = "mipcBbFg9gMiCh81Kj8tqqdgoZub1ZJRfn"
	addrC = "2N8hwP1WmJrFF5QWABn38y63uYLhnJYJYTF"
)

var txHash = strings.Repeat("ab", 32)

type fakeClient struct {
	mu          sync.Mutex
	registerErr error
	deleteErr   error
	registered  []string
	deleted     []string
}

func (f *fakeClient) RegisterSubscription(ctx context.Context, address, callbackURL string, kind consts.EventKind) (*blockcypher.Subscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.registerErr != nil {
		return nil, f.registerErr
	}
	f.registered = append(f.registered, address)
	return &blockcypher.Subscription{
		ID:      fmt.Sprintf("hook-%d", len(f.registered)),
		Event:   string(kind),
		Address: address,
		URL:     callbackURL,
	}, nil
}

func (f *fakeClient) ListSubscriptions(ctx context.Context) ([]blockcypher.Subscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	subs := make([]blockcypher.Subscription, 0, len(f.registered))
	for i, address := range f.registered {
		subs = append(subs, blockcypher.Subscription{ID: fmt.Sprintf("hook-%d", i+1), Address: address})
	}
	return subs, nil
}

func (f *fakeClient) GetSubscription(ctx context.Context, id string) (*blockcypher.Subscription, error) {
	subs, _ := f.ListSubscriptions(ctx)
	for _, sub := range subs {
		if sub.ID == id {
			return &sub, nil
		}
	}
	return nil, apperror.NotFound("hook %s not found", id)
}

func (f *fakeClient) DeleteSubscription(ctx context.Context, id string) (*blockcypher.DeleteResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteErr != nil {
		return nil, f.deleteErr
	}
	f.deleted = append(f.deleted, id)
	return &blockcypher.DeleteResult{ID: id}, nil
}

type fakeGenerator struct {
	mu        sync.Mutex
	addresses []string
	next      int
}

func (g *fakeGenerator) GenerateAddress(ctx context.Context) (*wallet.DerivedAddress, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.next >= len(g.addresses) {
		return nil, errors.New("no more addresses")
	}
	idx := g.next
	g.next++
	return &wallet.DerivedAddress{
		Address: g.addresses[idx],
		Index:   uint32(idx),
		Path:    fmt.Sprintf("0/%d", idx),
	}, nil
}

type fakePublisher struct {
	mu     sync.Mutex
	err    error
	events []publisher.PaymentStatusChanged
}

func (p *fakePublisher) PublishStatusChanged(ctx context.Context, event publisher.PaymentStatusChanged) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, event)
	return nil
}

func (p *fakePublisher) Close() error { return nil }

func (p *fakePublisher) published() []publisher.PaymentStatusChanged {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]publisher.PaymentStatusChanged(nil), p.events...)
}

// failingStore fails ApplyTransition for one address.
type failingStore struct {
	paymentstatus.IStore
	failAddress string
}

func (s *failingStore) ApplyTransition(tx *gorm.DB, address string, t paymentstatus.Transition) (bool, error) {
	if address == s.failAddress {
		return false, errors.New("database is locked")
	}
	return s.IStore.ApplyTransition(tx, address, t)
}

type testEnv struct {
	db        *gorm.DB
	store     *store.Store
	client    *fakeClient
	generator *fakeGenerator
	publisher *fakePublisher
	ctrl      *Controller
}

func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(&model.PaymentStatusEntry{}, &model.WalletCursor{}))
	return db
}

func testConfig() *config.AppConfig {
	return &config.AppConfig{
		Environment: environments.Test,
		ApiServer:   config.ApiServerConfig{PublicBaseURL: "https://paywatch.example.com/"},
		BlockCypher: config.BlockCypherConfig{Network: "test3", HookEvent: string(consts.EventTxConfirmation)},
		Payment:     config.PaymentConfig{MaxAge: time.Hour},
	}
}

func setupEnv(t *testing.T, opts ...Option) *testEnv {
	t.Helper()
	db := setupTestDB(t)
	env := &testEnv{
		db:        db,
		store:     store.New(db),
		client:    &fakeClient{},
		generator: &fakeGenerator{addresses: []string{addrA, addrB, addrC}},
		publisher: &fakePublisher{},
	}
	env.ctrl = New(db, env.store, env.client, env.generator, env.publisher, logger.New(environments.Test), testConfig(), opts...).(*Controller)
	return env
}

func (e *testEnv) monitor(t *testing.T, addresses ...string) {
	t.Helper()
	for _, address := range addresses {
		_, err := e.store.PaymentStatus.Initialize(e.db, address, nil, nil)
		require.NoError(t, err)
	}
}

func (e *testEnv) entry(t *testing.T, address string) *model.PaymentStatusEntry {
	t.Helper()
	entry, err := e.store.PaymentStatus.Get(e.db, address)
	require.NoError(t, err)
	require.NotNil(t, entry)
	return entry
}

type output struct {
	address string
	value   int64
}

func notificationBody(t *testing.T, confirmations int64, doubleSpend bool, outputs ...output) []byte {
	t.Helper()
	outs := make([]map[string]interface{}, 0, len(outputs))
	var total int64
	for _, o := range outputs {
		outs = append(outs, map[string]interface{}{
			"value":       o.value,
			"addresses":   []string{o.address},
			"script_type": "pay-to-witness-pubkey-hash",
		})
		total += o.value
	}
	body, err := json.Marshal(map[string]interface{}{
		"hash":          txHash,
		"confirmations": confirmations,
		"double_spend":  doubleSpend,
		"total":         total,
		"fees":          150,
		"confidence":    0.98,
		"outputs":       outs,
	})
	require.NoError(t, err)
	return body
}

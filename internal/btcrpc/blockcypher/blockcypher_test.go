package blockcypher

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dwarvesf/paywatch/internal/consts"
	"github.com/dwarvesf/paywatch/internal/types/apperror"
	"github.com/dwarvesf/paywatch/internal/types/environments"
	"github.com/dwarvesf/paywatch/internal/utils/logger"
)

type failingTransport struct {
	calls int32
}

func (f *failingTransport) RoundTrip(*http.Request) (*http.Response, error) {
	atomic.AddInt32(&f.calls, 1)
	return nil, errors.New("connection refused")
}

func TestBlockCypher_RegisterSubscription_Success(t *testing.T) {
	address := testnetAddress(t, 1)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/test3/hooks", r.URL.Path)
		assert.Equal(t, testToken, r.URL.Query().Get("token"))
		assert.Equal(t, consts.UserAgent(), r.Header.Get("User-Agent"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var body createHookRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "tx-confirmation", body.Event)
		assert.Equal(t, address, body.Address)
		assert.Equal(t, "https://pay.example.com/api/v1/webhooks/blockcypher", body.URL)
		assert.Equal(t, 1, body.Confirmations)

		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"id":"hook-1","event":"tx-confirmation","address":"` + address + `","url":"https://pay.example.com/api/v1/webhooks/blockcypher","confirmations":1,"token":"` + testToken + `","callback_errors":0}`))
	}))
	defer server.Close()

	client := New(testConfig(server.URL), logger.New(environments.Test))

	sub, err := client.RegisterSubscription(context.Background(), address, "https://pay.example.com/api/v1/webhooks/blockcypher", consts.EventTxConfirmation)

	require.NoError(t, err)
	assert.Equal(t, "hook-1", sub.ID)
	assert.Equal(t, address, sub.Address)
	assert.Equal(t, 1, sub.Confirmations)

	raw, err := json.Marshal(sub)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), testToken, "hook token must not be re-exposed")
}

func TestBlockCypher_RegisterSubscription_RejectsInvalidInputWithoutNetworkCall(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
	}))
	defer server.Close()

	client := New(testConfig(server.URL), logger.New(environments.Test))
	validAddress := testnetAddress(t, 2)

	tests := []struct {
		name     string
		address  string
		callback string
	}{
		{name: "garbage address", address: "not-an-address", callback: "https://pay.example.com/hook"},
		{name: "plain http callback", address: validAddress, callback: "http://pay.example.com/hook"},
		{name: "relative callback", address: validAddress, callback: "/api/v1/webhooks/blockcypher"},
		{name: "empty callback", address: validAddress, callback: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := client.RegisterSubscription(context.Background(), tt.address, tt.callback, consts.EventTxConfirmation)
			assert.True(t, apperror.Is(err, apperror.KindInvalidInput), "got %v", err)
		})
	}

	assert.Equal(t, int32(0), atomic.LoadInt32(&hits))
}

func TestBlockCypher_TransportFailuresExhaustRetryBudget(t *testing.T) {
	transport := &failingTransport{}
	observer := &countingObserver{}
	client := New(testConfig("https://api.invalid/v1/btc"), logger.New(environments.Test),
		WithHTTPClient(&http.Client{Transport: transport}),
		WithRetryObserver(observer),
	)

	_, err := client.ListSubscriptions(context.Background())

	require.Error(t, err)
	assert.Equal(t, apperror.KindTransport, apperror.KindOf(err))
	assert.Equal(t, int32(3), atomic.LoadInt32(&transport.calls))
	assert.Equal(t, 2, observer.count())
	assert.NotContains(t, err.Error(), testToken)
}

func TestBlockCypher_UnauthorizedIsNotRetried(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":"invalid token"}`))
	}))
	defer server.Close()

	observer := &countingObserver{}
	client := New(testConfig(server.URL), logger.New(environments.Test), WithRetryObserver(observer))

	_, err := client.RegisterSubscription(context.Background(), testnetAddress(t, 3), "https://pay.example.com/hook", consts.EventUnconfirmedTx)

	require.Error(t, err)
	var appErr *apperror.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, apperror.KindProvider, appErr.Kind)
	assert.Equal(t, http.StatusUnauthorized, appErr.StatusCode)
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
	assert.Equal(t, 0, observer.count())
	assert.NotContains(t, apperror.PublicMessage(err), "invalid token")
}

func TestBlockCypher_RateLimitThenSuccess(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&hits, 1) <= 2 {
			w.WriteHeader(http.StatusTooManyRequests)
			w.Write([]byte(`{"error":"Limits reached."}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`[{"id":"hook-1","event":"unconfirmed-tx","url":"https://pay.example.com/hook","callback_errors":0}]`))
	}))
	defer server.Close()

	observer := &countingObserver{}
	client := New(testConfig(server.URL), logger.New(environments.Test), WithRetryObserver(observer))

	subs, err := client.ListSubscriptions(context.Background())

	require.NoError(t, err)
	require.Len(t, subs, 1)
	assert.Equal(t, "hook-1", subs[0].ID)
	assert.Equal(t, int32(3), atomic.LoadInt32(&hits))
	assert.Equal(t, 2, observer.count(), "two retries before the successful third attempt")
}

func TestBlockCypher_RateLimitExhausted(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error":"Limits reached."}`))
	}))
	defer server.Close()

	client := New(testConfig(server.URL), logger.New(environments.Test))

	_, err := client.GetSubscription(context.Background(), "hook-1")

	assert.Equal(t, apperror.KindRateLimited, apperror.KindOf(err))
	assert.Equal(t, int32(3), atomic.LoadInt32(&hits))
}

func TestBlockCypher_ServerErrorIsTerminal(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := New(testConfig(server.URL), logger.New(environments.Test))

	_, err := client.ListSubscriptions(context.Background())

	assert.Equal(t, apperror.KindProvider, apperror.KindOf(err))
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
}

func TestBlockCypher_NonJSONSuccessBodyIsInvalidResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("<html>maintenance</html>"))
	}))
	defer server.Close()

	client := New(testConfig(server.URL), logger.New(environments.Test))

	_, err := client.GetSubscription(context.Background(), "hook-1")

	assert.Equal(t, apperror.KindInvalidResponse, apperror.KindOf(err))
}

func TestBlockCypher_DeleteSubscription(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		switch r.URL.Path {
		case "/test3/hooks/hook-1":
			w.WriteHeader(http.StatusNoContent)
		default:
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"error":"Hook not found."}`))
		}
	}))
	defer server.Close()

	client := New(testConfig(server.URL), logger.New(environments.Test))

	result, err := client.DeleteSubscription(context.Background(), "hook-1")
	require.NoError(t, err)
	assert.False(t, result.AlreadyRemoved)

	result, err = client.DeleteSubscription(context.Background(), "hook-gone")
	require.NoError(t, err)
	assert.True(t, result.AlreadyRemoved)
	assert.Equal(t, "hook-gone", result.ID)

	_, err = client.DeleteSubscription(context.Background(), " ")
	assert.True(t, apperror.Is(err, apperror.KindInvalidInput))
}

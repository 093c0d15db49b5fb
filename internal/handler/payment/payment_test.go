package payment

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/dwarvesf/paywatch/internal/controller"
	"github.com/dwarvesf/paywatch/internal/controller/mocks"
	"github.com/dwarvesf/paywatch/internal/model"
	"github.com/dwarvesf/paywatch/internal/types/apperror"
	"github.com/dwarvesf/paywatch/internal/types/environments"
	"github.com/dwarvesf/paywatch/internal/utils/config"
	"github.com/dwarvesf/paywatch/internal/utils/logger"
)

const testAddress = "tb1qw508d6qejxtdg4y5r3zarvary0c5xw7kxpjzsx"

func setupRouter(ctrl controller.IController) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := New(ctrl, logger.New(environments.Test), &config.AppConfig{})

	r := gin.New()
	r.POST("/api/v1/payments", h.CreatePaymentRequest)
	r.GET("/api/v1/payments/:address/status", h.GetPaymentStatus)
	return r
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestCreatePaymentRequest(t *testing.T) {
	t.Run("creates a payment request", func(t *testing.T) {
		ctrl := &mocks.Controller{}
		ctrl.On("CreatePaymentRequest", mock.Anything, decimal.RequireFromString("0.0015")).Return(&controller.PaymentRequest{
			ID:             "7f0c",
			Address:        testAddress,
			Amount:         decimal.RequireFromString("0.0015"),
			AmountSatoshis: 150000,
			PaymentURI:     "bitcoin:" + testAddress + "?amount=0.0015",
		}, nil)

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/v1/payments", bytes.NewBufferString(`{"amount":"0.0015"}`))
		req.Header.Set("Content-Type", "application/json")
		setupRouter(ctrl).ServeHTTP(w, req)

		assert.Equal(t, http.StatusCreated, w.Code)
		data := decode(t, w)["data"].(map[string]interface{})
		assert.Equal(t, testAddress, data["address"])
		assert.Equal(t, float64(150000), data["amount_satoshis"])
		ctrl.AssertExpectations(t)
	})

	tests := []struct {
		name string
		body string
		kind string
	}{
		{name: "missing amount", body: `{}`, kind: "invalid_input"},
		{name: "malformed json", body: `{"amount":`, kind: "invalid_input"},
		{name: "non numeric amount", body: `{"amount":"lots"}`, kind: "invalid_input"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := &mocks.Controller{}

			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/api/v1/payments", bytes.NewBufferString(tt.body))
			req.Header.Set("Content-Type", "application/json")
			setupRouter(ctrl).ServeHTTP(w, req)

			assert.Equal(t, http.StatusBadRequest, w.Code)
			errBody := decode(t, w)["error"].(map[string]interface{})
			assert.Equal(t, tt.kind, errBody["kind"])
			ctrl.AssertNotCalled(t, "CreatePaymentRequest", mock.Anything, mock.Anything)
		})
	}

	t.Run("keeps internal fields out of the response", func(t *testing.T) {
		hookID := "hook-1"
		ctrl := &mocks.Controller{}
		ctrl.On("CreatePaymentRequest", mock.Anything, decimal.RequireFromString("0.001")).Return(&controller.PaymentRequest{
			ID:                     "7f0d",
			Address:                testAddress,
			DerivationPath:         "0/0",
			Amount:                 decimal.RequireFromString("0.001"),
			AmountSatoshis:         100000,
			PaymentURI:             "bitcoin:" + testAddress + "?amount=0.001",
			SubscriptionRegistered: true,
			SubscriptionID:         &hookID,
			CreatedAt:              1792173913002,
		}, nil)

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/v1/payments", bytes.NewBufferString(`{"amount":"0.001"}`))
		req.Header.Set("Content-Type", "application/json")
		setupRouter(ctrl).ServeHTTP(w, req)

		assert.Equal(t, http.StatusCreated, w.Code)
		data := decode(t, w)["data"].(map[string]interface{})
		assert.Equal(t, true, data["subscription_registered"])
		assert.Equal(t, "bitcoin:"+testAddress+"?amount=0.001", data["payment_uri"])
		for _, key := range []string{"subscription_id", "created_at", "derivation_path"} {
			assert.NotContains(t, data, key)
		}
		assert.NotContains(t, w.Body.String(), hookID)
	})

	t.Run("maps controller errors", func(t *testing.T) {
		ctrl := &mocks.Controller{}
		ctrl.On("CreatePaymentRequest", mock.Anything, mock.Anything).
			Return(nil, apperror.InvalidInput("amount is below the dust limit"))

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/v1/payments", bytes.NewBufferString(`{"amount":"0.000001"}`))
		req.Header.Set("Content-Type", "application/json")
		setupRouter(ctrl).ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		errBody := decode(t, w)["error"].(map[string]interface{})
		assert.Equal(t, "amount is below the dust limit", errBody["message"])
	})

	t.Run("hides internal errors", func(t *testing.T) {
		ctrl := &mocks.Controller{}
		ctrl.On("CreatePaymentRequest", mock.Anything, mock.Anything).
			Return(nil, errors.New("pq: connection refused"))

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/v1/payments", bytes.NewBufferString(`{"amount":"0.01"}`))
		req.Header.Set("Content-Type", "application/json")
		setupRouter(ctrl).ServeHTTP(w, req)

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.NotContains(t, w.Body.String(), "connection refused")
	})
}

func TestGetPaymentStatus(t *testing.T) {
	t.Run("returns the status view", func(t *testing.T) {
		confs := int64(2)
		ctrl := &mocks.Controller{}
		ctrl.On("GetPaymentStatus", mock.Anything, testAddress).Return(&model.PaymentStatusView{
			Status:        model.PaymentStatusConfirmed,
			Confirmations: &confs,
			LastUpdated:   1700000000000,
		}, nil)

		w := httptest.NewRecorder()
		setupRouter(ctrl).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/payments/"+testAddress+"/status", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		data := decode(t, w)["data"].(map[string]interface{})
		assert.Equal(t, "confirmed", data["status"])
		assert.Equal(t, float64(2), data["confirmations"])
	})

	t.Run("unknown address", func(t *testing.T) {
		ctrl := &mocks.Controller{}
		ctrl.On("GetPaymentStatus", mock.Anything, testAddress).
			Return(nil, apperror.NotFound("address %s is not monitored", testAddress))

		w := httptest.NewRecorder()
		setupRouter(ctrl).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/payments/"+testAddress+"/status", nil))

		assert.Equal(t, http.StatusNotFound, w.Code)
		errBody := decode(t, w)["error"].(map[string]interface{})
		assert.Equal(t, "not_found", errBody["kind"])
	})
}

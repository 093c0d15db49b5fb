package payment

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/dwarvesf/paywatch/internal/controller"
	"github.com/dwarvesf/paywatch/internal/types/apperror"
	"github.com/dwarvesf/paywatch/internal/utils/config"
	"github.com/dwarvesf/paywatch/internal/utils/logger"
	"github.com/dwarvesf/paywatch/internal/view"
)

type CreatePaymentRequest struct {
	// Amount in BTC, as a decimal string to avoid float rounding.
	Amount string `json:"amount" binding:"required" validate:"required,numeric"`
}

type handler struct {
	controller controller.IController
	logger     *logger.Logger
	appConfig  *config.AppConfig
}

func New(controller controller.IController, logger *logger.Logger, appConfig *config.AppConfig) IHandler {
	return &handler{
		controller: controller,
		logger:     logger,
		appConfig:  appConfig,
	}
}

// CreatePaymentRequest godoc
// @Summary Create payment request
// @Description Derives a fresh testnet address for the amount and starts monitoring it
// @id createPaymentRequest
// @Tags Payment
// @Accept json
// @Produce json
// @Param request body CreatePaymentRequest true "Payment amount in BTC"
// @Success 201 {object} view.Response[controller.PaymentRequest]
// @Failure 400 {object} view.ErrorResponse
// @Failure 500 {object} view.ErrorResponse
// @Router /payments [post]
func (h *handler) CreatePaymentRequest(c *gin.Context) {
	var req CreatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("[CreatePaymentRequest][ShouldBindJSON]", map[string]string{
			"error": err.Error(),
		})
		c.JSON(http.StatusBadRequest, view.CreateResponse[any](nil, apperror.Wrap(err, apperror.KindInvalidInput, "invalid request body"), req, "invalid request"))
		return
	}

	if err := validator.New().Struct(req); err != nil {
		h.logger.Error("[CreatePaymentRequest][Validator]", map[string]string{
			"error": err.Error(),
		})
		c.JSON(http.StatusBadRequest, view.CreateResponse[any](nil, err, req, "invalid request"))
		return
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		c.JSON(http.StatusBadRequest, view.CreateResponse[any](nil, apperror.InvalidInput("amount is not a decimal number"), req, "invalid request"))
		return
	}

	payment, err := h.controller.CreatePaymentRequest(c.Request.Context(), amount)
	if err != nil {
		h.logger.Error("[CreatePaymentRequest][CreatePaymentRequest]", map[string]string{
			"amount": req.Amount,
			"error":  err.Error(),
		})
		c.JSON(apperror.HTTPStatus(err), view.CreateResponse[any](nil, err, req, "failed to create payment request"))
		return
	}

	c.JSON(http.StatusCreated, view.CreateResponse(payment, nil, nil, ""))
}

// GetPaymentStatus godoc
// @Summary Get payment status
// @Description Returns the current status of a monitored address
// @id getPaymentStatus
// @Tags Payment
// @Produce json
// @Param address path string true "Monitored testnet address"
// @Success 200 {object} view.Response[model.PaymentStatusView]
// @Failure 400 {object} view.ErrorResponse
// @Failure 404 {object} view.ErrorResponse
// @Failure 500 {object} view.ErrorResponse
// @Router /payments/{address}/status [get]
func (h *handler) GetPaymentStatus(c *gin.Context) {
	address := c.Param("address")

	status, err := h.controller.GetPaymentStatus(c.Request.Context(), address)
	if err != nil {
		if !apperror.Is(err, apperror.KindNotFound) {
			h.logger.Error("[GetPaymentStatus][GetPaymentStatus]", map[string]string{
				"address": address,
				"error":   err.Error(),
			})
		}
		c.JSON(apperror.HTTPStatus(err), view.CreateResponse[any](nil, err, nil, "failed to get payment status"))
		return
	}

	c.JSON(http.StatusOK, view.CreateResponse(status, nil, nil, ""))
}

package admin

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/dwarvesf/paywatch/internal/controller"
	"github.com/dwarvesf/paywatch/internal/model"
	"github.com/dwarvesf/paywatch/internal/store/paymentstatus"
	"github.com/dwarvesf/paywatch/internal/types/apperror"
	"github.com/dwarvesf/paywatch/internal/utils/config"
	"github.com/dwarvesf/paywatch/internal/utils/logger"
	"github.com/dwarvesf/paywatch/internal/view"
)

type ListPaymentsQuery struct {
	Status string `form:"status" json:"status" validate:"omitempty,oneof=awaiting_payment payment_detected confirmed error"`
	Limit  int    `form:"limit" json:"limit" validate:"gte=0,lte=500"`
	Offset int    `form:"offset" json:"offset" validate:"gte=0"`
}

type EvictRequest struct {
	// MaxAge is a Go duration such as "72h"; the configured PAYMENT_MAX_AGE
	// is used when empty.
	MaxAge string `json:"max_age"`
}

type EvictResponse struct {
	MaxAge  string `json:"max_age"`
	Evicted int64  `json:"evicted"`
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

// ListPayments godoc
// @Summary List monitored payments
// @Description Lists payment status entries, newest first
// @id adminListPayments
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Param status query string false "Filter by status"
// @Param limit query int false "Page size, default 50"
// @Param offset query int false "Page offset"
// @Success 200 {object} view.Response[controller.PaymentList]
// @Failure 400 {object} view.ErrorResponse
// @Failure 401 {object} view.ErrorResponse
// @Failure 500 {object} view.ErrorResponse
// @Router /admin/payments [get]
func (h *handler) ListPayments(c *gin.Context) {
	var query ListPaymentsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		c.JSON(http.StatusBadRequest, view.CreateResponse[any](nil, apperror.Wrap(err, apperror.KindInvalidInput, "invalid query parameters"), query, "invalid request"))
		return
	}
	if err := validator.New().Struct(query); err != nil {
		c.JSON(http.StatusBadRequest, view.CreateResponse[any](nil, err, query, "invalid request"))
		return
	}

	list, err := h.controller.ListPayments(c.Request.Context(), paymentstatus.ListFilter{
		Status: model.PaymentStatus(query.Status),
		Limit:  query.Limit,
		Offset: query.Offset,
	})
	if err != nil {
		h.logger.Error("[ListPayments][ListPayments]", map[string]string{
			"error": err.Error(),
		})
		c.JSON(apperror.HTTPStatus(err), view.CreateResponse[any](nil, err, nil, "failed to list payments"))
		return
	}

	c.JSON(http.StatusOK, view.CreateResponse(list, nil, nil, ""))
}

// PaymentStats godoc
// @Summary Payment statistics
// @Description Counts of monitored payments by status plus oldest and newest timestamps
// @id adminPaymentStats
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Success 200 {object} view.Response[paymentstatus.Stats]
// @Failure 401 {object} view.ErrorResponse
// @Failure 500 {object} view.ErrorResponse
// @Router /admin/payments/stats [get]
func (h *handler) PaymentStats(c *gin.Context) {
	stats, err := h.controller.PaymentStats(c.Request.Context())
	if err != nil {
		h.logger.Error("[PaymentStats][PaymentStats]", map[string]string{
			"error": err.Error(),
		})
		c.JSON(apperror.HTTPStatus(err), view.CreateResponse[any](nil, err, nil, "failed to get payment stats"))
		return
	}

	c.JSON(http.StatusOK, view.CreateResponse(stats, nil, nil, ""))
}

// DeletePayment godoc
// @Summary Stop monitoring a payment
// @Description Deletes the status entry and, best-effort, its provider subscription
// @id adminDeletePayment
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Param address path string true "Monitored address"
// @Success 200 {object} view.Response[controller.DeletePaymentResult]
// @Failure 401 {object} view.ErrorResponse
// @Failure 404 {object} view.ErrorResponse
// @Failure 500 {object} view.ErrorResponse
// @Router /admin/payments/{address} [delete]
func (h *handler) DeletePayment(c *gin.Context) {
	address := c.Param("address")

	result, err := h.controller.DeletePayment(c.Request.Context(), address)
	if err != nil {
		h.logger.Error("[DeletePayment][DeletePayment]", map[string]string{
			"address": address,
			"error":   err.Error(),
		})
		c.JSON(apperror.HTTPStatus(err), view.CreateResponse[any](nil, err, nil, "failed to delete payment"))
		return
	}

	c.JSON(http.StatusOK, view.CreateResponse(result, nil, nil, ""))
}

// EvictPayments godoc
// @Summary Evict old payments
// @Description Removes entries created before now minus max_age
// @id adminEvictPayments
// @Tags Admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body EvictRequest false "Optional max age"
// @Success 200 {object} view.Response[EvictResponse]
// @Failure 400 {object} view.ErrorResponse
// @Failure 401 {object} view.ErrorResponse
// @Failure 500 {object} view.ErrorResponse
// @Router /admin/payments/evict [post]
func (h *handler) EvictPayments(c *gin.Context) {
	var req EvictRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, view.CreateResponse[any](nil, apperror.Wrap(err, apperror.KindInvalidInput, "invalid request body"), req, "invalid request"))
			return
		}
	}

	maxAge := h.appConfig.Payment.MaxAge
	if req.MaxAge != "" {
		d, err := time.ParseDuration(req.MaxAge)
		if err != nil {
			c.JSON(http.StatusBadRequest, view.CreateResponse[any](nil, apperror.InvalidInput("max_age is not a valid duration"), req, "invalid request"))
			return
		}
		maxAge = d
	}

	evicted, err := h.controller.EvictExpired(c.Request.Context(), maxAge)
	if err != nil {
		h.logger.Error("[EvictPayments][EvictExpired]", map[string]string{
			"max_age": maxAge.String(),
			"error":   err.Error(),
		})
		c.JSON(apperror.HTTPStatus(err), view.CreateResponse[any](nil, err, req, "failed to evict payments"))
		return
	}

	c.JSON(http.StatusOK, view.CreateResponse(EvictResponse{MaxAge: maxAge.String(), Evicted: evicted}, nil, nil, ""))
}

// ListSubscriptions godoc
// @Summary List provider subscriptions
// @id adminListSubscriptions
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Success 200 {object} view.Response[[]blockcypher.Subscription]
// @Failure 401 {object} view.ErrorResponse
// @Failure 502 {object} view.ErrorResponse
// @Router /admin/subscriptions [get]
func (h *handler) ListSubscriptions(c *gin.Context) {
	subs, err := h.controller.ListSubscriptions(c.Request.Context())
	if err != nil {
		h.logger.Error("[ListSubscriptions][ListSubscriptions]", map[string]string{
			"error": err.Error(),
		})
		c.JSON(apperror.HTTPStatus(err), view.CreateResponse[any](nil, err, nil, "failed to list subscriptions"))
		return
	}

	c.JSON(http.StatusOK, view.CreateResponse(subs, nil, nil, ""))
}

// GetSubscription godoc
// @Summary Get provider subscription
// @id adminGetSubscription
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Param id path string true "Subscription id"
// @Success 200 {object} view.Response[blockcypher.Subscription]
// @Failure 401 {object} view.ErrorResponse
// @Failure 404 {object} view.ErrorResponse
// @Failure 502 {object} view.ErrorResponse
// @Router /admin/subscriptions/{id} [get]
func (h *handler) GetSubscription(c *gin.Context) {
	id := c.Param("id")

	sub, err := h.controller.GetSubscription(c.Request.Context(), id)
	if err != nil {
		h.logger.Error("[GetSubscription][GetSubscription]", map[string]string{
			"hook_id": id,
			"error":   err.Error(),
		})
		c.JSON(apperror.HTTPStatus(err), view.CreateResponse[any](nil, err, nil, "failed to get subscription"))
		return
	}

	c.JSON(http.StatusOK, view.CreateResponse(sub, nil, nil, ""))
}

// DeleteSubscription godoc
// @Summary Delete provider subscription
// @Description Deleting an already removed subscription succeeds with already_removed=true
// @id adminDeleteSubscription
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Param id path string true "Subscription id"
// @Success 200 {object} view.Response[blockcypher.DeleteResult]
// @Failure 401 {object} view.ErrorResponse
// @Failure 502 {object} view.ErrorResponse
// @Router /admin/subscriptions/{id} [delete]
func (h *handler) DeleteSubscription(c *gin.Context) {
	id := c.Param("id")

	result, err := h.controller.DeleteSubscription(c.Request.Context(), id)
	if err != nil {
		h.logger.Error("[DeleteSubscription][DeleteSubscription]", map[string]string{
			"hook_id": id,
			"error":   err.Error(),
		})
		c.JSON(apperror.HTTPStatus(err), view.CreateResponse[any](nil, err, nil, "failed to delete subscription"))
		return
	}

	c.JSON(http.StatusOK, view.CreateResponse(result, nil, nil, ""))
}

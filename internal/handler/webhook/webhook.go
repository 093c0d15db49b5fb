package webhook

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"

	"github.com/dwarvesf/paywatch/internal/consts"
	"github.com/dwarvesf/paywatch/internal/controller"
	"github.com/dwarvesf/paywatch/internal/types/apperror"
	"github.com/dwarvesf/paywatch/internal/utils/config"
	"github.com/dwarvesf/paywatch/internal/utils/logger"
	"github.com/dwarvesf/paywatch/internal/view"
)

// MaxBodyBytes bounds an inbound notification body.
const MaxBodyBytes = 1 << 20

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

// ReceiveBlockCypher godoc
// @Summary Receive BlockCypher notification
// @Description Ingests a BlockCypher transaction webhook. Per-address store failures are reported in the body, the notification is still acknowledged.
// @id receiveBlockCypher
// @Tags Webhook
// @Accept json
// @Produce json
// @Param X-EventType header string true "Event kind, e.g. tx-confirmation"
// @Success 200 {object} view.Response[controller.IngestionReport]
// @Failure 400 {object} view.ErrorResponse
// @Failure 413 {object} view.ErrorResponse
// @Failure 500 {object} view.ErrorResponse
// @Router /webhooks/blockcypher [post]
func (h *handler) ReceiveBlockCypher(c *gin.Context) {
	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, MaxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, view.CreateResponse[any](nil,
				apperror.InvalidInput("notification body exceeds %d bytes", MaxBodyBytes), nil, "notification rejected"))
			return
		}
		h.logger.Error("[ReceiveBlockCypher][ReadAll]", map[string]string{
			"error": err.Error(),
		})
		c.JSON(http.StatusBadRequest, view.CreateResponse[any](nil,
			apperror.Wrap(err, apperror.KindInvalidInput, "failed to read notification body"), nil, "notification rejected"))
		return
	}

	report, err := h.controller.ProcessNotification(c.Request.Context(), c.GetHeader(consts.EventTypeHeader), body)
	if err != nil {
		c.JSON(apperror.HTTPStatus(err), view.CreateResponse[any](nil, err, nil, "notification rejected"))
		return
	}

	c.JSON(http.StatusOK, view.CreateResponse(report, nil, nil, ""))
}

package payment

import "github.com/gin-gonic/gin"

type IHandler interface {
	CreatePaymentRequest(c *gin.Context)
	GetPaymentStatus(c *gin.Context)
}

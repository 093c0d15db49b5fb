package admin

import "github.com/gin-gonic/gin"

type IHandler interface {
	ListPayments(c *gin.Context)
	PaymentStats(c *gin.Context)
	DeletePayment(c *gin.Context)
	EvictPayments(c *gin.Context)

	ListSubscriptions(c *gin.Context)
	GetSubscription(c *gin.Context)
	DeleteSubscription(c *gin.Context)
}

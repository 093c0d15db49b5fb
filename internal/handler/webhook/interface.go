package webhook

import "github.com/gin-gonic/gin"

type IHandler interface {
	ReceiveBlockCypher(c *gin.Context)
}

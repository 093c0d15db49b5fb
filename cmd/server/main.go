package main

import (
	"github.com/dwarvesf/paywatch/internal/server"
)

// @title Paywatch API
// @version 1.0
// @description Bitcoin testnet payment monitoring backed by BlockCypher webhooks
// @BasePath /api/v1
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	server.Init()
}

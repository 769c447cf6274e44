package handlers

import (
	"github.com/gofiber/fiber/v2"

	"lumapay/internal/middleware"
	"lumapay/internal/models"
)

// SetupRoutes configures all application routes. Webhook delivery is
// unauthenticated at the HTTP layer; its signature check is the
// authentication.
func SetupRoutes(app *fiber.App, walletHandler *WalletHandler, webhookHandler *WebhookHandler, auth *middleware.AuthMiddleware) {
	api := app.Group("/api")

	api.Post("/webhook/gateway", webhookHandler.HandleGatewayWebhook)

	authed := api.Group("/wallet", auth.Handler)

	read := authed.Group("", middleware.RequireCapability(models.CapabilityRead))
	read.Get("/", walletHandler.GetWallet)
	read.Get("/balance", walletHandler.GetBalance)
	read.Get("/transactions", walletHandler.GetTransactionHistory)
	read.Get("/deposits/:reference/verify", webhookHandler.VerifyDeposit)

	authed.Post("/deposit", middleware.RequireCapability(models.CapabilityDeposit), walletHandler.InitiateDeposit)
	authed.Post("/transfer", middleware.RequireCapability(models.CapabilityTransfer), walletHandler.Transfer)
	authed.Post("/pin", middleware.RequireCapability(models.CapabilityTransfer), walletHandler.SetPin)
}

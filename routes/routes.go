package routes

import (
	"github.com/gofiber/fiber/v2"

	"workshop-backend/controllers"
	"workshop-backend/middlewares"
	"workshop-backend/session"
)

// Deps are the handlers and guards the routes are built from.
type Deps struct {
	Issuer      *session.Issuer
	ServiceKey  string
	Idempotency middlewares.IdempotencyStore
	Health      controllers.Pinger

	SMS     *controllers.SMSController
	STS     *controllers.STSController
	Auth    *controllers.AuthController
	Receipt *controllers.ReceiptController

	// DebugEndpoints registers /api/debug-login.
	DebugEndpoints bool
}

// Register wires all HTTP routes.
func Register(app *fiber.App, d Deps) {
	app.Get("/healthz", controllers.Health(d.Health))

	api := app.Group("/api")

	// Public endpoints
	api.Post("/auth-wechat", d.Auth.WeChat)
	api.Post("/verify-ios-receipt", d.Receipt.Verify)
	if d.DebugEndpoints {
		api.Post("/debug-login", d.Auth.DebugLogin)
	}

	// Protected endpoints (service key or user token)
	auth := middlewares.RequireAuth(d.Issuer, d.ServiceKey)
	api.Post("/send-sms", auth, middlewares.Idempotency(d.Idempotency), d.SMS.Send)
	api.Post("/get-oss-sts", auth, d.STS.Issue)
	api.Post("/migrate-device-purchase", auth, d.Receipt.Migrate)
}

package routes

import (
	"github.com/gofiber/fiber/v2"
	fiberws "github.com/gofiber/websocket/v2"

	"wushuacademy_go/controllers"
	"wushuacademy_go/middleware"
)

// Controllers bundles the constructed controllers so main can wire the
// service dependencies once.
type Controllers struct {
	Registrations *controllers.RegistrationController
	Invoices      *controllers.InvoiceController
	Stats         *controllers.StatsController
	Export        *controllers.ExportController
	WebSocket     *controllers.WebSocketController
}

// SetupRoutes configures all application routes
func SetupRoutes(app *fiber.App, ctrl Controllers) {
	authController := &controllers.AuthController{}
	healthController := &controllers.HealthController{}

	app.Get("/health", healthController.GetHealthStatus)

	// API group
	api := app.Group("/api")

	// Public submission endpoint (no authentication required)
	api.Post("/registrations", ctrl.Registrations.Submit)

	// Authentication routes
	auth := api.Group("/auth")
	auth.Post("/login", authController.Login)
	auth.Get("/profile", middleware.JWTMiddleware(), authController.GetProfile)

	// Protected routes (require authentication)
	protected := api.Group("/", middleware.JWTMiddleware())
	protected.Post("/auth/logout", authController.Logout)

	// Registration review
	registrations := protected.Group("/registrations")
	registrations.Get("/", ctrl.Registrations.GetRegistrations)
	registrations.Get("/export", ctrl.Export.ExportRegistrations)
	registrations.Get("/:id", ctrl.Registrations.GetRegistration)
	registrations.Patch("/:id/status", ctrl.Registrations.UpdateStatus)
	registrations.Delete("/:id", middleware.RequireOwner(), ctrl.Registrations.DeleteRegistration)
	registrations.Get("/:id/invoice", ctrl.Invoices.GetInvoice)

	// Analytics
	protected.Get("/stats/monthly", ctrl.Stats.GetMonthlyStats)
	protected.Get("/ws/stats", ctrl.WebSocket.GetWebSocketStats)

	// WebSocket connection endpoint - use websocket upgrade middleware
	app.Use("/ws", func(c *fiber.Ctx) error {
		if fiberws.IsWebSocketUpgrade(c) {
			c.Locals("allowed", true)
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws", ctrl.WebSocket.WebSocketHandler())
}

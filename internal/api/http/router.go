package http

import (
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/consult-service/internal/api/http/handlers"
	"github.com/spec-kit/consult-service/internal/api/ws"
	"github.com/spec-kit/consult-service/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Consultations  *handlers.ConsultationsHandler
	Notifications  *handlers.NotificationsHandler
	Reminders      *handlers.RemindersHandler
	Admin          *handlers.AdminHandler
	Gateway        *ws.Gateway
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	api := app.Group("/api/v1", cfg.AuthMiddleware.Handle)

	consultations := api.Group("/consultations")
	consultations.Post("", cfg.Consultations.Create)
	consultations.Get("", cfg.Consultations.List)
	consultations.Get("/:id", cfg.Consultations.Get)
	consultations.Patch("/:id/status", auth.RequireStaff(), cfg.Consultations.UpdateStatus)
	consultations.Post("/:id/messages", cfg.Consultations.PostMessage)
	consultations.Get("/:id/messages", cfg.Consultations.ListMessages)

	notifications := api.Group("/notifications")
	notifications.Get("", cfg.Notifications.List)
	notifications.Post("/:id/read", cfg.Notifications.MarkRead)

	reminders := api.Group("/reminders", auth.RequireStaff())
	reminders.Post("", cfg.Reminders.Create)
	reminders.Get("/:id", cfg.Reminders.Get)
	reminders.Post("/:id/cancel", cfg.Reminders.Cancel)

	admin := api.Group("/admin", auth.RequireStaff())
	admin.Post("/reminders/dispatch", cfg.Admin.TriggerDispatch)
	admin.Post("/care-tasks/sweep", cfg.Admin.TriggerCareSweep)

	// Live connection endpoint. The upgrade guard rejects plain HTTP; the
	// auth middleware has already resolved the principal into locals.
	app.Get("/ws", cfg.AuthMiddleware.Handle, func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	}, cfg.Gateway.Handler())
}

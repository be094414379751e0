package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/event-service/internal/api/http/handlers"
	"github.com/spec-kit/event-service/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Users          *handlers.UsersHandler
	Events         *handlers.EventsHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes. Reads are public; every mutation
// requires a bearer token, and user deletion additionally requires admin.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	app.Post("/users", cfg.Users.Register)
	app.Post("/users/login", cfg.Users.Login)
	app.Post("/users/password/reset/request", cfg.Users.RequestPasswordReset)
	app.Post("/users/password/reset/confirm", cfg.Users.ConfirmPasswordReset)
	app.Get("/users", cfg.Users.GetUsers)
	app.Put("/users", cfg.AuthMiddleware.Handle, cfg.Users.UpdateUser)
	app.Delete("/users", cfg.AuthMiddleware.Handle, auth.RequireAdmin(), cfg.Users.DeleteUser)

	app.Get("/events", cfg.Events.GetEvents)
	app.Get("/events/audit", cfg.AuthMiddleware.Handle, cfg.Events.GetEventAudit)
	app.Post("/events", cfg.AuthMiddleware.Handle, cfg.Events.CreateEvent)
	app.Put("/events", cfg.AuthMiddleware.Handle, cfg.Events.UpdateEvent)
	app.Put("/events/participants", cfg.AuthMiddleware.Handle, cfg.Events.UpdateParticipants)
	app.Delete("/events", cfg.AuthMiddleware.Handle, cfg.Events.DeleteEvent)
}

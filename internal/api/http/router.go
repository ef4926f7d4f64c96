package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/task-service/internal/api/http/handlers"
	"github.com/spec-kit/task-service/internal/auth"
	"github.com/spec-kit/task-service/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Tasks          *handlers.TasksHandler
	Status         *handlers.StatusHandler
	Notifications  *handlers.NotificationsHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	app.Get("/health/metrics", cfg.Health.Metrics)

	app.Post("/auth/login", cfg.Auth.Login)

	supervisor := auth.RequireRole(domain.RoleAdmin, domain.RoleManager)

	tasks := app.Group("/tasks", cfg.AuthMiddleware.Handle, auth.RequireAuthenticated())
	tasks.Post("/", supervisor, cfg.Tasks.CreateTasks)
	tasks.Get("/", cfg.Tasks.ListTasks)
	tasks.Get("/:id", cfg.Tasks.GetTask)
	tasks.Put("/:id", cfg.Tasks.UpdateTask)
	tasks.Delete("/:id", supervisor, cfg.Tasks.DeleteTask)
	tasks.Post("/:id/complete", cfg.Tasks.CompleteTask)
	tasks.Post("/:id/mark-overdue", cfg.Tasks.MarkOverdue)
	tasks.Get("/:id/history", supervisor, cfg.Tasks.ListHistory)

	status := app.Group("/status", cfg.AuthMiddleware.Handle, auth.RequireAuthenticated())
	status.Get("/summary", cfg.Status.Summary)
	status.Post("/update", cfg.Status.Update)

	notifications := app.Group("/notifications", cfg.AuthMiddleware.Handle, auth.RequireAuthenticated())
	notifications.Get("/", cfg.Notifications.List)
	notifications.Get("/unread-count", cfg.Notifications.UnreadCount)
	notifications.Post("/mark-read", cfg.Notifications.MarkRead)
	notifications.Post("/remove", cfg.Notifications.Remove)
}

package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/spec-kit/feedback-service/internal/api/http/handlers"
	"github.com/spec-kit/feedback-service/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Complaints     *handlers.ComplaintsHandler
	Replies        *handlers.RepliesHandler
	Attachments    *handlers.AttachmentsHandler
	Admin          *handlers.AdminHandler
	Notifications  *handlers.NotificationsHandler
	Reports        *handlers.ReportsHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	api := app.Group("/api")

	api.Post("/auth/login", cfg.Auth.Login)

	// Complaint submission and the plant list back the public intake form.
	api.Post("/complaints", cfg.Complaints.Create)
	api.Get("/plants", cfg.Admin.ListPlants)

	authed := api.Group("", cfg.AuthMiddleware.Handle)
	authed.Get("/auth/me", cfg.Auth.Me)
	authed.Post("/auth/password/change", cfg.Auth.ChangePassword)

	authed.Get("/notifications", cfg.Notifications.List)
	authed.Post("/notifications/read-all", cfg.Notifications.MarkAllRead)
	authed.Post("/notifications/:id/read", cfg.Notifications.MarkRead)

	admin := authed.Group("", auth.RequireAdmin())
	admin.Get("/complaints", cfg.Complaints.List)
	admin.Get("/complaints/:id", cfg.Complaints.Get)
	admin.Put("/complaints/:id", cfg.Complaints.Update)
	admin.Delete("/complaints/:id", cfg.Complaints.Delete)
	admin.Post("/complaints/:id/classify", cfg.Complaints.Classify)
	admin.Get("/complaints/:id/suggestions", cfg.Complaints.Suggestions)
	admin.Get("/complaints/:id/summary", cfg.Complaints.Summary)
	admin.Get("/complaints/:id/assist", cfg.Complaints.Assist)
	admin.Post("/complaints/:id/notes", cfg.Complaints.AddNote)
	admin.Post("/complaints/:id/watch", cfg.Complaints.Watch)

	admin.Post("/complaints/:id/replies", cfg.Replies.Create)
	admin.Get("/complaints/:id/replies", cfg.Replies.List)
	admin.Put("/replies/:id", cfg.Replies.Update)
	admin.Delete("/replies/:id", cfg.Replies.Delete)

	admin.Post("/complaints/:id/attachments", cfg.Attachments.Upload)
	admin.Get("/complaints/:id/attachments", cfg.Attachments.List)
	admin.Get("/attachments/:id/download", cfg.Attachments.Download)
	admin.Delete("/attachments/:id", cfg.Attachments.Delete)

	admin.Get("/categories", cfg.Admin.ListCategories)
	admin.Get("/departments/names", cfg.Admin.ListDepartments)
	admin.Post("/departments/:department/:plant/employees", cfg.Admin.CreateEmployee)
	admin.Delete("/users/:id", cfg.Admin.DeactivateUser)

	admin.Post("/reports/generate", cfg.Reports.Generate)
	admin.Get("/reports", cfg.Reports.List)
	admin.Get("/reports/:id", cfg.Reports.Get)
	admin.Get("/reports/:id/download", cfg.Reports.Download)

	super := authed.Group("", auth.RequireSuperAdmin())
	super.Get("/admins", cfg.Admin.ListAdmins)
	super.Post("/admins", cfg.Admin.CreateAdmin)
	super.Get("/users", cfg.Admin.ListUsers)
	super.Put("/users/:id", cfg.Admin.UpdateUser)
	super.Post("/categories", cfg.Admin.CreateCategory)
	super.Delete("/categories/:name", cfg.Admin.DeleteCategory)
	super.Get("/logs", cfg.Admin.ListAuditLogs)
	super.Delete("/reports/:id", cfg.Reports.Delete)
}

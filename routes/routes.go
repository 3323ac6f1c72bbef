package routes

import (
	"github.com/gofiber/fiber/v2"

	"civicdesk-backend/controllers"
	"civicdesk-backend/middlewares"
	"civicdesk-backend/models"
)

// Register wires all HTTP routes.
func Register(app *fiber.App, requests *controllers.RequestHandler) {
	api := app.Group("/api")

	// Public auth endpoint
	api.Post("/login", controllers.Login)

	// Protected endpoints (JWT auth)
	protected := api.Group("")
	protected.Use(middlewares.IsAuthenticatedHeader())

	// Idempotency guard for retried mutations
	protected.Use(middlewares.Idempotency())

	// Nomenclature (read-only)
	protected.Get("/request-types", controllers.GetRequestTypes)
	protected.Get("/topics", controllers.GetTopics)
	protected.Get("/social-groups", controllers.GetSocialGroups)
	protected.Get("/intake-forms", controllers.GetIntakeForms)

	// Requests (lifecycle service)
	protected.Post("/requests", requests.Create)
	protected.Get("/requests", requests.List)
	protected.Get("/requests/:id", requests.Get)
	protected.Put("/requests/:id", requests.Update)
	protected.Get("/requests/:id/attachments/:attachment_id", requests.DownloadAttachment)
	protected.Post("/requests/:id/remove-from-control",
		middlewares.RequireRole(models.RoleSupervisor, models.RoleAdmin),
		requests.RemoveFromControl)

	// Accounts (admin only)
	admin := protected.Group("", middlewares.RequireRole(models.RoleAdmin))
	admin.Post("/users", controllers.CreateUser)
	admin.Patch("/users/:id/active", controllers.SetUserActive)
}

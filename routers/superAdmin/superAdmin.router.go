package superAdminRoutes

import (
	superAdminController "govdocs/controllers/superAdmin"
	"govdocs/identity"
	"govdocs/middleware"
	"govdocs/validators"
	superAdminValidator "govdocs/validators/superAdmin"

	"github.com/gofiber/fiber/v2"
)

func SetupSuperAdminRoutes(app *fiber.App, h *superAdminController.Handler) {
	adminGroup := app.Group("/admin", middleware.JWTMiddleware, middleware.RequireRole(identity.Admin))

	adminGroup.Get("/users", superAdminValidator.ListUsers(), h.ListUsers)
	adminGroup.Get("/users/:id", validators.ID("id"), h.GetUser)
	adminGroup.Post("/distributors", superAdminValidator.CreateDistributor(), h.CreateDistributor)
	adminGroup.Patch("/users/:id/status", validators.ID("id"), superAdminValidator.SetLoginStatus(), h.SetLoginStatus)
	adminGroup.Delete("/users/:id", validators.ID("id"), h.DeleteUser)
}

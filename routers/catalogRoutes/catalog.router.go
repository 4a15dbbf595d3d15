package catalogRoutes

import (
	catalogController "govdocs/controllers/catalog"
	"govdocs/identity"
	"govdocs/middleware"
	"govdocs/validators"
	catalogValidator "govdocs/validators/catalog"

	"github.com/gofiber/fiber/v2"
)

// SetupCatalogRoutes: reads are open to every signed-in role, writes are admin only.
func SetupCatalogRoutes(app *fiber.App, h *catalogController.Handler) {
	catalogGroup := app.Group("/catalog", middleware.JWTMiddleware)
	admin := middleware.RequireRole(identity.Admin)

	catalogGroup.Get("/categories", h.ListCategories)
	catalogGroup.Post("/categories", admin, catalogValidator.Name(), h.CreateCategory)
	catalogGroup.Put("/categories/:id", admin, validators.ID("id"), catalogValidator.Name(), h.RenameCategory)
	catalogGroup.Delete("/categories/:id", admin, validators.ID("id"), h.DeleteCategory)

	catalogGroup.Get("/subcategories", catalogValidator.ListSubcategories(), h.ListSubcategories)
	catalogGroup.Post("/subcategories", admin, catalogValidator.CreateSubcategory(), h.CreateSubcategory)
	catalogGroup.Put("/subcategories/:id", admin, validators.ID("id"), catalogValidator.Name(), h.RenameSubcategory)
	catalogGroup.Delete("/subcategories/:id", admin, validators.ID("id"), h.DeleteSubcategory)

	catalogGroup.Get("/requirements", catalogValidator.Pair(), h.GetRequirements)
	catalogGroup.Get("/requirements/all", h.ListRequirements)
	catalogGroup.Put("/requirements/documents", admin, catalogValidator.DefineRequirements(), h.DefineRequiredDocuments)
	catalogGroup.Put("/requirements/fields", admin, catalogValidator.DefineRequirements(), h.DefineRequiredFields)
}

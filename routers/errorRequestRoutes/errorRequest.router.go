package errorRequestRoutes

import (
	errorRequestController "govdocs/controllers/errorRequest"
	"govdocs/identity"
	"govdocs/middleware"
	"govdocs/validators"
	applicationValidator "govdocs/validators/application"
	errorRequestValidator "govdocs/validators/errorRequest"

	"github.com/gofiber/fiber/v2"
)

func SetupErrorRequestRoutes(app *fiber.App, h *errorRequestController.Handler) {
	group := app.Group("/error-requests", middleware.JWTMiddleware)
	admin := middleware.RequireRole(identity.Admin)
	distributor := middleware.RequireRole(identity.Distributor)
	id := validators.ID("id")

	group.Post("/", middleware.RequireRole(identity.Customer), errorRequestValidator.Raise(), h.Raise)
	group.Get("/", errorRequestValidator.List(), h.List)
	group.Get("/:id", id, h.Get)

	group.Patch("/:id/approve", admin, id, h.Approve)
	group.Patch("/:id/reject", admin, id, applicationValidator.Reason(), h.Reject)
	group.Patch("/:id/assign", admin, id, applicationValidator.Assign(), h.Assign)
	group.Patch("/:id/complete", admin, id, h.Complete)

	group.Patch("/:id/distributor-reject", distributor, id, applicationValidator.Reason(), h.DistributorReject)
	group.Post("/:id/certificate", distributor, id, applicationValidator.File(), h.UploadCertificate)
}

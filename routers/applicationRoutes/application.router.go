package applicationRoutes

import (
	applicationController "govdocs/controllers/application"
	"govdocs/identity"
	"govdocs/middleware"
	"govdocs/validators"
	applicationValidator "govdocs/validators/application"

	"github.com/gofiber/fiber/v2"
)

func SetupApplicationRoutes(app *fiber.App, h *applicationController.Handler, ch *applicationController.CertificateHandler) {
	appGroup := app.Group("/applications", middleware.JWTMiddleware)
	admin := middleware.RequireRole(identity.Admin)
	distributor := middleware.RequireRole(identity.Distributor)
	id := validators.ID("id")

	appGroup.Post("/", middleware.RequireRole(identity.Customer), applicationValidator.Submit(), h.Submit)
	appGroup.Get("/", applicationValidator.List(), h.List)
	appGroup.Get("/:id", id, h.Get)
	appGroup.Get("/:id/history", id, h.History)

	appGroup.Patch("/:id/approve", admin, id, h.Approve)
	appGroup.Patch("/:id/reject", admin, id, applicationValidator.Reason(), h.Reject)
	appGroup.Patch("/:id/assign", admin, id, applicationValidator.Assign(), h.AssignDistributor)
	appGroup.Patch("/:id/complete", admin, id, h.MarkCompleted)
	appGroup.Patch("/:id/distributor-reject", distributor, id, applicationValidator.Reason(), h.DistributorReject)

	appGroup.Post("/:id/certificate", distributor, id, applicationValidator.File(), h.UploadCertificate)
	appGroup.Put("/:id/certificate", admin, id, applicationValidator.File(), h.ReplaceCertificate)
	appGroup.Get("/:id/certificate", id, ch.Get)
	appGroup.Get("/:id/certificate/download", id, ch.Download)
	appGroup.Get("/:id/certificate/qr", id, ch.QRCode)
	appGroup.Get("/:id/bundle", id, ch.Bundle)

	certGroup := app.Group("/certificates")
	certGroup.Get("/verify/:number", ch.Verify)
	certGroup.Get("/", middleware.JWTMiddleware, validators.Page(), ch.List)
}

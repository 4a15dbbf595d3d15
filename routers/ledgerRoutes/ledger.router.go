package ledgerRoutes

import (
	ledgerController "govdocs/controllers/ledger"
	"govdocs/identity"
	"govdocs/middleware"
	"govdocs/validators"
	ledgerValidator "govdocs/validators/ledger"

	"github.com/gofiber/fiber/v2"
)

func SetupLedgerRoutes(app *fiber.App, h *ledgerController.Handler) {
	admin := middleware.RequireRole(identity.Admin)
	id := validators.ID("id")

	notifications := app.Group("/notifications", middleware.JWTMiddleware)
	notifications.Get("/active", h.ActiveNotices)
	notifications.Get("/", admin, validators.Page(), h.ListNotifications)
	notifications.Post("/", admin, ledgerValidator.Notification(), h.PostNotification)
	notifications.Put("/:id", admin, id, ledgerValidator.Notification(), h.UpdateNotification)
	notifications.Patch("/:id/status", admin, id, ledgerValidator.NotificationStatus(), h.SetNotificationStatus)
	notifications.Delete("/:id", admin, id, h.DeleteNotification)

	feedback := app.Group("/feedback", middleware.JWTMiddleware)
	feedback.Post("/", middleware.RequireRole(identity.Customer), ledgerValidator.Feedback(), h.PostFeedback)
	feedback.Get("/", admin, validators.Page(), h.ListFeedback)
}

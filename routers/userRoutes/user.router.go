package userRoutes

import (
	userController "govdocs/controllers/userControllers"
	"govdocs/middleware"
	"govdocs/validators/userValidator"

	"github.com/gofiber/fiber/v2"
)

func SetupUserRoutes(app *fiber.App, h *userController.Handler) {
	userGroup := app.Group("/user", middleware.JWTMiddleware)

	userGroup.Get("/profile", h.GetProfile)
	userGroup.Put("/profile", userValidator.UpdateProfile(), h.UpdateProfile)
	userGroup.Put("/password", userValidator.ChangePassword(), h.ChangePassword)
	userGroup.Post("/documents", userValidator.UploadDocument(), h.UploadDocument)
}

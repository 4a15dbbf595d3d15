package authRoutes

import (
	authControllers "govdocs/controllers/auth"
	"govdocs/middleware"
	"govdocs/validators"
	authValidators "govdocs/validators/auth"

	"github.com/gofiber/fiber/v2"
)

// SetupAuthRoutes mounts registration and login behind limiter.
func SetupAuthRoutes(app *fiber.App, h *authControllers.Handler, limiter fiber.Handler) {
	authGroup := app.Group("/auth")

	authGroup.Post("/register", limiter, authValidators.Register(), h.Register)
	authGroup.Post("/login", limiter, authValidators.Login(), h.Login)
	authGroup.Get("/login/history", middleware.JWTMiddleware, validators.Page(), h.LoginHistoryList)
}

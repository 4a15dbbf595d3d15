package dashboardRoutes

import (
	dashboardController "govdocs/controllers/dashboard"
	"govdocs/middleware"

	"github.com/gofiber/fiber/v2"
)

func SetupDashboardRoutes(app *fiber.App, h *dashboardController.Handler) {
	app.Get("/dashboard", middleware.JWTMiddleware, h.Stats)
}

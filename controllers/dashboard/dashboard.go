package dashboardController

import (
	"govdocs/middleware"
	"govdocs/services/dashboard"

	"github.com/gofiber/fiber/v2"
)

type Handler struct {
	Dashboard *dashboard.Service
}

func (h *Handler) Stats(c *fiber.Ctx) error {
	stats, err := h.Dashboard.Stats(c.UserContext(), middleware.CurrentIdentity(c))
	if err != nil {
		return middleware.ErrorResponse(c, err)
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Dashboard fetched successfully.", stats)
}

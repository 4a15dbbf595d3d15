package middleware

import (
	"govdocs/identity"

	"github.com/gofiber/fiber/v2"
)

// RequireRole returns a middleware that lets only the given roles through.
// It must run after JWTMiddleware.
func RequireRole(roles ...identity.Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := c.Locals("identity").(identity.Identity)
		if !ok || id.UserID == 0 {
			return JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized: User ID not found", nil)
		}
		if !id.Is(roles...) {
			return JsonResponse(c, fiber.StatusForbidden, false, "You do not have permission to access this resource!", nil)
		}
		return c.Next()
	}
}

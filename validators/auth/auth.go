package authValidator

import (
	"strings"

	"govdocs/identity"
	"govdocs/validators"

	"github.com/gofiber/fiber/v2"
)

type RegisterRequest struct {
	Name     string `json:"name" validate:"required,min=2,max=120"`
	Email    string `json:"email" validate:"required,email"`
	Phone    string `json:"phone" validate:"omitempty,len=10,numeric"`
	Address  string `json:"address" validate:"max=500"`
	City     string `json:"city" validate:"max=80"`
	Country  string `json:"country" validate:"max=80"`
	Password string `json:"password" validate:"required,min=8,max=72"`
	Role     string `json:"role"`
}

// Register validator middleware. Role defaults to Customer; only Customer
// and Distributor may self-register.
func Register() fiber.Handler {
	return func(c *fiber.Ctx) error {
		reqData := new(RegisterRequest)
		return validators.Body(c, reqData, "register", func(errors map[string]string) {
			if strings.TrimSpace(reqData.Role) == "" {
				reqData.Role = string(identity.Customer)
			}
			role, ok := identity.ParseRole(reqData.Role)
			if !ok || role == identity.Admin {
				errors["role"] = "Role must be Customer or Distributor!"
				return
			}
			reqData.Role = string(role)
		})
	}
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// Login validator middleware
func Login() fiber.Handler {
	return func(c *fiber.Ctx) error {
		return validators.Body(c, new(LoginRequest), "login")
	}
}

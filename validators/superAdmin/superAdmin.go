package superAdminValidator

import (
	"govdocs/identity"
	"govdocs/models"
	"govdocs/validators"

	"github.com/gofiber/fiber/v2"
)

type ListUsersQuery struct {
	validators.Pagination
	Role        string `query:"role"`
	LoginStatus string `query:"login_status"`
	Search      string `query:"search" validate:"max=100"`
}

func ListUsers() fiber.Handler {
	return func(c *fiber.Ctx) error {
		reqData := new(ListUsersQuery)
		return validators.Query(c, reqData, "list", func(errors map[string]string) {
			if reqData.Role != "" {
				role, ok := identity.ParseRole(reqData.Role)
				if !ok {
					errors["role"] = "Unknown role!"
				}
				reqData.Role = string(role)
			}
			if reqData.LoginStatus != "" && !models.LoginStatus(reqData.LoginStatus).Valid() {
				errors["login_status"] = "Login status must be Active, Inactive or Approve!"
			}
		})
	}
}

type LoginStatusRequest struct {
	LoginStatus string `json:"login_status" validate:"required,oneof=Active Inactive Approve"`
}

func SetLoginStatus() fiber.Handler {
	return func(c *fiber.Ctx) error {
		return validators.Body(c, new(LoginStatusRequest), "loginStatus")
	}
}

type CreateDistributorRequest struct {
	Name     string `json:"name" validate:"required,min=2,max=120"`
	Email    string `json:"email" validate:"required,email"`
	Phone    string `json:"phone" validate:"omitempty,len=10,numeric"`
	Address  string `json:"address" validate:"max=500"`
	City     string `json:"city" validate:"max=80"`
	Country  string `json:"country" validate:"max=80"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

func CreateDistributor() fiber.Handler {
	return func(c *fiber.Ctx) error {
		return validators.Body(c, new(CreateDistributorRequest), "distributor")
	}
}

package superAdminController

import (
	"govdocs/identity"
	"govdocs/middleware"
	"govdocs/models"
	"govdocs/services/users"
	"govdocs/utils"
	superAdminValidator "govdocs/validators/superAdmin"

	"github.com/gofiber/fiber/v2"
)

type Handler struct {
	Users *users.Service
}

func (h *Handler) ListUsers(c *fiber.Ctx) error {
	reqData, ok := c.Locals("list").(*superAdminValidator.ListUsersQuery)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request data!", nil)
	}
	list, total, err := h.Users.List(c.UserContext(), middleware.CurrentIdentity(c), users.ListFilter{
		Role:        identity.Role(reqData.Role),
		LoginStatus: models.LoginStatus(reqData.LoginStatus),
		Search:      reqData.Search,
		Page:        reqData.Page,
		Limit:       reqData.Limit,
	})
	if err != nil {
		return middleware.ErrorResponse(c, err)
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Users fetched successfully.",
		utils.Paginated("users", list, total, reqData.Page, reqData.Limit))
}

func (h *Handler) GetUser(c *fiber.Ctx) error {
	user, err := h.Users.Get(c.UserContext(), c.Locals("id").(uint))
	if err != nil {
		return middleware.ErrorResponse(c, err)
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "User fetched successfully.", user)
}

func (h *Handler) CreateDistributor(c *fiber.Ctx) error {
	reqData, ok := c.Locals("distributor").(*superAdminValidator.CreateDistributorRequest)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request data!", nil)
	}
	user, err := h.Users.RegisterDistributor(c.UserContext(), middleware.CurrentIdentity(c), users.Profile{
		Name:    reqData.Name,
		Email:   reqData.Email,
		Phone:   reqData.Phone,
		Address: reqData.Address,
		City:    reqData.City,
		Country: reqData.Country,
	}, reqData.Password)
	if err != nil {
		return middleware.ErrorResponse(c, err)
	}
	return middleware.JsonResponse(c, fiber.StatusCreated, true, "Distributor created successfully.", user)
}

// SetLoginStatus activates, deactivates or parks an account. Setting the
// current status again is a no-op success.
func (h *Handler) SetLoginStatus(c *fiber.Ctx) error {
	reqData, ok := c.Locals("loginStatus").(*superAdminValidator.LoginStatusRequest)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request data!", nil)
	}
	user, err := h.Users.SetLoginStatus(c.UserContext(), middleware.CurrentIdentity(c), c.Locals("id").(uint), models.LoginStatus(reqData.LoginStatus))
	if err != nil {
		return middleware.ErrorResponse(c, err)
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Login status updated.", user)
}

func (h *Handler) DeleteUser(c *fiber.Ctx) error {
	if err := h.Users.Delete(c.UserContext(), middleware.CurrentIdentity(c), c.Locals("id").(uint)); err != nil {
		return middleware.ErrorResponse(c, err)
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "User deleted successfully.", nil)
}

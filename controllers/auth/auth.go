package authController

import (
	"govdocs/identity"
	"govdocs/middleware"
	"govdocs/services/users"
	"govdocs/utils"
	"govdocs/validators"
	authValidator "govdocs/validators/auth"

	"github.com/gofiber/fiber/v2"
)

type Handler struct {
	Users *users.Service
}

func profileOf(r *authValidator.RegisterRequest) users.Profile {
	return users.Profile{
		Name:    r.Name,
		Email:   r.Email,
		Phone:   r.Phone,
		Address: r.Address,
		City:    r.City,
		Country: r.Country,
	}
}

func (h *Handler) Register(c *fiber.Ctx) error {
	reqData, ok := c.Locals("register").(*authValidator.RegisterRequest)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request data!", nil)
	}
	role, _ := identity.ParseRole(reqData.Role)

	user, err := h.Users.Register(c.UserContext(), profileOf(reqData), role, reqData.Password)
	if err != nil {
		return middleware.ErrorResponse(c, err)
	}

	message := "Registration successful."
	if role == identity.Distributor {
		message = "Registration successful. Your account is awaiting admin approval."
	}
	return middleware.JsonResponse(c, fiber.StatusCreated, true, message, user)
}

func (h *Handler) Login(c *fiber.Ctx) error {
	reqData, ok := c.Locals("login").(*authValidator.LoginRequest)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request data!", nil)
	}

	user, err := h.Users.Authenticate(c.UserContext(), reqData.Email, reqData.Password, users.LoginMeta{
		IP:     c.IP(),
		Device: c.Get("User-Agent"),
	})
	if err != nil {
		return middleware.ErrorResponse(c, err)
	}

	token, err := middleware.GenerateJWT(*user)
	if err != nil {
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to generate token", nil)
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Login successful.", fiber.Map{
		"user":  user,
		"token": token,
	})
}

func (h *Handler) LoginHistoryList(c *fiber.Ctx) error {
	id := middleware.CurrentIdentity(c)
	page := validators.PageOf(c)

	list, total, err := h.Users.LoginHistory(c.UserContext(), id.UserID, page.Page, page.Limit)
	if err != nil {
		return middleware.ErrorResponse(c, err)
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Login History List.",
		utils.Paginated("loginTracking", list, total, page.Page, page.Limit))
}

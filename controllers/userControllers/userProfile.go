package userController

import (
	"govdocs/middleware"
	"govdocs/services/users"
	"govdocs/utils"
	"govdocs/validators/userValidator"

	"github.com/gofiber/fiber/v2"
)

type Handler struct {
	Users *users.Service
}

// GetProfile returns the caller with their identity documents and whether
// the first-login gate is satisfied.
func (h *Handler) GetProfile(c *fiber.Ctx) error {
	id := middleware.CurrentIdentity(c)
	user, err := h.Users.Get(c.UserContext(), id.UserID)
	if err != nil {
		return middleware.ErrorResponse(c, err)
	}
	missing := users.MissingProfileParts(*user, int64(len(user.Documents)))
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Profile fetched successfully.", fiber.Map{
		"user":             user,
		"profile_complete": len(missing) == 0,
		"missing":          missing,
	})
}

func (h *Handler) UpdateProfile(c *fiber.Ctx) error {
	reqData, ok := c.Locals("profile").(*userValidator.UpdateProfileRequest)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request data!", nil)
	}
	user, err := h.Users.UpdateProfile(c.UserContext(), middleware.CurrentIdentity(c), users.ProfileUpdate{
		Name:    reqData.Name,
		Phone:   reqData.Phone,
		Address: reqData.Address,
		City:    reqData.City,
		Country: reqData.Country,
	})
	if err != nil {
		return middleware.ErrorResponse(c, err)
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Profile updated successfully.", user)
}

func (h *Handler) ChangePassword(c *fiber.Ctx) error {
	reqData, ok := c.Locals("password").(*userValidator.ChangePasswordRequest)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request data!", nil)
	}
	if err := h.Users.ChangePassword(c.UserContext(), middleware.CurrentIdentity(c), reqData.OldPassword, reqData.NewPassword); err != nil {
		return middleware.ErrorResponse(c, err)
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Password changed successfully.", nil)
}

func (h *Handler) UploadDocument(c *fiber.Ctx) error {
	file, ok := c.Locals("document").(*utils.UploadedFile)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request data!", nil)
	}
	doc, err := h.Users.UploadDocument(c.UserContext(), middleware.CurrentIdentity(c), *file)
	if err != nil {
		return middleware.ErrorResponse(c, err)
	}
	return middleware.JsonResponse(c, fiber.StatusCreated, true, "Document uploaded successfully.", doc)
}

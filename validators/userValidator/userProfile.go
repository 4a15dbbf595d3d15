package userValidator

import (
	"strings"

	"govdocs/middleware"
	"govdocs/utils"
	"govdocs/validators"

	"github.com/gofiber/fiber/v2"
)

type UpdateProfileRequest struct {
	Name    *string `json:"name" validate:"omitempty,min=2,max=120"`
	Phone   *string `json:"phone" validate:"omitempty,len=10,numeric"`
	Address *string `json:"address" validate:"omitempty,max=500"`
	City    *string `json:"city" validate:"omitempty,max=80"`
	Country *string `json:"country" validate:"omitempty,max=80"`
}

func UpdateProfile() fiber.Handler {
	return func(c *fiber.Ctx) error {
		reqData := new(UpdateProfileRequest)
		return validators.Body(c, reqData, "profile", func(errors map[string]string) {
			if reqData.Name == nil && reqData.Phone == nil && reqData.Address == nil &&
				reqData.City == nil && reqData.Country == nil {
				errors["body"] = "Nothing to update!"
			}
		})
	}
}

type ChangePasswordRequest struct {
	OldPassword string `json:"old_password" validate:"required"`
	NewPassword string `json:"new_password" validate:"required,min=8,max=72"`
}

func ChangePassword() fiber.Handler {
	return func(c *fiber.Ctx) error {
		reqData := new(ChangePasswordRequest)
		return validators.Body(c, reqData, "password", func(errors map[string]string) {
			if reqData.OldPassword != "" && reqData.OldPassword == reqData.NewPassword {
				errors["new_password"] = "New password must differ from the old one!"
			}
		})
	}
}

// UploadDocument expects multipart fields "label" and "file".
func UploadDocument() fiber.Handler {
	return func(c *fiber.Ctx) error {
		errors := make(map[string]string)
		label := strings.TrimSpace(c.FormValue("label"))
		if label == "" {
			errors["label"] = "Document label is required!"
		}
		fh, err := c.FormFile("file")
		if err != nil {
			errors["file"] = "File is required!"
		}
		if len(errors) > 0 {
			return middleware.ValidationErrorResponse(c, errors)
		}
		file := utils.FromMultipart(label, fh)
		c.Locals("document", &file)
		return c.Next()
	}
}

package errorRequestValidator

import (
	"strconv"
	"strings"

	"govdocs/middleware"
	"govdocs/models"
	"govdocs/utils"
	"govdocs/validators"

	"github.com/gofiber/fiber/v2"
)

type RaiseRequest struct {
	DocumentID  uint
	Description string
	File        *utils.UploadedFile
}

// Raise expects multipart fields document_id, request_description and file.
func Raise() fiber.Handler {
	return func(c *fiber.Ctx) error {
		errors := make(map[string]string)
		reqData := &RaiseRequest{Description: strings.TrimSpace(c.FormValue("request_description"))}

		if id, err := strconv.ParseUint(c.FormValue("document_id"), 10, 64); err != nil || id == 0 {
			errors["document_id"] = "Document is required!"
		} else {
			reqData.DocumentID = uint(id)
		}
		if reqData.Description == "" {
			errors["request_description"] = "Description is required!"
		} else if len(reqData.Description) > 2000 {
			errors["request_description"] = "Description is too long!"
		}
		if fh, err := c.FormFile("file"); err != nil {
			errors["file"] = "File is required!"
		} else {
			f := utils.FromMultipart("error request", fh)
			reqData.File = &f
		}

		if len(errors) > 0 {
			return middleware.ValidationErrorResponse(c, errors)
		}
		c.Locals("raise", reqData)
		return c.Next()
	}
}

type ListQuery struct {
	validators.Pagination
	DocumentID uint   `query:"document_id"`
	Status     string `query:"status"`

	Statuses []models.ErrorRequestStatus `query:"-"`
}

func List() fiber.Handler {
	return func(c *fiber.Ctx) error {
		reqData := new(ListQuery)
		return validators.Query(c, reqData, "filter", func(errors map[string]string) {
			for _, s := range strings.Split(reqData.Status, ",") {
				if s = strings.TrimSpace(s); s == "" {
					continue
				}
				st, ok := models.ParseErrorRequestStatus(s)
				if !ok {
					errors["status"] = "Unknown status " + strconv.Quote(s) + "!"
					return
				}
				reqData.Statuses = append(reqData.Statuses, st)
			}
		})
	}
}

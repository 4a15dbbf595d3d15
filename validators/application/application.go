package applicationValidator

import (
	"encoding/json"
	"strconv"
	"strings"

	"govdocs/middleware"
	"govdocs/models"
	"govdocs/services/applications"
	"govdocs/utils"
	"govdocs/validators"

	"github.com/gofiber/fiber/v2"
)

// Submit parses the multipart submission: category_id, subcategory_id,
// document_fields (a JSON object of label -> value), optional applicant
// overrides, and one "files" part per required document with a matching
// "labels" value in the same order.
func Submit() fiber.Handler {
	return func(c *fiber.Ctx) error {
		form, err := c.MultipartForm()
		if err != nil {
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Expected a multipart form!", nil)
		}
		errors := make(map[string]string)
		value := func(key string) string {
			if v := form.Value[key]; len(v) > 0 {
				return strings.TrimSpace(v[0])
			}
			return ""
		}

		in := applications.Submission{
			Name:    value("name"),
			Email:   value("email"),
			Phone:   value("phone"),
			Address: value("address"),
		}
		if id, err := strconv.ParseUint(value("category_id"), 10, 64); err != nil || id == 0 {
			errors["category_id"] = "Category is required!"
		} else {
			in.CategoryID = uint(id)
		}
		if id, err := strconv.ParseUint(value("subcategory_id"), 10, 64); err != nil || id == 0 {
			errors["subcategory_id"] = "Subcategory is required!"
		} else {
			in.SubcategoryID = uint(id)
		}

		in.Fields = map[string]string{}
		if raw := value("document_fields"); raw != "" {
			if err := json.Unmarshal([]byte(raw), &in.Fields); err != nil {
				errors["document_fields"] = "Document fields must be a JSON object of strings!"
			}
		}

		files := form.File["files"]
		labels := form.Value["labels"]
		if len(files) != len(labels) {
			errors["labels"] = "Each file needs exactly one label!"
		} else {
			for i, fh := range files {
				in.Files = append(in.Files, utils.FromMultipart(strings.TrimSpace(labels[i]), fh))
			}
		}

		if len(errors) > 0 {
			return middleware.ValidationErrorResponse(c, errors)
		}
		c.Locals("submission", &in)
		return c.Next()
	}
}

type ListQuery struct {
	validators.Pagination
	Status        string `query:"status"`
	OwnerID       uint   `query:"owner_id"`
	DistributorID uint   `query:"distributor_id"`
	CategoryID    uint   `query:"category_id"`
	SubcategoryID uint   `query:"subcategory_id"`
	Unassigned    bool   `query:"unassigned"`
	Search        string `query:"search" validate:"max=100"`

	Statuses []models.ApplicationStatus `query:"-"`
}

// List accepts status as a comma separated list.
func List() fiber.Handler {
	return func(c *fiber.Ctx) error {
		reqData := new(ListQuery)
		return validators.Query(c, reqData, "filter", func(errors map[string]string) {
			for _, s := range strings.Split(reqData.Status, ",") {
				if s = strings.TrimSpace(s); s == "" {
					continue
				}
				st, ok := models.ParseApplicationStatus(s)
				if !ok {
					errors["status"] = "Unknown status " + strconv.Quote(s) + "!"
					return
				}
				reqData.Statuses = append(reqData.Statuses, st)
			}
		})
	}
}

type ReasonRequest struct {
	Reason string `json:"reason" validate:"required,max=1000"`
}

// Reason validates reject bodies.
func Reason() fiber.Handler {
	return func(c *fiber.Ctx) error {
		reqData := new(ReasonRequest)
		return validators.Body(c, reqData, "reason", func(errors map[string]string) {
			if strings.TrimSpace(reqData.Reason) == "" {
				errors["reason"] = "reason is required"
			}
		})
	}
}

type AssignRequest struct {
	DistributorID uint `json:"distributor_id" validate:"required,gt=0"`
}

func Assign() fiber.Handler {
	return func(c *fiber.Ctx) error {
		return validators.Body(c, new(AssignRequest), "assign")
	}
}

// File expects a single multipart "file" part.
func File() fiber.Handler {
	return func(c *fiber.Ctx) error {
		fh, err := c.FormFile("file")
		if err != nil {
			return middleware.ValidationErrorResponse(c, map[string]string{"file": "File is required!"})
		}
		file := utils.FromMultipart("certificate", fh)
		c.Locals("file", &file)
		return c.Next()
	}
}

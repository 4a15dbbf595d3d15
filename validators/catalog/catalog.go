package catalogValidator

import (
	"govdocs/validators"

	"github.com/gofiber/fiber/v2"
)

type NameRequest struct {
	Name string `json:"name" validate:"required,max=120"`
}

// Name validates create/rename bodies for categories and subcategories.
func Name() fiber.Handler {
	return func(c *fiber.Ctx) error {
		return validators.Body(c, new(NameRequest), "name")
	}
}

type SubcategoryRequest struct {
	CategoryID uint   `json:"category_id" validate:"required,gt=0"`
	Name       string `json:"name" validate:"required,max=120"`
}

func CreateSubcategory() fiber.Handler {
	return func(c *fiber.Ctx) error {
		return validators.Body(c, new(SubcategoryRequest), "subcategory")
	}
}

type SubcategoryQuery struct {
	CategoryID uint `query:"category_id"`
}

func ListSubcategories() fiber.Handler {
	return func(c *fiber.Ctx) error {
		return validators.Query(c, new(SubcategoryQuery), "filter")
	}
}

// RequirementsRequest replaces a whole label list; an empty list is legal.
type RequirementsRequest struct {
	CategoryID    uint     `json:"category_id" validate:"required,gt=0"`
	SubcategoryID uint     `json:"subcategory_id" validate:"required,gt=0"`
	Labels        []string `json:"labels" validate:"max=50,dive,max=120"`
}

func DefineRequirements() fiber.Handler {
	return func(c *fiber.Ctx) error {
		reqData := new(RequirementsRequest)
		return validators.Body(c, reqData, "requirements", func(errors map[string]string) {
			if reqData.Labels == nil {
				reqData.Labels = []string{}
			}
		})
	}
}

type PairQuery struct {
	CategoryID    uint `query:"category_id" validate:"required,gt=0"`
	SubcategoryID uint `query:"subcategory_id" validate:"required,gt=0"`
}

func Pair() fiber.Handler {
	return func(c *fiber.Ctx) error {
		return validators.Query(c, new(PairQuery), "pair")
	}
}

// Package validators holds the request validators that run in front of the
// controllers. Each validator parses the body or query, checks it with
// go-playground/validator struct tags plus any hand checks, and stashes the
// result in c.Locals for the controller.
package validators

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"govdocs/middleware"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

var validate = newValidate()

func newValidate() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		for _, tag := range []string{"json", "query", "form"} {
			name := strings.SplitN(f.Tag.Get(tag), ",", 2)[0]
			if name != "" && name != "-" {
				return name
			}
		}
		return strings.ToLower(f.Name)
	})
	return v
}

// Struct validates s against its `validate` tags.
func Struct(s interface{}) error {
	return validate.Struct(s)
}

// FormatValidationError turns validator errors into field -> message.
func FormatValidationError(err error) map[string]string {
	errors := make(map[string]string)
	validationErrors, ok := err.(validator.ValidationErrors)
	if !ok {
		if err != nil {
			errors["body"] = err.Error()
		}
		return errors
	}
	for _, fieldError := range validationErrors {
		field := fieldError.Field()
		switch fieldError.Tag() {
		case "required":
			errors[field] = fmt.Sprintf("%s is required", field)
		case "email":
			errors[field] = "Invalid email format"
		case "min":
			errors[field] = fmt.Sprintf("%s must be at least %s", field, fieldError.Param())
		case "max":
			errors[field] = fmt.Sprintf("%s must be at most %s", field, fieldError.Param())
		case "len":
			errors[field] = fmt.Sprintf("%s must be exactly %s characters", field, fieldError.Param())
		case "numeric":
			errors[field] = fmt.Sprintf("%s must contain digits only", field)
		case "oneof":
			errors[field] = fmt.Sprintf("%s must be one of: %s", field, fieldError.Param())
		case "gt":
			errors[field] = fmt.Sprintf("%s must be greater than %s", field, fieldError.Param())
		default:
			errors[field] = fmt.Sprintf("%s is invalid", field)
		}
	}
	return errors
}

// Check is an optional hand-written rule run after the struct tags pass.
type Check func(errors map[string]string)

func finish(c *fiber.Ctx, dst interface{}, key string, checks []Check) error {
	errors := map[string]string{}
	if err := validate.Struct(dst); err != nil {
		errors = FormatValidationError(err)
	}
	for _, check := range checks {
		check(errors)
	}
	if len(errors) > 0 {
		return middleware.ValidationErrorResponse(c, errors)
	}
	c.Locals(key, dst)
	return c.Next()
}

// Body parses the request body into dst, validates it and stores it under key.
func Body(c *fiber.Ctx, dst interface{}, key string, checks ...Check) error {
	if err := c.BodyParser(dst); err != nil {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request body!", nil)
	}
	return finish(c, dst, key, checks)
}

// Query is Body for the query string.
func Query(c *fiber.Ctx, dst interface{}, key string, checks ...Check) error {
	if err := c.QueryParser(dst); err != nil {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid query parameters!", nil)
	}
	return finish(c, dst, key, checks)
}

// ID validates a positive numeric path parameter and stores it as uint
// under the same name.
func ID(param string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := strconv.ParseUint(c.Params(param), 10, 64)
		if err != nil || id == 0 {
			return middleware.ValidationErrorResponse(c, map[string]string{param: "Invalid " + param + "!"})
		}
		c.Locals(param, uint(id))
		return c.Next()
	}
}

// Pagination is embedded by list queries.
type Pagination struct {
	Page  int `query:"page" validate:"omitempty,min=1"`
	Limit int `query:"limit" validate:"omitempty,min=1,max=100"`
}

// Page validates page/limit and stores them under "page".
func Page() fiber.Handler {
	return func(c *fiber.Ctx) error {
		return Query(c, new(Pagination), "page")
	}
}

// PageOf returns the pagination stored by Page, or the zero value.
func PageOf(c *fiber.Ctx) Pagination {
	if p, ok := c.Locals("page").(*Pagination); ok && p != nil {
		return *p
	}
	return Pagination{}
}

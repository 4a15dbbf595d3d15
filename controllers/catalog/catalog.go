package catalogController

import (
	"govdocs/middleware"
	"govdocs/services/catalog"
	catalogValidator "govdocs/validators/catalog"

	"github.com/gofiber/fiber/v2"
)

type Handler struct {
	Catalog *catalog.Service
}

func (h *Handler) ListCategories(c *fiber.Ctx) error {
	list, err := h.Catalog.ListCategories(c.UserContext())
	if err != nil {
		return middleware.ErrorResponse(c, err)
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Categories fetched successfully.", list)
}

func (h *Handler) CreateCategory(c *fiber.Ctx) error {
	reqData, ok := c.Locals("name").(*catalogValidator.NameRequest)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request data!", nil)
	}
	category, err := h.Catalog.CreateCategory(c.UserContext(), middleware.CurrentIdentity(c), reqData.Name)
	if err != nil {
		return middleware.ErrorResponse(c, err)
	}
	return middleware.JsonResponse(c, fiber.StatusCreated, true, "Category created successfully.", category)
}

func (h *Handler) RenameCategory(c *fiber.Ctx) error {
	reqData, ok := c.Locals("name").(*catalogValidator.NameRequest)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request data!", nil)
	}
	category, err := h.Catalog.RenameCategory(c.UserContext(), middleware.CurrentIdentity(c), c.Locals("id").(uint), reqData.Name)
	if err != nil {
		return middleware.ErrorResponse(c, err)
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Category updated successfully.", category)
}

func (h *Handler) DeleteCategory(c *fiber.Ctx) error {
	if err := h.Catalog.DeleteCategory(c.UserContext(), middleware.CurrentIdentity(c), c.Locals("id").(uint)); err != nil {
		return middleware.ErrorResponse(c, err)
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Category deleted successfully.", nil)
}

func (h *Handler) ListSubcategories(c *fiber.Ctx) error {
	filter, ok := c.Locals("filter").(*catalogValidator.SubcategoryQuery)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request data!", nil)
	}
	list, err := h.Catalog.ListSubcategories(c.UserContext(), filter.CategoryID)
	if err != nil {
		return middleware.ErrorResponse(c, err)
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Subcategories fetched successfully.", list)
}

func (h *Handler) CreateSubcategory(c *fiber.Ctx) error {
	reqData, ok := c.Locals("subcategory").(*catalogValidator.SubcategoryRequest)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request data!", nil)
	}
	sub, err := h.Catalog.CreateSubcategory(c.UserContext(), middleware.CurrentIdentity(c), reqData.CategoryID, reqData.Name)
	if err != nil {
		return middleware.ErrorResponse(c, err)
	}
	return middleware.JsonResponse(c, fiber.StatusCreated, true, "Subcategory created successfully.", sub)
}

func (h *Handler) RenameSubcategory(c *fiber.Ctx) error {
	reqData, ok := c.Locals("name").(*catalogValidator.NameRequest)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request data!", nil)
	}
	sub, err := h.Catalog.RenameSubcategory(c.UserContext(), middleware.CurrentIdentity(c), c.Locals("id").(uint), reqData.Name)
	if err != nil {
		return middleware.ErrorResponse(c, err)
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Subcategory updated successfully.", sub)
}

func (h *Handler) DeleteSubcategory(c *fiber.Ctx) error {
	if err := h.Catalog.DeleteSubcategory(c.UserContext(), middleware.CurrentIdentity(c), c.Locals("id").(uint)); err != nil {
		return middleware.ErrorResponse(c, err)
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Subcategory deleted successfully.", nil)
}

func (h *Handler) GetRequirements(c *fiber.Ctx) error {
	pair, ok := c.Locals("pair").(*catalogValidator.PairQuery)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request data!", nil)
	}
	req, err := h.Catalog.Requirements(c.UserContext(), pair.CategoryID, pair.SubcategoryID)
	if err != nil {
		return middleware.ErrorResponse(c, err)
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Requirements fetched successfully.", req)
}

func (h *Handler) ListRequirements(c *fiber.Ctx) error {
	list, err := h.Catalog.ListRequirements(c.UserContext())
	if err != nil {
		return middleware.ErrorResponse(c, err)
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Requirements fetched successfully.", list)
}

func (h *Handler) DefineRequiredDocuments(c *fiber.Ctx) error {
	reqData, ok := c.Locals("requirements").(*catalogValidator.RequirementsRequest)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request data!", nil)
	}
	req, err := h.Catalog.DefineRequiredDocuments(c.UserContext(), middleware.CurrentIdentity(c), reqData.CategoryID, reqData.SubcategoryID, reqData.Labels)
	if err != nil {
		return middleware.ErrorResponse(c, err)
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Required documents updated.", req)
}

func (h *Handler) DefineRequiredFields(c *fiber.Ctx) error {
	reqData, ok := c.Locals("requirements").(*catalogValidator.RequirementsRequest)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request data!", nil)
	}
	req, err := h.Catalog.DefineRequiredFields(c.UserContext(), middleware.CurrentIdentity(c), reqData.CategoryID, reqData.SubcategoryID, reqData.Labels)
	if err != nil {
		return middleware.ErrorResponse(c, err)
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Required fields updated.", req)
}

package applicationController

import (
	"govdocs/middleware"
	"govdocs/services/applications"
	"govdocs/services/workflow"
	"govdocs/utils"
	applicationValidator "govdocs/validators/application"

	"github.com/gofiber/fiber/v2"
)

type Handler struct {
	Applications *applications.Service
	Workflow     *workflow.Service
}

func (h *Handler) Submit(c *fiber.Ctx) error {
	in, ok := c.Locals("submission").(*applications.Submission)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request data!", nil)
	}
	app, err := h.Applications.Submit(c.UserContext(), middleware.CurrentIdentity(c), *in)
	if err != nil {
		return middleware.ErrorResponse(c, err)
	}
	return middleware.JsonResponse(c, fiber.StatusCreated, true, "Application submitted successfully.", app)
}

func (h *Handler) List(c *fiber.Ctx) error {
	f, ok := c.Locals("filter").(*applicationValidator.ListQuery)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request data!", nil)
	}
	list, total, err := h.Applications.List(c.UserContext(), middleware.CurrentIdentity(c), applications.Filter{
		OwnerID:       f.OwnerID,
		DistributorID: f.DistributorID,
		Statuses:      f.Statuses,
		CategoryID:    f.CategoryID,
		SubcategoryID: f.SubcategoryID,
		Unassigned:    f.Unassigned,
		Search:        f.Search,
		Page:          f.Page,
		Limit:         f.Limit,
	})
	if err != nil {
		return middleware.ErrorResponse(c, err)
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Applications fetched successfully.",
		utils.Paginated("applications", list, total, f.Page, f.Limit))
}

func (h *Handler) Get(c *fiber.Ctx) error {
	app, err := h.Applications.Get(c.UserContext(), middleware.CurrentIdentity(c), c.Locals("id").(uint))
	if err != nil {
		return middleware.ErrorResponse(c, err)
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Application fetched successfully.", app)
}

func (h *Handler) History(c *fiber.Ctx) error {
	trail, err := h.Applications.History(c.UserContext(), middleware.CurrentIdentity(c), c.Locals("id").(uint))
	if err != nil {
		return middleware.ErrorResponse(c, err)
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Status history fetched successfully.", trail)
}

func (h *Handler) Approve(c *fiber.Ctx) error {
	app, err := h.Workflow.Approve(c.UserContext(), middleware.CurrentIdentity(c), c.Locals("id").(uint))
	if err != nil {
		return middleware.ErrorResponse(c, err)
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Application approved.", app)
}

func (h *Handler) Reject(c *fiber.Ctx) error {
	reqData, ok := c.Locals("reason").(*applicationValidator.ReasonRequest)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request data!", nil)
	}
	app, err := h.Workflow.Reject(c.UserContext(), middleware.CurrentIdentity(c), c.Locals("id").(uint), reqData.Reason)
	if err != nil {
		return middleware.ErrorResponse(c, err)
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Application rejected.", app)
}

func (h *Handler) AssignDistributor(c *fiber.Ctx) error {
	reqData, ok := c.Locals("assign").(*applicationValidator.AssignRequest)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request data!", nil)
	}
	app, err := h.Workflow.AssignDistributor(c.UserContext(), middleware.CurrentIdentity(c), c.Locals("id").(uint), reqData.DistributorID)
	if err != nil {
		return middleware.ErrorResponse(c, err)
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Distributor assigned.", app)
}

func (h *Handler) MarkCompleted(c *fiber.Ctx) error {
	app, err := h.Workflow.MarkCompleted(c.UserContext(), middleware.CurrentIdentity(c), c.Locals("id").(uint))
	if err != nil {
		return middleware.ErrorResponse(c, err)
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Application completed.", app)
}

func (h *Handler) DistributorReject(c *fiber.Ctx) error {
	reqData, ok := c.Locals("reason").(*applicationValidator.ReasonRequest)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request data!", nil)
	}
	app, err := h.Workflow.DistributorReject(c.UserContext(), middleware.CurrentIdentity(c), c.Locals("id").(uint), reqData.Reason)
	if err != nil {
		return middleware.ErrorResponse(c, err)
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Application rejected by distributor.", app)
}

// UploadCertificate is the distributor's upload for an assigned application.
func (h *Handler) UploadCertificate(c *fiber.Ctx) error {
	file, ok := c.Locals("file").(*utils.UploadedFile)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request data!", nil)
	}
	app, cert, err := h.Workflow.DistributorUploadCertificate(c.UserContext(), middleware.CurrentIdentity(c), c.Locals("id").(uint), *file)
	if err != nil {
		return middleware.ErrorResponse(c, err)
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Certificate uploaded.", fiber.Map{
		"application": app,
		"certificate": cert,
	})
}

// ReplaceCertificate lets an admin attach a certificate without moving status.
func (h *Handler) ReplaceCertificate(c *fiber.Ctx) error {
	file, ok := c.Locals("file").(*utils.UploadedFile)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request data!", nil)
	}
	app, cert, err := h.Workflow.AdminUploadCertificate(c.UserContext(), middleware.CurrentIdentity(c), c.Locals("id").(uint), *file)
	if err != nil {
		return middleware.ErrorResponse(c, err)
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Certificate replaced.", fiber.Map{
		"application": app,
		"certificate": cert,
	})
}

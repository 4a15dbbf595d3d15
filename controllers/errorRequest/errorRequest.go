package errorRequestController

import (
	"govdocs/middleware"
	"govdocs/services/workflow"
	"govdocs/utils"
	applicationValidator "govdocs/validators/application"
	errorRequestValidator "govdocs/validators/errorRequest"

	"github.com/gofiber/fiber/v2"
)

type Handler struct {
	Workflow *workflow.Service
}

func (h *Handler) Raise(c *fiber.Ctx) error {
	reqData, ok := c.Locals("raise").(*errorRequestValidator.RaiseRequest)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request data!", nil)
	}
	req, err := h.Workflow.RaiseErrorRequest(c.UserContext(), middleware.CurrentIdentity(c), reqData.DocumentID, reqData.Description, reqData.File)
	if err != nil {
		return middleware.ErrorResponse(c, err)
	}
	return middleware.JsonResponse(c, fiber.StatusCreated, true, "Error request raised successfully.", req)
}

func (h *Handler) List(c *fiber.Ctx) error {
	f, ok := c.Locals("filter").(*errorRequestValidator.ListQuery)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request data!", nil)
	}
	list, total, err := h.Workflow.ListErrorRequests(c.UserContext(), middleware.CurrentIdentity(c), workflow.RequestFilter{
		DocumentID: f.DocumentID,
		Statuses:   f.Statuses,
		Page:       f.Page,
		Limit:      f.Limit,
	})
	if err != nil {
		return middleware.ErrorResponse(c, err)
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Error requests fetched successfully.",
		utils.Paginated("errorRequests", list, total, f.Page, f.Limit))
}

func (h *Handler) Get(c *fiber.Ctx) error {
	req, err := h.Workflow.GetErrorRequest(c.UserContext(), middleware.CurrentIdentity(c), c.Locals("id").(uint))
	if err != nil {
		return middleware.ErrorResponse(c, err)
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Error request fetched successfully.", req)
}

func (h *Handler) Approve(c *fiber.Ctx) error {
	req, err := h.Workflow.ApproveErrorRequest(c.UserContext(), middleware.CurrentIdentity(c), c.Locals("id").(uint))
	if err != nil {
		return middleware.ErrorResponse(c, err)
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Error request approved.", req)
}

func (h *Handler) Reject(c *fiber.Ctx) error {
	reqData, ok := c.Locals("reason").(*applicationValidator.ReasonRequest)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request data!", nil)
	}
	req, err := h.Workflow.RejectErrorRequest(c.UserContext(), middleware.CurrentIdentity(c), c.Locals("id").(uint), reqData.Reason)
	if err != nil {
		return middleware.ErrorResponse(c, err)
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Error request rejected.", req)
}

func (h *Handler) Assign(c *fiber.Ctx) error {
	reqData, ok := c.Locals("assign").(*applicationValidator.AssignRequest)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request data!", nil)
	}
	req, err := h.Workflow.AssignErrorRequestDistributor(c.UserContext(), middleware.CurrentIdentity(c), c.Locals("id").(uint), reqData.DistributorID)
	if err != nil {
		return middleware.ErrorResponse(c, err)
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Distributor assigned.", req)
}

func (h *Handler) DistributorReject(c *fiber.Ctx) error {
	reqData, ok := c.Locals("reason").(*applicationValidator.ReasonRequest)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request data!", nil)
	}
	req, err := h.Workflow.DistributorRejectErrorRequest(c.UserContext(), middleware.CurrentIdentity(c), c.Locals("id").(uint), reqData.Reason)
	if err != nil {
		return middleware.ErrorResponse(c, err)
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Error request rejected by distributor.", req)
}

func (h *Handler) UploadCertificate(c *fiber.Ctx) error {
	file, ok := c.Locals("file").(*utils.UploadedFile)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request data!", nil)
	}
	req, cert, err := h.Workflow.UploadErrorRequestCertificate(c.UserContext(), middleware.CurrentIdentity(c), c.Locals("id").(uint), *file)
	if err != nil {
		return middleware.ErrorResponse(c, err)
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Corrected certificate uploaded.", fiber.Map{
		"errorRequest": req,
		"certificate":  cert,
	})
}

func (h *Handler) Complete(c *fiber.Ctx) error {
	req, err := h.Workflow.CompleteErrorRequest(c.UserContext(), middleware.CurrentIdentity(c), c.Locals("id").(uint))
	if err != nil {
		return middleware.ErrorResponse(c, err)
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Error request completed.", req)
}

package ledgerController

import (
	"govdocs/middleware"
	"govdocs/models"
	"govdocs/services/ledger"
	"govdocs/utils"
	"govdocs/validators"
	ledgerValidator "govdocs/validators/ledger"

	"github.com/gofiber/fiber/v2"
)

type Handler struct {
	Ledger *ledger.Service
}

func notificationInput(r *ledgerValidator.NotificationRequest) ledger.NotificationInput {
	return ledger.NotificationInput{
		DistributorText: r.DistributorText,
		CustomerText:    r.CustomerText,
		Date:            r.Date,
	}
}

func (h *Handler) PostNotification(c *fiber.Ctx) error {
	reqData, ok := c.Locals("notification").(*ledgerValidator.NotificationRequest)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request data!", nil)
	}
	n, err := h.Ledger.PostNotification(c.UserContext(), middleware.CurrentIdentity(c), notificationInput(reqData))
	if err != nil {
		return middleware.ErrorResponse(c, err)
	}
	return middleware.JsonResponse(c, fiber.StatusCreated, true, "Notification posted.", n)
}

func (h *Handler) UpdateNotification(c *fiber.Ctx) error {
	reqData, ok := c.Locals("notification").(*ledgerValidator.NotificationRequest)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request data!", nil)
	}
	n, err := h.Ledger.UpdateNotification(c.UserContext(), middleware.CurrentIdentity(c), c.Locals("id").(uint), notificationInput(reqData))
	if err != nil {
		return middleware.ErrorResponse(c, err)
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Notification updated.", n)
}

func (h *Handler) SetNotificationStatus(c *fiber.Ctx) error {
	reqData, ok := c.Locals("status").(*ledgerValidator.StatusRequest)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request data!", nil)
	}
	n, err := h.Ledger.SetNotificationStatus(c.UserContext(), middleware.CurrentIdentity(c), c.Locals("id").(uint), models.NotificationStatus(reqData.Status))
	if err != nil {
		return middleware.ErrorResponse(c, err)
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Notification status updated.", n)
}

func (h *Handler) DeleteNotification(c *fiber.Ctx) error {
	if err := h.Ledger.DeleteNotification(c.UserContext(), middleware.CurrentIdentity(c), c.Locals("id").(uint)); err != nil {
		return middleware.ErrorResponse(c, err)
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Notification deleted.", nil)
}

func (h *Handler) ListNotifications(c *fiber.Ctx) error {
	page := validators.PageOf(c)
	list, total, err := h.Ledger.ListNotifications(c.UserContext(), middleware.CurrentIdentity(c), page.Page, page.Limit)
	if err != nil {
		return middleware.ErrorResponse(c, err)
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Notifications fetched successfully.",
		utils.Paginated("notifications", list, total, page.Page, page.Limit))
}

func (h *Handler) ActiveNotices(c *fiber.Ctx) error {
	list, err := h.Ledger.ActiveNotices(c.UserContext(), middleware.CurrentIdentity(c))
	if err != nil {
		return middleware.ErrorResponse(c, err)
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Notices fetched successfully.", list)
}

func (h *Handler) PostFeedback(c *fiber.Ctx) error {
	reqData, ok := c.Locals("feedback").(*ledgerValidator.FeedbackRequest)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request data!", nil)
	}
	fb, err := h.Ledger.PostFeedback(c.UserContext(), middleware.CurrentIdentity(c), int(*reqData.Rating), reqData.Comment)
	if err != nil {
		return middleware.ErrorResponse(c, err)
	}
	return middleware.JsonResponse(c, fiber.StatusCreated, true, "Thank you for your feedback.", fb)
}

func (h *Handler) ListFeedback(c *fiber.Ctx) error {
	page := validators.PageOf(c)
	list, total, err := h.Ledger.ListFeedback(c.UserContext(), middleware.CurrentIdentity(c), page.Page, page.Limit)
	if err != nil {
		return middleware.ErrorResponse(c, err)
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Feedback fetched successfully.",
		utils.Paginated("feedback", list, total, page.Page, page.Limit))
}

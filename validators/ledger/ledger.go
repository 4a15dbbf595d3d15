package ledgerValidator

import (
	"strings"
	"time"

	"govdocs/validators"

	"github.com/gofiber/fiber/v2"
)

type NotificationRequest struct {
	DistributorText string     `json:"distributor_text" validate:"max=2000"`
	CustomerText    string     `json:"customer_text" validate:"max=2000"`
	Date            *time.Time `json:"date"`
}

func Notification() fiber.Handler {
	return func(c *fiber.Ctx) error {
		reqData := new(NotificationRequest)
		return validators.Body(c, reqData, "notification", func(errors map[string]string) {
			if strings.TrimSpace(reqData.DistributorText) == "" && strings.TrimSpace(reqData.CustomerText) == "" {
				errors["customer_text"] = "Provide a distributor or customer message!"
			}
		})
	}
}

type StatusRequest struct {
	Status string `json:"status" validate:"required,oneof=Active Inactive"`
}

func NotificationStatus() fiber.Handler {
	return func(c *fiber.Ctx) error {
		return validators.Body(c, new(StatusRequest), "status")
	}
}

// FeedbackRequest keeps rating loosely typed so a fractional or missing
// rating reaches the range check instead of failing the parse.
type FeedbackRequest struct {
	Rating  *float64 `json:"rating" validate:"required"`
	Comment string   `json:"comment" validate:"max=2000"`
}

func Feedback() fiber.Handler {
	return func(c *fiber.Ctx) error {
		reqData := new(FeedbackRequest)
		return validators.Body(c, reqData, "feedback", func(errors map[string]string) {
			if reqData.Rating == nil {
				return
			}
			r := *reqData.Rating
			if r != float64(int(r)) || r < 1 || r > 5 {
				errors["rating"] = "Rating must be an integer between 1 and 5!"
			}
		})
	}
}

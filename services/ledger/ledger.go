// Package ledger keeps the side channel next to the workflow: admin
// broadcast notifications and customer feedback.
package ledger

import (
	"context"
	"errors"
	"strings"
	"time"

	"govdocs/apperror"
	"govdocs/identity"
	"govdocs/models"
	"govdocs/utils"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const maxCommentLength = 2000

type Service struct {
	db     *gorm.DB
	logger *logrus.Entry
	now    func() time.Time
}

func NewService(db *gorm.DB, log *logrus.Logger) *Service {
	return &Service{db: db, logger: log.WithField("component", "ledger"), now: time.Now}
}

type NotificationInput struct {
	DistributorText string
	CustomerText    string
	Date            *time.Time
}

func (in NotificationInput) clean() (NotificationInput, error) {
	in.DistributorText = strings.TrimSpace(in.DistributorText)
	in.CustomerText = strings.TrimSpace(in.CustomerText)
	if in.DistributorText == "" && in.CustomerText == "" {
		return in, apperror.Validation(map[string]string{
			"distributor_text": "Provide a distributor or customer message",
			"customer_text":    "Provide a distributor or customer message",
		})
	}
	return in, nil
}

func requireNotificationAdmin(actor identity.Identity) error {
	if !identity.CanManageNotifications(actor) {
		return apperror.Forbidden("only admins can manage notifications")
	}
	return nil
}

func (s *Service) PostNotification(ctx context.Context, actor identity.Identity, in NotificationInput) (*models.Notification, error) {
	if err := requireNotificationAdmin(actor); err != nil {
		return nil, err
	}
	in, err := in.clean()
	if err != nil {
		return nil, err
	}
	n := models.Notification{
		DistributorText: in.DistributorText,
		CustomerText:    in.CustomerText,
		Status:          models.NotificationActive,
		Date:            s.now(),
	}
	if in.Date != nil {
		n.Date = *in.Date
	}
	if err := s.db.WithContext(ctx).Create(&n).Error; err != nil {
		return nil, err
	}
	s.logger.WithField("notification_id", n.ID).Info("Notification posted")
	return &n, nil
}

func (s *Service) notification(db *gorm.DB, id uint) (*models.Notification, error) {
	var n models.Notification
	if err := db.First(&n, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("notification")
		}
		return nil, err
	}
	return &n, nil
}

func (s *Service) UpdateNotification(ctx context.Context, actor identity.Identity, id uint, in NotificationInput) (*models.Notification, error) {
	if err := requireNotificationAdmin(actor); err != nil {
		return nil, err
	}
	in, err := in.clean()
	if err != nil {
		return nil, err
	}
	db := s.db.WithContext(ctx)
	n, err := s.notification(db, id)
	if err != nil {
		return nil, err
	}
	n.DistributorText = in.DistributorText
	n.CustomerText = in.CustomerText
	if in.Date != nil {
		n.Date = *in.Date
	}
	if err := db.Save(n).Error; err != nil {
		return nil, err
	}
	return n, nil
}

// SetNotificationStatus is idempotent: setting the current status again
// succeeds without a write.
func (s *Service) SetNotificationStatus(ctx context.Context, actor identity.Identity, id uint, status models.NotificationStatus) (*models.Notification, error) {
	if err := requireNotificationAdmin(actor); err != nil {
		return nil, err
	}
	if status != models.NotificationActive && status != models.NotificationInactive {
		return nil, apperror.Validation(map[string]string{"status": "Status must be Active or Inactive"})
	}
	db := s.db.WithContext(ctx)
	n, err := s.notification(db, id)
	if err != nil {
		return nil, err
	}
	if n.Status == status {
		return n, nil
	}
	if err := db.Model(n).Update("status", status).Error; err != nil {
		return nil, err
	}
	n.Status = status
	return n, nil
}

func (s *Service) DeleteNotification(ctx context.Context, actor identity.Identity, id uint) error {
	if err := requireNotificationAdmin(actor); err != nil {
		return err
	}
	res := s.db.WithContext(ctx).Delete(&models.Notification{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperror.NotFound("notification")
	}
	return nil
}

// ListNotifications is the admin view, newest first.
func (s *Service) ListNotifications(ctx context.Context, actor identity.Identity, page, limit int) ([]models.Notification, int64, error) {
	if err := requireNotificationAdmin(actor); err != nil {
		return nil, 0, err
	}
	page, limit = utils.Page(page, limit)
	q := s.db.WithContext(ctx).Model(&models.Notification{})
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var list []models.Notification
	err := q.Order("date desc, id desc").Offset((page - 1) * limit).Limit(limit).Find(&list).Error
	return list, total, err
}

// Notice is a notification as one role sees it.
type Notice struct {
	ID   uint      `json:"id"`
	Text string    `json:"text"`
	Date time.Time `json:"date"`
}

// ActiveNotices returns the caller's text of every Active notification.
// Admins see both texts joined.
func (s *Service) ActiveNotices(ctx context.Context, actor identity.Identity) ([]Notice, error) {
	var list []models.Notification
	if err := s.db.WithContext(ctx).
		Where("status = ?", models.NotificationActive).
		Order("date desc, id desc").Find(&list).Error; err != nil {
		return nil, err
	}
	out := make([]Notice, 0, len(list))
	for _, n := range list {
		var text string
		switch actor.Role {
		case identity.Distributor:
			text = n.DistributorText
		case identity.Customer:
			text = n.CustomerText
		default:
			text = strings.TrimSpace(n.DistributorText + "\n" + n.CustomerText)
		}
		if text == "" {
			continue
		}
		out = append(out, Notice{ID: n.ID, Text: text, Date: n.Date})
	}
	return out, nil
}

// PostFeedback appends a rating (1..5) with an optional comment.
func (s *Service) PostFeedback(ctx context.Context, actor identity.Identity, rating int, comment string) (*models.Feedback, error) {
	if !identity.CanPostFeedback(actor) {
		return nil, apperror.Forbidden("only customers can post feedback")
	}
	comment = strings.TrimSpace(comment)
	fields := map[string]string{}
	if rating < 1 || rating > 5 {
		fields["rating"] = "Rating must be an integer between 1 and 5"
	}
	if len(comment) > maxCommentLength {
		fields["comment"] = "Comment is too long"
	}
	if len(fields) > 0 {
		return nil, apperror.Validation(fields)
	}
	fb := models.Feedback{UserID: actor.UserID, Rating: rating, Comment: comment}
	if err := s.db.WithContext(ctx).Create(&fb).Error; err != nil {
		return nil, err
	}
	return &fb, nil
}

// ListFeedback is admin only, newest first, with the author preloaded.
func (s *Service) ListFeedback(ctx context.Context, actor identity.Identity, page, limit int) ([]models.Feedback, int64, error) {
	if !identity.CanViewFeedback(actor) {
		return nil, 0, apperror.Forbidden("only admins can view feedback")
	}
	page, limit = utils.Page(page, limit)
	q := s.db.WithContext(ctx).Model(&models.Feedback{})
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var list []models.Feedback
	err := q.Preload("User").Order("created_at desc, id desc").Offset((page - 1) * limit).Limit(limit).Find(&list).Error
	return list, total, err
}

package utils

import (
	"context"
	"time"

	"govdocs/identity"
	"govdocs/models"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Digester delivers the pending-work digest to one user.
type Digester interface {
	Digest(ctx context.Context, u models.User, lines []PendingDigestLine) error
}

// ReminderScheduler nudges whoever holds work that has not moved for a
// while: distributors for assigned Approved applications, admins for
// Pending ones and for Uploaded ones awaiting sign-off.
type ReminderScheduler struct {
	db         *gorm.DB
	digester   Digester
	staleAfter time.Duration
	logger     *logrus.Entry
	now        func() time.Time
	cron       *cron.Cron
}

func NewReminderScheduler(db *gorm.DB, d Digester, staleDays int, log *logrus.Logger) *ReminderScheduler {
	if staleDays < 1 {
		staleDays = 1
	}
	return &ReminderScheduler{
		db:         db,
		digester:   d,
		staleAfter: time.Duration(staleDays) * 24 * time.Hour,
		logger:     log.WithField("component", "reminder-scheduler"),
		now:        time.Now,
	}
}

// Start runs the digest on spec (standard five-field cron syntax).
func (r *ReminderScheduler) Start(spec string) error {
	r.logger.Info("Initializing reminder scheduler...")
	r.cron = cron.New()
	if _, err := r.cron.AddFunc(spec, func() {
		r.logger.Info("Running pending-work reminder...")
		sent, err := r.RunOnce(context.Background())
		if err != nil {
			r.logger.WithError(err).Error("Reminder run failed")
			return
		}
		r.logger.WithField("sent", sent).Info("Reminder run finished")
	}); err != nil {
		return err
	}
	r.cron.Start()
	r.logger.WithField("spec", spec).Info("Reminder scheduler started")
	return nil
}

func (r *ReminderScheduler) Stop() {
	if r.cron != nil {
		<-r.cron.Stop().Done()
	}
}

// RunOnce sends one digest per recipient with stale work and returns how
// many were delivered. A failed delivery is logged and skipped.
func (r *ReminderScheduler) RunOnce(ctx context.Context) (int, error) {
	db := r.db.WithContext(ctx)
	cutoff := r.now().Add(-r.staleAfter)

	var stale []models.Application
	if err := db.
		Where("updated_at < ?", cutoff).
		Where("status IN ?", []models.ApplicationStatus{models.StatusPending, models.StatusApproved, models.StatusUploaded}).
		Order("updated_at asc").
		Find(&stale).Error; err != nil {
		return 0, err
	}
	if len(stale) == 0 {
		return 0, nil
	}

	byDistributor := map[uint][]PendingDigestLine{}
	var adminLines []PendingDigestLine
	for _, app := range stale {
		line := PendingDigestLine{ApplicationID: app.ApplicationID, Status: string(app.Status), Since: app.UpdatedAt}
		switch {
		case app.Status == models.StatusApproved && app.DistributorID != nil:
			byDistributor[*app.DistributorID] = append(byDistributor[*app.DistributorID], line)
		case app.Status == models.StatusApproved:
			line.Status = "Approved, unassigned"
			adminLines = append(adminLines, line)
		default:
			adminLines = append(adminLines, line)
		}
	}

	sent := 0
	deliver := func(u models.User, lines []PendingDigestLine) {
		if err := r.digester.Digest(ctx, u, lines); err != nil {
			r.logger.WithError(err).WithField("user_id", u.ID).Warn("Failed to send reminder")
			return
		}
		sent++
	}

	for distributorID, lines := range byDistributor {
		var u models.User
		if err := db.Where("id = ? AND login_status = ?", distributorID, models.LoginActive).First(&u).Error; err != nil {
			continue
		}
		deliver(u, lines)
	}

	if len(adminLines) > 0 {
		var admins []models.User
		if err := db.Where("role = ? AND login_status = ?", identity.Admin, models.LoginActive).Find(&admins).Error; err != nil {
			return sent, err
		}
		for _, a := range admins {
			deliver(a, adminLines)
		}
	}
	return sent, nil
}

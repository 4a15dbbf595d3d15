// Package workflow is the only place application and error request statuses
// change. Every transition is a single transaction that compare-and-swaps
// on (status, version); the loser of a race gets a Conflict.
package workflow

import (
	"context"
	"strings"
	"time"

	"govdocs/apperror"
	"govdocs/events"
	"govdocs/identity"
	"govdocs/models"
	"govdocs/services/applications"
	"govdocs/services/certificates"
	"govdocs/storage"
	"govdocs/utils"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Directory resolves the people a transition involves.
type Directory interface {
	RequireActive(ctx context.Context, actor identity.Identity) error
	RequireCompleteProfile(ctx context.Context, actor identity.Identity) error
	ActiveDistributor(db *gorm.DB, userID uint) (*models.User, error)
}

type Service struct {
	db       *gorm.DB
	store    storage.Store
	certs    *certificates.Service
	people   Directory
	observer events.Observer
	logger   *logrus.Entry
	now      func() time.Time
}

func NewService(db *gorm.DB, store storage.Store, certs *certificates.Service, people Directory, observer events.Observer, log *logrus.Logger) *Service {
	if observer == nil {
		observer = events.Nop
	}
	return &Service{
		db:       db,
		store:    store,
		certs:    certs,
		people:   people,
		observer: observer,
		logger:   log.WithField("component", "workflow"),
		now:      time.Now,
	}
}

// Attempted status names used in InvalidTransition errors for operations
// that do not themselves change status.
const (
	attemptAssign       = "Assigned"
	attemptErrorRequest = "Error Request"
)

// appMove describes one application transition.
type appMove struct {
	action    string
	from      []models.ApplicationStatus
	to        models.ApplicationStatus // empty keeps the status
	attempted string
	reason    string
	guard     func(app *models.Application) error
	updates   map[string]interface{}
}

func allowed(cur models.ApplicationStatus, from []models.ApplicationStatus) bool {
	for _, st := range from {
		if st == cur {
			return true
		}
	}
	return false
}

// moveApplication applies m inside tx. Guards run before the from-state
// check so a caller without rights learns nothing about the status.
func (s *Service) moveApplication(tx *gorm.DB, actor identity.Identity, documentID uint, m appMove) (*models.Application, events.Transition, error) {
	app, err := applications.Load(tx, documentID)
	if err != nil {
		return nil, events.Transition{}, err
	}
	if m.guard != nil {
		if err := m.guard(app); err != nil {
			return nil, events.Transition{}, err
		}
	}
	if !allowed(app.Status, m.from) {
		attempted := m.attempted
		if attempted == "" {
			attempted = string(m.to)
		}
		return nil, events.Transition{}, apperror.InvalidTransition(string(app.Status), attempted)
	}

	from := app.Status
	to := m.to
	if to == "" {
		to = from
	}
	updates := map[string]interface{}{
		"status":     to,
		"version":    app.Version + 1,
		"updated_at": s.now(),
	}
	for k, v := range m.updates {
		updates[k] = v
	}
	res := tx.Model(&models.Application{}).
		Where("id = ? AND status = ? AND version = ?", app.ID, from, app.Version).
		Updates(updates)
	if res.Error != nil {
		return nil, events.Transition{}, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, events.Transition{}, apperror.Conflict("application changed concurrently, reload and retry")
	}

	if err := tx.Create(&models.ApplicationStatusEvent{
		DocumentID: app.ID,
		Action:     m.action,
		FromStatus: string(from),
		ToStatus:   string(to),
		ActorID:    actor.UserID,
		ActorRole:  string(actor.Role),
		Reason:     m.reason,
	}).Error; err != nil {
		return nil, events.Transition{}, err
	}

	updated, err := applications.Load(tx, documentID)
	if err != nil {
		return nil, events.Transition{}, err
	}
	t := events.Transition{
		Entity:        events.EntityApplication,
		ID:            updated.ID,
		DocumentID:    updated.ID,
		ApplicationID: updated.ApplicationID,
		Action:        m.action,
		From:          string(from),
		To:            string(to),
		ActorID:       actor.UserID,
		ActorRole:     string(actor.Role),
		OwnerID:       updated.OwnerID,
		DistributorID: updated.DistributorID,
		Reason:        m.reason,
		At:            updated.UpdatedAt,
	}
	return updated, t, nil
}

func (s *Service) runApplication(ctx context.Context, actor identity.Identity, documentID uint, m appMove) (*models.Application, error) {
	var app *models.Application
	var t events.Transition
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		app, t, err = s.moveApplication(tx, actor, documentID, m)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.committed(ctx, t)
	return app, nil
}

func (s *Service) committed(ctx context.Context, t events.Transition) {
	s.logger.WithFields(logrus.Fields{
		"entity":      t.Entity,
		"id":          t.ID,
		"action":      t.Action,
		"from":        t.From,
		"to":          t.To,
		"actor_id":    t.ActorID,
		"actor_role":  t.ActorRole,
		"document_id": t.DocumentID,
	}).Info("Workflow transition")
	s.observer.Observe(ctx, t)
}

func (s *Service) requireAdmin(ctx context.Context, actor identity.Identity) error {
	if !actor.Is(identity.Admin) {
		return apperror.Forbidden("only admins can perform this action")
	}
	return s.people.RequireActive(ctx, actor)
}

func requireReason(reason string) (string, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return "", apperror.Validation(map[string]string{"reason": "A reason is required"})
	}
	return reason, nil
}

// requireAssigned lets only the assigned distributor act.
func requireAssigned(actor identity.Identity, distributorID *uint) error {
	if !actor.Is(identity.Distributor) {
		return apperror.Forbidden("only the assigned distributor can perform this action")
	}
	if !actor.AssignedTo(distributorID) {
		return apperror.Forbidden("this record is not assigned to you")
	}
	return nil
}

// Approve moves a Pending application to Approved.
func (s *Service) Approve(ctx context.Context, actor identity.Identity, documentID uint) (*models.Application, error) {
	if err := s.requireAdmin(ctx, actor); err != nil {
		return nil, err
	}
	return s.runApplication(ctx, actor, documentID, appMove{
		action: events.ActionApprove,
		from:   []models.ApplicationStatus{models.StatusPending},
		to:     models.StatusApproved,
	})
}

// Reject is terminal and stores reason verbatim (after trimming).
func (s *Service) Reject(ctx context.Context, actor identity.Identity, documentID uint, reason string) (*models.Application, error) {
	if err := s.requireAdmin(ctx, actor); err != nil {
		return nil, err
	}
	reason, err := requireReason(reason)
	if err != nil {
		return nil, err
	}
	return s.runApplication(ctx, actor, documentID, appMove{
		action:  events.ActionReject,
		from:    []models.ApplicationStatus{models.StatusPending, models.StatusApproved},
		to:      models.StatusRejected,
		reason:  reason,
		updates: map[string]interface{}{"rejection_reason": reason},
	})
}

// AssignDistributor routes an application to distributorID without changing
// its status. Approved is the normal precondition; Pending is tolerated.
func (s *Service) AssignDistributor(ctx context.Context, actor identity.Identity, documentID, distributorID uint) (*models.Application, error) {
	if err := s.requireAdmin(ctx, actor); err != nil {
		return nil, err
	}
	var app *models.Application
	var t events.Transition
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.people.ActiveDistributor(tx, distributorID); err != nil {
			return err
		}
		var err error
		app, t, err = s.moveApplication(tx, actor, documentID, appMove{
			action:    events.ActionAssign,
			from:      []models.ApplicationStatus{models.StatusPending, models.StatusApproved},
			attempted: attemptAssign,
			updates:   map[string]interface{}{"distributor_id": distributorID},
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	if t.From == string(models.StatusPending) {
		s.logger.WithFields(logrus.Fields{
			"document_id":    documentID,
			"distributor_id": distributorID,
		}).Warn("Distributor assigned before approval")
	}
	s.committed(ctx, t)
	return app, nil
}

// DistributorUploadCertificate issues the certificate and moves the
// application to Uploaded in one transaction. The blob is written first and
// removed again if the transition loses.
func (s *Service) DistributorUploadCertificate(ctx context.Context, actor identity.Identity, documentID uint, file utils.UploadedFile) (*models.Application, *models.Certificate, error) {
	if !actor.Is(identity.Distributor) {
		return nil, nil, apperror.Forbidden("only the assigned distributor can upload a certificate")
	}
	if err := s.people.RequireCompleteProfile(ctx, actor); err != nil {
		return nil, nil, err
	}

	// Cheap pre-check so a stranger's upload never reaches storage; the
	// transaction below re-checks authoritatively.
	current, err := applications.Load(s.db.WithContext(ctx), documentID)
	if err != nil {
		return nil, nil, err
	}
	if err := requireAssigned(actor, current.DistributorID); err != nil {
		return nil, nil, err
	}
	if current.Status != models.StatusApproved {
		return nil, nil, apperror.InvalidTransition(string(current.Status), string(models.StatusUploaded))
	}

	var app *models.Application
	var t events.Transition
	cert, err := s.certs.Issue(ctx, documentID, actor.UserID, file, func(tx *gorm.DB) error {
		var err error
		app, t, err = s.moveApplication(tx, actor, documentID, appMove{
			action: events.ActionUpload,
			from:   []models.ApplicationStatus{models.StatusApproved},
			to:     models.StatusUploaded,
			guard: func(a *models.Application) error {
				return requireAssigned(actor, a.DistributorID)
			},
		})
		return err
	})
	if err != nil {
		return nil, nil, err
	}
	s.committed(ctx, t)
	return app, cert, nil
}

// AdminUploadCertificate attaches or replaces a certificate without moving
// the application, e.g. before completing it directly from Approved.
func (s *Service) AdminUploadCertificate(ctx context.Context, actor identity.Identity, documentID uint, file utils.UploadedFile) (*models.Application, *models.Certificate, error) {
	if err := s.requireAdmin(ctx, actor); err != nil {
		return nil, nil, err
	}
	var app *models.Application
	var t events.Transition
	cert, err := s.certs.Issue(ctx, documentID, actor.UserID, file, func(tx *gorm.DB) error {
		var err error
		app, t, err = s.moveApplication(tx, actor, documentID, appMove{
			action:    events.ActionUpload,
			from:      []models.ApplicationStatus{models.StatusApproved, models.StatusUploaded, models.StatusCompleted},
			attempted: "Certificate",
		})
		return err
	})
	if err != nil {
		return nil, nil, err
	}
	s.committed(ctx, t)
	return app, cert, nil
}

// DistributorReject is terminal; the reason is stored on the application.
func (s *Service) DistributorReject(ctx context.Context, actor identity.Identity, documentID uint, reason string) (*models.Application, error) {
	if !actor.Is(identity.Distributor) {
		return nil, apperror.Forbidden("only the assigned distributor can reject")
	}
	reason, err := requireReason(reason)
	if err != nil {
		return nil, err
	}
	if err := s.people.RequireCompleteProfile(ctx, actor); err != nil {
		return nil, err
	}
	return s.runApplication(ctx, actor, documentID, appMove{
		action:  events.ActionDistributorReject,
		from:    []models.ApplicationStatus{models.StatusApproved},
		to:      models.StatusDistributorRejected,
		reason:  reason,
		updates: map[string]interface{}{"rejection_reason": reason},
		guard: func(a *models.Application) error {
			return requireAssigned(actor, a.DistributorID)
		},
	})
}

// MarkCompleted is the admin's final sign-off, from Approved or Uploaded.
func (s *Service) MarkCompleted(ctx context.Context, actor identity.Identity, documentID uint) (*models.Application, error) {
	if err := s.requireAdmin(ctx, actor); err != nil {
		return nil, err
	}
	return s.runApplication(ctx, actor, documentID, appMove{
		action: events.ActionComplete,
		from:   []models.ApplicationStatus{models.StatusApproved, models.StatusUploaded},
		to:     models.StatusCompleted,
	})
}

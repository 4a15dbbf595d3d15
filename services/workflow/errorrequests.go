package workflow

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"govdocs/apperror"
	"govdocs/events"
	"govdocs/identity"
	"govdocs/models"
	"govdocs/services/applications"
	"govdocs/storage"
	"govdocs/utils"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

var openErrorRequestStatuses = []models.ErrorRequestStatus{
	models.ErrorRequestPending,
	models.ErrorRequestApproved,
	models.ErrorRequestUploaded,
}

type requestMove struct {
	action  string
	from    []models.ErrorRequestStatus
	to      models.ErrorRequestStatus
	reason  string
	guard   func(r *models.ErrorRequest) error
	updates map[string]interface{}
}

func loadRequest(db *gorm.DB, id uint) (*models.ErrorRequest, error) {
	var r models.ErrorRequest
	if err := db.First(&r, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("error request")
		}
		return nil, err
	}
	return &r, nil
}

func (s *Service) moveRequest(tx *gorm.DB, actor identity.Identity, requestID uint, m requestMove) (*models.ErrorRequest, events.Transition, error) {
	r, err := loadRequest(tx, requestID)
	if err != nil {
		return nil, events.Transition{}, err
	}
	if m.guard != nil {
		if err := m.guard(r); err != nil {
			return nil, events.Transition{}, err
		}
	}
	ok := false
	for _, st := range m.from {
		ok = ok || st == r.Status
	}
	if !ok {
		attempted := string(m.to)
		if attempted == "" {
			attempted = attemptAssign
		}
		return nil, events.Transition{}, apperror.InvalidTransition(string(r.Status), attempted)
	}

	from := r.Status
	to := m.to
	if to == "" {
		to = from
	}
	updates := map[string]interface{}{
		"status":     to,
		"version":    r.Version + 1,
		"updated_at": s.now(),
	}
	for k, v := range m.updates {
		updates[k] = v
	}
	res := tx.Model(&models.ErrorRequest{}).
		Where("id = ? AND status = ? AND version = ?", r.ID, from, r.Version).
		Updates(updates)
	if res.Error != nil {
		return nil, events.Transition{}, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, events.Transition{}, apperror.Conflict("error request changed concurrently, reload and retry")
	}

	updated, err := loadRequest(tx, requestID)
	if err != nil {
		return nil, events.Transition{}, err
	}
	t := events.Transition{
		Entity:        events.EntityErrorRequest,
		ID:            updated.ID,
		DocumentID:    updated.DocumentID,
		ApplicationID: updated.ApplicationID,
		Action:        m.action,
		From:          string(from),
		To:            string(to),
		ActorID:       actor.UserID,
		ActorRole:     string(actor.Role),
		OwnerID:       updated.RaisedBy,
		DistributorID: updated.DistributorID,
		Reason:        m.reason,
		At:            updated.UpdatedAt,
	}
	return updated, t, nil
}

func (s *Service) runRequest(ctx context.Context, actor identity.Identity, requestID uint, m requestMove) (*models.ErrorRequest, error) {
	var r *models.ErrorRequest
	var t events.Transition
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		r, t, err = s.moveRequest(tx, actor, requestID, m)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.committed(ctx, t)
	s.resolveRequestURL(ctx, r)
	return r, nil
}

func (s *Service) resolveRequestURL(ctx context.Context, r *models.ErrorRequest) {
	if r != nil && r.FileKey != "" {
		r.FileURL, _ = s.store.URL(ctx, r.FileKey)
	}
}

func hasOpenRequest(db *gorm.DB, documentID uint) (bool, error) {
	var n int64
	err := db.Model(&models.ErrorRequest{}).
		Where("document_id = ? AND status IN ?", documentID, openErrorRequestStatuses).
		Count(&n).Error
	return n > 0, err
}

// RaiseErrorRequest opens a correction request on the caller's own
// Completed application. At most one request per application may be open.
// The request is routed to the application's distributor.
func (s *Service) RaiseErrorRequest(ctx context.Context, actor identity.Identity, documentID uint, description string, file *utils.UploadedFile) (*models.ErrorRequest, error) {
	if !actor.Is(identity.Customer) {
		return nil, apperror.Forbidden("only customers can raise error requests")
	}
	if err := s.people.RequireCompleteProfile(ctx, actor); err != nil {
		return nil, err
	}

	fields := map[string]string{}
	description = strings.TrimSpace(description)
	if description == "" {
		fields["description"] = "A description is required"
	}
	if file == nil {
		fields["file"] = "A supporting document is required"
	}
	if len(fields) > 0 {
		return nil, apperror.Validation(fields)
	}
	if err := utils.CheckFile(*file); err != nil {
		return nil, err
	}

	check := func(db *gorm.DB) (*models.Application, error) {
		app, err := applications.Load(db, documentID)
		if err != nil {
			return nil, err
		}
		if !actor.Owns(app.OwnerID) {
			return nil, apperror.Forbidden("you can only raise requests on your own applications")
		}
		if app.Status != models.StatusCompleted {
			return nil, apperror.InvalidTransition(string(app.Status), attemptErrorRequest)
		}
		open, err := hasOpenRequest(db, documentID)
		if err != nil {
			return nil, err
		}
		if open {
			return nil, apperror.Conflict("an error request is already open for this application")
		}
		return app, nil
	}
	if _, err := check(s.db.WithContext(ctx)); err != nil {
		return nil, err
	}

	stored, err := utils.SaveUploadedFile(ctx, s.store, fmt.Sprintf("error-requests/%d", documentID), *file)
	if err != nil {
		return nil, err
	}

	var req models.ErrorRequest
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		app, err := check(tx)
		if err != nil {
			return err
		}
		req = models.ErrorRequest{
			DocumentID:    app.ID,
			ApplicationID: app.ApplicationID,
			RaisedBy:      actor.UserID,
			DistributorID: app.DistributorID,
			Description:   description,
			FileName:      stored.Name,
			FileKey:       stored.Key,
			ContentType:   stored.ContentType,
			Status:        models.ErrorRequestPending,
			Version:       1,
		}
		return tx.Create(&req).Error
	})
	if err != nil {
		storage.DeleteAll(ctx, s.store, s.logger, stored.Key)
		return nil, err
	}

	s.committed(ctx, events.Transition{
		Entity:        events.EntityErrorRequest,
		ID:            req.ID,
		DocumentID:    req.DocumentID,
		ApplicationID: req.ApplicationID,
		Action:        events.ActionRaise,
		To:            string(req.Status),
		ActorID:       actor.UserID,
		ActorRole:     string(actor.Role),
		OwnerID:       req.RaisedBy,
		DistributorID: req.DistributorID,
		At:            req.CreatedAt,
	})
	s.resolveRequestURL(ctx, &req)
	return &req, nil
}

func (s *Service) ApproveErrorRequest(ctx context.Context, actor identity.Identity, requestID uint) (*models.ErrorRequest, error) {
	if err := s.requireAdmin(ctx, actor); err != nil {
		return nil, err
	}
	return s.runRequest(ctx, actor, requestID, requestMove{
		action: events.ActionApprove,
		from:   []models.ErrorRequestStatus{models.ErrorRequestPending},
		to:     models.ErrorRequestApproved,
	})
}

func (s *Service) RejectErrorRequest(ctx context.Context, actor identity.Identity, requestID uint, reason string) (*models.ErrorRequest, error) {
	if err := s.requireAdmin(ctx, actor); err != nil {
		return nil, err
	}
	reason, err := requireReason(reason)
	if err != nil {
		return nil, err
	}
	return s.runRequest(ctx, actor, requestID, requestMove{
		action:  events.ActionReject,
		from:    []models.ErrorRequestStatus{models.ErrorRequestPending},
		to:      models.ErrorRequestRejected,
		reason:  reason,
		updates: map[string]interface{}{"rejection_reason": reason},
	})
}

// AssignErrorRequestDistributor reroutes a request that is still open on
// the admin side, e.g. when the application never had a distributor.
func (s *Service) AssignErrorRequestDistributor(ctx context.Context, actor identity.Identity, requestID, distributorID uint) (*models.ErrorRequest, error) {
	if err := s.requireAdmin(ctx, actor); err != nil {
		return nil, err
	}
	var r *models.ErrorRequest
	var t events.Transition
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.people.ActiveDistributor(tx, distributorID); err != nil {
			return err
		}
		var err error
		r, t, err = s.moveRequest(tx, actor, requestID, requestMove{
			action:  events.ActionAssign,
			from:    []models.ErrorRequestStatus{models.ErrorRequestPending, models.ErrorRequestApproved},
			updates: map[string]interface{}{"distributor_id": distributorID},
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	s.committed(ctx, t)
	s.resolveRequestURL(ctx, r)
	return r, nil
}

// DistributorRejectErrorRequest is terminal.
func (s *Service) DistributorRejectErrorRequest(ctx context.Context, actor identity.Identity, requestID uint, reason string) (*models.ErrorRequest, error) {
	if !actor.Is(identity.Distributor) {
		return nil, apperror.Forbidden("only the routed distributor can reject this request")
	}
	reason, err := requireReason(reason)
	if err != nil {
		return nil, err
	}
	if err := s.people.RequireCompleteProfile(ctx, actor); err != nil {
		return nil, err
	}
	return s.runRequest(ctx, actor, requestID, requestMove{
		action:  events.ActionDistributorReject,
		from:    []models.ErrorRequestStatus{models.ErrorRequestPending, models.ErrorRequestApproved},
		to:      models.ErrorRequestDistributorRejected,
		reason:  reason,
		updates: map[string]interface{}{"rejection_reason": reason},
		guard: func(r *models.ErrorRequest) error {
			return requireAssigned(actor, r.DistributorID)
		},
	})
}

// UploadErrorRequestCertificate replaces the application's certificate with
// a corrected one and moves the request to Uploaded, atomically.
func (s *Service) UploadErrorRequestCertificate(ctx context.Context, actor identity.Identity, requestID uint, file utils.UploadedFile) (*models.ErrorRequest, *models.Certificate, error) {
	if !actor.Is(identity.Distributor) {
		return nil, nil, apperror.Forbidden("only the routed distributor can upload a corrected certificate")
	}
	if err := s.people.RequireCompleteProfile(ctx, actor); err != nil {
		return nil, nil, err
	}
	current, err := loadRequest(s.db.WithContext(ctx), requestID)
	if err != nil {
		return nil, nil, err
	}
	if err := requireAssigned(actor, current.DistributorID); err != nil {
		return nil, nil, err
	}
	if current.Status != models.ErrorRequestApproved {
		return nil, nil, apperror.InvalidTransition(string(current.Status), string(models.ErrorRequestUploaded))
	}

	var r *models.ErrorRequest
	var t events.Transition
	cert, err := s.certs.Issue(ctx, current.DocumentID, actor.UserID, file, func(tx *gorm.DB) error {
		var err error
		r, t, err = s.moveRequest(tx, actor, requestID, requestMove{
			action: events.ActionUpload,
			from:   []models.ErrorRequestStatus{models.ErrorRequestApproved},
			to:     models.ErrorRequestUploaded,
			guard: func(r *models.ErrorRequest) error {
				return requireAssigned(actor, r.DistributorID)
			},
		})
		return err
	})
	if err != nil {
		return nil, nil, err
	}
	s.committed(ctx, t)
	s.resolveRequestURL(ctx, r)
	return r, cert, nil
}

func (s *Service) CompleteErrorRequest(ctx context.Context, actor identity.Identity, requestID uint) (*models.ErrorRequest, error) {
	if err := s.requireAdmin(ctx, actor); err != nil {
		return nil, err
	}
	return s.runRequest(ctx, actor, requestID, requestMove{
		action: events.ActionComplete,
		from:   []models.ErrorRequestStatus{models.ErrorRequestUploaded},
		to:     models.ErrorRequestCompleted,
	})
}

// GetErrorRequest is readable by its raiser, its distributor and admins.
func (s *Service) GetErrorRequest(ctx context.Context, actor identity.Identity, requestID uint) (*models.ErrorRequest, error) {
	var r models.ErrorRequest
	err := s.db.WithContext(ctx).Preload("Application").First(&r, requestID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperror.NotFound("error request")
	}
	if err != nil {
		return nil, err
	}
	if !identity.CanReadErrorRequest(actor, r.RaisedBy, r.DistributorID) {
		return nil, apperror.Forbidden("you cannot access this error request")
	}
	s.resolveRequestURL(ctx, &r)
	return &r, nil
}

type RequestFilter struct {
	DocumentID uint
	Statuses   []models.ErrorRequestStatus
	Page       int
	Limit      int
}

// ListErrorRequests is role-scoped like application listing.
func (s *Service) ListErrorRequests(ctx context.Context, actor identity.Identity, f RequestFilter) ([]models.ErrorRequest, int64, error) {
	page, limit := utils.Page(f.Page, f.Limit)
	q := s.db.WithContext(ctx).Model(&models.ErrorRequest{})
	switch actor.Role {
	case identity.Admin:
	case identity.Customer:
		q = q.Where("raised_by = ?", actor.UserID)
	case identity.Distributor:
		q = q.Where("distributor_id = ?", actor.UserID)
	default:
		return nil, 0, apperror.Forbidden("unknown role")
	}
	if f.DocumentID != 0 {
		q = q.Where("document_id = ?", f.DocumentID)
	}
	if len(f.Statuses) > 0 {
		q = q.Where("status IN ?", f.Statuses)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var list []models.ErrorRequest
	if err := q.Order("created_at desc, id desc").Offset((page - 1) * limit).Limit(limit).Find(&list).Error; err != nil {
		return nil, 0, err
	}
	for i := range list {
		s.resolveRequestURL(ctx, &list[i])
	}
	s.logger.WithFields(logrus.Fields{"role": actor.Role, "count": len(list)}).Debug("Listed error requests")
	return list, total, nil
}

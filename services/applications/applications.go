// Package applications is the record store for citizen applications:
// submission against the catalog, role-filtered reads and listing.
// Status changes live in the workflow package.
package applications

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"govdocs/apperror"
	"govdocs/events"
	"govdocs/identity"
	"govdocs/models"
	"govdocs/services/catalog"
	"govdocs/storage"
	"govdocs/utils"

	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ProfileGate reports whether an actor may act on the workflow yet.
type ProfileGate interface {
	RequireCompleteProfile(ctx context.Context, actor identity.Identity) error
}

type Service struct {
	db       *gorm.DB
	store    storage.Store
	catalog  *catalog.Service
	profiles ProfileGate
	observer events.Observer
	logger   *logrus.Entry
	now      func() time.Time
}

func NewService(db *gorm.DB, store storage.Store, cat *catalog.Service, profiles ProfileGate, observer events.Observer, log *logrus.Logger) *Service {
	if observer == nil {
		observer = events.Nop
	}
	return &Service{
		db:       db,
		store:    store,
		catalog:  cat,
		profiles: profiles,
		observer: observer,
		logger:   log.WithField("component", "applications"),
		now:      time.Now,
	}
}

// Submission is a customer's application before it is stored. Name, Email,
// Phone and Address default to the owner's profile when empty.
type Submission struct {
	CategoryID    uint
	SubcategoryID uint
	Fields        map[string]string
	Files         []utils.UploadedFile
	Name          string
	Email         string
	Phone         string
	Address       string
}

// CheckFields compares submitted field values with the required labels.
// Every label must be present and non-blank, and nothing else may be sent.
func CheckFields(required []string, values map[string]string) map[string]string {
	problems := map[string]string{}
	want := make(map[string]bool, len(required))
	for _, label := range required {
		want[label] = true
		if strings.TrimSpace(values[label]) == "" {
			problems[label] = "This field is required"
		}
	}
	for label := range values {
		if !want[label] {
			problems[label] = "Unknown field for this subcategory"
		}
	}
	return problems
}

// CheckFileLabels requires exactly one file per required document label.
func CheckFileLabels(required []string, files []utils.UploadedFile) map[string]string {
	problems := map[string]string{}
	want := make(map[string]bool, len(required))
	for _, label := range required {
		want[label] = true
	}
	seen := map[string]bool{}
	for _, f := range files {
		switch {
		case !want[f.Label]:
			problems[f.Label] = "Unknown document for this subcategory"
		case seen[f.Label]:
			problems[f.Label] = "Document uploaded more than once"
		}
		seen[f.Label] = true
	}
	for _, label := range required {
		if !seen[label] {
			problems[label] = "This document is required"
		}
	}
	return problems
}

// Submit validates in against the catalog and stores it as Pending. Blobs
// are written first; if any write or the record transaction fails, every
// blob written for this submission is removed.
func (s *Service) Submit(ctx context.Context, actor identity.Identity, in Submission) (*models.Application, error) {
	if !identity.CanSubmitApplication(actor) {
		return nil, apperror.Forbidden("only customers can submit applications")
	}
	if err := s.profiles.RequireCompleteProfile(ctx, actor); err != nil {
		return nil, err
	}

	req, err := s.catalog.Requirements(ctx, in.CategoryID, in.SubcategoryID)
	if err != nil {
		return nil, err
	}

	problems := CheckFields(req.Fields, in.Fields)
	for label, msg := range CheckFileLabels(req.Documents, in.Files) {
		problems["files."+label] = msg
	}
	if len(problems) > 0 {
		return nil, apperror.Validation(problems)
	}
	for _, f := range in.Files {
		if err := utils.CheckFile(f); err != nil {
			return nil, err
		}
	}

	var owner models.User
	if err := s.db.WithContext(ctx).First(&owner, actor.UserID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("user")
		}
		return nil, err
	}

	prefix := fmt.Sprintf("applications/%d", actor.UserID)
	stored := make([]utils.StoredFile, 0, len(in.Files))
	keys := make([]string, 0, len(in.Files))
	rollback := func() { storage.DeleteAll(ctx, s.store, s.logger, keys...) }
	for _, f := range in.Files {
		sf, err := utils.SaveUploadedFile(ctx, s.store, prefix, f)
		if err != nil {
			rollback()
			return nil, err
		}
		stored = append(stored, sf)
		keys = append(keys, sf.Key)
	}

	fields := make(map[string]string, len(in.Fields))
	for k, v := range in.Fields {
		fields[k] = strings.TrimSpace(v)
	}
	app := models.Application{
		OwnerID:       actor.UserID,
		CategoryID:    in.CategoryID,
		SubcategoryID: in.SubcategoryID,
		FieldValues:   datatypes.NewJSONType(fields),
		Name:          firstNonBlank(in.Name, owner.Name),
		Email:         firstNonBlank(in.Email, owner.Email),
		Phone:         firstNonBlank(in.Phone, owner.Phone),
		Address:       firstNonBlank(in.Address, owner.Address),
		Status:        models.StatusPending,
		Version:       1,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Re-check inside the transaction so a concurrent catalog delete
		// cannot leave the application pointing at nothing.
		if _, _, err := s.catalog.Pair(tx, in.CategoryID, in.SubcategoryID); err != nil {
			return err
		}
		appID, err := NextApplicationID(tx, s.now())
		if err != nil {
			return err
		}
		app.ApplicationID = appID
		if err := tx.Create(&app).Error; err != nil {
			return err
		}
		for i, sf := range stored {
			app.Files = append(app.Files, models.ApplicationFile{
				DocumentID:  app.ID,
				Label:       in.Files[i].Label,
				FileName:    sf.Name,
				FileKey:     sf.Key,
				ContentType: sf.ContentType,
				Size:        sf.Size,
			})
		}
		if len(app.Files) > 0 {
			if err := tx.Create(&app.Files).Error; err != nil {
				return err
			}
		}
		return tx.Create(&models.ApplicationStatusEvent{
			DocumentID: app.ID,
			Action:     events.ActionSubmit,
			ToStatus:   string(models.StatusPending),
			ActorID:    actor.UserID,
			ActorRole:  string(actor.Role),
		}).Error
	})
	if err != nil {
		rollback()
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"document_id":    app.ID,
		"application_id": app.ApplicationID,
		"owner_id":       app.OwnerID,
		"files":          len(app.Files),
	}).Info("Application submitted")

	s.observer.Observe(ctx, events.Transition{
		Entity:        events.EntityApplication,
		ID:            app.ID,
		DocumentID:    app.ID,
		ApplicationID: app.ApplicationID,
		Action:        events.ActionSubmit,
		To:            string(models.StatusPending),
		ActorID:       actor.UserID,
		ActorRole:     string(actor.Role),
		OwnerID:       app.OwnerID,
		At:            app.CreatedAt,
	})

	s.resolveURLs(ctx, &app)
	return &app, nil
}

func firstNonBlank(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

// NextApplicationID returns the next display id for the year of at,
// e.g. APP2024000017. Must be called inside the record transaction.
func NextApplicationID(tx *gorm.DB, at time.Time) (string, error) {
	year := at.Year()
	name := fmt.Sprintf("application:%d", year)
	seq := models.Sequence{Name: name}
	if err := tx.Where(models.Sequence{Name: name}).FirstOrCreate(&seq).Error; err != nil {
		return "", err
	}
	if err := tx.Model(&models.Sequence{}).Where("name = ?", name).
		Update("value", gorm.Expr("value + ?", 1)).Error; err != nil {
		return "", err
	}
	if err := tx.Where("name = ?", name).First(&seq).Error; err != nil {
		return "", err
	}
	return fmt.Sprintf("APP%d%06d", year, seq.Value), nil
}

func (s *Service) resolveURLs(ctx context.Context, app *models.Application) {
	for i := range app.Files {
		app.Files[i].URL, _ = s.store.URL(ctx, app.Files[i].FileKey)
	}
	if app.Certificate != nil {
		app.Certificate.URL, _ = s.store.URL(ctx, app.Certificate.FileKey)
	}
}

// Load reads an application for workflow use without any access check.
func Load(db *gorm.DB, documentID uint) (*models.Application, error) {
	var app models.Application
	if err := db.First(&app, documentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("application")
		}
		return nil, err
	}
	return &app, nil
}

// Get is the role-filtered read: admins see everything, customers their own
// applications and distributors those assigned to them.
func (s *Service) Get(ctx context.Context, actor identity.Identity, documentID uint) (*models.Application, error) {
	var app models.Application
	err := s.db.WithContext(ctx).
		Preload("Category").Preload("Subcategory").Preload("Files").Preload("Certificate").
		First(&app, documentID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperror.NotFound("application")
	}
	if err != nil {
		return nil, err
	}
	if !identity.CanReadApplication(actor, app.OwnerID, app.DistributorID) {
		return nil, apperror.Forbidden("you cannot access this application")
	}
	s.resolveURLs(ctx, &app)
	return &app, nil
}

// History returns the status trail oldest first.
func (s *Service) History(ctx context.Context, actor identity.Identity, documentID uint) ([]models.ApplicationStatusEvent, error) {
	app, err := Load(s.db.WithContext(ctx), documentID)
	if err != nil {
		return nil, err
	}
	if !identity.CanReadApplication(actor, app.OwnerID, app.DistributorID) {
		return nil, apperror.Forbidden("you cannot access this application")
	}
	var trail []models.ApplicationStatusEvent
	err = s.db.WithContext(ctx).Where("document_id = ?", documentID).Order("id asc").Find(&trail).Error
	return trail, err
}

// Filter narrows List. Zero values mean "any".
type Filter struct {
	OwnerID       uint
	DistributorID uint
	Statuses      []models.ApplicationStatus
	CategoryID    uint
	SubcategoryID uint
	Unassigned    bool
	Search        string
	Page          int
	Limit         int
}

// List applies the structured filters in SQL, then the free-text search in
// memory (case-insensitive substring over the applicant and catalog fields),
// then pagination. Customers only ever see their own records and
// distributors only what is assigned to them.
func (s *Service) List(ctx context.Context, actor identity.Identity, f Filter) ([]models.Application, int64, error) {
	switch actor.Role {
	case identity.Admin:
	case identity.Customer:
		f.OwnerID = actor.UserID
	case identity.Distributor:
		f.DistributorID = actor.UserID
		f.Unassigned = false
	default:
		return nil, 0, apperror.Forbidden("unknown role")
	}
	page, limit := utils.Page(f.Page, f.Limit)

	q := s.db.WithContext(ctx).Model(&models.Application{}).
		Preload("Category").Preload("Subcategory")
	if f.OwnerID != 0 {
		q = q.Where("owner_id = ?", f.OwnerID)
	}
	if f.DistributorID != 0 {
		q = q.Where("distributor_id = ?", f.DistributorID)
	}
	if f.Unassigned {
		q = q.Where("distributor_id IS NULL")
	}
	if len(f.Statuses) > 0 {
		q = q.Where("status IN ?", f.Statuses)
	}
	if f.CategoryID != 0 {
		q = q.Where("category_id = ?", f.CategoryID)
	}
	if f.SubcategoryID != 0 {
		q = q.Where("subcategory_id = ?", f.SubcategoryID)
	}

	var all []models.Application
	if err := q.Order("created_at desc, id desc").Find(&all).Error; err != nil {
		return nil, 0, err
	}

	needle := strings.ToLower(strings.TrimSpace(f.Search))
	matched := all[:0]
	for _, app := range all {
		if needle == "" || strings.Contains(SearchText(app), needle) {
			matched = append(matched, app)
		}
	}

	total := int64(len(matched))
	start := (page - 1) * limit
	if start > len(matched) {
		start = len(matched)
	}
	end := start + limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[start:end], total, nil
}

// SearchText is the lower-cased haystack free-text search runs against.
// Fields are newline separated so a match never spans two of them.
func SearchText(app models.Application) string {
	parts := []string{
		strconv.FormatUint(uint64(app.ID), 10),
		app.ApplicationID,
		app.Name,
		app.Email,
		app.Phone,
	}
	if app.Category != nil {
		parts = append(parts, app.Category.Name)
	}
	if app.Subcategory != nil {
		parts = append(parts, app.Subcategory.Name)
	}
	parts = append(parts, app.Address)
	return strings.ToLower(strings.Join(parts, "\n"))
}

// StatusCounts groups applications by status, restricted by scope.
func StatusCounts(db *gorm.DB, scope func(*gorm.DB) *gorm.DB) (map[models.ApplicationStatus]int64, error) {
	type row struct {
		Status models.ApplicationStatus
		Count  int64
	}
	var rows []row
	q := db.Model(&models.Application{})
	if scope != nil {
		q = scope(q)
	}
	if err := q.Select("status, count(*) as count").Group("status").Scan(&rows).Error; err != nil {
		return nil, err
	}
	counts := make(map[models.ApplicationStatus]int64, len(models.ApplicationStatuses))
	for _, st := range models.ApplicationStatuses {
		counts[st] = 0
	}
	for _, r := range rows {
		counts[r.Status] = r.Count
	}
	return counts, nil
}

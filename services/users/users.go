// Package users owns accounts: registration, login, profile and the
// first-login profile gate.
package users

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"govdocs/apperror"
	"govdocs/identity"
	"govdocs/models"
	"govdocs/storage"
	"govdocs/utils"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const (
	maxFailedLogins = 3
	blockDuration   = time.Minute
	failureWindow   = 15 * time.Minute
)

var (
	emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
	phonePattern = regexp.MustCompile(`^\d{10}$`)
)

// Welcomer is told about new accounts.
type Welcomer interface {
	Welcome(ctx context.Context, u models.User)
}

type Service struct {
	db        *gorm.DB
	store     storage.Store
	saltRound int
	welcomer  Welcomer
	logger    *logrus.Entry
	now       func() time.Time
}

func NewService(db *gorm.DB, store storage.Store, saltRound int, welcomer Welcomer, log *logrus.Logger) *Service {
	if saltRound < bcrypt.MinCost {
		saltRound = bcrypt.DefaultCost
	}
	return &Service{
		db:        db,
		store:     store,
		saltRound: saltRound,
		welcomer:  welcomer,
		logger:    log.WithField("component", "users"),
		now:       time.Now,
	}
}

type Profile struct {
	Name    string
	Email   string
	Phone   string
	Address string
	City    string
	Country string
}

func (p Profile) validate(fields map[string]string) {
	if len(strings.TrimSpace(p.Name)) < 2 {
		fields["name"] = "Name must be at least 2 characters long!"
	}
	if !emailPattern.MatchString(strings.TrimSpace(p.Email)) {
		fields["email"] = "Invalid email!"
	}
	if p.Phone != "" && !phonePattern.MatchString(p.Phone) {
		fields["phone"] = "Invalid phone number!"
	}
}

// Register creates a Customer (Active) or a self-registered Distributor
// (Approve, waiting for an admin to activate it).
func (s *Service) Register(ctx context.Context, p Profile, role identity.Role, password string) (*models.User, error) {
	status := models.LoginActive
	switch role {
	case identity.Customer:
	case identity.Distributor:
		status = models.LoginApprove
	default:
		return nil, apperror.Validation(map[string]string{"role": "Only Customer or Distributor accounts can be registered"})
	}
	return s.create(ctx, p, role, status, password)
}

// RegisterDistributor is the admin path; the account is active at once.
func (s *Service) RegisterDistributor(ctx context.Context, actor identity.Identity, p Profile, password string) (*models.User, error) {
	if !actor.Is(identity.Admin) {
		return nil, apperror.Forbidden("only admins can register distributors")
	}
	return s.create(ctx, p, identity.Distributor, models.LoginActive, password)
}

// EnsureAdmin creates the bootstrap admin if no user has the email yet.
func (s *Service) EnsureAdmin(ctx context.Context, name, email, password string) (*models.User, bool, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	var existing models.User
	err := s.db.WithContext(ctx).Where("email = ?", email).First(&existing).Error
	if err == nil {
		return &existing, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, err
	}
	u, err := s.create(ctx, Profile{Name: name, Email: email}, identity.Admin, models.LoginActive, password)
	return u, err == nil, err
}

func (s *Service) create(ctx context.Context, p Profile, role identity.Role, status models.LoginStatus, password string) (*models.User, error) {
	p.Email = strings.ToLower(strings.TrimSpace(p.Email))
	fields := map[string]string{}
	p.validate(fields)
	if len(strings.TrimSpace(password)) < 8 {
		fields["password"] = "Password must be at least 8 characters long!"
	}
	if len(fields) > 0 {
		return nil, apperror.Validation(fields)
	}

	db := s.db.WithContext(ctx)
	var count int64
	if err := db.Unscoped().Model(&models.User{}).Where("email = ?", p.Email).Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, apperror.DuplicateName("email", p.Email)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), s.saltRound)
	if err != nil {
		return nil, apperror.Internal("failed to process your request", err)
	}

	u := models.User{
		Name:        strings.TrimSpace(p.Name),
		Email:       p.Email,
		Phone:       p.Phone,
		Address:     strings.TrimSpace(p.Address),
		City:        p.City,
		Country:     p.Country,
		Role:        role,
		LoginStatus: status,
		Password:    string(hashed),
	}
	if err := db.Create(&u).Error; err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}

	s.logger.WithFields(logrus.Fields{"user_id": u.ID, "role": role, "status": status}).Info("User registered")
	if s.welcomer != nil && role != identity.Admin {
		s.welcomer.Welcome(ctx, u)
	}
	return &u, nil
}

// LoginMeta is recorded in the login history.
type LoginMeta struct {
	IP     string
	Device string
}

// Authenticate checks credentials. Three wrong passwords inside the failure
// window block the account for a minute.
func (s *Service) Authenticate(ctx context.Context, email, password string, meta LoginMeta) (*models.User, error) {
	db := s.db.WithContext(ctx)
	email = strings.ToLower(strings.TrimSpace(email))

	var u models.User
	if err := db.Where("email = ?", email).First(&u).Error; err != nil {
		return nil, apperror.Unauthenticated("invalid credentials")
	}

	now := s.now()
	record := func(outcome models.LoginOutcome) {
		r := models.LoginRecord{UserID: u.ID, Role: u.Role, Outcome: outcome, IPAddress: meta.IP, Device: meta.Device, At: now}
		if err := db.Create(&r).Error; err != nil {
			s.logger.WithError(err).Error("Error saving login record")
		}
	}
	if u.BlockedUntil != nil && u.BlockedUntil.After(now) {
		record(models.LoginBlocked)
		return nil, apperror.Unauthenticated("your account is temporarily blocked, try again later")
	}
	if u.LastFailedLogin != nil && now.Sub(*u.LastFailedLogin) > failureWindow {
		u.FailedLoginAttempts = 0
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(password)); err != nil {
		u.FailedLoginAttempts++
		u.LastFailedLogin = &now
		updates := map[string]interface{}{
			"failed_login_attempts": u.FailedLoginAttempts,
			"last_failed_login":     now,
		}
		if u.FailedLoginAttempts >= maxFailedLogins {
			updates["blocked_until"] = now.Add(blockDuration)
			updates["failed_login_attempts"] = 0
			s.logger.WithField("user_id", u.ID).Warn("Account blocked after repeated failed logins")
		}
		if err := db.Model(&u).Updates(updates).Error; err != nil {
			s.logger.WithError(err).Error("Failed to record failed login")
		}
		record(models.LoginWrongPassword)
		return nil, apperror.Unauthenticated("wrong password")
	}

	switch u.LoginStatus {
	case models.LoginActive:
	case models.LoginApprove:
		record(models.LoginRefused)
		return nil, apperror.Forbidden("your account is waiting for admin approval")
	default:
		record(models.LoginRefused)
		return nil, apperror.Forbidden("your account is inactive")
	}

	if err := db.Model(&u).Updates(map[string]interface{}{
		"last_login":            now,
		"failed_login_attempts": 0,
		"blocked_until":         nil,
	}).Error; err != nil {
		s.logger.WithError(err).Error("Error saving last login time")
	}
	u.LastLogin = &now

	record(models.LoginSucceeded)
	return &u, nil
}

func (s *Service) LoginHistory(ctx context.Context, userID uint, page, limit int) ([]models.LoginRecord, int64, error) {
	page, limit = utils.Page(page, limit)
	var rows []models.LoginRecord
	var total int64
	q := s.db.WithContext(ctx).Model(&models.LoginRecord{}).Where("user_id = ?", userID)
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := q.Order("at desc").Offset((page - 1) * limit).Limit(limit).Find(&rows).Error
	return rows, total, err
}

func (s *Service) Get(ctx context.Context, id uint) (*models.User, error) {
	var u models.User
	err := s.db.WithContext(ctx).Preload("Documents").First(&u, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperror.NotFound("user")
	}
	if err != nil {
		return nil, err
	}
	for i := range u.Documents {
		u.Documents[i].URL, _ = s.store.URL(ctx, u.Documents[i].FileKey)
	}
	return &u, nil
}

// ProfileUpdate carries the editable profile fields; nil leaves a field unchanged.
type ProfileUpdate struct {
	Name    *string
	Phone   *string
	Address *string
	City    *string
	Country *string
}

func (s *Service) UpdateProfile(ctx context.Context, actor identity.Identity, in ProfileUpdate) (*models.User, error) {
	fields := map[string]string{}
	updates := map[string]interface{}{}
	if in.Name != nil {
		if len(strings.TrimSpace(*in.Name)) < 2 {
			fields["name"] = "Name must be at least 2 characters long!"
		}
		updates["name"] = strings.TrimSpace(*in.Name)
	}
	if in.Phone != nil {
		if !phonePattern.MatchString(*in.Phone) {
			fields["phone"] = "Invalid phone number!"
		}
		updates["phone"] = *in.Phone
	}
	if in.Address != nil {
		updates["address"] = strings.TrimSpace(*in.Address)
	}
	if in.City != nil {
		updates["city"] = strings.TrimSpace(*in.City)
	}
	if in.Country != nil {
		updates["country"] = strings.TrimSpace(*in.Country)
	}
	if len(fields) > 0 {
		return nil, apperror.Validation(fields)
	}
	if len(updates) > 0 {
		if err := s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", actor.UserID).Updates(updates).Error; err != nil {
			return nil, err
		}
	}
	return s.Get(ctx, actor.UserID)
}

func (s *Service) ChangePassword(ctx context.Context, actor identity.Identity, oldPassword, newPassword string) error {
	var u models.User
	if err := s.db.WithContext(ctx).First(&u, actor.UserID).Error; err != nil {
		return apperror.NotFound("user")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(oldPassword)); err != nil {
		return apperror.Validation(map[string]string{"old_password": "Old password is incorrect!"})
	}
	if len(strings.TrimSpace(newPassword)) < 8 {
		return apperror.Validation(map[string]string{"new_password": "Password must be at least 8 characters long!"})
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(newPassword), s.saltRound)
	if err != nil {
		return apperror.Internal("failed to process your request", err)
	}
	return s.db.WithContext(ctx).Model(&u).Update("password", string(hashed)).Error
}

// UploadDocument adds an identity document to the caller's profile.
func (s *Service) UploadDocument(ctx context.Context, actor identity.Identity, f utils.UploadedFile) (*models.UserDocument, error) {
	label := strings.TrimSpace(f.Label)
	if label == "" {
		return nil, apperror.Validation(map[string]string{"label": "Document label is required!"})
	}
	stored, err := utils.SaveUploadedFile(ctx, s.store, fmt.Sprintf("profiles/%d", actor.UserID), f)
	if err != nil {
		return nil, err
	}

	doc := models.UserDocument{
		UserID:      actor.UserID,
		Label:       label,
		FileName:    stored.Name,
		FileKey:     stored.Key,
		ContentType: stored.ContentType,
		Size:        stored.Size,
	}
	if err := s.db.WithContext(ctx).Create(&doc).Error; err != nil {
		storage.DeleteAll(ctx, s.store, s.logger, stored.Key)
		return nil, err
	}
	doc.URL, _ = s.store.URL(ctx, doc.FileKey)
	return &doc, nil
}

// RequireCompleteProfile is the first-login gate for Customers and
// Distributors: an Active account with phone, address and at least one
// identity document.
func (s *Service) RequireCompleteProfile(ctx context.Context, actor identity.Identity) error {
	if !identity.RequiresProfile(actor.Role) {
		return nil
	}
	return s.requireCompleteProfile(s.db.WithContext(ctx), actor.UserID)
}

// RequireActive refuses callers whose account was deactivated or deleted
// after their token was issued.
func (s *Service) RequireActive(ctx context.Context, actor identity.Identity) error {
	_, err := s.activeUser(s.db.WithContext(ctx), actor.UserID)
	return err
}

func (s *Service) activeUser(db *gorm.DB, userID uint) (*models.User, error) {
	var u models.User
	if err := db.First(&u, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.Unauthenticated("account no longer exists")
		}
		return nil, err
	}
	switch u.LoginStatus {
	case models.LoginActive:
		return &u, nil
	case models.LoginApprove:
		return nil, apperror.Forbidden("your account is waiting for admin approval")
	default:
		return nil, apperror.Forbidden("your account is inactive")
	}
}

func (s *Service) requireCompleteProfile(db *gorm.DB, userID uint) error {
	u, err := s.activeUser(db, userID)
	if err != nil {
		return err
	}
	var docs int64
	if err := db.Model(&models.UserDocument{}).Where("user_id = ?", userID).Count(&docs).Error; err != nil {
		return err
	}
	if missing := MissingProfileParts(*u, docs); len(missing) > 0 {
		return apperror.ProfileIncomplete(missing)
	}
	return nil
}

// MissingProfileParts names what the gate still needs.
func MissingProfileParts(u models.User, documentCount int64) []string {
	var missing []string
	if strings.TrimSpace(u.Phone) == "" {
		missing = append(missing, "phone")
	}
	if strings.TrimSpace(u.Address) == "" {
		missing = append(missing, "address")
	}
	if documentCount == 0 {
		missing = append(missing, "identity document")
	}
	return missing
}

// ActiveDistributor loads userID and checks it can receive assignments.
func (s *Service) ActiveDistributor(db *gorm.DB, userID uint) (*models.User, error) {
	var u models.User
	if err := db.First(&u, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("distributor")
		}
		return nil, err
	}
	fields := map[string]string{}
	if u.Role != identity.Distributor {
		fields["distributor_id"] = "User is not a distributor"
	} else if u.LoginStatus != models.LoginActive {
		fields["distributor_id"] = "Distributor account is not active"
	}
	if len(fields) > 0 {
		return nil, apperror.Validation(fields)
	}
	if err := s.requireCompleteProfile(db, userID); err != nil {
		return nil, err
	}
	return &u, nil
}

// ListFilter narrows the admin user list.
type ListFilter struct {
	Role        identity.Role
	LoginStatus models.LoginStatus
	Search      string
	Page        int
	Limit       int
}

func (s *Service) List(ctx context.Context, actor identity.Identity, f ListFilter) ([]models.User, int64, error) {
	if !actor.Is(identity.Admin) {
		return nil, 0, apperror.Forbidden("only admins can list users")
	}
	page, limit := utils.Page(f.Page, f.Limit)

	q := s.db.WithContext(ctx).Model(&models.User{})
	if f.Role != "" {
		q = q.Where("role = ?", f.Role)
	}
	if f.LoginStatus != "" {
		q = q.Where("login_status = ?", f.LoginStatus)
	}
	if term := strings.ToLower(strings.TrimSpace(f.Search)); term != "" {
		like := "%" + term + "%"
		q = q.Where("LOWER(name) LIKE ? OR LOWER(email) LIKE ? OR phone LIKE ?", like, like, like)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var list []models.User
	err := q.Order("created_at desc").Offset((page - 1) * limit).Limit(limit).Find(&list).Error
	return list, total, err
}

// SetLoginStatus is idempotent; setting the current status again succeeds.
func (s *Service) SetLoginStatus(ctx context.Context, actor identity.Identity, userID uint, status models.LoginStatus) (*models.User, error) {
	if !actor.Is(identity.Admin) {
		return nil, apperror.Forbidden("only admins can change login status")
	}
	if !status.Valid() {
		return nil, apperror.Validation(map[string]string{"login_status": "Must be Active, Inactive or Approve"})
	}
	if userID == actor.UserID && status != models.LoginActive {
		return nil, apperror.Forbidden("admins cannot deactivate themselves")
	}
	res := s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", userID).Update("login_status", status)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		if _, err := s.Get(ctx, userID); err != nil {
			return nil, err
		}
	}
	s.logger.WithFields(logrus.Fields{"user_id": userID, "login_status": status, "admin_id": actor.UserID}).Info("Login status changed")
	return s.Get(ctx, userID)
}

// Delete soft-deletes an account that no application references.
func (s *Service) Delete(ctx context.Context, actor identity.Identity, userID uint) error {
	if !actor.Is(identity.Admin) {
		return apperror.Forbidden("only admins can delete users")
	}
	if userID == actor.UserID {
		return apperror.Forbidden("admins cannot delete themselves")
	}
	db := s.db.WithContext(ctx)
	var refs int64
	if err := db.Model(&models.Application{}).Where("owner_id = ? OR distributor_id = ?", userID, userID).Count(&refs).Error; err != nil {
		return err
	}
	if refs > 0 {
		return apperror.InUse("user is referenced by applications")
	}
	res := db.Delete(&models.User{}, userID)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperror.NotFound("user")
	}
	return nil
}

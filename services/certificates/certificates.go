// Package certificates binds issued certificate files to applications and
// serves them back: metadata with a resolvable URL, the raw file, a zip of
// the application's source documents, and a QR code for public verification.
package certificates

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"govdocs/apperror"
	"govdocs/identity"
	"govdocs/models"
	"govdocs/storage"
	"govdocs/utils"

	"github.com/google/uuid"
	"github.com/klauspost/compress/zip"
	"github.com/sirupsen/logrus"
	"github.com/skip2/go-qrcode"
	"gorm.io/gorm"
)

const qrSize = 256

type Service struct {
	db            *gorm.DB
	store         storage.Store
	publicBaseURL string
	logger        *logrus.Entry
	now           func() time.Time
}

func NewService(db *gorm.DB, store storage.Store, publicBaseURL string, log *logrus.Logger) *Service {
	return &Service{
		db:            db,
		store:         store,
		publicBaseURL: strings.TrimRight(publicBaseURL, "/"),
		logger:        log.WithField("component", "certificates"),
		now:           time.Now,
	}
}

// NewNumber mints a public certificate number for a document.
func NewNumber(documentID uint) string {
	return fmt.Sprintf("CERT-%d-%s", documentID, strings.ToUpper(uuid.NewString()[:8]))
}

// Issue stores f and binds it to documentID. inTx runs first inside the
// same transaction, so a status change and the binding commit together.
// There is one certificate per document: issuing again replaces the file
// and issuer but keeps the row and number. The replaced blob is removed
// after commit; on failure the new blob is removed instead.
func (s *Service) Issue(ctx context.Context, documentID, issuerID uint, f utils.UploadedFile, inTx func(tx *gorm.DB) error) (*models.Certificate, error) {
	stored, err := utils.SaveUploadedFile(ctx, s.store, fmt.Sprintf("certificates/%d", documentID), f)
	if err != nil {
		return nil, err
	}

	var cert models.Certificate
	var oldKey string
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if inTx != nil {
			if err := inTx(tx); err != nil {
				return err
			}
		}

		now := s.now()
		err := tx.Where("document_id = ?", documentID).First(&cert).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			cert = models.Certificate{
				DocumentID:        documentID,
				CertificateNumber: NewNumber(documentID),
				FileKey:           stored.Key,
				FileName:          stored.Name,
				ContentType:       stored.ContentType,
				Size:              stored.Size,
				IssuedBy:          issuerID,
				IssuedAt:          now,
			}
			return tx.Create(&cert).Error
		case err != nil:
			return err
		}

		oldKey = cert.FileKey
		cert.FileKey = stored.Key
		cert.FileName = stored.Name
		cert.ContentType = stored.ContentType
		cert.Size = stored.Size
		cert.IssuedBy = issuerID
		cert.IssuedAt = now
		return tx.Save(&cert).Error
	})
	if err != nil {
		storage.DeleteAll(ctx, s.store, s.logger, stored.Key)
		return nil, err
	}
	if oldKey != "" && oldKey != stored.Key {
		storage.DeleteAll(ctx, s.store, s.logger, oldKey)
	}

	s.logger.WithFields(logrus.Fields{
		"document_id":        documentID,
		"certificate_number": cert.CertificateNumber,
		"issued_by":          issuerID,
		"replaced":           oldKey != "",
	}).Info("Certificate issued")

	cert.URL, _ = s.store.URL(ctx, cert.FileKey)
	return &cert, nil
}

func (s *Service) readableApplication(ctx context.Context, actor identity.Identity, documentID uint) (*models.Application, error) {
	var app models.Application
	if err := s.db.WithContext(ctx).Preload("Files").First(&app, documentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("application")
		}
		return nil, err
	}
	if !identity.CanReadApplication(actor, app.OwnerID, app.DistributorID) {
		return nil, apperror.Forbidden("you cannot access this application")
	}
	return &app, nil
}

func (s *Service) byDocument(ctx context.Context, documentID uint) (*models.Certificate, error) {
	var cert models.Certificate
	if err := s.db.WithContext(ctx).Where("document_id = ?", documentID).First(&cert).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("certificate")
		}
		return nil, err
	}
	return &cert, nil
}

// Get returns the certificate metadata with a resolvable URL.
func (s *Service) Get(ctx context.Context, actor identity.Identity, documentID uint) (*models.Certificate, error) {
	if _, err := s.readableApplication(ctx, actor, documentID); err != nil {
		return nil, err
	}
	cert, err := s.byDocument(ctx, documentID)
	if err != nil {
		return nil, err
	}
	url, err := s.store.URL(ctx, cert.FileKey)
	if err != nil {
		return nil, apperror.Internal("failed to resolve certificate URL", err)
	}
	cert.URL = url
	return cert, nil
}

// Open streams the certificate file. The caller closes the reader.
func (s *Service) Open(ctx context.Context, actor identity.Identity, documentID uint) (io.ReadCloser, *models.Certificate, error) {
	if _, err := s.readableApplication(ctx, actor, documentID); err != nil {
		return nil, nil, err
	}
	cert, err := s.byDocument(ctx, documentID)
	if err != nil {
		return nil, nil, err
	}
	rc, err := s.store.Open(ctx, cert.FileKey)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil, apperror.NotFound("certificate file")
	}
	if err != nil {
		return nil, nil, err
	}
	return rc, cert, nil
}

// List is scoped by role: admins see all, distributors what they issued or
// were assigned, customers certificates of their own applications.
func (s *Service) List(ctx context.Context, actor identity.Identity, page, limit int) ([]models.Certificate, int64, error) {
	page, limit = utils.Page(page, limit)
	q := s.db.WithContext(ctx).Model(&models.Certificate{}).
		Joins("JOIN applications ON applications.id = certificates.document_id")
	switch actor.Role {
	case identity.Admin:
	case identity.Distributor:
		q = q.Where("certificates.issued_by = ? OR applications.distributor_id = ?", actor.UserID, actor.UserID)
	case identity.Customer:
		q = q.Where("applications.owner_id = ?", actor.UserID)
	default:
		return nil, 0, apperror.Forbidden("unknown role")
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var list []models.Certificate
	if err := q.Order("certificates.issued_at desc").Offset((page - 1) * limit).Limit(limit).Find(&list).Error; err != nil {
		return nil, 0, err
	}
	for i := range list {
		list[i].URL, _ = s.store.URL(ctx, list[i].FileKey)
	}
	return list, total, nil
}

// Bundle describes a zip of an application's source documents.
type Bundle struct {
	FileName string
	app      *models.Application
}

// PrepareBundle checks access and names the archive after the applicant.
// Nothing is read from storage until WriteBundle.
func (s *Service) PrepareBundle(ctx context.Context, actor identity.Identity, documentID uint) (*Bundle, error) {
	app, err := s.readableApplication(ctx, actor, documentID)
	if err != nil {
		return nil, err
	}
	if len(app.Files) == 0 {
		return nil, apperror.NotFound("documents for this application")
	}
	return &Bundle{
		FileName: fmt.Sprintf("%s_%s.zip", utils.SafeName(app.Name), app.ApplicationID),
		app:      app,
	}, nil
}

// WriteBundle streams the archive to w one file at a time.
func (s *Service) WriteBundle(ctx context.Context, b *Bundle, w io.Writer) error {
	zw := zip.NewWriter(w)
	used := map[string]int{}
	for _, f := range b.app.Files {
		name := entryName(f, used)
		rc, err := s.store.Open(ctx, f.FileKey)
		if err != nil {
			zw.Close()
			return fmt.Errorf("open %s: %w", f.FileKey, err)
		}
		hdr := &zip.FileHeader{Name: name, Method: zip.Deflate, Modified: f.CreatedAt}
		fw, err := zw.CreateHeader(hdr)
		if err == nil {
			_, err = io.Copy(fw, rc)
		}
		rc.Close()
		if err != nil {
			zw.Close()
			return fmt.Errorf("write %s: %w", name, err)
		}
	}
	return zw.Close()
}

func entryName(f models.ApplicationFile, used map[string]int) string {
	ext := ""
	if i := strings.LastIndex(f.FileName, "."); i >= 0 {
		ext = strings.ToLower(f.FileName[i:])
	}
	base := utils.SafeName(f.Label)
	name := base + ext
	if n := used[name]; n > 0 {
		name = fmt.Sprintf("%s_%d%s", base, n+1, ext)
	}
	used[base+ext]++
	return name
}

// VerifyURL is the public page a certificate's QR code points at.
func (s *Service) VerifyURL(number string) string {
	return s.publicBaseURL + "/certificates/verify/" + number
}

// QRCode renders a PNG QR code of the certificate's verification URL.
func (s *Service) QRCode(ctx context.Context, actor identity.Identity, documentID uint) ([]byte, error) {
	if _, err := s.readableApplication(ctx, actor, documentID); err != nil {
		return nil, err
	}
	cert, err := s.byDocument(ctx, documentID)
	if err != nil {
		return nil, err
	}
	qr, err := qrcode.New(s.VerifyURL(cert.CertificateNumber), qrcode.Medium)
	if err != nil {
		return nil, fmt.Errorf("failed to create QR code: %w", err)
	}
	return qr.PNG(qrSize)
}

// Verification is what the public verify endpoint discloses.
type Verification struct {
	CertificateNumber string    `json:"certificate_number"`
	ApplicationID     string    `json:"application_id"`
	Category          string    `json:"category"`
	Subcategory       string    `json:"subcategory"`
	Status            string    `json:"status"`
	IssuedAt          time.Time `json:"issued_at"`
}

// Verify looks a certificate up by number without authentication.
func (s *Service) Verify(ctx context.Context, number string) (*Verification, error) {
	number = strings.ToUpper(strings.TrimSpace(number))
	if number == "" {
		return nil, apperror.NotFound("certificate")
	}
	db := s.db.WithContext(ctx)
	var cert models.Certificate
	if err := db.Where("certificate_number = ?", number).First(&cert).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("certificate")
		}
		return nil, err
	}
	var app models.Application
	if err := db.Preload("Category").Preload("Subcategory").First(&app, cert.DocumentID).Error; err != nil {
		return nil, err
	}
	v := &Verification{
		CertificateNumber: cert.CertificateNumber,
		ApplicationID:     app.ApplicationID,
		Status:            string(app.Status),
		IssuedAt:          cert.IssuedAt,
	}
	if app.Category != nil {
		v.Category = app.Category.Name
	}
	if app.Subcategory != nil {
		v.Subcategory = app.Subcategory.Name
	}
	return v, nil
}

package certificates

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"govdocs/apperror"
	"govdocs/database/dbtest"
	"govdocs/identity"
	"govdocs/models"
	"govdocs/storage"
	"govdocs/utils"

	"github.com/klauspost/compress/zip"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fixture struct {
	db          *gorm.DB
	mem         *storage.Memory
	svc         *Service
	admin       models.User
	owner       models.User
	distributor models.User
	app         models.Application
}

func setup(t *testing.T) *fixture {
	db := dbtest.New(t)
	log, _ := test.NewNullLogger()
	mem := storage.NewMemory("http://files.test")
	f := &fixture{db: db, mem: mem, svc: NewService(db, mem, "https://portal.example.gov/", log)}
	f.admin = dbtest.User(t, db, identity.Admin, "Root Admin")
	f.owner = dbtest.User(t, db, identity.Customer, "Asha Rao")
	f.distributor = dbtest.User(t, db, identity.Distributor, "Dev Kumar")
	c, sc := dbtest.Pair(t, db, "Certificates", "Income", nil, nil)

	f.app = models.Application{
		ApplicationID: "APP2026000007",
		OwnerID:       f.owner.ID,
		CategoryID:    c.ID,
		SubcategoryID: sc.ID,
		Name:          "Asha Rao",
		Status:        models.StatusApproved,
		DistributorID: &f.distributor.ID,
		Version:       2,
	}
	require.NoError(t, db.Create(&f.app).Error)
	return f
}

func (f *fixture) addFile(t *testing.T, label, name, body string) {
	key := "applications/" + name
	require.NoError(t, f.mem.Put(context.Background(), key, strings.NewReader(body), int64(len(body)), ""))
	require.NoError(t, f.db.Create(&models.ApplicationFile{
		DocumentID: f.app.ID, Label: label, FileName: name, FileKey: key,
	}).Error)
}

func pdf(name string) utils.UploadedFile {
	return utils.FromBytes("certificate", name, []byte("%PDF-1.4 "+name))
}

func TestIssueReplacesInPlace(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	first, err := f.svc.Issue(ctx, f.app.ID, f.distributor.ID, pdf("first.pdf"), nil)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(first.CertificateNumber, "CERT-"))
	assert.True(t, strings.HasPrefix(first.URL, "http://files.test/certificates/"))

	second, err := f.svc.Issue(ctx, f.app.ID, f.admin.ID, pdf("second.pdf"), nil)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, first.CertificateNumber, second.CertificateNumber)
	assert.Equal(t, f.admin.ID, second.IssuedBy)
	assert.Equal(t, "second.pdf", second.FileName)

	var count int64
	f.db.Model(&models.Certificate{}).Where("document_id = ?", f.app.ID).Count(&count)
	assert.Equal(t, int64(1), count)
	assert.Equal(t, []string{second.FileKey}, f.mem.Keys())
}

func TestIssueRollsBackBlobWhenTransactionFails(t *testing.T) {
	f := setup(t)
	refused := errors.New("not now")

	_, err := f.svc.Issue(context.Background(), f.app.ID, f.distributor.ID, pdf("cert.pdf"), func(tx *gorm.DB) error {
		return refused
	})
	assert.ErrorIs(t, err, refused)
	assert.Empty(t, f.mem.Keys())

	var count int64
	f.db.Model(&models.Certificate{}).Count(&count)
	assert.Zero(t, count)
}

func TestGetAndOpenAreRoleFiltered(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	stranger := dbtest.User(t, f.db, identity.Customer, "Stranger")

	_, err := f.svc.Get(ctx, f.owner.Identity(), f.app.ID)
	assert.Equal(t, apperror.KindNotFound, apperror.KindOf(err))

	_, err = f.svc.Issue(ctx, f.app.ID, f.distributor.ID, pdf("cert.pdf"), nil)
	require.NoError(t, err)

	cert, err := f.svc.Get(ctx, f.owner.Identity(), f.app.ID)
	require.NoError(t, err)
	assert.NotEmpty(t, cert.URL)

	_, err = f.svc.Get(ctx, stranger.Identity(), f.app.ID)
	assert.Equal(t, apperror.KindForbidden, apperror.KindOf(err))

	rc, _, err := f.svc.Open(ctx, f.distributor.Identity(), f.app.ID)
	require.NoError(t, err)
	body, _ := io.ReadAll(rc)
	rc.Close()
	assert.Equal(t, "%PDF-1.4 cert.pdf", string(body))

	list, total, err := f.svc.List(ctx, stranger.Identity(), 1, 10)
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, list)

	_, total, err = f.svc.List(ctx, f.distributor.Identity(), 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
}

func TestBundleZipsSourceDocuments(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	_, err := f.svc.PrepareBundle(ctx, f.owner.Identity(), f.app.ID)
	assert.Equal(t, apperror.KindNotFound, apperror.KindOf(err))

	f.addFile(t, "Aadhaar", "a.PDF", "aadhaar")
	f.addFile(t, "Salary Slip", "slip.jpg", "slip")
	f.addFile(t, "Aadhaar", "back.pdf", "aadhaar back")

	b, err := f.svc.PrepareBundle(ctx, f.owner.Identity(), f.app.ID)
	require.NoError(t, err)
	assert.Equal(t, "Asha_Rao_APP2026000007.zip", b.FileName)

	var buf bytes.Buffer
	require.NoError(t, f.svc.WriteBundle(ctx, b, &buf))

	zr, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	require.NoError(t, err)
	contents := map[string]string{}
	for _, zf := range zr.File {
		rc, err := zf.Open()
		require.NoError(t, err)
		data, _ := io.ReadAll(rc)
		rc.Close()
		contents[zf.Name] = string(data)
	}
	assert.Equal(t, map[string]string{
		"Aadhaar.pdf":     "aadhaar",
		"Salary_Slip.jpg": "slip",
		"Aadhaar_2.pdf":   "aadhaar back",
	}, contents)
}

func TestVerifyAndQRCode(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	cert, err := f.svc.Issue(ctx, f.app.ID, f.distributor.ID, pdf("cert.pdf"), nil)
	require.NoError(t, err)

	v, err := f.svc.Verify(ctx, strings.ToLower(cert.CertificateNumber))
	require.NoError(t, err)
	assert.Equal(t, "APP2026000007", v.ApplicationID)
	assert.Equal(t, "Income", v.Subcategory)
	assert.Equal(t, string(models.StatusApproved), v.Status)

	_, err = f.svc.Verify(ctx, "CERT-0-NOPE")
	assert.Equal(t, apperror.KindNotFound, apperror.KindOf(err))

	assert.Equal(t, "https://portal.example.gov/certificates/verify/"+cert.CertificateNumber, f.svc.VerifyURL(cert.CertificateNumber))

	png, err := f.svc.QRCode(ctx, f.owner.Identity(), f.app.ID)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(png, []byte("\x89PNG")))
}

package routers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"govdocs/config"
	"govdocs/database/dbtest"
	"govdocs/events"
	"govdocs/identity"
	"govdocs/models"
	"govdocs/services/applications"
	"govdocs/services/catalog"
	"govdocs/services/certificates"
	"govdocs/services/dashboard"
	"govdocs/services/ledger"
	"govdocs/services/users"
	"govdocs/services/workflow"
	"govdocs/storage"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type envelope struct {
	Status  bool            `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type harness struct {
	t   *testing.T
	app *fiber.App
	cat models.Category
	sub models.Subcategory

	admin, customer, distributor models.User
}

func newHarness(t *testing.T) *harness {
	prev := config.AppConfig
	config.AppConfig = &config.Config{JWTKey: "router-test-secret"}
	t.Cleanup(func() { config.AppConfig = prev })

	db := dbtest.New(t)
	log, _ := test.NewNullLogger()
	mem := storage.NewMemory("/files")
	observers := events.Observers{}

	people := users.NewService(db, mem, bcrypt.MinCost, nil, log)
	cat := catalog.NewService(db, nil, log)
	certs := certificates.NewService(db, mem, "https://portal.example.gov", log)

	app := New(Services{
		Users:        people,
		Catalog:      cat,
		Applications: applications.NewService(db, mem, cat, people, observers, log),
		Workflow:     workflow.NewService(db, mem, certs, people, observers, log),
		Certificates: certs,
		Ledger:       ledger.NewService(db, log),
		Dashboard:    dashboard.NewService(db),
		Store:        mem,
	}, Options{Logger: log})

	h := &harness{t: t, app: app}
	h.admin = dbtest.User(t, db, identity.Admin, "Root Admin")
	h.customer = dbtest.User(t, db, identity.Customer, "Asha Rao")
	h.distributor = dbtest.User(t, db, identity.Distributor, "Dev Kumar")
	h.cat, h.sub = dbtest.Pair(t, db, "Revenue", "Income Certificate", []string{"Salary Slip"}, []string{"PAN"})
	return h
}

func (h *harness) send(req *http.Request, token string) (int, envelope) {
	h.t.Helper()
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := h.app.Test(req, -1)
	require.NoError(h.t, err)
	defer resp.Body.Close()

	var body envelope
	raw, err := io.ReadAll(resp.Body)
	require.NoError(h.t, err)
	require.NoError(h.t, json.Unmarshal(raw, &body), string(raw))
	return resp.StatusCode, body
}

func (h *harness) jsonCall(method, path, token string, payload interface{}) (int, envelope) {
	h.t.Helper()
	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		require.NoError(h.t, err)
		body = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, body)
	req.Header.Set("Content-Type", "application/json")
	return h.send(req, token)
}

func (h *harness) login(u models.User) string {
	h.t.Helper()
	code, body := h.jsonCall("POST", "/auth/login", "", map[string]string{
		"email":    u.Email,
		"password": dbtest.Password,
	})
	require.Equal(h.t, fiber.StatusOK, code, body.Message)

	var data struct {
		Token string `json:"token"`
	}
	require.NoError(h.t, json.Unmarshal(body.Data, &data))
	require.NotEmpty(h.t, data.Token)
	return data.Token
}

type part struct {
	field, name string
	content     []byte
}

func (h *harness) multipartCall(method, path, token string, values map[string][]string, files []part) (int, envelope) {
	h.t.Helper()
	buf := &bytes.Buffer{}
	w := multipart.NewWriter(buf)
	for k, vs := range values {
		for _, v := range vs {
			require.NoError(h.t, w.WriteField(k, v))
		}
	}
	for _, f := range files {
		fw, err := w.CreateFormFile(f.field, f.name)
		require.NoError(h.t, err)
		_, err = fw.Write(f.content)
		require.NoError(h.t, err)
	}
	require.NoError(h.t, w.Close())

	req := httptest.NewRequest(method, path, buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return h.send(req, token)
}

func TestHealth(t *testing.T) {
	h := newHarness(t)
	code, body := h.send(httptest.NewRequest("GET", "/health", nil), "")
	assert.Equal(t, fiber.StatusOK, code)
	assert.True(t, body.Status)
}

func TestRegisterAndLogin(t *testing.T) {
	h := newHarness(t)

	code, body := h.jsonCall("POST", "/auth/register", "", map[string]string{
		"name":     "Meera Iyer",
		"email":    "meera@example.com",
		"password": "s3cret-pass",
	})
	require.Equal(t, fiber.StatusCreated, code, body.Message)
	var created models.User
	require.NoError(t, json.Unmarshal(body.Data, &created))
	assert.Equal(t, identity.Customer, created.Role)

	code, _ = h.jsonCall("POST", "/auth/register", "", map[string]string{
		"name":     "Sneaky",
		"email":    "sneaky@example.com",
		"password": "s3cret-pass",
		"role":     "Admin",
	})
	assert.Equal(t, fiber.StatusUnprocessableEntity, code)

	code, _ = h.jsonCall("POST", "/auth/login", "", map[string]string{
		"email":    "meera@example.com",
		"password": "wrong-pass",
	})
	assert.Equal(t, fiber.StatusUnauthorized, code)

	code, body = h.jsonCall("POST", "/auth/login", "", map[string]string{
		"email":    "meera@example.com",
		"password": "s3cret-pass",
	})
	assert.Equal(t, fiber.StatusOK, code, body.Message)
}

func TestProtectedRoutesNeedToken(t *testing.T) {
	h := newHarness(t)

	code, _ := h.jsonCall("GET", "/applications", "", nil)
	assert.Equal(t, fiber.StatusUnauthorized, code)

	code, _ = h.jsonCall("GET", "/dashboard", "", nil)
	assert.Equal(t, fiber.StatusUnauthorized, code)
}

func TestApplicationLifecycleOverHTTP(t *testing.T) {
	h := newHarness(t)
	customer := h.login(h.customer)
	admin := h.login(h.admin)
	distributor := h.login(h.distributor)

	code, body := h.multipartCall("POST", "/applications", customer, map[string][]string{
		"category_id":     {fmt.Sprint(h.cat.ID)},
		"subcategory_id":  {fmt.Sprint(h.sub.ID)},
		"document_fields": {`{"PAN":"ABCDE1234F"}`},
		"labels":          {"Salary Slip"},
	}, []part{{field: "files", name: "slip.pdf", content: []byte("%PDF-1.4 salary slip")}})
	require.Equal(t, fiber.StatusCreated, code, string(body.Data))

	var app models.Application
	require.NoError(t, json.Unmarshal(body.Data, &app))
	assert.Equal(t, models.StatusPending, app.Status)
	assert.Regexp(t, `^APP\d{4}\d{6}$`, app.ApplicationID)
	base := fmt.Sprintf("/applications/%d", app.ID)

	code, _ = h.jsonCall("PATCH", base+"/approve", customer, nil)
	assert.Equal(t, fiber.StatusForbidden, code)

	code, body = h.jsonCall("PATCH", base+"/approve", admin, nil)
	require.Equal(t, fiber.StatusOK, code, body.Message)

	code, body = h.jsonCall("PATCH", base+"/approve", admin, nil)
	assert.Equal(t, fiber.StatusConflict, code)
	var refused struct {
		Kind      string `json:"kind"`
		Current   string `json:"current"`
		Attempted string `json:"attempted"`
	}
	require.NoError(t, json.Unmarshal(body.Data, &refused))
	assert.Equal(t, "InvalidTransition", refused.Kind)
	assert.Equal(t, "Approved", refused.Current)

	code, body = h.jsonCall("PATCH", base+"/assign", admin, map[string]uint{"distributor_id": h.distributor.ID})
	require.Equal(t, fiber.StatusOK, code, body.Message)

	code, body = h.multipartCall("POST", base+"/certificate", distributor, nil,
		[]part{{field: "file", name: "income.pdf", content: []byte("%PDF-1.4 income certificate")}})
	require.Equal(t, fiber.StatusOK, code, string(body.Data))
	var uploaded struct {
		Application models.Application `json:"application"`
		Certificate models.Certificate `json:"certificate"`
	}
	require.NoError(t, json.Unmarshal(body.Data, &uploaded))
	assert.Equal(t, models.StatusUploaded, uploaded.Application.Status)
	require.NotEmpty(t, uploaded.Certificate.CertificateNumber)

	code, body = h.jsonCall("GET", "/certificates/verify/"+uploaded.Certificate.CertificateNumber, "", nil)
	require.Equal(t, fiber.StatusOK, code, body.Message)
	var v certificates.Verification
	require.NoError(t, json.Unmarshal(body.Data, &v))
	assert.Equal(t, app.ApplicationID, v.ApplicationID)
	assert.Equal(t, "Income Certificate", v.Subcategory)

	code, _ = h.jsonCall("GET", "/certificates/verify/CERT-NOPE", "", nil)
	assert.Equal(t, fiber.StatusNotFound, code)

	code, body = h.jsonCall("GET", "/dashboard", admin, nil)
	require.Equal(t, fiber.StatusOK, code)
	var stats dashboard.Stats
	require.NoError(t, json.Unmarshal(body.Data, &stats))
	assert.Equal(t, int64(1), stats.Applications)
	assert.Equal(t, int64(1), stats.ByStatus[models.StatusUploaded])
}

func TestSubmitRejectsBadUpload(t *testing.T) {
	h := newHarness(t)
	customer := h.login(h.customer)

	code, _ := h.multipartCall("POST", "/applications", customer, map[string][]string{
		"category_id":     {fmt.Sprint(h.cat.ID)},
		"subcategory_id":  {fmt.Sprint(h.sub.ID)},
		"document_fields": {`{"PAN":"ABCDE1234F"}`},
		"labels":          {"Salary Slip"},
	}, []part{{field: "files", name: "slip.exe", content: []byte("MZ\x90\x00binary")}})
	assert.Equal(t, fiber.StatusUnsupportedMediaType, code)

	code, _ = h.multipartCall("POST", "/applications", customer, map[string][]string{
		"category_id": {fmt.Sprint(h.cat.ID)},
		"labels":      {"Salary Slip", "Extra"},
	}, []part{{field: "files", name: "slip.pdf", content: []byte("%PDF-1.4")}})
	assert.Equal(t, fiber.StatusUnprocessableEntity, code)
}

func TestDeactivatedTokenIsRefused(t *testing.T) {
	h := newHarness(t)
	admin := h.login(h.admin)
	distributor := h.login(h.distributor)

	code, _ := h.jsonCall("GET", "/applications", distributor, nil)
	require.Equal(t, fiber.StatusOK, code)

	code, body := h.jsonCall("PATCH", fmt.Sprintf("/admin/users/%d/status", h.distributor.ID), admin,
		map[string]string{"login_status": "Inactive"})
	require.Equal(t, fiber.StatusOK, code, body.Message)

	code, body = h.jsonCall("GET", "/applications", distributor, nil)
	assert.Equal(t, fiber.StatusForbidden, code)
	assert.Equal(t, "your account is inactive", body.Message)

	code, _ = h.jsonCall("GET", "/dashboard", admin, nil)
	assert.Equal(t, fiber.StatusOK, code)
}

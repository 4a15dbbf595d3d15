package applications

import (
	"context"
	"sync"
	"testing"
	"time"

	"govdocs/apperror"
	"govdocs/database/dbtest"
	"govdocs/events"
	"govdocs/identity"
	"govdocs/models"
	"govdocs/services/catalog"
	"govdocs/services/users"
	"govdocs/storage"
	"govdocs/storage/storagetest"
	"govdocs/utils"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type recorder struct {
	mu  sync.Mutex
	all []events.Transition
}

func (r *recorder) Observe(ctx context.Context, t events.Transition) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.all = append(r.all, t)
}

type fixture struct {
	db       *gorm.DB
	svc      *Service
	mem      *storage.Memory
	seen     *recorder
	admin    models.User
	customer models.User
	cat      models.Category
	sub      models.Subcategory
}

func setup(t *testing.T, store func(storage.Store) storage.Store) *fixture {
	db := dbtest.New(t)
	log, _ := test.NewNullLogger()
	mem := storage.NewMemory("/files")
	var s storage.Store = mem
	if store != nil {
		s = store(mem)
	}
	people := users.NewService(db, s, bcrypt.MinCost, nil, log)
	f := &fixture{db: db, mem: mem, seen: &recorder{}}
	f.svc = NewService(db, s, catalog.NewService(db, nil, log), people, f.seen, log)
	f.svc.now = func() time.Time { return time.Date(2026, 5, 4, 9, 0, 0, 0, time.UTC) }
	f.admin = dbtest.User(t, db, identity.Admin, "Root Admin")
	f.customer = dbtest.User(t, db, identity.Customer, "Asha Rao")
	f.cat, f.sub = dbtest.Pair(t, db, "Certificates", "Income",
		[]string{"Aadhaar", "Salary Slip"}, []string{"Annual Income", "Occupation"})
	return f
}

func (f *fixture) submission() Submission {
	return Submission{
		CategoryID:    f.cat.ID,
		SubcategoryID: f.sub.ID,
		Fields:        map[string]string{"Annual Income": "250000", "Occupation": " Nurse "},
		Files: []utils.UploadedFile{
			utils.FromBytes("Aadhaar", "aadhaar.pdf", []byte("%PDF-1.4 aadhaar")),
			utils.FromBytes("Salary Slip", "slip.pdf", []byte("%PDF-1.4 slip")),
		},
	}
}

func TestSubmitStoresPendingApplication(t *testing.T) {
	f := setup(t, nil)
	ctx := context.Background()

	app, err := f.svc.Submit(ctx, f.customer.Identity(), f.submission())
	require.NoError(t, err)

	assert.Equal(t, models.StatusPending, app.Status)
	assert.Equal(t, "APP2026000001", app.ApplicationID)
	assert.Equal(t, "Nurse", app.FieldValues.Data()["Occupation"])
	assert.Equal(t, f.customer.Name, app.Name)
	assert.Equal(t, f.customer.Phone, app.Phone)
	require.Len(t, app.Files, 2)
	assert.NotEmpty(t, app.Files[0].URL)
	assert.Len(t, f.mem.Keys(), 2)

	history, err := f.svc.History(ctx, f.customer.Identity(), app.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, events.ActionSubmit, history[0].Action)

	require.Len(t, f.seen.all, 1)
	assert.Equal(t, app.ApplicationID, f.seen.all[0].ApplicationID)

	second, err := f.svc.Submit(ctx, f.customer.Identity(), f.submission())
	require.NoError(t, err)
	assert.Equal(t, "APP2026000002", second.ApplicationID)
}

func TestSubmitValidation(t *testing.T) {
	f := setup(t, nil)
	ctx := context.Background()
	_, foreign := dbtest.Pair(t, f.db, "Transport", "Driving Licence", nil, nil)

	tests := []struct {
		name   string
		edit   func(*Submission)
		kind   apperror.Kind
		fields []string
	}{
		{
			name:   "blank field",
			edit:   func(s *Submission) { s.Fields["Occupation"] = "  " },
			kind:   apperror.KindValidation,
			fields: []string{"Occupation"},
		},
		{
			name:   "unknown field",
			edit:   func(s *Submission) { s.Fields["Caste"] = "General" },
			kind:   apperror.KindValidation,
			fields: []string{"Caste"},
		},
		{
			name:   "missing document",
			edit:   func(s *Submission) { s.Files = s.Files[:1] },
			kind:   apperror.KindValidation,
			fields: []string{"files.Salary Slip"},
		},
		{
			name: "duplicate document",
			edit: func(s *Submission) {
				s.Files = append(s.Files, utils.FromBytes("Aadhaar", "again.pdf", []byte("%PDF")))
			},
			kind:   apperror.KindValidation,
			fields: []string{"files.Aadhaar"},
		},
		{
			name: "executable upload",
			edit: func(s *Submission) {
				s.Files[1] = utils.FromBytes("Salary Slip", "slip.exe", []byte("MZ"))
			},
			kind: apperror.KindUnsupportedType,
		},
		{
			name: "oversized upload",
			edit: func(s *Submission) {
				s.Files[1] = utils.UploadedFile{Label: "Salary Slip", Name: "slip.pdf", Size: utils.MaxUploadSize + 1}
			},
			kind: apperror.KindFileTooLarge,
		},
		{
			name: "unknown category",
			edit: func(s *Submission) { s.CategoryID = 999 },
			kind: apperror.KindNotFound,
		},
		{
			name: "subcategory of another category",
			edit: func(s *Submission) { s.SubcategoryID = foreign.ID },
			kind: apperror.KindNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := f.submission()
			tt.edit(&in)
			_, err := f.svc.Submit(ctx, f.customer.Identity(), in)
			require.Equal(t, tt.kind, apperror.KindOf(err), "%v", err)
			if len(tt.fields) > 0 {
				var e *apperror.Error
				require.ErrorAs(t, err, &e)
				for _, k := range tt.fields {
					assert.Contains(t, e.Fields, k)
				}
			}
		})
	}

	var count int64
	f.db.Model(&models.Application{}).Count(&count)
	assert.Zero(t, count)
	assert.Empty(t, f.mem.Keys())
}

func TestSubmitGates(t *testing.T) {
	f := setup(t, nil)
	ctx := context.Background()

	_, err := f.svc.Submit(ctx, f.admin.Identity(), f.submission())
	assert.Equal(t, apperror.KindForbidden, apperror.KindOf(err))

	bare := dbtest.BareUser(t, f.db, identity.Customer, "New Customer")
	_, err = f.svc.Submit(ctx, bare.Identity(), f.submission())
	assert.Equal(t, apperror.KindProfileIncomplete, apperror.KindOf(err))
}

func TestSubmitRemovesBlobsWhenStorageFails(t *testing.T) {
	f := setup(t, func(s storage.Store) storage.Store { return storagetest.NewFlaky(s, 1) })

	_, err := f.svc.Submit(context.Background(), f.customer.Identity(), f.submission())
	require.ErrorIs(t, err, storagetest.ErrInjected)

	assert.Empty(t, f.mem.Keys())
	var count int64
	f.db.Model(&models.Application{}).Count(&count)
	assert.Zero(t, count)
	f.db.Model(&models.ApplicationFile{}).Count(&count)
	assert.Zero(t, count)
	assert.Empty(t, f.seen.all)
}

func TestGetIsRoleFiltered(t *testing.T) {
	f := setup(t, nil)
	ctx := context.Background()
	app, err := f.svc.Submit(ctx, f.customer.Identity(), f.submission())
	require.NoError(t, err)

	other := dbtest.User(t, f.db, identity.Customer, "Other Customer")
	distributor := dbtest.User(t, f.db, identity.Distributor, "Dev Kumar")

	_, err = f.svc.Get(ctx, other.Identity(), app.ID)
	assert.Equal(t, apperror.KindForbidden, apperror.KindOf(err))
	_, err = f.svc.Get(ctx, distributor.Identity(), app.ID)
	assert.Equal(t, apperror.KindForbidden, apperror.KindOf(err))

	got, err := f.svc.Get(ctx, f.admin.Identity(), app.ID)
	require.NoError(t, err)
	assert.Equal(t, "Income", got.Subcategory.Name)

	_, err = f.svc.Get(ctx, f.admin.Identity(), 4242)
	assert.Equal(t, apperror.KindNotFound, apperror.KindOf(err))
}

func TestListScopesAndSearch(t *testing.T) {
	f := setup(t, nil)
	ctx := context.Background()
	other := dbtest.User(t, f.db, identity.Customer, "Other Customer")

	mine := f.submission()
	mine.Name = "Asha Rab"
	mine.Email = "cd@example.com"
	_, err := f.svc.Submit(ctx, f.customer.Identity(), mine)
	require.NoError(t, err)
	_, err = f.svc.Submit(ctx, other.Identity(), f.submission())
	require.NoError(t, err)

	list, total, err := f.svc.List(ctx, f.customer.Identity(), Filter{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, f.customer.ID, list[0].OwnerID)

	_, total, err = f.svc.List(ctx, f.admin.Identity(), Filter{})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)

	_, total, err = f.svc.List(ctx, f.admin.Identity(), Filter{Search: "ASHA rab"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)

	// A match may not straddle the name and email fields.
	_, total, err = f.svc.List(ctx, f.admin.Identity(), Filter{Search: "rabcd"})
	require.NoError(t, err)
	assert.Zero(t, total)

	_, total, err = f.svc.List(ctx, f.admin.Identity(), Filter{Search: "income"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)

	page, total, err := f.svc.List(ctx, f.admin.Identity(), Filter{Page: 2, Limit: 1})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, page, 1)

	distributor := dbtest.User(t, f.db, identity.Distributor, "Dev Kumar")
	_, total, err = f.svc.List(ctx, distributor.Identity(), Filter{Unassigned: true})
	require.NoError(t, err)
	assert.Zero(t, total)

	counts, err := StatusCounts(f.db, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(2), counts[models.StatusPending])
	assert.Zero(t, counts[models.StatusCompleted])
	assert.Len(t, counts, len(models.ApplicationStatuses))
}

func TestNextApplicationIDRestartsEachYear(t *testing.T) {
	db := dbtest.New(t)
	var ids []string
	for _, year := range []int{2025, 2025, 2026} {
		require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
			id, err := NextApplicationID(tx, time.Date(year, 1, 1, 0, 0, 0, 0, time.UTC))
			ids = append(ids, id)
			return err
		}))
	}
	assert.Equal(t, []string{"APP2025000001", "APP2025000002", "APP2026000001"}, ids)
}

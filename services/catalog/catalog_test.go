package catalog

import (
	"context"
	"sync"
	"testing"
	"time"

	"govdocs/apperror"
	"govdocs/database/dbtest"
	"govdocs/identity"
	"govdocs/models"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mapCache struct {
	mu   sync.Mutex
	data map[string]string
}

func newMapCache() *mapCache { return &mapCache{data: map[string]string{}} }

func (m *mapCache) Get(ctx context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.data[key], nil
}

func (m *mapCache) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func (m *mapCache) Delete(ctx context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.data, k)
	}
	return nil
}

func (m *mapCache) Close() error { return nil }

var (
	admin    = identity.Identity{UserID: 1, Role: identity.Admin}
	customer = identity.Identity{UserID: 2, Role: identity.Customer}
)

func newService(t *testing.T) (*Service, *mapCache) {
	db := dbtest.New(t)
	log, _ := test.NewNullLogger()
	c := newMapCache()
	return NewService(db, c, log), c
}

func TestCategoryNamesAreUniqueIgnoringCase(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	_, err := svc.CreateCategory(ctx, admin, "Certificates")
	require.NoError(t, err)

	_, err = svc.CreateCategory(ctx, admin, "  certificates ")
	assert.Equal(t, apperror.KindDuplicateName, apperror.KindOf(err))

	_, err = svc.CreateCategory(ctx, admin, "   ")
	assert.Equal(t, apperror.KindValidation, apperror.KindOf(err))

	_, err = svc.CreateCategory(ctx, customer, "Licences")
	assert.Equal(t, apperror.KindForbidden, apperror.KindOf(err))
}

func TestSubcategoryNamesAreScopedToCategory(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	certs, err := svc.CreateCategory(ctx, admin, "Certificates")
	require.NoError(t, err)
	licences, err := svc.CreateCategory(ctx, admin, "Licences")
	require.NoError(t, err)

	_, err = svc.CreateSubcategory(ctx, admin, certs.ID, "Income")
	require.NoError(t, err)
	_, err = svc.CreateSubcategory(ctx, admin, licences.ID, "Income")
	assert.NoError(t, err)
	_, err = svc.CreateSubcategory(ctx, admin, certs.ID, "INCOME")
	assert.Equal(t, apperror.KindDuplicateName, apperror.KindOf(err))
	_, err = svc.CreateSubcategory(ctx, admin, 999, "Caste")
	assert.Equal(t, apperror.KindNotFound, apperror.KindOf(err))
}

func TestRequirementsReplaceWholeList(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	c, err := svc.CreateCategory(ctx, admin, "Certificates")
	require.NoError(t, err)
	sc, err := svc.CreateSubcategory(ctx, admin, c.ID, "Income")
	require.NoError(t, err)

	r, err := svc.Requirements(ctx, c.ID, sc.ID)
	require.NoError(t, err)
	assert.Empty(t, r.Documents)
	assert.Empty(t, r.Fields)

	_, err = svc.DefineRequiredDocuments(ctx, admin, c.ID, sc.ID, []string{"Aadhaar", " Ration Card "})
	require.NoError(t, err)
	r, err = svc.DefineRequiredDocuments(ctx, admin, c.ID, sc.ID, []string{"Aadhaar", "Salary Slip"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Aadhaar", "Salary Slip"}, r.Documents)

	r, err = svc.DefineRequiredFields(ctx, admin, c.ID, sc.ID, []string{"Annual Income"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Annual Income"}, r.Fields)
	assert.Equal(t, "Certificates", r.CategoryName)
	assert.Equal(t, "Income", r.SubcategoryName)

	_, err = svc.DefineRequiredDocuments(ctx, admin, c.ID, sc.ID, []string{"Aadhaar", "aadhaar"})
	assert.Equal(t, apperror.KindValidation, apperror.KindOf(err))

	all, err := svc.ListRequirements(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, sc.ID, all[0].SubcategoryID)
}

func TestRequirementsRejectMismatchedPair(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	a, _ := svc.CreateCategory(ctx, admin, "A")
	b, _ := svc.CreateCategory(ctx, admin, "B")
	sb, err := svc.CreateSubcategory(ctx, admin, b.ID, "Only in B")
	require.NoError(t, err)

	_, err = svc.DefineRequiredFields(ctx, admin, a.ID, sb.ID, []string{"Name"})
	assert.Equal(t, apperror.KindNotFound, apperror.KindOf(err))
}

func TestRenameInvalidatesCachedReads(t *testing.T) {
	svc, c := newService(t)
	ctx := context.Background()
	cat, err := svc.CreateCategory(ctx, admin, "Certificats")
	require.NoError(t, err)

	list, err := svc.ListCategories(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.NotEmpty(t, c.data[keyCategories])

	_, err = svc.RenameCategory(ctx, admin, cat.ID, "Certificates")
	require.NoError(t, err)
	assert.Empty(t, c.data[keyCategories])

	list, err = svc.ListCategories(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Certificates", list[0].Name)
}

func TestRenameCategoryRefreshesCachedRequirements(t *testing.T) {
	svc, c := newService(t)
	ctx := context.Background()
	cat, err := svc.CreateCategory(ctx, admin, "Revenu")
	require.NoError(t, err)
	sub, err := svc.CreateSubcategory(ctx, admin, cat.ID, "Income Certificate")
	require.NoError(t, err)
	_, err = svc.DefineRequiredDocuments(ctx, admin, cat.ID, sub.ID, []string{"Salary Slip"})
	require.NoError(t, err)

	got, err := svc.Requirements(ctx, cat.ID, sub.ID)
	require.NoError(t, err)
	require.Equal(t, "Revenu", got.CategoryName)
	assert.NotEmpty(t, c.data[keyRequirements(cat.ID, sub.ID)])

	_, err = svc.RenameCategory(ctx, admin, cat.ID, "Revenue")
	require.NoError(t, err)
	assert.Empty(t, c.data[keyRequirements(cat.ID, sub.ID)])

	got, err = svc.Requirements(ctx, cat.ID, sub.ID)
	require.NoError(t, err)
	assert.Equal(t, "Revenue", got.CategoryName)
}

func TestDeleteCategoryRefusedWhileReferenced(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	owner := dbtest.User(t, svc.db, identity.Customer, "Asha Rao")
	c, sc := dbtest.Pair(t, svc.db, "Certificates", "Income", []string{"Aadhaar"}, nil)

	require.NoError(t, svc.db.Create(&models.Application{
		ApplicationID: "APP2026000001",
		OwnerID:       owner.ID,
		CategoryID:    c.ID,
		SubcategoryID: sc.ID,
		Status:        models.StatusPending,
		Version:       1,
	}).Error)

	err := svc.DeleteCategory(ctx, admin, c.ID)
	assert.Equal(t, apperror.KindInUse, apperror.KindOf(err))
	err = svc.DeleteSubcategory(ctx, admin, sc.ID)
	assert.Equal(t, apperror.KindInUse, apperror.KindOf(err))

	other, otherSub := dbtest.Pair(t, svc.db, "Licences", "Driving", []string{"Photo"}, []string{"Blood Group"})
	require.NoError(t, svc.DeleteCategory(ctx, admin, other.ID))
	_, err = svc.Requirements(ctx, other.ID, otherSub.ID)
	assert.Equal(t, apperror.KindNotFound, apperror.KindOf(err))
}

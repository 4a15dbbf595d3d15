package dashboard

import (
	"context"
	"testing"
	"time"

	"govdocs/database/dbtest"
	"govdocs/identity"
	"govdocs/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatsAreScopedByRole(t *testing.T) {
	db := dbtest.New(t)
	svc := NewService(db)
	// Wednesday; the week starts on Sunday 2026-05-10.
	today := time.Date(2026, 5, 13, 12, 0, 0, 0, time.UTC)
	svc.clock = func() time.Time { return today }

	admin := dbtest.User(t, db, identity.Admin, "Root Admin")
	asha := dbtest.User(t, db, identity.Customer, "Asha Rao")
	ravi := dbtest.User(t, db, identity.Customer, "Ravi Iyer")
	dev := dbtest.User(t, db, identity.Distributor, "Dev Kumar")
	certs, income := dbtest.Pair(t, db, "Certificates", "Income", nil, nil)
	licences, driving := dbtest.Pair(t, db, "Licences", "Driving", nil, nil)

	seq := 0
	add := func(owner models.User, cat models.Category, sub models.Subcategory, status models.ApplicationStatus, distributor *uint, created, updated time.Time) models.Application {
		seq++
		app := models.Application{
			ApplicationID: "APP2026" + string(rune('A'+seq)),
			OwnerID:       owner.ID,
			CategoryID:    cat.ID,
			SubcategoryID: sub.ID,
			Status:        status,
			DistributorID: distributor,
			Version:       1,
			CreatedAt:     created,
			UpdatedAt:     updated,
		}
		require.NoError(t, db.Create(&app).Error)
		return app
	}

	lastMonth := time.Date(2026, 4, 20, 9, 0, 0, 0, time.UTC)
	monday := time.Date(2026, 5, 11, 9, 0, 0, 0, time.UTC)
	early := time.Date(2026, 5, 2, 9, 0, 0, 0, time.UTC)

	done := add(asha, certs, income, models.StatusCompleted, &dev.ID, lastMonth, monday)
	add(asha, certs, income, models.StatusPending, nil, monday, monday)
	add(ravi, licences, driving, models.StatusApproved, &dev.ID, early, early)
	add(ravi, licences, driving, models.StatusCompleted, nil, lastMonth, early)

	require.NoError(t, db.Create(&models.ErrorRequest{
		DocumentID: done.ID, RaisedBy: asha.ID, DistributorID: &dev.ID,
		Description: "Wrong name", Status: models.ErrorRequestPending, Version: 1,
	}).Error)

	ctx := context.Background()

	st, err := svc.Stats(ctx, admin.Identity())
	require.NoError(t, err)
	assert.Equal(t, int64(4), st.Applications)
	assert.Equal(t, int64(2), st.ThisMonth)
	assert.Equal(t, int64(1), st.CompletedThisWeek)
	assert.Equal(t, int64(2), st.ByStatus[models.StatusCompleted])
	assert.Equal(t, int64(0), st.ByStatus[models.StatusRejected])
	assert.Equal(t, int64(2), st.Customers)
	assert.Equal(t, int64(1), st.Distributors)
	assert.Equal(t, int64(2), st.Categories)
	assert.Equal(t, int64(1), st.OpenErrorRequests)
	require.Len(t, st.ByCategory, 2)

	st, err = svc.Stats(ctx, asha.Identity())
	require.NoError(t, err)
	assert.Equal(t, int64(2), st.Applications)
	assert.Equal(t, int64(1), st.ThisMonth, "completions this month")
	assert.Equal(t, int64(1), st.OpenErrorRequests)
	assert.Zero(t, st.Customers)
	require.Len(t, st.ByCategory, 1)
	assert.Equal(t, "Certificates", st.ByCategory[0].Name)

	st, err = svc.Stats(ctx, dev.Identity())
	require.NoError(t, err)
	assert.Equal(t, int64(2), st.Applications)
	assert.Equal(t, int64(1), st.ByStatus[models.StatusApproved])
	assert.Equal(t, int64(1), st.CompletedThisWeek)
	assert.Equal(t, int64(1), st.OpenErrorRequests)

	st, err = svc.Stats(ctx, ravi.Identity())
	require.NoError(t, err)
	assert.Equal(t, int64(1), st.ThisMonth)
	assert.Zero(t, st.CompletedThisWeek)
	assert.Zero(t, st.OpenErrorRequests)
}

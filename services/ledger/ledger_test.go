package ledger

import (
	"context"
	"strings"
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

var (
	admin       = identity.Identity{UserID: 1, Role: identity.Admin}
	customer    = identity.Identity{UserID: 2, Role: identity.Customer}
	distributor = identity.Identity{UserID: 3, Role: identity.Distributor}
)

func newService(t *testing.T) *Service {
	log, _ := test.NewNullLogger()
	return NewService(dbtest.New(t), log)
}

func TestNotificationStatusToggleIsIdempotent(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	n, err := svc.PostNotification(ctx, admin, NotificationInput{DistributorText: "Office closed Friday"})
	require.NoError(t, err)
	assert.Equal(t, models.NotificationActive, n.Status)

	for i := 0; i < 2; i++ {
		got, err := svc.SetNotificationStatus(ctx, admin, n.ID, models.NotificationInactive)
		require.NoError(t, err)
		assert.Equal(t, models.NotificationInactive, got.Status)
	}
	got, err := svc.SetNotificationStatus(ctx, admin, n.ID, models.NotificationActive)
	require.NoError(t, err)
	assert.Equal(t, models.NotificationActive, got.Status)

	_, err = svc.SetNotificationStatus(ctx, admin, n.ID, "Paused")
	assert.Equal(t, apperror.KindValidation, apperror.KindOf(err))
	_, err = svc.SetNotificationStatus(ctx, customer, n.ID, models.NotificationInactive)
	assert.Equal(t, apperror.KindForbidden, apperror.KindOf(err))
	_, err = svc.SetNotificationStatus(ctx, admin, 404, models.NotificationInactive)
	assert.Equal(t, apperror.KindNotFound, apperror.KindOf(err))
}

func TestActiveNoticesPerRole(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	older := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	_, err := svc.PostNotification(ctx, admin, NotificationInput{CustomerText: "New fee schedule", Date: &older})
	require.NoError(t, err)
	both, err := svc.PostNotification(ctx, admin, NotificationInput{DistributorText: "Upload by 5pm", CustomerText: "Expect delays"})
	require.NoError(t, err)
	hidden, err := svc.PostNotification(ctx, admin, NotificationInput{CustomerText: "Hidden"})
	require.NoError(t, err)
	_, err = svc.SetNotificationStatus(ctx, admin, hidden.ID, models.NotificationInactive)
	require.NoError(t, err)

	forCustomer, err := svc.ActiveNotices(ctx, customer)
	require.NoError(t, err)
	require.Len(t, forCustomer, 2)
	assert.Equal(t, "Expect delays", forCustomer[0].Text)
	assert.Equal(t, "New fee schedule", forCustomer[1].Text)

	forDistributor, err := svc.ActiveNotices(ctx, distributor)
	require.NoError(t, err)
	require.Len(t, forDistributor, 1)
	assert.Equal(t, both.ID, forDistributor[0].ID)

	_, err = svc.PostNotification(ctx, admin, NotificationInput{DistributorText: " ", CustomerText: ""})
	assert.Equal(t, apperror.KindValidation, apperror.KindOf(err))

	updated, err := svc.UpdateNotification(ctx, admin, both.ID, NotificationInput{DistributorText: "Upload by 6pm"})
	require.NoError(t, err)
	assert.Equal(t, "", updated.CustomerText)

	require.NoError(t, svc.DeleteNotification(ctx, admin, both.ID))
	assert.Equal(t, apperror.KindNotFound, apperror.KindOf(svc.DeleteNotification(ctx, admin, both.ID)))

	list, total, err := svc.ListNotifications(ctx, admin, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, list, 2)
}

func TestFeedbackRating(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()
	author := dbtest.User(t, svc.db, identity.Customer, "Asha Rao")

	for _, rating := range []int{0, 6, -1} {
		_, err := svc.PostFeedback(ctx, author.Identity(), rating, "")
		assert.Equal(t, apperror.KindValidation, apperror.KindOf(err), "rating %d", rating)
	}
	_, err := svc.PostFeedback(ctx, author.Identity(), 3, strings.Repeat("x", maxCommentLength+1))
	assert.Equal(t, apperror.KindValidation, apperror.KindOf(err))
	_, err = svc.PostFeedback(ctx, admin, 5, "")
	assert.Equal(t, apperror.KindForbidden, apperror.KindOf(err))

	for _, rating := range []int{1, 5} {
		_, err := svc.PostFeedback(ctx, author.Identity(), rating, "  Quick service  ")
		require.NoError(t, err)
	}

	_, _, err = svc.ListFeedback(ctx, author.Identity(), 1, 10)
	assert.Equal(t, apperror.KindForbidden, apperror.KindOf(err))

	list, total, err := svc.ListFeedback(ctx, admin, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Equal(t, "Quick service", list[0].Comment)
	require.NotNil(t, list[0].User)
	assert.Equal(t, author.Name, list[0].User.Name)
}

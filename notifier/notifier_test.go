package notifier

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"govdocs/database/dbtest"
	"govdocs/events"
	"govdocs/identity"
	"govdocs/models"
	"govdocs/utils"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type outbox struct {
	mu    sync.Mutex
	mails []string
	texts []string
	fail  error
}

func (o *outbox) SendEmail(ctx context.Context, toName, toEmail string, msg utils.Email) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.fail != nil {
		return o.fail
	}
	o.mails = append(o.mails, toEmail+"|"+msg.Subject)
	return nil
}

func (o *outbox) SendSMS(ctx context.Context, phone, text string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.texts = append(o.texts, phone+"|"+text)
	return nil
}

func (o *outbox) sent() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]string(nil), o.mails...)
}

func TestObserveRoutesByTransition(t *testing.T) {
	db := dbtest.New(t)
	log, _ := test.NewNullLogger()
	box := &outbox{}
	n := New(db, box, box, log)

	owner := dbtest.User(t, db, identity.Customer, "Asha Rao")
	dist := dbtest.User(t, db, identity.Distributor, "Dev Kumar")
	c, sc := dbtest.Pair(t, db, "Certificates", "Income", nil, nil)
	app := models.Application{ApplicationID: "APP2026000003", OwnerID: owner.ID, CategoryID: c.ID, SubcategoryID: sc.ID, Status: models.StatusApproved, Version: 1}
	require.NoError(t, db.Create(&app).Error)
	ctx := context.Background()

	n.Observe(ctx, events.Transition{
		Entity: events.EntityApplication, Action: events.ActionReject, DocumentID: app.ID,
		ApplicationID: app.ApplicationID, To: "Rejected", OwnerID: owner.ID, Reason: "Blurry",
	})
	n.Observe(ctx, events.Transition{
		Entity: events.EntityApplication, Action: events.ActionAssign, DocumentID: app.ID,
		ApplicationID: app.ApplicationID, To: "Approved", OwnerID: owner.ID, DistributorID: &dist.ID,
	})
	n.Observe(ctx, events.Transition{
		Entity: events.EntityErrorRequest, Action: events.ActionApprove, DocumentID: app.ID,
		ApplicationID: app.ApplicationID, To: "Approved", OwnerID: owner.ID,
	})
	n.Observe(ctx, events.Transition{
		Entity: events.EntityErrorRequest, Action: events.ActionRaise, DocumentID: app.ID,
		ApplicationID: app.ApplicationID, To: "Pending", OwnerID: owner.ID, DistributorID: &dist.ID,
	})
	n.Observe(ctx, events.Transition{
		Entity: events.EntityErrorRequest, Action: events.ActionAssign, DocumentID: app.ID,
		ApplicationID: app.ApplicationID, To: "Approved", OwnerID: owner.ID, DistributorID: &dist.ID,
	})
	// Unknown recipients are skipped.
	n.Observe(ctx, events.Transition{Entity: events.EntityApplication, Action: events.ActionApprove, OwnerID: 999})

	assert.Equal(t, []string{
		owner.Email + "|Application APP2026000003: Rejected",
		dist.Email + "|New assignment: APP2026000003",
		owner.Email + "|Correction request for APP2026000003: Approved",
		dist.Email + "|Correction request assigned: APP2026000003",
		owner.Email + "|Correction request for APP2026000003: Pending",
		dist.Email + "|Correction request assigned: APP2026000003",
	}, box.sent())
	assert.Equal(t, []string{owner.Phone + "|Application APP2026000003 is now Rejected."}, box.texts)
}

func TestWelcomeIsAsynchronous(t *testing.T) {
	db := dbtest.New(t)
	log, _ := test.NewNullLogger()
	box := &outbox{}
	n := New(db, box, nil, log)

	ctx, cancel := context.WithCancel(context.Background())
	n.Welcome(ctx, models.User{Name: "Asha", Email: "asha@example.com", Role: identity.Customer})
	cancel()

	assert.Eventually(t, func() bool { return len(box.sent()) == 1 }, time.Second, 10*time.Millisecond)
}

func TestDigestReturnsDeliveryError(t *testing.T) {
	db := dbtest.New(t)
	log, _ := test.NewNullLogger()
	box := &outbox{fail: errors.New("smtp down")}
	n := New(db, box, nil, log)

	err := n.Digest(context.Background(), models.User{Name: "Root", Email: "root@example.com"}, []utils.PendingDigestLine{{ApplicationID: "APP1"}})
	assert.Error(t, err)
	assert.NoError(t, n.Digest(context.Background(), models.User{Name: "No Mail"}, nil))
}

func TestRestySMSSender(t *testing.T) {
	var got string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.URL.Query().Get("numbers") + "|" + r.URL.Query().Get("message")
		if r.URL.Query().Get("authorization") != "key" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Write([]byte(`{"return":true}`))
	}))
	defer srv.Close()

	require.NoError(t, NewRestySMSSender(srv.URL, "key").SendSMS(context.Background(), "9876543210", "hello"))
	assert.Equal(t, "9876543210|hello", got)
	assert.Error(t, NewRestySMSSender(srv.URL, "wrong").SendSMS(context.Background(), "9876543210", "hello"))
}

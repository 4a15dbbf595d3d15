// Package notifier tells applicants and distributors about workflow changes
// by email and SMS. Outbound calls go through a circuit breaker so a dead
// provider cannot slow down request handling.
package notifier

import (
	"context"
	"fmt"
	"time"

	"govdocs/events"
	"govdocs/models"
	"govdocs/utils"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
	"gorm.io/gorm"
)

type Notifier struct {
	db      *gorm.DB
	email   EmailSender
	sms     SMSSender
	breaker *gobreaker.CircuitBreaker
	logger  *logrus.Entry
}

func New(db *gorm.DB, email EmailSender, sms SMSSender, log *logrus.Logger) *Notifier {
	entry := log.WithField("component", "notifier")
	if email == nil {
		email = LogSender{Logger: entry}
	}
	if sms == nil {
		sms = LogSender{Logger: entry}
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "notifier",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			entry.WithFields(logrus.Fields{
				"circuit_breaker": name,
				"from":            from.String(),
				"to":              to.String(),
			}).Warn("Circuit breaker state changed")
		},
	})

	return &Notifier{db: db, email: email, sms: sms, breaker: breaker, logger: entry}
}

// Observe implements events.Observer.
func (n *Notifier) Observe(ctx context.Context, t events.Transition) {
	switch {
	case t.Entity == events.EntityApplication && t.Action == events.ActionAssign:
		if t.DistributorID == nil {
			return
		}
		dist, err := n.user(ctx, *t.DistributorID)
		if err != nil {
			return
		}
		var app models.Application
		category := ""
		if err := n.db.WithContext(ctx).Preload("Category").First(&app, t.DocumentID).Error; err == nil && app.Category != nil {
			category = app.Category.Name
		}
		n.deliver(ctx, dist, utils.AssignmentEmail(dist.Name, t.ApplicationID, category))

	case t.Entity == events.EntityApplication:
		owner, err := n.user(ctx, t.OwnerID)
		if err != nil {
			return
		}
		msg := utils.ApplicationStatusEmail(owner.Name, t.ApplicationID, t.To, t.Reason)
		n.deliver(ctx, owner, msg)
		n.text(ctx, owner, fmt.Sprintf("Application %s is now %s.", t.ApplicationID, t.To))

	case t.Entity == events.EntityErrorRequest && t.Action == events.ActionAssign:
		n.routedRequest(ctx, t)

	case t.Entity == events.EntityErrorRequest:
		if t.Action == events.ActionRaise {
			n.routedRequest(ctx, t)
		}
		owner, err := n.user(ctx, t.OwnerID)
		if err != nil {
			return
		}
		n.deliver(ctx, owner, utils.ErrorRequestEmail(owner.Name, t.ApplicationID, t.To, t.Reason))
	}
}

// routedRequest tells the distributor a correction request now waits on them.
func (n *Notifier) routedRequest(ctx context.Context, t events.Transition) {
	if t.DistributorID == nil {
		return
	}
	dist, err := n.user(ctx, *t.DistributorID)
	if err != nil {
		return
	}
	n.deliver(ctx, dist, utils.ErrorRequestAssignmentEmail(dist.Name, t.ApplicationID))
}

// Welcome greets a newly registered user. It returns immediately.
func (n *Notifier) Welcome(ctx context.Context, u models.User) {
	go n.deliver(context.WithoutCancel(ctx), u, utils.WelcomeEmail(u.Name, string(u.Role)))
}

// Digest sends the pending-work reminder; the error is returned so the
// scheduler can count failures.
func (n *Notifier) Digest(ctx context.Context, u models.User, lines []utils.PendingDigestLine) error {
	return n.send(ctx, u, utils.PendingDigestEmail(u.Name, lines))
}

func (n *Notifier) user(ctx context.Context, id uint) (models.User, error) {
	var u models.User
	if err := n.db.WithContext(ctx).First(&u, id).Error; err != nil {
		n.logger.WithError(err).WithField("user_id", id).Warn("Notification recipient not found")
		return u, err
	}
	return u, nil
}

func (n *Notifier) deliver(ctx context.Context, u models.User, msg utils.Email) {
	if err := n.send(ctx, u, msg); err != nil {
		n.logger.WithError(err).WithFields(logrus.Fields{
			"user_id": u.ID,
			"subject": msg.Subject,
		}).Warn("Failed to send email")
	}
}

func (n *Notifier) send(ctx context.Context, u models.User, msg utils.Email) error {
	if u.Email == "" {
		return nil
	}
	_, err := n.breaker.Execute(func() (interface{}, error) {
		return nil, n.email.SendEmail(ctx, u.Name, u.Email, msg)
	})
	return err
}

func (n *Notifier) text(ctx context.Context, u models.User, body string) {
	if u.Phone == "" {
		return
	}
	_, err := n.breaker.Execute(func() (interface{}, error) {
		return nil, n.sms.SendSMS(ctx, u.Phone, body)
	})
	if err != nil {
		n.logger.WithError(err).WithField("user_id", u.ID).Warn("Failed to send SMS")
	}
}

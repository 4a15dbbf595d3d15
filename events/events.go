// Package events describes workflow transitions after they commit and fans
// them out to observers (message bus, mail, metrics).
package events

import (
	"context"
	"strings"
	"time"
)

const (
	EntityApplication  = "application"
	EntityErrorRequest = "error_request"
)

// Actions recorded on transitions.
const (
	ActionSubmit            = "submit"
	ActionApprove           = "approve"
	ActionReject            = "reject"
	ActionAssign            = "assign"
	ActionUpload            = "upload"
	ActionDistributorReject = "distributor_reject"
	ActionComplete          = "complete"
	ActionRaise             = "raise"
)

type Transition struct {
	Entity        string    `json:"entity"`
	ID            uint      `json:"id"`
	DocumentID    uint      `json:"document_id"`
	ApplicationID string    `json:"application_id"`
	Action        string    `json:"action"`
	From          string    `json:"from"`
	To            string    `json:"to"`
	ActorID       uint      `json:"actor_id"`
	ActorRole     string    `json:"actor_role"`
	OwnerID       uint      `json:"owner_id"`
	DistributorID *uint     `json:"distributor_id,omitempty"`
	Reason        string    `json:"reason,omitempty"`
	At            time.Time `json:"at"`
}

// Subject is the bus subject for the transition, e.g. govdocs.application.approve.
func (t Transition) Subject() string {
	return "govdocs." + t.Entity + "." + strings.ReplaceAll(t.Action, " ", "_")
}

// Observer is told about transitions after commit. Implementations must not
// fail the caller; they log their own errors.
type Observer interface {
	Observe(ctx context.Context, t Transition)
}

type ObserverFunc func(ctx context.Context, t Transition)

func (f ObserverFunc) Observe(ctx context.Context, t Transition) { f(ctx, t) }

// Observers fans a transition out in order.
type Observers []Observer

func (o Observers) Observe(ctx context.Context, t Transition) {
	for _, obs := range o {
		if obs != nil {
			obs.Observe(ctx, t)
		}
	}
}

// Nop discards transitions.
var Nop Observer = ObserverFunc(func(context.Context, Transition) {})

// Async delivers to o on its own goroutine so slow observers never hold up
// the caller. The context keeps its values but not its cancellation.
func Async(o Observer) Observer {
	return ObserverFunc(func(ctx context.Context, t Transition) {
		ctx = context.WithoutCancel(ctx)
		go o.Observe(ctx, t)
	})
}

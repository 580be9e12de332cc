// Package docrequest models the registrar's document request lifecycle:
// pricing, reference formats and the legal status transitions. It is pure;
// persistence and notification live in the application layer.
package docrequest

import (
	"fmt"
	"time"
)

// Status is the fulfillment state of a document request.
type Status string

const (
	StatusPendingPayment Status = "pending_payment"
	StatusPaid           Status = "paid"
	StatusProcessing     Status = "processing"
	StatusReadyForPickup Status = "ready_for_pickup"
	StatusReleased       Status = "released"
	StatusCancelled      Status = "cancelled"
	StatusPaymentExpired Status = "payment_expired"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusPendingPayment, StatusPaid, StatusProcessing, StatusReadyForPickup,
		StatusReleased, StatusCancelled, StatusPaymentExpired:
		return true
	}
	return false
}

// Action is an operation an actor attempts on a request.
type Action string

const (
	ActionConfirmPayment  Action = "confirm_payment"
	ActionBeginProcessing Action = "begin_processing"
	ActionMarkReady       Action = "mark_ready"
	ActionRelease         Action = "release"
	ActionEdit            Action = "edit"
	ActionExpire          Action = "expire"
	ActionCancel          Action = "cancel"
	ActionDelete          Action = "delete"
	// ActionGenerate renders the document; it does not change status.
	ActionGenerate Action = "generate_document"
)

// PaymentWindow is how long a new request waits for payment.
const PaymentWindow = 48 * time.Hour

// StatusDeleted is the pseudo-status returned for an allowed delete.
const StatusDeleted Status = ""

var transitions = map[Status]map[Action]Status{
	StatusPendingPayment: {
		ActionConfirmPayment: StatusPaid,
		ActionEdit:           StatusPendingPayment,
		ActionExpire:         StatusPaymentExpired,
		ActionCancel:         StatusCancelled,
		ActionDelete:         StatusDeleted,
	},
	StatusPaid: {
		ActionBeginProcessing: StatusProcessing,
		ActionCancel:          StatusCancelled,
	},
	StatusProcessing: {
		ActionMarkReady: StatusReadyForPickup,
		ActionCancel:    StatusCancelled,
	},
	StatusReadyForPickup: {
		ActionRelease: StatusReleased,
		ActionCancel:  StatusCancelled,
	},
	StatusPaymentExpired: {
		ActionDelete: StatusDeleted,
	},
	StatusCancelled: {
		ActionDelete: StatusDeleted,
	},
}

// staffOnlyCancel lists the states from which only staff may cancel.
var staffOnlyCancel = map[Status]bool{
	StatusPaid:           true,
	StatusProcessing:     true,
	StatusReadyForPickup: true,
}

// InvalidTransitionError reports an action that is not legal from the
// request's current status.
type InvalidTransitionError struct {
	From   Status
	Action Action
	Reason string
}

// Error implements the error interface.
func (e *InvalidTransitionError) Error() string {
	if e == nil {
		return ""
	}
	msg := fmt.Sprintf("docrequest: cannot %s a request that is %s", e.Action, e.From)
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}

// Transition returns the status that follows action from current.
func Transition(current Status, action Action) (Status, error) {
	next, ok := transitions[current][action]
	if !ok {
		return current, &InvalidTransitionError{From: current, Action: action}
	}
	return next, nil
}

// CanCancel reports whether the actor may cancel a request in status.
// Requesters may only withdraw unpaid requests; later states are a staff
// override.
func CanCancel(status Status, staff bool) bool {
	if _, ok := transitions[status][ActionCancel]; !ok {
		return false
	}
	return staff || !staffOnlyCancel[status]
}

// CheckGenerate reports whether the document may be rendered for a request
// in status. Rendering is allowed once the request is being processed.
func CheckGenerate(status Status) error {
	switch status {
	case StatusProcessing, StatusReadyForPickup, StatusReleased:
		return nil
	}
	return &InvalidTransitionError{From: status, Action: ActionGenerate, Reason: "document is generated only after processing starts"}
}

// EffectiveStatus evaluates the payment deadline lazily: an unpaid request
// past its deadline reads as payment_expired.
func EffectiveStatus(req Request, now time.Time) Status {
	if req.Status == StatusPendingPayment && !req.PaymentDeadline.IsZero() && !now.Before(req.PaymentDeadline) {
		return StatusPaymentExpired
	}
	return req.Status
}

// Apply performs action on req at now and stamps the matching timestamp. The
// returned request is a copy; req is never modified. Actions are evaluated
// against the effective status so nothing but delete succeeds after the
// payment deadline.
func Apply(req Request, action Action, now time.Time) (Request, error) {
	current := EffectiveStatus(req, now)
	if action == ActionExpire && req.Status == StatusPendingPayment {
		if current == StatusPendingPayment {
			return req, &InvalidTransitionError{From: current, Action: action, Reason: "payment deadline has not passed"}
		}
		current = StatusPendingPayment
	}

	next, ok := transitions[current][action]
	if !ok {
		tErr := &InvalidTransitionError{From: current, Action: action}
		if current != req.Status {
			tErr.Reason = "payment deadline has passed"
		}
		return req, tErr
	}

	updated := req
	updated.Status = next
	updated.UpdatedAt = now
	updated.Version = req.Version + 1
	switch action {
	case ActionConfirmPayment:
		updated.PaidAt = timePtr(now)
	case ActionBeginProcessing:
		updated.ProcessedAt = timePtr(now)
	case ActionMarkReady:
		updated.ReadyAt = timePtr(now)
	case ActionRelease:
		updated.ReleasedAt = timePtr(now)
	case ActionCancel:
		updated.CancelledAt = timePtr(now)
	}
	return updated, nil
}

func timePtr(t time.Time) *time.Time {
	return &t
}

package persistence

import (
	"context"
	"time"

	"github.com/example/campus-portal/internal/docrequest"
	"github.com/example/campus-portal/internal/scholarship"
)

// DocumentRequestRepository stores registrar document requests.
type DocumentRequestRepository interface {
	// CreateRequest stores the request together with its pending payment.
	CreateRequest(ctx context.Context, req docrequest.Request, payment docrequest.Payment) error
	GetRequest(ctx context.Context, id string) (docrequest.Request, error)
	ListRequests(ctx context.Context, filter RequestFilter) ([]docrequest.Request, error)
	// UpdateRequest writes req only if the stored status still equals expected
	// and the stored version is req.Version-1. ErrConflict is returned otherwise.
	UpdateRequest(ctx context.Context, req docrequest.Request, expected docrequest.Status) error
	// SaveEdit writes an edited pending_payment request and its pending
	// payment amount in one transaction, with the same guards as UpdateRequest.
	SaveEdit(ctx context.Context, req docrequest.Request) error
	// DeleteRequest removes the request only if its status is one of allowed.
	DeleteRequest(ctx context.Context, id string, allowed []docrequest.Status) error
}

// PaymentRepository stores payments for document requests.
type PaymentRepository interface {
	CreatePayment(ctx context.Context, payment docrequest.Payment) error
	GetPaymentByReference(ctx context.Context, reference string) (docrequest.Payment, error)
	GetPaymentByIntent(ctx context.Context, intentID string) (docrequest.Payment, error)
	ListPaymentsForRequest(ctx context.Context, requestID string) ([]docrequest.Payment, error)
	// AttachIntent records the gateway intent on a pending digital payment.
	AttachIntent(ctx context.Context, paymentID, intentID string) error
	// CompletePayment settles a pending payment and writes the paid request
	// in one transaction. ErrConflict is returned if either has moved on.
	CompletePayment(ctx context.Context, paymentID string, completedAt time.Time, req docrequest.Request) error
}

// RecipientRepository stores scholarship recipients and renewals.
type RecipientRepository interface {
	CreateRecipient(ctx context.Context, recipient scholarship.Recipient) error
	GetRecipient(ctx context.Context, id string) (scholarship.Recipient, error)
	ListRecipients(ctx context.Context, filter RecipientFilter) ([]scholarship.Recipient, error)
	UpdateRecipient(ctx context.Context, recipient scholarship.Recipient) error
	// SaveDecision writes a decided renewal and its previous record in one transaction.
	SaveDecision(ctx context.Context, renewal, previous scholarship.Recipient) error
	FindRenewal(ctx context.Context, previousID string, period scholarship.Period) (scholarship.Recipient, error)
}

// EventRepository stores calendar events.
type EventRepository interface {
	CreateEvent(ctx context.Context, event Event) error
	GetEvent(ctx context.Context, id string) (Event, error)
	UpdateEvent(ctx context.Context, event Event) error
	ListEvents(ctx context.Context, filter EventFilter) ([]Event, error)
	DeleteEvent(ctx context.Context, id string) error
}

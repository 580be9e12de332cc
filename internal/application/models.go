package application

import (
	"time"

	"github.com/example/campus-portal/internal/docrequest"
	"github.com/example/campus-portal/internal/persistence"
	"github.com/example/campus-portal/internal/scholarship"
)

// Principal represents the user invoking a service method. The portal's
// outer layer authenticates; services only check the staff flag and ownership.
type Principal struct {
	UserID  string
	IsStaff bool
}

// CreateDocumentRequestInput captures a new registrar document request.
type CreateDocumentRequestInput struct {
	RequesterID    string                    `json:"requester_id" validate:"notblank"`
	RequesterName  string                    `json:"requester_name" validate:"notblank,max=200"`
	Email          string                    `json:"email" validate:"required,email"`
	Phone          string                    `json:"phone" validate:"omitempty,max=32"`
	DocumentType   docrequest.DocumentType   `json:"document_type" validate:"required,document_type"`
	ProcessingType docrequest.ProcessingType `json:"processing_type" validate:"required,oneof=regular rush"`
	Quantity       int                       `json:"quantity" validate:"min=1,max=20"`
	Purpose        string                    `json:"purpose" validate:"max=500"`
	PaymentMethod  docrequest.PaymentMethod  `json:"payment_method" validate:"required,oneof=cash digital"`
}

// EditDocumentRequestInput captures the fields a requester may change while
// the request awaits payment.
type EditDocumentRequestInput struct {
	DocumentType   docrequest.DocumentType   `json:"document_type" validate:"required,document_type"`
	ProcessingType docrequest.ProcessingType `json:"processing_type" validate:"required,oneof=regular rush"`
	Quantity       int                       `json:"quantity" validate:"min=1,max=20"`
	Purpose        string                    `json:"purpose" validate:"max=500"`
}

// ReleaseInput records who collected a document and the ID they presented.
type ReleaseInput struct {
	ReceivedBy string `json:"received_by" validate:"notblank,max=200"`
	IDType     string `json:"id_type" validate:"notblank,max=64"`
	IDNumber   string `json:"id_number" validate:"notblank,max=64"`
}

// GatewayEvent is a payment gateway webhook delivery.
type GatewayEvent struct {
	EventType       string `json:"event_type" validate:"required"`
	PaymentIntentID string `json:"payment_intent_id" validate:"required"`
	Status          string `json:"status"`
}

// Gateway event types and statuses acted upon.
const (
	GatewayEventSucceeded  = "payment_intent.succeeded"
	GatewayStatusSucceeded = "succeeded"
)

// GatewayOutcome reports what a webhook delivery did.
type GatewayOutcome string

const (
	GatewayApplied   GatewayOutcome = "applied"
	GatewayDuplicate GatewayOutcome = "duplicate"
	GatewayIgnored   GatewayOutcome = "ignored"
)

// BulkFailure records why one id in a bulk operation failed.
type BulkFailure struct {
	ID  string
	Err error
}

// BulkResult accumulates per-id outcomes of a bulk renewal.
type BulkResult struct {
	Created  []scholarship.Recipient
	Failures []BulkFailure
}

// Succeeded is the number of renewals created.
func (r BulkResult) Succeeded() int { return len(r.Created) }

// Failed is the number of ids that could not be renewed.
func (r BulkResult) Failed() int { return len(r.Failures) }

// EventInput captures caller provided calendar event fields.
type EventInput struct {
	Title          string                `json:"title" validate:"notblank,max=200"`
	Description    string                `json:"description" validate:"max=4000"`
	Location       string                `json:"location" validate:"max=200"`
	Organizer      persistence.Organizer `json:"organizer" validate:"required,oneof=student_government student_affairs"`
	Start          time.Time             `json:"start" validate:"required"`
	End            time.Time             `json:"end" validate:"required,gtefield=Start"`
	RecurrenceRule string                `json:"recurrence_rule"`
}

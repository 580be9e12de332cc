package testfixtures

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/example/campus-portal/internal/docrequest"
	"github.com/example/campus-portal/internal/persistence"
	"github.com/example/campus-portal/internal/scholarship"
)

var (
	requestCounter   uint64
	recipientCounter uint64
	eventCounter     uint64
)

var referenceTime = time.Date(2024, time.January, 2, 15, 4, 5, 0, time.UTC)

// ReferenceTime returns the canonical baseline timestamp used by fixtures.
func ReferenceTime() time.Time {
	return referenceTime
}

// ------------------------- Document request fixtures -------------------------

// RequestFixture bundles a pending document request with its payment.
type RequestFixture struct {
	Request docrequest.Request
	Payment docrequest.Payment
}

// RequestOption configures the generated request fixture.
type RequestOption func(*RequestFixture)

// NewRequestFixture returns a deterministic pending cash request with optional
// overrides. The amount is derived from the processing type and quantity after
// options are applied.
func NewRequestFixture(opts ...RequestOption) RequestFixture {
	idx := atomic.AddUint64(&requestCounter, 1)
	created := referenceTime.Add(time.Duration(idx) * time.Minute)
	id := fmt.Sprintf("req-%03d", idx)

	fixture := RequestFixture{
		Request: docrequest.Request{
			ID:             id,
			RequestNumber:  docrequest.FormatRequestNumber(created, int(idx)),
			RequesterID:    fmt.Sprintf("student-%03d", idx),
			RequesterName:  fmt.Sprintf("Student %03d", idx),
			Email:          fmt.Sprintf("student-%03d@campus.test", idx),
			Phone:          "+639171234567",
			DocumentType:   docrequest.DocumentTranscript,
			ProcessingType: docrequest.ProcessingRegular,
			Quantity:       1,
			Purpose:        "Employment",
			PaymentMethod:  docrequest.PaymentCash,
		},
		Payment: docrequest.Payment{
			ID:        fmt.Sprintf("pay-%03d", idx),
			RequestID: id,
			Method:    docrequest.PaymentCash,
			Reference: docrequest.FormatPaymentReference(created, fmt.Sprintf("%08X", idx)),
			Status:    docrequest.PaymentPending,
			CreatedAt: created,
		},
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	if !fixture.Request.CreatedAt.IsZero() {
		created = fixture.Request.CreatedAt
		fixture.Payment.CreatedAt = created
	}

	req, err := docrequest.New(fixture.Request, created)
	if err != nil {
		panic(fmt.Sprintf("testfixtures: invalid request fixture: %v", err))
	}
	if fixture.Request.Status != "" {
		req.Status = fixture.Request.Status
	}
	fixture.Request = req
	fixture.Payment.RequestID = req.ID
	fixture.Payment.Amount = req.Amount
	return fixture
}

// WithRequestID overrides the generated request ID.
func WithRequestID(id string) RequestOption {
	return func(f *RequestFixture) {
		f.Request.ID = id
	}
}

// WithRequester overrides the requester identity.
func WithRequester(id, name string) RequestOption {
	return func(f *RequestFixture) {
		f.Request.RequesterID = id
		f.Request.RequesterName = name
	}
}

// WithProcessing overrides the processing type and quantity.
func WithProcessing(processing docrequest.ProcessingType, quantity int) RequestOption {
	return func(f *RequestFixture) {
		f.Request.ProcessingType = processing
		f.Request.Quantity = quantity
	}
}

// WithCreatedAt overrides the creation time, which also moves the payment deadline.
func WithCreatedAt(createdAt time.Time) RequestOption {
	return func(f *RequestFixture) {
		f.Request.CreatedAt = createdAt
	}
}

// WithRequestStatus overrides the status written for the request.
func WithRequestStatus(status docrequest.Status) RequestOption {
	return func(f *RequestFixture) {
		f.Request.Status = status
	}
}

// WithDigitalPayment switches the payment to the gateway with the given intent.
func WithDigitalPayment(intentID string) RequestOption {
	return func(f *RequestFixture) {
		f.Request.PaymentMethod = docrequest.PaymentDigital
		f.Payment.Method = docrequest.PaymentDigital
		f.Payment.Reference = ""
		f.Payment.IntentID = intentID
	}
}

// ---------------------------- Recipient fixtures -----------------------------

// RecipientOption configures the generated recipient fixture.
type RecipientOption func(*scholarship.Recipient)

// NewRecipientFixture returns a deterministic active recipient for the first
// semester of 2024-2025.
func NewRecipientFixture(opts ...RecipientOption) scholarship.Recipient {
	idx := atomic.AddUint64(&recipientCounter, 1)
	created := referenceTime.Add(time.Duration(idx) * time.Minute)
	recipient := scholarship.Recipient{
		ID:              fmt.Sprintf("rcp-%03d", idx),
		StudentID:       fmt.Sprintf("student-%03d", idx),
		StudentName:     fmt.Sprintf("Scholar %03d", idx),
		Email:           fmt.Sprintf("scholar-%03d@campus.test", idx),
		ScholarshipID:   "sch-academic",
		ScholarshipName: "Academic Excellence",
		Status:          scholarship.StatusActive,
		RenewalStatus:   scholarship.RenewalNone,
		Period:          scholarship.Period{AcademicYear: "2024-2025", Semester: scholarship.SemesterFirst},
		CreatedAt:       created,
		UpdatedAt:       created,
	}
	for _, opt := range opts {
		opt(&recipient)
	}
	return recipient
}

// WithRecipientID overrides the generated recipient ID.
func WithRecipientID(id string) RecipientOption {
	return func(r *scholarship.Recipient) {
		r.ID = id
	}
}

// WithRecipientStatus overrides the recipient status.
func WithRecipientStatus(status scholarship.Status) RecipientOption {
	return func(r *scholarship.Recipient) {
		r.Status = status
	}
}

// WithPeriod overrides the award period.
func WithPeriod(period scholarship.Period) RecipientOption {
	return func(r *scholarship.Recipient) {
		r.Period = period
	}
}

// WithExpiresAt sets an explicit expiration.
func WithExpiresAt(t time.Time) RecipientOption {
	return func(r *scholarship.Recipient) {
		r.ExpiresAt = &t
	}
}

// ------------------------------ Event fixtures -------------------------------

// EventOption configures the generated event fixture.
type EventOption func(*persistence.Event)

// NewEventFixture returns a deterministic one hour draft event.
func NewEventFixture(opts ...EventOption) persistence.Event {
	idx := atomic.AddUint64(&eventCounter, 1)
	start := referenceTime.Add(time.Duration(idx) * 24 * time.Hour).Truncate(time.Hour)
	event := persistence.Event{
		ID:        fmt.Sprintf("evt-%03d", idx),
		Title:     fmt.Sprintf("Event %03d", idx),
		Location:  "Main Hall",
		Organizer: persistence.OrganizerStudentAffairs,
		Start:     start,
		End:       start.Add(time.Hour),
		CreatedAt: referenceTime,
		UpdatedAt: referenceTime,
	}
	for _, opt := range opts {
		opt(&event)
	}
	return event
}

// WithEventID overrides the generated event ID.
func WithEventID(id string) EventOption {
	return func(e *persistence.Event) {
		e.ID = id
	}
}

// WithRecurrence sets the event's RRULE.
func WithRecurrence(rule string) EventOption {
	return func(e *persistence.Event) {
		e.RecurrenceRule = rule
	}
}

// WithOrganizer overrides the owning office.
func WithOrganizer(organizer persistence.Organizer) EventOption {
	return func(e *persistence.Event) {
		e.Organizer = organizer
	}
}

// WithPublishedAt marks the event as published.
func WithPublishedAt(t time.Time) EventOption {
	return func(e *persistence.Event) {
		e.PublishedAt = &t
	}
}

package persistence

import (
	"time"

	"github.com/example/campus-portal/internal/docrequest"
	"github.com/example/campus-portal/internal/scholarship"
)

// Organizer identifies the office that owns an event calendar.
type Organizer string

const (
	OrganizerStudentGovernment Organizer = "student_government"
	OrganizerStudentAffairs    Organizer = "student_affairs"
)

// Event represents a calendar item stored in persistence. RecurrenceRule
// holds the RRULE text; it is empty for one-off events.
type Event struct {
	ID             string
	Title          string
	Description    string
	Location       string
	Organizer      Organizer
	Start          time.Time
	End            time.Time
	RecurrenceRule string
	PublishedAt    *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// RequestFilter narrows document request queries.
type RequestFilter struct {
	Statuses       []docrequest.Status
	RequesterID    string
	DeadlineBefore *time.Time
}

// RecipientFilter narrows scholarship recipient queries.
type RecipientFilter struct {
	Statuses      []scholarship.Status
	Period        *scholarship.Period
	ScholarshipID string
	Renewals      bool
}

// EventFilter narrows event queries.
type EventFilter struct {
	Organizer     Organizer
	PublishedOnly bool
}

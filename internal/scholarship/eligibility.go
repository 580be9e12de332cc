// Package scholarship decides renewal eligibility for scholarship recipients
// and builds renewal records for a target academic period.
package scholarship

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Status is the standing of a recipient record.
type Status string

const (
	StatusActive    Status = "Active"
	StatusInactive  Status = "Inactive"
	StatusSuspended Status = "Suspended"
	StatusExpired   Status = "Expired"
	StatusCancelled Status = "Cancelled"
)

// RenewalStatus tracks a recipient's renewal application.
type RenewalStatus string

const (
	RenewalNone     RenewalStatus = "None"
	RenewalPending  RenewalStatus = "Pending"
	RenewalApproved RenewalStatus = "Approved"
	RenewalRejected RenewalStatus = "Rejected"
)

// Semester names a term within an academic year.
type Semester string

const (
	SemesterFirst  Semester = "1st"
	SemesterSecond Semester = "2nd"
	SemesterSummer Semester = "Summer"
)

var (
	// ErrInvalidPeriod is returned for a malformed academic year or semester.
	ErrInvalidPeriod = errors.New("scholarship: invalid academic period")
	// ErrNotEligible is returned when a recipient cannot be renewed.
	ErrNotEligible = errors.New("scholarship: recipient is not eligible for renewal")
	// ErrAlreadyDecided is returned when a renewal has already been approved or rejected.
	ErrAlreadyDecided = errors.New("scholarship: renewal already decided")
)

// Period is one renewal window, e.g. {"2024-2025", "2nd"}.
type Period struct {
	AcademicYear string
	Semester     Semester
}

// String renders the period for logs and messages.
func (p Period) String() string {
	return p.AcademicYear + " " + string(p.Semester)
}

// Validate checks the academic year is two consecutive years and the
// semester is known.
func (p Period) Validate() error {
	first, second, ok := p.years()
	if !ok || second != first+1 {
		return fmt.Errorf("%w: academic year %q", ErrInvalidPeriod, p.AcademicYear)
	}
	switch p.Semester {
	case SemesterFirst, SemesterSecond, SemesterSummer:
		return nil
	default:
		return fmt.Errorf("%w: semester %q", ErrInvalidPeriod, string(p.Semester))
	}
}

// End returns the last instant of the period in loc: 1st semester closes at
// the end of December, 2nd at the end of May and summer at the end of July.
func (p Period) End(loc *time.Location) (time.Time, error) {
	if err := p.Validate(); err != nil {
		return time.Time{}, err
	}
	if loc == nil {
		loc = time.UTC
	}
	first, second, _ := p.years()
	var year int
	var month time.Month
	switch p.Semester {
	case SemesterFirst:
		year, month = first, time.December
	case SemesterSecond:
		year, month = second, time.May
	default:
		year, month = second, time.July
	}
	return time.Date(year, month+1, 1, 0, 0, 0, 0, loc).Add(-time.Nanosecond), nil
}

// Next returns the regular semester following p. Summer is skipped.
func (p Period) Next() (Period, error) {
	if err := p.Validate(); err != nil {
		return Period{}, err
	}
	first, second, _ := p.years()
	if p.Semester == SemesterFirst {
		return Period{AcademicYear: p.AcademicYear, Semester: SemesterSecond}, nil
	}
	return Period{AcademicYear: fmt.Sprintf("%d-%d", first+1, second+1), Semester: SemesterFirst}, nil
}

func (p Period) years() (int, int, bool) {
	a, b, ok := strings.Cut(strings.TrimSpace(p.AcademicYear), "-")
	if !ok {
		return 0, 0, false
	}
	first, err := strconv.Atoi(a)
	if err != nil || len(a) != 4 {
		return 0, 0, false
	}
	second, err := strconv.Atoi(b)
	if err != nil || len(b) != 4 {
		return 0, 0, false
	}
	return first, second, true
}

// Recipient is one scholar's award for one academic period.
type Recipient struct {
	ID                  string
	StudentID           string
	StudentName         string
	Email               string
	ScholarshipID       string
	ScholarshipName     string
	Status              Status
	RenewalStatus       RenewalStatus
	Period              Period
	PreviousRecipientID *string
	ExpiresAt           *time.Time
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// EffectiveExpiration is the explicit ExpiresAt when set, otherwise the end
// of the recipient's period.
func EffectiveExpiration(r Recipient, loc *time.Location) (time.Time, bool) {
	if r.ExpiresAt != nil {
		return *r.ExpiresAt, true
	}
	end, err := r.Period.End(loc)
	if err != nil {
		return time.Time{}, false
	}
	return end, true
}

// Eligible returns the active recipients that have no renewal record for
// target. existing holds the records already filed for target.
func Eligible(recipients, existing []Recipient, target Period) []Recipient {
	renewed := make(map[string]struct{}, len(existing))
	for _, r := range existing {
		if r.PreviousRecipientID != nil && r.Period == target {
			renewed[*r.PreviousRecipientID] = struct{}{}
		}
	}

	out := make([]Recipient, 0, len(recipients))
	for _, r := range recipients {
		if r.Status != StatusActive || r.Period == target {
			continue
		}
		if _, ok := renewed[r.ID]; ok {
			continue
		}
		out = append(out, r)
	}
	return out
}

// NeedsRenewal returns active recipients whose effective expiration falls
// between now and withinDays days from now, inclusive.
func NeedsRenewal(recipients []Recipient, now time.Time, withinDays int, loc *time.Location) []Recipient {
	if withinDays < 0 {
		return nil
	}
	horizon := now.AddDate(0, 0, withinDays)
	out := make([]Recipient, 0)
	for _, r := range recipients {
		if r.Status != StatusActive {
			continue
		}
		expires, ok := EffectiveExpiration(r, loc)
		if !ok || expires.Before(now) || expires.After(horizon) {
			continue
		}
		out = append(out, r)
	}
	return out
}

// NewRenewal builds the renewal application for prev in target. The record
// awaits a decision, so it starts inactive with a pending renewal status.
func NewRenewal(prev Recipient, target Period, id string, now time.Time) (Recipient, error) {
	if err := target.Validate(); err != nil {
		return Recipient{}, err
	}
	if prev.Status != StatusActive {
		return Recipient{}, fmt.Errorf("%w: status is %s", ErrNotEligible, prev.Status)
	}
	if prev.Period == target {
		return Recipient{}, fmt.Errorf("%w: already awarded for %s", ErrNotEligible, target)
	}

	previousID := prev.ID
	return Recipient{
		ID:                  id,
		StudentID:           prev.StudentID,
		StudentName:         prev.StudentName,
		Email:               prev.Email,
		ScholarshipID:       prev.ScholarshipID,
		ScholarshipName:     prev.ScholarshipName,
		Status:              StatusInactive,
		RenewalStatus:       RenewalPending,
		Period:              target,
		PreviousRecipientID: &previousID,
		CreatedAt:           now,
		UpdatedAt:           now,
	}, nil
}

// DecideRenewal approves or rejects a pending renewal and returns the
// updated renewal and previous records. Approval activates the renewal and
// closes out the previous award.
func DecideRenewal(renewal, previous Recipient, approve bool, now time.Time) (Recipient, Recipient, error) {
	if renewal.RenewalStatus != RenewalPending {
		return renewal, previous, fmt.Errorf("%w: renewal is %s", ErrAlreadyDecided, renewal.RenewalStatus)
	}

	if approve {
		renewal.Status = StatusActive
		renewal.RenewalStatus = RenewalApproved
		previous.RenewalStatus = RenewalApproved
		if previous.Status == StatusActive {
			previous.Status = StatusExpired
		}
	} else {
		renewal.Status = StatusInactive
		renewal.RenewalStatus = RenewalRejected
		previous.RenewalStatus = RenewalRejected
	}
	renewal.UpdatedAt = now
	previous.UpdatedAt = now
	return renewal, previous, nil
}

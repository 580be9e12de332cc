package scholarship

import (
	"errors"
	"testing"
	"time"
)

var (
	current = Period{AcademicYear: "2024-2025", Semester: SemesterFirst}
	target  = Period{AcademicYear: "2024-2025", Semester: SemesterSecond}
)

func recipient(id string, status Status, period Period) Recipient {
	return Recipient{ID: id, StudentID: "stu-" + id, ScholarshipID: "sch-1", Status: status, RenewalStatus: RenewalNone, Period: period}
}

func TestPeriod(t *testing.T) {
	t.Parallel()

	t.Run("validates academic years and semesters", func(t *testing.T) {
		for _, p := range []Period{
			{AcademicYear: "2024", Semester: SemesterFirst},
			{AcademicYear: "2024-2026", Semester: SemesterFirst},
			{AcademicYear: "2024-2025", Semester: "3rd"},
		} {
			if err := p.Validate(); !errors.Is(err, ErrInvalidPeriod) {
				t.Fatalf("%v: expected ErrInvalidPeriod, got %v", p, err)
			}
		}
		if err := current.Validate(); err != nil {
			t.Fatalf("expected valid period, got %v", err)
		}
	})

	t.Run("computes period ends", func(t *testing.T) {
		cases := map[Semester]time.Time{
			SemesterFirst:  time.Date(2024, time.December, 31, 23, 59, 59, 999999999, time.UTC),
			SemesterSecond: time.Date(2025, time.May, 31, 23, 59, 59, 999999999, time.UTC),
			SemesterSummer: time.Date(2025, time.July, 31, 23, 59, 59, 999999999, time.UTC),
		}
		for semester, want := range cases {
			got, err := Period{AcademicYear: "2024-2025", Semester: semester}.End(time.UTC)
			if err != nil {
				t.Fatalf("%s: End returned error: %v", semester, err)
			}
			if !got.Equal(want) {
				t.Fatalf("%s: expected %v, got %v", semester, want, got)
			}
		}
	})

	t.Run("advances to the next regular semester", func(t *testing.T) {
		next, err := current.Next()
		if err != nil || next != target {
			t.Fatalf("expected %v, got %v (%v)", target, next, err)
		}
		next, err = target.Next()
		if err != nil || next != (Period{AcademicYear: "2025-2026", Semester: SemesterFirst}) {
			t.Fatalf("unexpected next period %v (%v)", next, err)
		}
	})
}

func TestEligible(t *testing.T) {
	t.Parallel()

	renewedID := "r-2"
	recipients := []Recipient{
		recipient("r-1", StatusActive, current),
		recipient("r-2", StatusActive, current),
		recipient("r-3", StatusSuspended, current),
		recipient("r-4", StatusActive, target),
	}
	existing := []Recipient{
		{ID: "renewal-1", Status: StatusInactive, Period: target, PreviousRecipientID: &renewedID},
	}

	got := Eligible(recipients, existing, target)
	if len(got) != 1 || got[0].ID != "r-1" {
		t.Fatalf("expected only r-1 to be eligible, got %+v", got)
	}
}

func TestNeedsRenewal(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, time.December, 10, 0, 0, 0, 0, time.UTC)
	soon := now.AddDate(0, 0, 5)
	later := now.AddDate(0, 0, 90)
	past := now.AddDate(0, 0, -1)

	explicitSoon := recipient("explicit-soon", StatusActive, target)
	explicitSoon.ExpiresAt = &soon
	explicitLater := recipient("explicit-later", StatusActive, current)
	explicitLater.ExpiresAt = &later
	expired := recipient("already-expired", StatusActive, current)
	expired.ExpiresAt = &past
	periodEnd := recipient("period-end", StatusActive, current)
	inactive := recipient("inactive", StatusInactive, current)

	got := NeedsRenewal([]Recipient{explicitSoon, explicitLater, expired, periodEnd, inactive}, now, 30, time.UTC)
	ids := map[string]bool{}
	for _, r := range got {
		ids[r.ID] = true
	}
	if len(got) != 2 || !ids["explicit-soon"] || !ids["period-end"] {
		t.Fatalf("unexpected recipients needing renewal: %+v", ids)
	}
}

func TestNewRenewal(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, time.January, 6, 9, 0, 0, 0, time.UTC)

	prev := recipient("r-1", StatusActive, current)
	prev.ScholarshipName = "Academic Excellence"
	renewal, err := NewRenewal(prev, target, "renewal-1", now)
	if err != nil {
		t.Fatalf("NewRenewal returned error: %v", err)
	}
	if renewal.PreviousRecipientID == nil || *renewal.PreviousRecipientID != "r-1" {
		t.Fatalf("expected renewal to reference previous recipient, got %v", renewal.PreviousRecipientID)
	}
	if renewal.ScholarshipName != "Academic Excellence" || renewal.StudentID != prev.StudentID {
		t.Fatalf("expected scholarship identity to carry forward, got %+v", renewal)
	}
	if renewal.Status != StatusInactive || renewal.RenewalStatus != RenewalPending {
		t.Fatalf("expected pending inactive renewal, got %s/%s", renewal.Status, renewal.RenewalStatus)
	}

	if _, err := NewRenewal(recipient("r-2", StatusSuspended, current), target, "x", now); !errors.Is(err, ErrNotEligible) {
		t.Fatalf("expected ErrNotEligible for suspended recipient, got %v", err)
	}
	if _, err := NewRenewal(prev, current, "x", now); !errors.Is(err, ErrNotEligible) {
		t.Fatalf("expected ErrNotEligible for same period, got %v", err)
	}
}

func TestDecideRenewal(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, time.January, 6, 9, 0, 0, 0, time.UTC)
	prev := recipient("r-1", StatusActive, current)
	renewal, err := NewRenewal(prev, target, "renewal-1", now)
	if err != nil {
		t.Fatalf("NewRenewal returned error: %v", err)
	}

	approved, closed, err := DecideRenewal(renewal, prev, true, now)
	if err != nil {
		t.Fatalf("DecideRenewal returned error: %v", err)
	}
	if approved.Status != StatusActive || approved.RenewalStatus != RenewalApproved {
		t.Fatalf("unexpected approved renewal %s/%s", approved.Status, approved.RenewalStatus)
	}
	if closed.Status != StatusExpired || closed.RenewalStatus != RenewalApproved {
		t.Fatalf("unexpected previous record %s/%s", closed.Status, closed.RenewalStatus)
	}

	if _, _, err := DecideRenewal(approved, closed, false, now); !errors.Is(err, ErrAlreadyDecided) {
		t.Fatalf("expected ErrAlreadyDecided, got %v", err)
	}

	rejected, kept, err := DecideRenewal(renewal, prev, false, now)
	if err != nil {
		t.Fatalf("DecideRenewal returned error: %v", err)
	}
	if rejected.RenewalStatus != RenewalRejected || kept.Status != StatusActive {
		t.Fatalf("unexpected rejection outcome %+v / %+v", rejected, kept)
	}
}

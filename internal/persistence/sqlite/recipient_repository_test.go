package sqlite_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/example/campus-portal/internal/persistence"
	"github.com/example/campus-portal/internal/scholarship"
	"github.com/example/campus-portal/internal/testfixtures"
)

var secondSemester = scholarship.Period{AcademicYear: "2024-2025", Semester: scholarship.SemesterSecond}

func TestRecipientRepository_Renewals(t *testing.T) {
	h := testfixtures.NewSQLiteHarness(t)
	ctx := context.Background()

	expires := testfixtures.ReferenceTime().AddDate(0, 5, 0)
	previous := testfixtures.NewRecipientFixture(testfixtures.WithExpiresAt(expires))
	if err := h.Recipients.CreateRecipient(ctx, previous); err != nil {
		t.Fatalf("CreateRecipient returned error: %v", err)
	}

	renewal, err := scholarship.NewRenewal(previous, secondSemester, "renewal-1", testfixtures.ReferenceTime())
	if err != nil {
		t.Fatalf("NewRenewal returned error: %v", err)
	}
	if err := h.Recipients.CreateRecipient(ctx, renewal); err != nil {
		t.Fatalf("CreateRecipient returned error for renewal: %v", err)
	}

	found, err := h.Recipients.FindRenewal(ctx, previous.ID, secondSemester)
	if err != nil || found.ID != "renewal-1" || found.PreviousRecipientID == nil || *found.PreviousRecipientID != previous.ID {
		t.Fatalf("unexpected renewal %+v (%v)", found, err)
	}

	stored, err := h.Recipients.GetRecipient(ctx, previous.ID)
	if err != nil || stored.ExpiresAt == nil || !stored.ExpiresAt.Equal(expires) {
		t.Fatalf("expected expiration to round trip, got %+v (%v)", stored, err)
	}

	t.Run("second renewal for the period is a duplicate", func(t *testing.T) {
		again, err := scholarship.NewRenewal(previous, secondSemester, "renewal-2", testfixtures.ReferenceTime())
		if err != nil {
			t.Fatalf("NewRenewal returned error: %v", err)
		}
		if err := h.Recipients.CreateRecipient(ctx, again); !errors.Is(err, persistence.ErrDuplicate) {
			t.Fatalf("expected ErrDuplicate, got %v", err)
		}
	})

	t.Run("renewal of an unknown recipient", func(t *testing.T) {
		orphan, err := scholarship.NewRenewal(testfixtures.NewRecipientFixture(), secondSemester, "renewal-3", testfixtures.ReferenceTime())
		if err != nil {
			t.Fatalf("NewRenewal returned error: %v", err)
		}
		if err := h.Recipients.CreateRecipient(ctx, orphan); !errors.Is(err, persistence.ErrForeignKeyViolation) {
			t.Fatalf("expected ErrForeignKeyViolation, got %v", err)
		}
	})

	t.Run("decision is saved with the previous record", func(t *testing.T) {
		decidedAt := testfixtures.ReferenceTime().Add(24 * time.Hour)
		approved, expired, err := scholarship.DecideRenewal(found, stored, true, decidedAt)
		if err != nil {
			t.Fatalf("DecideRenewal returned error: %v", err)
		}
		if err := h.Recipients.SaveDecision(ctx, approved, expired); err != nil {
			t.Fatalf("SaveDecision returned error: %v", err)
		}

		gotRenewal, _ := h.Recipients.GetRecipient(ctx, approved.ID)
		gotPrevious, _ := h.Recipients.GetRecipient(ctx, previous.ID)
		if gotRenewal.RenewalStatus != scholarship.RenewalApproved || gotRenewal.Status != scholarship.StatusActive {
			t.Fatalf("unexpected renewal %s/%s", gotRenewal.Status, gotRenewal.RenewalStatus)
		}
		if gotPrevious.Status != scholarship.StatusExpired {
			t.Fatalf("expected previous award to expire, got %s", gotPrevious.Status)
		}
	})

	t.Run("second decision conflicts", func(t *testing.T) {
		rejected, _, err := scholarship.DecideRenewal(found, stored, false, testfixtures.ReferenceTime().Add(48*time.Hour))
		if err != nil {
			t.Fatalf("DecideRenewal returned error: %v", err)
		}
		if err := h.Recipients.SaveDecision(ctx, rejected, stored); !errors.Is(err, persistence.ErrConflict) {
			t.Fatalf("expected ErrConflict, got %v", err)
		}
		after, _ := h.Recipients.GetRecipient(ctx, found.ID)
		if after.RenewalStatus != scholarship.RenewalApproved {
			t.Fatalf("expected first decision to stand, got %s", after.RenewalStatus)
		}
	})

	t.Run("decision with a missing previous record rolls back", func(t *testing.T) {
		nextYear := scholarship.Period{AcademicYear: "2025-2026", Semester: scholarship.SemesterFirst}
		pending, err := scholarship.NewRenewal(previous, nextYear, "renewal-4", testfixtures.ReferenceTime())
		if err != nil {
			t.Fatalf("NewRenewal returned error: %v", err)
		}
		if err := h.Recipients.CreateRecipient(ctx, pending); err != nil {
			t.Fatalf("CreateRecipient returned error: %v", err)
		}
		changed := pending
		changed.RenewalStatus = scholarship.RenewalRejected
		ghost := stored
		ghost.ID = "ghost"

		if err := h.Recipients.SaveDecision(ctx, changed, ghost); !errors.Is(err, persistence.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
		after, _ := h.Recipients.GetRecipient(ctx, pending.ID)
		if after.RenewalStatus != scholarship.RenewalPending {
			t.Fatalf("expected renewal unchanged, got %s", after.RenewalStatus)
		}
	})
}

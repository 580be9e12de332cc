package sqlite_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/example/campus-portal/internal/docrequest"
	"github.com/example/campus-portal/internal/persistence"
	"github.com/example/campus-portal/internal/testfixtures"
)

func paidCopy(req docrequest.Request, at time.Time) docrequest.Request {
	req.Status = docrequest.StatusPaid
	req.PaidAt = &at
	req.UpdatedAt = at
	req.Version++
	return req
}

func TestPaymentRepository_CompletePayment(t *testing.T) {
	h := testfixtures.NewSQLiteHarness(t)
	ctx := context.Background()
	fixture := testfixtures.NewRequestFixture()
	h.SeedRequest(t, fixture)

	payment, err := h.Payments.GetPaymentByReference(ctx, fixture.Payment.Reference)
	if err != nil {
		t.Fatalf("GetPaymentByReference returned error: %v", err)
	}

	at := fixture.Request.CreatedAt.Add(time.Hour)
	if err := h.Payments.CompletePayment(ctx, payment.ID, at, paidCopy(fixture.Request, at)); err != nil {
		t.Fatalf("CompletePayment returned error: %v", err)
	}

	completed, err := h.Payments.GetPaymentByReference(ctx, fixture.Payment.Reference)
	if err != nil || completed.Status != docrequest.PaymentCompleted || completed.CompletedAt == nil {
		t.Fatalf("expected completed payment, got %+v (%v)", completed, err)
	}
	req, err := h.Requests.GetRequest(ctx, fixture.Request.ID)
	if err != nil || req.Status != docrequest.StatusPaid {
		t.Fatalf("expected paid request, got %+v (%v)", req, err)
	}

	t.Run("second confirmation conflicts", func(t *testing.T) {
		later := at.Add(time.Minute)
		if err := h.Payments.CompletePayment(ctx, payment.ID, later, paidCopy(fixture.Request, later)); !errors.Is(err, persistence.ErrConflict) {
			t.Fatalf("expected ErrConflict, got %v", err)
		}
	})
}

func TestPaymentRepository_CompletePaymentRollsBack(t *testing.T) {
	h := testfixtures.NewSQLiteHarness(t)
	ctx := context.Background()
	fixture := testfixtures.NewRequestFixture(testfixtures.WithRequestStatus(docrequest.StatusCancelled))
	h.SeedRequest(t, fixture)

	at := fixture.Request.CreatedAt.Add(time.Hour)
	err := h.Payments.CompletePayment(ctx, fixture.Payment.ID, at, paidCopy(fixture.Request, at))
	if !errors.Is(err, persistence.ErrConflict) {
		t.Fatalf("expected ErrConflict for cancelled request, got %v", err)
	}

	payment, err := h.Payments.GetPaymentByReference(ctx, fixture.Payment.Reference)
	if err != nil || payment.Status != docrequest.PaymentPending {
		t.Fatalf("expected payment to stay pending, got %+v (%v)", payment, err)
	}
}

func TestPaymentRepository_DigitalIntents(t *testing.T) {
	h := testfixtures.NewSQLiteHarness(t)
	ctx := context.Background()
	fixture := testfixtures.NewRequestFixture(testfixtures.WithDigitalPayment(""))
	h.SeedRequest(t, fixture)

	if err := h.Payments.AttachIntent(ctx, fixture.Payment.ID, "pi_3Nabc"); err != nil {
		t.Fatalf("AttachIntent returned error: %v", err)
	}
	payment, err := h.Payments.GetPaymentByIntent(ctx, "pi_3Nabc")
	if err != nil || payment.RequestID != fixture.Request.ID || payment.Reference != "" {
		t.Fatalf("unexpected payment %+v (%v)", payment, err)
	}

	other := testfixtures.NewRequestFixture(testfixtures.WithDigitalPayment("pi_3Nabc"))
	if err := h.Requests.CreateRequest(ctx, other.Request, other.Payment); !errors.Is(err, persistence.ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate for reused intent, got %v", err)
	}

	if _, err := h.Payments.GetPaymentByIntent(ctx, ""); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for empty intent, got %v", err)
	}
}

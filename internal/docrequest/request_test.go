package docrequest

import (
	"errors"
	"testing"
	"time"
)

func TestReferenceFormats(t *testing.T) {
	t.Parallel()

	day := time.Date(2024, time.August, 12, 15, 0, 0, 0, time.UTC)

	number := FormatRequestNumber(day, 42)
	if number != "REQ-20240812-0042" {
		t.Fatalf("unexpected request number %q", number)
	}
	if !ValidRequestNumber(number) {
		t.Fatalf("expected %q to be valid", number)
	}
	if ValidRequestNumber("REQ-2024-42") {
		t.Fatalf("expected malformed number to be rejected")
	}

	ref := FormatPaymentReference(day, "3f2a9c1e-8d6b-4b8e-9a57-0c1d2e3f4a5b")
	if ref != "PAY-20240812-3F2A9C1E" {
		t.Fatalf("unexpected payment reference %q", ref)
	}
	if err := ValidateReference(PaymentCash, ref); err != nil {
		t.Fatalf("expected cash reference to validate, got %v", err)
	}
	if err := ValidateReference(PaymentDigital, ref); !errors.Is(err, ErrInvalidReference) {
		t.Fatalf("expected cash reference to be rejected for digital payments, got %v", err)
	}
	if err := ValidateReference(PaymentDigital, "pi_3NfQk2LkdIwHu7ix0x1Y"); err != nil {
		t.Fatalf("expected intent id to validate, got %v", err)
	}
}

func TestDocumentTypeValid(t *testing.T) {
	t.Parallel()

	if !DocumentCertificateOfGrades.Valid() {
		t.Fatalf("expected certificate of grades to be valid")
	}
	if DocumentType("library_card").Valid() {
		t.Fatalf("expected unknown document type to be invalid")
	}
}

package application

import (
	"errors"
	"fmt"
	"testing"

	"github.com/example/campus-portal/internal/docrequest"
)

func TestValidationError_Error(t *testing.T) {
	t.Parallel()

	var err *ValidationError
	if err.Error() != "" {
		t.Fatalf("expected empty string for nil error, got %q", err.Error())
	}

	empty := &ValidationError{}
	if got := empty.Error(); got != "validation failed" {
		t.Fatalf("expected generic message for empty error, got %q", got)
	}

	withFields := &ValidationError{FieldErrors: map[string]string{"quantity": "invalid", "email": "invalid"}}
	if got := withFields.Error(); got != "validation failed: email, quantity" {
		t.Fatalf("expected sorted field names, got %q", got)
	}
}

func TestValidationError_HasErrors(t *testing.T) {
	t.Parallel()

	if err := (&ValidationError{}).HasErrors(); err {
		t.Fatalf("expected HasErrors to report false for empty error")
	}

	if err := (&ValidationError{FieldErrors: map[string]string{"field": "bad"}}).HasErrors(); !err {
		t.Fatalf("expected HasErrors to report true when fields are present")
	}
}

func TestValidationError_AddAndMerge(t *testing.T) {
	t.Parallel()

	base := &ValidationError{}
	base.add("first", "value")
	if got := base.FieldErrors["first"]; got != "value" {
		t.Fatalf("expected add to populate map, got %q", got)
	}

	other := &ValidationError{FieldErrors: map[string]string{"second": "another"}}
	base.merge(other)
	if got := base.FieldErrors["second"]; got != "another" {
		t.Fatalf("expected merge to copy field, got %q", got)
	}

	base.merge(nil)
	if len(base.FieldErrors) != 2 {
		t.Fatalf("expected merge with nil to leave fields unchanged")
	}
}

func TestDuplicateResourceError(t *testing.T) {
	t.Parallel()

	err := fmt.Errorf("create: %w", &DuplicateResourceError{Resource: "renewal", Key: "r-1"})
	if !errors.Is(err, ErrAlreadyExists) {
		t.Fatalf("expected duplicate error to match ErrAlreadyExists")
	}
	var dErr *DuplicateResourceError
	if !errors.As(err, &dErr) || dErr.Key != "r-1" {
		t.Fatalf("expected DuplicateResourceError with key, got %v", err)
	}
}

func TestIsInvalidTransition(t *testing.T) {
	t.Parallel()

	_, err := docrequest.Transition(docrequest.StatusReleased, docrequest.ActionCancel)
	if !IsInvalidTransition(fmt.Errorf("wrapped: %w", err)) {
		t.Fatalf("expected wrapped transition error to be detected")
	}
	if IsInvalidTransition(ErrNotFound) {
		t.Fatalf("expected ErrNotFound not to be a transition error")
	}
}

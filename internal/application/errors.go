package application

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/example/campus-portal/internal/docrequest"
	"github.com/example/campus-portal/internal/documents"
)

var (
	// ErrUnauthorized is returned when the acting principal lacks permission for an operation.
	ErrUnauthorized = errors.New("application: unauthorized")
	// ErrNotFound is returned when the requested resource does not exist.
	ErrNotFound = errors.New("application: not found")
	// ErrAlreadyExists is returned when a resource with the same identity already exists.
	ErrAlreadyExists = errors.New("application: already exists")
	// ErrPaymentAlreadyCompleted is returned when a settled payment is confirmed again.
	ErrPaymentAlreadyCompleted = errors.New("application: payment already completed")
	// ErrEventPublished is returned when a published event's schedule is changed.
	ErrEventPublished = errors.New("application: event schedule is fixed once published")
	// ErrUnknownDocumentType is returned when no renderer exists for a request's document type.
	ErrUnknownDocumentType = documents.ErrUnknownDocumentType
)

// ValidationError captures field level validation issues that callers can surface to users.
type ValidationError struct {
	FieldErrors map[string]string
}

// Error implements the error interface.
func (v *ValidationError) Error() string {
	if v == nil {
		return ""
	}
	if len(v.FieldErrors) == 0 {
		return "validation failed"
	}
	fields := make([]string, 0, len(v.FieldErrors))
	for field := range v.FieldErrors {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	return "validation failed: " + strings.Join(fields, ", ")
}

// HasErrors reports whether any field level issues were recorded.
func (v *ValidationError) HasErrors() bool {
	return v != nil && len(v.FieldErrors) > 0
}

// add records a field level validation error.
func (v *ValidationError) add(field, message string) {
	if v.FieldErrors == nil {
		v.FieldErrors = make(map[string]string)
	}
	v.FieldErrors[field] = message
}

// merge copies entries from another validation error into the receiver.
func (v *ValidationError) merge(other *ValidationError) {
	if other == nil || len(other.FieldErrors) == 0 {
		return
	}
	for field, msg := range other.FieldErrors {
		v.add(field, msg)
	}
}

func fieldError(field, message string) *ValidationError {
	vErr := &ValidationError{}
	vErr.add(field, message)
	return vErr
}

// DuplicateResourceError reports that a uniquely keyed resource already
// exists. It matches ErrAlreadyExists with errors.Is.
type DuplicateResourceError struct {
	Resource string
	Key      string
}

// Error implements the error interface.
func (e *DuplicateResourceError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("application: %s %q already exists", e.Resource, e.Key)
}

// Is reports whether target is ErrAlreadyExists.
func (e *DuplicateResourceError) Is(target error) bool {
	return target == ErrAlreadyExists
}

// IsInvalidTransition reports whether err is a rejected lifecycle action.
func IsInvalidTransition(err error) bool {
	var tErr *docrequest.InvalidTransitionError
	return errors.As(err, &tErr)
}

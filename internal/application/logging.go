package application

import (
	"context"
	"errors"
	"log/slog"

	"github.com/example/campus-portal/internal/logging"
	"github.com/example/campus-portal/internal/persistence"
	"github.com/example/campus-portal/internal/recurrence"
	"github.com/example/campus-portal/internal/scholarship"
)

func defaultLogger(logger *slog.Logger) *slog.Logger {
	return logging.OrDefault(logger)
}

func serviceLogger(ctx context.Context, base *slog.Logger, serviceName, operation string, attrs ...any) *slog.Logger {
	return logging.Component(ctx, base, "service", serviceName, operation, attrs...)
}

// ErrorKind maps sentinel and typed errors to a stable logging label.
func ErrorKind(err error) string {
	if err == nil {
		return ""
	}
	switch {
	case errors.Is(err, ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrAlreadyExists):
		return "already_exists"
	case errors.Is(err, ErrPaymentAlreadyCompleted):
		return "payment_already_completed"
	case errors.Is(err, ErrUnknownDocumentType):
		return "unknown_document_type"
	case errors.Is(err, ErrEventPublished):
		return "event_published"
	case errors.Is(err, scholarship.ErrNotEligible), errors.Is(err, scholarship.ErrAlreadyDecided):
		return "not_eligible"
	case errors.Is(err, persistence.ErrConflict):
		return "conflict"
	case IsInvalidTransition(err):
		return "invalid_transition"
	}

	var ruleErr *recurrence.RuleParseError
	if errors.As(err, &ruleErr) {
		return "rule_parse"
	}
	var vErr *ValidationError
	if errors.As(err, &vErr) {
		return "validation"
	}

	return "unexpected"
}

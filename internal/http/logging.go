package http

import (
	"context"
	"log/slog"

	"github.com/example/campus-portal/internal/logging"
)

func defaultLogger(logger *slog.Logger) *slog.Logger {
	return logging.OrDefault(logger)
}

// handlerLogger scopes the request logger, or fallback outside a request, to
// one handler operation.
func handlerLogger(ctx context.Context, fallback *slog.Logger, handlerName, operation string, attrs ...any) *slog.Logger {
	return logging.Component(ctx, fallback, "handler", handlerName, operation, attrs...)
}

// loggerFor returns the request logger when one is attached, else fallback.
func loggerFor(ctx context.Context, fallback *slog.Logger) *slog.Logger {
	if logger := LoggerFromContext(ctx); logger != nil {
		return logger
	}
	return defaultLogger(fallback)
}

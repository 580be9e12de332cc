package logging

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"
)

func TestContextWithLogger(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	ctx := ContextWithLogger(context.Background(), logger)
	if got := FromContext(ctx); got != logger {
		t.Fatalf("expected attached logger, got %v", got)
	}
	if got := FromContext(context.Background()); got != nil {
		t.Fatalf("expected nil without a logger, got %v", got)
	}
	if got := ContextWithLogger(context.Background(), nil); FromContext(got) != nil {
		t.Fatalf("expected nil logger to be ignored")
	}
}

func TestComponent(t *testing.T) {
	t.Run("prefers the request logger", func(t *testing.T) {
		var request, fallback bytes.Buffer
		requestLogger := slog.New(slog.NewTextHandler(&request, nil)).With("request_id", 7)
		ctx := ContextWithLogger(context.Background(), requestLogger)

		Component(ctx, slog.New(slog.NewTextHandler(&fallback, nil)), "service", "ScholarshipService", "ApproveRenewal", "renewal_id", "r-1").
			InfoContext(ctx, "renewal decided")

		out := request.String()
		for _, want := range []string{"request_id=7", "service=ScholarshipService", "operation=ApproveRenewal", "renewal_id=r-1"} {
			if !strings.Contains(out, want) {
				t.Fatalf("expected %q in %q", want, out)
			}
		}
		if fallback.Len() != 0 {
			t.Fatalf("expected fallback logger to stay unused, got %q", fallback.String())
		}
	})

	t.Run("uses the fallback outside requests", func(t *testing.T) {
		var buf bytes.Buffer
		ctx := context.Background()

		Component(ctx, slog.New(slog.NewTextHandler(&buf, nil)), "handler", "HealthHandler", "").InfoContext(ctx, "ok")

		out := buf.String()
		if !strings.Contains(out, "handler=HealthHandler") || strings.Contains(out, "operation=") {
			t.Fatalf("unexpected record %q", out)
		}
	})
}

func TestOrDefault(t *testing.T) {
	custom := slog.New(slog.NewTextHandler(io.Discard, nil))
	if OrDefault(custom) != custom {
		t.Fatalf("expected custom logger to be returned")
	}
	if OrDefault(nil) != slog.Default() {
		t.Fatalf("expected slog.Default for nil")
	}
}

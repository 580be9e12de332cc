package testfixtures

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/example/campus-portal/internal/persistence/sqlite"
)

// SQLiteHarness provides repository access backed by a temporary SQLite storage
// instance for integration-style persistence tests.
type SQLiteHarness struct {
	Store *sqlite.Store

	Requests   *sqlite.RequestRepository
	Payments   *sqlite.PaymentRepository
	Recipients *sqlite.RecipientRepository
	Events     *sqlite.EventRepository

	cleanup func()
}

// Close releases resources associated with the harness.
func (h *SQLiteHarness) Close() {
	if h != nil && h.cleanup != nil {
		h.cleanup()
		h.cleanup = nil
	}
}

// NewSQLiteHarness constructs a SQLiteHarness using a temporary file that is
// migrated automatically. Callers may optionally invoke Close, but the helper
// will also register a cleanup callback with the provided testing.TB.
func NewSQLiteHarness(tb testing.TB) *SQLiteHarness {
	tb.Helper()

	path := filepath.Join(tb.TempDir(), "portal.db")
	dsn := "file:" + path + "?_pragma=foreign_keys(1)"
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	store, err := sqlite.Open(context.Background(), dsn, logger)
	if err != nil {
		tb.Fatalf("failed to open storage: %v", err)
	}

	if err := store.Migrate(context.Background()); err != nil {
		_ = store.Close()
		tb.Fatalf("failed to migrate storage: %v", err)
	}

	harness := &SQLiteHarness{
		Store:      store,
		Requests:   store.Requests,
		Payments:   store.Payments,
		Recipients: store.Recipients,
		Events:     store.Events,
		cleanup: func() {
			_ = store.Close()
		},
	}

	tb.Cleanup(harness.Close)
	return harness
}

// SeedRequest stores a request fixture with its payment.
func (h *SQLiteHarness) SeedRequest(tb testing.TB, fixture RequestFixture) {
	tb.Helper()
	if err := h.Requests.CreateRequest(context.Background(), fixture.Request, fixture.Payment); err != nil {
		tb.Fatalf("failed to seed request %s: %v", fixture.Request.ID, err)
	}
}

// Package sqlite implements the persistence repositories on SQLite using the
// pure-Go modernc.org/sqlite driver. Times are stored as RFC 3339 UTC text.
package sqlite

import (
	"context"
	"embed"
	"fmt"
	"log/slog"

	"github.com/example/campus-portal/internal/persistence/sqlite/migration"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// Store bundles the SQLite repositories over one connection pool.
type Store struct {
	pool   *ConnectionPool
	logger *slog.Logger

	Requests   *RequestRepository
	Payments   *PaymentRepository
	Recipients *RecipientRepository
	Events     *EventRepository
}

// Open connects to dsn and returns a Store. Call Migrate before first use.
func Open(ctx context.Context, dsn string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	pool, err := NewConnectionPool(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &Store{
		pool:       pool,
		logger:     logger,
		Requests:   NewRequestRepository(pool),
		Payments:   NewPaymentRepository(pool),
		Recipients: NewRecipientRepository(pool),
		Events:     NewEventRepository(pool),
	}, nil
}

// Migrate applies the embedded schema migrations.
func (s *Store) Migrate(ctx context.Context) error {
	migrations, err := migration.Load(migrationFiles, "migrations")
	if err != nil {
		return fmt.Errorf("load migrations: %w", err)
	}
	if err := migration.NewRunner(s.pool.DB(), s.logger).Run(ctx, migrations); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	return nil
}

// Ping checks the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.pool.Close()
}

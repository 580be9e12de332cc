package migration

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
)

// Runner applies pending migrations in version order.
type Runner struct {
	executor Executor
	logger   *slog.Logger
}

// NewRunner creates a Runner backed by a SQLiteExecutor on db.
func NewRunner(db *sql.DB, logger *slog.Logger) *Runner {
	return NewRunnerWithExecutor(NewSQLiteExecutor(db), logger)
}

// NewRunnerWithExecutor creates a Runner using the provided executor.
func NewRunnerWithExecutor(executor Executor, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{executor: executor, logger: logger.With("component", "migration")}
}

// Run applies every migration in migrations that has not been applied yet.
// An applied migration whose checksum changed is reported as an error.
func (r *Runner) Run(ctx context.Context, migrations []Migration) error {
	if err := r.executor.InitializeVersionTable(ctx); err != nil {
		return fmt.Errorf("failed to initialize version table: %w", err)
	}

	pending, err := r.Pending(ctx, migrations)
	if err != nil {
		return err
	}
	if len(pending) == 0 {
		r.logger.DebugContext(ctx, "schema is up to date")
		return nil
	}

	for i, m := range pending {
		r.logger.InfoContext(ctx, "applying migration",
			"version", m.Version,
			"description", m.Description,
			"step", i+1,
			"total", len(pending),
		)
		if err := r.executor.ExecuteMigration(ctx, m); err != nil {
			r.logger.ErrorContext(ctx, "migration failed", "version", m.Version, "error", err)
			return NewMigrationError(m.Version, m.FilePath, "execute migration",
				fmt.Errorf("%w: %v", ErrMigrationFailed, err))
		}
	}

	r.logger.InfoContext(ctx, "migrations applied", "count", len(pending))
	return nil
}

// Pending returns the migrations that have not been applied.
func (r *Runner) Pending(ctx context.Context, migrations []Migration) ([]Migration, error) {
	applied, err := r.executor.GetAppliedVersions(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get applied versions: %w", err)
	}

	checksums := make(map[string]string, len(applied))
	for _, a := range applied {
		checksums[a.Version] = a.Checksum
	}

	var pending []Migration
	for _, m := range migrations {
		sum, ok := checksums[m.Version]
		if !ok {
			pending = append(pending, m)
			continue
		}
		if sum != "" && m.Checksum != "" && sum != m.Checksum {
			return nil, NewMigrationError(m.Version, m.FilePath, "verify checksum", ErrChecksumMismatch)
		}
	}
	return pending, nil
}

package migration

import (
	"context"
	"time"
)

// Migration is one versioned schema change.
type Migration struct {
	Version     string // Numeric version, e.g. "001"
	Description string
	SQL         string
	FilePath    string
	Checksum    string
}

// Executor applies migrations and tracks which versions have run.
type Executor interface {
	// ExecuteMigration runs a single migration within a transaction and
	// records it in the version table.
	ExecuteMigration(ctx context.Context, migration Migration) error

	// InitializeVersionTable creates the schema_migrations table if it doesn't exist.
	InitializeVersionTable(ctx context.Context) error

	// GetAppliedVersions returns all applied migration versions in ascending order.
	GetAppliedVersions(ctx context.Context) ([]AppliedMigration, error)
}

// AppliedMigration represents a migration that has been successfully applied.
type AppliedMigration struct {
	Version       string
	AppliedAt     time.Time
	ExecutionTime time.Duration
	Checksum      string
}

package migration

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"log/slog"
	"testing"

	_ "modernc.org/sqlite"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	return db
}

func testMigrations() []Migration {
	return []Migration{
		{Version: "001", Description: "create notes", SQL: "CREATE TABLE notes (id TEXT PRIMARY KEY);", Checksum: "a"},
		{Version: "002", Description: "add body", SQL: "ALTER TABLE notes ADD COLUMN body TEXT;", Checksum: "b"},
	}
}

func TestRunner_Run(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	runner := NewRunner(db, slog.New(slog.NewTextHandler(io.Discard, nil)))
	ctx := context.Background()

	if err := runner.Run(ctx, testMigrations()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if _, err := db.ExecContext(ctx, `INSERT INTO notes (id, body) VALUES ('n1', 'hello')`); err != nil {
		t.Fatalf("expected migrated schema, insert failed: %v", err)
	}

	// Second run is a no-op.
	if err := runner.Run(ctx, testMigrations()); err != nil {
		t.Fatalf("second Run failed: %v", err)
	}

	applied, err := NewSQLiteExecutor(db).GetAppliedVersions(ctx)
	if err != nil {
		t.Fatalf("GetAppliedVersions failed: %v", err)
	}
	if len(applied) != 2 || applied[0].Version != "001" || applied[1].Checksum != "b" {
		t.Fatalf("unexpected applied migrations %+v", applied)
	}
}

func TestRunner_ChecksumMismatch(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	runner := NewRunner(db, nil)
	ctx := context.Background()

	if err := runner.Run(ctx, testMigrations()[:1]); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	edited := testMigrations()
	edited[0].Checksum = "changed"
	if err := runner.Run(ctx, edited); !errors.Is(err, ErrChecksumMismatch) {
		t.Fatalf("expected ErrChecksumMismatch, got %v", err)
	}
}

func TestRunner_FailedMigrationRollsBack(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	runner := NewRunner(db, nil)
	ctx := context.Background()

	broken := []Migration{{
		Version: "001",
		SQL:     "CREATE TABLE ok (id TEXT);\nCREATE TABLE broken (;",
	}}
	err := runner.Run(ctx, broken)
	if !errors.Is(err, ErrMigrationFailed) {
		t.Fatalf("expected ErrMigrationFailed, got %v", err)
	}

	var count int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sqlite_master WHERE name = 'ok'`).Scan(&count); err != nil {
		t.Fatalf("query sqlite_master: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected partial migration to be rolled back")
	}

	pending, err := runner.Pending(ctx, broken)
	if err != nil || len(pending) != 1 {
		t.Fatalf("expected failed migration to remain pending, got %v (%v)", pending, err)
	}
}

package migration

import (
	"errors"
	"testing"
	"testing/fstest"
)

func TestLoad(t *testing.T) {
	t.Parallel()

	t.Run("sorts migrations by numeric version", func(t *testing.T) {
		fsys := fstest.MapFS{
			"migrations/010_add_index.sql":      {Data: []byte("CREATE INDEX idx ON t(a);")},
			"migrations/002_second.sql":         {Data: []byte("-- Description: add column\nALTER TABLE t ADD COLUMN b TEXT;")},
			"migrations/001_initial_schema.sql": {Data: []byte("CREATE TABLE t (a TEXT);")},
			"migrations/README.md":              {Data: []byte("ignored")},
		}

		migrations, err := Load(fsys, "migrations")
		if err != nil {
			t.Fatalf("Load returned error: %v", err)
		}
		if len(migrations) != 3 {
			t.Fatalf("expected 3 migrations, got %d", len(migrations))
		}
		want := []string{"001", "002", "010"}
		for i, m := range migrations {
			if m.Version != want[i] {
				t.Fatalf("position %d: expected version %s, got %s", i, want[i], m.Version)
			}
			if m.Checksum == "" {
				t.Fatalf("expected checksum for %s", m.Version)
			}
		}
		if migrations[0].Description != "initial schema" {
			t.Fatalf("expected description from filename, got %q", migrations[0].Description)
		}
		if migrations[1].Description != "add column" {
			t.Fatalf("expected description from content, got %q", migrations[1].Description)
		}
	})

	t.Run("rejects duplicate versions", func(t *testing.T) {
		fsys := fstest.MapFS{
			"m/001_a.sql": {Data: []byte("CREATE TABLE a (x TEXT);")},
			"m/001_b.sql": {Data: []byte("CREATE TABLE b (x TEXT);")},
		}
		if _, err := Load(fsys, "m"); !errors.Is(err, ErrDuplicateVersion) {
			t.Fatalf("expected ErrDuplicateVersion, got %v", err)
		}
	})

	t.Run("rejects badly named and empty files", func(t *testing.T) {
		if _, err := Load(fstest.MapFS{"m/initial.sql": {Data: []byte("SELECT 1;")}}, "m"); !errors.Is(err, ErrInvalidMigrationFile) {
			t.Fatalf("expected ErrInvalidMigrationFile for bad name, got %v", err)
		}
		if _, err := Load(fstest.MapFS{"m/001_empty.sql": {Data: []byte("-- nothing here\n")}}, "m"); !errors.Is(err, ErrInvalidMigrationFile) {
			t.Fatalf("expected ErrInvalidMigrationFile for empty file, got %v", err)
		}
	})
}

func TestSplitStatements(t *testing.T) {
	t.Parallel()

	statements := splitStatements("-- header\nCREATE TABLE a (x TEXT);\n\n-- second\nCREATE TABLE b (y TEXT);\n")
	if len(statements) != 2 {
		t.Fatalf("expected 2 statements, got %d: %q", len(statements), statements)
	}
	if statements[1] != "CREATE TABLE b (y TEXT)" {
		t.Fatalf("unexpected statement %q", statements[1])
	}
}

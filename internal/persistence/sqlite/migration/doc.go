// Package migration applies versioned SQL migrations to a SQLite database.
//
// Migrations are read from an fs.FS, typically an embed.FS compiled into the
// binary, and must be named {version}_{description}.sql (for example
// "001_initial_schema.sql"). Each migration runs in its own transaction and
// is recorded in the schema_migrations table so it is applied only once.
//
// Example usage:
//
//	migrations, err := migration.Load(files, "migrations")
//	if err != nil {
//		return err
//	}
//	runner := migration.NewRunner(db, logger)
//	if err := runner.Run(ctx, migrations); err != nil {
//		return err
//	}
package migration

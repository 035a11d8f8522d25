package crmfake

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// OpenDB opens a SQLite database at dsn with WAL, foreign keys and a 5s busy
// timeout. Use ":memory:" for tests.
func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// One connection: SQLite serialises writers anyway, and an in-memory
	// database exists per connection.
	db.SetMaxOpenConns(1)

	for _, p := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	} {
		if _, err := db.Exec(p); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("exec %q: %w", p, err)
		}
	}
	return db, nil
}

// Migrate applies pending schema migrations, each in its own transaction.
// Applied versions are tracked in schema_migrations.
func Migrate(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		version INTEGER PRIMARY KEY,
		applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`); err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}

	for i, stmts := range migrations {
		version := i + 1

		var applied int
		if err := db.QueryRowContext(ctx,
			"SELECT COUNT(*) FROM schema_migrations WHERE version = ?", version,
		).Scan(&applied); err != nil {
			return fmt.Errorf("check migration %d: %w", version, err)
		}
		if applied > 0 {
			continue
		}

		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin migration %d: %w", version, err)
		}
		for _, stmt := range stmts {
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				_ = tx.Rollback()
				return fmt.Errorf("migration %d: %w", version, err)
			}
		}
		if _, err := tx.ExecContext(ctx, "INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("record migration %d: %w", version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %d: %w", version, err)
		}
	}
	return nil
}

var migrations = [][]string{
	{
		`CREATE TABLE objects (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			object_type TEXT NOT NULL,
			archived BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		)`,
		`CREATE INDEX idx_objects_type ON objects(object_type, archived)`,

		`CREATE TABLE property_values (
			object_id INTEGER NOT NULL,
			property_name TEXT NOT NULL,
			value TEXT,
			updated_at TEXT NOT NULL,
			PRIMARY KEY (object_id, property_name),
			FOREIGN KEY (object_id) REFERENCES objects(id) ON DELETE CASCADE
		)`,

		`CREATE TABLE associations (
			from_object_id INTEGER NOT NULL,
			to_object_id INTEGER NOT NULL,
			association_category TEXT NOT NULL,
			association_type_id INTEGER NOT NULL,
			created_at TEXT NOT NULL,
			PRIMARY KEY (from_object_id, to_object_id, association_type_id),
			FOREIGN KEY (from_object_id) REFERENCES objects(id) ON DELETE CASCADE,
			FOREIGN KEY (to_object_id) REFERENCES objects(id) ON DELETE CASCADE
		)`,
		`CREATE INDEX idx_associations_from ON associations(from_object_id)`,

		`CREATE TABLE pipelines (
			id TEXT PRIMARY KEY,
			object_type TEXT NOT NULL,
			label TEXT NOT NULL,
			display_order INTEGER NOT NULL DEFAULT 0,
			archived BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		)`,

		`CREATE TABLE pipeline_stages (
			id TEXT NOT NULL,
			pipeline_id TEXT NOT NULL,
			label TEXT NOT NULL,
			display_order INTEGER NOT NULL DEFAULT 0,
			metadata TEXT,
			archived BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL,
			PRIMARY KEY (pipeline_id, id),
			FOREIGN KEY (pipeline_id) REFERENCES pipelines(id) ON DELETE CASCADE
		)`,
	},
}

// Open opens, migrates and seeds the emulator database.
func Open(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := OpenDB(dsn)
	if err != nil {
		return nil, err
	}
	if err := Migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	if err := Seed(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("seed data: %w", err)
	}
	return db, nil
}

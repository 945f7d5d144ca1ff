package storage

import (
	"context"
	"database/sql"
	"fmt"
)

// MigrationVersion tracks the current database schema version.
const MigrationVersion = 1

// InitializeDatabase creates the SQLite schema for stored key map profiles.
// Applied versions are recorded in the migrations table.
func InitializeDatabase(ctx context.Context, db *sql.DB) error {
	migrationsTable := `
	CREATE TABLE IF NOT EXISTS migrations (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		version INTEGER NOT NULL UNIQUE,
		applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);`

	if _, err := db.ExecContext(ctx, migrationsTable); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	var currentVersion int
	err := db.QueryRowContext(ctx, "SELECT COALESCE(MAX(version), 0) FROM migrations").Scan(&currentVersion)
	if err != nil {
		return fmt.Errorf("failed to check migration version: %w", err)
	}

	if currentVersion < 1 {
		if err := applyMigration1(ctx, db); err != nil {
			return fmt.Errorf("failed to apply migration 1: %w", err)
		}
	}

	return nil
}

// applyMigration1 creates the profile, command and key map tables.
func applyMigration1(ctx context.Context, db *sql.DB) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	statements := []struct {
		what string
		sql  string
	}{
		{"profiles table", `
		CREATE TABLE profiles (
			name TEXT PRIMARY KEY,
			updated_at TIMESTAMP NOT NULL
		);`},
		// steps holds a JSON array of strings
		{"commands table", `
		CREATE TABLE commands (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			profile TEXT NOT NULL,
			position INTEGER NOT NULL,
			name TEXT NOT NULL,
			type TEXT NOT NULL,
			steps TEXT NOT NULL,
			when_expr TEXT NOT NULL,
			FOREIGN KEY (profile) REFERENCES profiles(name) ON DELETE CASCADE
		);`},
		// keys and modes hold JSON arrays of strings
		{"key_maps table", `
		CREATE TABLE key_maps (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			profile TEXT NOT NULL,
			position INTEGER NOT NULL,
			keys TEXT NOT NULL,
			command TEXT NOT NULL,
			modes TEXT NOT NULL,
			FOREIGN KEY (profile) REFERENCES profiles(name) ON DELETE CASCADE
		);`},
		{"commands index", "CREATE INDEX idx_commands_profile ON commands(profile, position);"},
		{"key_maps index", "CREATE INDEX idx_key_maps_profile ON key_maps(profile, position);"},
	}

	for _, st := range statements {
		if _, err := tx.ExecContext(ctx, st.sql); err != nil {
			return fmt.Errorf("failed to create %s: %w", st.what, err)
		}
	}

	if _, err := tx.ExecContext(ctx, "INSERT INTO migrations (version) VALUES (?)", 1); err != nil {
		return fmt.Errorf("failed to record migration: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit migration: %w", err)
	}

	return nil
}

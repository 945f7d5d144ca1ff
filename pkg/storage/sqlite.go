package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/dshills/keychord/pkg/config"
	"github.com/tidwall/gjson"
	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// SQLiteRepository implements Repository using SQLite storage. Records keep
// their configuration order so a loaded profile builds the same engine.
type SQLiteRepository struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLiteRepository creates a repository at ~/.keychord/keychord.db.
func NewSQLiteRepository(ctx context.Context) (*SQLiteRepository, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get user home directory: %w", err)
	}
	return NewSQLiteRepositoryWithPath(ctx, filepath.Join(homeDir, ".keychord", "keychord.db"))
}

// NewSQLiteRepositoryWithPath creates a repository with a custom database path.
func NewSQLiteRepositoryWithPath(ctx context.Context, dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite works best with a single connection
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := InitializeDatabase(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	return &SQLiteRepository{db: db, now: time.Now}, nil
}

// Close closes the database connection.
func (r *SQLiteRepository) Close() error {
	return r.db.Close()
}

// Save replaces the records stored under profile with data.
func (r *SQLiteRepository) Save(ctx context.Context, profile string, data config.Data) error {
	if err := checkProfile(profile); err != nil {
		return err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := deleteProfile(ctx, tx, profile); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx,
		"INSERT INTO profiles (name, updated_at) VALUES (?, ?)",
		profile, r.now().UTC(),
	); err != nil {
		return fmt.Errorf("failed to save profile: %w", err)
	}

	for i, c := range data.Commands {
		steps, err := encodeList(c.Steps)
		if err != nil {
			return fmt.Errorf("failed to encode steps of command %s: %w", c.Name, err)
		}
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO commands (profile, position, name, type, steps, when_expr) VALUES (?, ?, ?, ?, ?, ?)",
			profile, i, c.Name, string(c.Type), steps, c.When,
		); err != nil {
			return fmt.Errorf("failed to save command %s: %w", c.Name, err)
		}
	}

	for i, km := range data.KeyMaps {
		keys, err := encodeList(km.Keys)
		if err != nil {
			return fmt.Errorf("failed to encode keys: %w", err)
		}
		modes, err := encodeList(km.Modes)
		if err != nil {
			return fmt.Errorf("failed to encode modes: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO key_maps (profile, position, keys, command, modes) VALUES (?, ?, ?, ?, ?)",
			profile, i, keys, km.Command, modes,
		); err != nil {
			return fmt.Errorf("failed to save key map for command %s: %w", km.Command, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Load restores the records stored under profile in their saved order.
func (r *SQLiteRepository) Load(ctx context.Context, profile string) (config.Data, error) {
	if err := checkProfile(profile); err != nil {
		return config.Data{}, err
	}

	var exists int
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM profiles WHERE name = ?", profile).Scan(&exists)
	if err != nil {
		return config.Data{}, fmt.Errorf("failed to load profile: %w", err)
	}
	if exists == 0 {
		return config.Data{}, fmt.Errorf("%w: %s", ErrProfileNotFound, profile)
	}

	var data config.Data

	rows, err := r.db.QueryContext(ctx,
		"SELECT name, type, steps, when_expr FROM commands WHERE profile = ? ORDER BY position",
		profile,
	)
	if err != nil {
		return config.Data{}, fmt.Errorf("failed to query commands: %w", err)
	}
	for rows.Next() {
		var c config.Command
		var typ, steps string
		if err := rows.Scan(&c.Name, &typ, &steps, &c.When); err != nil {
			_ = rows.Close()
			return config.Data{}, fmt.Errorf("failed to scan command: %w", err)
		}
		c.Type = config.CommandType(typ)
		c.Steps = decodeList(steps)
		data.Commands = append(data.Commands, c)
	}
	if err := closeRows(rows); err != nil {
		return config.Data{}, fmt.Errorf("failed to read commands: %w", err)
	}

	rows, err = r.db.QueryContext(ctx,
		"SELECT keys, command, modes FROM key_maps WHERE profile = ? ORDER BY position",
		profile,
	)
	if err != nil {
		return config.Data{}, fmt.Errorf("failed to query key maps: %w", err)
	}
	for rows.Next() {
		var km config.KeyMap
		var keys, modes string
		if err := rows.Scan(&keys, &km.Command, &modes); err != nil {
			_ = rows.Close()
			return config.Data{}, fmt.Errorf("failed to scan key map: %w", err)
		}
		km.Keys = decodeList(keys)
		km.Modes = decodeList(modes)
		data.KeyMaps = append(data.KeyMaps, km)
	}
	if err := closeRows(rows); err != nil {
		return config.Data{}, fmt.Errorf("failed to read key maps: %w", err)
	}

	return data, nil
}

// List returns every stored profile ordered by name.
func (r *SQLiteRepository) List(ctx context.Context) ([]Profile, error) {
	query := `
		SELECT p.name, p.updated_at,
		       (SELECT COUNT(*) FROM commands c WHERE c.profile = p.name),
		       (SELECT COUNT(*) FROM key_maps k WHERE k.profile = p.name)
		FROM profiles p
		ORDER BY p.name
	`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list profiles: %w", err)
	}

	profiles := make([]Profile, 0)
	for rows.Next() {
		var p Profile
		if err := rows.Scan(&p.Name, &p.UpdatedAt, &p.Commands, &p.KeyMaps); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("failed to scan profile: %w", err)
		}
		profiles = append(profiles, p)
	}
	if err := closeRows(rows); err != nil {
		return nil, fmt.Errorf("failed to list profiles: %w", err)
	}
	return profiles, nil
}

// Delete removes a profile and its records.
func (r *SQLiteRepository) Delete(ctx context.Context, profile string) error {
	if err := checkProfile(profile); err != nil {
		return err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	result, err := tx.ExecContext(ctx, "DELETE FROM profiles WHERE name = ?", profile)
	if err != nil {
		return fmt.Errorf("failed to delete profile: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check delete result: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%w: %s", ErrProfileNotFound, profile)
	}

	if err := deleteProfile(ctx, tx, profile); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func deleteProfile(ctx context.Context, tx *sql.Tx, profile string) error {
	for _, table := range []string{"commands", "key_maps", "profiles"} {
		column := "profile"
		if table == "profiles" {
			column = "name"
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table+" WHERE "+column+" = ?", profile); err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}
	return nil
}

func closeRows(rows *sql.Rows) error {
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return err
	}
	return rows.Close()
}

func encodeList(items []string) (string, error) {
	if items == nil {
		items = []string{}
	}
	b, err := json.Marshal(items)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func decodeList(s string) []string {
	result := gjson.Parse(s)
	if !result.IsArray() {
		return nil
	}
	arr := result.Array()
	if len(arr) == 0 {
		return nil
	}
	out := make([]string, len(arr))
	for i, v := range arr {
		out[i] = v.String()
	}
	return out
}

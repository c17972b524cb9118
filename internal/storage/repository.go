// Package storage persists ledger snapshots, one JSON document per user.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// ErrEmptyUser is returned for a blank user id.
var ErrEmptyUser = errors.New("empty user id")

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// A single writer keeps sqlite from returning SQLITE_BUSY under concurrent puts.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping reports whether the database is reachable.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// GetSnapshot returns the stored document of a user. The boolean is false when
// the user has never stored one.
func (r *SQLiteRepository) GetSnapshot(ctx context.Context, userID string) ([]byte, bool, error) {
	if userID == "" {
		return nil, false, ErrEmptyUser
	}
	var state string
	err := r.db.QueryRowContext(ctx,
		`SELECT state_json FROM states WHERE user_id = ?`, userID).Scan(&state)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get snapshot %s: %w", userID, err)
	}
	return []byte(state), true, nil
}

// PutSnapshot stores the document of a user, replacing any previous one.
func (r *SQLiteRepository) PutSnapshot(ctx context.Context, userID string, data []byte) error {
	if userID == "" {
		return ErrEmptyUser
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO states (user_id, state_json, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			state_json = excluded.state_json,
			updated_at = excluded.updated_at`,
		userID, string(data), now)
	if err != nil {
		return fmt.Errorf("put snapshot %s: %w", userID, err)
	}

	slog.DebugContext(ctx, "Snapshot saved to SQLite",
		"user_id", userID,
		"bytes", len(data))
	return nil
}

// DeleteSnapshot removes the document of a user. Deleting a missing one is not an error.
func (r *SQLiteRepository) DeleteSnapshot(ctx context.Context, userID string) error {
	if userID == "" {
		return ErrEmptyUser
	}
	if _, err := r.db.ExecContext(ctx, `DELETE FROM states WHERE user_id = ?`, userID); err != nil {
		return fmt.Errorf("delete snapshot %s: %w", userID, err)
	}
	return nil
}

// UpdatedAt returns when the user's document was last written.
func (r *SQLiteRepository) UpdatedAt(ctx context.Context, userID string) (time.Time, bool, error) {
	var raw string
	err := r.db.QueryRowContext(ctx,
		`SELECT updated_at FROM states WHERE user_id = ?`, userID).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("get updated_at %s: %w", userID, err)
	}
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("parse updated_at %q: %w", raw, err)
	}
	return t, true, nil
}

// ListUsers returns every user id with a stored document.
func (r *SQLiteRepository) ListUsers(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT user_id FROM states ORDER BY user_id`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var users []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, id)
	}
	return users, rows.Err()
}

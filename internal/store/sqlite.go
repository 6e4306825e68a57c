// ABOUTME: SQLite implementation of the TokenStore interface using modernc.org/sqlite
// ABOUTME: Persists session tokens per profile with automatic schema creation

package store

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

// SQLiteStore implements TokenStore using SQLite
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewSQLiteStore creates a new SQLite store at the given path.
// The schema is automatically created if it doesn't exist.
// Parent directories are created if needed.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	logger := slog.Default().With("component", "store")

	// Tokens are credentials; keep the directory private
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Enable WAL mode for better concurrent performance
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	s := &SQLiteStore{
		db:     db,
		logger: logger,
	}

	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	logger.Debug("SQLite store initialized", "path", path)
	return s, nil
}

// createSchema creates the database tables if they don't exist
func (s *SQLiteStore) createSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS session_tokens (
			profile       TEXT PRIMARY KEY,
			access_token  TEXT NOT NULL,
			refresh_token TEXT NOT NULL,
			updated_at    TEXT NOT NULL
		);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// LoadTokens returns the token pair stored for profile, or ErrNotFound
func (s *SQLiteStore) LoadTokens(ctx context.Context, profile string) (*Tokens, error) {
	if profile == "" {
		return nil, ErrEmptyProfile
	}

	query := `
		SELECT access_token, refresh_token, updated_at
		FROM session_tokens
		WHERE profile = ?
	`

	var t Tokens
	var updatedAt string
	err := s.db.QueryRowContext(ctx, query, profile).Scan(&t.Access, &t.Refresh, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying tokens: %w", err)
	}

	t.UpdatedAt, err = time.Parse(time.RFC3339Nano, updatedAt)
	if err != nil {
		return nil, fmt.Errorf("parsing updated_at: %w", err)
	}

	return &t, nil
}

// SaveTokens stores the token pair for profile, replacing any previous pair
func (s *SQLiteStore) SaveTokens(ctx context.Context, profile string, tokens *Tokens) error {
	if profile == "" {
		return ErrEmptyProfile
	}

	updatedAt := tokens.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now()
	}

	query := `
		INSERT INTO session_tokens (profile, access_token, refresh_token, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(profile) DO UPDATE SET
			access_token = excluded.access_token,
			refresh_token = excluded.refresh_token,
			updated_at = excluded.updated_at
	`

	_, err := s.db.ExecContext(ctx, query,
		profile,
		tokens.Access,
		tokens.Refresh,
		updatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("saving tokens: %w", err)
	}

	s.logger.Debug("tokens saved", "profile", profile)
	return nil
}

// DeleteTokens removes the token pair for profile. Deleting an absent pair is not an error.
func (s *SQLiteStore) DeleteTokens(ctx context.Context, profile string) error {
	if profile == "" {
		return ErrEmptyProfile
	}

	if _, err := s.db.ExecContext(ctx, `DELETE FROM session_tokens WHERE profile = ?`, profile); err != nil {
		return fmt.Errorf("deleting tokens: %w", err)
	}

	s.logger.Debug("tokens deleted", "profile", profile)
	return nil
}

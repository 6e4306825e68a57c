// ABOUTME: Tests for SQLite token store implementation
// ABOUTME: Covers schema creation, token round trips, profile isolation and deletion

package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestNewSQLiteStore(t *testing.T) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "test.db")

	store, err := NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("NewSQLiteStore failed: %v", err)
	}
	defer store.Close()

	// Verify the database file was created
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Error("database file was not created")
	}
}

func TestNewSQLiteStore_CreatesDirectory(t *testing.T) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "subdir", "nested", "test.db")

	store, err := NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("NewSQLiteStore failed: %v", err)
	}
	defer store.Close()

	if _, err := os.Stat(filepath.Dir(dbPath)); os.IsNotExist(err) {
		t.Error("parent directory was not created")
	}
}

func TestSQLiteStore_SaveAndLoadTokens(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()

	updated := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	err := s.SaveTokens(ctx, "http://api.test", &Tokens{
		Access:    "access-1",
		Refresh:   "refresh-1",
		UpdatedAt: updated,
	})
	require.NoError(t, err)

	got, err := s.LoadTokens(ctx, "http://api.test")
	require.NoError(t, err)
	assert.Equal(t, "access-1", got.Access)
	assert.Equal(t, "refresh-1", got.Refresh)
	assert.True(t, updated.Equal(got.UpdatedAt))
}

func TestSQLiteStore_SaveTokensOverwrites(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveTokens(ctx, "p", &Tokens{Access: "old", Refresh: "old-r"}))
	require.NoError(t, s.SaveTokens(ctx, "p", &Tokens{Access: "new", Refresh: "new-r"}))

	got, err := s.LoadTokens(ctx, "p")
	require.NoError(t, err)
	assert.Equal(t, "new", got.Access)
	assert.Equal(t, "new-r", got.Refresh)
}

func TestSQLiteStore_LoadTokensNotFound(t *testing.T) {
	s := newTestSQLiteStore(t)

	_, err := s.LoadTokens(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLiteStore_ProfilesAreIsolated(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveTokens(ctx, "http://a", &Tokens{Access: "a"}))
	require.NoError(t, s.SaveTokens(ctx, "http://b", &Tokens{Access: "b"}))

	a, err := s.LoadTokens(ctx, "http://a")
	require.NoError(t, err)
	b, err := s.LoadTokens(ctx, "http://b")
	require.NoError(t, err)

	assert.Equal(t, "a", a.Access)
	assert.Equal(t, "b", b.Access)
}

func TestSQLiteStore_DeleteTokens(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveTokens(ctx, "p", &Tokens{Access: "a", Refresh: "r"}))
	require.NoError(t, s.DeleteTokens(ctx, "p"))

	_, err := s.LoadTokens(ctx, "p")
	assert.ErrorIs(t, err, ErrNotFound)

	// Deleting again is fine
	assert.NoError(t, s.DeleteTokens(ctx, "p"))
}

func TestSQLiteStore_EmptyProfile(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()

	_, err := s.LoadTokens(ctx, "")
	assert.ErrorIs(t, err, ErrEmptyProfile)
	assert.ErrorIs(t, s.SaveTokens(ctx, "", &Tokens{}), ErrEmptyProfile)
	assert.ErrorIs(t, s.DeleteTokens(ctx, ""), ErrEmptyProfile)
}

func TestSQLiteStore_PersistsAcrossReopen(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")
	ctx := context.Background()

	s1, err := NewSQLiteStore(dbPath)
	require.NoError(t, err)
	require.NoError(t, s1.SaveTokens(ctx, "p", &Tokens{Access: "persisted", Refresh: "r"}))
	require.NoError(t, s1.Close())

	s2, err := NewSQLiteStore(dbPath)
	require.NoError(t, err)
	defer s2.Close()

	got, err := s2.LoadTokens(ctx, "p")
	require.NoError(t, err)
	assert.Equal(t, "persisted", got.Access)
}

// ABOUTME: Mock TokenStore implementation for testing
// ABOUTME: Allows tests to run without SQLite

package store

import (
	"context"
	"sync"
	"time"
)

// MockStore is an in-memory TokenStore implementation for testing.
type MockStore struct {
	mu     sync.RWMutex
	tokens map[string]*Tokens // keyed by profile

	// SaveErr, when set, is returned by SaveTokens
	SaveErr error
}

// NewMockStore creates a new MockStore.
func NewMockStore() *MockStore {
	return &MockStore{
		tokens: make(map[string]*Tokens),
	}
}

// LoadTokens returns a copy of the stored pair.
func (m *MockStore) LoadTokens(ctx context.Context, profile string) (*Tokens, error) {
	if profile == "" {
		return nil, ErrEmptyProfile
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	t, ok := m.tokens[profile]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *t
	return &cp, nil
}

// SaveTokens stores a copy of the pair.
func (m *MockStore) SaveTokens(ctx context.Context, profile string, tokens *Tokens) error {
	if profile == "" {
		return ErrEmptyProfile
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.SaveErr != nil {
		return m.SaveErr
	}

	cp := *tokens
	if cp.UpdatedAt.IsZero() {
		cp.UpdatedAt = time.Now()
	}
	m.tokens[profile] = &cp
	return nil
}

// DeleteTokens removes the pair for profile.
func (m *MockStore) DeleteTokens(ctx context.Context, profile string) error {
	if profile == "" {
		return ErrEmptyProfile
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.tokens, profile)
	return nil
}

// Close is a no-op.
func (m *MockStore) Close() error {
	return nil
}

// Len returns the number of stored profiles.
func (m *MockStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.tokens)
}

// ABOUTME: TokenStore interface and data types for zeeking client persistence
// ABOUTME: The token pair is the only state that survives a restart

package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when no tokens are stored for a profile
var ErrNotFound = errors.New("not found")

// ErrEmptyProfile is returned when a profile key is blank
var ErrEmptyProfile = errors.New("profile is required")

// Tokens is a persisted access/refresh token pair
type Tokens struct {
	Access    string
	Refresh   string
	UpdatedAt time.Time
}

// TokenStore persists the session token pair keyed by profile.
// Implementations must make a completed SaveTokens or DeleteTokens visible
// to every subsequent LoadTokens.
type TokenStore interface {
	LoadTokens(ctx context.Context, profile string) (*Tokens, error)
	SaveTokens(ctx context.Context, profile string, tokens *Tokens) error
	DeleteTokens(ctx context.Context, profile string) error
	Close() error
}

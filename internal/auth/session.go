// ABOUTME: Authentication session holding the token pair with write-through persistence
// ABOUTME: Tracks token generations so a rejected credential is expired exactly once

package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/2389/zeeking/internal/client"
	"github.com/2389/zeeking/internal/store"
)

// State is the authentication state of a Session.
type State int

const (
	Anonymous State = iota
	Authenticated
)

func (s State) String() string {
	if s == Authenticated {
		return "authenticated"
	}
	return "anonymous"
}

// Tokens is the credential pair of an authenticated session.
type Tokens struct {
	Access  string
	Refresh string
}

// Credentials are the login form fields.
type Credentials struct {
	Email    string
	Password string
}

// Profile holds the registration form fields.
type Profile struct {
	FullName        string
	Email           string
	Password        string
	ConfirmPassword string
}

// Backend is the subset of the transport the session needs.
type Backend interface {
	Login(ctx context.Context, req client.LoginRequest) (*client.AuthResponse, error)
	Register(ctx context.Context, req client.RegisterRequest) (*client.AuthResponse, error)
}

// Session owns the token pair. It is safe for concurrent use and is the
// client.TokenSource for every outgoing request.
type Session struct {
	mu         sync.Mutex
	tokens     Tokens
	state      State
	generation uint64

	backend Backend
	store   store.TokenStore
	profile string
	logger  *slog.Logger
	now     func() time.Time
}

// NewSession creates an anonymous session persisting to st under profile.
// Call SetBackend before Login or Register.
func NewSession(st store.TokenStore, profile string, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	return &Session{
		store:   st,
		profile: profile,
		logger:  logger.With("component", "session"),
		now:     time.Now,
	}
}

// SetBackend sets the transport used by Login and Register. The transport
// usually takes the session as its TokenSource, hence the separate step.
func (s *Session) SetBackend(b Backend) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.backend = b
}

func (s *Session) getBackend() Backend {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.backend
}

// AccessToken returns the current access token ("" when anonymous) and its
// generation.
func (s *Session) AccessToken() (string, uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tokens.Access, s.generation
}

// Tokens returns a copy of the current pair.
func (s *Session) Tokens() Tokens {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tokens
}

// State returns the current authentication state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Authenticated reports whether the session holds a token pair.
func (s *Session) Authenticated() bool {
	return s.State() == Authenticated
}

// Restore loads a persisted pair. A missing pair, or one whose access token
// has expired, leaves the session anonymous. Reports whether the session
// is authenticated afterwards.
func (s *Session) Restore(ctx context.Context) (bool, error) {
	t, err := s.store.LoadTokens(ctx, s.profile)
	if errors.Is(err, store.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("loading session: %w", err)
	}

	if t.Access == "" || accessExpired(t.Access, s.now()) {
		s.logger.Info("discarding expired session")
		if err := s.store.DeleteTokens(ctx, s.profile); err != nil {
			return false, fmt.Errorf("discarding expired session: %w", err)
		}
		return false, nil
	}

	s.mu.Lock()
	s.tokens = Tokens{Access: t.Access, Refresh: t.Refresh}
	s.state = Authenticated
	s.generation++
	s.mu.Unlock()

	s.logger.Debug("session restored")
	return true, nil
}

// Login authenticates with email and password.
func (s *Session) Login(ctx context.Context, creds Credentials) error {
	const op = "login"

	email := strings.TrimSpace(creds.Email)
	if email == "" || creds.Password == "" {
		return invalidInput(op, msgFillAllFields)
	}

	backend := s.getBackend()
	if backend == nil {
		return &AuthError{Op: op, Message: msgLoginFailed, Err: ErrNoBackend}
	}

	resp, err := backend.Login(ctx, client.LoginRequest{Email: email, Password: creds.Password})
	if err != nil {
		return failure(op, err, msgLoginFailed)
	}
	if resp.Tokens == nil || resp.Tokens.Access == "" {
		return &AuthError{Op: op, Message: msgLoginNoAccess, Err: ErrNoAccess}
	}

	s.establish(ctx, Tokens{Access: resp.Tokens.Access, Refresh: resp.Tokens.Refresh})
	s.logger.Info("logged in")
	return nil
}

// Register creates an account and authenticates with it. Returns the
// server's welcome message.
func (s *Session) Register(ctx context.Context, p Profile) (string, error) {
	const op = "register"

	if p.Password != p.ConfirmPassword {
		return "", invalidInput(op, msgPasswordsDiffer)
	}

	backend := s.getBackend()
	if backend == nil {
		return "", &AuthError{Op: op, Message: msgRegisterFailed, Err: ErrNoBackend}
	}

	resp, err := backend.Register(ctx, client.RegisterRequest{
		FullName:        p.FullName,
		Email:           strings.TrimSpace(p.Email),
		Password:        p.Password,
		ConfirmPassword: p.ConfirmPassword,
	})
	if err != nil {
		return "", failure(op, err, msgRegisterFailed)
	}
	if resp.Tokens == nil || resp.Tokens.Access == "" {
		return "", &AuthError{Op: op, Message: msgRegisterNoAccess, Err: ErrNoAccess}
	}

	s.establish(ctx, Tokens{Access: resp.Tokens.Access, Refresh: resp.Tokens.Refresh})
	s.logger.Info("registered")

	if resp.Message != "" {
		return resp.Message, nil
	}
	return msgRegistered, nil
}

// establish stores a new pair in memory and in the durable store. A failed
// write is logged; the in-memory session stays valid for this run.
func (s *Session) establish(ctx context.Context, t Tokens) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.tokens = t
	s.state = Authenticated
	s.generation++

	if err := s.store.SaveTokens(ctx, s.profile, &store.Tokens{Access: t.Access, Refresh: t.Refresh}); err != nil {
		s.logger.Warn("failed to persist session", "error", err)
	}
}

// clear drops the pair. Caller holds s.mu.
func (s *Session) clear(ctx context.Context) error {
	s.tokens = Tokens{}
	s.state = Anonymous
	s.generation++

	if err := s.store.DeleteTokens(ctx, s.profile); err != nil {
		return fmt.Errorf("deleting session: %w", err)
	}
	return nil
}

// Logout clears the session locally. No request is made.
func (s *Session) Logout(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.clear(ctx); err != nil {
		return err
	}
	s.logger.Info("logged out")
	return nil
}

// Expire clears the session after the backend rejected the credential of
// the given generation. It returns true only for the first rejection of
// the current credential; stale or repeated rejections return false.
func (s *Session) Expire(ctx context.Context, generation uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != Authenticated || generation != s.generation {
		return false
	}

	if err := s.clear(ctx); err != nil {
		s.logger.Warn("failed to delete expired session", "error", err)
	}
	s.logger.Info("session expired")
	return true
}

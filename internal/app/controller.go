// ABOUTME: Top-level controller owning the session, transport, conversation state and usage
// ABOUTME: Funnels every error through one place so an expired session logs out exactly once

package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/2389/zeeking/internal/auth"
	"github.com/2389/zeeking/internal/client"
	"github.com/2389/zeeking/internal/config"
	"github.com/2389/zeeking/internal/conversation"
	"github.com/2389/zeeking/internal/store"
	"github.com/2389/zeeking/internal/transcript"
	"github.com/2389/zeeking/internal/usage"
)

// ErrClosed is returned by operations on a closed Controller.
var ErrClosed = errors.New("controller is closed")

// Navigator moves the front end between screens.
type Navigator interface {
	// ToLogin shows the login surface after the session ended.
	ToLogin()
}

// NavigatorFunc adapts a function to Navigator.
type NavigatorFunc func()

func (f NavigatorFunc) ToLogin() { f() }

// Options configures a Controller.
type Options struct {
	// Tokens persists the session. When nil, a SQLite store is opened at
	// Config.Storage.Path and closed with the Controller.
	Tokens store.TokenStore

	Navigator Navigator

	// Confirmer approves deletes; when nil every delete is declined
	Confirmer conversation.Confirmer

	Logger *slog.Logger
}

// Controller is the single owner of the client runtime.
type Controller struct {
	cfg      *config.Config
	session  *auth.Session
	client   *client.Client
	recovery *auth.Recovery
	convs    *conversation.Store
	exchange *conversation.Exchange
	usage    *usage.Tracker
	resets   *conversation.ResetSignal

	tokens     store.TokenStore
	ownsTokens bool
	nav        Navigator
	logger     *slog.Logger

	// background work
	ctx    context.Context
	cancel context.CancelFunc
	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

// New builds a Controller from cfg. The session is anonymous until Start
// restores it or Login succeeds.
func New(cfg *config.Config, opts Options) (*Controller, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	tokens := opts.Tokens
	owns := false
	if tokens == nil {
		s, err := store.NewSQLiteStore(cfg.Storage.Path)
		if err != nil {
			return nil, fmt.Errorf("opening token store: %w", err)
		}
		tokens, owns = s, true
	}

	nav := opts.Navigator
	if nav == nil {
		nav = NavigatorFunc(func() {})
	}

	// Tokens are kept per backend so switching base_url never sends one
	// server's credential to another.
	session := auth.NewSession(tokens, cfg.API.BaseURL, logger)
	api := client.New(cfg.API, session, logger)
	session.SetBackend(api)

	ctx, cancel := context.WithCancel(context.Background())
	c := &Controller{
		cfg:        cfg,
		session:    session,
		client:     api,
		recovery:   auth.NewRecovery(api, logger),
		convs:      conversation.NewStore(api, opts.Confirmer, logger),
		usage:      usage.NewTracker(api, cfg.Chat.DailyLimit, logger),
		resets:     conversation.NewResetSignal(logger),
		tokens:     tokens,
		ownsTokens: owns,
		nav:        nav,
		logger:     logger.With("component", "controller"),
		ctx:        ctx,
		cancel:     cancel,
	}
	c.exchange = conversation.NewExchange(c.convs, api, c.usage, conversation.ExchangeOptions{
		ErrorFallback: cfg.Chat.ErrorFallback,
		Background:    c,
		OnError:       c.backgroundError,
		Logger:        logger,
	})

	c.Go(func(ctx context.Context) {
		c.convs.ListenForResets(ctx, c.resets)
	})
	return c, nil
}

// Go runs fn in the background with the Controller's context. It is a
// no-op after Close.
func (c *Controller) Go(fn func(ctx context.Context)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		fn(c.ctx)
	}()
}

// Close stops background work, waits for it and releases the token store.
func (c *Controller) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()

	c.cancel()
	c.resets.Close()
	c.wg.Wait()

	if c.ownsTokens {
		if err := c.tokens.Close(); err != nil {
			return fmt.Errorf("closing token store: %w", err)
		}
	}
	return nil
}

// Session returns the authentication session.
func (c *Controller) Session() *auth.Session { return c.session }

// Conversations returns the conversation store.
func (c *Controller) Conversations() *conversation.Store { return c.convs }

// Usage returns the current usage snapshot.
func (c *Controller) Usage() usage.Snapshot { return c.usage.Snapshot() }

// Resets returns the signal that starts a new draft when published to.
func (c *Controller) Resets() *conversation.ResetSignal { return c.resets }

// handle performs the forced logout for the first caller whose error shows
// the current credential was rejected. err is returned unchanged.
func (c *Controller) handle(ctx context.Context, err error) error {
	var expired *client.AuthExpiredError
	if !errors.As(err, &expired) {
		return err
	}
	if !c.session.Expire(ctx, expired.Generation) {
		return err
	}

	c.logger.Info("session rejected by server, logging out")
	c.convs.Clear()
	c.usage.Reset()
	c.nav.ToLogin()
	return err
}

// backgroundError routes a failure of work nobody waits for through handle.
func (c *Controller) backgroundError(ctx context.Context, err error) {
	_ = c.handle(ctx, err)
}

// Start restores a saved session and, if there is one, loads usage and the
// conversation list. Reports whether the session is authenticated.
func (c *Controller) Start(ctx context.Context) (bool, error) {
	ok, err := c.session.Restore(ctx)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, nil
	}
	if err := c.load(ctx); err != nil {
		return c.session.Authenticated(), err
	}
	return true, nil
}

// load refreshes usage and the list concurrently.
func (c *Controller) load(ctx context.Context) error {
	var g errgroup.Group
	g.Go(func() error { return c.handle(ctx, c.usage.Refresh(ctx)) })
	g.Go(func() error { return c.handle(ctx, c.convs.Refresh(ctx)) })
	return g.Wait()
}

// Login authenticates and loads the account's data. A failure to load
// after a successful login is logged, not returned.
func (c *Controller) Login(ctx context.Context, creds auth.Credentials) error {
	if err := c.session.Login(ctx, creds); err != nil {
		return err
	}
	c.convs.NewDraft()
	if err := c.load(ctx); err != nil {
		c.logger.Warn("loading account after login", "error", err)
	}
	return nil
}

// Register creates an account, signs in and returns the welcome message.
func (c *Controller) Register(ctx context.Context, p auth.Profile) (string, error) {
	msg, err := c.session.Register(ctx, p)
	if err != nil {
		return "", err
	}
	c.convs.NewDraft()
	if err := c.load(ctx); err != nil {
		c.logger.Warn("loading account after registration", "error", err)
	}
	return msg, nil
}

// Logout ends the session locally and returns to the login surface.
func (c *Controller) Logout(ctx context.Context) error {
	err := c.session.Logout(ctx)
	c.convs.Clear()
	c.usage.Reset()
	c.nav.ToLogin()
	return err
}

// ForgotPassword starts password recovery for email.
func (c *Controller) ForgotPassword(ctx context.Context, email string) (*auth.OTPRequest, error) {
	return c.recovery.ForgotPassword(ctx, email)
}

// VerifyOTP checks a recovery code.
func (c *Controller) VerifyOTP(ctx context.Context, email, otp string) error {
	return c.recovery.VerifyOTP(ctx, email, otp)
}

// ResetPassword finishes password recovery.
func (c *Controller) ResetPassword(ctx context.Context, r auth.Reset) (string, error) {
	return c.recovery.ResetPassword(ctx, r)
}

// RefreshUsage reloads the usage snapshot.
func (c *Controller) RefreshUsage(ctx context.Context) (usage.Snapshot, error) {
	if err := c.handle(ctx, c.usage.Refresh(ctx)); err != nil {
		return c.usage.Snapshot(), err
	}
	return c.usage.Snapshot(), nil
}

// RefreshConversations reloads the conversation list.
func (c *Controller) RefreshConversations(ctx context.Context) ([]conversation.Summary, error) {
	err := c.handle(ctx, c.convs.Refresh(ctx))
	return c.convs.Summaries(), err
}

// Open makes a saved conversation active.
func (c *Controller) Open(ctx context.Context, id conversation.ID) error {
	return c.handle(ctx, c.convs.Select(ctx, id))
}

// NewDraft starts a new conversation on the store at once and tells every
// other listener.
func (c *Controller) NewDraft(source string) {
	c.convs.PublishNewDraft(c.resets, source)
}

// Delete removes a conversation after confirmation.
func (c *Controller) Delete(ctx context.Context, id conversation.ID) (bool, error) {
	ok, err := c.convs.Delete(ctx, id)
	return ok, c.handle(ctx, err)
}

// Send posts text to the active conversation.
func (c *Controller) Send(ctx context.Context, text string) (conversation.Outcome, error) {
	out, err := c.exchange.Send(ctx, text)
	return out, c.handle(ctx, err)
}

// SendInput posts the pending input of the active conversation.
func (c *Controller) SendInput(ctx context.Context) (conversation.Outcome, error) {
	out, err := c.exchange.SendInput(ctx)
	return out, c.handle(ctx, err)
}

// Export writes a conversation transcript to w, choosing HTML or text
// from name. The zero ID exports the active conversation.
func (c *Controller) Export(ctx context.Context, w io.Writer, name string, id conversation.ID) error {
	title, msgs, err := c.transcriptOf(ctx, id)
	if err != nil {
		return err
	}
	return transcript.Write(w, name, title, msgs)
}

func (c *Controller) transcriptOf(ctx context.Context, id conversation.ID) (string, []conversation.Message, error) {
	if id.IsZero() {
		active := c.convs.Active()
		return c.titleOf(active.ID), active.Messages, nil
	}

	title, msgs, err := c.convs.Fetch(ctx, id)
	if err != nil {
		return "", nil, c.handle(ctx, err)
	}
	if title == "" {
		title = c.titleOf(id)
	}
	return title, msgs, nil
}

// titleOf looks id up in the loaded list.
func (c *Controller) titleOf(id conversation.ID) string {
	if id.IsZero() {
		return "New chat"
	}
	for _, s := range c.convs.Summaries() {
		if s.ID == id && s.Title != "" {
			return s.Title
		}
	}
	return "Chat " + id.String()
}

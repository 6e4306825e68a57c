// ABOUTME: Message exchange: optimistic append, one advise round trip, reconciliation
// ABOUTME: Failures become error bubbles; replies for a conversation the user left are dropped

package conversation

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/2389/zeeking/internal/client"
	"github.com/2389/zeeking/internal/usage"
)

// DefaultErrorReply is shown when a failed send carries no error text.
const DefaultErrorReply = "Sorry, I encountered an error. Could you try again?"

// Sender performs the advise round trip.
type Sender interface {
	Advise(ctx context.Context, req client.AdviseRequest) (*client.AdviseResponse, error)
}

// UsageSink receives the usage figures carried by a response.
type UsageSink interface {
	Merge(p usage.Partial)
}

// Background runs work the caller does not wait for. The owner joins it
// on shutdown.
type Background interface {
	Go(fn func(ctx context.Context))
}

// Outcome describes how a send was reconciled.
type Outcome struct {
	// Reply is the assistant message produced by the send
	Reply Message

	// BoundID is set when the send turned a draft into a saved conversation
	BoundID ID

	// Stale is true when the user switched conversations before the reply
	// arrived; the reply was not appended
	Stale bool

	// Err is the transport failure behind an error reply
	Err error
}

// ExchangeOptions configures an Exchange. Zero values select defaults.
type ExchangeOptions struct {
	ErrorFallback string
	Background    Background

	// OnError receives failures of background work, so a rejected session
	// is noticed even when no caller is waiting
	OnError func(ctx context.Context, err error)

	Logger *slog.Logger
}

// Exchange sends user messages for the active conversation of a Store.
type Exchange struct {
	store    *Store
	sender   Sender
	usage    UsageSink
	fallback string
	bg       Background
	onError  func(ctx context.Context, err error)
	logger   *slog.Logger
}

// NewExchange creates an Exchange. usage may be nil.
func NewExchange(store *Store, sender Sender, sink UsageSink, opts ExchangeOptions) *Exchange {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	fallback := opts.ErrorFallback
	if fallback == "" {
		fallback = DefaultErrorReply
	}
	bg := opts.Background
	if bg == nil {
		bg = detached{}
	}
	return &Exchange{
		store:    store,
		sender:   sender,
		usage:    sink,
		fallback: fallback,
		bg:       bg,
		onError:  opts.OnError,
		logger:   logger.With("component", "exchange"),
	}
}

// detached runs background work on its own goroutine with no owner.
type detached struct{}

func (detached) Go(fn func(ctx context.Context)) {
	go fn(context.Background())
}

// SendInput sends the store's pending input.
func (e *Exchange) SendInput(ctx context.Context) (Outcome, error) {
	return e.Send(ctx, e.store.Input())
}

// Send posts text to the active conversation.
//
// The user message is appended and the input cleared before the request
// goes out. A reply or an error bubble is appended when it returns, unless
// the active conversation changed in the meantime. Usage figures in the
// response are merged either way.
//
// The returned error is ErrEmptyMessage or ErrSendInFlight when nothing was
// sent, or an error matching client.ErrAuthExpired when the session was
// rejected; in that case no bubble is appended. Other failures are reported
// through Outcome.Err with a nil error.
func (e *Exchange) Send(ctx context.Context, text string) (Outcome, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Outcome{}, ErrEmptyMessage
	}

	ticket, err := e.store.beginSend(text)
	if err != nil {
		return Outcome{}, err
	}
	defer e.store.endSend(ticket)

	resp, err := e.sender.Advise(ctx, client.AdviseRequest{
		Message:        text,
		IsFirstMessage: ticket.first,
		ChatID:         ticket.chatID,
	})
	if err != nil {
		return e.fail(ticket, err)
	}

	e.merge(usage.Partial{TokensLeft: resp.TokensLeft, DailyTokensUsed: resp.DailyTokensUsed})

	reply := Message{Role: RoleAssistant, Text: resp.Reply}
	applied, bound := e.store.completeSend(ticket, reply, resp.ChatID)
	out := Outcome{Reply: reply, Stale: !applied}
	if !applied {
		e.logger.Debug("discarding reply for inactive conversation", "chat_id", ticket.chatID)
		return out, nil
	}

	if bound {
		out.BoundID = resp.ChatID
		e.logger.Debug("draft bound", "chat_id", resp.ChatID)
		e.bg.Go(func(ctx context.Context) {
			if err := e.store.Reload(ctx); err != nil {
				e.logger.Warn("refreshing conversation list after first message", "error", err)
				if e.onError != nil {
					e.onError(ctx, err)
				}
			}
		})
	}
	return out, nil
}

// fail reconciles a failed send.
func (e *Exchange) fail(ticket sendTicket, err error) (Outcome, error) {
	if errors.Is(err, client.ErrAuthExpired) {
		return Outcome{Err: err}, err
	}

	text := e.fallback
	var apiErr *client.APIError
	if errors.As(err, &apiErr) {
		var payload client.AdviseError
		if decodeErr := apiErr.Decode(&payload); decodeErr == nil {
			if payload.Error != "" {
				text = payload.Error
			}
			e.merge(usage.Partial{TokensLeft: payload.TokensLeft, DailyTokensUsed: payload.DailyTokensUsed})
		}
	}

	e.logger.Warn("send failed", "chat_id", ticket.chatID, "error", err)

	reply := Message{Role: RoleAssistant, Text: text, IsError: true}
	applied, _ := e.store.completeSend(ticket, reply, "")
	return Outcome{Reply: reply, Stale: !applied, Err: err}, nil
}

func (e *Exchange) merge(p usage.Partial) {
	if e.usage != nil {
		e.usage.Merge(p)
	}
}

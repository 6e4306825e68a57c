// ABOUTME: Typed fan-out signal asking every listener to start a new conversation
// ABOUTME: Non-blocking at-most-once delivery; subscriptions end with their context

package conversation

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

const (
	// subscriberBufferSize is the channel buffer for each subscriber.
	subscriberBufferSize = 64
)

// NewDraftRequest asks listeners to replace the active conversation with
// an empty draft.
type NewDraftRequest struct {
	// Source names the emitter, for logs
	Source string

	// origin is the store that already applied the request
	origin *Store
}

type subscription struct {
	ch   chan NewDraftRequest
	done chan struct{}
}

// ResetSignal is an in-memory pub/sub channel for NewDraftRequest.
// Any number of components may publish or subscribe.
type ResetSignal struct {
	mu          sync.RWMutex
	subscribers map[string]*subscription // subID -> subscription
	closed      bool
	logger      *slog.Logger
}

// NewResetSignal creates a signal. Pass nil logger for default.
func NewResetSignal(logger *slog.Logger) *ResetSignal {
	if logger == nil {
		logger = slog.Default()
	}
	return &ResetSignal{
		subscribers: make(map[string]*subscription),
		logger:      logger.With("component", "reset_signal"),
	}
}

// Subscribe registers a listener. Returns a channel of requests and a
// subscription ID for Unsubscribe. The subscription is removed and its
// channel closed when ctx is cancelled. Subscribing to a closed signal
// returns an already-closed channel.
func (r *ResetSignal) Subscribe(ctx context.Context) (<-chan NewDraftRequest, string) {
	subID := uuid.New().String()
	sub := &subscription{
		ch:   make(chan NewDraftRequest, subscriberBufferSize),
		done: make(chan struct{}),
	}

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		close(sub.ch)
		return sub.ch, subID
	}
	r.subscribers[subID] = sub
	r.mu.Unlock()

	r.logger.Debug("subscriber added", "sub_id", subID)

	// Auto-cleanup on context cancellation
	go func() {
		select {
		case <-ctx.Done():
			r.Unsubscribe(subID)
		case <-sub.done:
		}
	}()

	return sub.ch, subID
}

// Publish delivers req to every subscriber. Non-blocking: a subscriber
// whose buffer is full misses this request.
func (r *ResetSignal) Publish(req NewDraftRequest) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for id, sub := range r.subscribers {
		select {
		case sub.ch <- req:
		default:
			r.logger.Debug("dropped reset for slow subscriber", "sub_id", id, "source", req.Source)
		}
	}
}

// Unsubscribe removes a subscription and closes its channel.
func (r *ResetSignal) Unsubscribe(subID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	sub, ok := r.subscribers[subID]
	if !ok {
		return
	}
	delete(r.subscribers, subID)
	close(sub.ch)
	close(sub.done)

	r.logger.Debug("subscriber removed", "sub_id", subID)
}

// Len returns the number of live subscriptions.
func (r *ResetSignal) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.subscribers)
}

// Close removes every subscription and closes their channels.
func (r *ResetSignal) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for subID, sub := range r.subscribers {
		close(sub.ch)
		close(sub.done)
		delete(r.subscribers, subID)
	}
	r.closed = true

	r.logger.Debug("reset signal closed")
}

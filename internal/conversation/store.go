// ABOUTME: Conversation store owning the summary list, the active conversation and the input buffer
// ABOUTME: Every switch of the active conversation bumps an epoch so late replies can be discarded

package conversation

import (
	"context"
	"log/slog"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/2389/zeeking/internal/client"
)

// Backend is the subset of the transport the store needs.
type Backend interface {
	ListConversations(ctx context.Context) ([]client.ConversationSummary, error)
	GetConversation(ctx context.Context, id ID) (*client.ConversationDetail, error)
	DeleteConversation(ctx context.Context, id ID) error
}

// Confirmer asks the user to confirm a destructive action.
type Confirmer interface {
	Confirm(ctx context.Context, prompt string) bool
}

// ConfirmFunc adapts a function to Confirmer.
type ConfirmFunc func(ctx context.Context, prompt string) bool

func (f ConfirmFunc) Confirm(ctx context.Context, prompt string) bool {
	return f(ctx, prompt)
}

// DeletePrompt is the question shown before deleting a conversation.
const DeletePrompt = "Are you sure you want to delete this chat?"

const listKey = "list"

// Store holds the client's view of the user's conversations. It is safe
// for concurrent use; no lock is held across a network call.
type Store struct {
	mu        sync.Mutex
	summaries []Summary
	active    Active
	input     string

	// epoch changes whenever the active conversation is replaced
	epoch    uint64
	inFlight bool

	// selectSeq numbers Select calls; only the latest may apply
	selectSeq uint64

	// listSeq numbers list fetches; a fetch older than listApplied is dropped
	listSeq     uint64
	listApplied uint64

	backend Backend
	confirm Confirmer
	lists   singleflight.Group
	logger  *slog.Logger
}

// NewStore creates a store with an empty list and a draft conversation.
// A nil confirmer declines every delete.
func NewStore(backend Backend, confirm Confirmer, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		backend: backend,
		confirm: confirm,
		logger:  logger.With("component", "conversation_store"),
	}
}

// Summaries returns a copy of the conversation list in server order.
func (s *Store) Summaries() []Summary {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Summary, len(s.summaries))
	copy(out, s.summaries)
	return out
}

// Active returns a copy of the active conversation.
func (s *Store) Active() Active {
	s.mu.Lock()
	defer s.mu.Unlock()

	msgs := make([]Message, len(s.active.Messages))
	copy(msgs, s.active.Messages)
	return Active{ID: s.active.ID, Messages: msgs}
}

// Sending reports whether a send is in flight for the active conversation.
func (s *Store) Sending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inFlight
}

// Input returns the pending input text.
func (s *Store) Input() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.input
}

// SetInput replaces the pending input text.
func (s *Store) SetInput(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.input = text
}

// Refresh replaces the conversation list with the server's. Concurrent
// calls share one request; a caller giving up does not cancel it for the
// others.
func (s *Store) Refresh(ctx context.Context) error {
	return s.refresh(ctx, false)
}

// Reload is Refresh for callers that just changed the list on the server.
// It never joins a request that started before the change.
func (s *Store) Reload(ctx context.Context) error {
	return s.refresh(ctx, true)
}

func (s *Store) refresh(ctx context.Context, fresh bool) error {
	if fresh {
		s.lists.Forget(listKey)
	}
	flight := context.WithoutCancel(ctx)
	ch := s.lists.DoChan(listKey, func() (any, error) {
		return nil, s.fetchList(flight)
	})

	select {
	case <-ctx.Done():
		return &OpError{Op: OpList, Err: ctx.Err()}
	case res := <-ch:
		if res.Err != nil {
			return &OpError{Op: OpList, Err: res.Err}
		}
		if res.Shared {
			s.logger.Debug("conversation list refresh shared")
		}
		return nil
	}
}

// fetchList loads the list and applies it unless a fetch that started
// later has already been applied.
func (s *Store) fetchList(ctx context.Context) error {
	s.mu.Lock()
	s.listSeq++
	seq := s.listSeq
	s.mu.Unlock()

	list, err := s.backend.ListConversations(ctx)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if seq <= s.listApplied {
		s.logger.Debug("dropping superseded conversation list")
		return nil
	}
	s.listApplied = seq
	s.summaries = summariesFromWire(list)
	return nil
}

// Select loads a conversation and makes it active, discarding the current
// one. On failure the active conversation is unchanged. Returns
// ErrSuperseded when the active conversation was replaced, or another
// Select was issued, while the history was loading.
func (s *Store) Select(ctx context.Context, id ID) error {
	s.mu.Lock()
	s.selectSeq++
	seq, epoch := s.selectSeq, s.epoch
	s.mu.Unlock()

	detail, err := s.backend.GetConversation(ctx, id)
	if err != nil {
		return &OpError{Op: OpLoad, ID: id, Err: err}
	}

	s.mu.Lock()
	current := seq == s.selectSeq && epoch == s.epoch
	if current {
		s.replaceActiveLocked(Active{ID: id, Messages: messagesFromWire(detail.Messages)})
	}
	s.mu.Unlock()

	if !current {
		s.logger.Debug("discarding superseded conversation load", "chat_id", id)
		return ErrSuperseded
	}
	s.logger.Debug("conversation selected", "chat_id", id, "messages", len(detail.Messages))
	return nil
}

// Fetch returns a conversation's title and history without touching the
// active conversation.
func (s *Store) Fetch(ctx context.Context, id ID) (string, []Message, error) {
	detail, err := s.backend.GetConversation(ctx, id)
	if err != nil {
		return "", nil, &OpError{Op: OpLoad, ID: id, Err: err}
	}
	return detail.Title, messagesFromWire(detail.Messages), nil
}

// NewDraft makes an empty draft the active conversation.
func (s *Store) NewDraft() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.replaceActiveLocked(Active{})
}

// PublishNewDraft starts a draft on s before returning, then asks the
// other listeners on sig to do the same.
func (s *Store) PublishNewDraft(sig *ResetSignal, source string) {
	s.NewDraft()
	sig.Publish(NewDraftRequest{Source: source, origin: s})
}

// Clear drops everything the store knows, for a forced logout. List
// fetches already in flight are not applied.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.summaries = nil
	s.listApplied = s.listSeq
	s.input = ""
	s.replaceActiveLocked(Active{})
}

// replaceActiveLocked swaps the active conversation and starts a new epoch.
// The in-flight guard belongs to the old conversation and is dropped.
func (s *Store) replaceActiveLocked(a Active) {
	s.active = a
	s.epoch++
	s.inFlight = false
}

// Delete removes a conversation after confirmation. Returns false when the
// user declined. Deleting the active conversation starts a new draft. The
// list is refreshed after every successful delete.
func (s *Store) Delete(ctx context.Context, id ID) (bool, error) {
	if s.confirm == nil || !s.confirm.Confirm(ctx, DeletePrompt) {
		return false, nil
	}

	if err := s.backend.DeleteConversation(ctx, id); err != nil {
		return false, &OpError{Op: OpDelete, ID: id, Err: err}
	}

	s.mu.Lock()
	if !s.active.IsDraft() && s.active.ID == id {
		s.replaceActiveLocked(Active{})
	}
	s.mu.Unlock()

	s.logger.Info("conversation deleted", "chat_id", id)
	return true, s.Reload(ctx)
}

// ListenForResets starts a new draft for every request on sig until ctx
// is cancelled or sig is closed. It blocks.
func (s *Store) ListenForResets(ctx context.Context, sig *ResetSignal) {
	ch, subID := sig.Subscribe(ctx)
	defer sig.Unsubscribe(subID)

	for {
		select {
		case <-ctx.Done():
			return
		case req, ok := <-ch:
			if !ok {
				return
			}
			if req.origin == s {
				continue
			}
			s.logger.Debug("reset requested", "source", req.Source)
			s.NewDraft()
		}
	}
}

// sendTicket records the conversation a send started in.
type sendTicket struct {
	epoch  uint64
	chatID ID
	first  bool
}

// beginSend appends the user message and marks the send in flight.
func (s *Store) beginSend(text string) (sendTicket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.inFlight {
		return sendTicket{}, ErrSendInFlight
	}

	t := sendTicket{
		epoch:  s.epoch,
		chatID: s.active.ID,
		first:  len(s.active.Messages) == 0,
	}
	s.inFlight = true
	s.active.Messages = append(s.active.Messages, Message{Role: RoleUser, Text: text})
	s.input = ""
	return t, nil
}

// completeSend appends reply if the conversation is still the one the send
// started in, binding a draft to bindID when given. Reports whether the
// reply was applied and whether the draft was bound.
func (s *Store) completeSend(t sendTicket, reply Message, bindID ID) (applied, bound bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.epoch != t.epoch {
		return false, false
	}

	s.active.Messages = append(s.active.Messages, reply)
	if t.chatID.IsZero() && !bindID.IsZero() && s.active.ID.IsZero() {
		s.active.ID = bindID
		bound = true
	}
	return true, bound
}

// endSend clears the in-flight flag if it still belongs to t.
func (s *Store) endSend(t sendTicket) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.epoch == t.epoch {
		s.inFlight = false
	}
}

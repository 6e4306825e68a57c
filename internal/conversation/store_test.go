// ABOUTME: Tests for the conversation store
// ABOUTME: Covers list refresh, selection, drafts, confirmed deletion and reset handling

package conversation

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/zeeking/internal/client"
)

func summaries(ids ...string) []client.ConversationSummary {
	out := make([]client.ConversationSummary, len(ids))
	for i, id := range ids {
		out[i] = client.ConversationSummary{ID: ID(id), Title: "chat " + id, MessageCount: i + 1}
	}
	return out
}

func TestStore_StartsWithEmptyDraft(t *testing.T) {
	s := NewStore(newFakeBackend(), nil, nil)

	active := s.Active()
	assert.True(t, active.IsDraft())
	assert.Empty(t, active.Messages)
	assert.Empty(t, s.Summaries())
	assert.False(t, s.Sending())
}

func TestStore_RefreshReplacesListVerbatim(t *testing.T) {
	b := newFakeBackend()
	b.lists = [][]client.ConversationSummary{summaries("3", "1", "2"), summaries("9")}
	s := NewStore(b, nil, nil)
	ctx := context.Background()

	require.NoError(t, s.Refresh(ctx))
	got := s.Summaries()
	require.Len(t, got, 3)
	assert.Equal(t, []ID{"3", "1", "2"}, []ID{got[0].ID, got[1].ID, got[2].ID}, "server order kept")
	assert.Equal(t, "chat 3", got[0].Title)

	require.NoError(t, s.Refresh(ctx))
	got = s.Summaries()
	require.Len(t, got, 1)
	assert.Equal(t, ID("9"), got[0].ID)
}

func TestStore_RefreshFailureKeepsList(t *testing.T) {
	b := newFakeBackend()
	b.lists = [][]client.ConversationSummary{summaries("1")}
	s := NewStore(b, nil, nil)
	ctx := context.Background()
	require.NoError(t, s.Refresh(ctx))

	b.listErr = &client.APIError{Status: 500}
	err := s.Refresh(ctx)

	var opErr *OpError
	require.ErrorAs(t, err, &opErr)
	assert.Equal(t, OpList, opErr.Op)
	assert.Len(t, s.Summaries(), 1)
}

func TestStore_RefreshPassesAuthExpiredThrough(t *testing.T) {
	b := newFakeBackend()
	b.listErr = &client.AuthExpiredError{Generation: 4}
	s := NewStore(b, nil, nil)

	err := s.Refresh(context.Background())
	assert.ErrorIs(t, err, client.ErrAuthExpired)
}

func TestStore_ConcurrentRefreshesCollapse(t *testing.T) {
	b := newFakeBackend()
	b.lists = [][]client.ConversationSummary{summaries("1")}
	b.listGate = make(chan struct{})
	s := NewStore(b, nil, nil)

	var wg sync.WaitGroup
	for range 5 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, s.Refresh(context.Background()))
		}()
	}

	// Let every caller reach the shared flight before releasing it
	require.Eventually(t, func() bool { return b.listCalls() == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	close(b.listGate)
	wg.Wait()

	assert.LessOrEqual(t, b.listCalls(), 2)
	assert.Len(t, s.Summaries(), 1)
}

func TestStore_SelectLoadsHistory(t *testing.T) {
	b := newFakeBackend()
	b.details["7"] = &client.ConversationDetail{Messages: []client.HistoryMessage{
		{IsUser: true, Content: "hello"},
		{IsUser: false, Content: "hi there"},
	}}
	s := NewStore(b, nil, nil)

	require.NoError(t, s.Select(context.Background(), "7"))

	active := s.Active()
	assert.Equal(t, ID("7"), active.ID)
	assert.False(t, active.IsDraft())
	assert.Equal(t, []Message{
		{Role: RoleUser, Text: "hello"},
		{Role: RoleAssistant, Text: "hi there"},
	}, active.Messages)
}

func TestStore_SelectFailureLeavesActive(t *testing.T) {
	b := newFakeBackend()
	b.details["1"] = &client.ConversationDetail{Messages: []client.HistoryMessage{{IsUser: true, Content: "x"}}}
	s := NewStore(b, nil, nil)
	ctx := context.Background()
	require.NoError(t, s.Select(ctx, "1"))

	err := s.Select(ctx, "404")
	var opErr *OpError
	require.ErrorAs(t, err, &opErr)
	assert.Equal(t, OpLoad, opErr.Op)
	assert.Equal(t, "Error loading chat. Please try again.", opErr.Message())
	assert.Equal(t, ID("1"), s.Active().ID)
}

func TestStore_FetchLeavesActive(t *testing.T) {
	b := newFakeBackend()
	b.details["3"] = &client.ConversationDetail{Title: "Budget", Messages: []client.HistoryMessage{{IsUser: true, Content: "q"}}}
	s := NewStore(b, nil, nil)

	title, msgs, err := s.Fetch(context.Background(), "3")
	require.NoError(t, err)
	assert.Equal(t, "Budget", title)
	assert.Equal(t, []Message{{Role: RoleUser, Text: "q"}}, msgs)
	assert.True(t, s.Active().IsDraft())

	_, _, err = s.Fetch(context.Background(), "404")
	var opErr *OpError
	require.ErrorAs(t, err, &opErr)
	assert.Equal(t, OpLoad, opErr.Op)
}

func TestStore_NewDraftDiscardsActive(t *testing.T) {
	b := newFakeBackend()
	b.details["1"] = &client.ConversationDetail{Messages: []client.HistoryMessage{{IsUser: true, Content: "x"}}}
	s := NewStore(b, nil, nil)
	require.NoError(t, s.Select(context.Background(), "1"))

	s.NewDraft()

	active := s.Active()
	assert.True(t, active.IsDraft())
	assert.Empty(t, active.Messages)
}

func TestStore_ActiveReturnsCopy(t *testing.T) {
	b := newFakeBackend()
	b.details["1"] = &client.ConversationDetail{Messages: []client.HistoryMessage{{IsUser: true, Content: "x"}}}
	s := NewStore(b, nil, nil)
	require.NoError(t, s.Select(context.Background(), "1"))

	a := s.Active()
	a.Messages[0].Text = "mutated"
	assert.Equal(t, "x", s.Active().Messages[0].Text)
}

func TestStore_Delete(t *testing.T) {
	ctx := context.Background()

	setup := func(confirm Confirmer) (*Store, *fakeBackend) {
		b := newFakeBackend()
		b.lists = [][]client.ConversationSummary{summaries("1", "2")}
		b.details["1"] = &client.ConversationDetail{Messages: []client.HistoryMessage{{IsUser: true, Content: "one"}}}
		s := NewStore(b, confirm, nil)
		require.NoError(t, s.Refresh(ctx))
		require.NoError(t, s.Select(ctx, "1"))
		b.lists = [][]client.ConversationSummary{summaries("1")}
		return s, b
	}

	t.Run("declined is a no-op", func(t *testing.T) {
		var asked string
		s, b := setup(ConfirmFunc(func(ctx context.Context, prompt string) bool {
			asked = prompt
			return false
		}))
		calls := b.listCalls()

		ok, err := s.Delete(ctx, "1")
		require.NoError(t, err)
		assert.False(t, ok)
		assert.Equal(t, DeletePrompt, asked)
		assert.Empty(t, b.deleted)
		assert.Equal(t, calls, b.listCalls(), "no refresh when declined")
		assert.Equal(t, ID("1"), s.Active().ID)
	})

	t.Run("deleting active starts a draft and refreshes", func(t *testing.T) {
		s, b := setup(acceptAll)
		calls := b.listCalls()

		ok, err := s.Delete(ctx, "1")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, []ID{"1"}, b.deleted)
		assert.True(t, s.Active().IsDraft())
		assert.Equal(t, calls+1, b.listCalls())
		assert.Len(t, s.Summaries(), 1)
	})

	t.Run("deleting another conversation keeps active", func(t *testing.T) {
		s, b := setup(acceptAll)

		ok, err := s.Delete(ctx, "2")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, []ID{"2"}, b.deleted)
		active := s.Active()
		assert.Equal(t, ID("1"), active.ID)
		assert.Len(t, active.Messages, 1)
	})

	t.Run("missing confirmer declines", func(t *testing.T) {
		s, b := setup(nil)

		ok, err := s.Delete(ctx, "2")
		require.NoError(t, err)
		assert.False(t, ok)
		assert.Empty(t, b.deleted)
		assert.Len(t, s.Summaries(), 2)
	})

	t.Run("failure changes nothing", func(t *testing.T) {
		s, b := setup(acceptAll)
		b.deleteErr = &client.APIError{Status: 500}
		calls := b.listCalls()

		ok, err := s.Delete(ctx, "1")
		assert.False(t, ok)
		var opErr *OpError
		require.ErrorAs(t, err, &opErr)
		assert.Equal(t, OpDelete, opErr.Op)
		assert.Equal(t, ID("1"), s.Active().ID)
		assert.Equal(t, calls, b.listCalls())
		assert.Len(t, s.Summaries(), 2)
	})
}

func TestStore_DeleteRefetchesListStartedBeforeIt(t *testing.T) {
	b := newFakeBackend()
	b.lists = [][]client.ConversationSummary{summaries("1", "2"), summaries("1")}
	b.listGate = make(chan struct{})
	s := NewStore(b, acceptAll, nil)
	ctx := context.Background()

	refreshed := make(chan error, 1)
	go func() { refreshed <- s.Refresh(ctx) }()
	require.Eventually(t, func() bool { return b.listCalls() == 1 }, time.Second, 5*time.Millisecond)

	deleted := make(chan error, 1)
	go func() {
		_, err := s.Delete(ctx, "2")
		deleted <- err
	}()
	require.Eventually(t, func() bool { return b.listCalls() == 2 }, time.Second, 5*time.Millisecond)
	close(b.listGate)

	require.NoError(t, <-refreshed)
	require.NoError(t, <-deleted)

	got := s.Summaries()
	require.Len(t, got, 1, "the list fetched before the delete must not win")
	assert.Equal(t, ID("1"), got[0].ID)
}

func TestStore_CancelledCallerDoesNotCancelSharedRefresh(t *testing.T) {
	b := newFakeBackend()
	b.lists = [][]client.ConversationSummary{summaries("1", "2")}
	b.listGate = make(chan struct{})
	s := NewStore(b, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	first := make(chan error, 1)
	go func() { first <- s.Refresh(ctx) }()
	require.Eventually(t, func() bool { return b.listCalls() == 1 }, time.Second, 5*time.Millisecond)

	cancel()
	assert.ErrorIs(t, <-first, context.Canceled)

	close(b.listGate)
	require.Eventually(t, func() bool { return len(s.Summaries()) == 2 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, 1, b.listCalls())

	require.NoError(t, s.Refresh(context.Background()))
}

func TestStore_ClearDropsListInFlight(t *testing.T) {
	b := newFakeBackend()
	b.lists = [][]client.ConversationSummary{summaries("1")}
	b.listGate = make(chan struct{})
	s := NewStore(b, nil, nil)

	done := make(chan error, 1)
	go func() { done <- s.Refresh(context.Background()) }()
	require.Eventually(t, func() bool { return b.listCalls() == 1 }, time.Second, 5*time.Millisecond)

	s.Clear()
	close(b.listGate)

	require.NoError(t, <-done)
	assert.Empty(t, s.Summaries())
}

func TestStore_SelectSupersededByNewDraft(t *testing.T) {
	b := newFakeBackend()
	b.details["7"] = &client.ConversationDetail{Messages: []client.HistoryMessage{{IsUser: true, Content: "old"}}}
	b.detailGate = make(chan struct{})
	s := NewStore(b, nil, nil)

	done := make(chan error, 1)
	go func() { done <- s.Select(context.Background(), "7") }()
	require.Eventually(t, func() bool { return b.detailCalls() == 1 }, time.Second, 5*time.Millisecond)

	s.NewDraft()
	close(b.detailGate)

	assert.ErrorIs(t, <-done, ErrSuperseded)
	active := s.Active()
	assert.True(t, active.IsDraft())
	assert.Empty(t, active.Messages)
}

func TestStore_LatestSelectWins(t *testing.T) {
	b := newFakeBackend()
	b.details["1"] = &client.ConversationDetail{Messages: []client.HistoryMessage{{IsUser: true, Content: "one"}}}
	b.details["2"] = &client.ConversationDetail{Messages: []client.HistoryMessage{{IsUser: true, Content: "two"}}}
	b.detailGate = make(chan struct{})
	s := NewStore(b, nil, nil)
	ctx := context.Background()

	first := make(chan error, 1)
	go func() { first <- s.Select(ctx, "1") }()
	require.Eventually(t, func() bool { return b.detailCalls() == 1 }, time.Second, 5*time.Millisecond)

	second := make(chan error, 1)
	go func() { second <- s.Select(ctx, "2") }()
	require.Eventually(t, func() bool { return b.detailCalls() == 2 }, time.Second, 5*time.Millisecond)
	close(b.detailGate)

	assert.ErrorIs(t, <-first, ErrSuperseded)
	require.NoError(t, <-second)
	active := s.Active()
	assert.Equal(t, ID("2"), active.ID)
	assert.Equal(t, "two", active.Messages[0].Text)
}

func TestStore_Clear(t *testing.T) {
	b := newFakeBackend()
	b.lists = [][]client.ConversationSummary{summaries("1")}
	b.details["1"] = &client.ConversationDetail{Messages: []client.HistoryMessage{{IsUser: true, Content: "x"}}}
	s := NewStore(b, nil, nil)
	ctx := context.Background()
	require.NoError(t, s.Refresh(ctx))
	require.NoError(t, s.Select(ctx, "1"))
	s.SetInput("half typed")

	s.Clear()

	assert.Empty(t, s.Summaries())
	assert.True(t, s.Active().IsDraft())
	assert.Empty(t, s.Input())
}

func TestStore_ListenForResets(t *testing.T) {
	b := newFakeBackend()
	b.details["1"] = &client.ConversationDetail{Messages: []client.HistoryMessage{{IsUser: true, Content: "x"}}}
	s := NewStore(b, nil, nil)
	require.NoError(t, s.Select(context.Background(), "1"))

	sig := NewResetSignal(nil)
	defer sig.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.ListenForResets(ctx, sig)
		close(done)
	}()

	require.Eventually(t, func() bool { return sig.Len() == 1 }, time.Second, 5*time.Millisecond)
	sig.Publish(NewDraftRequest{Source: "test"})
	require.Eventually(t, func() bool { return s.Active().IsDraft() }, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("listener did not stop")
	}
}

func TestOpError(t *testing.T) {
	inner := errors.New("boom")
	err := &OpError{Op: OpDelete, ID: "5", Err: inner}

	assert.ErrorIs(t, err, inner)
	assert.Equal(t, "deleting conversation 5: boom", err.Error())
	assert.Equal(t, "Error deleting chat. Please try again.", err.Message())
	assert.Equal(t, "listing conversations: boom", (&OpError{Op: OpList, Err: inner}).Error())
}

func TestStore_PublishNewDraft(t *testing.T) {
	b := newFakeBackend()
	b.details["1"] = &client.ConversationDetail{Messages: []client.HistoryMessage{{IsUser: true, Content: "x"}}}
	ctx := context.Background()
	s := NewStore(b, nil, nil)
	other := NewStore(b, nil, nil)
	require.NoError(t, s.Select(ctx, "1"))
	require.NoError(t, other.Select(ctx, "1"))

	sig := NewResetSignal(nil)
	defer sig.Close()
	listenCtx, cancel := context.WithCancel(ctx)
	var wg sync.WaitGroup
	for _, st := range []*Store{s, other} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			st.ListenForResets(listenCtx, sig)
		}()
	}
	defer func() {
		cancel()
		wg.Wait()
	}()
	require.Eventually(t, func() bool { return sig.Len() == 2 }, time.Second, 5*time.Millisecond)

	s.PublishNewDraft(sig, "test")
	require.True(t, s.Active().IsDraft(), "applied before returning")

	ticket, err := s.beginSend("fresh topic")
	require.NoError(t, err)
	assert.True(t, ticket.chatID.IsZero())
	assert.True(t, ticket.first)

	require.Eventually(t, func() bool { return other.Active().IsDraft() }, time.Second, 5*time.Millisecond)

	// The publisher's own listener ignores the request, so the send started
	// after it is still current.
	time.Sleep(20 * time.Millisecond)
	applied, _ := s.completeSend(ticket, Message{Role: RoleAssistant, Text: "ok"}, "")
	assert.True(t, applied)
}

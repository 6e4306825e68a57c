// ABOUTME: In-memory backend for conversation tests
// ABOUTME: Serves canned lists, histories and advise replies, optionally blocking until released

package conversation

import (
	"context"
	"sync"

	"github.com/2389/zeeking/internal/client"
	"github.com/2389/zeeking/internal/usage"
)

type adviseResult struct {
	resp *client.AdviseResponse
	err  error
}

type fakeBackend struct {
	mu sync.Mutex

	lists    [][]client.ConversationSummary // served in order; last one repeats
	listErr  error
	listHits int

	details   map[ID]*client.ConversationDetail
	detailErr error

	deleted   []ID
	deleteErr error

	adviseReqs []client.AdviseRequest
	advise     adviseResult

	// gate, when set, blocks Advise until a value is sent; the value
	// replaces advise for that call. callGates, when set, gives call i
	// its own gate.
	gate      chan adviseResult
	callGates []chan adviseResult
	started   chan struct{}

	// listGate, when set, blocks ListConversations until closed or the
	// call's context ends. detailGate does the same for GetConversation.
	listGate   chan struct{}
	detailGate chan struct{}
	detailHits int
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{details: make(map[ID]*client.ConversationDetail)}
}

func (f *fakeBackend) ListConversations(ctx context.Context) ([]client.ConversationSummary, error) {
	f.mu.Lock()
	f.listHits++
	gate := f.listGate
	err := f.listErr
	var list []client.ConversationSummary
	if len(f.lists) > 0 {
		list = f.lists[0]
		if len(f.lists) > 1 {
			f.lists = f.lists[1:]
		}
	}
	f.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}
	return list, nil
}

func (f *fakeBackend) GetConversation(ctx context.Context, id ID) (*client.ConversationDetail, error) {
	f.mu.Lock()
	f.detailHits++
	gate := f.detailGate
	f.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.detailErr != nil {
		return nil, f.detailErr
	}
	d, ok := f.details[id]
	if !ok {
		return nil, &client.APIError{Status: 404, Body: []byte(`{"detail":"Not found."}`)}
	}
	return d, nil
}

func (f *fakeBackend) DeleteConversation(ctx context.Context, id ID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeBackend) Advise(ctx context.Context, req client.AdviseRequest) (*client.AdviseResponse, error) {
	f.mu.Lock()
	gate := f.gate
	if n := len(f.adviseReqs); n < len(f.callGates) {
		gate = f.callGates[n]
	}
	f.adviseReqs = append(f.adviseReqs, req)
	started := f.started
	result := f.advise
	f.mu.Unlock()

	if gate != nil {
		if started != nil {
			started <- struct{}{}
		}
		result = <-gate
	}
	return result.resp, result.err
}

func (f *fakeBackend) requests() []client.AdviseRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]client.AdviseRequest, len(f.adviseReqs))
	copy(out, f.adviseReqs)
	return out
}

func (f *fakeBackend) detailCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.detailHits
}

func (f *fakeBackend) listCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.listHits
}

// syncBackground runs background work and lets tests wait for it.
type syncBackground struct {
	wg sync.WaitGroup
}

func (b *syncBackground) Go(fn func(ctx context.Context)) {
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		fn(context.Background())
	}()
}

func (b *syncBackground) Wait() {
	b.wg.Wait()
}

func intPtr(v int) *int { return &v }

var acceptAll = ConfirmFunc(func(context.Context, string) bool { return true })

func newTestExchange(backend *fakeBackend) (*Store, *Exchange, *usage.Tracker, *syncBackground) {
	store := NewStore(backend, acceptAll, nil)
	tracker := usage.NewTracker(nil, 5000, nil)
	bg := &syncBackground{}
	ex := NewExchange(store, backend, tracker, ExchangeOptions{Background: bg})
	return store, ex, tracker, bg
}

func usagePartial(left, daily int) usage.Partial {
	return usage.Partial{TokensLeft: intPtr(left), DailyTokensUsed: intPtr(daily)}
}

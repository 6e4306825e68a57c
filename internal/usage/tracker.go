// ABOUTME: Token usage tracker holding the server-reported budget snapshot
// ABOUTME: Replaces wholesale on refresh and merges only fields present in responses

package usage

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/2389/zeeking/internal/client"
)

// Defaults applied when the stats endpoint omits a field
const (
	DefaultTokensLeft = 10000
	DefaultDailyLimit = 5000
)

// StatsSource fetches the current usage from the backend.
type StatsSource interface {
	Stats(ctx context.Context) (*client.Stats, error)
}

// Snapshot is the token budget as last reported by the server.
type Snapshot struct {
	TokensLeft      int
	DailyTokensUsed int
	DailyLimit      int

	// Known is false until the server has reported anything
	Known bool
}

// Daily formats daily usage against the limit.
func (s Snapshot) Daily() string {
	if !s.Known {
		return fmt.Sprintf("Daily: -/%d", s.DailyLimit)
	}
	return fmt.Sprintf("Daily: %d/%d", s.DailyTokensUsed, s.DailyLimit)
}

// Total formats the remaining token balance.
func (s Snapshot) Total() string {
	if !s.Known {
		return "Total: -"
	}
	return fmt.Sprintf("Total: %d", s.TokensLeft)
}

func (s Snapshot) String() string {
	return s.Daily() + " · " + s.Total()
}

// Partial carries the usage fields of one response. Nil fields are absent.
type Partial struct {
	TokensLeft      *int
	DailyTokensUsed *int
}

// Empty reports whether no field is present.
func (p Partial) Empty() bool {
	return p.TokensLeft == nil && p.DailyTokensUsed == nil
}

// Tracker owns the usage snapshot. It is safe for concurrent use.
type Tracker struct {
	mu     sync.Mutex
	snap   Snapshot
	source StatsSource
	limit  int
	logger *slog.Logger
}

// NewTracker creates a tracker with an unknown snapshot. A non-positive
// dailyLimit falls back to DefaultDailyLimit.
func NewTracker(source StatsSource, dailyLimit int, logger *slog.Logger) *Tracker {
	if logger == nil {
		logger = slog.Default()
	}
	if dailyLimit <= 0 {
		dailyLimit = DefaultDailyLimit
	}
	return &Tracker{
		snap:   Snapshot{DailyLimit: dailyLimit},
		source: source,
		limit:  dailyLimit,
		logger: logger.With("component", "usage"),
	}
}

// Refresh fetches usage and replaces the snapshot. On error the snapshot is
// left unchanged.
func (t *Tracker) Refresh(ctx context.Context) error {
	stats, err := t.source.Stats(ctx)
	if err != nil {
		return fmt.Errorf("fetching usage: %w", err)
	}

	next := Snapshot{
		TokensLeft:      DefaultTokensLeft,
		DailyTokensUsed: 0,
		DailyLimit:      t.limit,
		Known:           true,
	}
	if stats.TokensLeft != nil {
		next.TokensLeft = *stats.TokensLeft
	}
	if stats.DailyTokensUsed != nil {
		next.DailyTokensUsed = *stats.DailyTokensUsed
	}

	t.mu.Lock()
	t.snap = next
	t.mu.Unlock()

	t.logger.Debug("usage refreshed", "tokens_left", next.TokensLeft, "daily_tokens_used", next.DailyTokensUsed)
	return nil
}

// Merge applies the fields present in p.
func (t *Tracker) Merge(p Partial) {
	if p.Empty() {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if p.TokensLeft != nil {
		t.snap.TokensLeft = *p.TokensLeft
	}
	if p.DailyTokensUsed != nil {
		t.snap.DailyTokensUsed = *p.DailyTokensUsed
	}
	t.snap.Known = true
}

// Reset returns the snapshot to unknown.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.snap = Snapshot{DailyLimit: t.limit}
}

// Snapshot returns a copy of the current snapshot.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.snap
}

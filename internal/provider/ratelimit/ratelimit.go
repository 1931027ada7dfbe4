// Package ratelimit gates calls to upstream providers. Waits honour
// context cancellation.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"marketquotes/internal/provider"
	"marketquotes/internal/quote"
)

// MinInterval wraps a provider and enforces a minimum time between calls.
// Concurrent calls will wait until the interval has elapsed since the last call,
// or return early if the context is canceled.
type MinInterval struct {
	P        provider.Provider
	Interval time.Duration
	mu       sync.Mutex
	last     time.Time
}

func (m *MinInterval) Name() string { return m.P.Name() }

func (m *MinInterval) Fetch(ctx context.Context, symbols []string) (map[string]quote.Quote, error) {
	if m.Interval > 0 {
		// reserve the next slot so concurrent callers queue up
		m.mu.Lock()
		now := time.Now()
		next := m.last.Add(m.Interval)
		if next.Before(now) {
			next = now
		}
		m.last = next
		m.mu.Unlock()
		if wait := time.Until(next); wait > 0 {
			t := time.NewTimer(wait)
			defer t.Stop()
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-t.C:
			}
		}
	}
	return m.P.Fetch(ctx, symbols)
}

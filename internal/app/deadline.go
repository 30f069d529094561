package app

import (
	"context"
	"sync"
	"time"
)

// Tier classifies remaining time for display emphasis only; it has no
// effect on submission eligibility.
type Tier string

const (
	TierNormal  Tier = "normal"
	TierWarning Tier = "warning"
)

// Governor counts down to a fixed end instant. The transition to expired
// happens at most once per session and the expiry callback fires exactly
// once, however many ticks arrive after it.
type Governor struct {
	endAt      time.Time
	warnWindow time.Duration
	onExpiry   func()
	now        func() time.Time

	mu      sync.Mutex
	expired bool
	done    chan struct{}
}

func NewGovernor(endAt time.Time, warnWindow time.Duration, onExpiry func()) *Governor {
	return &Governor{
		endAt:      endAt,
		warnWindow: warnWindow,
		onExpiry:   onExpiry,
		now:        time.Now,
		done:       make(chan struct{}),
	}
}

// NewGovernorWithClock is test-only for deterministic countdowns.
func NewGovernorWithClock(endAt time.Time, warnWindow time.Duration, onExpiry func(), now func() time.Time) *Governor {
	g := NewGovernor(endAt, warnWindow, onExpiry)
	g.now = now
	return g
}

// Run recomputes remaining time on a one-second tick until the context is
// done or the deadline expires.
func (g *Governor) Run(ctx context.Context) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	g.Tick()
	for {
		select {
		case <-ctx.Done():
			return
		case <-g.done:
			return
		case <-ticker.C:
			g.Tick()
		}
	}
}

// Tick performs one recomputation. Exposed so tests can drive the governor
// with a fake clock instead of waiting on wall time.
func (g *Governor) Tick() {
	g.mu.Lock()
	if g.expired {
		g.mu.Unlock()
		return
	}
	if g.now().Before(g.endAt) {
		g.mu.Unlock()
		return
	}
	g.expired = true
	close(g.done)
	cb := g.onExpiry
	g.mu.Unlock()

	if cb != nil {
		cb()
	}
}

// Remaining returns the time left, never negative.
func (g *Governor) Remaining() time.Duration {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.expired {
		return 0
	}
	left := g.endAt.Sub(g.now())
	if left < 0 {
		return 0
	}
	return left
}

// Expired reports whether the end instant has passed.
func (g *Governor) Expired() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.expired
}

// Done is closed exactly once, when the governor expires.
func (g *Governor) Done() <-chan struct{} {
	return g.done
}

// Tier reports whether the countdown is inside the warning window.
func (g *Governor) Tier() Tier {
	if g.Expired() {
		return TierWarning
	}
	if g.Remaining() <= g.warnWindow {
		return TierWarning
	}
	return TierNormal
}

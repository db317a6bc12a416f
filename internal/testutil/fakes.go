package testutil

import (
	"context"
	"sync"
	"time"
)

// Guard is a session guard with a fixed answer.
type Guard struct {
	Allow bool
}

func (g Guard) IsAuthenticated(context.Context) bool { return g.Allow }

// Notifier records invalidation signals.
type Notifier struct {
	mu          sync.Mutex
	Collections []string
}

func (n *Notifier) Notify(collection string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.Collections = append(n.Collections, collection)
}

// Calls returns a copy of the recorded collections.
func (n *Notifier) Calls() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.Collections...)
}

// Clock is a settable clock.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

// NewClock returns a clock stopped at now.
func NewClock(now time.Time) *Clock { return &Clock{now: now} }

// Now returns the current fake time.
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Set moves the clock to now.
func (c *Clock) Set(now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = now
}

// Advance moves the clock forward by d.
func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// Retrier records blob deletes handed over for another attempt.
type Retrier struct {
	mu   sync.Mutex
	Keys []string
}

func (r *Retrier) RetryDelete(_ context.Context, keys []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Keys = append(r.Keys, keys...)
	return nil
}

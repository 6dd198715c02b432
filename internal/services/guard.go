package services

import (
	"context"
	"strings"
	"sync"
	"time"
)

// Clock supplies the current time to the request guard.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a function to Clock.
type ClockFunc func() time.Time

func (f ClockFunc) Now() time.Time { return f() }

// SystemClock reads the wall clock.
var SystemClock Clock = ClockFunc(time.Now)

// GuardStore holds the last accepted request time.
type GuardStore interface {
	// CheckAndSet accepts now when it is at least interval after the last
	// accepted time and records it. A rejected call leaves the state untouched.
	CheckAndSet(ctx context.Context, now time.Time, interval time.Duration) (bool, error)
	LastRequestTime(ctx context.Context) (time.Time, error)
}

// MemoryGuardStore keeps the timestamp in process memory.
type MemoryGuardStore struct {
	mu   sync.Mutex
	last time.Time
}

func NewMemoryGuardStore() *MemoryGuardStore {
	return &MemoryGuardStore{}
}

func (m *MemoryGuardStore) CheckAndSet(_ context.Context, now time.Time, interval time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.last.IsZero() && now.Sub(m.last) < interval {
		return false, nil
	}
	m.last = now
	return true, nil
}

func (m *MemoryGuardStore) LastRequestTime(_ context.Context) (time.Time, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.last, nil
}

// IntervalGuard rejects a request that arrives within MinInterval of the
// previously accepted one.
type IntervalGuard struct {
	clock    Clock
	interval time.Duration
	store    GuardStore
}

func NewIntervalGuard(clock Clock, interval time.Duration, store GuardStore) *IntervalGuard {
	if clock == nil {
		clock = SystemClock
	}
	if store == nil {
		store = NewMemoryGuardStore()
	}
	return &IntervalGuard{clock: clock, interval: interval, store: store}
}

// Allow reports whether a request arriving now may be forwarded.
func (g *IntervalGuard) Allow(ctx context.Context) (bool, error) {
	return g.store.CheckAndSet(ctx, g.clock.Now(), g.interval)
}

func (g *IntervalGuard) LastRequestTime(ctx context.Context) (time.Time, error) {
	return g.store.LastRequestTime(ctx)
}

func (g *IntervalGuard) MinInterval() time.Duration { return g.interval }

// RequestPolicy says which model selectors pass through the guard.
type RequestPolicy struct {
	guarded map[string]bool
}

func NewRequestPolicy(guardedModels ...string) RequestPolicy {
	p := RequestPolicy{guarded: make(map[string]bool, len(guardedModels))}
	for _, m := range guardedModels {
		p.guarded[strings.ToLower(strings.TrimSpace(m))] = true
	}
	return p
}

func (p RequestPolicy) Guards(model string) bool {
	return p.guarded[model]
}

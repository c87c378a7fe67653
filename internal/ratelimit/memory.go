package ratelimit

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

type window struct {
	count   int
	resetAt time.Time
}

// Memory is a process-local Limiter. Counts are lost on restart and are not
// shared between replicas; use Redis when running more than one instance.
type Memory struct {
	mu      sync.Mutex
	windows map[string]*window
	max     int
	period  time.Duration
	now     func() time.Time
}

var _ Limiter = (*Memory)(nil)

// MemoryOption configures Memory.
type MemoryOption func(*Memory)

// WithClock replaces time.Now, mostly for tests.
func WithClock(now func() time.Time) MemoryOption {
	return func(m *Memory) { m.now = now }
}

func NewMemory(max int, period time.Duration, opts ...MemoryOption) *Memory {
	if max <= 0 {
		max = DefaultMaxRequests
	}
	if period <= 0 {
		period = DefaultWindow
	}
	m := &Memory{
		windows: make(map[string]*window),
		max:     max,
		period:  period,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Memory) Allow(_ context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	w, ok := m.windows[key]
	if !ok || now.After(w.resetAt) {
		m.windows[key] = &window{count: 1, resetAt: now.Add(m.period)}
		return true, nil
	}
	if w.count >= m.max {
		return false, nil
	}
	w.count++
	return true, nil
}

// Sweep drops windows that have already ended and returns how many were
// removed. It does not change any admission decision: a dropped key behaves
// exactly like an expired one on its next request.
func (m *Memory) Sweep() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	removed := 0
	for key, w := range m.windows {
		if now.After(w.resetAt) {
			delete(m.windows, key)
			removed++
		}
	}
	return removed
}

// Len reports the number of tracked keys.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.windows)
}

// RunSweeper calls Sweep every interval until ctx is cancelled.
func (m *Memory) RunSweeper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := m.Sweep(); n > 0 {
				slog.Debug("rate limiter swept expired windows", "removed", n)
			}
		}
	}
}

package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Limiter decides whether a user may perform an action right now.
type Limiter interface {
	Allow(ctx context.Context, userID int64, action string) (bool, error)
}

type window struct {
	start time.Time
	count int64
}

// Memory is a fixed-window Limiter for single-process deployments.
type Memory struct {
	mu      sync.Mutex
	limit   int64
	period  time.Duration
	windows map[string]*window
	swept   time.Time
	now     func() time.Time
}

var _ Limiter = (*Memory)(nil)

func NewMemory(limit int64, period time.Duration) *Memory {
	return &Memory{
		limit:   limit,
		period:  period,
		windows: make(map[string]*window),
		now:     time.Now,
	}
}

func (m *Memory) Allow(_ context.Context, userID int64, action string) (bool, error) {
	key := fmt.Sprintf("%d:%s", userID, action)
	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()

	if now.Sub(m.swept) >= m.period {
		m.sweep(now)
	}

	w, ok := m.windows[key]
	if !ok || now.Sub(w.start) >= m.period {
		w = &window{start: now}
		m.windows[key] = w
	}
	w.count++
	return w.count <= m.limit, nil
}

// sweep drops windows that have expired. Called with mu held.
func (m *Memory) sweep(now time.Time) {
	for key, w := range m.windows {
		if now.Sub(w.start) >= m.period {
			delete(m.windows, key)
		}
	}
	m.swept = now
}

// Unlimited allows everything; used when limiting is disabled.
type Unlimited struct{}

func (Unlimited) Allow(context.Context, int64, string) (bool, error) { return true, nil }

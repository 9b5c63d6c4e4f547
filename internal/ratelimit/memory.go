package ratelimit

import (
	"context"
	"sync"
	"time"
)

// sweepEvery is how many hits pass between sweeps of expired windows
const sweepEvery = 1024

type window struct {
	count int
	start time.Time
}

// MemoryStore keeps counters in process memory. They do not survive a
// restart.
type MemoryStore struct {
	mu      sync.Mutex
	windows map[string]*window
	hits    int
}

// NewMemoryStore creates an empty store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{windows: make(map[string]*window)}
}

// Hit implements Store
func (m *MemoryStore) Hit(_ context.Context, key string, now time.Time, length time.Duration, limit int) (Window, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.hits++
	if m.hits%sweepEvery == 0 {
		m.sweep(now, length)
	}

	w, ok := m.windows[key]
	if !ok || now.After(w.start.Add(length)) {
		w = &window{count: 1, start: now}
		m.windows[key] = w
		return Window{Count: 1, Start: now, Allowed: true}, nil
	}
	if w.count >= limit {
		return Window{Count: w.count, Start: w.start, Allowed: false}, nil
	}
	w.count++
	return Window{Count: w.count, Start: w.start, Allowed: true}, nil
}

// Len reports how many keys hold a window
func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.windows)
}

func (m *MemoryStore) sweep(now time.Time, length time.Duration) {
	for k, w := range m.windows {
		if now.After(w.start.Add(length)) {
			delete(m.windows, k)
		}
	}
}

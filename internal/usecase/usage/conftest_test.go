package usage

import (
	"context"
	"sync"
	"time"

	"github.com/kailas-cloud/holdex/internal/domain/usage/cache"
)

// --- fake clock ---

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock(t time.Time) *fakeClock { return &fakeClock{t: t} }

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	c.t = t
	c.mu.Unlock()
}

// --- recording notifier ---

type recordingNotifier struct {
	mu     sync.Mutex
	alerts []Alert
}

func (n *recordingNotifier) Notify(_ context.Context, a Alert) {
	n.mu.Lock()
	n.alerts = append(n.alerts, a)
	n.mu.Unlock()
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.alerts)
}

// --- mock counter store ---

type mockCounterStore struct {
	mu     sync.Mutex
	data   map[string]int64
	getErr error
	setErr error
}

func newMockCounterStore() *mockCounterStore {
	return &mockCounterStore{data: make(map[string]int64)}
}

func (m *mockCounterStore) IncrBy(_ context.Context, key string, val int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.setErr != nil {
		return m.setErr
	}
	m.data[key] += val
	return nil
}

func (m *mockCounterStore) Get(_ context.Context, key string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return 0, m.getErr
	}
	return m.data[key], nil
}

// --- mock cache stats ---

type mockCacheStats struct {
	stats cache.Stats
}

func (m *mockCacheStats) Stats() cache.Stats { return m.stats }

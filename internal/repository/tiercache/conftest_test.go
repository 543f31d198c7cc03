package tiercache

import (
	"context"
	"sync"
	"time"

	"github.com/kailas-cloud/holdex/internal/db"
)

// --- mock remote ---

type mockRemote struct {
	mu     sync.Mutex
	data   map[string][]byte
	ttls   map[string]time.Duration
	calls  int
	getErr error
	setErr error
	delErr error
}

func newMockRemote() *mockRemote {
	return &mockRemote{data: map[string][]byte{}, ttls: map[string]time.Duration{}}
}

func (m *mockRemote) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.getErr != nil {
		return nil, m.getErr
	}
	v, ok := m.data[key]
	if !ok {
		return nil, db.ErrKeyNotFound
	}
	return v, nil
}

func (m *mockRemote) SetWithTTL(_ context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.setErr != nil {
		return m.setErr
	}
	m.data[key] = value
	m.ttls[key] = ttl
	return nil
}

func (m *mockRemote) Del(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.delErr != nil {
		return m.delErr
	}
	delete(m.data, key)
	return nil
}

func (m *mockRemote) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// --- mock budget ---

type mockBudget struct {
	mu    sync.Mutex
	used  int64
	limit int64
}

func (b *mockBudget) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.limit == 0 || b.used < b.limit
}

func (b *mockBudget) Spend() {
	b.mu.Lock()
	b.used++
	b.mu.Unlock()
}

func (b *mockBudget) Used() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.used
}

func (b *mockBudget) Limit() int64 { return b.limit }

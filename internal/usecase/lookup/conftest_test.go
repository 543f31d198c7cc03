package lookup

import (
	"context"
	"sync"
	"testing"
	"time"
)

// --- recording cache ---

type setCall struct {
	value any
	ttl   time.Duration
}

type mockCache struct {
	mu   sync.Mutex
	data map[string]any
	sets map[string]setCall
}

func newMockCache() *mockCache {
	return &mockCache{data: map[string]any{}, sets: map[string]setCall{}}
}

func (m *mockCache) Get(_ context.Context, key string) (any, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	return v, ok
}

func (m *mockCache) Set(_ context.Context, key string, value any, ttl time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	m.sets[key] = setCall{value: value, ttl: ttl}
}

// --- static store ---

type mockStatic struct {
	mu    sync.Mutex
	data  map[string]any
	saved []string
}

func newMockStatic() *mockStatic { return &mockStatic{data: map[string]any{}} }

func (m *mockStatic) Load(key string) (any, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	return v, ok
}

func (m *mockStatic) Save(key string, value any) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	m.saved = append(m.saved, key)
	return true
}

// --- remote layer that must never be reached ---

type forbiddenRemote struct{ t *testing.T }

func (r forbiddenRemote) Get(context.Context, string) ([]byte, error) {
	r.t.Error("remote Get called while over budget")
	return nil, nil
}

func (r forbiddenRemote) SetWithTTL(context.Context, string, []byte, time.Duration) error {
	r.t.Error("remote SetWithTTL called while over budget")
	return nil
}

func (r forbiddenRemote) Del(context.Context, string) error {
	r.t.Error("remote Del called while over budget")
	return nil
}

package cache

import (
	"context"
	"sync"
	"time"

	"github.com/okian/learnstyle/internal/domain/model"
)

const (
	defaultMemorySize = 1024
	defaultTTL        = time.Hour
)

// MemoryOption configures a Memory cache.
type MemoryOption func(*Memory)

// WithSize bounds the number of cached templates. Oldest entries are evicted
// first.
func WithSize(n int) MemoryOption {
	return func(m *Memory) {
		if n > 0 {
			m.size = n
		}
	}
}

// WithTTL sets how long an entry stays valid. Zero or negative disables
// expiry.
func WithTTL(ttl time.Duration) MemoryOption {
	return func(m *Memory) {
		m.ttl = ttl
	}
}

// WithClock overrides the clock used for expiry.
func WithClock(now func() time.Time) MemoryOption {
	return func(m *Memory) {
		if now != nil {
			m.now = now
		}
	}
}

type memoryEntry struct {
	template  model.Template
	expiresAt time.Time
}

// Memory is an in-process TemplateCache.
type Memory struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	order   []string
	size    int
	ttl     time.Duration
	now     func() time.Time
}

// NewMemory creates an in-process cache.
func NewMemory(opts ...MemoryOption) *Memory {
	m := &Memory{
		entries: make(map[string]memoryEntry),
		size:    defaultMemorySize,
		ttl:     defaultTTL,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Memory) Get(ctx context.Context, id string) (model.Template, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[id]
	if !ok {
		return model.Template{}, false, nil
	}
	if !e.expiresAt.IsZero() && !m.now().Before(e.expiresAt) {
		m.evict(id)
		return model.Template{}, false, nil
	}
	return e.template.Clone(), true, nil
}

func (m *Memory) Set(ctx context.Context, t model.Template) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.entries[t.ID]; !exists {
		for len(m.entries) >= m.size && len(m.order) > 0 {
			oldest := m.order[0]
			m.order = m.order[1:]
			delete(m.entries, oldest)
		}
		m.order = append(m.order, t.ID)
	}

	var expiresAt time.Time
	if m.ttl > 0 {
		expiresAt = m.now().Add(m.ttl)
	}
	m.entries[t.ID] = memoryEntry{template: t.Clone(), expiresAt: expiresAt}
	return nil
}

// evict removes id from both the entries and the insertion order.
func (m *Memory) evict(id string) {
	delete(m.entries, id)
	for i, v := range m.order {
		if v == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			return
		}
	}
}

// Len returns the number of entries, expired ones included.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

func (m *Memory) Close() error { return nil }

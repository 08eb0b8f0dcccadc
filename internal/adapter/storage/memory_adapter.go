package storage

import (
	"context"
	"sync"
	"time"

	"github.com/rl1809/guild-bag/internal/core/domain"
)

// MemoryAdapter keeps the state in process. Nothing survives a restart.
type MemoryAdapter struct {
	mu    sync.Mutex
	state domain.State
	saves int
}

func NewMemoryAdapter() *MemoryAdapter {
	return &MemoryAdapter{state: domain.NewState()}
}

func (m *MemoryAdapter) Load(ctx context.Context) (domain.State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.Clone(), nil
}

func (m *MemoryAdapter) Save(ctx context.Context, s domain.State) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = s.Clone()
	m.saves++
	return nil
}

// Saves reports how many times Save was called.
func (m *MemoryAdapter) Saves() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}

// MemoryIdempotency remembers request IDs in process until they expire.
type MemoryIdempotency struct {
	mu   sync.Mutex
	ttl  time.Duration
	seen map[string]time.Time
	now  func() time.Time
}

func NewMemoryIdempotency(ttl time.Duration) *MemoryIdempotency {
	if ttl <= 0 {
		ttl = idempotencyKeyTTL
	}
	return &MemoryIdempotency{
		ttl:  ttl,
		seen: make(map[string]time.Time),
		now:  time.Now,
	}
}

func (m *MemoryIdempotency) SetIdempotency(ctx context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	for k, expires := range m.seen {
		if now.After(expires) {
			delete(m.seen, k)
		}
	}

	if _, ok := m.seen[key]; ok {
		return false, nil
	}
	m.seen[key] = now.Add(m.ttl)
	return true, nil
}

package cache

import (
	"context"
	"sync"
	"time"

	"github.com/orgloom/livemap/backend/pkg/common"
)

// Memory is the in-process backend. Entries live in one mutex-guarded map,
// so it suits single-worker deployments and tests; multi-worker setups want
// the Redis backend so invalidation reaches every process.
type Memory struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	ttl     time.Duration
}

type memoryEntry struct {
	set       common.NeighborSet
	expiresAt time.Time
}

// NewMemory returns an in-process cache whose entries expire after ttl.
// A non-positive ttl falls back to five minutes.
func NewMemory(ttl time.Duration) *Memory {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Memory{
		entries: make(map[string]memoryEntry),
		ttl:     ttl,
	}
}

func (m *Memory) Get(_ context.Context, tenantID int64, entityID string, depth int) (common.NeighborSet, bool, error) {
	key := cacheKey(tenantID, entityID, depth)

	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.entries[key]
	if !ok {
		return nil, false, nil
	}
	if time.Now().After(entry.expiresAt) {
		delete(m.entries, key)
		return nil, false, nil
	}
	// Hand out a copy so callers cannot mutate the cached entry.
	return entry.set.Clone(), true, nil
}

func (m *Memory) Set(_ context.Context, tenantID int64, entityID string, depth int, ns common.NeighborSet) error {
	key := cacheKey(tenantID, entityID, depth)

	m.mu.Lock()
	defer m.mu.Unlock()

	m.entries[key] = memoryEntry{
		set:       ns.Clone(),
		expiresAt: time.Now().Add(m.ttl),
	}
	return nil
}

func (m *Memory) Invalidate(_ context.Context, tenantID int64, entityID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for depth := 1; depth <= maxDepth; depth++ {
		delete(m.entries, cacheKey(tenantID, entityID, depth))
	}
	return nil
}

var _ NeighborCache = (*Memory)(nil)

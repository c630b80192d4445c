package cache

import (
	"context"
	"sync"
	"time"

	"github.com/roost-io/roost/pkg/types"
)

// DefaultMemoryCapacity bounds the fallback tier so an extended
// fast-tier outage cannot grow it without limit. Sized for the node
// count, not the sample rate: one slot per node.
const DefaultMemoryCapacity = 1024

// MemoryTier is the in-process fallback tier
type MemoryTier struct {
	capacity int
	entries  map[string]*memoryEntry
	mu       sync.RWMutex
	now      func() time.Time
}

type memoryEntry struct {
	sample    *types.HeartbeatSample
	expiresAt time.Time
}

// NewMemoryTier creates a bounded in-memory tier. A capacity of zero
// or below uses DefaultMemoryCapacity.
func NewMemoryTier(capacity int) *MemoryTier {
	if capacity <= 0 {
		capacity = DefaultMemoryCapacity
	}
	return &MemoryTier{
		capacity: capacity,
		entries:  make(map[string]*memoryEntry),
		now:      time.Now,
	}
}

// Put stores the sample for a node
func (m *MemoryTier) Put(ctx context.Context, nodeID string, sample *types.HeartbeatSample, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.entries[nodeID]; !exists && len(m.entries) >= m.capacity {
		m.evictStalest()
	}

	m.entries[nodeID] = &memoryEntry{
		sample:    sample,
		expiresAt: m.now().Add(ttl),
	}
	return nil
}

// Get returns the live sample for a node
func (m *MemoryTier) Get(ctx context.Context, nodeID string) (*types.HeartbeatSample, error) {
	m.mu.RLock()
	entry, exists := m.entries[nodeID]
	m.mu.RUnlock()

	if !exists {
		return nil, ErrNotFound
	}

	if m.now().After(entry.expiresAt) {
		// Expired entries read as absent; drop lazily
		m.mu.Lock()
		if cur, ok := m.entries[nodeID]; ok && cur == entry {
			delete(m.entries, nodeID)
		}
		m.mu.Unlock()
		return nil, ErrNotFound
	}

	return entry.sample, nil
}

// List returns all live samples keyed by node ID
func (m *MemoryTier) List(ctx context.Context) (map[string]*types.HeartbeatSample, error) {
	now := m.now()

	m.mu.RLock()
	result := make(map[string]*types.HeartbeatSample, len(m.entries))
	var expired []string
	for nodeID, entry := range m.entries {
		if now.After(entry.expiresAt) {
			expired = append(expired, nodeID)
			continue
		}
		result[nodeID] = entry.sample
	}
	m.mu.RUnlock()

	if len(expired) > 0 {
		m.mu.Lock()
		for _, nodeID := range expired {
			if entry, ok := m.entries[nodeID]; ok && now.After(entry.expiresAt) {
				delete(m.entries, nodeID)
			}
		}
		m.mu.Unlock()
	}

	return result, nil
}

// Len returns the number of entries currently held, expired included
func (m *MemoryTier) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

// evictStalest removes the entry closest to expiry. Caller holds the
// write lock.
func (m *MemoryTier) evictStalest() {
	var victim string
	var victimExpiry time.Time
	for nodeID, entry := range m.entries {
		if victim == "" || entry.expiresAt.Before(victimExpiry) {
			victim = nodeID
			victimExpiry = entry.expiresAt
		}
	}
	if victim != "" {
		delete(m.entries, victim)
	}
}

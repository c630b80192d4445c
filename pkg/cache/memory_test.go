package cache

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryTier_TTLExpiry(t *testing.T) {
	tier := NewMemoryTier(0)

	base := time.Now()
	tier.now = func() time.Time { return base }

	ctx := context.Background()
	require.NoError(t, tier.Put(ctx, "node-1", testSample("node-1"), 30*time.Second))

	// Still live just inside the TTL
	tier.now = func() time.Time { return base.Add(29 * time.Second) }
	_, err := tier.Get(ctx, "node-1")
	require.NoError(t, err)

	// Expired entries read as absent even though physically present
	tier.now = func() time.Time { return base.Add(31 * time.Second) }
	_, err = tier.Get(ctx, "node-1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryTier_ListSkipsExpired(t *testing.T) {
	tier := NewMemoryTier(0)

	base := time.Now()
	tier.now = func() time.Time { return base }

	ctx := context.Background()
	require.NoError(t, tier.Put(ctx, "fresh", testSample("fresh"), time.Minute))
	require.NoError(t, tier.Put(ctx, "stale", testSample("stale"), time.Second))

	tier.now = func() time.Time { return base.Add(10 * time.Second) }

	samples, err := tier.List(ctx)
	require.NoError(t, err)
	assert.Len(t, samples, 1)
	assert.Contains(t, samples, "fresh")

	// Expired entry was dropped, not just skipped
	assert.Equal(t, 1, tier.Len())
}

func TestMemoryTier_CapacityBound(t *testing.T) {
	tier := NewMemoryTier(10)
	ctx := context.Background()

	for i := 0; i < 25; i++ {
		nodeID := fmt.Sprintf("node-%d", i)
		require.NoError(t, tier.Put(ctx, nodeID, testSample(nodeID), time.Minute))
	}

	assert.LessOrEqual(t, tier.Len(), 10)
}

func TestMemoryTier_OverwriteDoesNotEvict(t *testing.T) {
	tier := NewMemoryTier(2)
	ctx := context.Background()

	require.NoError(t, tier.Put(ctx, "a", testSample("a"), time.Minute))
	require.NoError(t, tier.Put(ctx, "b", testSample("b"), time.Minute))

	// Re-writing an existing key must not push anything out
	require.NoError(t, tier.Put(ctx, "a", testSample("a"), time.Minute))

	assert.Equal(t, 2, tier.Len())
	_, err := tier.Get(ctx, "b")
	assert.NoError(t, err)
}

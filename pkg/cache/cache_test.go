package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roost-io/roost/pkg/types"
)

// failingTier fails every operation, optionally after an initial
// healthy period
type failingTier struct {
	inner   Tier
	mu      sync.Mutex
	failing bool
	calls   int
}

func (f *failingTier) setFailing(failing bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failing = failing
}

func (f *failingTier) Put(ctx context.Context, nodeID string, sample *types.HeartbeatSample, ttl time.Duration) error {
	f.mu.Lock()
	f.calls++
	failing := f.failing
	f.mu.Unlock()
	if failing {
		return errors.New("connection refused")
	}
	return f.inner.Put(ctx, nodeID, sample, ttl)
}

func (f *failingTier) Get(ctx context.Context, nodeID string) (*types.HeartbeatSample, error) {
	f.mu.Lock()
	f.calls++
	failing := f.failing
	f.mu.Unlock()
	if failing {
		return nil, errors.New("connection refused")
	}
	return f.inner.Get(ctx, nodeID)
}

func (f *failingTier) List(ctx context.Context) (map[string]*types.HeartbeatSample, error) {
	f.mu.Lock()
	f.calls++
	failing := f.failing
	f.mu.Unlock()
	if failing {
		return nil, errors.New("connection refused")
	}
	return f.inner.List(ctx)
}

func testSample(nodeID string) *types.HeartbeatSample {
	return &types.HeartbeatSample{
		NodeID:     nodeID,
		CPUUsage:   45.2,
		SentAt:     time.Now(),
		ReceivedAt: time.Now(),
	}
}

func TestCache_PutGetRoundTrip(t *testing.T) {
	c := New(Config{
		Fast:     NewMemoryTier(0),
		Fallback: NewMemoryTier(0),
	})

	ctx := context.Background()
	sample := testSample("node-1")

	require.NoError(t, c.Put(ctx, "node-1", sample))

	got, err := c.Get(ctx, "node-1")
	require.NoError(t, err)
	assert.Equal(t, sample, got)
}

func TestCache_GetMissing(t *testing.T) {
	c := New(Config{Fallback: NewMemoryTier(0)})

	_, err := c.Get(context.Background(), "absent")
	assert.ErrorIs(t, err, ErrNotFound)
}

// Fast-tier outage: put then get for the same node round-trips the
// identical sample through the fallback tier, without an error
// surfacing to the caller.
func TestCache_FastTierOutageFailsOver(t *testing.T) {
	fast := &failingTier{inner: NewMemoryTier(0), failing: true}
	c := New(Config{
		Fast:     fast,
		Fallback: NewMemoryTier(0),
	})

	ctx := context.Background()
	sample := testSample("node-1")

	require.NoError(t, c.Put(ctx, "node-1", sample))
	assert.True(t, c.Degraded())

	got, err := c.Get(ctx, "node-1")
	require.NoError(t, err)
	assert.Equal(t, sample, got)
	assert.GreaterOrEqual(t, c.Failovers(), uint64(1))
}

func TestCache_DegradedSkipsFastTierUntilCooldown(t *testing.T) {
	fast := &failingTier{inner: NewMemoryTier(0), failing: true}
	c := New(Config{
		Fast:     fast,
		Fallback: NewMemoryTier(0),
		Cooldown: 5 * time.Second,
	})

	base := time.Now()
	c.now = func() time.Time { return base }

	ctx := context.Background()
	require.NoError(t, c.Put(ctx, "node-1", testSample("node-1")))

	callsAfterFailure := fast.calls

	// While degraded the unhealthy tier must not be touched
	_, _ = c.Get(ctx, "node-1")
	require.NoError(t, c.Put(ctx, "node-1", testSample("node-1")))
	assert.Equal(t, callsAfterFailure, fast.calls)

	// After the cooldown the fast tier is retried
	fast.setFailing(false)
	c.now = func() time.Time { return base.Add(6 * time.Second) }

	require.NoError(t, c.Put(ctx, "node-1", testSample("node-1")))
	assert.Greater(t, fast.calls, callsAfterFailure)
	assert.False(t, c.Degraded())
}

func TestCache_BothTiersFailing(t *testing.T) {
	fast := &failingTier{inner: NewMemoryTier(0), failing: true}
	fallback := &failingTier{inner: NewMemoryTier(0), failing: true}
	c := New(Config{Fast: fast, Fallback: fallback})

	err := c.Put(context.Background(), "node-1", testSample("node-1"))
	assert.ErrorIs(t, err, ErrStorageUnavailable)

	_, err = c.List(context.Background())
	assert.ErrorIs(t, err, ErrStorageUnavailable)
}

func TestCache_FallbackOnlyWithoutFastTier(t *testing.T) {
	c := New(Config{Fallback: NewMemoryTier(0)})

	ctx := context.Background()
	require.NoError(t, c.Put(ctx, "node-1", testSample("node-1")))

	got, err := c.Get(ctx, "node-1")
	require.NoError(t, err)
	assert.Equal(t, "node-1", got.NodeID)
	assert.False(t, c.Degraded())
}

func TestCache_List(t *testing.T) {
	c := New(Config{
		Fast:     NewMemoryTier(0),
		Fallback: NewMemoryTier(0),
	})

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		nodeID := fmt.Sprintf("node-%d", i)
		require.NoError(t, c.Put(ctx, nodeID, testSample(nodeID)))
	}

	samples, err := c.List(ctx)
	require.NoError(t, err)
	assert.Len(t, samples, 3)
	assert.Equal(t, "node-1", samples["node-1"].NodeID)
}

// 100 concurrent writes for 100 distinct nodes must all succeed and
// stay independently retrievable with correct attribution.
func TestCache_ConcurrentDistinctNodes(t *testing.T) {
	c := New(Config{
		Fast:     NewMemoryTier(0),
		Fallback: NewMemoryTier(0),
	})
	ctx := context.Background()

	const nodes = 100
	var wg sync.WaitGroup
	errCh := make(chan error, nodes)

	for i := 0; i < nodes; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			nodeID := fmt.Sprintf("node-%d", i)
			errCh <- c.Put(ctx, nodeID, testSample(nodeID))
		}(i)
	}
	wg.Wait()
	close(errCh)

	for err := range errCh {
		require.NoError(t, err)
	}

	for i := 0; i < nodes; i++ {
		nodeID := fmt.Sprintf("node-%d", i)
		got, err := c.Get(ctx, nodeID)
		require.NoError(t, err)
		assert.Equal(t, nodeID, got.NodeID)
	}
}

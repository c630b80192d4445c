package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/roost-io/roost/pkg/log"
	"github.com/roost-io/roost/pkg/types"
)

const (
	// DefaultTTL is how long a sample stays live. A stalled agent
	// should read as offline, not stale-online.
	DefaultTTL = 30 * time.Second

	// DefaultCooldown is how long the fast tier is skipped after a
	// failure before it is retried
	DefaultCooldown = 5 * time.Second
)

// Config holds cache configuration
type Config struct {
	// Fast is the shared tier. Nil runs the cache fallback-only.
	Fast Tier

	// Fallback is the local in-process tier. Required.
	Fallback Tier

	// TTL is the sample time-to-live (default DefaultTTL)
	TTL time.Duration

	// Cooldown is the degraded-tier retry delay (default DefaultCooldown)
	Cooldown time.Duration
}

// Cache is the two-tier store for transient heartbeat samples. It is
// a single store with two interchangeable backings selected by a
// health flag, not two independently queried stores.
type Cache struct {
	fast     Tier
	fallback Tier
	ttl      time.Duration
	cooldown time.Duration

	mu            sync.Mutex
	degradedUntil time.Time

	failovers atomic.Uint64
	now       func() time.Time
	logger    zerolog.Logger
}

// New creates a cache from the given configuration
func New(cfg Config) *Cache {
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	cooldown := cfg.Cooldown
	if cooldown <= 0 {
		cooldown = DefaultCooldown
	}

	fallback := cfg.Fallback
	if fallback == nil {
		fallback = NewMemoryTier(0)
	}

	return &Cache{
		fast:     cfg.Fast,
		fallback: fallback,
		ttl:      ttl,
		cooldown: cooldown,
		now:      time.Now,
		logger:   log.WithComponent("cache"),
	}
}

// TTL returns the configured sample time-to-live
func (c *Cache) TTL() time.Duration {
	return c.ttl
}

// Put stores the sample for a node. A fast-tier failure redirects the
// write to the fallback tier without surfacing an error; only a
// failure of both tiers is reported.
func (c *Cache) Put(ctx context.Context, nodeID string, sample *types.HeartbeatSample) error {
	if c.fastHealthy() {
		if err := c.fast.Put(ctx, nodeID, sample, c.ttl); err == nil {
			return nil
		} else {
			c.markDegraded(err)
		}
	}

	if err := c.fallback.Put(ctx, nodeID, sample, c.ttl); err != nil {
		return errors.Join(ErrStorageUnavailable, err)
	}
	return nil
}

// Get returns the live sample for a node, or ErrNotFound. While the
// fast tier is degraded, reads are served from the fallback tier
// without touching the unhealthy tier.
func (c *Cache) Get(ctx context.Context, nodeID string) (*types.HeartbeatSample, error) {
	if c.fastHealthy() {
		sample, err := c.fast.Get(ctx, nodeID)
		switch {
		case err == nil:
			return sample, nil
		case errors.Is(err, ErrNotFound):
			return nil, ErrNotFound
		default:
			c.markDegraded(err)
		}
	}

	sample, err := c.fallback.Get(ctx, nodeID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, errors.Join(ErrStorageUnavailable, err)
	}
	return sample, nil
}

// List returns all live samples keyed by node ID
func (c *Cache) List(ctx context.Context) (map[string]*types.HeartbeatSample, error) {
	if c.fastHealthy() {
		samples, err := c.fast.List(ctx)
		if err == nil {
			return samples, nil
		}
		c.markDegraded(err)
	}

	samples, err := c.fallback.List(ctx)
	if err != nil {
		return nil, errors.Join(ErrStorageUnavailable, err)
	}
	return samples, nil
}

// Degraded reports whether the fast tier is currently skipped
func (c *Cache) Degraded() bool {
	if c.fast == nil {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now().Before(c.degradedUntil)
}

// Failovers returns the number of fast-tier failures observed
func (c *Cache) Failovers() uint64 {
	return c.failovers.Load()
}

func (c *Cache) fastHealthy() bool {
	if c.fast == nil {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.now().Before(c.degradedUntil)
}

func (c *Cache) markDegraded(err error) {
	c.failovers.Add(1)

	c.mu.Lock()
	until := c.now().Add(c.cooldown)
	firstFailure := !c.now().Before(c.degradedUntil)
	c.degradedUntil = until
	c.mu.Unlock()

	// Transparent degradation: log, don't surface
	if firstFailure {
		c.logger.Warn().Err(err).Dur("cooldown", c.cooldown).
			Msg("fast tier unavailable, serving from fallback tier")
	}
}

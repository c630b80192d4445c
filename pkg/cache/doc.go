/*
Package cache implements the two-tier store for transient heartbeat
telemetry.

The cache fronts two interchangeable backings behind one interface: a
fast tier shared across controller instances (Redis) and a local
in-process fallback tier, selected by a health flag. It is a fallback
arrangement, not replication — at any moment a read consults exactly
one tier, which avoids split-brain reads.

# Architecture

	┌─────────────────── METRICS CACHE ────────────────────┐
	│                                                       │
	│   Put/Get/List                                        │
	│        │                                              │
	│        ▼                                              │
	│   ┌─────────────┐  healthy   ┌──────────────────┐    │
	│   │ health flag ├───────────▶│ fast tier (Redis) │    │
	│   │ + cooldown  │            └──────────────────┘    │
	│   │             │  degraded  ┌──────────────────┐    │
	│   │             ├───────────▶│ fallback tier     │    │
	│   └─────────────┘            │ (bounded, local)  │    │
	│                              └──────────────────┘    │
	└───────────────────────────────────────────────────────┘

# Behavior

  - Writes try the fast tier first; on timeout or connection error the
    write is redirected to the fallback tier and the fast tier is
    marked degraded for a cooldown (default 5s) before retry.
  - Reads served from whichever tier the health flag selects; a
    degraded fast tier is never blocked on.
  - Tier failover is transparent: logged, counted, never surfaced.
    Only a failure of both tiers returns ErrStorageUnavailable.
  - Every sample carries a TTL (default 30s). Expired entries read as
    absent even if physically present, so a stalled agent evaluates
    offline rather than stale-online.
  - The fallback tier is bounded (default 1024 entries, one per node)
    and evicts the stalest entry on overflow, so an extended fast-tier
    outage cannot grow it without limit.

# Usage

	c := cache.New(cache.Config{
		Fast:     cache.NewRedisTier("127.0.0.1:6379"),
		Fallback: cache.NewMemoryTier(0),
	})

	err := c.Put(ctx, node.ID, sample)
	sample, err := c.Get(ctx, node.ID)

A nil Fast tier runs the cache fallback-only, for single-controller
deployments without Redis.

# Integration Points

  - pkg/controller: the heartbeat receiver is the only writer; the
    liveness evaluator is the main reader
  - pkg/metrics: exports Degraded() and Failovers() as gauges

# Concurrency

All cache methods are safe for concurrent use. Samples for distinct
nodes never contend beyond the tier's own map lock, and the health
flag is read-mostly shared state under its own mutex.
*/
package cache

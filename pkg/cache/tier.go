package cache

import (
	"context"
	"errors"
	"time"

	"github.com/roost-io/roost/pkg/types"
)

var (
	// ErrNotFound is returned when no live sample exists for a node.
	// TTL-expired entries are reported as not found even if a tier
	// still physically holds them.
	ErrNotFound = errors.New("sample not found")

	// ErrStorageUnavailable is returned only when both tiers fail
	ErrStorageUnavailable = errors.New("both cache tiers unavailable")
)

// Tier is one backing store for transient heartbeat samples. The fast
// tier is shared across controller instances; the fallback tier is
// local to the process. Both store structurally identical samples.
type Tier interface {
	// Put stores the sample for a node with the given time-to-live
	Put(ctx context.Context, nodeID string, sample *types.HeartbeatSample, ttl time.Duration) error

	// Get returns the live sample for a node, or ErrNotFound
	Get(ctx context.Context, nodeID string) (*types.HeartbeatSample, error)

	// List returns all live samples keyed by node ID
	List(ctx context.Context) (map[string]*types.HeartbeatSample, error)
}

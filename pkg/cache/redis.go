package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/roost-io/roost/pkg/types"
)

const redisKeyPrefix = "roost:heartbeat:"

// RedisTier is the shared fast tier backed by Redis. Multiple
// controller instances pointed at the same Redis see the same samples.
type RedisTier struct {
	client redis.UniversalClient
}

// NewRedisTier creates a fast tier from a Redis address
func NewRedisTier(addr string) *RedisTier {
	return &RedisTier{
		client: redis.NewClient(&redis.Options{
			Addr:         addr,
			DialTimeout:  2 * time.Second,
			ReadTimeout:  2 * time.Second,
			WriteTimeout: 2 * time.Second,
		}),
	}
}

// NewRedisTierWithClient wraps an existing client (used by tests)
func NewRedisTierWithClient(client redis.UniversalClient) *RedisTier {
	return &RedisTier{client: client}
}

// Put stores the sample for a node with the given time-to-live
func (r *RedisTier) Put(ctx context.Context, nodeID string, sample *types.HeartbeatSample, ttl time.Duration) error {
	data, err := json.Marshal(sample)
	if err != nil {
		return fmt.Errorf("failed to encode sample: %w", err)
	}

	if err := r.client.Set(ctx, redisKeyPrefix+nodeID, data, ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

// Get returns the live sample for a node. Redis expiry handles the
// TTL; a missing key reads as ErrNotFound.
func (r *RedisTier) Get(ctx context.Context, nodeID string) (*types.HeartbeatSample, error) {
	data, err := r.client.Get(ctx, redisKeyPrefix+nodeID).Bytes()
	if err == redis.Nil {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get failed: %w", err)
	}

	var sample types.HeartbeatSample
	if err := json.Unmarshal(data, &sample); err != nil {
		return nil, fmt.Errorf("failed to decode sample: %w", err)
	}
	return &sample, nil
}

// List returns all live samples keyed by node ID
func (r *RedisTier) List(ctx context.Context) (map[string]*types.HeartbeatSample, error) {
	result := make(map[string]*types.HeartbeatSample)

	iter := r.client.Scan(ctx, 0, redisKeyPrefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		data, err := r.client.Get(ctx, key).Bytes()
		if err == redis.Nil {
			continue // expired between scan and get
		}
		if err != nil {
			return nil, fmt.Errorf("redis get failed: %w", err)
		}

		var sample types.HeartbeatSample
		if err := json.Unmarshal(data, &sample); err != nil {
			return nil, fmt.Errorf("failed to decode sample: %w", err)
		}
		result[strings.TrimPrefix(key, redisKeyPrefix)] = &sample
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("redis scan failed: %w", err)
	}

	return result, nil
}

// Close releases the underlying client
func (r *RedisTier) Close() error {
	return r.client.Close()
}

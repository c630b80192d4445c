package controller

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/roost-io/roost/pkg/cache"
	"github.com/roost-io/roost/pkg/types"
)

// Evaluate derives the liveness view of one node from its latest
// cached sample. Pure read: no locking beyond the cache's own, no
// write-back, safe to call concurrently and redundantly.
func (c *Controller) Evaluate(ctx context.Context, nodeID string, now time.Time) (types.NodeStatus, error) {
	sample, err := c.cache.Get(ctx, nodeID)
	if err != nil {
		if errors.Is(err, cache.ErrNotFound) {
			// Absent or TTL-expired reads as offline, not as an error
			return types.NodeStatus{NodeID: nodeID}, nil
		}
		return types.NodeStatus{}, fmt.Errorf("failed to read sample for node %s: %w", nodeID, err)
	}

	return c.statusFromSample(sample, now), nil
}

// EvaluateAll derives the liveness view of the whole fleet. Nodes
// with no live sample are included as offline.
func (c *Controller) EvaluateAll(ctx context.Context, now time.Time) ([]types.NodeStatus, error) {
	nodes, err := c.store.ListNodes()
	if err != nil {
		return nil, fmt.Errorf("failed to list nodes: %w", err)
	}

	samples, err := c.cache.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list samples: %w", err)
	}

	statuses := make([]types.NodeStatus, 0, len(nodes))
	for _, node := range nodes {
		sample, ok := samples[node.ID]
		if !ok {
			statuses = append(statuses, types.NodeStatus{NodeID: node.ID})
			continue
		}
		statuses = append(statuses, c.statusFromSample(sample, now))
	}
	return statuses, nil
}

func (c *Controller) statusFromSample(sample *types.HeartbeatSample, now time.Time) types.NodeStatus {
	status := types.NodeStatus{
		NodeID:       sample.NodeID,
		Online:       now.Sub(sample.ReceivedAt) < c.offlineThreshold,
		LastSeenAt:   sample.ReceivedAt,
		AgentVersion: sample.AgentVersion,
	}

	// Clock skew can make this negative; clamp rather than reject
	latency := sample.ReceivedAt.Sub(sample.SentAt)
	if latency < 0 {
		if -latency > c.suspectSkew {
			c.logger.Warn().Str("node_id", sample.NodeID).Dur("skew", -latency).
				Msg("large clock skew between agent and controller")
		}
		latency = 0
	}
	status.LatencyMs = latency.Milliseconds()

	return status
}

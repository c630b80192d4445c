package controller

import (
	"context"
	"fmt"
	"math"

	"github.com/roost-io/roost/pkg/security"
	"github.com/roost-io/roost/pkg/types"
)

// ReceiveHeartbeat authenticates and stores one telemetry report.
// This is the only write path for telemetry: a successful call is
// itself evidence of liveness. Returns the resolved node ID.
func (c *Controller) ReceiveHeartbeat(ctx context.Context, token string, report *types.HeartbeatReport) (string, error) {
	nodeID, ok := c.resolveToken(token)
	if !ok {
		c.logger.Debug().Str("token_prefix", security.TokenPrefix(token)).
			Msg("heartbeat with unknown token")
		return "", ErrUnauthorized
	}

	if err := validateReport(report); err != nil {
		c.logger.Warn().Err(err).Str("node_id", nodeID).Msg("heartbeat rejected")
		return nodeID, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}

	sample := &types.HeartbeatSample{
		NodeID:        nodeID,
		CPUUsage:      report.CPUUsage,
		MemoryUsage:   report.MemoryUsage,
		MemoryLimit:   report.MemoryLimit,
		DiskUsage:     report.DiskUsage,
		UptimeSeconds: report.UptimeSeconds,
		AgentVersion:  report.AgentVersion,
		SentAt:        report.SentAt,
		ReceivedAt:    c.now(),
	}

	if c.cpuOutsideEnvelope(nodeID, report.CPUUsage) {
		// Stored as-is; classification is a concern for consumers
		sample.Suspect = true
		c.logger.Warn().Str("node_id", nodeID).Float64("cpu_usage", report.CPUUsage).
			Msg("cpu reading outside envelope, sample marked suspect")
	}

	if err := c.cache.Put(ctx, nodeID, sample); err != nil {
		return nodeID, fmt.Errorf("failed to store heartbeat for node %s: %w", nodeID, err)
	}

	c.recordAgentVersion(nodeID, report.AgentVersion)

	return nodeID, nil
}

// validateReport rejects malformed telemetry before it reaches the
// cache
func validateReport(report *types.HeartbeatReport) error {
	if report == nil {
		return fmt.Errorf("missing report")
	}
	if math.IsNaN(report.CPUUsage) || math.IsInf(report.CPUUsage, 0) {
		return fmt.Errorf("cpu usage is not finite")
	}
	if report.CPUUsage < 0 {
		return fmt.Errorf("cpu usage is negative")
	}
	if report.SentAt.IsZero() {
		return fmt.Errorf("missing send timestamp")
	}
	if report.MemoryLimit > 0 && report.MemoryUsage > report.MemoryLimit {
		return fmt.Errorf("memory usage %d exceeds limit %d", report.MemoryUsage, report.MemoryLimit)
	}
	return nil
}

// cpuOutsideEnvelope flags CPU readings above 100% per declared core.
// Nodes without declared capacity skip the check.
func (c *Controller) cpuOutsideEnvelope(nodeID string, cpuUsage float64) bool {
	node, err := c.store.GetNode(nodeID)
	if err != nil || node.Resources == nil || node.Resources.CPUCores <= 0 {
		return false
	}
	return cpuUsage > float64(node.Resources.CPUCores)*100
}

// recordAgentVersion keeps the durable node record's reported version
// current. Best effort: a store hiccup must not fail the heartbeat.
// The version-only update never touches the credential, so it cannot
// race a rotation's full-record persist.
func (c *Controller) recordAgentVersion(nodeID, version string) {
	if version == "" {
		return
	}
	if err := c.store.UpdateNodeVersion(nodeID, version); err != nil {
		c.logger.Debug().Err(err).Str("node_id", nodeID).Msg("failed to record agent version")
	}
}

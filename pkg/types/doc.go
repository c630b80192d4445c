/*
Package types defines the shared domain types for Roost.

The types package holds the data model used across the controller and
the agent: fleet nodes and their declared capacity, heartbeat telemetry
in both its wire form (HeartbeatReport) and its stored form
(HeartbeatSample), the derived NodeStatus liveness view, and the
credential-set model used during token rotation.

# Data Model

Node:
  - One managed agent host
  - Owned durably by pkg/storage; the token field is sealed at rest
  - Capacity limits are declared, not measured

HeartbeatSample:
  - One accepted telemetry report, stamped with a receipt time
  - Immutable once stored; superseded by the next sample for the node
  - Lives in pkg/cache under a short TTL, never in the durable store

NodeStatus:
  - Derived view: online flag, latency estimate, last-seen, version
  - Recomputed from the latest sample on every read, never persisted

CredentialSet:
  - The tokens the controller accepts for a node right now
  - Stable: exactly one credential
  - DualValid: outgoing and incoming credentials both authenticate
    for a bounded window during rotation

# Usage

	sample := types.HeartbeatSample{
		NodeID:     node.ID,
		CPUUsage:   42.5,
		ReceivedAt: time.Now(),
	}

# Integration Points

This package is imported by:

  - pkg/cache: stores and returns HeartbeatSample values
  - pkg/controller: receiver, liveness evaluator, rotation coordinator
  - pkg/storage: persists Node records
  - pkg/api and pkg/agent: wire encoding of reports and status
*/
package types

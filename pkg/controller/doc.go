/*
Package controller implements the fleet controller core: heartbeat
ingestion, liveness derivation and zero-downtime credential rotation.

# Architecture

	┌────────────────────── CONTROLLER ─────────────────────────┐
	│                                                            │
	│  agent heartbeat ──▶ Receiver ──▶ pkg/cache (two tiers)    │
	│        │                │                  │               │
	│        │          resolveToken       Liveness Evaluator    │
	│        │                │                  │               │
	│        │         ┌──────▼───────┐          ▼               │
	│        └────────▶│ credential    │    NodeStatus view      │
	│                  │ sets (per     │    (dashboard, CLI)     │
	│   Rotation ────▶ │ node, atomic) │                         │
	│   Coordinator    └──────────────┘                          │
	│        │                                                   │
	│        └──▶ token push to agent, pkg/storage persistence   │
	└────────────────────────────────────────────────────────────┘

# Heartbeat Receiver

ReceiveHeartbeat resolves the bearer token against every node's
accepted credential set using constant-time comparison, validates the
report (non-finite or negative CPU, missing send timestamp and
memory-above-limit are rejected), stamps the receipt time and writes
the sample into the metrics cache. A CPU reading above 100% per
declared core marks the sample suspect but stores it; classification
belongs to consumers. The write itself is evidence of liveness.

# Liveness Evaluator

Evaluate derives {online, latencyMs, lastSeen, agentVersion} from the
latest cached sample. A node is online while now - receivedAt stays
under the offline threshold (default 15s, three emission periods).
Latency is receivedAt - sentAt clamped to zero; clock skew beyond 5s
is logged but never rejected. Evaluation is pure: no locks beyond the
cache read, no write-back, identical results on repeated calls.

# Token Rotation

Rotate drives the per-node state machine
Stable(old) → DualValid(old,new) → Stable(new):

 1. A fresh random credential is installed as pending under the
    credential lock the receiver reads through, so the accepted set
    grows to {old, new} atomically — no heartbeat can observe a state
    where neither token works.
 2. The new credential is pushed to the agent authenticated with the
    old one. A failed push reverts the controller to Stable(old); the
    agent never ends up holding a credential the controller distrusts.
 3. On acknowledgment the new credential is persisted and becomes
    active; the old one stays accepted through a configurable grace
    window (default one emission period) to absorb heartbeats already
    in flight, then retires.

One rotation per node may be in flight at a time, grace window
included; concurrent requests get ErrRotationInFlight. Failures are
retriable and restart with a fresh credential. Rotations for distinct
nodes proceed fully independently.

# Error Taxonomy

  - ErrUnauthorized: token matched nothing; surfaced, never retried
  - ErrInvalidPayload: malformed telemetry; surfaced, sample dropped
  - ErrRotationInFlight: single-flight guard hit
  - ErrRotationFailed: rotation step failed, state reverted, retriable
  - cache.ErrStorageUnavailable: both cache tiers down; the only case
    where a tier problem reaches a caller

A single node's failures stay isolated to that node; nothing in this
package terminates the controller process.
*/
package controller

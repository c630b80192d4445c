package types

import (
	"time"
)

// Node represents a managed agent host in the fleet
type Node struct {
	ID        string
	Name      string
	Address   string // host:port of the agent's HTTP endpoint
	Token     string // active bearer credential (sealed at rest)
	Resources *NodeResources
	Version   string // last reported agent version
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NodeResources tracks declared capacity limits for a node
type NodeResources struct {
	CPUCores    int
	MemoryBytes uint64
	DiskBytes   uint64
}

// HeartbeatReport is the telemetry payload sent by an agent.
// Field names are part of the wire contract with the agent.
type HeartbeatReport struct {
	CPUUsage      float64   `json:"cpuUsage"`
	MemoryUsage   uint64    `json:"memoryUsage"`
	MemoryLimit   uint64    `json:"memoryLimit"`
	DiskUsage     uint64    `json:"diskUsage"`
	UptimeSeconds uint64    `json:"uptimeSeconds"`
	AgentVersion  string    `json:"agentVersion"`
	SentAt        time.Time `json:"sentAt"`
}

// HeartbeatSample is one accepted telemetry report as stored in the
// metrics cache. Immutable once stored; the next sample for the same
// node supersedes it rather than mutating it.
type HeartbeatSample struct {
	NodeID        string    `json:"nodeId"`
	CPUUsage      float64   `json:"cpuUsage"`
	MemoryUsage   uint64    `json:"memoryUsage"`
	MemoryLimit   uint64    `json:"memoryLimit"`
	DiskUsage     uint64    `json:"diskUsage"`
	UptimeSeconds uint64    `json:"uptimeSeconds"`
	AgentVersion  string    `json:"agentVersion"`
	SentAt        time.Time `json:"sentAt"`
	ReceivedAt    time.Time `json:"receivedAt"`

	// Suspect marks samples whose CPU reading fell outside the
	// [0, 100*cores] envelope. The sample is stored as-is;
	// classification is left to consumers.
	Suspect bool `json:"suspect,omitempty"`
}

// NodeStatus is the derived liveness view of a node. It is never
// persisted; it is recomputed from the latest cached sample on every
// read.
type NodeStatus struct {
	NodeID       string    `json:"nodeId"`
	Online       bool      `json:"online"`
	LatencyMs    int64     `json:"latencyMs"`
	LastSeenAt   time.Time `json:"lastSeenAt,omitzero"`
	AgentVersion string    `json:"agentVersion,omitempty"`
}

// RotationState tags the credential state of a node during token
// rotation
type RotationState string

const (
	// RotationStable means exactly one credential is accepted
	RotationStable RotationState = "stable"
	// RotationDualValid means both the outgoing and incoming
	// credentials authenticate: the agent push is in flight, or the
	// post-acknowledgment grace window is still open
	RotationDualValid RotationState = "dual-valid"
)

// CredentialSet is the set of bearer credentials the controller
// accepts for one node at a given instant
type CredentialSet struct {
	NodeID  string
	State   RotationState
	Active  string
	Pending string // set only while State == RotationDualValid
}

package types

import "time"

// Wire payloads for the controller and agent HTTP APIs.

// RegisterNodeRequest creates a node in the fleet inventory
type RegisterNodeRequest struct {
	Name      string         `json:"name"`
	Address   string         `json:"address"`
	Resources *NodeResources `json:"resources,omitempty"`
}

// NodeSummary is the token-free view of a node returned by inventory
// reads
type NodeSummary struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Address   string         `json:"address"`
	Resources *NodeResources `json:"resources,omitempty"`
	Version   string         `json:"version,omitempty"`
	CreatedAt time.Time      `json:"createdAt"`
}

// Summary strips the credential from a node record
func (n *Node) Summary() NodeSummary {
	return NodeSummary{
		ID:        n.ID,
		Name:      n.Name,
		Address:   n.Address,
		Resources: n.Resources,
		Version:   n.Version,
		CreatedAt: n.CreatedAt,
	}
}

// RegisterNodeResponse returns the created node and its initial
// credential — the only time a credential leaves the controller in a
// response body
type RegisterNodeResponse struct {
	Node  NodeSummary `json:"node"`
	Token string      `json:"token"`
}

// TokenUpdateRequest pushes a new credential to an agent
type TokenUpdateRequest struct {
	Token string `json:"token"`
}

// ErrorResponse is the JSON error envelope
type ErrorResponse struct {
	Error string `json:"error"`
}

package storage

import (
	"errors"

	"github.com/roost-io/roost/pkg/types"
)

// ErrNodeNotFound is returned for lookups of unknown node IDs
var ErrNodeNotFound = errors.New("node not found")

// Store defines the interface for durable node state.
// Implemented by BoltDB-backed storage.
type Store interface {
	CreateNode(node *types.Node) error
	GetNode(id string) (*types.Node, error)
	ListNodes() ([]*types.Node, error)
	UpdateNode(node *types.Node) error
	UpdateNodeVersion(id, version string) error
	DeleteNode(id string) error

	Close() error
}

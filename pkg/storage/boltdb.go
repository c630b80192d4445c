package storage

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/roost-io/roost/pkg/security"
	"github.com/roost-io/roost/pkg/types"
)

var (
	// Bucket names
	bucketNodes = []byte("nodes")
)

// storedNode is the on-disk form of a node. The bearer credential is
// sealed before it reaches disk and never stored in the clear.
type storedNode struct {
	ID          string               `json:"id"`
	Name        string               `json:"name"`
	Address     string               `json:"address"`
	SealedToken []byte               `json:"sealed_token"`
	Resources   *types.NodeResources `json:"resources,omitempty"`
	Version     string               `json:"version,omitempty"`
	CreatedAt   time.Time            `json:"created_at"`
	UpdatedAt   time.Time            `json:"updated_at"`
}

// BoltStore implements Store using BoltDB
type BoltStore struct {
	db     *bolt.DB
	sealer *security.TokenSealer
}

// NewBoltStore creates a new BoltDB-backed store. Node credentials
// are sealed with the given sealer before they are written.
func NewBoltStore(dataDir string, sealer *security.TokenSealer) (*BoltStore, error) {
	dbPath := filepath.Join(dataDir, "roost.db")

	db, err := bolt.Open(dbPath, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(bucketNodes); err != nil {
			return fmt.Errorf("failed to create bucket %s: %w", bucketNodes, err)
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &BoltStore{db: db, sealer: sealer}, nil
}

// Close closes the database
func (s *BoltStore) Close() error {
	return s.db.Close()
}

// CreateNode stores a node record
func (s *BoltStore) CreateNode(node *types.Node) error {
	data, err := s.encode(node)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketNodes).Put([]byte(node.ID), data)
	})
}

// GetNode returns the node with the given ID
func (s *BoltStore) GetNode(id string) (*types.Node, error) {
	var data []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(bucketNodes).Get([]byte(id))
		if v == nil {
			return ErrNodeNotFound
		}
		data = append([]byte(nil), v...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.decode(data)
}

// ListNodes returns all nodes
func (s *BoltStore) ListNodes() ([]*types.Node, error) {
	var raw [][]byte
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketNodes).ForEach(func(k, v []byte) error {
			raw = append(raw, append([]byte(nil), v...))
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	nodes := make([]*types.Node, 0, len(raw))
	for _, data := range raw {
		node, err := s.decode(data)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, node)
	}
	return nodes, nil
}

// UpdateNode upserts a node record
func (s *BoltStore) UpdateNode(node *types.Node) error {
	node.UpdatedAt = time.Now()
	return s.CreateNode(node)
}

// UpdateNodeVersion sets only the reported-version field. The
// read-modify-write runs inside one transaction, so a concurrent
// UpdateNode (a credential rotation persisting a new token) can never
// be clobbered by a stale full-record write.
func (s *BoltStore) UpdateNodeVersion(id, version string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketNodes)
		data := b.Get([]byte(id))
		if data == nil {
			return ErrNodeNotFound
		}

		var sn storedNode
		if err := json.Unmarshal(data, &sn); err != nil {
			return fmt.Errorf("failed to decode node record: %w", err)
		}
		if sn.Version == version {
			return nil
		}

		sn.Version = version
		sn.UpdatedAt = time.Now()
		updated, err := json.Marshal(sn)
		if err != nil {
			return fmt.Errorf("failed to encode node %s: %w", id, err)
		}
		return b.Put([]byte(id), updated)
	})
}

// DeleteNode removes a node record
func (s *BoltStore) DeleteNode(id string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketNodes)
		if b.Get([]byte(id)) == nil {
			return ErrNodeNotFound
		}
		return b.Delete([]byte(id))
	})
}

func (s *BoltStore) encode(node *types.Node) ([]byte, error) {
	sn := storedNode{
		ID:        node.ID,
		Name:      node.Name,
		Address:   node.Address,
		Resources: node.Resources,
		Version:   node.Version,
		CreatedAt: node.CreatedAt,
		UpdatedAt: node.UpdatedAt,
	}

	if node.Token != "" {
		sealed, err := s.sealer.Seal([]byte(node.Token))
		if err != nil {
			return nil, fmt.Errorf("failed to seal token for node %s: %w", node.ID, err)
		}
		sn.SealedToken = sealed
	}

	data, err := json.Marshal(sn)
	if err != nil {
		return nil, fmt.Errorf("failed to encode node %s: %w", node.ID, err)
	}
	return data, nil
}

func (s *BoltStore) decode(data []byte) (*types.Node, error) {
	var sn storedNode
	if err := json.Unmarshal(data, &sn); err != nil {
		return nil, fmt.Errorf("failed to decode node record: %w", err)
	}

	node := &types.Node{
		ID:        sn.ID,
		Name:      sn.Name,
		Address:   sn.Address,
		Resources: sn.Resources,
		Version:   sn.Version,
		CreatedAt: sn.CreatedAt,
		UpdatedAt: sn.UpdatedAt,
	}

	if len(sn.SealedToken) > 0 {
		plain, err := s.sealer.Open(sn.SealedToken)
		if err != nil {
			return nil, fmt.Errorf("failed to unseal token for node %s: %w", sn.ID, err)
		}
		node.Token = string(plain)
	}
	return node, nil
}

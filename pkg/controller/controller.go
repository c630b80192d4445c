package controller

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/roost-io/roost/pkg/cache"
	"github.com/roost-io/roost/pkg/events"
	"github.com/roost-io/roost/pkg/log"
	"github.com/roost-io/roost/pkg/security"
	"github.com/roost-io/roost/pkg/storage"
	"github.com/roost-io/roost/pkg/types"
)

const (
	// DefaultOfflineThreshold is three emission periods, tolerating
	// one or two missed beats without flapping
	DefaultOfflineThreshold = 15 * time.Second

	// DefaultGraceWindow keeps the old credential accepted after
	// acknowledgment, long enough to absorb one in-flight heartbeat
	DefaultGraceWindow = 5 * time.Second

	// DefaultSuspectSkew is how far an agent clock may run ahead of
	// the controller before the skew is logged
	DefaultSuspectSkew = 5 * time.Second
)

// TokenPusher delivers a new credential to an agent. Implemented by
// pkg/client; injected so rotation logic can be tested without a
// network.
type TokenPusher interface {
	PushToken(ctx context.Context, addr, authToken, newToken string) error
}

// Config holds configuration for creating a Controller
type Config struct {
	Store  storage.Store
	Cache  *cache.Cache
	Broker *events.Broker
	Pusher TokenPusher

	OfflineThreshold time.Duration
	GraceWindow      time.Duration
	SuspectSkew      time.Duration
}

// Controller is the fleet controller core: heartbeat ingestion,
// liveness derivation and credential rotation
type Controller struct {
	store  storage.Store
	cache  *cache.Cache
	broker *events.Broker
	pusher TokenPusher

	offlineThreshold time.Duration
	graceWindow      time.Duration
	suspectSkew      time.Duration

	// credentials accepted per node; the receiver's authentication
	// check and the rotation coordinator both go through this map
	// under one lock, so credential transitions are atomic from the
	// receiver's point of view
	credsMu sync.RWMutex
	creds   map[string]*credentialEntry

	now    func() time.Time
	logger zerolog.Logger
}

// credentialEntry holds the accepted credentials for one node
type credentialEntry struct {
	active   string
	pending  string // non-empty while dual-valid (incoming or retiring)
	rotating bool   // single-flight marker, held through the grace window
}

// New creates a controller and loads the accepted-credential set from
// the durable store
func New(cfg Config) (*Controller, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("store is required")
	}
	if cfg.Cache == nil {
		return nil, fmt.Errorf("cache is required")
	}

	c := &Controller{
		store:            cfg.Store,
		cache:            cfg.Cache,
		broker:           cfg.Broker,
		pusher:           cfg.Pusher,
		offlineThreshold: cfg.OfflineThreshold,
		graceWindow:      cfg.GraceWindow,
		suspectSkew:      cfg.SuspectSkew,
		creds:            make(map[string]*credentialEntry),
		now:              time.Now,
		logger:           log.WithComponent("controller"),
	}

	if c.offlineThreshold <= 0 {
		c.offlineThreshold = DefaultOfflineThreshold
	}
	if c.graceWindow <= 0 {
		c.graceWindow = DefaultGraceWindow
	}
	if c.suspectSkew <= 0 {
		c.suspectSkew = DefaultSuspectSkew
	}

	nodes, err := c.store.ListNodes()
	if err != nil {
		return nil, fmt.Errorf("failed to load nodes: %w", err)
	}
	for _, node := range nodes {
		c.creds[node.ID] = &credentialEntry{active: node.Token}
	}

	return c, nil
}

// Cache exposes the metrics cache for operational gauges
func (c *Controller) Cache() *cache.Cache {
	return c.cache
}

// RegisterNode creates a node with a fresh credential and returns it.
// The returned Token is the only time the credential leaves the
// controller in the clear.
func (c *Controller) RegisterNode(name, address string, resources *types.NodeResources) (*types.Node, error) {
	token, err := security.GenerateToken()
	if err != nil {
		return nil, err
	}

	node := &types.Node{
		ID:        uuid.New().String(),
		Name:      name,
		Address:   address,
		Token:     token,
		Resources: resources,
		CreatedAt: c.now(),
		UpdatedAt: c.now(),
	}

	if err := c.store.CreateNode(node); err != nil {
		return nil, fmt.Errorf("failed to create node: %w", err)
	}

	c.credsMu.Lock()
	c.creds[node.ID] = &credentialEntry{active: token}
	c.credsMu.Unlock()

	c.publish(events.EventNodeRegistered, node.ID, "node registered")
	c.logger.Info().Str("node_id", node.ID).Str("name", name).Msg("node registered")

	return node, nil
}

// RemoveNode deletes a node and stops accepting its credentials
func (c *Controller) RemoveNode(id string) error {
	if err := c.store.DeleteNode(id); err != nil {
		return err
	}

	c.credsMu.Lock()
	delete(c.creds, id)
	c.credsMu.Unlock()

	c.publish(events.EventNodeRemoved, id, "node removed")
	return nil
}

// GetNode returns a node by ID
func (c *Controller) GetNode(id string) (*types.Node, error) {
	return c.store.GetNode(id)
}

// ListNodes returns all registered nodes
func (c *Controller) ListNodes() ([]*types.Node, error) {
	return c.store.ListNodes()
}

// CredentialState reports the rotation state of a node's credential
// set
func (c *Controller) CredentialState(nodeID string) (types.CredentialSet, error) {
	c.credsMu.RLock()
	defer c.credsMu.RUnlock()

	entry, ok := c.creds[nodeID]
	if !ok {
		return types.CredentialSet{}, storage.ErrNodeNotFound
	}

	set := types.CredentialSet{
		NodeID: nodeID,
		State:  types.RotationStable,
		Active: entry.active,
	}
	if entry.pending != "" {
		set.State = types.RotationDualValid
		set.Pending = entry.pending
	}
	return set, nil
}

// resolveToken maps a bearer token to a node ID using constant-time
// comparison over each node's accepted credential set
func (c *Controller) resolveToken(token string) (string, bool) {
	if token == "" {
		return "", false
	}

	c.credsMu.RLock()
	defer c.credsMu.RUnlock()

	for nodeID, entry := range c.creds {
		if security.TokensEqual(token, entry.active) {
			return nodeID, true
		}
		if entry.pending != "" && security.TokensEqual(token, entry.pending) {
			return nodeID, true
		}
	}
	return "", false
}

func (c *Controller) publish(eventType events.EventType, nodeID, message string) {
	if c.broker == nil {
		return
	}
	c.broker.Publish(events.NewEvent(eventType, nodeID, message))
}

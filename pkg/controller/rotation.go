package controller

import (
	"context"
	"fmt"
	"time"

	"github.com/roost-io/roost/pkg/events"
	"github.com/roost-io/roost/pkg/security"
)

// Rotate replaces a node's bearer credential without a window in
// which neither token is accepted:
//
//  1. Generate a fresh credential and install it as pending, so the
//     receiver accepts old and new simultaneously.
//  2. Push the new credential to the agent, authenticated with the
//     old one. Any push failure reverts the controller to trusting
//     only the old credential.
//  3. On acknowledgment, persist the new credential and swap it to
//     active. The old one stays accepted through a grace window to
//     absorb heartbeats already in flight, then retires.
//
// At most one rotation per node may be in flight, grace window
// included; concurrent calls return ErrRotationInFlight. After a
// failure the operation is retriable and starts over with a fresh
// credential.
//
// One asymmetric failure exists: if the store rejects the new
// credential after the agent acknowledged it, both credentials stay
// accepted with no expiry until a retry reconciles the store. A
// controller restart in that window reloads the old token from the
// store and strands the agent, so such a failure must be retried
// promptly.
func (c *Controller) Rotate(ctx context.Context, nodeID string) error {
	node, err := c.store.GetNode(nodeID)
	if err != nil {
		return err
	}

	newToken, err := security.GenerateToken()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRotationFailed, err)
	}

	oldToken, err := c.beginRotation(nodeID, newToken)
	if err != nil {
		return err
	}

	c.logger.Info().Str("node_id", nodeID).
		Str("new_token_prefix", security.TokenPrefix(newToken)).
		Msg("rotation started, dual-valid window open")

	if c.pusher == nil {
		c.abortRotation(nodeID)
		return fmt.Errorf("%w: no token pusher configured", ErrRotationFailed)
	}

	if err := c.pusher.PushToken(ctx, node.Address, oldToken, newToken); err != nil {
		// No partial state: the agent kept (or reverted to) the old
		// credential, and so do we
		c.abortRotation(nodeID)
		c.publish(events.EventTokenRotationFailed, nodeID, "agent push failed")
		c.logger.Warn().Err(err).Str("node_id", nodeID).Msg("rotation failed, reverted to old credential")
		return fmt.Errorf("%w: push to agent: %v", ErrRotationFailed, err)
	}

	// Agent acknowledged: the new credential is durable on its side
	node.Token = newToken
	if err := c.store.UpdateNode(node); err != nil {
		// The agent already holds the new credential, so it must stay
		// accepted. Keep the dual-valid window open with no retirement
		// timer: the store still holds the old token, and it must keep
		// authenticating until a retry reconciles the store. A
		// controller restart before that retry loads the old token
		// from the store and strands the agent, so the retry is not
		// optional.
		c.holdDualValid(nodeID, oldToken, newToken)
		c.publish(events.EventTokenRotationFailed, nodeID, "persist failed")
		return fmt.Errorf("%w: persist new credential: %v", ErrRotationFailed, err)
	}

	c.finishRotation(nodeID, oldToken, newToken)
	c.publish(events.EventTokenRotated, nodeID, "credential rotated")
	c.logger.Info().Str("node_id", nodeID).Dur("grace_window", c.graceWindow).
		Msg("rotation acknowledged, old credential retiring after grace window")

	return nil
}

// beginRotation installs the pending credential under the
// single-flight guard. Returns the active (old) credential.
func (c *Controller) beginRotation(nodeID, newToken string) (string, error) {
	c.credsMu.Lock()
	defer c.credsMu.Unlock()

	entry, ok := c.creds[nodeID]
	if !ok {
		return "", fmt.Errorf("%w: no credential entry for node %s", ErrRotationFailed, nodeID)
	}
	if entry.rotating {
		return "", ErrRotationInFlight
	}

	entry.rotating = true
	entry.pending = newToken
	return entry.active, nil
}

// abortRotation reverts to Stable(old)
func (c *Controller) abortRotation(nodeID string) {
	c.credsMu.Lock()
	defer c.credsMu.Unlock()

	if entry, ok := c.creds[nodeID]; ok {
		entry.pending = ""
		entry.rotating = false
	}
}

// finishRotation makes the new credential active and schedules the
// old one's retirement after the grace window
func (c *Controller) finishRotation(nodeID, oldToken, newToken string) {
	c.credsMu.Lock()
	if entry, ok := c.creds[nodeID]; ok {
		entry.active = newToken
		entry.pending = oldToken
	}
	c.credsMu.Unlock()

	time.AfterFunc(c.graceWindow, func() {
		c.retireCredential(nodeID, oldToken)
	})
}

// holdDualValid makes the new credential active but keeps the old one
// accepted with no expiry, releasing the single-flight guard so the
// rotation can be retried. Used when the store rejected the new
// credential after the agent already committed to it.
func (c *Controller) holdDualValid(nodeID, oldToken, newToken string) {
	c.credsMu.Lock()
	defer c.credsMu.Unlock()

	if entry, ok := c.creds[nodeID]; ok {
		entry.active = newToken
		entry.pending = oldToken
		entry.rotating = false
	}
}

// retireCredential drops the retiring credential and releases the
// single-flight guard
func (c *Controller) retireCredential(nodeID, oldToken string) {
	c.credsMu.Lock()
	defer c.credsMu.Unlock()

	entry, ok := c.creds[nodeID]
	if !ok {
		return
	}
	if entry.pending == oldToken {
		entry.pending = ""
	}
	entry.rotating = false

	c.logger.Debug().Str("node_id", nodeID).Msg("old credential retired")
}

package agent

import "sync"

// credentials holds the agent's current bearer token. The emitter
// reads it before every heartbeat and the token-update handler swaps
// it, so reads take a copy under the lock and never hold it across a
// network call.
type credentials struct {
	mu    sync.RWMutex
	token string
}

func newCredentials(token string) *credentials {
	return &credentials{token: token}
}

func (c *credentials) Get() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

func (c *credentials) Set(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = token
}

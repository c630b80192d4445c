// Package client provides HTTP clients for the roost control plane.
//
// Two clients live here. Client is the CLI's view of the controller:
// node registration, inventory, derived status, credential rotation,
// and removal against the /v1 API. AgentClient carries the two hops of
// controller↔agent traffic: pushing a freshly minted credential to an
// agent during rotation, and posting heartbeat telemetry from an agent
// to the controller.
//
// All calls take a context and return typed errors where the caller
// needs to branch: ErrUnauthorized maps a 401 (stale or revoked
// credential) and ErrRejected wraps any other 4xx/5xx with the server's
// error message when one was returned.
//
// Usage:
//
//	c := client.NewClient("127.0.0.1:8420")
//	nodes, err := c.ListNodes(ctx)
//
// AgentClient.PushToken implements the controller's TokenPusher
// contract, so the controller's rotation flow can be exercised against
// real agents in production and in-process fakes in tests.
package client

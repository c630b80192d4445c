/*
Package storage provides durable persistence for fleet node state.

The storage package defines the Store interface used by the controller
and its BoltDB implementation. It holds node metadata and credentials;
heartbeat telemetry never lands here — that belongs to pkg/cache.

# Core Components

Store Interface:
  - CreateNode, GetNode, ListNodes, UpdateNode, DeleteNode
  - Close for clean shutdown

BoltStore:
  - Single-file embedded database (roost.db in the data directory)
  - One bucket per record type (currently: nodes)
  - JSON-encoded values
  - Node credentials sealed via pkg/security before hitting disk;
    the plaintext token never appears in the file

# Usage

	sealer, _ := security.NewTokenSealerFromSecret(clusterSecret)
	store, err := storage.NewBoltStore("/var/lib/roost", sealer)
	if err != nil {
		return err
	}
	defer store.Close()

	err = store.CreateNode(&types.Node{ID: id, Token: token})

# Integration Points

  - pkg/controller: node lookup for heartbeat authentication and
    rotation persistence
  - pkg/api: node registration CRUD

# Consistency

BoltDB transactions give atomic per-record updates. The rotation
coordinator persists the new credential only after agent
acknowledgment, so a crash mid-rotation leaves the store trusting the
old token, which matches the agent's view after its own revert.
*/
package storage

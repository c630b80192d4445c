/*
Package security provides credential generation and at-rest sealing.

The security package covers the two credential concerns of Roost: the
generation and comparison of bearer tokens used between controller and
agent, and the AES-256-GCM sealing of those tokens before they are
written to the durable store.

# Core Components

Token helpers:
  - GenerateToken: 32 bytes from crypto/rand, hex encoded
  - TokensEqual: constant-time comparison (used by the heartbeat
    receiver's authentication check)
  - TokenPrefix: short loggable prefix, never the full value

TokenSealer:
  - AES-256-GCM with random nonce prepended to the ciphertext
  - Key is either 32 raw bytes or derived from a cluster secret via
    SHA-256
  - Tampered or foreign ciphertext fails authentication on Open

# Usage

	sealer, err := security.NewTokenSealerFromSecret(clusterSecret)
	if err != nil {
		return err
	}

	sealed, err := sealer.Seal([]byte(node.Token))
	// store sealed bytes; later:
	plain, err := sealer.Open(sealed)

# Integration Points

  - pkg/storage: seals node tokens before bolt writes
  - pkg/controller: token generation for rotation, constant-time
    comparison in the receiver

# Security Considerations

  - GCM provides authenticated encryption; any bit flip fails Open
  - A fresh nonce is generated per Seal call
  - Token values never appear in logs; only TokenPrefix output does
*/
package security

/*
Package log provides structured logging for Roost using zerolog.

The log package wraps the zerolog library to provide JSON-structured
logging with component-specific loggers, configurable log levels, and
helper functions for common logging patterns. All logs include
timestamps and support filtering by severity level.

# Core Components

Global Logger:
  - Package-level zerolog.Logger instance
  - Initialized once via log.Init()
  - Thread-safe concurrent writes

Log Levels:
  - Debug: Detailed debugging information
  - Info: General informational messages (production default)
  - Warn: Warning messages (potential issues)
  - Error: Error messages (operation failed)
  - Fatal: Critical errors (process exits)

Context Loggers:
  - WithComponent: Add component name to all logs
  - WithNodeID: Add node ID context

# Usage

Initializing the Logger:

	import "github.com/roost-io/roost/pkg/log"

	// JSON output (production)
	log.Init(log.Config{
		Level:      log.InfoLevel,
		JSONOutput: true,
		Output:     os.Stdout,
	})

Structured Logging:

	log.Logger.Info().
		Str("node_id", "node-123").
		Int64("latency_ms", 48).
		Msg("heartbeat accepted")

Component Loggers:

	receiverLog := log.WithComponent("receiver")
	receiverLog.Warn().Str("node_id", id).Msg("suspect cpu reading")

# Integration Points

This package integrates with:

  - pkg/controller: receiver, liveness and rotation logging
  - pkg/cache: tier failover logging
  - pkg/api: request logging middleware
  - pkg/agent: emitter and token-update logging

# Log Output Examples

JSON Format (Production):

	{"level":"info","component":"receiver","node_id":"node-abc","time":"2026-08-14T10:30:00Z","message":"heartbeat accepted"}

Console Format (Development):

	10:30:00 INF heartbeat accepted component=receiver node_id=node-abc

# Security

Never log credentials. Token values are logged only as a short prefix
(see pkg/controller) and the rotation coordinator logs state
transitions, not token material.
*/
package log

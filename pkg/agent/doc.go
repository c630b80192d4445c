// Package agent implements the roost host agent.
//
// The agent has two jobs. First, it samples local resource usage (CPU,
// memory, disk, uptime) and posts a heartbeat to the controller every
// few seconds; a lost beat is simply absorbed by the controller's
// offline threshold, so the emitter logs send failures and keeps
// going. Second, it serves a small HTTP endpoint the controller uses
// to push rotated credentials.
//
// Credential rotation on the agent side is swap-verify-persist:
//
//  1. The controller POSTs the new token to /v1/token, authenticating
//     with the token the agent currently holds.
//  2. The agent swaps the new token into memory and sends a probe
//     heartbeat with it. The controller accepts it because the new
//     token is already pending on its side.
//  3. Only after the probe succeeds is the config file rewritten
//     (atomically, via temp file and rename). Any failure — probe or
//     persist — restores the old token and reports the error, so the
//     controller can revert its side too.
//
// Configuration lives in a YAML file whose path is the one required
// argument; see Config for the schema. The token field is rewritten in
// place on rotation, which is why the agent owns its config file
// rather than treating it as read-only.
package agent

// Package api exposes the controller over HTTP/JSON.
//
// Routes:
//
//	POST   /v1/nodes              register a node, returns its initial token
//	GET    /v1/nodes              list the fleet inventory (token-free)
//	GET    /v1/nodes/status       derived liveness view of every node
//	DELETE /v1/nodes/{id}         remove a node and revoke its credential
//	POST   /v1/nodes/{id}/rotate-token  rotate a node's bearer credential
//	POST   /v1/nodes/heartbeat    agent telemetry ingestion (Bearer auth)
//	GET    /healthz               liveness probe, reports cache health
//	GET    /metrics               Prometheus metrics
//
// Heartbeat ingestion maps the controller's error taxonomy onto HTTP:
// an unknown credential is 401, a malformed report is 400, and an
// accepted report is 204 with no body. Rotation maps ErrRotationInFlight
// to 409 and a failed agent push to 502, so callers can distinguish
// "try later" from "the agent is down".
//
// Every ingestion and rotation outcome increments the corresponding
// counter in pkg/metrics at the point where the HTTP status is chosen,
// keeping the controller core free of instrumentation concerns.
//
// The request logger never logs the Authorization header, and node
// listings carry NodeSummary rather than the full record, so bearer
// credentials appear in exactly one response: registration.
package api

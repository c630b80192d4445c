// Package metrics provides Prometheus instrumentation for roost.
//
// Counters and gauges are package-level and registered at init time,
// so any package can increment them without plumbing a registry:
//
//	metrics.HeartbeatsReceived.WithLabelValues("accepted").Inc()
//
// The API layer records ingestion outcomes and heartbeat latency at
// the point of receipt. Fleet-level gauges (node counts, cache health)
// are refreshed by Collector, which walks the controller's derived
// status view on a fixed interval and also publishes node.online and
// node.offline events when a node's liveness flips between refreshes.
//
// Handler returns the /metrics endpoint handler for the controller's
// HTTP server.
package metrics

package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// NodesTotal tracks the number of registered nodes
	NodesTotal = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "roost_nodes_total",
		Help: "Total number of registered nodes",
	})

	// NodesOnline tracks the number of nodes currently considered online
	NodesOnline = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "roost_nodes_online",
		Help: "Number of nodes currently online",
	})

	// HeartbeatsReceived counts heartbeat ingestion outcomes
	HeartbeatsReceived = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "roost_heartbeats_received_total",
		Help: "Total number of heartbeat reports received by outcome",
	}, []string{"result"})

	// HeartbeatLatency observes the reported-to-received latency of
	// accepted heartbeats
	HeartbeatLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "roost_heartbeat_latency_seconds",
		Help:    "Latency between heartbeat emission and receipt",
		Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
	})

	// CacheFailovers counts fast-tier failures that were served from
	// the fallback tier
	CacheFailovers = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "roost_cache_failovers_total",
		Help: "Total number of cache operations served by the fallback tier",
	})

	// CacheDegraded reports whether the fast cache tier is currently
	// considered unavailable (1) or healthy (0)
	CacheDegraded = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "roost_cache_degraded",
		Help: "Whether the fast cache tier is currently degraded",
	})

	// Rotations counts token rotation outcomes
	Rotations = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "roost_rotations_total",
		Help: "Total number of token rotations by outcome",
	}, []string{"result"})
)

func init() {
	prometheus.MustRegister(
		NodesTotal,
		NodesOnline,
		HeartbeatsReceived,
		HeartbeatLatency,
		CacheFailovers,
		CacheDegraded,
		Rotations,
	)
}

// Handler returns the HTTP handler serving the metrics endpoint
func Handler() http.Handler {
	return promhttp.Handler()
}

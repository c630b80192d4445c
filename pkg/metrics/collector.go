package metrics

import (
	"context"
	"time"

	"github.com/roost-io/roost/pkg/controller"
	"github.com/roost-io/roost/pkg/events"
	"github.com/roost-io/roost/pkg/log"
)

// DefaultCollectInterval is how often fleet-level gauges are refreshed
const DefaultCollectInterval = 15 * time.Second

// Collector periodically derives fleet-level metrics from the
// controller and publishes online/offline transition events
type Collector struct {
	controller *controller.Controller
	broker     *events.Broker
	interval   time.Duration

	lastOnline    map[string]bool
	lastFailovers uint64
}

// NewCollector creates a metrics collector. broker may be nil when no
// event fanout is wanted.
func NewCollector(c *controller.Controller, broker *events.Broker, interval time.Duration) *Collector {
	if interval <= 0 {
		interval = DefaultCollectInterval
	}
	return &Collector{
		controller: c,
		broker:     broker,
		interval:   interval,
		lastOnline: make(map[string]bool),
	}
}

// Run refreshes metrics on a fixed interval until ctx is cancelled
func (c *Collector) Run(ctx context.Context) error {
	logger := log.WithComponent("metrics")
	logger.Info().Dur("interval", c.interval).Msg("Starting metrics collector")

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	c.collect(ctx)
	for {
		select {
		case <-ctx.Done():
			logger.Info().Msg("Stopping metrics collector")
			return ctx.Err()
		case <-ticker.C:
			c.collect(ctx)
		}
	}
}

func (c *Collector) collect(ctx context.Context) {
	logger := log.WithComponent("metrics")

	statuses, err := c.controller.EvaluateAll(ctx, time.Now())
	if err != nil {
		logger.Warn().Err(err).Msg("Failed to evaluate fleet status")
		return
	}

	online := 0
	seen := make(map[string]bool, len(statuses))
	for _, st := range statuses {
		seen[st.NodeID] = st.Online
		if st.Online {
			online++
		}
		if prev, known := c.lastOnline[st.NodeID]; known && prev != st.Online {
			c.publishTransition(st.NodeID, st.Online)
		}
	}
	c.lastOnline = seen

	NodesTotal.Set(float64(len(statuses)))
	NodesOnline.Set(float64(online))

	cache := c.controller.Cache()
	if cache.Degraded() {
		CacheDegraded.Set(1)
	} else {
		CacheDegraded.Set(0)
	}
	if failovers := cache.Failovers(); failovers > c.lastFailovers {
		CacheFailovers.Add(float64(failovers - c.lastFailovers))
		c.lastFailovers = failovers
	}
}

func (c *Collector) publishTransition(nodeID string, online bool) {
	if c.broker == nil {
		return
	}
	eventType := events.EventNodeOffline
	message := "Node stopped reporting heartbeats"
	if online {
		eventType = events.EventNodeOnline
		message = "Node resumed reporting heartbeats"
	}
	c.broker.Publish(events.NewEvent(eventType, nodeID, message))
}

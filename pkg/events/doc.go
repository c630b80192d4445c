/*
Package events provides in-process event distribution for fleet
lifecycle changes.

The events package implements a publish/subscribe broker used by the
controller to announce node liveness transitions and token rotation
outcomes. Subscribers receive events over buffered channels; a slow
subscriber is skipped, never blocked on.

# Event Types

  - node.registered / node.removed: inventory changes
  - node.online / node.offline: liveness transitions observed by the
    metrics collector
  - token.rotated / token.rotation_failed: rotation outcomes

# Usage

	broker := events.NewBroker()
	broker.Start()
	defer broker.Stop()

	sub := broker.Subscribe()
	go func() {
		for event := range sub {
			fmt.Println(event.Type, event.NodeID)
		}
	}()

	broker.Publish(events.NewEvent(events.EventTokenRotated, nodeID, "credential rotated"))

# Delivery Semantics

Best-effort, at-most-once, in-process only. The broker buffers 100
events centrally and 50 per subscriber; overflow drops. Consumers that
need durable history should derive it elsewhere — events are a
notification surface, not a data store.
*/
package events

package events

import (
	"context"

	"github.com/roost-io/roost/pkg/log"
)

// StartLogConsumer subscribes to the broker and writes one log line
// per event until ctx is cancelled. This is the default sink that
// keeps the fleet's event stream visible without any external
// consumer attached.
func (b *Broker) StartLogConsumer(ctx context.Context) {
	sub := b.Subscribe()
	logger := log.WithComponent("events")

	go func() {
		for {
			select {
			case <-ctx.Done():
				b.Unsubscribe(sub)
				return
			case event, ok := <-sub:
				if !ok {
					return
				}
				logger.Info().
					Str("event_id", event.ID).
					Str("type", string(event.Type)).
					Str("node_id", event.NodeID).
					Time("timestamp", event.Timestamp).
					Msg(event.Message)
			}
		}
	}()
}

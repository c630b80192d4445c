package events

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roost-io/roost/pkg/log"
)

func TestBroker_PublishReachesSubscribers(t *testing.T) {
	broker := NewBroker()
	broker.Start()
	defer broker.Stop()

	sub := broker.Subscribe()
	defer broker.Unsubscribe(sub)

	broker.Publish(NewEvent(EventNodeOnline, "node-1", "node came online"))

	select {
	case event := <-sub:
		assert.Equal(t, EventNodeOnline, event.Type)
		assert.Equal(t, "node-1", event.NodeID)
		require.NotEmpty(t, event.ID)
		assert.False(t, event.Timestamp.IsZero())
	case <-time.After(time.Second):
		t.Fatal("subscriber did not receive event")
	}
}

func TestBroker_UnsubscribeClosesChannel(t *testing.T) {
	broker := NewBroker()
	broker.Start()
	defer broker.Stop()

	sub := broker.Subscribe()
	assert.Equal(t, 1, broker.SubscriberCount())

	broker.Unsubscribe(sub)
	assert.Equal(t, 0, broker.SubscriberCount())

	_, open := <-sub
	assert.False(t, open)
}

// syncBuffer makes a bytes.Buffer safe for the consumer goroutine to
// write while the test reads it
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestBroker_LogConsumerWritesEvents(t *testing.T) {
	out := &syncBuffer{}
	log.Init(log.Config{Level: log.InfoLevel, JSONOutput: true, Output: out})

	broker := NewBroker()
	broker.Start()
	defer broker.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	broker.StartLogConsumer(ctx)
	require.Equal(t, 1, broker.SubscriberCount())

	broker.Publish(NewEvent(EventTokenRotated, "node-1", "credential rotated"))

	require.Eventually(t, func() bool {
		logged := out.String()
		return strings.Contains(logged, string(EventTokenRotated)) && strings.Contains(logged, "node-1")
	}, time.Second, 10*time.Millisecond)

	// Cancellation detaches the consumer
	cancel()
	require.Eventually(t, func() bool {
		return broker.SubscriberCount() == 0
	}, time.Second, 10*time.Millisecond)
}

func TestBroker_SlowSubscriberDoesNotBlock(t *testing.T) {
	broker := NewBroker()
	broker.Start()
	defer broker.Stop()

	// Never drained; the broker must drop rather than block
	sub := broker.Subscribe()
	defer broker.Unsubscribe(sub)

	done := make(chan struct{})
	go func() {
		for i := 0; i < 200; i++ {
			broker.Publish(NewEvent(EventNodeOffline, "node-1", "missed heartbeat"))
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publisher blocked on a slow subscriber")
	}
}

package metrics

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/roost-io/roost/pkg/cache"
	"github.com/roost-io/roost/pkg/controller"
	"github.com/roost-io/roost/pkg/events"
	"github.com/roost-io/roost/pkg/security"
	"github.com/roost-io/roost/pkg/storage"
	"github.com/roost-io/roost/pkg/types"
)

func newTestController(t *testing.T) *controller.Controller {
	t.Helper()

	sealer, err := security.NewTokenSealerFromSecret("collector-test-secret")
	require.NoError(t, err)

	store, err := storage.NewBoltStore(t.TempDir(), sealer)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	c, err := controller.New(controller.Config{
		Store: store,
		Cache: cache.New(cache.Config{Fallback: cache.NewMemoryTier(0)}),
	})
	require.NoError(t, err)
	return c
}

func heartbeat(t *testing.T, c *controller.Controller, token string) {
	t.Helper()
	_, err := c.ReceiveHeartbeat(context.Background(), token, &types.HeartbeatReport{
		CPUUsage:      12.5,
		MemoryUsage:   1 << 28,
		MemoryLimit:   1 << 30,
		UptimeSeconds: 300,
		AgentVersion:  "0.1.0",
		SentAt:        time.Now(),
	})
	require.NoError(t, err)
}

func TestCollector_PublishesOfflineTransition(t *testing.T) {
	c := newTestController(t)

	broker := events.NewBroker()
	broker.Start()
	defer broker.Stop()
	sub := broker.Subscribe()

	node, err := c.RegisterNode("m1", "127.0.0.1:9100", nil)
	require.NoError(t, err)
	heartbeat(t, c, node.Token)

	col := NewCollector(c, broker, time.Hour)

	// First collect establishes the baseline, no transition yet
	col.collect(context.Background())
	require.True(t, col.lastOnline[node.ID])
	select {
	case ev := <-sub:
		t.Fatalf("unexpected event %s before any transition", ev.Type)
	default:
	}

	col.publishTransition(node.ID, false)

	require.Eventually(t, func() bool {
		select {
		case ev := <-sub:
			return ev.Type == events.EventNodeOffline && ev.NodeID == node.ID
		default:
			return false
		}
	}, time.Second, 10*time.Millisecond)
}

func TestCollector_TracksOnlineCount(t *testing.T) {
	c := newTestController(t)

	a, err := c.RegisterNode("a", "127.0.0.1:9100", nil)
	require.NoError(t, err)
	_, err = c.RegisterNode("b", "127.0.0.1:9101", nil)
	require.NoError(t, err)
	heartbeat(t, c, a.Token)

	col := NewCollector(c, nil, time.Hour)
	col.collect(context.Background())

	require.Len(t, col.lastOnline, 2)
	online := 0
	for _, up := range col.lastOnline {
		if up {
			online++
		}
	}
	require.Equal(t, 1, online, "only the heartbeating node should be online")
}

func TestCollector_NilBrokerIsSafe(t *testing.T) {
	c := newTestController(t)
	col := NewCollector(c, nil, 0)
	require.Equal(t, DefaultCollectInterval, col.interval)
	col.publishTransition("n1", false)
}

package integration

import (
	"context"
	"net"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roost-io/roost/pkg/agent"
	"github.com/roost-io/roost/pkg/api"
	"github.com/roost-io/roost/pkg/cache"
	"github.com/roost-io/roost/pkg/client"
	"github.com/roost-io/roost/pkg/controller"
	"github.com/roost-io/roost/pkg/security"
	"github.com/roost-io/roost/pkg/storage"
	"github.com/roost-io/roost/pkg/types"
)

// testFleet wires a real controller, its HTTP API, and one agent
// together in process, talking over loopback HTTP exactly as they
// would in production.
type testFleet struct {
	controllerURL string
	cli           *client.Client
	agentCli      *client.AgentClient

	nodeID       string
	initialToken string
	agentCfgPath string
}

func newTestFleet(t *testing.T) *testFleet {
	t.Helper()

	sealer, err := security.NewTokenSealerFromSecret("integration-secret")
	require.NoError(t, err)

	store, err := storage.NewBoltStore(t.TempDir(), sealer)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	ctrl, err := controller.New(controller.Config{
		Store:       store,
		Cache:       cache.New(cache.Config{Fallback: cache.NewMemoryTier(0)}),
		Pusher:      client.NewAgentClient(),
		GraceWindow: 100 * time.Millisecond,
	})
	require.NoError(t, err)

	ctrlServer := httptest.NewServer(api.NewServer(ctrl, "127.0.0.1:0").Handler())
	t.Cleanup(ctrlServer.Close)

	// The agent's listener is created first so its address can go into
	// the node registration before the agent itself exists
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	f := &testFleet{
		controllerURL: ctrlServer.URL,
		cli:           client.NewClient(ctrlServer.URL),
		agentCli:      client.NewAgentClient(),
	}

	reg, err := f.cli.RegisterNode(context.Background(), &types.RegisterNodeRequest{
		Name:    "host-1",
		Address: ln.Addr().String(),
	})
	require.NoError(t, err)
	f.nodeID = reg.Node.ID
	f.initialToken = reg.Token

	f.agentCfgPath = filepath.Join(t.TempDir(), "agent.yml")
	cfg := &agent.Config{
		NodeID:        reg.Node.ID,
		ControllerURL: ctrlServer.URL,
		Token:         reg.Token,
		ListenAddr:    ln.Addr().String(),
	}
	require.NoError(t, cfg.Save(f.agentCfgPath))

	a, err := agent.New(f.agentCfgPath, "1.0.0-test")
	require.NoError(t, err)

	agentServer := httptest.NewUnstartedServer(a.Handler())
	agentServer.Listener.Close()
	agentServer.Listener = ln
	agentServer.Start()
	t.Cleanup(agentServer.Close)

	return f
}

func (f *testFleet) heartbeat(t *testing.T, token string) error {
	t.Helper()
	return f.agentCli.Heartbeat(context.Background(), f.controllerURL, token, &types.HeartbeatReport{
		CPUUsage:      25.0,
		MemoryUsage:   4 << 28,
		MemoryLimit:   4 << 30,
		UptimeSeconds: 600,
		AgentVersion:  "1.0.0-test",
		SentAt:        time.Now(),
	})
}

func TestHeartbeatFlow(t *testing.T) {
	f := newTestFleet(t)

	require.NoError(t, f.heartbeat(t, f.initialToken))

	statuses, err := f.cli.Status(context.Background())
	require.NoError(t, err)
	require.Len(t, statuses, 1)
	assert.Equal(t, f.nodeID, statuses[0].NodeID)
	assert.True(t, statuses[0].Online)
	assert.Equal(t, "1.0.0-test", statuses[0].AgentVersion)
	assert.GreaterOrEqual(t, statuses[0].LatencyMs, int64(0))
}

func TestHeartbeat_BadTokenRejected(t *testing.T) {
	f := newTestFleet(t)

	err := f.heartbeat(t, "not-a-real-token")
	assert.ErrorIs(t, err, client.ErrUnauthorized)
}

func TestRotation_EndToEnd(t *testing.T) {
	f := newTestFleet(t)

	// The agent must be heartbeating before and after rotation with no
	// rejected beat in between
	require.NoError(t, f.heartbeat(t, f.initialToken))

	require.NoError(t, f.cli.RotateToken(context.Background(), f.nodeID))

	// The agent persisted the new credential
	cfg, err := agent.LoadConfig(f.agentCfgPath)
	require.NoError(t, err)
	require.NotEqual(t, f.initialToken, cfg.Token)

	// The new credential works immediately
	require.NoError(t, f.heartbeat(t, cfg.Token))

	// The old one keeps working through the grace window, then dies
	require.NoError(t, f.heartbeat(t, f.initialToken))
	require.Eventually(t, func() bool {
		return f.heartbeat(t, f.initialToken) != nil
	}, 2*time.Second, 25*time.Millisecond, "old credential should retire after the grace window")

	// And the new one is unaffected by the retirement
	require.NoError(t, f.heartbeat(t, cfg.Token))

	// Inventory never exposes the credential
	nodes, err := f.cli.ListNodes(context.Background())
	require.NoError(t, err)
	require.Len(t, nodes, 1)
}

func TestRotation_SurvivesControllerReload(t *testing.T) {
	t.Parallel()

	sealer, err := security.NewTokenSealerFromSecret("integration-secret")
	require.NoError(t, err)

	dataDir := t.TempDir()
	store, err := storage.NewBoltStore(dataDir, sealer)
	require.NoError(t, err)

	ctrl, err := controller.New(controller.Config{
		Store:  store,
		Cache:  cache.New(cache.Config{Fallback: cache.NewMemoryTier(0)}),
		Pusher: client.NewAgentClient(),
	})
	require.NoError(t, err)

	node, err := ctrl.RegisterNode("host-1", "127.0.0.1:1", nil)
	require.NoError(t, err)
	require.NoError(t, store.Close())

	// A fresh controller over the same data dir accepts the same token
	store2, err := storage.NewBoltStore(dataDir, sealer)
	require.NoError(t, err)
	defer store2.Close()

	ctrl2, err := controller.New(controller.Config{
		Store: store2,
		Cache: cache.New(cache.Config{Fallback: cache.NewMemoryTier(0)}),
	})
	require.NoError(t, err)

	_, err = ctrl2.ReceiveHeartbeat(context.Background(), node.Token, &types.HeartbeatReport{
		CPUUsage:      1.0,
		MemoryUsage:   1,
		MemoryLimit:   2,
		UptimeSeconds: 1,
		SentAt:        time.Now(),
	})
	require.NoError(t, err)
}

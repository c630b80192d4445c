package controller

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roost-io/roost/pkg/types"
)

// 100 concurrent heartbeats from 100 distinct nodes must all succeed
// and stay attributed to the right node.
func TestReceiveHeartbeat_ConcurrentDistinctNodes(t *testing.T) {
	c := newTestController(t, nil)

	const count = 100
	nodes := make([]*types.Node, count)
	for i := 0; i < count; i++ {
		node, err := c.RegisterNode(fmt.Sprintf("worker-%d", i), fmt.Sprintf("127.0.0.1:%d", 9000+i), nil)
		require.NoError(t, err)
		nodes[i] = node
	}

	var wg sync.WaitGroup
	errCh := make(chan error, count)
	for i, node := range nodes {
		wg.Add(1)
		go func(i int, node *types.Node) {
			defer wg.Done()
			report := validReport(time.Now())
			report.UptimeSeconds = uint64(i) // distinct payload per node
			_, err := c.ReceiveHeartbeat(context.Background(), node.Token, report)
			errCh <- err
		}(i, node)
	}
	wg.Wait()
	close(errCh)

	for err := range errCh {
		require.NoError(t, err)
	}

	for i, node := range nodes {
		sample, err := c.cache.Get(context.Background(), node.ID)
		require.NoError(t, err)
		assert.Equal(t, node.ID, sample.NodeID)
		assert.Equal(t, uint64(i), sample.UptimeSeconds)
	}
}

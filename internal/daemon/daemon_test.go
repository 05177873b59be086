package daemon

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/msgctl/netaidkit-nakd/internal/config"
	"github.com/msgctl/netaidkit-nakd/internal/jsonrpc"
	"github.com/msgctl/netaidkit-nakd/internal/metrics"
	"github.com/msgctl/netaidkit-nakd/internal/rpcconn"
	"github.com/msgctl/netaidkit-nakd/internal/workqueue"
)

func newTestDaemon(t *testing.T) *Daemon {
	t.Helper()
	d := &Daemon{
		config:       &config.GlobalConfig{Metrics: config.MetricsConfig{Enabled: true, Listen: ":0", Path: "/metrics"}},
		shutdownChan: make(chan struct{}),
	}
	d.ctx, d.cancel = context.WithCancel(context.Background())
	t.Cleanup(d.cancel)

	d.wq = workqueue.New(2, time.Second, time.Second)
	d.metricsServer = metrics.NewServer(d.config.Metrics.Listen, d.config.Metrics.Path)

	d.router = jsonrpc.NewRouter()
	socket := filepath.Join(t.TempDir(), "nakd.sock")
	d.rpcServer = rpcconn.New(socket, 8, d.router)

	return d
}

func TestBuildModuleGraphOrdersWorkqueueBeforeRpcconn(t *testing.T) {
	d := newTestDaemon(t)

	require.NoError(t, d.buildModuleGraph())

	names := d.modules.Names()
	wqIdx, rpcIdx := -1, -1
	for i, n := range names {
		switch n {
		case "workqueue":
			wqIdx = i
		case "rpcconn":
			rpcIdx = i
		}
	}
	require.NotEqual(t, -1, wqIdx)
	require.NotEqual(t, -1, rpcIdx)
	assert.Less(t, wqIdx, rpcIdx, "workqueue must initialize before rpcconn depends on it")
}

func TestModuleGraphInitStartsWorkqueueAndRpcServer(t *testing.T) {
	d := newTestDaemon(t)
	require.NoError(t, d.buildModuleGraph())

	require.NoError(t, d.modules.InitAll(d.ctx))
	assert.False(t, d.wq.Pending("anything"))

	done := make(chan struct{})
	d.wq.Add("probe", time.Second, func(ctx context.Context) error {
		close(done)
		return nil
	})
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("workqueue never ran the task; Init did not start it")
	}

	require.NoError(t, d.modules.CleanupAll(context.Background()))
}

func TestModuleGraphCleanupAfterFullInitSucceeds(t *testing.T) {
	d := newTestDaemon(t)
	require.NoError(t, d.buildModuleGraph())
	require.NoError(t, d.modules.InitAll(d.ctx))
	require.NoError(t, d.modules.CleanupAll(context.Background()))
}

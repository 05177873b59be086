package stage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/msgctl/netaidkit-nakd/internal/connectivity"
	"github.com/msgctl/netaidkit-nakd/internal/eventbus"
	"github.com/msgctl/netaidkit-nakd/internal/uci"
	"github.com/msgctl/netaidkit-nakd/internal/vpn"
	"github.com/msgctl/netaidkit-nakd/internal/wireless"
	"github.com/msgctl/netaidkit-nakd/internal/workqueue"
)

type fakeEthProbe struct{ up bool }

func (f fakeEthProbe) WANAvailable(ctx context.Context) (bool, error) { return f.up, nil }

type fakeExecutor struct{}

func (fakeExecutor) Run(ctx context.Context, name string, args ...string) (string, error) {
	return "", nil
}

type failingExecutor struct{}

func (failingExecutor) Run(ctx context.Context, name string, args ...string) (string, error) {
	return "", errors.New("unreachable")
}

type fakeVPN struct {
	started, stopped bool
}

func (v *fakeVPN) Start(ctx context.Context) error { v.started = true; return nil }
func (v *fakeVPN) Stop(ctx context.Context) error  { v.stopped = true; return nil }
func (v *fakeVPN) Status(ctx context.Context) (vpn.State, error) {
	return vpn.StateStopped, nil
}

func newTestController(t *testing.T, level connectivity.Level) (*Controller, *fakeVPN) {
	wq := workqueue.New(1, time.Second, 50*time.Millisecond)
	wq.Start()
	t.Cleanup(wq.Stop)
	bus := eventbus.New(wq)

	store, err := wireless.NewStore(filepath.Join(t.TempDir(), "wireless.json"))
	require.NoError(t, err)
	wl := wireless.NewManager(store, noopScanner{}, noopAssociator{})

	monitor := connectivity.NewMonitor(fakeEthProbe{up: level == connectivity.LevelInternet}, wl, fakeExecutor{}, bus, "", false)
	if level == connectivity.LevelNone {
		// With gateway probing off the monitor assumes Local; a failing
		// gateway probe is what brings it down to None.
		monitor = connectivity.NewMonitor(fakeEthProbe{}, wl, failingExecutor{}, bus, "", true)
	}
	require.NoError(t, monitor.Update(context.Background()))

	uciStore := uci.Open(t.TempDir())
	hooks := NewHookToggler(uciStore)
	scripts := NewScriptRunner(fakeExecutor{}, t.TempDir())
	v := &fakeVPN{}
	vpnSteps := NewVPNSteps(v)

	c := NewController(monitor)
	RegisterDefaults(c, hooks, scripts, vpnSteps)
	return c, v
}

type noopScanner struct{}

func (noopScanner) Scan(ctx context.Context) ([]wireless.Network, error) { return nil, nil }

type noopAssociator struct{}

func (noopAssociator) Associate(ctx context.Context, n wireless.Network) error { return nil }
func (noopAssociator) Disassociate(ctx context.Context) error                 { return nil }

func TestReconcileRunsRecipeInOrder(t *testing.T) {
	c, v := newTestController(t, connectivity.LevelInternet)
	require.NoError(t, c.SetDesired("online"))
	require.NoError(t, c.Reconcile(context.Background()))
	assert.Equal(t, "online", c.Current().Name)
	assert.True(t, v.stopped)
}

func TestReconcileDefersWhenConnectivityInsufficient(t *testing.T) {
	c, _ := newTestController(t, connectivity.LevelNone)
	require.NoError(t, c.SetDesired("vpn"))
	require.NoError(t, c.Reconcile(context.Background()))
	assert.Nil(t, c.Current())
}

func TestReconcileIsNoOpWhenAlreadyCurrent(t *testing.T) {
	c, v := newTestController(t, connectivity.LevelInternet)
	require.NoError(t, c.SetDesired("default"))
	require.NoError(t, c.Reconcile(context.Background()))
	v.stopped = false
	require.NoError(t, c.Reconcile(context.Background()))
	assert.False(t, v.stopped)
}

func TestVpnStageStartsVpnAfterHooksAndScripts(t *testing.T) {
	c, v := newTestController(t, connectivity.LevelInternet)
	require.NoError(t, c.SetDesired("vpn"))
	require.NoError(t, c.Reconcile(context.Background()))
	assert.True(t, v.started)
	assert.Equal(t, "vpn", c.Current().Name)
}

func TestUnknownStageRejected(t *testing.T) {
	c, _ := newTestController(t, connectivity.LevelInternet)
	err := c.SetDesired("nonexistent")
	assert.Error(t, err)
}

package connectivity

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/msgctl/netaidkit-nakd/internal/event"
	"github.com/msgctl/netaidkit-nakd/internal/eventbus"
	"github.com/msgctl/netaidkit-nakd/internal/wireless"
	"github.com/msgctl/netaidkit-nakd/internal/workqueue"
)

type fakeEthProbe struct {
	up bool
}

func (f fakeEthProbe) WANAvailable(ctx context.Context) (bool, error) { return f.up, nil }

type fakeExecutor struct {
	fail bool
}

func (f fakeExecutor) Run(ctx context.Context, name string, args ...string) (string, error) {
	if f.fail {
		return "", assertErr{}
	}
	return "ok", nil
}

type assertErr struct{}

func (assertErr) Error() string { return "boom" }

func newTestManager(t *testing.T) *wireless.Manager {
	store, err := wireless.NewStore(filepath.Join(t.TempDir(), "wireless.json"))
	require.NoError(t, err)
	return wireless.NewManager(store, noopScanner{}, noopAssociator{})
}

type noopScanner struct{}

func (noopScanner) Scan(ctx context.Context) ([]wireless.Network, error) { return nil, nil }

type noopAssociator struct{}

func (noopAssociator) Associate(ctx context.Context, n wireless.Network) error    { return nil }
func (noopAssociator) Disassociate(ctx context.Context) error                    { return nil }

func TestUpdatePrefersEthernet(t *testing.T) {
	wq := workqueue.New(1, time.Second, 50*time.Millisecond)
	wq.Start()
	defer wq.Stop()
	bus := eventbus.New(wq)

	m := NewMonitor(fakeEthProbe{up: true}, newTestManager(t), fakeExecutor{}, bus, "", false)
	require.NoError(t, m.Update(context.Background()))
	assert.Equal(t, LevelInternet, m.Level())
}

func TestUpdateDisablesWlanWhenEthernetHasCarrier(t *testing.T) {
	wq := workqueue.New(1, time.Second, 50*time.Millisecond)
	wq.Start()
	defer wq.Stop()
	bus := eventbus.New(wq)

	wl := newTestManager(t)
	require.NoError(t, wl.Connect(context.Background(), wireless.Network{SSID: "home"}))
	require.NotNil(t, wl.Current())

	m := NewMonitor(fakeEthProbe{up: true}, wl, fakeExecutor{}, bus, "", false)
	require.NoError(t, m.Update(context.Background()))

	assert.Equal(t, LevelInternet, m.Level())
	assert.Nil(t, wl.Current(), "wlan must be disabled once ethernet wan has carrier")
}

func TestUpdateFallsBackToNoneWhenGatewayUnreachable(t *testing.T) {
	wq := workqueue.New(1, time.Second, 50*time.Millisecond)
	wq.Start()
	defer wq.Stop()
	bus := eventbus.New(wq)

	m := NewMonitor(fakeEthProbe{up: false}, newTestManager(t), fakeExecutor{fail: true}, bus, "", true)
	require.NoError(t, m.Update(context.Background()))
	assert.Equal(t, LevelNone, m.Level())
}

func TestUpdateEmitsConnectivityLostOnFirstNoneTransition(t *testing.T) {
	wq := workqueue.New(2, time.Second, 50*time.Millisecond)
	wq.Start()
	defer wq.Stop()
	bus := eventbus.New(wq)

	var gotLost bool
	done := make(chan struct{}, 1)
	bus.Subscribe(event.ConnectivityLost, "test", func(ctx context.Context, e event.Event) error {
		gotLost = true
		done <- struct{}{}
		return nil
	})

	m := NewMonitor(fakeEthProbe{up: false}, newTestManager(t), fakeExecutor{fail: true}, bus, "", true)
	m.level = LevelInternet // simulate a prior "up" state
	require.NoError(t, m.Update(context.Background()))

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("expected connectivity_lost event")
	}
	assert.True(t, gotLost)
}

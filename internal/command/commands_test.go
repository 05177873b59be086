package command

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/msgctl/netaidkit-nakd/internal/connectivity"
	"github.com/msgctl/netaidkit-nakd/internal/eventbus"
	"github.com/msgctl/netaidkit-nakd/internal/jsonrpc"
	"github.com/msgctl/netaidkit-nakd/internal/led"
	"github.com/msgctl/netaidkit-nakd/internal/netstatus"
	"github.com/msgctl/netaidkit-nakd/internal/stage"
	"github.com/msgctl/netaidkit-nakd/internal/uci"
	"github.com/msgctl/netaidkit-nakd/internal/vpn"
	"github.com/msgctl/netaidkit-nakd/internal/wireless"
	"github.com/msgctl/netaidkit-nakd/internal/workqueue"
)

type fakeEthProbe struct{ up bool }

func (f fakeEthProbe) WANAvailable(ctx context.Context) (bool, error) { return f.up, nil }

type fakeExecutor struct{}

func (fakeExecutor) Run(ctx context.Context, name string, args ...string) (string, error) {
	return "done", nil
}

type fakeVPN struct{ state vpn.State }

func (v *fakeVPN) Start(ctx context.Context) error { v.state = vpn.StateConnected; return nil }
func (v *fakeVPN) Stop(ctx context.Context) error  { v.state = vpn.StateStopped; return nil }
func (v *fakeVPN) Status(ctx context.Context) (vpn.State, error) { return v.state, nil }

type fakeSink struct{ last bool }

func (f *fakeSink) SetLevel(on bool) error { f.last = on; return nil }

type fakeNetstatusProvider struct{}

func (fakeNetstatusProvider) Query(ctx context.Context) (netstatus.Snapshot, error) {
	return netstatus.Snapshot{EthWAN: netstatus.LinkUp}, nil
}

type noopScanner struct{}

func (noopScanner) Scan(ctx context.Context) ([]wireless.Network, error) {
	return []wireless.Network{{SSID: "home"}}, nil
}

type noopAssociator struct{}

func (noopAssociator) Associate(ctx context.Context, n wireless.Network) error { return nil }
func (noopAssociator) Disassociate(ctx context.Context) error                 { return nil }

func newTestServices(t *testing.T) *Services {
	wq := workqueue.New(2, time.Second, 50*time.Millisecond)
	wq.Start()
	t.Cleanup(wq.Stop)
	bus := eventbus.New(wq)

	wlStore, err := wireless.NewStore(filepath.Join(t.TempDir(), "wireless.json"))
	require.NoError(t, err)
	wl := wireless.NewManager(wlStore, noopScanner{}, noopAssociator{})

	monitor := connectivity.NewMonitor(fakeEthProbe{up: true}, wl, fakeExecutor{}, bus, "", false)
	require.NoError(t, monitor.Update(context.Background()))

	uciStore := uci.Open(t.TempDir())
	hooks := stage.NewHookToggler(uciStore)
	scripts := stage.NewScriptRunner(fakeExecutor{}, t.TempDir())
	v := &fakeVPN{}
	vpnSteps := stage.NewVPNSteps(v)

	stageCtl := stage.NewController(monitor)
	stage.RegisterDefaults(stageCtl, hooks, scripts, vpnSteps)

	tracker := netstatus.NewTracker(fakeNetstatusProvider{})
	_, err = tracker.Poll(context.Background())
	require.NoError(t, err)

	mixer := led.NewMixer(&fakeSink{})

	s := &Services{
		Router:       jsonrpc.NewRouter(),
		Workqueue:    wq,
		Netstatus:    tracker,
		Connectivity: monitor,
		Stage:        stageCtl,
		Wireless:     wl,
		LED:          mixer,
		VPN:          v,
		UCI:          uciStore,
		Executor:     fakeExecutor{},
		UpdateScript: "",
	}
	Register(s)
	return s
}

func call(s *Services, method string, params any) *jsonrpc.Response {
	raw, _ := json.Marshal(params)
	req := jsonrpc.Request{JSONRPC: "2.0", Method: method, Params: raw, ID: float64(1)}
	return s.Router.Dispatch(context.Background(), jsonrpc.AccessRoot, req)
}

func TestListIncludesCoreMethods(t *testing.T) {
	s := newTestServices(t)
	resp := call(s, "list", nil)
	require.Nil(t, resp.Error)
	names := resp.Result.([]string)
	assert.Contains(t, names, "list")
	assert.Contains(t, names, "stage_set")
	assert.Contains(t, names, "interfaces")
}

func TestInterfacesReflectsLastSnapshot(t *testing.T) {
	s := newTestServices(t)
	resp := call(s, "interfaces", nil)
	require.Nil(t, resp.Error)
	out := resp.Result.(map[string]any)
	assert.Equal(t, map[string]bool{"carrier": true}, out["WAN"])
}

func TestConnectivityReportsLevels(t *testing.T) {
	s := newTestServices(t)
	resp := call(s, "connectivity", nil)
	require.Nil(t, resp.Error)
	out := resp.Result.(map[string]bool)
	assert.True(t, out["internet"])
}

func TestStageSetUnknownNameRejected(t *testing.T) {
	s := newTestServices(t)
	resp := call(s, "stage_set", "bogus")
	require.NotNil(t, resp.Error)
	assert.Equal(t, jsonrpc.CodeInvalidParams, resp.Error.Code)
}

func TestStageSetValidNameEnqueuesReconciliation(t *testing.T) {
	s := newTestServices(t)
	resp := call(s, "stage_set", "online")
	require.Nil(t, resp.Error)
	assert.Equal(t, "OK", resp.Result)

	require.Eventually(t, func() bool {
		cur := s.Stage.Current()
		return cur != nil && cur.Name == "online"
	}, time.Second, 10*time.Millisecond)
}

func TestWlanConnectRequiresSSID(t *testing.T) {
	s := newTestServices(t)
	resp := call(s, "wlan_connect", map[string]any{"key": "secret"})
	require.NotNil(t, resp.Error)
	assert.Equal(t, jsonrpc.CodeInvalidParams, resp.Error.Code)
}

func TestWlanConnectStoresAndAssociates(t *testing.T) {
	s := newTestServices(t)
	resp := call(s, "wlan_connect", map[string]any{"ssid": "home", "key": "secret", "store": true})
	require.Nil(t, resp.Error)
	assert.Equal(t, "OK", resp.Result)
	assert.NotNil(t, s.Wireless.Current())
}

func TestOpenvpnStateReportsStopped(t *testing.T) {
	s := newTestServices(t)
	resp := call(s, "openvpn", "state")
	require.Nil(t, resp.Error)
	assert.Equal(t, "stopped", resp.Result)
}

func TestOpenvpnStartThenState(t *testing.T) {
	s := newTestServices(t)
	resp := call(s, "openvpn", "start")
	require.Nil(t, resp.Error)

	resp = call(s, "openvpn", "state")
	require.Nil(t, resp.Error)
	assert.Equal(t, "connected", resp.Result)
}

func TestUpdateFailsWithoutScript(t *testing.T) {
	s := newTestServices(t)
	resp := call(s, "update", nil)
	require.NotNil(t, resp.Error)
	assert.Equal(t, jsonrpc.CodeInternalError, resp.Error.Code)
}

func TestLedInfoReportsNoneActiveInitially(t *testing.T) {
	s := newTestServices(t)
	resp := call(s, "led_info", nil)
	require.Nil(t, resp.Error)
	out := resp.Result.(map[string]string)
	assert.Equal(t, "", out["active"])
}

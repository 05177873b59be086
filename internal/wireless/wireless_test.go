package wireless

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAssociator struct {
	associated   *Network
	disconnected bool
	err          error
}

func (f *fakeAssociator) Associate(ctx context.Context, n Network) error {
	if f.err != nil {
		return f.err
	}
	f.associated = &n
	return nil
}

func (f *fakeAssociator) Disassociate(ctx context.Context) error {
	f.disconnected = true
	return nil
}

type fakeScanner struct {
	networks []Network
}

func (f *fakeScanner) Scan(ctx context.Context) ([]Network, error) { return f.networks, nil }

func newTestStore(t *testing.T) *Store {
	path := filepath.Join(t.TempDir(), "wireless-networks.json")
	s, err := NewStore(path)
	require.NoError(t, err)
	return s
}

func TestStorePersistsAcrossReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wireless-networks.json")
	s1, err := NewStore(path)
	require.NoError(t, err)
	require.NoError(t, s1.Put(Network{SSID: "home", PSK: "secret", Priority: 5}))

	s2, err := NewStore(path)
	require.NoError(t, err)
	got := s2.Get("home")
	require.NotNil(t, got)
	assert.Equal(t, "secret", got.PSK)
}

func TestStoreRemove(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.Put(Network{SSID: "a"}))
	require.NoError(t, store.Remove("a"))
	assert.Nil(t, store.Get("a"))
}

func TestConnectPersistsAndAssociates(t *testing.T) {
	store := newTestStore(t)
	assoc := &fakeAssociator{}
	mgr := NewManager(store, &fakeScanner{}, assoc)

	require.NoError(t, mgr.Connect(context.Background(), Network{SSID: "home", PSK: "pw", Priority: 1}))
	assert.Equal(t, "home", assoc.associated.SSID)
	assert.Equal(t, "home", mgr.Current().SSID)
	assert.NotNil(t, store.Get("home"))
}

func TestCandidatePrefersHighestPriorityInRange(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.Put(Network{SSID: "low", Priority: 1}))
	require.NoError(t, store.Put(Network{SSID: "high", Priority: 9}))
	mgr := NewManager(store, &fakeScanner{}, &fakeAssociator{})

	inRange := []Network{{SSID: "low"}, {SSID: "high"}}
	candidate := mgr.Candidate(inRange)
	require.NotNil(t, candidate)
	assert.Equal(t, "high", candidate.SSID)
}

func TestCandidateIgnoresOutOfRangeNetworks(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.Put(Network{SSID: "far-away", Priority: 10}))
	mgr := NewManager(store, &fakeScanner{}, &fakeAssociator{})

	assert.Nil(t, mgr.Candidate([]Network{{SSID: "other"}}))
}

func TestDisconnectClearsCurrent(t *testing.T) {
	store := newTestStore(t)
	assoc := &fakeAssociator{}
	mgr := NewManager(store, &fakeScanner{}, assoc)
	require.NoError(t, mgr.Connect(context.Background(), Network{SSID: "home"}))
	require.NoError(t, mgr.Disconnect(context.Background()))
	assert.True(t, assoc.disconnected)
	assert.Nil(t, mgr.Current())
}

func TestParseIwinfoScan(t *testing.T) {
	out := `Cell 01 - Address: AA:BB:CC:DD:EE:FF
          ESSID: "my-network"
          Encryption: WPA2 PSK (CCMP)
Cell 02 - Address: 11:22:33:44:55:66
          ESSID: "other"
`
	networks := parseIwinfoScan(out)
	require.Len(t, networks, 2)
	assert.Equal(t, "my-network", networks[0].SSID)
	assert.Equal(t, "other", networks[1].SSID)
}

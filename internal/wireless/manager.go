package wireless

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/msgctl/netaidkit-nakd/internal/metrics"
	"github.com/msgctl/netaidkit-nakd/internal/shell"
)

// Scanner discovers in-range networks. The concrete implementation shells
// out to iwinfo/ubus on OpenWrt (original_source/wlan.c's
// _wlan_scan_iwinfo/_wlan_scan_rpcd); tests substitute a fake.
type Scanner interface {
	Scan(ctx context.Context) ([]Network, error)
}

// Associator drives the actual wpa_supplicant/uci association.
type Associator interface {
	Associate(ctx context.Context, n Network) error
	Disassociate(ctx context.Context) error
}

// Manager coordinates scanning, credential storage, and association.
type Manager struct {
	store      *Store
	scanner    Scanner
	associator Associator

	mu          sync.Mutex
	current     *Network
	associated  bool
	lastScan    time.Time
	lastResults []Network

	onAssociating func(active bool)
}

// NewManager creates a wireless Manager.
func NewManager(store *Store, scanner Scanner, associator Associator) *Manager {
	return &Manager{store: store, scanner: scanner, associator: associator}
}

// OnAssociating registers a hook invoked with true just before Connect calls
// the associator, and false once it returns — lets the caller surface
// mid-association state (e.g. the LED mixer's "associating" condition)
// without Manager knowing anything about LEDs.
func (m *Manager) OnAssociating(fn func(active bool)) {
	m.onAssociating = fn
}

// Scan returns the currently in-range networks, sorted by SSID for stable
// output.
func (m *Manager) Scan(ctx context.Context) ([]Network, error) {
	networks, err := m.scanner.Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("wireless: scan: %w", err)
	}
	sort.Slice(networks, func(i, j int) bool { return networks[i].SSID < networks[j].SSID })

	m.mu.Lock()
	m.lastScan = time.Now()
	m.lastResults = networks
	m.mu.Unlock()
	return networks, nil
}

// LastScan returns the results and timestamp of the most recent Scan call.
func (m *Manager) LastScan() ([]Network, time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastResults, m.lastScan
}

// ListStored returns the saved credential set.
func (m *Manager) ListStored() []Network {
	return m.store.List()
}

// Candidate chooses the best stored network currently in range: the
// highest-priority stored entry whose SSID appears in the in-range list.
// Mirrors original_source/wlan.c's __choose_network.
func (m *Manager) Candidate(inRange []Network) *Network {
	present := make(map[string]bool, len(inRange))
	for _, n := range inRange {
		present[n.SSID] = true
	}

	var best *Network
	for _, stored := range m.store.List() {
		stored := stored
		if !present[stored.SSID] {
			continue
		}
		if best == nil || stored.Priority > best.Priority {
			best = &stored
		}
	}
	return best
}

// Connect stores n's credentials (if psk is non-empty) and associates with it.
func (m *Manager) Connect(ctx context.Context, n Network) error {
	if n.SSID == "" {
		return fmt.Errorf("wireless: ssid must not be empty")
	}
	if n.PSK != "" {
		if err := m.store.Put(n); err != nil {
			return fmt.Errorf("wireless: persist credentials: %w", err)
		}
	}

	if m.onAssociating != nil {
		m.onAssociating(true)
		defer m.onAssociating(false)
	}
	if err := m.associator.Associate(ctx, n); err != nil {
		return fmt.Errorf("wireless: associate: %w", err)
	}

	m.mu.Lock()
	m.current = &n
	m.associated = true
	m.mu.Unlock()
	metrics.WirelessAssociated.Set(1)
	return nil
}

// Disconnect tears down the current association, if any.
func (m *Manager) Disconnect(ctx context.Context) error {
	if err := m.associator.Disassociate(ctx); err != nil {
		return fmt.Errorf("wireless: disassociate: %w", err)
	}
	m.mu.Lock()
	m.current = nil
	m.associated = false
	m.mu.Unlock()
	metrics.WirelessAssociated.Set(0)
	return nil
}

// Current returns the currently associated network, or nil.
func (m *Manager) Current() *Network {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// ShellScanner implements Scanner via iwinfo command-line output.
type ShellScanner struct {
	Executor  shell.Executor
	Interface string
}

// Scan implements Scanner by invoking `iwinfo <iface> scan` and parsing SSID
// lines. Kept intentionally simple — OpenWrt's iwinfo text output varies by
// driver, and nakd only needs the SSID, not encryption or full BSS info.
func (s *ShellScanner) Scan(ctx context.Context) ([]Network, error) {
	out, err := s.Executor.Run(ctx, "iwinfo", s.Interface, "scan")
	if err != nil {
		return nil, err
	}
	return parseIwinfoScan(out), nil
}

// Package connectivity implements the periodic reconciliation that prefers
// ethernet over wireless, arp-pings the default gateway to validate the
// current wireless association, and falls back to selecting a new wireless
// candidate when the current network drops out of range.
//
// Grounded on original_source/connectivity.c's _connectivity_update.
package connectivity

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/sony/gobreaker"

	"github.com/msgctl/netaidkit-nakd/internal/event"
	"github.com/msgctl/netaidkit-nakd/internal/eventbus"
	"github.com/msgctl/netaidkit-nakd/internal/metrics"
	"github.com/msgctl/netaidkit-nakd/internal/shell"
	"github.com/msgctl/netaidkit-nakd/internal/wireless"
)

// Level is the daemon-wide connectivity level, gating stage transitions.
type Level int

const (
	LevelNone Level = iota
	LevelLocal
	LevelInternet
)

// EthernetProbe reports whether the ethernet WAN link is present.
type EthernetProbe interface {
	WANAvailable(ctx context.Context) (bool, error)
}

// Monitor reconciles ethernet/wireless connectivity on each tick.
type Monitor struct {
	eth       EthernetProbe
	wireless  *wireless.Manager
	executor  shell.Executor
	bus       *eventbus.Bus
	probeScript string
	gatewayProbe bool

	breaker *gobreaker.CircuitBreaker

	mu    sync.Mutex
	level Level
}

// NewMonitor creates a connectivity Monitor.
func NewMonitor(eth EthernetProbe, wl *wireless.Manager, executor shell.Executor, bus *eventbus.Bus, probeScript string, gatewayProbe bool) *Monitor {
	settings := gobreaker.Settings{
		Name:        "connectivity-probe",
		MaxRequests: 1,
		Timeout:     30 * time.Second,
	}
	return &Monitor{
		eth:          eth,
		wireless:     wl,
		executor:     executor,
		bus:          bus,
		probeScript:  probeScript,
		gatewayProbe: gatewayProbe,
		breaker:      gobreaker.NewCircuitBreaker(settings),
		level:        LevelNone,
	}
}

// Level returns the last-computed connectivity level.
func (m *Monitor) Level() Level {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.level
}

// Update runs one reconciliation pass: prefer ethernet, fall back to
// wireless association maintenance, and compute the resulting level.
func (m *Monitor) Update(ctx context.Context) error {
	ethUp, err := m.eth.WANAvailable(ctx)
	if err != nil {
		slog.Warn("ethernet wan probe failed", "error", err)
	}
	if ethUp {
		if m.wireless.Current() != nil {
			if err := m.wireless.Disconnect(ctx); err != nil {
				slog.Warn("failed to disable wlan with ethernet wan present", "error", err)
			}
		}
		return m.settle(ctx, LevelInternet)
	}

	if err := m.reconcileWireless(ctx); err != nil {
		slog.Warn("wireless reconciliation failed", "error", err)
	}

	local := m.probeLocal(ctx)
	if !local {
		return m.settle(ctx, LevelNone)
	}

	if m.probeInternet(ctx) {
		return m.settle(ctx, LevelInternet)
	}
	return m.settle(ctx, LevelLocal)
}

// reconcileWireless mirrors connectivity.c: disconnect a current network
// that's fallen out of range or stopped answering gateway pings, then pick
// a new candidate if nothing is associated.
func (m *Monitor) reconcileWireless(ctx context.Context) error {
	current := m.wireless.Current()
	if current != nil {
		networks, err := m.wireless.Scan(ctx)
		if err != nil {
			return err
		}
		inRange := false
		for _, n := range networks {
			if n.SSID == current.SSID {
				inRange = true
				break
			}
		}
		if !inRange || !m.probeLocal(ctx) {
			return m.wireless.Disconnect(ctx)
		}
		return nil
	}

	networks, err := m.wireless.Scan(ctx)
	if err != nil {
		return err
	}
	candidate := m.wireless.Candidate(networks)
	if candidate == nil {
		return nil
	}
	return m.wireless.Connect(ctx, *candidate)
}

// probeLocal arp-pings the default gateway, the way
// original_source/connectivity.c's nakd_local_connectivity does, guarded by
// a circuit breaker so a wedged probe script degrades the monitor to
// "unknown/none" rather than blocking the workqueue task indefinitely.
func (m *Monitor) probeLocal(ctx context.Context) bool {
	if !m.gatewayProbe {
		return true
	}
	_, err := m.breaker.Execute(func() (any, error) {
		return m.executor.Run(ctx, "arping", "-c", "1", "-w", "1")
	})
	return err == nil
}

func (m *Monitor) probeInternet(ctx context.Context) bool {
	if m.probeScript == "" || !shell.Accessible(m.probeScript) {
		return false
	}
	_, err := m.breaker.Execute(func() (any, error) {
		return m.executor.Run(ctx, m.probeScript)
	})
	return err == nil
}

func (m *Monitor) settle(ctx context.Context, level Level) error {
	m.mu.Lock()
	prev := m.level
	m.level = level
	m.mu.Unlock()

	metrics.ConnectivityLevel.Set(float64(level))

	if prev != level {
		if level == LevelNone {
			m.bus.Publish(event.Event{Kind: event.ConnectivityLost})
		} else if prev == LevelNone {
			m.bus.Publish(event.Event{Kind: event.ConnectivityOk})
		}
	}
	return nil
}

package netstatus

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/msgctl/netaidkit-nakd/internal/shell"
)

// deviceStatus is the subset of `ubus call network.device status` this
// daemon cares about: whether link carrier is present on the device.
type deviceStatus struct {
	Carrier bool `json:"carrier"`
}

// UbusProvider queries `ubus call network.device status` and resolves the
// per-device carrier flags to the WAN/LAN/WLAN roles via statically
// configured device names, mirroring original_source/netintf.c's
// NETINTF_UBUS_SERVICE/"network.device" "status" poll (there driven by
// libubus directly; here shelled out since the pack carries no ubus
// binding).
type UbusProvider struct {
	executor              shell.Executor
	wanDevice, lanDevice, wlanDevice string
}

// NewUbusProvider builds a Provider backed by executor, resolving roles to
// device names per cfg.
func NewUbusProvider(executor shell.Executor, wanDevice, lanDevice, wlanDevice string) *UbusProvider {
	return &UbusProvider{executor: executor, wanDevice: wanDevice, lanDevice: lanDevice, wlanDevice: wlanDevice}
}

// Query implements Provider.
func (p *UbusProvider) Query(ctx context.Context) (Snapshot, error) {
	out, err := p.executor.Run(ctx, "ubus", "call", "network.device", "status")
	if err != nil {
		return Snapshot{}, fmt.Errorf("netstatus: ubus call: %w", err)
	}

	var all map[string]deviceStatus
	if err := json.Unmarshal([]byte(out), &all); err != nil {
		return Snapshot{}, fmt.Errorf("netstatus: parse ubus response: %w", err)
	}

	return Snapshot{
		EthWAN:   linkState(all[p.wanDevice]),
		EthLAN:   linkState(all[p.lanDevice]),
		Wireless: linkState(all[p.wlanDevice]),
	}, nil
}

func linkState(s deviceStatus) LinkState {
	if s.Carrier {
		return LinkUp
	}
	return LinkDown
}

package wireless

import (
	"context"

	"github.com/msgctl/netaidkit-nakd/internal/shell"
)

// ShellAssociator drives association via wpa_cli, the way OpenWrt's
// wifi-reload path does (original_source/wlan.c's _reload_wireless_config
// calls into uci + wifi reload rather than wpa_cli directly, but the
// externally observable contract — "pass SSID/PSK, get associated or not" —
// is the same either way).
type ShellAssociator struct {
	Executor  shell.Executor
	Interface string
}

// Associate implements Associator.
func (a *ShellAssociator) Associate(ctx context.Context, n Network) error {
	if _, err := a.Executor.Run(ctx, "wpa_cli", "-i", a.Interface, "add_network"); err != nil {
		return err
	}
	if _, err := a.Executor.Run(ctx, "wpa_cli", "-i", a.Interface, "set_network", "0", "ssid", `"`+n.SSID+`"`); err != nil {
		return err
	}
	if n.PSK != "" {
		if _, err := a.Executor.Run(ctx, "wpa_cli", "-i", a.Interface, "set_network", "0", "psk", `"`+n.PSK+`"`); err != nil {
			return err
		}
	}
	_, err := a.Executor.Run(ctx, "wpa_cli", "-i", a.Interface, "enable_network", "0")
	return err
}

// Disassociate implements Associator.
func (a *ShellAssociator) Disassociate(ctx context.Context) error {
	_, err := a.Executor.Run(ctx, "wpa_cli", "-i", a.Interface, "disconnect")
	return err
}

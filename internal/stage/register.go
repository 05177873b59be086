package stage

import (
	"github.com/msgctl/netaidkit-nakd/internal/connectivity"
)

// RegisterDefaults builds and registers the five statically-declared
// stages from spec.md §4.10 / original_source/stage.c's _stages table:
// reset, default, online, tor (all gated at their respective connectivity
// levels, stopping any running VPN first) and vpn (which starts one after
// applying hooks and scripts).
func RegisterDefaults(c *Controller, hooks *HookToggler, scripts *ScriptRunner, vpnSteps *VPNSteps) {
	common := []NamedStep{
		{Name: "Calling UCI hooks", Work: hooks.ApplyUciHooks},
		{Name: "Running stage shell script", Work: scripts.RunStageScripts},
	}

	withStopVpn := func(steps ...NamedStep) []NamedStep {
		out := make([]NamedStep, 0, len(steps)+1)
		out = append(out, NamedStep{Name: "Stopping OpenVPN", Work: vpnSteps.StopVpn})
		out = append(out, steps...)
		return out
	}

	c.Register(&Stage{
		Name:        "reset",
		Description: "factory firewall defaults, no upstream steering",
		Required:    connectivity.LevelNone,
		Recipe:      withStopVpn(common...),
	})
	c.Register(&Stage{
		Name:        "default",
		Description: "default firewall rules",
		Required:    connectivity.LevelNone,
		Recipe:      withStopVpn(common...),
	})
	c.Register(&Stage{
		Name:        "online",
		Description: "normal operation, direct upstream",
		Required:    connectivity.LevelLocal,
		Recipe:      withStopVpn(common...),
	})
	c.Register(&Stage{
		Name:        "tor",
		Description: "traffic steered through Tor",
		Required:    connectivity.LevelLocal,
		Recipe:      withStopVpn(common...),
	})
	c.Register(&Stage{
		Name:        "vpn",
		Description: "traffic steered through OpenVPN",
		Required:    connectivity.LevelLocal,
		Recipe: append(append([]NamedStep{}, common...),
			NamedStep{Name: "Starting OpenVPN", Work: vpnSteps.StartVpn}),
	})
}

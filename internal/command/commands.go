// Package command builds the statically registered JSON-RPC method table
// bridging internal/jsonrpc's Router to the daemon's concrete components:
// module list, interface status, connectivity level, the stage controller,
// the wireless manager, the VPN controller, the LED mixer, and the update
// recipe.
//
// Grounded on the teacher's internal/command/handler.go switch-based
// dispatch shape, generalized to nakd's statically registered command table
// (spec.md §4.6), with method semantics from original_source/jsonrpc.c,
// stage.c, wlan.c, led.c and openvpn.c.
package command

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/msgctl/netaidkit-nakd/internal/connectivity"
	"github.com/msgctl/netaidkit-nakd/internal/jsonrpc"
	"github.com/msgctl/netaidkit-nakd/internal/led"
	"github.com/msgctl/netaidkit-nakd/internal/netstatus"
	"github.com/msgctl/netaidkit-nakd/internal/shell"
	"github.com/msgctl/netaidkit-nakd/internal/stage"
	"github.com/msgctl/netaidkit-nakd/internal/uci"
	"github.com/msgctl/netaidkit-nakd/internal/vpn"
	"github.com/msgctl/netaidkit-nakd/internal/wireless"
	"github.com/msgctl/netaidkit-nakd/internal/workqueue"
)

// Services collects every component a command handler may need. The daemon
// builds one and passes it to Register at startup.
type Services struct {
	Router       *jsonrpc.Router
	Workqueue    *workqueue.Queue
	Netstatus    *netstatus.Tracker
	Connectivity *connectivity.Monitor
	Stage        *stage.Controller
	Wireless     *wireless.Manager
	LED          *led.Mixer
	VPN          vpn.Controller
	UCI          *uci.Store
	Executor     shell.Executor
	UpdateScript string
	DesiredStageKey struct {
		Package, Section, Option string
	}
}

// Register binds every domain command to Services.Router. Each handler
// validates its own parameters and returns a jsonrpc.ErrorObject on
// user-facing failure, or a plain error for anything the router should
// report as CodeInternalError.
func Register(s *Services) {
	s.Router.Register(jsonrpc.Method{
		Name:   "list",
		Access: jsonrpc.AccessUser,
		Handler: func(ctx context.Context, params json.RawMessage) (any, error) {
			return s.Router.Methods(), nil
		},
	})

	s.Router.Register(jsonrpc.Method{
		Name:   "interfaces",
		Access: jsonrpc.AccessUser,
		Handler: func(ctx context.Context, params json.RawMessage) (any, error) {
			return s.interfaces(), nil
		},
	})

	s.Router.Register(jsonrpc.Method{
		Name:   "connectivity",
		Access: jsonrpc.AccessUser,
		Handler: func(ctx context.Context, params json.RawMessage) (any, error) {
			level := s.Connectivity.Level()
			return map[string]bool{
				"local":    level >= connectivity.LevelLocal,
				"internet": level >= connectivity.LevelInternet,
			}, nil
		},
	})

	s.Router.Register(jsonrpc.Method{
		Name:   "stage_set",
		Access: jsonrpc.AccessRoot,
		Handler: s.stageSet,
	})

	s.Router.Register(jsonrpc.Method{
		Name:   "stage_info",
		Access: jsonrpc.AccessUser,
		Handler: func(ctx context.Context, params json.RawMessage) (any, error) {
			return s.stageInfo(), nil
		},
	})

	s.Router.Register(jsonrpc.Method{
		Name:   "stage_list",
		Access: jsonrpc.AccessUser,
		Handler: func(ctx context.Context, params json.RawMessage) (any, error) {
			out := make([]map[string]any, 0)
			for _, st := range s.Stage.List() {
				out = append(out, map[string]any{
					"name":         st.Name,
					"connectivity": int(st.Required),
				})
			}
			return out, nil
		},
	})

	s.Router.Register(jsonrpc.Method{
		Name:   "wlan_scan",
		Access: jsonrpc.AccessUser,
		Handler: s.wlanScan,
	})

	s.Router.Register(jsonrpc.Method{
		Name:   "wlan_list",
		Access: jsonrpc.AccessUser,
		Handler: func(ctx context.Context, params json.RawMessage) (any, error) {
			results, _ := s.Wireless.LastScan()
			return results, nil
		},
	})

	s.Router.Register(jsonrpc.Method{
		Name:   "wlan_list_stored",
		Access: jsonrpc.AccessUser,
		Handler: func(ctx context.Context, params json.RawMessage) (any, error) {
			return s.Wireless.ListStored(), nil
		},
	})

	s.Router.Register(jsonrpc.Method{
		Name:   "wlan_connect",
		Access: jsonrpc.AccessRoot,
		Handler: s.wlanConnect,
	})

	s.Router.Register(jsonrpc.Method{
		Name:   "wlan_disconnect",
		Access: jsonrpc.AccessRoot,
		Handler: func(ctx context.Context, params json.RawMessage) (any, error) {
			if err := s.Wireless.Disconnect(ctx); err != nil {
				return nil, err
			}
			return "OK", nil
		},
	})

	s.Router.Register(jsonrpc.Method{
		Name:   "openvpn",
		Access: jsonrpc.AccessRoot,
		Handler: s.openvpn,
	})

	s.Router.Register(jsonrpc.Method{
		Name:   "update",
		Access: jsonrpc.AccessRoot,
		Handler: s.update,
	})

	s.Router.Register(jsonrpc.Method{
		Name:   "led_list",
		Access: jsonrpc.AccessUser,
		Handler: func(ctx context.Context, params json.RawMessage) (any, error) {
			return s.LED.List(), nil
		},
	})

	s.Router.Register(jsonrpc.Method{
		Name:   "led_info",
		Access: jsonrpc.AccessUser,
		Handler: func(ctx context.Context, params json.RawMessage) (any, error) {
			return map[string]string{"active": s.LED.Active()}, nil
		},
	})
}

func (s *Services) interfaces() map[string]any {
	snap := s.Netstatus.Last()
	if snap == nil {
		return map[string]any{"LAN": nil, "WAN": nil, "WLAN": nil, "AP": nil}
	}
	return map[string]any{
		"WAN":  map[string]bool{"carrier": snap.EthWAN == netstatus.LinkUp},
		"LAN":  map[string]bool{"carrier": snap.EthLAN == netstatus.LinkUp},
		"WLAN": map[string]bool{"carrier": snap.Wireless == netstatus.LinkUp},
		"AP":   nil,
	}
}

func (s *Services) stageInfo() map[string]any {
	cur := s.Stage.Current()
	desired := s.Stage.Desired()
	target := cur
	if desired != nil {
		target = desired
	}
	if target == nil {
		return map[string]any{"name": "", "desc": "", "connectivity": int(s.Connectivity.Level()), "errmsg": ""}
	}
	return map[string]any{
		"name":         target.Name,
		"desc":         target.Description,
		"connectivity": int(s.Connectivity.Level()),
		"errmsg":       target.LastError(),
	}
}

func (s *Services) stageSet(ctx context.Context, params json.RawMessage) (any, error) {
	var name string
	if err := json.Unmarshal(params, &name); err != nil {
		return nil, jsonrpc.NewError(jsonrpc.CodeInvalidParams, "params should be a string")
	}

	if err := s.Stage.SetDesired(name); err != nil {
		return nil, jsonrpc.NewError(jsonrpc.CodeInvalidParams, err.Error())
	}

	if s.DesiredStageKey.Package != "" {
		if err := s.UCI.Set(s.DesiredStageKey.Package, s.DesiredStageKey.Section, s.DesiredStageKey.Option, name); err == nil {
			_ = s.UCI.Commit()
		}
	}

	s.Workqueue.Add("stage:reconcile", 0, func(ctx context.Context) error {
		return s.Stage.Reconcile(ctx)
	})
	return "OK", nil
}

func (s *Services) wlanScan(ctx context.Context, params json.RawMessage) (any, error) {
	results, err := s.Wireless.Scan(ctx)
	if err != nil {
		return nil, err
	}
	_, lastScan := s.Wireless.LastScan()
	return map[string]any{
		"netcount":  len(results),
		"last_scan": lastScan,
	}, nil
}

type wlanConnectParams struct {
	SSID  string `json:"ssid"`
	Key   string `json:"key"`
	Store *bool  `json:"store"`
}

func (s *Services) wlanConnect(ctx context.Context, params json.RawMessage) (any, error) {
	var p wlanConnectParams
	if err := json.Unmarshal(params, &p); err != nil || p.SSID == "" {
		return nil, jsonrpc.NewError(jsonrpc.CodeInvalidParams, "params should be {ssid, key, store?}")
	}

	psk := p.Key
	if p.Store != nil && !*p.Store {
		psk = ""
	}

	if err := s.Wireless.Connect(ctx, wireless.Network{SSID: p.SSID, PSK: psk}); err != nil {
		return nil, err
	}
	return "OK", nil
}

func (s *Services) openvpn(ctx context.Context, params json.RawMessage) (any, error) {
	var action string
	if err := json.Unmarshal(params, &action); err != nil {
		return nil, jsonrpc.NewError(jsonrpc.CodeInvalidParams, `params should be one of "state"|"start"|"stop"|"restart"`)
	}

	switch action {
	case "state":
		state, err := s.VPN.Status(ctx)
		if err != nil {
			return nil, err
		}
		return stateName(state), nil
	case "start":
		if err := s.VPN.Start(ctx); err != nil {
			return nil, err
		}
		return "OK", nil
	case "stop":
		if err := s.VPN.Stop(ctx); err != nil {
			return nil, err
		}
		return "OK", nil
	case "restart":
		if err := s.VPN.Stop(ctx); err != nil {
			return nil, err
		}
		if err := s.VPN.Start(ctx); err != nil {
			return nil, err
		}
		return "OK", nil
	default:
		return nil, jsonrpc.NewError(jsonrpc.CodeInvalidParams, fmt.Sprintf("unknown openvpn action %q", action))
	}
}

func stateName(st vpn.State) string {
	switch st {
	case vpn.StateConnected:
		return "connected"
	case vpn.StateConnecting:
		return "connecting"
	default:
		return "stopped"
	}
}

func (s *Services) update(ctx context.Context, params json.RawMessage) (any, error) {
	if s.UpdateScript == "" || !shell.Accessible(s.UpdateScript) {
		return nil, jsonrpc.NewError(jsonrpc.CodeInternalError, "no update script configured")
	}
	out, err := s.Executor.Run(ctx, s.UpdateScript)
	if err != nil {
		return nil, jsonrpc.NewError(jsonrpc.CodeInternalError, err.Error())
	}
	return out, nil
}

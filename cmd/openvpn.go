package cmd

import (
	"context"
	"time"

	"github.com/spf13/cobra"
)

// openvpnCmd groups the OpenVPN control surface subcommands. All four are
// thin wrappers over the single "openvpn" RPC method, which switches on the
// action string (spec.md §6).
var openvpnCmd = &cobra.Command{
	Use:   "openvpn {state|start|stop|restart}",
	Short: "Query or control the OpenVPN tunnel",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		c := newClient(socketPath, 15*time.Second)
		resp, err := c.callOK(context.Background(), "openvpn", args[0])
		if err != nil {
			exitWithError("openvpn "+args[0], err)
		}
		if err := printJSON(resp.Result); err != nil {
			exitWithError("format result", err)
		}
	},
}

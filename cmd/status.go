package cmd

import (
	"context"
	"time"

	"github.com/spf13/cobra"
)

// statusCmd queries overall appliance status: interface link state and
// connectivity level, combined client-side from two RPC calls since nakd
// has no single aggregate status method (spec.md §6 lists them separately).
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show interface and connectivity status",
	Run: func(cmd *cobra.Command, args []string) {
		c := newClient(socketPath, 10*time.Second)
		ctx := context.Background()

		ifaces, err := c.callOK(ctx, "interfaces", nil)
		if err != nil {
			exitWithError("query interfaces", err)
		}
		conn, err := c.callOK(ctx, "connectivity", nil)
		if err != nil {
			exitWithError("query connectivity", err)
		}

		if err := printJSON(map[string]any{
			"interfaces":   ifaces.Result,
			"connectivity": conn.Result,
		}); err != nil {
			exitWithError("format result", err)
		}
	},
}

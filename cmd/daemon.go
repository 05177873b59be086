package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/msgctl/netaidkit-nakd/internal/daemon"
)

// daemonCmd runs the supervisor in the foreground.
var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Run nakd in the foreground",
	Long: `Run the nakd supervisor in the foreground.

Loads configuration, wires the workqueue, timers, event bus, connectivity
monitor, stage controller, wireless manager and LED mixer, starts the
JSON-RPC control socket, then blocks handling signals (SIGTERM/SIGINT for
graceful shutdown, SIGHUP for config reload) until told to stop.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := daemon.New(configFile)
		if err != nil {
			return fmt.Errorf("load daemon: %w", err)
		}
		if err := d.Start(); err != nil {
			return fmt.Errorf("start daemon: %w", err)
		}
		return d.Run()
	},
}

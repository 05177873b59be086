package cmd

import (
	"fmt"
	"os"
	"syscall"

	"github.com/spf13/cobra"
)

// reloadCmd sends SIGHUP to the running daemon, triggering Daemon.Reload.
var reloadCmd = &cobra.Command{
	Use:   "reload",
	Short: "Reload the nakd daemon configuration",
	Long: `Send SIGHUP to the running daemon. The daemon reloads its config
file; log level and format take effect immediately, changes to the control
socket path or workqueue worker count are reported as requiring a restart.`,
	Run: func(cmd *cobra.Command, args []string) {
		pid, err := readPID(pidFile)
		if err != nil {
			exitWithError("daemon is not running", err)
		}
		proc, err := os.FindProcess(pid)
		if err != nil {
			exitWithError("find daemon process", err)
		}
		if err := proc.Signal(syscall.SIGHUP); err != nil {
			exitWithError("signal daemon process", err)
		}
		fmt.Println("Sent reload signal to nakd.")
	},
}

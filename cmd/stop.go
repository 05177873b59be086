package cmd

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
)

var pidFile string

// stopCmd sends SIGTERM to the running daemon and waits briefly for it to
// exit, mirroring the teacher's stopCmd but against a real signal instead of
// draining a task list (nakd has no per-connection state to tear down first;
// Daemon.Stop already closes the control socket and workers in order).
var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the running nakd daemon",
	Run: func(cmd *cobra.Command, args []string) {
		pid, err := readPID(pidFile)
		if err != nil {
			exitWithError("daemon is not running", err)
		}

		proc, err := os.FindProcess(pid)
		if err != nil {
			exitWithError("find daemon process", err)
		}
		if err := proc.Signal(syscall.SIGTERM); err != nil {
			exitWithError("signal daemon process", err)
		}

		fmt.Printf("Sent SIGTERM to nakd (pid %d), waiting for shutdown...\n", pid)
		for i := 0; i < 50; i++ {
			if err := proc.Signal(syscall.Signal(0)); err != nil {
				fmt.Println("Daemon stopped.")
				return
			}
			time.Sleep(100 * time.Millisecond)
		}
		fmt.Println("Daemon did not exit within 5s; it may still be shutting down.")
	},
}

func init() {
	stopCmd.Flags().StringVarP(&pidFile, "pidfile", "p", "/var/run/nakd.pid", "PID file path")
}

func readPID(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(strings.TrimSpace(string(data)))
}

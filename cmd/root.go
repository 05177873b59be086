// Package cmd implements the nakd CLI using cobra.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	configFile string
	socketPath string
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "nakd",
	Short: "nakd - supervisory daemon for the network access appliance",
	Long: `nakd supervises a network-access appliance: it tracks link and
connectivity state, drives a stage state machine that applies UCI hooks and
stage scripts, manages wireless association, mixes status LED conditions,
and exposes all of it over a JSON-RPC 2.0 control socket.

Run "nakd daemon" to start the supervisor in the foreground; the remaining
subcommands are thin JSON-RPC clients over that control socket.`,
	Version: "0.1.0",
}

// Execute adds all child commands to the root command and sets flags
// appropriately. This is called by main.main(); it only needs to happen
// once to rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "/etc/nakd/nakd.yaml",
		"config file path")
	rootCmd.PersistentFlags().StringVarP(&socketPath, "socket", "s", "/var/run/nakd.sock",
		"daemon control socket path")

	rootCmd.AddCommand(daemonCmd)
	rootCmd.AddCommand(stopCmd)
	rootCmd.AddCommand(reloadCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(stageCmd)
	rootCmd.AddCommand(wlanCmd)
	rootCmd.AddCommand(openvpnCmd)
	rootCmd.AddCommand(updateCmd)
}

func exitWithError(msg string, err error) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s: %v\n", msg, err)
	} else {
		fmt.Fprintf(os.Stderr, "Error: %s\n", msg)
	}
	os.Exit(1)
}

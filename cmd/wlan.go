package cmd

import (
	"context"
	"time"

	"github.com/spf13/cobra"
)

// wlanCmd groups wireless manager subcommands.
var wlanCmd = &cobra.Command{
	Use:   "wlan",
	Short: "Scan, list and control wireless association",
}

var wlanScanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Trigger a wireless scan and report the network count",
	Run: func(cmd *cobra.Command, args []string) {
		c := newClient(socketPath, 30*time.Second)
		resp, err := c.callOK(context.Background(), "wlan_scan", nil)
		if err != nil {
			exitWithError("scan", err)
		}
		if err := printJSON(resp.Result); err != nil {
			exitWithError("format result", err)
		}
	},
}

var wlanListCmd = &cobra.Command{
	Use:   "list",
	Short: "List networks seen in the last scan",
	Run: func(cmd *cobra.Command, args []string) {
		c := newClient(socketPath, 10*time.Second)
		resp, err := c.callOK(context.Background(), "wlan_list", nil)
		if err != nil {
			exitWithError("list scan results", err)
		}
		if err := printJSON(resp.Result); err != nil {
			exitWithError("format result", err)
		}
	},
}

var wlanListStoredCmd = &cobra.Command{
	Use:   "list-stored",
	Short: "List stored wireless credentials",
	Run: func(cmd *cobra.Command, args []string) {
		c := newClient(socketPath, 10*time.Second)
		resp, err := c.callOK(context.Background(), "wlan_list_stored", nil)
		if err != nil {
			exitWithError("list stored networks", err)
		}
		if err := printJSON(resp.Result); err != nil {
			exitWithError("format result", err)
		}
	},
}

var (
	wlanConnectKey   string
	wlanConnectStore bool
)

var wlanConnectCmd = &cobra.Command{
	Use:   "connect <ssid>",
	Short: "Associate to a wireless network",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		c := newClient(socketPath, 30*time.Second)
		params := map[string]any{
			"ssid":  args[0],
			"key":   wlanConnectKey,
			"store": wlanConnectStore,
		}
		resp, err := c.callOK(context.Background(), "wlan_connect", params)
		if err != nil {
			exitWithError("connect", err)
		}
		if err := printJSON(resp.Result); err != nil {
			exitWithError("format result", err)
		}
	},
}

var wlanDisconnectCmd = &cobra.Command{
	Use:   "disconnect",
	Short: "Tear down the current wireless association",
	Run: func(cmd *cobra.Command, args []string) {
		c := newClient(socketPath, 10*time.Second)
		resp, err := c.callOK(context.Background(), "wlan_disconnect", nil)
		if err != nil {
			exitWithError("disconnect", err)
		}
		if err := printJSON(resp.Result); err != nil {
			exitWithError("format result", err)
		}
	},
}

func init() {
	wlanConnectCmd.Flags().StringVarP(&wlanConnectKey, "key", "k", "", "WPA passphrase")
	wlanConnectCmd.Flags().BoolVar(&wlanConnectStore, "store", true, "persist credentials for future reconnects")

	wlanCmd.AddCommand(wlanScanCmd)
	wlanCmd.AddCommand(wlanListCmd)
	wlanCmd.AddCommand(wlanListStoredCmd)
	wlanCmd.AddCommand(wlanConnectCmd)
	wlanCmd.AddCommand(wlanDisconnectCmd)
}

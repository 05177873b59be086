package cmd

import (
	"context"
	"time"

	"github.com/spf13/cobra"
)

// stageCmd groups stage state machine subcommands.
var stageCmd = &cobra.Command{
	Use:   "stage",
	Short: "Inspect and control the stage state machine",
}

var stageGetCmd = &cobra.Command{
	Use:   "get",
	Short: "Show the current/desired stage and its last error",
	Run: func(cmd *cobra.Command, args []string) {
		c := newClient(socketPath, 10*time.Second)
		resp, err := c.callOK(context.Background(), "stage_info", nil)
		if err != nil {
			exitWithError("query stage info", err)
		}
		if err := printJSON(resp.Result); err != nil {
			exitWithError("format result", err)
		}
	},
}

var stageListCmd = &cobra.Command{
	Use:   "list",
	Short: "List every registered stage",
	Run: func(cmd *cobra.Command, args []string) {
		c := newClient(socketPath, 10*time.Second)
		resp, err := c.callOK(context.Background(), "stage_list", nil)
		if err != nil {
			exitWithError("list stages", err)
		}
		if err := printJSON(resp.Result); err != nil {
			exitWithError("format result", err)
		}
	},
}

var stageSetCmd = &cobra.Command{
	Use:   "set <name>",
	Short: "Set the desired stage and enqueue reconciliation",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		c := newClient(socketPath, 10*time.Second)
		resp, err := c.callOK(context.Background(), "stage_set", args[0])
		if err != nil {
			exitWithError("set stage", err)
		}
		if err := printJSON(resp.Result); err != nil {
			exitWithError("format result", err)
		}
	},
}

func init() {
	stageCmd.AddCommand(stageGetCmd)
	stageCmd.AddCommand(stageListCmd)
	stageCmd.AddCommand(stageSetCmd)
}

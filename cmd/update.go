package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

// updateCmd invokes the configured firmware/package update recipe.
var updateCmd = &cobra.Command{
	Use:   "update",
	Short: "Run the configured update recipe",
	Run: func(cmd *cobra.Command, args []string) {
		c := newClient(socketPath, 5*time.Minute)
		resp, err := c.callOK(context.Background(), "update", nil)
		if err != nil {
			exitWithError("update", err)
		}
		if out, ok := resp.Result.(string); ok {
			fmt.Println(out)
			return
		}
		if err := printJSON(resp.Result); err != nil {
			exitWithError("format result", err)
		}
	},
}

// Package main is the entry point for the nakd supervisory daemon and CLI.
package main

import (
	"fmt"
	"os"

	"github.com/msgctl/netaidkit-nakd/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// Package cli defines the nigran command tree: `serve` runs the telemetry
// server, `watch` attaches a reconciling client to a running server.
package cli

import (
	"github.com/spf13/cobra"
)

var configPath string

// NewRootCommand builds the command tree.
func NewRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "nigran",
		Short:         "Host telemetry server with differential session sync",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config file (default .nigran.yaml)")

	root.AddCommand(newServeCommand())
	root.AddCommand(newWatchCommand())
	return root
}

// Execute runs the CLI and returns the process exit code.
func Execute() int {
	if err := NewRootCommand().Execute(); err != nil {
		return 1
	}
	return 0
}

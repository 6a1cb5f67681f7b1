// Package cli wires the planweave commands.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/planweave/planweave/internal/version"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:     "planweave",
	Short:   "Plan-first coding assistant",
	Long:    `Planweave turns build requests into reviewable execution plans: generate, review step by step, then finalize into a document ready for a coding agent.`,
	Version: version.String(),
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config file (default ~/.planweave/config.toml)")
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(reviewCmd)
	rootCmd.AddCommand(planCmd)
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

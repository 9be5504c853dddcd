package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "quorum",
	Short: "Quorum forum backend",
	Long: `Quorum is the forum platform backend: the real-time comment relay,
the domain event bus, and the HTTP surface in front of them.

Use "quorum [command] --help" for more information about a specific command.`,
}

// Execute executes the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

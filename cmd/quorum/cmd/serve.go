package cmd

import (
	"github.com/spf13/cobra"

	"github.com/nfrund/quorum/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the forum backend server",
	Long: `Starts the HTTP server, the real-time relay registry, and the
domain event bus, then blocks until interrupted.`,
	Run: func(cmd *cobra.Command, args []string) {
		s := server.New()
		s.RegisterRoutes()
		s.Start()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

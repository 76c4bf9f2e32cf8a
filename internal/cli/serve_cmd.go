package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Jey-Sankar-Sai-Pinjala/ReachInBox-oneBox/internal/server"
)

// serveCmd runs the sync engine and API server in the foreground
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the sync engine and API server",
	Run: func(cmd *cobra.Command, args []string) {
		if err := server.Run(db, cfg); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	},
}

package cli

import (
	"os"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/Jey-Sankar-Sai-Pinjala/ReachInBox-oneBox/internal/config"
)

var (
	db  *gorm.DB
	cfg *config.Config
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "onebox",
	Short: "Multi-mailbox email sync and lead detection service",
	Long: `OneBox syncs multiple IMAP mailboxes in real time, categorizes
incoming replies by sales intent, and surfaces interested leads.

Examples:
  onebox serve                   # run the sync engine and API server
  onebox accounts list           # show configured accounts
  onebox accounts check          # probe every account's IMAP server
  onebox vectors seed            # seed the reply context collection
  onebox logs tail               # show recent operation logs`,
}

// Execute runs the CLI with the provided database and config
func Execute(database *gorm.DB, config *config.Config) {
	db = database
	cfg = config

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	// Add subcommands
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(accountsCmd)
	rootCmd.AddCommand(vectorsCmd)
	rootCmd.AddCommand(logsCmd)
}

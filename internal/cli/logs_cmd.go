package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Jey-Sankar-Sai-Pinjala/ReachInBox-oneBox/internal/services"
)

var (
	logsLimit   int
	logsModule  string
	logsAccount string
	logsLevel   string
)

// logsCmd groups operation log commands
var logsCmd = &cobra.Command{
	Use:   "logs",
	Short: "Inspect the operation log",
}

// logsTailCmd prints recent log entries, newest last
var logsTailCmd = &cobra.Command{
	Use:   "tail",
	Short: "Show recent operation log entries",
	Run: func(cmd *cobra.Command, args []string) {
		logService := services.NewLogService(db)

		result, err := logService.QueryLogs(services.LogQuery{
			AccountID: logsAccount,
			Module:    logsModule,
			Level:     logsLevel,
			Limit:     logsLimit,
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		// QueryLogs returns newest first; print oldest first like tail
		logs := result.Logs
		for i := len(logs) - 1; i >= 0; i-- {
			entry := logs[i]
			account := entry.AccountID
			if account == "" {
				account = "-"
			}
			fmt.Printf("%s %-5s %-8s %-12s %s %s\n",
				entry.CreatedAt.Format("2006-01-02 15:04:05"),
				entry.Level, entry.Module, account, entry.Action, entry.Message)
		}

		if result.Total > int64(len(logs)) {
			fmt.Printf("(%d of %d entries)\n", len(logs), result.Total)
		}
	},
}

func init() {
	logsTailCmd.Flags().IntVar(&logsLimit, "limit", 50, "number of entries to show")
	logsTailCmd.Flags().StringVar(&logsModule, "module", "", "filter by module")
	logsTailCmd.Flags().StringVar(&logsAccount, "account", "", "filter by account id")
	logsTailCmd.Flags().StringVar(&logsLevel, "level", "", "filter by level")
	logsCmd.AddCommand(logsTailCmd)
}

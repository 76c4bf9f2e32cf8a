package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Jey-Sankar-Sai-Pinjala/ReachInBox-oneBox/internal/imapsync"
	"github.com/Jey-Sankar-Sai-Pinjala/ReachInBox-oneBox/internal/services"
)

// checkFull switches the probe from a raw-protocol greeting check to a
// complete session login
var checkFull bool

// accountsCmd groups account inspection commands
var accountsCmd = &cobra.Command{
	Use:   "accounts",
	Short: "Inspect configured mailbox accounts",
}

// accountsListCmd prints the configured accounts
var accountsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List configured accounts",
	Run: func(cmd *cobra.Command, args []string) {
		if len(cfg.Accounts) == 0 {
			fmt.Println("No accounts configured")
			return
		}

		fmt.Printf("%-20s %-30s %-6s %-5s\n", "ID", "HOST", "PORT", "TLS")
		for _, acc := range cfg.Accounts {
			fmt.Printf("%-20s %-30s %-6d %-5t\n", acc.ID, acc.Host, acc.Port, acc.TLS)
		}
	},
}

// accountsCheckCmd probes each account's IMAP server
var accountsCheckCmd = &cobra.Command{
	Use:   "check [account-id]",
	Short: "Probe account IMAP connectivity and credentials",
	Run: func(cmd *cobra.Command, args []string) {
		accounts := cfg.Accounts
		if len(args) > 0 {
			accounts = nil
			for _, acc := range cfg.Accounts {
				if acc.ID == args[0] {
					accounts = append(accounts, acc)
				}
			}
			if len(accounts) == 0 {
				fmt.Fprintf(os.Stderr, "Error: unknown account %q\n", args[0])
				os.Exit(1)
			}
		}

		if len(accounts) == 0 {
			fmt.Println("No accounts configured")
			return
		}

		failed := 0
		for _, acc := range accounts {
			password, err := cfg.ResolvePassword(acc)
			if err != nil {
				fmt.Printf("✗ %s: cannot resolve password: %v\n", acc.ID, err)
				failed++
				continue
			}

			if checkFull {
				if err := imapsync.Check(acc, password); err != nil {
					fmt.Printf("✗ %s: %v\n", acc.ID, err)
					failed++
				} else {
					fmt.Printf("✓ %s: session login OK\n", acc.ID)
				}
				continue
			}

			result := services.TestIMAPConnection(acc, password)
			if result.Success {
				fmt.Printf("✓ %s: %s\n", acc.ID, result.Message)
			} else {
				fmt.Printf("✗ %s: %s\n", acc.ID, result.Message)
				failed++
			}
		}

		if failed > 0 {
			os.Exit(1)
		}
	},
}

func init() {
	accountsCheckCmd.Flags().BoolVar(&checkFull, "full", false, "perform a complete session login instead of a protocol probe")
	accountsCmd.AddCommand(accountsListCmd)
	accountsCmd.AddCommand(accountsCheckCmd)
}

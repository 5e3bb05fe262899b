package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// verbose forces debug logging regardless of LOG_LEVEL.
var verbose bool

var rootCmd = &cobra.Command{
	Use:   "ledger",
	Short: "Reconstruct ledgers from Argentine bank statement PDFs",
	Long: `ledger rebuilds account movements from the text layer of bank
statement PDFs issued by Galicia, Supervielle, Santander and BBVA.
Every parse runs the same pipeline: text reconstruction, normalization,
bank-specific parsing, balance reconciliation and rule-based
categorization.

Examples:
  ledger parse resumen.pdf                      # auto-detect the bank, JSON to stdout
  ledger parse resumen.pdf --bank galicia -f xlsx -o resumen.xlsx
  ledger watch --dir ./inbox -f csv             # process PDFs as they land
  ledger rules search mercadopago               # find matching rules`,
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

// Execute runs the root command. Called once from main.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false,
		"enable debug logging")
}

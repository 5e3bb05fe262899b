package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/FACorreiaa/statement-ledger/internal/domain/export"
	"github.com/FACorreiaa/statement-ledger/internal/domain/insights"
	"github.com/FACorreiaa/statement-ledger/internal/domain/statement"
	"github.com/FACorreiaa/statement-ledger/internal/domain/statement/parser"
)

var (
	parseBank     string
	parseUser     string
	parseFormat   string
	parseOut      string
	parseRules    string
	parseInsights bool
)

var parseCmd = &cobra.Command{
	Use:   "parse <statement.pdf>",
	Short: "Parse one statement PDF into a reconciled ledger",
	Long: `Parse extracts the text layer of a statement PDF, rebuilds the
movements with their running balances, reconciles every amount against
the printed balance chain and writes the resulting ledger.

With --bank auto (the default) the issuing bank is detected from the
document itself. Suspicious movements survive with their balance-derived
amounts flagged, never dropped.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runParse(cmd, args[0])
	},
}

func init() {
	rootCmd.AddCommand(parseCmd)

	parseCmd.Flags().StringVar(&parseBank, "bank", "auto",
		"issuing bank: galicia, supervielle, santander, bbva or auto")
	parseCmd.Flags().StringVar(&parseUser, "user", "",
		"caller id (UUID) for quota accounting")
	parseCmd.Flags().StringVarP(&parseFormat, "format", "f", "json",
		"export format: csv, xlsx or json")
	parseCmd.Flags().StringVarP(&parseOut, "out", "o", "",
		"output file (default stdout)")
	parseCmd.Flags().StringVar(&parseRules, "rules", "",
		"categorization rules file (overrides RULES_PATH)")
	parseCmd.Flags().BoolVar(&parseInsights, "insights", false,
		"print a ledger summary to stderr")
}

func runParse(cmd *cobra.Command, path string) error {
	deps, err := InitDependencies(parseRules)
	if err != nil {
		return err
	}

	format, ok := export.ParseFormat(parseFormat)
	if !ok {
		return fmt.Errorf("unsupported format %q (csv, xlsx or json)", parseFormat)
	}
	userID, err := parseUserID(parseUser)
	if err != nil {
		return err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read statement: %w", err)
	}

	ctx := cmd.Context()
	progress := func(stage string, current, total int) {
		deps.Logger.Debug("parse progress", "stage", stage, "current", current, "total", total)
	}

	var res *parser.ParseResult
	if strings.EqualFold(parseBank, "auto") {
		result, detection, autoErr := deps.Parser.ParseAuto(ctx, userID, data, progress)
		if detection != nil {
			deps.Logger.Info("bank detected",
				"bank", detection.Bank,
				"confidence", fmt.Sprintf("%.2f", detection.Confidence))
		}
		res, err = result, autoErr
	} else {
		res, err = deps.Parser.Parse(ctx, userID, parseBank, data, progress)
	}
	if err != nil {
		return err
	}
	if res == nil {
		return fmt.Errorf("unsupported bank %q", parseBank)
	}

	for _, w := range res.Warnings {
		deps.Logger.Warn("parse warning", "warning", w)
	}

	var out io.Writer = cmd.OutOrStdout()
	if parseOut != "" {
		f, err := os.Create(parseOut)
		if err != nil {
			return fmt.Errorf("create output: %w", err)
		}
		defer f.Close()
		out = f
	}
	if err := export.Write(out, format, res.Statement); err != nil {
		return err
	}
	if parseOut != "" {
		deps.Logger.Info("ledger written", "path", parseOut, "format", format)
	}

	if parseInsights {
		printHighlights(cmd.ErrOrStderr(), res.Statement)
	}
	return nil
}

func printHighlights(w io.Writer, st *statement.BankStatement) {
	summary := insights.Compute(st)
	if summary == nil {
		return
	}
	for _, line := range summary.Highlights() {
		fmt.Fprintln(w, line)
	}
}

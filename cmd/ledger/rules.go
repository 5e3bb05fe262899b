package main

import (
	"errors"
	"fmt"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/FACorreiaa/statement-ledger/internal/domain/categorization"
	"github.com/FACorreiaa/statement-ledger/pkg/config"
)

var (
	rulesFile      string
	searchLimit    int
	searchCategory string
)

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "Inspect the categorization rules",
}

var rulesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List every rule in the rules file",
	RunE:  runRulesList,
}

var rulesSearchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search rules by pattern, category or subcategory",
	Long: `Search runs a typo-tolerant query over the indexed rules, so
"mercadopaga" still finds the MERCADOPAGO rule. With --category and no
query it lists the rules of one category instead.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runRulesSearch,
}

func init() {
	rootCmd.AddCommand(rulesCmd)
	rulesCmd.AddCommand(rulesListCmd, rulesSearchCmd)

	rulesCmd.PersistentFlags().StringVar(&rulesFile, "rules", "",
		"categorization rules file (overrides RULES_PATH)")
	rulesSearchCmd.Flags().IntVar(&searchLimit, "limit", 10, "maximum hits")
	rulesSearchCmd.Flags().StringVar(&searchCategory, "category", "",
		"restrict hits to one category")
}

// loadRuleSet resolves the rules file path (flag first, then config) and
// parses it.
func loadRuleSet() ([]categorization.Rule, error) {
	path := rulesFile
	if path == "" {
		cfg, err := config.Load()
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		path = cfg.Rules.Path
	}
	return categorization.LoadRulesFile(path)
}

func runRulesList(cmd *cobra.Command, _ []string) error {
	rules, err := loadRuleSet()
	if err != nil {
		return err
	}

	sort.Slice(rules, func(i, j int) bool {
		if rules[i].Priority != rules[j].Priority {
			return rules[i].Priority > rules[j].Priority
		}
		return rules[i].Pattern < rules[j].Pattern
	})

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "PATTERN\tCATEGORY\tSUBCATEGORY\tPRIORITY")
	for _, r := range rules {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\n", r.Pattern, r.Category, r.Subcategory, r.Priority)
	}
	return tw.Flush()
}

func runRulesSearch(cmd *cobra.Command, args []string) error {
	rules, err := loadRuleSet()
	if err != nil {
		return err
	}

	idx, err := categorization.NewSearchIndex("")
	if err != nil {
		return err
	}
	defer idx.Close()
	if err := idx.IndexRules(rules); err != nil {
		return err
	}

	var hits []categorization.SearchResult
	switch {
	case len(args) == 1:
		hits, err = idx.Search(args[0], searchLimit)
	case searchCategory != "":
		hits, err = idx.SearchByCategory(searchCategory, searchLimit)
	default:
		return errors.New("provide a query or --category")
	}
	if err != nil {
		return err
	}

	if len(hits) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "no rules matched")
		return nil
	}

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "PATTERN\tCATEGORY\tSUBCATEGORY\tPRIORITY\tSCORE")
	for _, hit := range hits {
		doc := hit.Document
		fmt.Fprintf(tw, "%s\t%s\t%s\t%.0f\t%.3f\n",
			doc.Pattern, doc.Category, doc.Subcategory, doc.Priority, hit.Score)
	}
	return tw.Flush()
}

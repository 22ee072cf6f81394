package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/dustin/go-humanize/english"
	"github.com/spf13/cobra"

	"github.com/macropower/rulecat/pkg/catalog"
	"github.com/macropower/rulecat/pkg/content"
)

type RulesArgs struct {
	*RootArgs
	OutputArgs

	Category string
	Limit    int
	Fetch    bool
}

func NewRulesCmd(rootArgs *RootArgs) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "Inspect the rule catalog",
	}

	cmd.AddCommand(
		newRulesListCmd(&RulesArgs{RootArgs: rootArgs}),
		newRulesSearchCmd(&RulesArgs{RootArgs: rootArgs}),
		newRulesShowCmd(&RulesArgs{RootArgs: rootArgs}),
	)

	return cmd
}

func newRulesListCmd(ra *RulesArgs) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the rules in the catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cat, err := ra.loadCatalog()
			if err != nil {
				return err
			}

			rules := make([]catalog.RuleInfo, 0, cat.Len())
			for _, r := range cat.List() {
				if ra.Category == "" || string(r.Category) == ra.Category {
					rules = append(rules, r)
				}
			}

			return ra.Print(cmd.OutOrStdout(), rules, func(w io.Writer) error {
				return printRules(w, rules)
			})
		},
	}
	ra.OutputArgs.AddFlags(cmd)
	cmd.Flags().StringVar(&ra.Category, "category", "", "Only list rules in this category")

	err := cmd.RegisterFlagCompletionFunc("category", cobra.FixedCompletions([]string{
		string(catalog.CategoryBase),
		string(catalog.CategoryLanguage),
		string(catalog.CategoryFramework),
		string(catalog.CategoryCloud),
		string(catalog.CategoryTesting),
	}, cobra.ShellCompDirectiveNoFileComp))
	if err != nil {
		panic(err)
	}

	bindEnvVars(cmd)

	return cmd
}

func newRulesSearchCmd(ra *RulesArgs) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Fuzzy-search rules by path and title",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cat, err := ra.loadCatalog()
			if err != nil {
				return err
			}

			matches := cat.Search(args[0], ra.Limit)

			return ra.Print(cmd.OutOrStdout(), matches, func(w io.Writer) error {
				rules := make([]catalog.RuleInfo, 0, len(matches))
				for _, m := range matches {
					rules = append(rules, m.Rule)
				}

				return printRules(w, rules)
			})
		},
	}
	ra.OutputArgs.AddFlags(cmd)
	cmd.Flags().IntVarP(&ra.Limit, "limit", "n", 10, "Maximum number of results, 0 for all")

	bindEnvVars(cmd)

	return cmd
}

func newRulesShowCmd(ra *RulesArgs) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <path>",
		Short: "Show a rule's metadata, or its content with --fetch",
		Args:  cobra.ExactArgs(1),
		ValidArgsFunction: func(*cobra.Command, []string, string) ([]cobra.Completion, cobra.ShellCompDirective) {
			cat, err := ra.loadCatalog()
			if err != nil {
				return nil, cobra.ShellCompDirectiveNoFileComp
			}

			completions := make([]cobra.Completion, 0, cat.Len())
			for _, r := range cat.List() {
				completions = append(completions, cobra.CompletionWithDesc(r.Path, r.Title))
			}

			return completions, cobra.ShellCompDirectiveNoFileComp
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRulesShow(cmd, ra, args[0])
		},
	}
	ra.OutputArgs.AddFlags(cmd)
	cmd.Flags().BoolVar(&ra.Fetch, "fetch", false, "Fetch and print the rule content")

	bindEnvVars(cmd)

	return cmd
}

func runRulesShow(cmd *cobra.Command, ra *RulesArgs, path string) error {
	cfg, err := ra.LoadConfig()
	if err != nil {
		return err
	}

	cat, err := cfg.NewCatalog()
	if err != nil {
		return err
	}

	info, err := cat.Get(path)
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()

	if !ra.Fetch {
		return ra.Print(w, info, func(w io.Writer) error {
			return printRules(w, []catalog.RuleInfo{info})
		})
	}

	fetcher, err := cfg.NewFetcher()
	if err != nil {
		return err
	}

	rule, err := fetcher.FetchOne(cmd.Context(), info)
	if err != nil {
		return fmt.Errorf("fetch %s: %w", path, err)
	}

	return ra.Print(w, rule, func(w io.Writer) error {
		return printRuleContent(w, rule)
	})
}

func (ra *RulesArgs) loadCatalog() (*catalog.Catalog, error) {
	cfg, err := ra.LoadConfig()
	if err != nil {
		return nil, err
	}

	return cfg.NewCatalog()
}

func printRules(w io.Writer, rules []catalog.RuleInfo) error {
	var b strings.Builder

	width := 0
	for _, r := range rules {
		width = max(width, len(r.Path))
	}

	tokens := 0
	for _, r := range rules {
		tokens += r.EstimatedTokens

		flags := string(r.Category)
		if r.AlwaysLoad {
			flags += ", always"
		}

		fmt.Fprintf(&b, "%-*s  %-18s  %6s  %s\n", width, r.Path, flags,
			humanize.Comma(int64(r.EstimatedTokens)), r.Title)
	}

	fmt.Fprintf(&b, "\n%s, ~%s tokens\n", english.Plural(len(rules), "rule", ""), humanize.Comma(int64(tokens)))

	_, err := io.WriteString(w, b.String())
	if err != nil {
		return fmt.Errorf("write output: %w", err)
	}

	return nil
}

func printRuleContent(w io.Writer, rule content.Rule) error {
	header := fmt.Sprintf("# %s (%s, %s)\n", rule.Title, rule.Path, rule.Source)
	if rule.Tip != "" {
		header += fmt.Sprintf("\n> Tip: %s\n", rule.Tip)
	}

	_, err := fmt.Fprintf(w, "%s\n%s\n", header, strings.TrimRight(rule.Content, "\n"))
	if err != nil {
		return fmt.Errorf("write output: %w", err)
	}

	return nil
}

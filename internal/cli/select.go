package cli

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/macropower/rulecat/pkg/detect"
	"github.com/macropower/rulecat/pkg/hook"
	"github.com/macropower/rulecat/pkg/intent"
	"github.com/macropower/rulecat/pkg/selection"
)

var ErrNoPrompt = errors.New("a prompt is required")

type SelectArgs struct {
	*RootArgs
	OutputArgs
	SelectionArgs

	Prompt string
	Fetch  bool
}

func (sa *SelectArgs) AddFlags(cmd *cobra.Command) {
	sa.OutputArgs.AddFlags(cmd)
	sa.SelectionArgs.AddFlags(cmd)
	cmd.Flags().StringVarP(&sa.Prompt, "prompt", "p", "", "The prompt to select rules for")
	cmd.Flags().BoolVar(&sa.Fetch, "fetch", false, "Fetch the selected rules and print the injected context")
}

// SelectResult is the output of the select command.
type SelectResult struct {
	Context detect.ProjectContext `json:"context"`
	Intent  intent.Intent         `json:"intent"`
	Rules   []selection.Scored    `json:"rules"`
	Tokens  int                   `json:"estimatedTokens"`
}

func NewSelectCmd(rootArgs *RootArgs) *cobra.Command {
	sa := &SelectArgs{RootArgs: rootArgs}

	cmd := &cobra.Command{
		Use:   "select [dir]",
		Short: "Preview the rules selected for a prompt",
		Example: `  # Rank rules for a prompt in the current directory:
  rulecat select -p "add an endpoint for user settings"

  # Show the exact context a hook would inject:
  rulecat select -p "add an endpoint for user settings" --fetch ./api`,
		Args: cobra.MaximumNArgs(1),
		ValidArgsFunction: func(*cobra.Command, []string, string) ([]cobra.Completion, cobra.ShellCompDirective) {
			return nil, cobra.ShellCompDirectiveFilterDirs
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) > 0 {
				dir = args[0]
			}

			return runSelect(cmd, sa, dir)
		},
	}
	sa.AddFlags(cmd)

	bindEnvVars(cmd)

	return cmd
}

func runSelect(cmd *cobra.Command, sa *SelectArgs, dir string) error {
	if strings.TrimSpace(sa.Prompt) == "" {
		return ErrNoPrompt
	}

	cfg, err := sa.LoadConfig()
	if err != nil {
		return err
	}

	sa.Apply(cmd, cfg)

	d, err := newDispatcher(cmd.Context(), cfg, nil)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	w := cmd.OutOrStdout()

	if sa.Fetch {
		out := d.Handle(ctx, hook.Input{Prompt: sa.Prompt, CWD: dir})

		return sa.Print(w, out, func(w io.Writer) error {
			text := "No rules injected."
			if out.Injected() {
				text = out.HookSpecificOutput.AdditionalContext
			}

			_, err := fmt.Fprintln(w, text)
			if err != nil {
				return fmt.Errorf("write output: %w", err)
			}

			return nil
		})
	}

	pc := d.Detector().Detect(ctx, dir)
	in := d.Classifier().Classify(sa.Prompt)
	selected := selection.Select(d.Catalog().List(), d.Params(pc, in))

	res := SelectResult{
		Context: pc,
		Intent:  in,
		Rules:   selected,
		Tokens:  selection.TotalTokens(selected),
	}

	return sa.Print(w, res, func(w io.Writer) error {
		return printSelection(w, res)
	})
}

func printSelection(w io.Writer, res SelectResult) error {
	var b strings.Builder

	fmt.Fprintf(&b, "Project: %s (%s)\n", res.Context.Summary(), res.Context.Maturity)
	fmt.Fprintf(&b, "Intent:  %s / %s / %s\n\n", res.Intent.Category, res.Intent.Action, res.Intent.Urgency)

	if len(res.Rules) == 0 {
		b.WriteString("No rules selected.\n")
	}

	for i, s := range res.Rules {
		fmt.Fprintf(&b, "%d. %s  score=%d  tokens=%s\n", i+1, s.Rule.Path, s.Score,
			humanize.Comma(int64(s.Rule.EstimatedTokens)))

		if len(s.Reasons) > 0 {
			fmt.Fprintf(&b, "   %s\n", strings.Join(s.Reasons, ", "))
		}
	}

	if len(res.Rules) > 0 {
		fmt.Fprintf(&b, "\nTotal: ~%s tokens\n", humanize.Comma(int64(res.Tokens)))
	}

	_, err := io.WriteString(w, b.String())
	if err != nil {
		return fmt.Errorf("write output: %w", err)
	}

	return nil
}

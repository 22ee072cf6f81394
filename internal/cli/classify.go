package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/macropower/rulecat/pkg/intent"
)

type ClassifyArgs struct {
	*RootArgs
	OutputArgs
}

func NewClassifyCmd(rootArgs *RootArgs) *cobra.Command {
	ca := &ClassifyArgs{RootArgs: rootArgs}

	cmd := &cobra.Command{
		Use:   "classify <text>...",
		Short: "Classify the intent of a prompt",
		Example: `  rulecat classify "the login endpoint returns 500, fix it asap"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in := intent.Default().Classify(strings.Join(args, " "))

			return ca.Print(cmd.OutOrStdout(), in, func(w io.Writer) error {
				return printIntent(w, in)
			})
		},
	}
	ca.OutputArgs.AddFlags(cmd)

	bindEnvVars(cmd)

	return cmd
}

func printIntent(w io.Writer, in intent.Intent) error {
	lines := []string{
		fmt.Sprintf("Category: %s", in.Category),
		fmt.Sprintf("Action:   %s", in.Action),
		fmt.Sprintf("Urgency:  %s", in.Urgency),
		fmt.Sprintf("Topics:   %s", joinOrNone(in.Topics)),
	}

	_, err := fmt.Fprintln(w, strings.Join(lines, "\n"))
	if err != nil {
		return fmt.Errorf("write output: %w", err)
	}

	return nil
}

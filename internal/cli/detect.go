package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/macropower/rulecat/pkg/detect"
)

type DetectArgs struct {
	*RootArgs
	OutputArgs

	Debounce time.Duration
	Watch    bool
}

func (da *DetectArgs) AddFlags(cmd *cobra.Command) {
	da.OutputArgs.AddFlags(cmd)
	cmd.Flags().BoolVarP(&da.Watch, "watch", "w", false, "Watch for changes and detect again")
	cmd.Flags().DurationVar(&da.Debounce, "debounce", detect.DefaultDebounce, "How long to wait for changes to settle when watching")
}

func NewDetectCmd(rootArgs *RootArgs) *cobra.Command {
	da := &DetectArgs{RootArgs: rootArgs}

	cmd := &cobra.Command{
		Use:   "detect [dir]",
		Short: "Detect the languages, frameworks, cloud providers and maturity of a directory",
		Args:  cobra.MaximumNArgs(1),
		ValidArgsFunction: func(*cobra.Command, []string, string) ([]cobra.Completion, cobra.ShellCompDirective) {
			return nil, cobra.ShellCompDirectiveFilterDirs
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) > 0 {
				dir = args[0]
			}

			return runDetect(cmd, da, dir)
		},
	}
	da.AddFlags(cmd)

	bindEnvVars(cmd)

	return cmd
}

func runDetect(cmd *cobra.Command, da *DetectArgs, dir string) error {
	cfg, err := da.LoadConfig()
	if err != nil {
		return err
	}

	d, err := cfg.NewDetector()
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	w := cmd.OutOrStdout()

	if !da.Watch {
		pc := d.Detect(ctx, dir)

		return da.Print(w, pc, func(w io.Writer) error {
			return printContext(w, pc)
		})
	}

	var printErr error

	watchCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	err = d.Watch(watchCtx, dir, da.Debounce, func(pc detect.ProjectContext) {
		err := da.Print(w, pc, func(w io.Writer) error {
			return printContext(w, pc)
		})
		if err != nil {
			printErr = err
			cancel()
		}
	})

	return errors.Join(err, printErr)
}

func printContext(w io.Writer, pc detect.ProjectContext) error {
	lines := []string{
		fmt.Sprintf("Directory:  %s", pc.WorkingDirectory),
		fmt.Sprintf("Project:    %s", pc.Summary()),
		fmt.Sprintf("Languages:  %s", joinOrNone(pc.Languages)),
		fmt.Sprintf("Frameworks: %s", joinOrNone(pc.Frameworks)),
		fmt.Sprintf("Cloud:      %s", joinOrNone(pc.CloudProviders)),
		fmt.Sprintf("Maturity:   %s", pc.Maturity),
		fmt.Sprintf("Confidence: %.2f", pc.Confidence),
	}

	_, err := fmt.Fprintln(w, strings.Join(lines, "\n"))
	if err != nil {
		return fmt.Errorf("write output: %w", err)
	}

	return nil
}

func joinOrNone(values []string) string {
	if len(values) == 0 {
		return "none"
	}

	return strings.Join(values, ", ")
}

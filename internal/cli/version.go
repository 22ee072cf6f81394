package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/macropower/rulecat/pkg/version"
)

func NewVersionCmd() *cobra.Command {
	oa := &OutputArgs{}

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			info := version.GetInfo()

			return oa.Print(cmd.OutOrStdout(), info, func(w io.Writer) error {
				_, err := fmt.Fprintf(w, "%s %s (%s, %s, %s)\n",
					cmdName, info.Version, info.Revision, info.GoVersion, info.Platform)
				if err != nil {
					return fmt.Errorf("write output: %w", err)
				}

				return nil
			})
		},
	}
	oa.AddFlags(cmd)

	return cmd
}

package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/macropower/rulecat/pkg/yaml"
)

const (
	FormatText = "text"
	FormatJSON = "json"
	FormatYAML = "yaml"
)

var (
	ErrUnknownFormat = errors.New("unknown output format")

	AllOutputFormats = []string{FormatText, FormatJSON, FormatYAML}
)

// OutputArgs selects how a command prints its result.
type OutputArgs struct {
	Format string
}

func (oa *OutputArgs) AddFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&oa.Format, "output", "o", FormatText,
		fmt.Sprintf("Output format, one of: %s", strings.Join(AllOutputFormats, ", ")))

	err := cmd.RegisterFlagCompletionFunc("output",
		cobra.FixedCompletions(AllOutputFormats, cobra.ShellCompDirectiveNoFileComp),
	)
	if err != nil {
		panic(err)
	}
}

// Print writes v to w in the selected format. The text format is produced by
// text.
func (oa *OutputArgs) Print(w io.Writer, v any, text func(io.Writer) error) error {
	switch oa.Format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")

		err := enc.Encode(v)
		if err != nil {
			return fmt.Errorf("encode json: %w", err)
		}

		return nil

	case FormatYAML:
		b, err := yaml.Marshal(v)
		if err != nil {
			return err //nolint:wrapcheck // Already wrapped.
		}

		_, err = w.Write(b)
		if err != nil {
			return fmt.Errorf("write output: %w", err)
		}

		return nil

	case FormatText, "":
		return text(w)
	}

	return fmt.Errorf("%w: %q", ErrUnknownFormat, oa.Format)
}

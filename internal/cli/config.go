package cli

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/macropower/rulecat/pkg/config"
)

type ConfigArgs struct {
	*RootArgs

	Force bool
}

func NewConfigCmd(rootArgs *RootArgs) *cobra.Command {
	ca := &ConfigArgs{RootArgs: rootArgs}

	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show, write or describe the configuration",
	}

	show := &cobra.Command{
		Use:   "show",
		Short: "Print the active configuration, including environment overrides",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := ca.LoadConfig()
			if err != nil {
				return err
			}

			slog.DebugContext(cmd.Context(), "active configuration", slog.String("path", ca.Path()))
			warnStoreNotConfigured(cmd.Context(), cfg)

			b, err := cfg.MarshalYAML()
			if err != nil {
				return fmt.Errorf("marshal config yaml: %w", err)
			}

			_, err = cmd.OutOrStdout().Write(b)
			if err != nil {
				return fmt.Errorf("write output: %w", err)
			}

			return nil
		},
	}

	write := &cobra.Command{
		Use:   "write",
		Short: "Write the default configuration file and its JSON schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path := ca.Path()

			err := config.WriteDefault(path, ca.Force)
			if err != nil {
				return err
			}

			_, err = fmt.Fprintln(cmd.OutOrStdout(), path)
			if err != nil {
				return fmt.Errorf("write output: %w", err)
			}

			return nil
		},
	}
	write.Flags().BoolVarP(&ca.Force, "force", "f", false, "Replace an existing file, keeping a backup")

	schema := &cobra.Command{
		Use:   "schema",
		Short: "Print the JSON schema of the configuration file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			b, err := config.Schema()
			if err != nil {
				return err
			}

			_, err = fmt.Fprintln(cmd.OutOrStdout(), string(b))
			if err != nil {
				return fmt.Errorf("write output: %w", err)
			}

			return nil
		},
	}

	cmd.AddCommand(show, write, schema)

	bindEnvVars(write)

	return cmd
}

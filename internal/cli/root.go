package cli

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/macropower/rulecat/pkg/config"
	"github.com/macropower/rulecat/pkg/log"
)

const (
	cmdName     = "rulecat"
	cmdDesc     = `Context-aware rule selection for AI coding assistants.`
	cmdExamples = `  # Use as a UserPromptSubmit hook (reads the hook envelope from stdin):
  rulecat hook

  # Show what was detected for the current directory:
  rulecat detect

  # Preview which rules a prompt would load:
  rulecat select --prompt "fix the failing login test"

  # Serve the MCP tools over HTTP with Prometheus metrics:
  rulecat serve --addr :8080 --metrics-addr :9090`
)

type RootArgs struct {
	LogLevel   string
	LogFormat  string
	ConfigPath string
	EnvFile    string
}

func NewRootArgs() *RootArgs {
	return &RootArgs{}
}

func (ra *RootArgs) AddFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().
		StringVar(&ra.LogLevel, "log-level", "info", fmt.Sprintf("Log level, one of: %s", log.AllLevels))
	cmd.PersistentFlags().
		StringVar(&ra.LogFormat, "log-format", "text", fmt.Sprintf("Log format, one of: %s", log.AllFormats))
	cmd.PersistentFlags().
		StringVar(&ra.ConfigPath, "config", "", "Path to the rulecat configuration file")
	cmd.PersistentFlags().
		StringVar(&ra.EnvFile, "env-file", ".env", "Path to a .env file with RULECAT_* variables")

	var err error

	err = cmd.RegisterFlagCompletionFunc("log-format",
		cobra.FixedCompletions(log.AllFormats, cobra.ShellCompDirectiveNoFileComp),
	)
	if err != nil {
		panic(err)
	}

	err = cmd.RegisterFlagCompletionFunc("log-level",
		cobra.FixedCompletions(log.AllLevels, cobra.ShellCompDirectiveNoFileComp),
	)
	if err != nil {
		panic(err)
	}

	err = cmd.MarkPersistentFlagFilename("config", "yaml", "yml")
	if err != nil {
		panic(fmt.Errorf("mark config flag: %w", err))
	}
}

// Path returns the configuration file path in use.
func (ra *RootArgs) Path() string {
	if ra.ConfigPath != "" {
		return ra.ConfigPath
	}

	return config.GetPath()
}

// LoadConfig resolves the configuration from the .env file, the config file
// and RULECAT_* environment variables, then validates the result.
func (ra *RootArgs) LoadConfig() (*config.Config, error) {
	err := config.LoadDotEnv(ra.EnvFile)
	if err != nil {
		return nil, err
	}

	cfg, err := config.Load(ra.Path())
	if err != nil {
		return nil, err
	}

	err = cfg.ApplyEnv(nil)
	if err != nil {
		return nil, err
	}

	err = cfg.Validate()
	if err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

func NewRootCmd() *cobra.Command {
	args := NewRootArgs()

	cmd := &cobra.Command{
		Use:               cmdName,
		Short:             cmdDesc,
		Example:           cmdExamples,
		PersistentPreRunE: setupLogging(args),
		SilenceUsage:      true,
	}

	args.AddFlags(cmd)

	cmd.AddCommand(
		NewHookCmd(args),
		NewDetectCmd(args),
		NewClassifyCmd(args),
		NewSelectCmd(args),
		NewRulesCmd(args),
		NewServeCmd(args),
		NewConfigCmd(args),
		NewVersionCmd(),
	)

	bindEnvVars(cmd)

	return cmd
}

func setupLogging(rc *RootArgs) func(cmd *cobra.Command, _ []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		opts, err := log.ParseOptions(rc.LogLevel, rc.LogFormat)
		if err != nil {
			return fmt.Errorf("create log handler: %w", err)
		}

		slog.SetDefault(slog.New(log.NewHandler(cmd.ErrOrStderr(), opts)))

		return nil
	}
}

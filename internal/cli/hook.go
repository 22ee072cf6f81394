package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/macropower/rulecat/pkg/hook"
	"github.com/macropower/rulecat/pkg/log"
	"github.com/macropower/rulecat/pkg/telemetry"
)

const defaultHookTimeout = 30 * time.Second

type HookArgs struct {
	*RootArgs
	SelectionArgs

	Timeout time.Duration
	Verbose bool
}

func (ha *HookArgs) AddFlags(cmd *cobra.Command) {
	ha.SelectionArgs.AddFlags(cmd)
	cmd.Flags().BoolVarP(&ha.Verbose, "verbose", "v", false, "Write diagnostics to stderr")
	cmd.Flags().DurationVar(&ha.Timeout, "timeout", defaultHookTimeout, "Upper bound for handling one prompt")
}

func NewHookCmd(rootArgs *RootArgs) *cobra.Command {
	ha := &HookArgs{RootArgs: rootArgs}

	cmd := &cobra.Command{
		Use:   "hook",
		Short: "Handle a prompt hook: read the envelope from stdin, write the response to stdout",
		Long: `Reads a hook envelope ({"prompt": ..., "cwd": ...}) from stdin and writes
a response envelope to stdout. The command always exits successfully: any
failure results in a response that injects nothing.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runHook(cmd, ha)
		},
	}
	ha.AddFlags(cmd)

	bindEnvVars(cmd)

	return cmd
}

func runHook(cmd *cobra.Command, ha *HookArgs) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), ha.Timeout)
	defer cancel()

	out := handleHook(ctx, cmd, ha)

	err := out.Encode(cmd.OutOrStdout())
	if err != nil {
		return fmt.Errorf("write response: %w", err)
	}

	return nil
}

// handleHook never fails: every error is logged and turned into a response
// that injects nothing.
func handleHook(ctx context.Context, cmd *cobra.Command, ha *HookArgs) hook.Output {
	cfg, err := ha.LoadConfig()
	if err != nil {
		slog.WarnContext(ctx, "load config, continuing without rules", slog.Any("error", err))

		return hook.NoInjection()
	}

	ha.Apply(cmd, cfg)
	if cmd.Flags().Changed("verbose") {
		cfg.Verbose = ha.Verbose
	}

	logger := log.Diagnostics(cmd.ErrOrStderr(), cfg.Verbose, ha.LogFormat)
	ctx = log.NewContext(ctx, logger)

	if cfg.Telemetry != nil {
		shutdown, err := telemetry.Setup(ctx, *cfg.Telemetry)
		if err != nil {
			logger.WarnContext(ctx, "setup telemetry", slog.Any("error", err))
		} else {
			defer flushTelemetry(ctx, logger, shutdown)
		}
	}

	in, err := hook.DecodeInput(cmd.InOrStdin())
	if err != nil {
		logger.WarnContext(ctx, "decode hook input", slog.Any("error", err))

		return hook.NoInjection()
	}

	if in.CWD == "" {
		in.CWD, err = os.Getwd()
		if err != nil {
			logger.WarnContext(ctx, "resolve working directory", slog.Any("error", err))
		}
	}

	d, err := newDispatcher(ctx, cfg, nil)
	if err != nil {
		logger.WarnContext(ctx, "create dispatcher", slog.Any("error", err))

		return hook.NoInjection()
	}

	return d.Handle(ctx, in)
}

func flushTelemetry(ctx context.Context, logger *slog.Logger, shutdown telemetry.ShutdownFunc) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	err := shutdown(ctx)
	if err != nil {
		logger.WarnContext(ctx, "flush telemetry", slog.Any("error", err))
	}
}

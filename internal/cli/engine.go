package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/macropower/rulecat/pkg/config"
	"github.com/macropower/rulecat/pkg/content"
	"github.com/macropower/rulecat/pkg/hook"
	"github.com/macropower/rulecat/pkg/log"
	"github.com/macropower/rulecat/pkg/metrics"
)

// SelectionArgs are the selection budget flags shared by several commands.
// They override the configuration only when set.
type SelectionArgs struct {
	MaxRules  int
	MaxTokens int
	MinScore  int
}

func (sa *SelectionArgs) AddFlags(cmd *cobra.Command) {
	cmd.Flags().IntVar(&sa.MaxRules, "max-rules", hook.DefaultMaxRules, "Maximum number of rules to select")
	cmd.Flags().IntVar(&sa.MaxTokens, "max-tokens", hook.DefaultMaxTokens, "Maximum estimated tokens to select")
	cmd.Flags().IntVar(&sa.MinScore, "min-score", 0, "Minimum score for a rule to be selected")
}

// Apply copies the flags that were set on cmd into cfg.
func (sa *SelectionArgs) Apply(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("max-rules") {
		cfg.MaxRules = sa.MaxRules
	}
	if flags.Changed("max-tokens") {
		cfg.MaxTokens = sa.MaxTokens
	}
	if flags.Changed("min-score") {
		cfg.MinScore = sa.MinScore
	}
}

// warnStoreNotConfigured logs when cfg's content store cannot serve rule
// bodies. Detection and selection still work, but every fetch will fail.
func warnStoreNotConfigured(ctx context.Context, cfg *config.Config) {
	if cfg.Store == nil {
		return
	}

	err := cfg.Store.Configured()
	if err != nil {
		log.FromContext(ctx).WarnContext(ctx, "rule content will not be fetched", slog.Any("error", err))
	}
}

// newDispatcher builds the pipeline described by cfg. When m is not nil,
// requests, stages, fetches and the rule cache are reported to it.
func newDispatcher(ctx context.Context, cfg *config.Config, m *metrics.Metrics) (*hook.Dispatcher, error) {
	warnStoreNotConfigured(ctx, cfg)

	var fetchOpts []content.FetcherOpt
	if m != nil {
		fetchOpts = append(fetchOpts, content.WithObserver(m))
	}

	fetcher, err := cfg.NewFetcher(fetchOpts...)
	if err != nil {
		return nil, err
	}

	opts, err := cfg.DispatcherOptions()
	if err != nil {
		return nil, err
	}

	if m != nil {
		opts = append(opts, hook.WithObserver(m))

		err = m.RegisterCache("rules", fetcher.Cache().Stats)
		if err != nil {
			return nil, fmt.Errorf("register cache metrics: %w", err)
		}
	}

	return hook.NewDispatcher(fetcher, opts...), nil
}

package cli

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/macropower/rulecat/pkg/cache"
	"github.com/macropower/rulecat/pkg/content"
	"github.com/macropower/rulecat/pkg/mcp"
	"github.com/macropower/rulecat/pkg/metrics"
	"github.com/macropower/rulecat/pkg/telemetry"
)

type ServeArgs struct {
	*RootArgs
	SelectionArgs

	Addr        string
	MetricsAddr string
	Root        string
}

func (sa *ServeArgs) AddFlags(cmd *cobra.Command) {
	sa.SelectionArgs.AddFlags(cmd)
	cmd.Flags().StringVar(&sa.Addr, "addr", "", "Serve MCP over streamable HTTP at this address instead of stdio")
	cmd.Flags().StringVar(&sa.MetricsAddr, "metrics-addr", "", "Serve Prometheus metrics at this address")
	cmd.Flags().StringVar(&sa.Root, "root", ".", "Directory that tool paths are resolved against and confined to")

	err := cmd.MarkFlagDirname("root")
	if err != nil {
		panic(fmt.Errorf("mark root flag: %w", err))
	}
}

func NewServeCmd(rootArgs *RootArgs) *cobra.Command {
	sa := &ServeArgs{RootArgs: rootArgs}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve rule selection as MCP tools",
		Example: `  # Serve over stdio, for use as an MCP server command:
  rulecat serve

  # Serve over HTTP with metrics:
  rulecat serve --addr :8080 --metrics-addr :9090`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd, sa)
		},
	}
	sa.AddFlags(cmd)

	bindEnvVars(cmd)

	return cmd
}

func runServe(cmd *cobra.Command, sa *ServeArgs) error {
	ctx := cmd.Context()

	cfg, err := sa.LoadConfig()
	if err != nil {
		return err
	}

	sa.Apply(cmd, cfg)

	if cfg.Telemetry != nil {
		shutdown, err := telemetry.Setup(ctx, *cfg.Telemetry)
		if err != nil {
			return fmt.Errorf("setup telemetry: %w", err)
		}

		defer flushTelemetry(ctx, slog.Default(), shutdown)
	}

	m := metrics.New()

	d, err := newDispatcher(ctx, cfg, m)
	if err != nil {
		return err
	}

	srv, err := mcp.NewServer(sa.Addr, d, sa.Root)
	if err != nil {
		return fmt.Errorf("create MCP server: %w", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, ctx := errgroup.WithContext(ctx)

	// The metrics server and cache pruning stop with the MCP server.
	g.Go(func() error {
		defer cancel()

		return srv.Serve(ctx)
	})

	if sa.MetricsAddr != "" {
		g.Go(func() error {
			slog.InfoContext(ctx, "serving metrics", slog.String("address", sa.MetricsAddr))

			mux := http.NewServeMux()
			mux.Handle("/metrics", m.Handler())

			return mcp.ListenAndServe(ctx, &http.Server{
				Addr:    sa.MetricsAddr,
				Handler: mux,

				ReadHeaderTimeout: 10 * time.Second,
			})
		})
	}

	if f, ok := d.Fetcher().(*content.Fetcher); ok {
		g.Go(func() error {
			pruneCache(ctx, f.Cache())

			return nil
		})
	}

	err = g.Wait()
	if err != nil {
		return fmt.Errorf("serve: %w", err)
	}

	return nil
}

// pruneCache removes expired rules once per TTL until ctx is done.
func pruneCache(ctx context.Context, c *cache.Cache[content.Rule]) {
	ticker := time.NewTicker(c.TTL())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := c.Prune(); n > 0 {
				slog.DebugContext(ctx, "pruned rule cache", slog.Int("removed", n))
			}
		}
	}
}

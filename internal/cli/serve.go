package cli

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"treasury/internal/compliance/handler"
	"treasury/internal/platform/httpserver"
	platformmetrics "treasury/internal/platform/metrics"
)

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:          "serve",
		Short:        "Serve the compliance HTTP API",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, rootOpts, addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides server.addr)")

	return cmd
}

func runServe(cmd *cobra.Command, opts *RootOptions, addr string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, opts, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer a.Close()

	if addr != "" {
		a.cfg.Server.Addr = addr
	}

	var (
		httpMetrics *platformmetrics.Metrics
		gatherer    prometheus.Gatherer
	)
	if a.cfg.Metrics.Enabled {
		httpMetrics = platformmetrics.New(a.registry)
		gatherer = a.registry
	}

	router := httpserver.NewRouter(a.logger, httpMetrics, gatherer)
	handler.New(a.service, a.logger).Register(router)

	srv := httpserver.New(a.cfg.Server, router)
	a.logger.InfoContext(ctx, "starting complianced",
		"addr", a.cfg.Server.Addr,
		"store_driver", a.cfg.Store.Driver,
	)
	if err := httpserver.Run(ctx, srv, a.cfg.Server.ShutdownTimeout, a.logger); err != nil {
		return WrapExitError(ExitCommandError, "serve", err)
	}
	return nil
}

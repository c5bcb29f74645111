package main

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	saaros "github.com/mjochum64/saaros-mcp-server"
)

// metricsShutdownTimeout bounds the metrics listener's graceful shutdown.
const metricsShutdownTimeout = 5 * time.Second

type rootFlags struct {
	envFile     string
	logLevel    string
	logFormat   string
	metricsAddr string
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}

	cmd := &cobra.Command{
		Use:   "saaros-mcp-server",
		Short: "Web search tool server speaking line-delimited JSON-RPC",
		Long: `saaros-mcp-server exposes the brave_web_search tool over stdin/stdout.

Each input line is one JSON-RPC 2.0 request (listTools or callTool); each
output line is the matching response. Logs go to stderr.

Configuration is read from the environment, seeded from a .env file:
  BRAVE_API_KEY                 required
  BRAVE_API_ENDPOINT            upstream endpoint
  BRAVE_HTTP_TIMEOUT            upstream timeout (default 30s)
  BRAVE_RATE_LIMIT_ENABLED      enable rate limiting (default false)
  BRAVE_RATE_LIMIT_PER_SECOND   requests per second (default 1)
  BRAVE_RATE_LIMIT_PER_MONTH    requests per calendar month (default 15000)
  BRAVE_RATE_LIMIT_MAX_WAIT     longest wait for a token (default 5s)
  SAAROS_QUEUE_SIZE             worker queue capacity (default 64)
  SAAROS_LOG_LEVEL              debug, info, warn, error (default info)
  SAAROS_LOG_FORMAT             text or json (default text)
  SAAROS_METRICS_ADDR           Prometheus listen address (default off)

Examples:
  echo '{"jsonrpc":"2.0","id":1,"method":"listTools"}' | saaros-mcp-server
  saaros-mcp-server --env-file prod.env --metrics-addr :9090`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd, flags)
		},
	}

	cmd.Flags().StringVar(&flags.envFile, "env-file", "", "env file to load (default .env, ignored if absent)")
	cmd.Flags().StringVar(&flags.logLevel, "log-level", "", "override SAAROS_LOG_LEVEL")
	cmd.Flags().StringVar(&flags.logFormat, "log-format", "", "override SAAROS_LOG_FORMAT")
	cmd.Flags().StringVar(&flags.metricsAddr, "metrics-addr", "", "override SAAROS_METRICS_ADDR")

	return cmd
}

func loadConfig(cmd *cobra.Command, flags *rootFlags) (*saaros.Config, error) {
	cfg, err := saaros.LoadConfig(flags.envFile)
	if err != nil {
		return nil, err
	}

	if cmd.Flags().Changed("log-level") {
		cfg.LogLevel = flags.logLevel
	}

	if cmd.Flags().Changed("log-format") {
		cfg.LogFormat = flags.logFormat
	}

	if cmd.Flags().Changed("metrics-addr") {
		cfg.MetricsAddr = flags.metricsAddr
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func run(cmd *cobra.Command, flags *rootFlags) error {
	cfg, err := loadConfig(cmd, flags)
	if err != nil {
		return err
	}

	level, err := cfg.SlogLevel()
	if err != nil {
		return err
	}

	log := saaros.NewLogger(cmd.ErrOrStderr(), level, cfg.LogFormat)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var m *saaros.Metrics
	if cfg.MetricsAddr != "" {
		m = saaros.NewMetrics()
	}

	srv, err := saaros.New(cfg, saaros.WithLogger(log), saaros.WithMetrics(m))
	if err != nil {
		return err
	}

	defer srv.Stop()

	serveCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(serveCtx)

	g.Go(func() error {
		// End of input ends the process, metrics listener included.
		defer cancel()

		return srv.ServeStdio(gctx, cmd.InOrStdin(), cmd.OutOrStdout())
	})

	if m != nil {
		startMetricsServer(gctx, g, log, cfg.MetricsAddr, m)
	}

	log.Info("Search server started", "version", version, "metrics", cfg.MetricsAddr != "")

	if err := g.Wait(); err != nil {
		return fmt.Errorf("serve: %w", err)
	}

	log.Info("Search server stopped")

	return nil
}

func startMetricsServer(ctx context.Context, g *errgroup.Group, log *slog.Logger, addr string, m *saaros.Metrics) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	g.Go(func() error {
		log.Info("Metrics listener started", "addr", addr)

		if err := httpServer.ListenAndServe(); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("metrics listener: %w", err)
		}

		return nil
	})

	g.Go(func() error {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), metricsShutdownTimeout)
		defer cancel()

		return httpServer.Shutdown(shutdownCtx)
	})
}

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/discochess/lookahead"
	"github.com/discochess/lookahead/internal/config"
	statslog "github.com/discochess/lookahead/internal/stats/logger"
	statsprom "github.com/discochess/lookahead/internal/stats/prometheus"
)

var (
	// Global flags.
	configPath  string
	verbose     bool
	metricsAddr string
)

var rootCmd = &cobra.Command{
	Use:   "lookahead",
	Short: "Explore chess positions and find what is worth commenting on",
	Long: `Lookahead explores candidate continuations from a chess position under a
bounded budget, detects tactical and positional themes, scores how critical
each position is and emits comment intents for a narration layer.

Examples:
  # Explore after a played mistake
  lookahead explore "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1" --played f3 --class mistake

  # List themes in a position
  lookahead themes "r3k3/2N5/8/8/8/8/8/4K3 b - - 0 1"

  # Show recorded runs
  lookahead runs --db ./runs.db`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "YAML configuration file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().StringVar(&metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address while the command runs")
}

// loadConfig reads --config over the defaults.
func loadConfig() (config.Config, error) {
	if configPath == "" {
		return config.Default(), nil
	}
	return config.Load(configPath)
}

func newLogger() (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	return zap.NewNop(), nil
}

// interruptible returns a context cancelled on SIGINT or SIGTERM.
func interruptible() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		select {
		case <-sigCh:
			fmt.Fprintln(os.Stderr, "\nInterrupted, stopping...")
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigCh)
	}()
	return ctx, cancel
}

// openAnalyzer builds an analyzer from the loaded configuration. The
// returned function closes the analyzer and stops the metrics server.
func openAnalyzer(ctx context.Context, cfg config.Config) (*lookahead.Analyzer, func(), error) {
	logger, err := newLogger()
	if err != nil {
		return nil, nil, fmt.Errorf("creating logger: %w", err)
	}
	opts := []lookahead.Option{lookahead.WithLogger(logger)}

	addr := cfg.Metrics.Addr
	if metricsAddr != "" {
		addr = metricsAddr
	}
	stopMetrics := func() {}
	switch {
	case addr != "":
		reg := prometheus.NewRegistry()
		opts = append(opts, lookahead.WithStats(statsprom.New(reg)))
		stopMetrics = serveMetrics(addr, reg, logger)
	case verbose:
		opts = append(opts, lookahead.WithStats(statslog.NewAtLevel(logger, zapcore.InfoLevel)))
	}

	a, err := lookahead.NewFromConfig(ctx, cfg, opts...)
	if err != nil {
		stopMetrics()
		_ = logger.Sync()
		return nil, nil, err
	}
	return a, func() {
		if err := a.Close(); err != nil {
			logger.Warn("closing analyzer", zap.Error(err))
		}
		stopMetrics()
		_ = logger.Sync()
	}, nil
}

func serveMetrics(addr string, reg *prometheus.Registry, logger *zap.Logger) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("metrics server stopped", zap.Error(err))
		}
	}()
	logger.Info("serving metrics", zap.String("addr", addr))
	return func() { _ = srv.Close() }
}

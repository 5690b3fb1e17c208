package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/boristopalov/irrigation/internal/logger"
	"github.com/boristopalov/irrigation/pkg/config"
	"github.com/boristopalov/irrigation/pkg/metrics"
)

var version = "dev"

type rootFlags struct {
	configPath  string
	logLevel    string
	metricsAddr string
}

func main() {
	flags := &rootFlags{}

	rootCmd := &cobra.Command{
		Use:           "irrigation",
		Short:         "Irrigation is a reinforcement learning sandbox for training and watching smart irrigation agents.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&flags.configPath, "config", "", "path to a YAML experiment config")
	rootCmd.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "override the configured log level")
	rootCmd.PersistentFlags().StringVar(&flags.metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address, e.g. localhost:9100")

	for _, envFile := range []string{
		".env",
		"../../.env",
		"../../../.env",
	} {
		if err := godotenv.Load(envFile); err == nil {
			break
		}
	}

	rootCmd.AddCommand(
		newTrainCmd(flags),
		newSimulateCmd(flags),
		newEvaluateCmd(flags),
		newInspectCmd(flags),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// setup loads configuration, applies flag overrides and builds the logger
func setup(flags *rootFlags) (*config.ExperimentConfig, *slog.Logger, error) {
	cfg, err := config.LoadConfig(flags.configPath)
	if err != nil {
		return nil, nil, err
	}
	if flags.logLevel != "" {
		cfg.Logging.Level = flags.logLevel
	}
	if flags.metricsAddr != "" {
		cfg.Metrics.Addr = flags.metricsAddr
	}

	logCfg := logger.DefaultConfig()
	logCfg.Level = cfg.Logging.Level
	logCfg.Format = cfg.Logging.Format
	logCfg.Version = version
	log := logger.New(logCfg, os.Stderr)
	slog.SetDefault(log)
	return cfg, log, nil
}

// signalContext is cancelled on interrupt so experiments can wind down
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// serveMetrics starts the metrics endpoint when addr is set and returns its shutdown func
func serveMetrics(addr string, collector *metrics.Collector, log *slog.Logger) func() {
	if addr == "" {
		return func() {}
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           collector.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		log.Info("serving metrics", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("metrics server failed", "error", err)
		}
	}()
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
}

// writeHTML renders a chart page into dir/name
func writeHTML(dir, name string, render func(f *os.File) error) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create charts dir: %w", err)
	}
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create %s: %w", path, err)
	}
	if err := render(f); err != nil {
		f.Close()
		return "", fmt.Errorf("render %s: %w", path, err)
	}
	return path, f.Close()
}

// Package main provides the reviewflow binary entry point.
// Reviewflow is a proposal review and endorsement workflow engine: it
// tracks proposal lifecycle status, validates reviewer decisions, plans
// evaluator assignments, and aggregates endorsement recommendations.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/c360studio/reviewflow/api"
	"github.com/c360studio/reviewflow/config"
	"github.com/c360studio/reviewflow/directory"
	"github.com/c360studio/reviewflow/engine"
	"github.com/c360studio/reviewflow/notify"
	"github.com/c360studio/reviewflow/storage"
	"github.com/c360studio/reviewflow/workflow/validation"
)

const (
	Version   = "0.1.0"
	BuildTime = "dev"
	appName   = "reviewflow"
)

func main() {
	// Add panic recovery
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var (
		configPath string
		logLevel   string
	)

	cmd := &cobra.Command{
		Use:   appName,
		Short: "Proposal review and endorsement workflow engine",
		Long: `Reviewflow manages the review lifecycle of research proposals.

It provides:
- A proposal status machine with validated transitions
- Reviewer decision validation (assignment, revision, rejection, endorsement)
- Evaluator assignment planning with conflict warnings
- Endorsement quorum aggregation over evaluator decisions

State lives in NATS JetStream key-value buckets; decisions trigger
notification events on NATS subjects.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(configPath, logLevel)
		},
	}

	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file path (YAML)")
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error)")

	cmd.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Start the review workflow service",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(configPath, logLevel)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("%s version %s (build: %s)\n", appName, Version, BuildTime)
		},
	})

	cmd.AddCommand(configCmd(&configPath))

	return cmd
}

func configCmd(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration commands",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			out, err := yaml.Marshal(cfg)
			if err != nil {
				return fmt.Errorf("marshal config: %w", err)
			}
			fmt.Print(string(out))
			return nil
		},
	})
	return cmd
}

func run(configPath, logLevel string) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}

	logger := newLogger(cfg.Log.Level)
	slog.SetDefault(logger)

	// Connect to NATS
	nc, err := nats.Connect(cfg.NATS.URL,
		nats.Name(appName),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second))
	if err != nil {
		return fmt.Errorf("connect to NATS at %s: %w", cfg.NATS.URL, err)
	}
	defer nc.Close()

	js, err := jetstream.New(nc)
	if err != nil {
		return fmt.Errorf("create JetStream context: %w", err)
	}

	ctx := context.Background()
	store, err := storage.NewStore(ctx, js)
	if err != nil {
		return fmt.Errorf("initialize storage: %w", err)
	}

	dir, err := directory.OpenFile(cfg.Directory.Path, logger)
	if err != nil {
		return fmt.Errorf("open directory file %s: %w", cfg.Directory.Path, err)
	}
	defer dir.Close()

	eng := engine.New(store.Proposals, store.Decisions, store.Evaluations, dir, engine.Options{
		Quorum: cfg.Engine.Quorum,
		Rules: validation.Rules{
			DeadlineDays: cfg.Engine.DeadlineDays,
			RatingMin:    cfg.Engine.RatingMin,
			RatingMax:    cfg.Engine.RatingMax,
		},
		Logger: logger,
	})

	var publisher notify.Publisher = notify.Nop{}
	if cfg.NATS.Notifications {
		publisher = notify.NewNATSPublisher(nc, logger)
	}

	metrics := api.NewMetrics()
	handler := api.NewHandler(eng, store.Proposals, dir, publisher, metrics, logger).
		WithArchive(engine.NewDecisionArchive(store.Decisions))

	mux := http.NewServeMux()
	handler.RegisterHTTPHandlers(mux)
	mux.Handle("GET /metrics", metrics.HTTPHandler())
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	server := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	signalCtx, signalCancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer signalCancel()

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Reviewflow ready",
			"version", Version,
			"addr", cfg.HTTP.Addr,
			"nats_url", cfg.NATS.URL)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-signalCtx.Done():
		slog.Info("Received shutdown signal")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("Error during HTTP shutdown", "error", err)
	}

	slog.Info("Reviewflow shutdown complete")
	return nil
}

func loadConfig(configPath string) (*config.Config, error) {
	if configPath != "" {
		return config.LoadFromFile(configPath)
	}
	return config.NewLoader(slog.Default()).Load()
}

func newLogger(level string) *slog.Logger {
	var l slog.Level
	switch strings.ToLower(level) {
	case "debug":
		l = slog.LevelDebug
	case "warn":
		l = slog.LevelWarn
	case "error":
		l = slog.LevelError
	default:
		l = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: l}))
}

// Package main is the entry point for the streaming gateway server.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lmittmann/tint"

	"warmstream/config"
	"warmstream/internal/providers"

	// Import provider packages to trigger their init() registration
	_ "warmstream/internal/providers/anthropic"
	_ "warmstream/internal/providers/bedrock"
	_ "warmstream/internal/providers/openai"
	"warmstream/internal/server"
	"warmstream/internal/version"
	"warmstream/internal/warmup"
)

func main() {
	// Add a version flag check
	versionFlag := flag.Bool("version", false, "Print version information")
	flag.Parse()

	if *versionFlag {
		fmt.Println(version.Info())
		os.Exit(0)
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Setup structured logging
	slog.SetDefault(newLogger(cfg.Logging))

	// Log the version immediately on startup
	slog.Info("starting warmstream",
		"version", version.Version,
		"commit", version.Commit,
		"build_date", version.Date,
	)

	// Create the initial provider from the environment configuration
	initial, err := providers.Create(cfg.Provider)
	if err != nil {
		slog.Error("failed to create provider",
			"provider", cfg.Provider.ProviderName,
			"error", err,
		)
		os.Exit(1)
	}
	slog.Info("provider initialized",
		"provider", cfg.Provider.ProviderName,
		"model", cfg.Provider.ModelID,
	)

	manager := providers.NewManager(initial)

	// Start the background warmup scheduler (if enabled)
	var reporter server.WarmupReporter
	var scheduler *warmup.Scheduler
	if cfg.Warmup.Enabled {
		scheduler = warmup.New(manager, cfg.Warmup.InitialDelay, cfg.Warmup.Interval)
		scheduler.Start(context.Background())
		reporter = scheduler
	} else {
		slog.Info("warmup scheduler disabled")
	}

	if cfg.Metrics.Enabled {
		slog.Info("prometheus metrics enabled", "endpoint", cfg.Metrics.Endpoint)
	}

	// Create and start server
	handler := server.NewHandler(manager, reporter)
	srv := server.New(handler, &server.Config{
		MetricsEnabled:  cfg.Metrics.Enabled,
		MetricsEndpoint: cfg.Metrics.Endpoint,
	})

	// Handle graceful shutdown
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit

		slog.Info("shutting down server...")

		if scheduler != nil {
			scheduler.Stop()
		}

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
	}()

	addr := ":" + cfg.Server.Port
	slog.Info("starting server", "address", addr)

	if err := srv.Start(addr); err != nil {
		if errors.Is(err, http.ErrServerClosed) {
			slog.Info("server stopped gracefully")
		} else {
			slog.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}
}

// newLogger builds the process logger from the logging configuration.
// The text format uses tint for readable local development output.
func newLogger(cfg config.LoggingConfig) *slog.Logger {
	level := parseLevel(cfg.Level)

	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	}
	return slog.New(tint.NewHandler(os.Stdout, &tint.Options{Level: level}))
}

func parseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

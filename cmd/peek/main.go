package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/enzyme/peek/internal/app"
	"github.com/enzyme/peek/internal/config"
	"github.com/enzyme/peek/internal/database"
	"github.com/enzyme/peek/internal/extract"
	"github.com/enzyme/peek/internal/linkpreview"
	"github.com/enzyme/peek/internal/logging"
	"github.com/enzyme/peek/internal/seed"
	"github.com/enzyme/peek/internal/telemetry"
)

func main() {
	// Check for subcommands before flag parsing
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "urls":
			os.Exit(runURLs(os.Args[2:], os.Stdin, os.Stdout))
		case "resolve":
			os.Exit(runResolve(os.Args[2:], os.Stdin, os.Stdout, os.Stderr))
		case "seed":
			runSeed(os.Args[2:])
			return
		case "serve":
			os.Args = append(os.Args[:1], os.Args[2:]...)
		}
	}

	cfg := loadConfig(os.Args[1:])

	// Setup context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdownTelemetry, err := telemetry.Setup(ctx, cfg.Telemetry)
	if err != nil {
		slog.Error("error setting up telemetry", "error", err)
		os.Exit(1)
	}
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := shutdownTelemetry(shutdownCtx); err != nil {
			slog.Error("error shutting down telemetry", "error", err)
		}
	}()

	// Setup structured logging
	logging.Setup(cfg.Log, otelName(cfg.Telemetry))

	// Create application
	application, err := app.New(cfg)
	if err != nil {
		slog.Error("error creating application", "error", err)
		os.Exit(1)
	}

	// Handle graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigCh
		slog.Info("received shutdown signal")
		cancel()

		// Give server time to shutdown gracefully
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := application.Shutdown(shutdownCtx); err != nil {
			slog.Error("error during shutdown", "error", err)
		}
	}()

	// Start application
	if err := application.Start(ctx); err != nil {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}

	slog.Info("server stopped")
}

func loadConfig(args []string) *config.Config {
	// Setup CLI flags
	flags := config.SetupFlags()
	if err := flags.Parse(args); err != nil {
		slog.Error("error parsing flags", "error", err)
		os.Exit(1)
	}

	cfg, err := loadConfigFromFlags(flags)
	if err != nil {
		slog.Error("error loading config", "error", err)
		os.Exit(1)
	}
	return cfg
}

func loadConfigFromFlags(flags *pflag.FlagSet) (*config.Config, error) {
	// Get config path from flags
	configPath, _ := flags.GetString("config")

	return config.Load(configPath, flags)
}

func otelName(cfg config.TelemetryConfig) string {
	if !cfg.Enabled {
		return ""
	}
	return cfg.ServiceName
}

// runURLs prints the URLs found in a JSON document, one per line.
func runURLs(args []string, stdin io.Reader, stdout io.Writer) int {
	if len(args) != 1 {
		fmt.Fprintln(os.Stderr, "usage: peek urls <file|->")
		return 2
	}

	content, err := readContent(args[0], stdin)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	for _, u := range extract.URLs(content) {
		fmt.Fprintln(stdout, u)
	}
	return 0
}

// resolveOutput is what `peek resolve` prints.
type resolveOutput struct {
	View  linkpreview.View   `json:"view"`
	Cards []linkpreview.Card `json:"cards"`
}

// runResolve resolves the URLs of a JSON document with the configured
// provider and prints the resulting view and its cards. It exits 1 when the
// batch failed for a common cause.
func runResolve(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	flags := config.SetupFlags()
	width := flags.Int("width", linkpreview.GridWidth, "Container width used to pick card images")
	if err := flags.Parse(args); err != nil {
		fmt.Fprintln(stderr, err)
		return 2
	}
	if flags.NArg() != 1 {
		fmt.Fprintln(stderr, "usage: peek resolve [flags] <file|->")
		return 2
	}
	cfg, err := loadConfigFromFlags(flags)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	logger := logging.New(cfg.Log, stderr, "")

	content, err := readContent(flags.Arg(0), stdin)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}

	fetcher, err := app.NewFetcher(cfg.Provider, logger)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	s := linkpreview.NewSession(fetcher,
		linkpreview.WithSessionLogger(logger),
		linkpreview.WithSessionConcurrency(cfg.Preview.MaxConcurrency),
	)
	v := s.SetContent(ctx, content)

	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(resolveOutput{View: v, Cards: linkpreview.Cards(v.Items, *width)}); err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	if v.Subtitle != "" {
		fmt.Fprintln(stderr, v.Subtitle)
	}
	if v.State == linkpreview.StateAllFailedCommonCause {
		fmt.Fprintln(stderr, v.OverallError)
		return 1
	}
	return 0
}

func readContent(path string, stdin io.Reader) (extract.Value, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return extract.Value{}, fmt.Errorf("reading content: %w", err)
	}

	v, err := extract.Parse(data)
	if err != nil {
		return extract.Value{}, fmt.Errorf("parsing content: %w", err)
	}
	return v, nil
}

func runSeed(args []string) {
	// Parse flags (supports --config, --database.path, etc.)
	cfg := loadConfig(args)

	logging.Setup(cfg.Log, "")

	// Open database and run migrations (no full app startup)
	db, err := database.Open(cfg.Database.Path, database.Options{
		MaxOpenConns: cfg.Database.MaxOpenConns,
		BusyTimeout:  int(cfg.Database.BusyTimeout / time.Millisecond),
	})
	if err != nil {
		slog.Error("error opening database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := db.Migrate(); err != nil {
		slog.Error("error running migrations", "error", err)
		os.Exit(1)
	}

	if err := seed.Run(context.Background(), db.DB); err != nil {
		slog.Error("error seeding database", "error", err)
		os.Exit(1)
	}
}

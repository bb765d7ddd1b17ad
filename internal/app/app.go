package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/enzyme/peek/internal/config"
	"github.com/enzyme/peek/internal/database"
	"github.com/enzyme/peek/internal/entry"
	"github.com/enzyme/peek/internal/handler"
	"github.com/enzyme/peek/internal/linkpreview"
	"github.com/enzyme/peek/internal/opengraph"
	"github.com/enzyme/peek/internal/peekalink"
	"github.com/enzyme/peek/internal/ratelimit"
	"github.com/enzyme/peek/internal/server"
	"github.com/enzyme/peek/internal/session"
	"github.com/enzyme/peek/internal/sse"
)

// rateLimitCleanupInterval is how often expired rate limit windows are dropped.
const rateLimitCleanupInterval = 10 * time.Minute

type App struct {
	Config      *config.Config
	DB          *database.DB
	Server      *server.Server
	Hub         *sse.Hub
	Sessions    *session.Manager
	RateLimiter *ratelimit.Limiter
}

// NewFetcher builds the preview provider selected by cfg.
func NewFetcher(cfg config.ProviderConfig, logger *slog.Logger) (linkpreview.Fetcher, error) {
	switch cfg.Kind {
	case config.ProviderPeekalink:
		transport := peekalink.NewHTTPTransport(peekalink.Options{
			BaseURL:           cfg.BaseURL,
			APIKey:            cfg.APIKey,
			Timeout:           cfg.Timeout,
			RequestsPerSecond: cfg.RequestsPerSecond,
			Burst:             cfg.Burst,
		})
		return peekalink.NewFetcher(transport, logger), nil
	case config.ProviderOpenGraph:
		return opengraph.NewFetcher(cfg.Timeout), nil
	default:
		return nil, fmt.Errorf("unknown provider %q", cfg.Kind)
	}
}

func New(cfg *config.Config) (*App, error) {
	logger := slog.Default()

	// Open database
	db, err := database.Open(cfg.Database.Path, database.Options{
		MaxOpenConns: cfg.Database.MaxOpenConns,
		BusyTimeout:  int(cfg.Database.BusyTimeout / time.Millisecond),
	})
	if err != nil {
		return nil, err
	}

	// Run migrations
	if err := db.Migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}

	fetcher, err := NewFetcher(cfg.Provider, logger.With("provider", cfg.Provider.Kind))
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	// Initialize SSE hub
	hub := sse.NewHub()

	sessions := session.NewManager(fetcher, hub, session.Options{
		IdleTimeout:    cfg.Preview.SessionIdleTimeout,
		MaxConcurrency: cfg.Preview.MaxConcurrency,
		Logger:         logger,
	})

	// Initialize SSE handler (kept separate as it requires streaming)
	sseHandler := sse.NewHandler(hub, sessions, cfg.SSE.HeartbeatInterval)

	h := handler.New(handler.Dependencies{
		EntryRepo: entry.NewRepository(db.DB),
		Sessions:  sessions,
	})

	// Build rate limiter (nil if disabled)
	var limiter *ratelimit.Limiter
	if cfg.RateLimit.Enabled {
		limiter = ratelimit.NewLimiter([]ratelimit.Rule{
			{Name: ratelimit.RuleRefresh, Limit: cfg.RateLimit.Refresh.Limit, Window: cfg.RateLimit.Refresh.Window},
			{Name: ratelimit.RuleOpenSession, Limit: cfg.RateLimit.OpenSession.Limit, Window: cfg.RateLimit.OpenSession.Window},
		})
	}

	router := server.NewRouter(h, sseHandler, limiter, cfg.Server.AllowedOrigins)

	// Build TLS options
	tlsOpts := server.TLSOptions{
		Mode:     cfg.Server.TLS.Mode,
		CertFile: cfg.Server.TLS.CertFile,
		KeyFile:  cfg.Server.TLS.KeyFile,
		Domain:   cfg.Server.TLS.Auto.Domain,
		Email:    cfg.Server.TLS.Auto.Email,
		CacheDir: cfg.Server.TLS.Auto.CacheDir,
	}
	if tlsOpts.Mode == server.TLSModeAuto {
		if err := os.MkdirAll(tlsOpts.CacheDir, 0700); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("creating TLS cache directory: %w", err)
		}
	}

	srv := server.New(cfg.Server.Host, cfg.Server.Port, router, tlsOpts, logger)

	return &App{
		Config:      cfg,
		DB:          db,
		Server:      srv,
		Hub:         hub,
		Sessions:    sessions,
		RateLimiter: limiter,
	}, nil
}

// Start runs the background workers and serves until Shutdown.
func (a *App) Start(ctx context.Context) error {
	// Start SSE hub
	go a.Hub.Run(ctx)

	// Start rate limiter cleanup
	if a.RateLimiter != nil {
		go func() {
			ticker := time.NewTicker(rateLimitCleanupInterval)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					a.RateLimiter.Cleanup()
				}
			}
		}()
	}

	slog.Info("starting peek",
		"addr", a.Server.Addr(),
		"database", a.Config.Database.Path,
		"provider", a.Config.Provider.Kind,
		"tls", a.Server.TLSMode(),
		"rate_limit", a.RateLimiter != nil,
	)

	return a.Server.Start()
}

// Shutdown stops accepting requests, cancels in-flight preview loads and
// closes the database.
func (a *App) Shutdown(ctx context.Context) error {
	var errs []error
	if err := a.Server.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("server: %w", err))
	}
	if err := a.Sessions.Close(ctx); err != nil {
		errs = append(errs, fmt.Errorf("sessions: %w", err))
	}
	if err := a.DB.Close(); err != nil {
		errs = append(errs, fmt.Errorf("database: %w", err))
	}
	return errors.Join(errs...)
}

package config

import (
	"errors"
	"fmt"
	"net/url"
	"time"
)

func Validate(cfg *Config) error {
	var errs []error

	// Server validation
	if cfg.Server.Port < 1 || cfg.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port must be between 1 and 65535"))
	}

	// Allowed origins validation
	for i, origin := range cfg.Server.AllowedOrigins {
		u, err := url.Parse(origin)
		if err != nil || u.Scheme == "" || u.Host == "" {
			errs = append(errs, fmt.Errorf("server.allowed_origins[%d] %q is not a valid URL with scheme", i, origin))
		}
	}

	// TLS validation
	switch cfg.Server.TLS.Mode {
	case "", "off":
		// no additional validation needed
	case "auto":
		if cfg.Server.TLS.Auto.Domain == "" {
			errs = append(errs, fmt.Errorf("server.tls.auto.domain is required when tls mode is auto"))
		}
		if cfg.Server.TLS.Auto.CacheDir == "" {
			errs = append(errs, fmt.Errorf("server.tls.auto.cache_dir is required when tls mode is auto"))
		}
	case "manual":
		if cfg.Server.TLS.CertFile == "" {
			errs = append(errs, fmt.Errorf("server.tls.cert_file is required when tls mode is manual"))
		}
		if cfg.Server.TLS.KeyFile == "" {
			errs = append(errs, fmt.Errorf("server.tls.key_file is required when tls mode is manual"))
		}
	default:
		errs = append(errs, fmt.Errorf("server.tls.mode must be off, auto, or manual"))
	}

	// Database validation
	if cfg.Database.Path == "" {
		errs = append(errs, fmt.Errorf("database.path is required"))
	}
	if cfg.Database.MaxOpenConns < 1 {
		errs = append(errs, fmt.Errorf("database.max_open_conns must be at least 1"))
	}
	if cfg.Database.BusyTimeout < 0 {
		errs = append(errs, fmt.Errorf("database.busy_timeout must not be negative"))
	}

	// Provider validation
	switch cfg.Provider.Kind {
	case ProviderPeekalink:
		if cfg.Provider.APIKey == "" {
			errs = append(errs, fmt.Errorf("provider.api_key is required when provider kind is peekalink"))
		}
		if u, err := url.Parse(cfg.Provider.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
			errs = append(errs, fmt.Errorf("provider.base_url %q is not a valid URL with scheme", cfg.Provider.BaseURL))
		}
	case ProviderOpenGraph:
	default:
		errs = append(errs, fmt.Errorf("provider.kind must be peekalink or opengraph"))
	}
	if cfg.Provider.Timeout < 100*time.Millisecond {
		errs = append(errs, fmt.Errorf("provider.timeout must be at least 100ms"))
	}
	if cfg.Provider.RequestsPerSecond < 0 {
		errs = append(errs, fmt.Errorf("provider.requests_per_second must not be negative"))
	}
	if cfg.Provider.RequestsPerSecond > 0 && cfg.Provider.Burst < 1 {
		errs = append(errs, fmt.Errorf("provider.burst must be at least 1 when requests_per_second is set"))
	}

	// Preview validation
	if cfg.Preview.MaxConcurrency < 0 {
		errs = append(errs, fmt.Errorf("preview.max_concurrency must not be negative"))
	}
	if cfg.Preview.SessionIdleTimeout < time.Minute {
		errs = append(errs, fmt.Errorf("preview.session_idle_timeout must be at least 1m"))
	}

	// Rate limit validation (only when enabled)
	if cfg.RateLimit.Enabled {
		for _, ep := range []struct {
			name string
			cfg  RateLimitEndpoint
		}{
			{"rate_limit.refresh", cfg.RateLimit.Refresh},
			{"rate_limit.open_session", cfg.RateLimit.OpenSession},
		} {
			if ep.cfg.Limit < 1 {
				errs = append(errs, fmt.Errorf("%s.limit must be at least 1", ep.name))
			}
			if ep.cfg.Window < time.Second {
				errs = append(errs, fmt.Errorf("%s.window must be at least 1s", ep.name))
			}
		}
	}

	if cfg.SSE.HeartbeatInterval < time.Second {
		errs = append(errs, fmt.Errorf("sse.heartbeat_interval must be at least 1s"))
	}

	switch cfg.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("log.level must be debug, info, warn, or error"))
	}
	switch cfg.Log.Format {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format must be text or json"))
	}

	if cfg.Telemetry.Enabled {
		switch cfg.Telemetry.Protocol {
		case "http", "grpc":
		default:
			errs = append(errs, fmt.Errorf("telemetry.protocol must be http or grpc"))
		}
		if cfg.Telemetry.ServiceName == "" {
			errs = append(errs, fmt.Errorf("telemetry.service_name is required when telemetry is enabled"))
		}
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

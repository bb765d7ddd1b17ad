package config

import "time"

type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Database  DatabaseConfig  `koanf:"database"`
	Provider  ProviderConfig  `koanf:"provider"`
	Preview   PreviewConfig   `koanf:"preview"`
	RateLimit RateLimitConfig `koanf:"rate_limit"`
	SSE       SSEConfig       `koanf:"sse"`
	Log       LogConfig       `koanf:"log"`
	Telemetry TelemetryConfig `koanf:"telemetry"`
}

type ServerConfig struct {
	Host           string    `koanf:"host"`
	Port           int       `koanf:"port"`
	AllowedOrigins []string  `koanf:"allowed_origins"`
	TLS            TLSConfig `koanf:"tls"`
}

type TLSConfig struct {
	Mode     string        `koanf:"mode"` // off, auto, manual
	CertFile string        `koanf:"cert_file"`
	KeyFile  string        `koanf:"key_file"`
	Auto     AutoTLSConfig `koanf:"auto"`
}

type AutoTLSConfig struct {
	Domain   string `koanf:"domain"`
	Email    string `koanf:"email"`
	CacheDir string `koanf:"cache_dir"`
}

type DatabaseConfig struct {
	Path         string        `koanf:"path"`
	MaxOpenConns int           `koanf:"max_open_conns"`
	BusyTimeout  time.Duration `koanf:"busy_timeout"`
}

const (
	ProviderPeekalink = "peekalink"
	ProviderOpenGraph = "opengraph"
)

type ProviderConfig struct {
	Kind              string        `koanf:"kind"`
	BaseURL           string        `koanf:"base_url"`
	APIKey            string        `koanf:"api_key"`
	Timeout           time.Duration `koanf:"timeout"`
	RequestsPerSecond float64       `koanf:"requests_per_second"`
	Burst             int           `koanf:"burst"`
}

type PreviewConfig struct {
	MaxConcurrency     int           `koanf:"max_concurrency"`
	SessionIdleTimeout time.Duration `koanf:"session_idle_timeout"`
}

type RateLimitConfig struct {
	Enabled     bool              `koanf:"enabled"`
	Refresh     RateLimitEndpoint `koanf:"refresh"`
	OpenSession RateLimitEndpoint `koanf:"open_session"`
}

type RateLimitEndpoint struct {
	Limit  int           `koanf:"limit"`
	Window time.Duration `koanf:"window"`
}

type SSEConfig struct {
	HeartbeatInterval time.Duration `koanf:"heartbeat_interval"`
}

type LogConfig struct {
	Level  string `koanf:"level"`  // debug, info, warn, error
	Format string `koanf:"format"` // text, json
}

type TelemetryConfig struct {
	Enabled     bool   `koanf:"enabled"`
	Protocol    string `koanf:"protocol"` // http, grpc
	Endpoint    string `koanf:"endpoint"`
	Insecure    bool   `koanf:"insecure"`
	ServiceName string `koanf:"service_name"`
}

func Defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
			TLS: TLSConfig{
				Mode: "off",
				Auto: AutoTLSConfig{
					CacheDir: "./data/certs",
				},
			},
		},
		Database: DatabaseConfig{
			Path:         "./data/peek.db",
			MaxOpenConns: 2,
			BusyTimeout:  5 * time.Second,
		},
		Provider: ProviderConfig{
			Kind:    ProviderPeekalink,
			BaseURL: "https://api.peekalink.io",
			Timeout: 10 * time.Second,
			Burst:   1,
		},
		Preview: PreviewConfig{
			MaxConcurrency:     8,
			SessionIdleTimeout: 30 * time.Minute,
		},
		RateLimit: RateLimitConfig{
			Enabled:     true,
			Refresh:     RateLimitEndpoint{Limit: 10, Window: time.Minute},
			OpenSession: RateLimitEndpoint{Limit: 30, Window: time.Minute},
		},
		SSE: SSEConfig{
			HeartbeatInterval: 30 * time.Second,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Telemetry: TelemetryConfig{
			Enabled:     false,
			Protocol:    "http",
			ServiceName: "peek",
		},
	}
}

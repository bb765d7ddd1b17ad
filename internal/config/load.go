package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

const envPrefix = "PEEK_"

func Load(configPath string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	// 1. Load defaults
	defaults := defaultsProvider(Defaults())
	if err := k.Load(defaults, nil); err != nil {
		return nil, fmt.Errorf("loading defaults: %w", err)
	}

	// 2. Load from config file if it exists
	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
				return nil, fmt.Errorf("loading config file: %w", err)
			}
		}
	} else {
		// Try default config paths
		for _, path := range []string{"config.yaml", "config.yml"} {
			if _, err := os.Stat(path); err == nil {
				if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
					return nil, fmt.Errorf("loading config file: %w", err)
				}
				break
			}
		}
	}

	// 3. Load from environment variables (PEEK_ prefix)
	defaultMap, _ := defaults.Read()
	known := envKeys(defaultMap)
	if err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		return envToKey(s, known)
	}), nil); err != nil {
		return nil, fmt.Errorf("loading env vars: %w", err)
	}

	// 4. Load from CLI flags
	if flags != nil {
		if err := k.Load(posflag.Provider(flags, ".", k), nil); err != nil {
			return nil, fmt.Errorf("loading flags: %w", err)
		}
	}

	// 5. Unmarshal into struct
	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{
		Tag: "koanf",
	}); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	// 6. Validate
	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// envToKey maps PEEK_RATE_LIMIT_OPEN_SESSION_LIMIT to
// rate_limit.open_session.limit. Keys contain underscores, so the name is
// matched against the known keys before falling back to splitting on every
// underscore.
func envToKey(name string, known map[string]string) string {
	s := strings.ToLower(strings.TrimPrefix(name, envPrefix))
	if key, ok := known[s]; ok {
		return key
	}
	return strings.ReplaceAll(s, "_", ".")
}

// envKeys indexes every leaf key of m by its underscore-joined form.
func envKeys(m map[string]interface{}) map[string]string {
	out := make(map[string]string)
	var walk func(prefix string, m map[string]interface{})
	walk = func(prefix string, m map[string]interface{}) {
		for k, v := range m {
			key := k
			if prefix != "" {
				key = prefix + "." + k
			}
			if child, ok := v.(map[string]interface{}); ok {
				walk(key, child)
				continue
			}
			out[strings.ReplaceAll(key, ".", "_")] = key
		}
	}
	walk("", m)
	return out
}

type defaultsProviderStruct struct {
	defaults *Config
}

func defaultsProvider(defaults *Config) *defaultsProviderStruct {
	return &defaultsProviderStruct{defaults: defaults}
}

func (d *defaultsProviderStruct) ReadBytes() ([]byte, error) {
	return nil, nil
}

func (d *defaultsProviderStruct) Read() (map[string]interface{}, error) {
	return map[string]interface{}{
		"server": map[string]interface{}{
			"host":            d.defaults.Server.Host,
			"port":            d.defaults.Server.Port,
			"allowed_origins": d.defaults.Server.AllowedOrigins,
			"tls": map[string]interface{}{
				"mode":      d.defaults.Server.TLS.Mode,
				"cert_file": d.defaults.Server.TLS.CertFile,
				"key_file":  d.defaults.Server.TLS.KeyFile,
				"auto": map[string]interface{}{
					"domain":    d.defaults.Server.TLS.Auto.Domain,
					"email":     d.defaults.Server.TLS.Auto.Email,
					"cache_dir": d.defaults.Server.TLS.Auto.CacheDir,
				},
			},
		},
		"database": map[string]interface{}{
			"path":           d.defaults.Database.Path,
			"max_open_conns": d.defaults.Database.MaxOpenConns,
			"busy_timeout":   d.defaults.Database.BusyTimeout.String(),
		},
		"provider": map[string]interface{}{
			"kind":                d.defaults.Provider.Kind,
			"base_url":            d.defaults.Provider.BaseURL,
			"api_key":             d.defaults.Provider.APIKey,
			"timeout":             d.defaults.Provider.Timeout.String(),
			"requests_per_second": d.defaults.Provider.RequestsPerSecond,
			"burst":               d.defaults.Provider.Burst,
		},
		"preview": map[string]interface{}{
			"max_concurrency":      d.defaults.Preview.MaxConcurrency,
			"session_idle_timeout": d.defaults.Preview.SessionIdleTimeout.String(),
		},
		"rate_limit": map[string]interface{}{
			"enabled": d.defaults.RateLimit.Enabled,
			"refresh": map[string]interface{}{
				"limit":  d.defaults.RateLimit.Refresh.Limit,
				"window": d.defaults.RateLimit.Refresh.Window.String(),
			},
			"open_session": map[string]interface{}{
				"limit":  d.defaults.RateLimit.OpenSession.Limit,
				"window": d.defaults.RateLimit.OpenSession.Window.String(),
			},
		},
		"sse": map[string]interface{}{
			"heartbeat_interval": d.defaults.SSE.HeartbeatInterval.String(),
		},
		"log": map[string]interface{}{
			"level":  d.defaults.Log.Level,
			"format": d.defaults.Log.Format,
		},
		"telemetry": map[string]interface{}{
			"enabled":      d.defaults.Telemetry.Enabled,
			"protocol":     d.defaults.Telemetry.Protocol,
			"endpoint":     d.defaults.Telemetry.Endpoint,
			"insecure":     d.defaults.Telemetry.Insecure,
			"service_name": d.defaults.Telemetry.ServiceName,
		},
	}, nil
}

func SetupFlags() *pflag.FlagSet {
	flags := pflag.NewFlagSet("peek", pflag.ContinueOnError)
	flags.String("config", "", "Path to config file")
	flags.String("server.host", "", "Server host")
	flags.Int("server.port", 0, "Server port")
	flags.StringSlice("server.allowed_origins", nil, "Allowed CORS origins")
	flags.String("server.tls.mode", "", "TLS mode: off, auto, or manual")
	flags.String("server.tls.cert_file", "", "TLS certificate file (manual mode)")
	flags.String("server.tls.key_file", "", "TLS key file (manual mode)")
	flags.String("server.tls.auto.domain", "", "Domain for automatic TLS (auto mode)")
	flags.String("server.tls.auto.email", "", "Contact email for Let's Encrypt (auto mode)")
	flags.String("server.tls.auto.cache_dir", "", "Certificate cache directory (auto mode)")
	flags.String("database.path", "", "Database path")
	flags.String("provider.kind", "", "Preview provider: peekalink or opengraph")
	flags.String("provider.base_url", "", "Peekalink API base URL")
	flags.Duration("provider.timeout", 0, "Preview request timeout")
	flags.Int("preview.max_concurrency", 0, "Maximum fetches in flight per batch")
	flags.String("log.level", "", "Log level: debug, info, warn, or error")
	flags.String("log.format", "", "Log format: text or json")
	flags.Bool("telemetry.enabled", false, "Export traces, metrics and logs over OTLP")
	return flags
}

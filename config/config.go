// Package config loads and validates the bridge configuration. A Loader
// starts from defaults, merges an optional JSON file on top, then applies
// CIRRUS_* environment overrides, so a bare `cirrus` invocation works
// without any file present.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/cirrustream/cirrus/errors"
)

// Session backend selectors.
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

// Config is the complete bridge configuration.
type Config struct {
	HTTP    HTTPConfig    `json:"http"`
	Metrics MetricsConfig `json:"metrics"`
	Weather WeatherConfig `json:"weather"`
	Session SessionConfig `json:"session"`
	Logging LoggingConfig `json:"logging"`
}

// HTTPConfig configures the request-serving surface.
type HTTPConfig struct {
	Addr string `json:"addr"` // listen address, e.g. ":8080"
}

// MetricsConfig configures the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `json:"enabled"`
	Port    int    `json:"port"`
	Path    string `json:"path"`
}

// WeatherConfig configures the upstream weather API client.
type WeatherConfig struct {
	BaseURL           string  `json:"base_url"`
	UserAgent         string  `json:"user_agent"`
	TimeoutSeconds    int     `json:"timeout_seconds"`
	RequestsPerSecond float64 `json:"requests_per_second"`
}

// Timeout returns the request timeout as a duration.
func (w WeatherConfig) Timeout() time.Duration {
	return time.Duration(w.TimeoutSeconds) * time.Second
}

// SessionConfig selects and tunes the session registry backend.
type SessionConfig struct {
	Backend       string `json:"backend"` // "memory" or "redis"
	RedisAddr     string `json:"redis_addr,omitempty"`
	RedisPassword string `json:"redis_password,omitempty"`
	RedisDB       int    `json:"redis_db,omitempty"`

	// IdleTimeoutSeconds of 0 means sessions never expire.
	IdleTimeoutSeconds  int `json:"idle_timeout_seconds"`
	SweepIntervalSecond int `json:"sweep_interval_seconds"`
}

// IdleTimeout returns the idle expiry as a duration; zero disables it.
func (s SessionConfig) IdleTimeout() time.Duration {
	return time.Duration(s.IdleTimeoutSeconds) * time.Second
}

// SweepInterval returns the sweeper cadence as a duration.
func (s SessionConfig) SweepInterval() time.Duration {
	return time.Duration(s.SweepIntervalSecond) * time.Second
}

// LoggingConfig configures structured logging.
type LoggingConfig struct {
	Level string `json:"level"` // debug, info, warn, error
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		HTTP: HTTPConfig{
			Addr: ":8080",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Port:    9090,
			Path:    "/metrics",
		},
		Weather: WeatherConfig{
			BaseURL:           "https://api.weather.gov",
			UserAgent:         "cirrus-weather-bridge/1.0",
			TimeoutSeconds:    10,
			RequestsPerSecond: 5,
		},
		Session: SessionConfig{
			Backend:             BackendMemory,
			IdleTimeoutSeconds:  0,
			SweepIntervalSecond: 60,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Validate checks the configuration for internal consistency.
func (c *Config) Validate() error {
	if c.HTTP.Addr == "" {
		return fmt.Errorf("%w: http.addr must not be empty", errors.ErrInvalidConfig)
	}

	if c.Metrics.Enabled {
		if c.Metrics.Port < 1 || c.Metrics.Port > 65535 {
			return fmt.Errorf("%w: metrics.port %d out of range", errors.ErrInvalidConfig, c.Metrics.Port)
		}
		if c.Metrics.Path == "" {
			return fmt.Errorf("%w: metrics.path must not be empty", errors.ErrInvalidConfig)
		}
	}

	if c.Weather.BaseURL == "" {
		return fmt.Errorf("%w: weather.base_url must not be empty", errors.ErrInvalidConfig)
	}
	if c.Weather.TimeoutSeconds <= 0 {
		return fmt.Errorf("%w: weather.timeout_seconds must be positive", errors.ErrInvalidConfig)
	}
	if c.Weather.RequestsPerSecond <= 0 {
		return fmt.Errorf("%w: weather.requests_per_second must be positive", errors.ErrInvalidConfig)
	}

	switch c.Session.Backend {
	case BackendMemory:
	case BackendRedis:
		if c.Session.RedisAddr == "" {
			return fmt.Errorf("%w: session.redis_addr required for redis backend", errors.ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown session.backend %q", errors.ErrInvalidConfig, c.Session.Backend)
	}
	if c.Session.IdleTimeoutSeconds < 0 {
		return fmt.Errorf("%w: session.idle_timeout_seconds must not be negative", errors.ErrInvalidConfig)
	}
	if c.Session.IdleTimeoutSeconds > 0 && c.Session.SweepIntervalSecond <= 0 {
		return fmt.Errorf("%w: session.sweep_interval_seconds must be positive when idle expiry is on", errors.ErrInvalidConfig)
	}

	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("%w: unknown logging.level %q", errors.ErrInvalidConfig, c.Logging.Level)
	}

	return nil
}

// Loader loads configuration from an optional file plus the environment.
type Loader struct {
	envPrefix string
}

// NewLoader creates a loader with the standard CIRRUS env prefix.
func NewLoader() *Loader {
	return &Loader{envPrefix: "CIRRUS"}
}

// Load builds the configuration. path may be empty, in which case only
// defaults and environment overrides apply. The result is validated.
func (l *Loader) Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config.Load: read %s failed: %w", path, err)
		}
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config.Load: parse %s failed: %w", path, err)
		}
	}

	l.applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnvOverrides layers CIRRUS_* variables over the loaded values.
func (l *Loader) applyEnvOverrides(cfg *Config) {
	if val := os.Getenv(l.envPrefix + "_HTTP_ADDR"); val != "" {
		cfg.HTTP.Addr = val
	}

	if val := os.Getenv(l.envPrefix + "_METRICS_ENABLED"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Metrics.Enabled = b
		}
	}
	if val := os.Getenv(l.envPrefix + "_METRICS_PORT"); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			cfg.Metrics.Port = n
		}
	}

	if val := os.Getenv(l.envPrefix + "_WEATHER_BASE_URL"); val != "" {
		cfg.Weather.BaseURL = val
	}
	if val := os.Getenv(l.envPrefix + "_WEATHER_USER_AGENT"); val != "" {
		cfg.Weather.UserAgent = val
	}

	if val := os.Getenv(l.envPrefix + "_SESSION_BACKEND"); val != "" {
		cfg.Session.Backend = val
	}
	if val := os.Getenv(l.envPrefix + "_REDIS_ADDR"); val != "" {
		cfg.Session.RedisAddr = val
	}
	if val := os.Getenv(l.envPrefix + "_REDIS_PASSWORD"); val != "" {
		cfg.Session.RedisPassword = val
	}

	if val := os.Getenv(l.envPrefix + "_LOG_LEVEL"); val != "" {
		cfg.Logging.Level = val
	}
}

package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for the mobile core.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	API       APIConfig       `yaml:"api"`
	Storage   StorageConfig   `yaml:"storage"`
	Events    EventsConfig    `yaml:"events"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// APIConfig contains settings for the HTTP API client and request pipeline.
type APIConfig struct {
	// BaseURL is the default API endpoint used before a building is selected.
	BaseURL string `yaml:"base_url"`

	// BuildingHostPattern derives a building-specific base URL from its
	// subdomain. It must contain exactly one %s placeholder.
	BuildingHostPattern string `yaml:"building_host_pattern"`

	// Timeout is the per-request timeout in seconds (connect + send + receive).
	Timeout int `yaml:"timeout"`

	// Retry configures the transient-failure retry stage.
	Retry RetryConfig `yaml:"retry"`

	// LogRequests enables the diagnostic logging stage. It has no behavioural
	// effect and should be disabled in production builds.
	LogRequests bool `yaml:"log_requests"`
}

// RetryConfig contains retry stage settings.
type RetryConfig struct {
	// MaxRetries is the number of re-attempts after the initial request.
	MaxRetries int `yaml:"max_retries"`

	// BackoffSeconds is the fixed delay schedule, one entry per retry.
	// Its length must equal MaxRetries.
	BackoffSeconds []int `yaml:"backoff_seconds"`
}

// StorageConfig contains secure credential store settings.
type StorageConfig struct {
	// Path is the filesystem path to the credential database file.
	Path string `yaml:"path"`

	// WALMode enables Write-Ahead Logging for better concurrent access.
	WALMode bool `yaml:"wal_mode"`

	// BusyTimeout is the maximum time to wait for a database lock (seconds).
	BusyTimeout int `yaml:"busy_timeout"`
}

// EventsConfig contains the live building event feed settings.
type EventsConfig struct {
	Enabled   bool                  `yaml:"enabled"`
	Broker    EventsBrokerConfig    `yaml:"broker"`
	Auth      EventsAuthConfig      `yaml:"auth"`
	QoS       int                   `yaml:"qos"`
	Reconnect EventsReconnectConfig `yaml:"reconnect"`
}

// EventsBrokerConfig contains MQTT broker connection details.
type EventsBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// EventsAuthConfig contains MQTT authentication credentials.
type EventsAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// EventsReconnectConfig contains MQTT reconnection settings (seconds).
type EventsReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
}

// TelemetryConfig contains optional request-diagnostics settings.
type TelemetryConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: MOBILECORE_SECTION_KEY
// For example: MOBILECORE_API_BASE_URL, MOBILECORE_STORAGE_PATH
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// Default returns a Config with production defaults. It is valid without a
// config file, which is the common case for an embedded client library.
func Default() *Config {
	return &Config{
		API: APIConfig{
			BaseURL:             "https://api.automatedlife.io/api/v1",
			BuildingHostPattern: "https://%s.automatedlife.io/api/v1",
			Timeout:             30,
			Retry: RetryConfig{
				MaxRetries:     3,
				BackoffSeconds: []int{1, 2, 3},
			},
		},
		Storage: StorageConfig{
			Path:        "./data/credentials.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		Events: EventsConfig{
			Broker: EventsBrokerConfig{
				Host: "events.automatedlife.io",
				Port: 8883,
				TLS:  true,
			},
			QoS: 1,
			Reconnect: EventsReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
			},
		},
		Telemetry: TelemetryConfig{
			BatchSize:     100,
			FlushInterval: 10,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: MOBILECORE_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	// API
	if v := os.Getenv("MOBILECORE_API_BASE_URL"); v != "" {
		cfg.API.BaseURL = v
	}
	if v := os.Getenv("MOBILECORE_API_BUILDING_HOST_PATTERN"); v != "" {
		cfg.API.BuildingHostPattern = v
	}
	if v := os.Getenv("MOBILECORE_API_TIMEOUT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.API.Timeout = n
		}
	}

	// Storage
	if v := os.Getenv("MOBILECORE_STORAGE_PATH"); v != "" {
		cfg.Storage.Path = v
	}

	// Events
	if v := os.Getenv("MOBILECORE_EVENTS_HOST"); v != "" {
		cfg.Events.Broker.Host = v
	}
	if v := os.Getenv("MOBILECORE_EVENTS_USERNAME"); v != "" {
		cfg.Events.Auth.Username = v
	}
	if v := os.Getenv("MOBILECORE_EVENTS_PASSWORD"); v != "" {
		cfg.Events.Auth.Password = v
	}

	// Telemetry
	if v := os.Getenv("MOBILECORE_TELEMETRY_TOKEN"); v != "" {
		cfg.Telemetry.Token = v
	}

	// Logging
	if v := os.Getenv("MOBILECORE_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}

// Validate checks the configuration for invalid or inconsistent values.
func (c *Config) Validate() error {
	u, err := url.Parse(c.API.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("api.base_url %q is not an absolute URL", c.API.BaseURL)
	}

	if strings.Count(c.API.BuildingHostPattern, "%s") != 1 {
		return fmt.Errorf("api.building_host_pattern %q must contain exactly one %%s", c.API.BuildingHostPattern)
	}

	if c.API.Timeout <= 0 {
		return fmt.Errorf("api.timeout must be positive, got %d", c.API.Timeout)
	}

	if c.API.Retry.MaxRetries < 0 {
		return fmt.Errorf("api.retry.max_retries must not be negative, got %d", c.API.Retry.MaxRetries)
	}
	if len(c.API.Retry.BackoffSeconds) != c.API.Retry.MaxRetries {
		return fmt.Errorf("api.retry.backoff_seconds has %d entries, want %d (one per retry)",
			len(c.API.Retry.BackoffSeconds), c.API.Retry.MaxRetries)
	}
	for i, s := range c.API.Retry.BackoffSeconds {
		if s <= 0 {
			return fmt.Errorf("api.retry.backoff_seconds[%d] must be positive, got %d", i, s)
		}
	}

	if c.Storage.Path == "" {
		return fmt.Errorf("storage.path must not be empty")
	}

	if c.Events.Enabled {
		if c.Events.Broker.Host == "" {
			return fmt.Errorf("events.broker.host must not be empty when events are enabled")
		}
		if c.Events.QoS < 0 || c.Events.QoS > 2 {
			return fmt.Errorf("events.qos must be 0, 1, or 2, got %d", c.Events.QoS)
		}
	}

	if c.Telemetry.Enabled && c.Telemetry.URL == "" {
		return fmt.Errorf("telemetry.url must not be empty when telemetry is enabled")
	}

	return nil
}

// RequestTimeout returns the per-request timeout as a time.Duration.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.API.Timeout) * time.Second
}

// BackoffSchedule returns the retry delay schedule as time.Durations.
func (c *Config) BackoffSchedule() []time.Duration {
	out := make([]time.Duration, len(c.API.Retry.BackoffSeconds))
	for i, s := range c.API.Retry.BackoffSeconds {
		out[i] = time.Duration(s) * time.Second
	}
	return out
}

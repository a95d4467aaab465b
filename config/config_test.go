package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// writeConfig writes YAML content to a temp file and returns its path.
func writeConfig(t *testing.T, content string) string {
	t.Helper()

	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "mobilecore.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	return configPath
}

func TestLoad_ValidConfig(t *testing.T) {
	content := `
api:
  base_url: "https://api.example.test/api/v1"
  building_host_pattern: "https://%s.example.test/api/v1"
  timeout: 10
storage:
  path: "/tmp/creds.db"
  wal_mode: true
  busy_timeout: 5
logging:
  level: "debug"
`
	cfg, err := Load(writeConfig(t, content))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.API.BaseURL != "https://api.example.test/api/v1" {
		t.Errorf("API.BaseURL = %q, want %q", cfg.API.BaseURL, "https://api.example.test/api/v1")
	}
	if cfg.Storage.Path != "/tmp/creds.db" {
		t.Errorf("Storage.Path = %q, want %q", cfg.Storage.Path, "/tmp/creds.db")
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want %q", cfg.Logging.Level, "debug")
	}

	// Defaults survive partial files
	if cfg.API.Retry.MaxRetries != 3 {
		t.Errorf("API.Retry.MaxRetries = %d, want default 3", cfg.API.Retry.MaxRetries)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/path/mobilecore.yaml")
	if err == nil {
		t.Error("Load() expected error for missing file, got nil")
	}
}

func TestLoad_EnvOverride(t *testing.T) {
	content := `
api:
  base_url: "https://file.example.test/api/v1"
`
	t.Setenv("MOBILECORE_API_BASE_URL", "https://env.example.test/api/v1")

	cfg, err := Load(writeConfig(t, content))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.API.BaseURL != "https://env.example.test/api/v1" {
		t.Errorf("env override lost: API.BaseURL = %q", cfg.API.BaseURL)
	}
}

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Errorf("Default() should validate, got %v", err)
	}

	if cfg.API.BaseURL != "https://api.automatedlife.io/api/v1" {
		t.Errorf("API.BaseURL = %q, want production default", cfg.API.BaseURL)
	}
}

func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"relative base url", func(c *Config) { c.API.BaseURL = "/api/v1" }},
		{"pattern without placeholder", func(c *Config) { c.API.BuildingHostPattern = "https://fixed.example.test" }},
		{"pattern with two placeholders", func(c *Config) { c.API.BuildingHostPattern = "https://%s.%s.test" }},
		{"zero timeout", func(c *Config) { c.API.Timeout = 0 }},
		{"schedule length mismatch", func(c *Config) { c.API.Retry.BackoffSeconds = []int{1} }},
		{"negative backoff", func(c *Config) { c.API.Retry.BackoffSeconds = []int{1, -2, 3} }},
		{"empty storage path", func(c *Config) { c.Storage.Path = "" }},
		{"events enabled without host", func(c *Config) {
			c.Events.Enabled = true
			c.Events.Broker.Host = ""
		}},
		{"invalid qos", func(c *Config) {
			c.Events.Enabled = true
			c.Events.QoS = 3
		}},
		{"telemetry enabled without url", func(c *Config) { c.Telemetry.Enabled = true }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("Validate() expected error, got nil")
			}
		})
	}
}

func TestBackoffSchedule(t *testing.T) {
	cfg := Default()
	got := cfg.BackoffSchedule()
	want := []time.Duration{time.Second, 2 * time.Second, 3 * time.Second}

	if len(got) != len(want) {
		t.Fatalf("BackoffSchedule() length = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("BackoffSchedule()[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestRequestTimeout(t *testing.T) {
	cfg := Default()
	if got := cfg.RequestTimeout(); got != 30*time.Second {
		t.Errorf("RequestTimeout() = %v, want 30s", got)
	}
}

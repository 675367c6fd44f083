// ABOUTME: Tests for configuration loading and parsing
// ABOUTME: Covers YAML loading, env var expansion, and duration parsing

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	return path
}

func TestLoad_ValidConfig(t *testing.T) {
	configPath := writeConfig(t, `
database:
  path: "./test.db"

login:
  callback_port: 8347
  checkpoint_path: "./checkpoint.toml"

api:
  timeout: "15s"
  user_agent: "roost-test/1.0"

daemon:
  http_addr: "127.0.0.1:9999"
  sync_interval: "5m"
  max_pages: 10

logging:
  level: "debug"
  format: "json"

metrics:
  enabled: true
  path: "/metrics"
`)

	cfg, err := Load(configPath, t.TempDir())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Database.Path != "./test.db" {
		t.Errorf("Database.Path = %q, want %q", cfg.Database.Path, "./test.db")
	}

	if cfg.Login.CallbackPort != 8347 {
		t.Errorf("Login.CallbackPort = %d, want 8347", cfg.Login.CallbackPort)
	}
	if cfg.Login.CheckpointPath != "./checkpoint.toml" {
		t.Errorf("Login.CheckpointPath = %q, want %q", cfg.Login.CheckpointPath, "./checkpoint.toml")
	}

	if cfg.API.Timeout != 15*time.Second {
		t.Errorf("API.Timeout = %v, want %v", cfg.API.Timeout, 15*time.Second)
	}
	if cfg.API.UserAgent != "roost-test/1.0" {
		t.Errorf("API.UserAgent = %q, want %q", cfg.API.UserAgent, "roost-test/1.0")
	}

	if cfg.Daemon.HTTPAddr != "127.0.0.1:9999" {
		t.Errorf("Daemon.HTTPAddr = %q, want %q", cfg.Daemon.HTTPAddr, "127.0.0.1:9999")
	}
	if cfg.Daemon.SyncInterval != 5*time.Minute {
		t.Errorf("Daemon.SyncInterval = %v, want %v", cfg.Daemon.SyncInterval, 5*time.Minute)
	}
	if cfg.Daemon.MaxPages != 10 {
		t.Errorf("Daemon.MaxPages = %d, want 10", cfg.Daemon.MaxPages)
	}

	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want %q", cfg.Logging.Level, "debug")
	}
	if cfg.Logging.Format != "json" {
		t.Errorf("Logging.Format = %q, want %q", cfg.Logging.Format, "json")
	}

	if !cfg.Metrics.Enabled {
		t.Error("Metrics.Enabled = false, want true")
	}
}

func TestLoad_UnsetFieldsFallBackToDefaults(t *testing.T) {
	dataDir := t.TempDir()
	configPath := writeConfig(t, `
logging:
  level: "warn"
`)

	cfg, err := Load(configPath, dataDir)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Database.Path != filepath.Join(dataDir, "roost.db") {
		t.Errorf("Database.Path = %q, want default under %q", cfg.Database.Path, dataDir)
	}
	if cfg.Daemon.SyncInterval != 2*time.Minute {
		t.Errorf("Daemon.SyncInterval = %v, want default %v", cfg.Daemon.SyncInterval, 2*time.Minute)
	}
	if cfg.Logging.Level != "warn" {
		t.Errorf("Logging.Level = %q, want %q", cfg.Logging.Level, "warn")
	}
}

func TestLoad_EnvVarExpansion(t *testing.T) {
	t.Setenv("ROOST_TEST_DB_PATH", "/tmp/expanded.db")

	configPath := writeConfig(t, `
database:
  path: "${ROOST_TEST_DB_PATH}"
`)

	cfg, err := Load(configPath, t.TempDir())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Database.Path != "/tmp/expanded.db" {
		t.Errorf("Database.Path = %q, want %q", cfg.Database.Path, "/tmp/expanded.db")
	}
}

func TestLoad_InvalidDuration(t *testing.T) {
	configPath := writeConfig(t, `
daemon:
  sync_interval: "not-a-duration"
`)

	_, err := Load(configPath, t.TempDir())
	if err == nil {
		t.Fatal("Load() expected error for invalid duration")
	}
	if !strings.Contains(err.Error(), "sync_interval") {
		t.Errorf("error %q does not mention sync_interval", err)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"), t.TempDir())
	if err == nil {
		t.Fatal("Load() expected error for missing file")
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"defaults pass", func(*Config) {}, ""},
		{"missing database path", func(c *Config) { c.Database.Path = "" }, "database.path"},
		{"missing checkpoint path", func(c *Config) { c.Login.CheckpointPath = "" }, "login.checkpoint_path"},
		{"zero max pages", func(c *Config) { c.Daemon.MaxPages = 0 }, "max_pages"},
		{"tiny sync interval", func(c *Config) { c.Daemon.SyncInterval = 100 * time.Millisecond }, "sync_interval"},
		{"bad log level", func(c *Config) { c.Logging.Level = "verbose" }, "logging.level"},
		{"metrics without path", func(c *Config) { c.Metrics.Path = "" }, "metrics.path"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default(t.TempDir())
			tc.mutate(cfg)

			err := cfg.Validate()
			if tc.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate() error = %v, want nil", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("Validate() = nil, want error mentioning %q", tc.wantErr)
			}
			if !strings.Contains(err.Error(), tc.wantErr) {
				t.Errorf("Validate() error %q does not mention %q", err, tc.wantErr)
			}
		})
	}
}

// ABOUTME: Configuration loading and parsing for roost
// ABOUTME: Supports YAML files with environment variable expansion and duration parsing

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete roost configuration
type Config struct {
	Database DatabaseConfig `yaml:"database"`
	Login    LoginConfig    `yaml:"login"`
	API      APIConfig      `yaml:"api"`
	Daemon   DaemonConfig   `yaml:"daemon"`
	Logging  LoggingConfig  `yaml:"logging"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// LoginConfig holds login flow configuration
type LoginConfig struct {
	// CallbackPort is the loopback port for the OAuth redirect. 0 picks
	// an ephemeral port.
	CallbackPort int `yaml:"callback_port"`
	// CheckpointPath is where in-flight login state is persisted.
	CheckpointPath string `yaml:"checkpoint_path"`
}

// APIConfig holds REST client configuration
type APIConfig struct {
	UserAgent string `yaml:"user_agent"`

	Timeout time.Duration `yaml:"-"`

	// Raw string value for YAML unmarshaling
	TimeoutRaw string `yaml:"timeout"`
}

// DaemonConfig holds sync daemon configuration
type DaemonConfig struct {
	HTTPAddr string `yaml:"http_addr"`
	MaxPages int    `yaml:"max_pages"`

	SyncInterval time.Duration `yaml:"-"`

	// Raw string value for YAML unmarshaling
	SyncIntervalRaw string `yaml:"sync_interval"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// MetricsConfig holds metrics endpoint configuration
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// Default returns the configuration used when no config file exists,
// rooted at the given data directory.
func Default(dataDir string) *Config {
	return &Config{
		Database: DatabaseConfig{
			Path: filepath.Join(dataDir, "roost.db"),
		},
		Login: LoginConfig{
			CallbackPort:   0,
			CheckpointPath: filepath.Join(dataDir, "login-checkpoint.toml"),
		},
		API: APIConfig{
			Timeout: 30 * time.Second,
		},
		Daemon: DaemonConfig{
			HTTPAddr:     "127.0.0.1:9470",
			MaxPages:     25,
			SyncInterval: 2 * time.Minute,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
	}
}

// Load reads a configuration file from the given path and returns a parsed Config.
// Environment variables in the format ${VAR_NAME} are expanded.
// Duration strings are parsed into time.Duration values. Fields left
// unset fall back to the defaults for dataDir.
func Load(path, dataDir string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	// Expand environment variables in the raw YAML content
	expandedData := expandEnvVars(string(data))

	cfg := Default(dataDir)
	if err := yaml.Unmarshal([]byte(expandedData), cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	// Parse duration fields
	if err := parseDurations(cfg); err != nil {
		return nil, fmt.Errorf("parsing durations: %w", err)
	}

	// Validate required fields
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// expandEnvVars replaces ${VAR_NAME} patterns with the corresponding environment variable values.
// If the environment variable is not set, it is replaced with an empty string.
func expandEnvVars(s string) string {
	// Match ${VAR_NAME} pattern
	re := regexp.MustCompile(`\$\{([^}]+)\}`)

	return re.ReplaceAllStringFunc(s, func(match string) string {
		// Extract variable name from ${VAR_NAME}
		varName := re.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}

// Validate checks that all required configuration fields are present and valid.
// Returns an error describing the first validation failure encountered.
func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}

	if c.Login.CheckpointPath == "" {
		return fmt.Errorf("login.checkpoint_path is required")
	}

	if c.Daemon.HTTPAddr == "" {
		return fmt.Errorf("daemon.http_addr is required")
	}

	if c.Daemon.MaxPages < 1 {
		return fmt.Errorf("daemon.max_pages must be at least 1")
	}

	if c.Daemon.SyncInterval < time.Second {
		return fmt.Errorf("daemon.sync_interval must be at least 1s")
	}

	switch c.Logging.Level {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be one of debug, info, warn, error")
	}

	if c.Metrics.Enabled && c.Metrics.Path == "" {
		return fmt.Errorf("metrics.path is required when metrics are enabled")
	}

	return nil
}

// parseDurations converts the raw duration strings into time.Duration values
func parseDurations(cfg *Config) error {
	var err error

	if cfg.API.TimeoutRaw != "" {
		cfg.API.Timeout, err = time.ParseDuration(cfg.API.TimeoutRaw)
		if err != nil {
			return fmt.Errorf("parsing api.timeout %q: %w", cfg.API.TimeoutRaw, err)
		}
	}

	if cfg.Daemon.SyncIntervalRaw != "" {
		cfg.Daemon.SyncInterval, err = time.ParseDuration(cfg.Daemon.SyncIntervalRaw)
		if err != nil {
			return fmt.Errorf("parsing daemon.sync_interval %q: %w", cfg.Daemon.SyncIntervalRaw, err)
		}
	}

	return nil
}

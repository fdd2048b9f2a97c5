// ABOUTME: Configuration loading and parsing for mission-control
// ABOUTME: Supports YAML or TOML files with environment variable expansion and duration parsing

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Config represents the complete mission-control configuration
type Config struct {
	Profile     Profile           `yaml:"profile" toml:"profile"`
	Database    DatabaseConfig    `yaml:"database" toml:"database"`
	Logging     LoggingConfig     `yaml:"logging" toml:"logging"`
	Transport   TransportConfig   `yaml:"transport" toml:"transport"`
	Credentials CredentialsConfig `yaml:"credentials" toml:"credentials"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Path string `yaml:"path" toml:"path"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level" toml:"level"`
	Format string `yaml:"format" toml:"format"`
}

// TransportConfig holds HTTP transport configuration
type TransportConfig struct {
	RequestTimeout time.Duration `yaml:"-" toml:"-"`
	SessionLimit   int           `yaml:"session_limit" toml:"session_limit"`
	UserAgent      string        `yaml:"user_agent" toml:"user_agent"`

	Tailscale TailscaleConfig `yaml:"tailscale" toml:"tailscale"`

	// Raw string values for unmarshaling
	RequestTimeoutRaw string `yaml:"request_timeout" toml:"request_timeout"`
}

// TailscaleConfig holds Tailscale tsnet configuration for reaching a
// gateway that only listens on a tailnet
type TailscaleConfig struct {
	Enabled   bool   `yaml:"enabled" toml:"enabled"`
	Hostname  string `yaml:"hostname" toml:"hostname"`
	AuthKey   string `yaml:"auth_key" toml:"auth_key"`
	StateDir  string `yaml:"state_dir" toml:"state_dir"`
	Ephemeral bool   `yaml:"ephemeral" toml:"ephemeral"`
}

// CredentialsConfig says where the gateway token may come from
type CredentialsConfig struct {
	TokenEnv  string `yaml:"token_env" toml:"token_env"`
	TokenFile string `yaml:"token_file" toml:"token_file"`
}

const (
	defaultRequestTimeout = 30 * time.Second
	defaultSessionLimit   = 100
	defaultTokenEnv       = "OPENCLAW_TOKEN"
)

// Default returns the configuration used when no file exists.
// dataDir is where the database lives.
func Default(dataDir string) *Config {
	cfg := &Config{
		Profile: DefaultProfile(),
		Database: DatabaseConfig{
			Path: filepath.Join(dataDir, "mission-control.db"),
		},
	}
	applyDefaults(cfg)
	return cfg
}

// Load reads a configuration file from the given path and returns a parsed Config.
// Files ending in .toml are decoded as TOML, anything else as YAML.
// Environment variables in the format ${VAR_NAME} are expanded.
// Duration strings are parsed into time.Duration values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	// Expand environment variables in the raw content
	expandedData := expandEnvVars(string(data))

	cfg := Config{Profile: DefaultProfile()}
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		if _, err := toml.Decode(expandedData, &cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	} else {
		if err := yaml.Unmarshal([]byte(expandedData), &cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	// Parse duration fields
	if err := parseDurations(&cfg); err != nil {
		return nil, fmt.Errorf("parsing durations: %w", err)
	}

	applyDefaults(&cfg)
	cfg.Database.Path = expandHome(cfg.Database.Path)
	cfg.Credentials.TokenFile = expandHome(cfg.Credentials.TokenFile)
	cfg.Transport.Tailscale.StateDir = expandHome(cfg.Transport.Tailscale.StateDir)

	// Validate required fields
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// Save writes cfg as YAML to path, creating parent directories.
func Save(path string, cfg *Config) error {
	if cfg.Transport.RequestTimeout > 0 && cfg.Transport.RequestTimeoutRaw == "" {
		cfg.Transport.RequestTimeoutRaw = cfg.Transport.RequestTimeout.String()
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
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
// The profile is checked separately, at the point a gateway call needs it.
func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}

	// Tailscale requires a hostname
	if c.Transport.Tailscale.Enabled && c.Transport.Tailscale.Hostname == "" {
		return fmt.Errorf("transport.tailscale.hostname is required when tailscale is enabled")
	}

	if c.Transport.RequestTimeout < 0 {
		return fmt.Errorf("transport.request_timeout must not be negative")
	}

	if c.Profile.HealthPollingSeconds < 0 {
		return fmt.Errorf("profile.health_polling_seconds must not be negative")
	}

	switch c.Logging.Format {
	case "", "text", "json":
	default:
		return fmt.Errorf("logging.format must be text or json, got %q", c.Logging.Format)
	}

	return nil
}

// parseDurations converts the raw duration strings into time.Duration values
func parseDurations(cfg *Config) error {
	var err error

	if cfg.Transport.RequestTimeoutRaw != "" {
		cfg.Transport.RequestTimeout, err = time.ParseDuration(cfg.Transport.RequestTimeoutRaw)
		if err != nil {
			return fmt.Errorf("parsing request_timeout %q: %w", cfg.Transport.RequestTimeoutRaw, err)
		}
	}

	return nil
}

// expandHome replaces a leading ~/ with the user's home directory.
func expandHome(path string) string {
	rest, ok := strings.CutPrefix(path, "~/")
	if !ok {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, rest)
}

func applyDefaults(cfg *Config) {
	if cfg.Transport.RequestTimeoutRaw == "" && cfg.Transport.RequestTimeout == 0 {
		cfg.Transport.RequestTimeout = defaultRequestTimeout
	}
	if cfg.Transport.SessionLimit == 0 {
		cfg.Transport.SessionLimit = defaultSessionLimit
	}
	if cfg.Credentials.TokenEnv == "" {
		cfg.Credentials.TokenEnv = defaultTokenEnv
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "text"
	}
	if cfg.Profile.HealthPollingSeconds == 0 {
		cfg.Profile.HealthPollingSeconds = DefaultHealthPollingSeconds
	}
}

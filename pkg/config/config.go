// Package config provides configuration loading for the plugin server.
package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the main configuration structure.
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Executor      ExecutorConfig      `yaml:"executor"`
	Providers     map[string]Provider `yaml:"providers"`
	APIKeys       map[string]string   `yaml:"api_keys"`
	RateLimiting  RateLimitConfig     `yaml:"rate_limiting"`
	Observability ObservabilityConfig `yaml:"observability"`

	// PluginsDir is the directory holding per-plugin declarative assets
	// (form_fields.yaml schemas).
	PluginsDir string `yaml:"plugins_dir"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host    string `yaml:"host"`
	Port    int    `yaml:"port"`
	BaseURL string `yaml:"base_url"`
}

// ExecutorConfig holds plugin execution configuration.
type ExecutorConfig struct {
	// Timeout bounds a single plugin invocation, including its outbound
	// HTTP calls and retries.
	Timeout time.Duration `yaml:"timeout"`
}

// Provider holds OAuth client credentials for a third-party provider.
type Provider struct {
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
}

// RateLimitConfig holds per-IP request rate limiting configuration.
type RateLimitConfig struct {
	Enabled           bool `yaml:"enabled"`
	RequestsPerMinute int  `yaml:"requests_per_minute"`
	BurstSize         int  `yaml:"burst_size"`
}

// ObservabilityConfig holds observability configuration.
type ObservabilityConfig struct {
	MetricsEnabled bool `yaml:"metrics_enabled"`
	MetricsPort    int  `yaml:"metrics_port"`
}

// envVarPattern matches ${VAR_NAME} patterns for environment variable substitution.
var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// Load loads configuration from a YAML file with environment variable
// substitution. A missing file is not an error: the server can run entirely
// from environment-resolved credentials and defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv("CONFIG_PATH")
		if path == "" {
			path = "config.yaml"
		}
	}

	var cfg Config

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
	} else {
		substituted, err := substituteEnvVars(string(data))
		if err != nil {
			return nil, fmt.Errorf("substituting env vars: %w", err)
		}

		if err := yaml.Unmarshal([]byte(substituted), &cfg); err != nil {
			return nil, fmt.Errorf("parsing config: %w", err)
		}
	}

	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// substituteEnvVars replaces ${VAR_NAME} patterns with environment variable values.
// Lines that are comments (starting with #) are skipped to allow commented optional
// sections in config files without requiring their environment variables to be set.
func substituteEnvVars(content string) (string, error) {
	var missingVars []string
	lines := strings.Split(content, "\n")

	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "#") {
			continue
		}

		lines[i] = envVarPattern.ReplaceAllStringFunc(line, func(match string) string {
			varName := envVarPattern.FindStringSubmatch(match)[1]
			value := os.Getenv(varName)
			if value == "" {
				missingVars = append(missingVars, varName)
				return match
			}

			return value
		})
	}

	if len(missingVars) > 0 {
		return "", fmt.Errorf("missing environment variables: %v", missingVars)
	}

	return strings.Join(lines, "\n"), nil
}

// applyDefaults sets default values for configuration fields.
func applyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}

	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}

	if cfg.Server.BaseURL == "" {
		cfg.Server.BaseURL = fmt.Sprintf("http://localhost:%d", cfg.Server.Port)
	}

	if cfg.Executor.Timeout == 0 {
		cfg.Executor.Timeout = 60 * time.Second
	}

	if cfg.RateLimiting.RequestsPerMinute == 0 {
		cfg.RateLimiting.RequestsPerMinute = 120
	}

	if cfg.RateLimiting.BurstSize == 0 {
		cfg.RateLimiting.BurstSize = 20
	}

	if cfg.Observability.MetricsPort == 0 {
		cfg.Observability.MetricsPort = 9090
	}

	if cfg.PluginsDir == "" {
		cfg.PluginsDir = "plugins"
	}
}

// MaxExecutorTimeout is the maximum allowed plugin execution timeout.
const MaxExecutorTimeout = 5 * time.Minute

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Executor.Timeout > MaxExecutorTimeout {
		return fmt.Errorf("executor.timeout cannot exceed %s", MaxExecutorTimeout)
	}

	return nil
}

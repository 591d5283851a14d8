package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/foxzi/emailchamp/internal/quota"
)

// EnvLLMAPIKey supplies llm.api_key when the file leaves it empty
const EnvLLMAPIKey = "OPENROUTER_API_KEY"

// Config is the main configuration structure
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	API     APIConfig     `yaml:"api"`
	Storage StorageConfig `yaml:"storage"`
	Logging LoggingConfig `yaml:"logging"`
	LLM     LLMConfig     `yaml:"llm"`
	Editor  EditorConfig  `yaml:"editor"`
	Quota   QuotaConfig   `yaml:"quota"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// ServerConfig identifies this installation to the LLM provider
type ServerConfig struct {
	Name      string `yaml:"name"`       // Sent as X-Title (default: emailchamp)
	PublicURL string `yaml:"public_url"` // Sent as HTTP-Referer
}

// APIConfig contains HTTP API settings
type APIConfig struct {
	ListenAddr     string        `yaml:"listen_addr"`
	APIKey         string        `yaml:"api_key"`          // Empty disables authentication
	MaxHeaderBytes int           `yaml:"max_header_bytes"` // Max HTTP header size (default: 1MB)
	MaxBodyBytes   int64         `yaml:"max_body_bytes"`   // Max request body (default: 5MB)
	ReadTimeout    time.Duration `yaml:"read_timeout"`     // HTTP read timeout (default: 30s)
	WriteTimeout   time.Duration `yaml:"write_timeout"`    // Generation can be slow (default: 3m)
	IdleTimeout    time.Duration `yaml:"idle_timeout"`     // HTTP idle timeout (default: 60s)
	AllowedIPs     []string      `yaml:"allowed_ips"`      // IP addresses/CIDRs allowed to access API (empty = allow all)
	CORSOrigins    []string      `yaml:"cors_origins"`     // Browser origins allowed to call the API
}

// StorageConfig contains storage settings
type StorageConfig struct {
	Path string `yaml:"path"`
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
}

// LLMConfig contains chat completion provider settings
type LLMConfig struct {
	APIKey  string        `yaml:"api_key"`
	BaseURL string        `yaml:"base_url"` // Default: https://openrouter.ai/api/v1
	Model   string        `yaml:"model"`
	Timeout time.Duration `yaml:"timeout"` // Default: 2m
}

// EditorConfig contains block editor settings
type EditorConfig struct {
	AutosaveDelay time.Duration `yaml:"autosave_delay"` // Default: 2s
}

// QuotaConfig limits LLM generations
type QuotaConfig struct {
	Enabled       bool          `yaml:"enabled"`
	Global        *quota.Limit  `yaml:"global,omitempty"`
	PerKind       *quota.Limit  `yaml:"per_kind,omitempty"`
	PerClient     *quota.Limit  `yaml:"per_client,omitempty"`
	FlushInterval time.Duration `yaml:"flush_interval"` // Default: 10s
}

// MetricsConfig contains Prometheus metrics settings
type MetricsConfig struct {
	Enabled       bool          `yaml:"enabled"`
	ListenAddr    string        `yaml:"listen_addr"`    // Default: :9090
	Path          string        `yaml:"path"`           // Default: /metrics
	FlushInterval time.Duration `yaml:"flush_interval"` // Default: 10s
	AllowedIPs    []string      `yaml:"allowed_ips"`    // IP addresses/CIDRs allowed to access metrics
}

// Load loads configuration from a YAML file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.setDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Default returns a configuration with every default applied
func Default() *Config {
	cfg := &Config{}
	cfg.setDefaults()
	return cfg
}

// setDefaults sets default values for configuration
func (c *Config) setDefaults() {
	if c.Server.Name == "" {
		c.Server.Name = "emailchamp"
	}

	if c.API.ListenAddr == "" {
		c.API.ListenAddr = ":8080"
	}
	if c.API.MaxHeaderBytes == 0 {
		c.API.MaxHeaderBytes = 1 << 20 // 1 MB
	}
	if c.API.MaxBodyBytes == 0 {
		c.API.MaxBodyBytes = 5 << 20
	}
	if c.API.ReadTimeout == 0 {
		c.API.ReadTimeout = 30 * time.Second
	}
	if c.API.WriteTimeout == 0 {
		c.API.WriteTimeout = 3 * time.Minute
	}
	if c.API.IdleTimeout == 0 {
		c.API.IdleTimeout = 60 * time.Second
	}

	if c.Storage.Path == "" {
		c.Storage.Path = "/var/lib/emailchamp/emailchamp.db"
	}

	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "json"
	}

	if c.LLM.APIKey == "" {
		c.LLM.APIKey = os.Getenv(EnvLLMAPIKey)
	}
	if c.LLM.BaseURL == "" {
		c.LLM.BaseURL = "https://openrouter.ai/api/v1"
	}
	c.LLM.BaseURL = strings.TrimRight(c.LLM.BaseURL, "/")
	if c.LLM.Model == "" {
		c.LLM.Model = "anthropic/claude-3.5-sonnet-20240620"
	}
	if c.LLM.Timeout == 0 {
		c.LLM.Timeout = 2 * time.Minute
	}

	if c.Editor.AutosaveDelay == 0 {
		c.Editor.AutosaveDelay = 2 * time.Second
	}

	if c.Quota.FlushInterval == 0 {
		c.Quota.FlushInterval = 10 * time.Second
	}

	// Metrics defaults
	if c.Metrics.ListenAddr == "" {
		c.Metrics.ListenAddr = ":9090"
	}
	if c.Metrics.Path == "" {
		c.Metrics.Path = "/metrics"
	}
	if c.Metrics.FlushInterval == 0 {
		c.Metrics.FlushInterval = 10 * time.Second
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("invalid logging.level: %s (must be debug, info, warn, or error)", c.Logging.Level)
	}

	validLogFormats := map[string]bool{"json": true, "text": true}
	if !validLogFormats[c.Logging.Format] {
		return fmt.Errorf("invalid logging.format: %s (must be json or text)", c.Logging.Format)
	}

	if c.Storage.Path == "" {
		return fmt.Errorf("storage.path is required")
	}

	u, err := url.Parse(c.LLM.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid llm.base_url: %q", c.LLM.BaseURL)
	}
	if c.LLM.Timeout < 0 {
		return fmt.Errorf("llm.timeout must not be negative")
	}

	if c.Editor.AutosaveDelay < 0 {
		return fmt.Errorf("editor.autosave_delay must not be negative")
	}

	if err := c.validateQuota(); err != nil {
		return err
	}

	if c.Metrics.Enabled && !strings.HasPrefix(c.Metrics.Path, "/") {
		return fmt.Errorf("metrics.path must start with /")
	}

	return nil
}

func (c *Config) validateQuota() error {
	limits := map[string]*quota.Limit{
		"global":     c.Quota.Global,
		"per_kind":   c.Quota.PerKind,
		"per_client": c.Quota.PerClient,
	}
	for name, l := range limits {
		if l == nil {
			continue
		}
		if l.PerHour < 0 || l.PerDay < 0 {
			return fmt.Errorf("quota.%s limits must not be negative", name)
		}
	}
	return nil
}

// QuotaLimits converts the quota section for the limiter
func (c *Config) QuotaLimits() quota.Config {
	return quota.Config{
		Global:        c.Quota.Global,
		PerKind:       c.Quota.PerKind,
		PerClient:     c.Quota.PerClient,
		FlushInterval: c.Quota.FlushInterval,
	}
}

// HasLLM reports whether an API key is available for generation
func (c *Config) HasLLM() bool {
	return c.LLM.APIKey != ""
}

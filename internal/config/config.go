package config

import (
	"fmt"
	"os"
	"time"

	"github.com/zapdrip/zapdrip/internal/ratelimit"
	"gopkg.in/yaml.v3"
)

// Config is the main configuration structure
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Gateway   GatewayConfig   `yaml:"gateway"`
	Scrape    ScrapeConfig    `yaml:"scrape"`
	LLM       LLMConfig       `yaml:"llm"`
	Dispatch  DispatchConfig  `yaml:"dispatch"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// ServerConfig contains HTTP API settings
type ServerConfig struct {
	ListenAddr   string        `yaml:"listen_addr"`
	APIKey       string        `yaml:"api_key"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	IdleTimeout  time.Duration `yaml:"idle_timeout"`
}

// DatabaseConfig contains persistent store settings
type DatabaseConfig struct {
	Path string `yaml:"path"`
	// BoltPath holds the send budget counters
	BoltPath string `yaml:"bolt_path"`
}

// GatewayConfig contains WhatsApp gateway settings
type GatewayConfig struct {
	BaseURL         string        `yaml:"base_url"`
	APIKey          string        `yaml:"api_key"`
	DefaultInstance string        `yaml:"default_instance"`
	ChunkPause      time.Duration `yaml:"chunk_pause"`
}

// ScrapeConfig contains the reader-proxy settings for site enrichment
type ScrapeConfig struct {
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
}

// LLMConfig contains generation provider settings
type LLMConfig struct {
	// OpenAIBaseURL overrides the public endpoint, used in tests and
	// for proxies
	OpenAIBaseURL string `yaml:"openai_base_url"`
}

// DispatchConfig contains campaign loop settings
type DispatchConfig struct {
	SchedulerInterval time.Duration `yaml:"scheduler_interval"`
	DelayMinSeconds   int           `yaml:"delay_min_seconds"`
	DelayMaxSeconds   int           `yaml:"delay_max_seconds"`
	Sweep             SweepConfig   `yaml:"sweep"`
}

// SweepConfig contains stale-lead sweep settings
type SweepConfig struct {
	MaxAge   time.Duration `yaml:"max_age"`
	Interval time.Duration `yaml:"interval"`
}

// RateLimitConfig contains per-instance send budget settings
type RateLimitConfig struct {
	Enabled bool             `yaml:"enabled"`
	Budget  ratelimit.Config `yaml:"budget"`
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
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

	cfg.applyEnv()
	cfg.setDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// applyEnv overrides secrets from the environment so they can stay out
// of the config file.
func (c *Config) applyEnv() {
	if v := os.Getenv("ZAPDRIP_API_KEY"); v != "" {
		c.Server.APIKey = v
	}
	if v := os.Getenv("ZAPDRIP_GATEWAY_API_KEY"); v != "" {
		c.Gateway.APIKey = v
	}
}

// setDefaults sets default values for configuration
func (c *Config) setDefaults() {
	if c.Server.ListenAddr == "" {
		c.Server.ListenAddr = ":8080"
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = 30 * time.Second
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = 30 * time.Second
	}
	if c.Server.IdleTimeout == 0 {
		c.Server.IdleTimeout = 60 * time.Second
	}

	if c.Database.Path == "" {
		c.Database.Path = "/var/lib/zapdrip/zapdrip.db"
	}
	if c.Database.BoltPath == "" {
		c.Database.BoltPath = "/var/lib/zapdrip/budget.db"
	}

	if c.Gateway.DefaultInstance == "" {
		c.Gateway.DefaultInstance = "default"
	}
	if c.Gateway.ChunkPause == 0 {
		c.Gateway.ChunkPause = 2 * time.Second
	}

	if c.Scrape.BaseURL == "" {
		c.Scrape.BaseURL = "https://r.jina.ai"
	}
	if c.Scrape.Timeout == 0 {
		c.Scrape.Timeout = 30 * time.Second
	}

	if c.Dispatch.SchedulerInterval == 0 {
		c.Dispatch.SchedulerInterval = 60 * time.Second
	}
	if c.Dispatch.DelayMinSeconds == 0 {
		c.Dispatch.DelayMinSeconds = 150
	}
	if c.Dispatch.DelayMaxSeconds == 0 {
		c.Dispatch.DelayMaxSeconds = 320
	}
	if c.Dispatch.Sweep.MaxAge == 0 {
		c.Dispatch.Sweep.MaxAge = 30 * time.Minute
	}
	if c.Dispatch.Sweep.Interval == 0 {
		c.Dispatch.Sweep.Interval = 5 * time.Minute
	}

	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "json"
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Gateway.BaseURL == "" {
		return fmt.Errorf("gateway.base_url is required")
	}

	if c.Dispatch.DelayMinSeconds < 0 {
		return fmt.Errorf("dispatch.delay_min_seconds must not be negative")
	}
	if c.Dispatch.DelayMaxSeconds < c.Dispatch.DelayMinSeconds {
		return fmt.Errorf("dispatch.delay_max_seconds must be >= delay_min_seconds")
	}

	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("invalid logging.level: %s (must be debug, info, warn, or error)", c.Logging.Level)
	}

	validLogFormats := map[string]bool{"json": true, "text": true}
	if !validLogFormats[c.Logging.Format] {
		return fmt.Errorf("invalid logging.format: %s (must be json or text)", c.Logging.Format)
	}

	return nil
}

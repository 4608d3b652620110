package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(cfgPath, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	return cfgPath
}

func TestLoad(t *testing.T) {
	content := `
server:
  listen_addr: ":9080"
  api_key: "test-api-key"

database:
  path: "/tmp/zapdrip.db"
  bolt_path: "/tmp/budget.db"

gateway:
  base_url: "http://gateway.local:8088"
  api_key: "gw-secret"
  default_instance: "vendas-01"
  chunk_pause: 1s

scrape:
  base_url: "http://reader.local"
  timeout: 10s

dispatch:
  scheduler_interval: 30s
  delay_min_seconds: 60
  delay_max_seconds: 120
  sweep:
    max_age: 15m
    interval: 2m

rate_limit:
  enabled: true
  budget:
    per_hour: 40
    per_day: 300

logging:
  level: "debug"
  format: "text"
`
	cfg, err := Load(writeConfig(t, content))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.ListenAddr != ":9080" {
		t.Errorf("ListenAddr = %v, want :9080", cfg.Server.ListenAddr)
	}
	if cfg.Server.APIKey != "test-api-key" {
		t.Errorf("APIKey = %v", cfg.Server.APIKey)
	}
	if cfg.Gateway.BaseURL != "http://gateway.local:8088" {
		t.Errorf("Gateway.BaseURL = %v", cfg.Gateway.BaseURL)
	}
	if cfg.Gateway.ChunkPause != time.Second {
		t.Errorf("ChunkPause = %v, want 1s", cfg.Gateway.ChunkPause)
	}
	if cfg.Scrape.Timeout != 10*time.Second {
		t.Errorf("Scrape.Timeout = %v, want 10s", cfg.Scrape.Timeout)
	}
	if cfg.Dispatch.SchedulerInterval != 30*time.Second {
		t.Errorf("SchedulerInterval = %v, want 30s", cfg.Dispatch.SchedulerInterval)
	}
	if cfg.Dispatch.DelayMinSeconds != 60 || cfg.Dispatch.DelayMaxSeconds != 120 {
		t.Errorf("delays = %d/%d, want 60/120", cfg.Dispatch.DelayMinSeconds, cfg.Dispatch.DelayMaxSeconds)
	}
	if cfg.Dispatch.Sweep.MaxAge != 15*time.Minute {
		t.Errorf("Sweep.MaxAge = %v, want 15m", cfg.Dispatch.Sweep.MaxAge)
	}
	if !cfg.RateLimit.Enabled || cfg.RateLimit.Budget.PerHour != 40 {
		t.Errorf("RateLimit = %+v", cfg.RateLimit)
	}
	if cfg.Logging.Level != "debug" || cfg.Logging.Format != "text" {
		t.Errorf("Logging = %+v", cfg.Logging)
	}
}

func TestLoad_Defaults(t *testing.T) {
	content := `
gateway:
  base_url: "http://gateway.local"
`
	cfg, err := Load(writeConfig(t, content))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.ListenAddr != ":8080" {
		t.Errorf("ListenAddr = %v, want default :8080", cfg.Server.ListenAddr)
	}
	if cfg.Gateway.ChunkPause != 2*time.Second {
		t.Errorf("ChunkPause = %v, want default 2s", cfg.Gateway.ChunkPause)
	}
	if cfg.Scrape.BaseURL != "https://r.jina.ai" {
		t.Errorf("Scrape.BaseURL = %v, want default reader", cfg.Scrape.BaseURL)
	}
	if cfg.Scrape.Timeout != 30*time.Second {
		t.Errorf("Scrape.Timeout = %v, want default 30s", cfg.Scrape.Timeout)
	}
	if cfg.Dispatch.SchedulerInterval != 60*time.Second {
		t.Errorf("SchedulerInterval = %v, want default 60s", cfg.Dispatch.SchedulerInterval)
	}
	if cfg.Dispatch.DelayMinSeconds != 150 || cfg.Dispatch.DelayMaxSeconds != 320 {
		t.Errorf("delays = %d/%d, want defaults 150/320", cfg.Dispatch.DelayMinSeconds, cfg.Dispatch.DelayMaxSeconds)
	}
	if cfg.Dispatch.Sweep.MaxAge != 30*time.Minute || cfg.Dispatch.Sweep.Interval != 5*time.Minute {
		t.Errorf("Sweep = %+v, want defaults", cfg.Dispatch.Sweep)
	}
	if cfg.Logging.Level != "info" || cfg.Logging.Format != "json" {
		t.Errorf("Logging = %+v, want defaults", cfg.Logging)
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{
			name:    "missing gateway base url",
			content: "logging:\n  level: info\n",
		},
		{
			name: "inverted delay bounds",
			content: `
gateway:
  base_url: "http://gateway.local"
dispatch:
  delay_min_seconds: 300
  delay_max_seconds: 100
`,
		},
		{
			name: "bad log level",
			content: `
gateway:
  base_url: "http://gateway.local"
logging:
  level: verbose
`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Load(writeConfig(t, tt.content)); err == nil {
				t.Error("Load() succeeded, want validation error")
			}
		})
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("ZAPDRIP_API_KEY", "env-api-key")
	t.Setenv("ZAPDRIP_GATEWAY_API_KEY", "env-gw-key")

	content := `
server:
  api_key: "file-api-key"
gateway:
  base_url: "http://gateway.local"
  api_key: "file-gw-key"
`
	cfg, err := Load(writeConfig(t, content))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.APIKey != "env-api-key" {
		t.Errorf("Server.APIKey = %v, want env override", cfg.Server.APIKey)
	}
	if cfg.Gateway.APIKey != "env-gw-key" {
		t.Errorf("Gateway.APIKey = %v, want env override", cfg.Gateway.APIKey)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load("/nonexistent/config.yaml"); err == nil {
		t.Error("Load() succeeded for missing file")
	}
}

package config

import (
	"embed"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var defaultYAML embed.FS

// Config is the full operational tuning surface. Every knob here is
// deployment-specific; nothing in the clients is hard-coded.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	SamGov    SamGovConfig    `yaml:"samgov"`
	FPDS      EndpointConfig  `yaml:"fpds"`
	USASpend  EndpointConfig  `yaml:"usaspending"`
	Aggregate AggregateConfig `yaml:"aggregate"`
	AI        AIConfig        `yaml:"ai"`
}

type ServerConfig struct {
	Port        string   `yaml:"port"`
	CORSOrigins []string `yaml:"cors_origins,omitempty"`
}

// SamGovConfig configures the primary feed client and its quota discipline.
type SamGovConfig struct {
	BaseURL          string `yaml:"base_url"`
	APIKey           string `yaml:"api_key"`
	QuotaCalls       int    `yaml:"quota_calls"` // calls allowed per window
	QuotaWindowSec   int    `yaml:"quota_window_seconds"`
	MinSpacingMS     int    `yaml:"min_spacing_ms"` // minimum gap between calls
	CacheTTLSec      int    `yaml:"cache_ttl_seconds"`
	CacheMaxEntries  int    `yaml:"cache_max_entries,omitempty"`
	QuotaCooldownSec int    `yaml:"quota_cooldown_seconds"` // fail-fast window after a 429
}

type EndpointConfig struct {
	BaseURL string `yaml:"base_url"`
}

// AggregateConfig tunes the orchestrator.
type AggregateConfig struct {
	PageSize              int  `yaml:"page_size"`
	RefreshIntervalSec    int  `yaml:"refresh_interval_seconds"`
	QuotaBackoffSec       int  `yaml:"quota_backoff_seconds"`
	UnreachableBackoffSec int  `yaml:"unreachable_backoff_seconds"`
	AutoRefresh           bool `yaml:"auto_refresh"`
}

type AIConfig struct {
	Enabled  bool   `yaml:"enabled"`
	BaseURL  string `yaml:"base_url,omitempty"`
	GenModel string `yaml:"gen_model,omitempty"`
}

// Load reads the embedded default configuration, optionally overlaid by the
// file at path. Environment variables inside the YAML (e.g. ${SAM_API_KEY})
// are expanded, so credentials stay out of the file.
func Load(path string) (*Config, error) {
	data, err := defaultYAML.ReadFile("default.yaml")
	if err != nil {
		return nil, fmt.Errorf("reading embedded defaults: %w", err)
	}
	cfg, err := parse(data)
	if err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}

	if path != "" {
		overlay, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", path, err)
		}
		// Unmarshal over the defaults: absent keys keep their values.
		expanded := os.ExpandEnv(string(overlay))
		if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
	}

	return cfg, nil
}

func parse(data []byte) (*Config, error) {
	expanded := os.ExpandEnv(string(data))
	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Duration helpers keep the call sites free of unit juggling.

func (c SamGovConfig) QuotaWindow() time.Duration { return time.Duration(c.QuotaWindowSec) * time.Second }
func (c SamGovConfig) MinSpacing() time.Duration  { return time.Duration(c.MinSpacingMS) * time.Millisecond }
func (c SamGovConfig) CacheTTL() time.Duration    { return time.Duration(c.CacheTTLSec) * time.Second }
func (c SamGovConfig) QuotaCooldown() time.Duration {
	return time.Duration(c.QuotaCooldownSec) * time.Second
}

func (c AggregateConfig) RefreshInterval() time.Duration {
	return time.Duration(c.RefreshIntervalSec) * time.Second
}
func (c AggregateConfig) QuotaBackoff() time.Duration {
	return time.Duration(c.QuotaBackoffSec) * time.Second
}
func (c AggregateConfig) UnreachableBackoff() time.Duration {
	return time.Duration(c.UnreachableBackoffSec) * time.Second
}

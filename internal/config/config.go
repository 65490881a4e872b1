// Package config handles openclawd configuration loading.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/openclaw/openclaw/internal/paths"
)

// searchPathsFunc is indirected so tests can override the search order
// without touching the real filesystem.
var searchPathsFunc = DefaultSearchPaths

// DefaultSearchPaths returns the config file search order.
// An explicit path (from -config flag) is checked first.
// Then: ./config.yaml, ~/.config/openclawd/config.yaml, /config/config.yaml,
// /etc/openclawd/config.yaml.
func DefaultSearchPaths() []string {
	paths := []string{"config.yaml"}

	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "openclawd", "config.yaml"))
	}

	paths = append(paths, "/config/config.yaml") // Container convention
	paths = append(paths, "/etc/openclawd/config.yaml")
	return paths
}

// FindConfig locates a config file. If explicit is non-empty, it must exist.
// Otherwise, searches searchPathsFunc() and returns the first that exists.
// Returns the path found, or an error if nothing was found.
func FindConfig(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicit)
		}
		return explicit, nil
	}

	for _, p := range searchPathsFunc() {
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}

	return "", fmt.Errorf("no config file found (searched: %v)", searchPathsFunc())
}

// Config holds all openclawd configuration. The signal bus and router
// are wired in code; this struct covers the three responder/learning
// sections that are meant to vary across deployments.
type Config struct {
	Extractor ExtractorConfig `yaml:"extractor"`
	Digest    DigestConfig    `yaml:"digest"`
	Learning  LearningConfig  `yaml:"learning"`
	DataDir   string          `yaml:"data_dir"`
	LogLevel  string          `yaml:"log_level"`
}

// PillarConfig names a content pillar the extractor's system prompt is
// built from, plus the keywords used to hint at it.
type PillarConfig struct {
	ID       string   `yaml:"id"`
	Name     string   `yaml:"name"`
	Keywords []string `yaml:"keywords"`
}

// ExtractorConfig configures the Insight Extractor (C4).
type ExtractorConfig struct {
	Pillars          []PillarConfig `yaml:"pillars"`
	MagicString      string         `yaml:"magic_string"`
	MinContentLength int            `yaml:"min_content_length"`
	DebounceMs       int            `yaml:"debounce_ms"`
	MaxBatchSize     int            `yaml:"max_batch_size"`
	MinBatchDelayMs  int            `yaml:"min_batch_delay_ms"`
}

// DigestConfig configures the Digest Scheduler (C6) and the Insight
// Digest Responder (C7) that sits on top of it.
type DigestConfig struct {
	MinInsightsToFlush     int     `yaml:"min_insights_to_flush"`
	MaxHoursBetweenFlushes float64 `yaml:"max_hours_between_flushes"`
	QuietHoursStart        string  `yaml:"quiet_hours_start"`
	QuietHoursEnd          string  `yaml:"quiet_hours_end"`
	Timezone               string  `yaml:"timezone"`
	CooldownHours          float64 `yaml:"cooldown_hours"`
	StorePath              string  `yaml:"store_path"`
	CheckIntervalMs        int     `yaml:"check_interval_ms"`
}

// LearningConfig configures the Learning Client (C9) and, transitively,
// the Sidecar Connection (C8) it speaks through.
type LearningConfig struct {
	Enabled      bool          `yaml:"enabled"`
	Phase        string        `yaml:"phase"` // passive, active
	TokenBudget  int           `yaml:"token_budget"`
	BaselineRate float64       `yaml:"baseline_rate"`
	MinPulls     int           `yaml:"min_pulls"`
	LearnerName  string        `yaml:"learner_name"`
	Sidecar      SidecarConfig `yaml:"sidecar"`
}

// SidecarConfig selects and configures the transport the Sidecar
// Connection (C8) uses to reach qortex.
type SidecarConfig struct {
	Command   string     `yaml:"command"`
	Transport string     `yaml:"transport"` // stdio, http
	HTTP      HTTPConfig `yaml:"http"`
}

// HTTPConfig configures the HTTP variant of the sidecar transport.
type HTTPConfig struct {
	BaseURL string            `yaml:"base_url"`
	Headers map[string]string `yaml:"headers"`
}

// Configured reports whether a sidecar connection can be built from c.
func (c SidecarConfig) Configured() bool {
	switch c.Transport {
	case "stdio":
		return c.Command != ""
	case "http":
		return c.HTTP.BaseURL != ""
	default:
		return false
	}
}

// Load reads configuration from a YAML file, expands environment
// variables, applies defaults for any unset fields, and validates
// the result. After Load returns successfully, all fields are usable
// without additional nil/empty checks.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// Expand environment variables (e.g., ${QORTEX_API_KEY}). This is a
	// convenience for container deployments; the recommended approach
	// is to put values directly in the config file.
	expanded := os.ExpandEnv(string(data))

	cfg := &Config{}
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, err
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

// applyDefaults fills in zero-value fields with sensible defaults.
// Called automatically by Load. After this, callers can read any field
// without checking for empty strings or zero values.
func (c *Config) applyDefaults() {
	if c.DataDir == "" {
		c.DataDir = "./data"
	}
	c.DataDir = paths.ExpandHome(c.DataDir)

	if c.Extractor.MagicString == "" {
		c.Extractor.MagicString = "::publish"
	}
	if c.Extractor.DebounceMs == 0 {
		c.Extractor.DebounceMs = 2000
	}
	if c.Extractor.MaxBatchSize == 0 {
		c.Extractor.MaxBatchSize = 5
	}
	if c.Extractor.MinBatchDelayMs == 0 {
		c.Extractor.MinBatchDelayMs = 1000
	}

	if c.Digest.MinInsightsToFlush == 0 {
		c.Digest.MinInsightsToFlush = 3
	}
	if c.Digest.MaxHoursBetweenFlushes == 0 {
		c.Digest.MaxHoursBetweenFlushes = 4
	}
	if c.Digest.CheckIntervalMs == 0 {
		c.Digest.CheckIntervalMs = 60_000
	}
	if c.Digest.StorePath == "" {
		c.Digest.StorePath = paths.QueueFile(c.DataDir)
	} else {
		c.Digest.StorePath = paths.ExpandHome(c.Digest.StorePath)
	}

	if c.Learning.Enabled {
		if c.Learning.Phase == "" {
			c.Learning.Phase = "active"
		}
		if c.Learning.TokenBudget == 0 {
			c.Learning.TokenBudget = 2000
		}
		if c.Learning.MinPulls == 0 {
			c.Learning.MinPulls = 3
		}
		if c.Learning.LearnerName == "" {
			c.Learning.LearnerName = "default"
		}
		if c.Learning.Sidecar.Transport == "" {
			c.Learning.Sidecar.Transport = "stdio"
		}
		if c.Learning.Sidecar.Transport == "stdio" && c.Learning.Sidecar.Command == "" {
			c.Learning.Sidecar.Command = "qortex"
		}
	}
}

// Validate checks that the configuration is internally consistent.
// It runs after applyDefaults, so it can assume defaults are populated.
// Returns an error describing the first problem found, or nil.
func (c *Config) Validate() error {
	if c.LogLevel != "" {
		if _, err := ParseLogLevel(c.LogLevel); err != nil {
			return err
		}
	}

	if c.Extractor.MinContentLength < 0 {
		return fmt.Errorf("extractor.min_content_length must be non-negative, got %d", c.Extractor.MinContentLength)
	}
	if c.Extractor.MaxBatchSize < 1 {
		return fmt.Errorf("extractor.max_batch_size must be positive, got %d", c.Extractor.MaxBatchSize)
	}
	if c.Extractor.DebounceMs < 0 {
		return fmt.Errorf("extractor.debounce_ms must be non-negative, got %d", c.Extractor.DebounceMs)
	}
	if c.Extractor.MinBatchDelayMs < 0 {
		return fmt.Errorf("extractor.min_batch_delay_ms must be non-negative, got %d", c.Extractor.MinBatchDelayMs)
	}

	if c.Digest.MinInsightsToFlush < 1 {
		return fmt.Errorf("digest.min_insights_to_flush must be positive, got %d", c.Digest.MinInsightsToFlush)
	}
	if c.Digest.MaxHoursBetweenFlushes <= 0 {
		return fmt.Errorf("digest.max_hours_between_flushes must be positive, got %v", c.Digest.MaxHoursBetweenFlushes)
	}
	if c.Digest.CooldownHours < 0 {
		return fmt.Errorf("digest.cooldown_hours must be non-negative, got %v", c.Digest.CooldownHours)
	}
	if c.Digest.CheckIntervalMs < 1 {
		return fmt.Errorf("digest.check_interval_ms must be positive, got %d", c.Digest.CheckIntervalMs)
	}
	if err := validateClockString(c.Digest.QuietHoursStart, "digest.quiet_hours_start"); err != nil {
		return err
	}
	if err := validateClockString(c.Digest.QuietHoursEnd, "digest.quiet_hours_end"); err != nil {
		return err
	}

	if c.Learning.Enabled {
		if c.Learning.Phase != "passive" && c.Learning.Phase != "active" {
			return fmt.Errorf("learning.phase must be %q or %q, got %q", "passive", "active", c.Learning.Phase)
		}
		if c.Learning.TokenBudget < 1 {
			return fmt.Errorf("learning.token_budget must be positive, got %d", c.Learning.TokenBudget)
		}
		if c.Learning.BaselineRate < 0 || c.Learning.BaselineRate > 1 {
			return fmt.Errorf("learning.baseline_rate must be in [0,1], got %v", c.Learning.BaselineRate)
		}
		if c.Learning.MinPulls < 0 {
			return fmt.Errorf("learning.min_pulls must be non-negative, got %d", c.Learning.MinPulls)
		}
		if !c.Learning.Sidecar.Configured() {
			switch c.Learning.Sidecar.Transport {
			case "stdio":
				return fmt.Errorf("learning.sidecar.command is required for stdio transport")
			case "http":
				return fmt.Errorf("learning.sidecar.http.base_url is required for http transport")
			default:
				return fmt.Errorf("learning.sidecar.transport must be %q or %q, got %q", "stdio", "http", c.Learning.Sidecar.Transport)
			}
		}
	}

	return nil
}

// validateClockString checks that s, if non-empty, is an "HH:MM" string.
// An empty string means the quiet window is disabled and is always valid.
func validateClockString(s, field string) error {
	if s == "" {
		return nil
	}
	hh, mm, ok := strings.Cut(s, ":")
	if !ok {
		return fmt.Errorf("%s must be HH:MM, got %q", field, s)
	}
	h, err1 := parseTwoDigit(hh)
	m, err2 := parseTwoDigit(mm)
	if err1 != nil || err2 != nil || h < 0 || h > 23 || m < 0 || m > 59 {
		return fmt.Errorf("%s must be HH:MM, got %q", field, s)
	}
	return nil
}

func parseTwoDigit(s string) (int, error) {
	if s == "" {
		return 0, fmt.Errorf("empty")
	}
	n := 0
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, fmt.Errorf("not a digit: %q", r)
		}
		n = n*10 + int(r-'0')
	}
	return n, nil
}

// Default returns a default configuration with the learning layer
// disabled. All defaults are already applied.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

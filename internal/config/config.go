package config

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

// Config root configuration
type Config struct {
	Workspace WorkspaceConfig `mapstructure:"workspace"`
	Log       LogConfig       `mapstructure:"log"`
	Dispatch  DispatchConfig  `mapstructure:"dispatch"`
	Lock      LockConfig      `mapstructure:"lock"`
	Cache     CacheConfig     `mapstructure:"cache"`
}

// WorkspaceConfig controls where shared on-disk state lives
type WorkspaceConfig struct {
	Mode string `mapstructure:"mode"` // default | cwd | path
	Path string `mapstructure:"path"`
}

// LogConfig application logging settings
type LogConfig struct {
	Level string `mapstructure:"level"`
	File  string `mapstructure:"file"`
}

// DispatchConfig handler invocation settings
type DispatchConfig struct {
	// DefaultTimeoutMs bounds handlers without an explicit budget.
	DefaultTimeoutMs int `mapstructure:"default_timeout_ms"`
	// HandlerTimeoutsMs overrides the budget per handler name.
	HandlerTimeoutsMs map[string]int `mapstructure:"handler_timeouts_ms"`
	// DefaultPolicy maps a no-opinion decision per gating lifecycle
	// point to allow or deny. Allow when unset.
	DefaultPolicy map[string]string `mapstructure:"default_policy"`
}

// LockConfig lock manager settings
type LockConfig struct {
	StaleAfterMinutes int `mapstructure:"stale_after_minutes"`
	PollIntervalMs    int `mapstructure:"poll_interval_ms"`
}

// CacheConfig cache layer settings
type CacheConfig struct {
	DefaultTTLMinutes int `mapstructure:"default_ttl_minutes"`
}

// DefaultConfig returns config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Workspace: WorkspaceConfig{Mode: "default"},
		Log:       LogConfig{Level: "info"},
		Dispatch: DispatchConfig{
			DefaultTimeoutMs:  5000,
			HandlerTimeoutsMs: map[string]int{},
			DefaultPolicy:     map[string]string{},
		},
		Lock: LockConfig{
			StaleAfterMinutes: 10,
			PollIntervalMs:    100,
		},
		Cache: CacheConfig{DefaultTTLMinutes: 15},
	}
}

// ConfigDir returns the hookgate configuration directory
func ConfigDir() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		slog.Warn("failed to resolve home directory, using current directory as fallback", "error", err)
		homeDir = "."
	}
	return filepath.Join(homeDir, ".hookgate")
}

// ConfigPath returns the config file location
func ConfigPath() string {
	return filepath.Join(ConfigDir(), "config.json")
}

// Load loads config from file or returns defaults
func Load() (*Config, error) {
	cfg := DefaultConfig()

	configPath := ConfigPath()
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return cfg, nil
	}

	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("json")
	v.SetEnvPrefix("HOOKGATE")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return cfg, err
	}

	if err := v.Unmarshal(cfg, func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.MatchName = func(mapKey, fieldName string) bool {
			return normalizeKey(mapKey) == normalizeKey(fieldName)
		}
	}); err != nil {
		return cfg, err
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

func normalizeKey(input string) string {
	input = strings.ReplaceAll(input, "_", "")
	input = strings.ReplaceAll(input, "-", "")
	return strings.ToLower(input)
}

// Save saves config to file
func Save(cfg *Config) error {
	configPath := ConfigPath()

	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(configPath, data, 0600)
}

// Validate checks that the configuration values are within acceptable ranges.
func (c *Config) Validate() error {
	if c.Dispatch.DefaultTimeoutMs < 0 {
		return fmt.Errorf("dispatch.default_timeout_ms must not be negative, got %d", c.Dispatch.DefaultTimeoutMs)
	}
	if c.Dispatch.DefaultTimeoutMs == 0 {
		c.Dispatch.DefaultTimeoutMs = 5000
	}
	for name, budget := range c.Dispatch.HandlerTimeoutsMs {
		if budget <= 0 {
			return fmt.Errorf("dispatch.handler_timeouts_ms[%s] must be > 0, got %d", name, budget)
		}
	}
	for point, policy := range c.Dispatch.DefaultPolicy {
		normalized := strings.ToLower(strings.TrimSpace(policy))
		if normalized != "allow" && normalized != "deny" {
			return fmt.Errorf("dispatch.default_policy[%s] must be allow or deny, got %q", point, policy)
		}
		c.Dispatch.DefaultPolicy[point] = normalized
	}

	if c.Lock.StaleAfterMinutes < 0 {
		return fmt.Errorf("lock.stale_after_minutes must not be negative, got %d", c.Lock.StaleAfterMinutes)
	}
	if c.Lock.StaleAfterMinutes == 0 {
		c.Lock.StaleAfterMinutes = 10
	}
	if c.Lock.PollIntervalMs < 0 {
		return fmt.Errorf("lock.poll_interval_ms must not be negative, got %d", c.Lock.PollIntervalMs)
	}
	if c.Lock.PollIntervalMs == 0 {
		c.Lock.PollIntervalMs = 100
	}

	if c.Cache.DefaultTTLMinutes < 0 {
		return fmt.Errorf("cache.default_ttl_minutes must not be negative, got %d", c.Cache.DefaultTTLMinutes)
	}
	if c.Cache.DefaultTTLMinutes == 0 {
		c.Cache.DefaultTTLMinutes = 15
	}

	level := strings.ToLower(strings.TrimSpace(c.Log.Level))
	if level == "" {
		c.Log.Level = "info"
	} else {
		validLevels := map[string]bool{
			"debug": true,
			"info":  true,
			"warn":  true,
			"error": true,
		}
		if !validLevels[level] {
			return fmt.Errorf("log.level must be one of debug, info, warn, error; got %q", c.Log.Level)
		}
		c.Log.Level = level
	}

	mode := strings.TrimSpace(c.Workspace.Mode)
	if mode != "" {
		validModes := map[string]bool{"default": true, "cwd": true, "path": true}
		if !validModes[strings.ToLower(mode)] {
			return fmt.Errorf("workspace.mode must be one of: default, cwd, path; got %q", mode)
		}
		if strings.EqualFold(mode, "path") && strings.TrimSpace(c.Workspace.Path) == "" {
			return fmt.Errorf("workspace.path must be non-empty when workspace.mode is \"path\"")
		}
	}

	return nil
}

// DefaultTimeout returns the per-handler budget as a duration.
func (c *Config) DefaultTimeout() time.Duration {
	return time.Duration(c.Dispatch.DefaultTimeoutMs) * time.Millisecond
}

// HandlerTimeouts returns per-handler budget overrides as durations.
func (c *Config) HandlerTimeouts() map[string]time.Duration {
	timeouts := make(map[string]time.Duration, len(c.Dispatch.HandlerTimeoutsMs))
	for name, budget := range c.Dispatch.HandlerTimeoutsMs {
		timeouts[strings.TrimSpace(name)] = time.Duration(budget) * time.Millisecond
	}
	return timeouts
}

// DefaultPolicyFor maps a no-opinion decision at a lifecycle point to
// its configured default, allow unless overridden.
func (c *Config) DefaultPolicyFor(point string) string {
	if policy, ok := c.Dispatch.DefaultPolicy[point]; ok {
		return policy
	}
	return "allow"
}

// WorkspacePath returns the expanded workspace path
func (c *Config) WorkspacePath() string {
	path, err := c.WorkspacePathChecked()
	if err != nil {
		return filepath.Join(ConfigDir(), "workspace")
	}
	return path
}

// WorkspacePathChecked returns the expanded workspace path or an error if invalid.
func (c *Config) WorkspacePathChecked() (string, error) {
	mode := strings.TrimSpace(c.Workspace.Mode)
	if mode == "" || strings.EqualFold(mode, "default") {
		return filepath.Join(ConfigDir(), "workspace"), nil
	}
	if strings.EqualFold(mode, "cwd") {
		wd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("failed to resolve cwd: %w", err)
		}
		return filepath.Join(wd, ".hookgate"), nil
	}
	if !strings.EqualFold(mode, "path") {
		return "", fmt.Errorf("unknown workspace mode: %s", mode)
	}
	if c.Workspace.Path == "" {
		return "", fmt.Errorf("workspace.path is required when workspace.mode=path")
	}
	if c.Workspace.Path[0] == '~' {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to resolve home directory for workspace path: %w", err)
		}
		rest := c.Workspace.Path[1:]
		rest = strings.TrimPrefix(rest, string(filepath.Separator))
		rest = strings.TrimPrefix(rest, "/")
		return filepath.Join(homeDir, rest), nil
	}
	return c.Workspace.Path, nil
}

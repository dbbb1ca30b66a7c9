// Package stray: configuration loading.
package stray

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config holds the tunables an Engine needs that are not protocol
// constants: buffer sizes, recursion limits, and logging verbosity.
// Everything has a sane default, so a zero Config is usable as-is.
type Config struct {
	// BroadcastCapacity is the per-host channel buffer size (bus.go). 0
	// means defaultBroadcastCapacity.
	BroadcastCapacity int `yaml:"broadcast_capacity"`

	// MenuRecursionDepth caps how deep GetLayout descends per item. 0
	// means maxMenuRecursionDepth.
	MenuRecursionDepth int32 `yaml:"menu_recursion_depth"`

	// LogLevel is one of "debug", "info", "warn", "error". Empty means
	// "info".
	LogLevel string `yaml:"log_level"`
}

// applyDefaults fills in zero-valued fields, matching
// cpuguy83-calbar/internal/config's pattern of applying defaults after an
// optional YAML file is loaded (the teacher package has no config of its
// own to draw on here).
func (c *Config) applyDefaults() {
	if c.BroadcastCapacity == 0 {
		c.BroadcastCapacity = defaultBroadcastCapacity
	}
	if c.MenuRecursionDepth == 0 {
		c.MenuRecursionDepth = maxMenuRecursionDepth
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
}

// LoadConfig reads a YAML config file from path. A missing file is not an
// error: Config{} with defaults applied is returned instead, since every
// field here is optional.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg := &Config{}
			cfg.applyDefaults()
			return cfg, nil
		}
		return nil, fmt.Errorf("stray: read config file %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("stray: parse config file %s: %w", path, err)
	}

	cfg.applyDefaults()
	return &cfg, nil
}

// DefaultConfigPath returns ~/.config/straywatch/config.yaml, following the
// os.UserConfigDir convention cpuguy83-calbar/internal/config uses for its
// own config file (the teacher package has no config file of its own).
func DefaultConfigPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("stray: get config dir: %w", err)
	}
	return filepath.Join(dir, "straywatch", "config.yaml"), nil
}

// Level converts the config's LogLevel string field into a slog.Level,
// falling back to LevelInfo for an unrecognized value.
func (c Config) Level() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

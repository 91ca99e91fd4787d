// Package config loads canvas settings from TOML or YAML files and the
// environment.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "FLOWCANVAS_"

// Config holds flowcanvas configuration.
type Config struct {
	Canvas     CanvasConfig     `toml:"canvas" yaml:"canvas"`
	Navigation NavigationConfig `toml:"navigation" yaml:"navigation"`
	Log        LogConfig        `toml:"log" yaml:"log"`
}

// CanvasConfig controls dragging.
type CanvasConfig struct {
	GridSize      float64  `toml:"grid_size" yaml:"grid_size"`
	SettleDelay   Duration `toml:"settle_delay" yaml:"settle_delay"`
	FrameInterval Duration `toml:"frame_interval" yaml:"frame_interval"`
	// EdgeOffset is the distance from a rectangle's edge that still counts
	// as on the edge.
	EdgeOffset float64 `toml:"edge_offset" yaml:"edge_offset"`
}

// NavigationConfig controls the spatial navigation worker.
type NavigationConfig struct {
	Neighbors int `toml:"neighbors" yaml:"neighbors"`
	QueueSize int `toml:"queue_size" yaml:"queue_size"`
}

// LogConfig controls diagnostics.
type LogConfig struct {
	Debug bool `toml:"debug" yaml:"debug"`
}

// Duration is a time.Duration written as a string such as "1s" or "16ms".
type Duration struct {
	time.Duration
}

// UnmarshalText parses a duration string.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", text, err)
	}
	d.Duration = v
	return nil
}

// MarshalText renders the duration string.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// UnmarshalYAML parses a duration scalar.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	return d.UnmarshalText([]byte(node.Value))
}

// MarshalYAML renders the duration string.
func (d Duration) MarshalYAML() (any, error) {
	return d.Duration.String(), nil
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Canvas: CanvasConfig{
			GridSize:      20,
			SettleDelay:   Duration{time.Second},
			FrameInterval: Duration{time.Second / 60},
			EdgeOffset:    8,
		},
		Navigation: NavigationConfig{Neighbors: 5, QueueSize: 16},
	}
}

// Load reads path over the defaults. The format follows the extension:
// .toml, or .yaml/.yml.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
	default:
		return nil, fmt.Errorf("unsupported config format %q", filepath.Ext(path))
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes cfg to path in the format its extension names.
func Save(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		return toml.NewEncoder(f).Encode(cfg)
	case ".yaml", ".yml":
		enc := yaml.NewEncoder(f)
		defer enc.Close()
		return enc.Encode(cfg)
	}
	return fmt.Errorf("unsupported config format %q", filepath.Ext(path))
}

// Validate rejects values the canvas cannot run with.
func (c *Config) Validate() error {
	if c.Canvas.GridSize < 1 {
		return fmt.Errorf("canvas.grid_size must be at least 1, got %v", c.Canvas.GridSize)
	}
	if c.Canvas.SettleDelay.Duration < 0 {
		return fmt.Errorf("canvas.settle_delay must not be negative")
	}
	if c.Canvas.FrameInterval.Duration <= 0 {
		return fmt.Errorf("canvas.frame_interval must be positive")
	}
	if c.Navigation.Neighbors < 1 {
		return fmt.Errorf("navigation.neighbors must be at least 1, got %d", c.Navigation.Neighbors)
	}
	return nil
}

// ApplyEnv loads the given .env files (missing files are skipped) and then
// applies FLOWCANVAS_* variables from the process environment. Variables
// already set in the environment win over .env values.
func (c *Config) ApplyEnv(files ...string) error {
	var existing []string
	for _, f := range files {
		if _, err := os.Stat(f); err == nil {
			existing = append(existing, f)
		}
	}
	if len(existing) > 0 {
		if err := godotenv.Load(existing...); err != nil {
			return fmt.Errorf("loading env files: %w", err)
		}
	}

	for key, apply := range c.envSetters() {
		v, ok := os.LookupEnv(EnvPrefix + key)
		if !ok {
			continue
		}
		if err := apply(v); err != nil {
			return fmt.Errorf("%s%s: %w", EnvPrefix, key, err)
		}
	}
	return c.Validate()
}

func (c *Config) envSetters() map[string]func(string) error {
	float := func(dst *float64) func(string) error {
		return func(s string) error {
			v, err := strconv.ParseFloat(s, 64)
			if err != nil {
				return err
			}
			*dst = v
			return nil
		}
	}
	integer := func(dst *int) func(string) error {
		return func(s string) error {
			v, err := strconv.Atoi(s)
			if err != nil {
				return err
			}
			*dst = v
			return nil
		}
	}
	return map[string]func(string) error{
		"GRID_SIZE":      float(&c.Canvas.GridSize),
		"EDGE_OFFSET":    float(&c.Canvas.EdgeOffset),
		"SETTLE_DELAY":   func(s string) error { return c.Canvas.SettleDelay.UnmarshalText([]byte(s)) },
		"FRAME_INTERVAL": func(s string) error { return c.Canvas.FrameInterval.UnmarshalText([]byte(s)) },
		"NEIGHBORS":      integer(&c.Navigation.Neighbors),
		"QUEUE_SIZE":     integer(&c.Navigation.QueueSize),
		"DEBUG": func(s string) error {
			v, err := strconv.ParseBool(s)
			if err != nil {
				return err
			}
			c.Log.Debug = v
			return nil
		},
	}
}

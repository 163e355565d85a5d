package config

import (
	"fmt"
	"net"
	"time"

	"github.com/adrg/xdg"

	"github.com/fastkill/fastkill/internal/procs"
)

// minRefreshInterval is the floor for the refresh ticker; anything faster
// just burns CPU walking /proc.
const minRefreshInterval = 250 * time.Millisecond

// Duration wraps time.Duration for YAML unmarshalling.
type Duration struct {
	time.Duration
	explicit bool
}

// UnmarshalText parses a textual duration, accepting empty strings.
func (d *Duration) UnmarshalText(text []byte) error {
	d.explicit = true
	if len(text) == 0 {
		d.Duration = 0
		return nil
	}
	dur, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", string(text), err)
	}
	d.Duration = dur
	return nil
}

// MarshalText renders the duration using time.Duration formatting.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// IsSet reports whether the duration was explicitly provided or non-zero.
func (d Duration) IsSet() bool {
	return d.explicit || d.Duration != 0
}

// Config mirrors the config.yaml document structure.
type Config struct {
	Refresh    RefreshConfig    `yaml:"refresh"`
	Sort       string           `yaml:"sort"`
	Exclude    ExcludeConfig    `yaml:"exclude"`
	Protected  []string         `yaml:"protected"`
	Containers ContainersConfig `yaml:"containers"`
	API        APIConfig        `yaml:"api"`
	Log        LogConfig        `yaml:"log"`

	protected map[string]struct{}
}

// RefreshConfig controls the snapshot ticker.
type RefreshConfig struct {
	Interval Duration `yaml:"interval"`
}

// ExcludeConfig overrides the built-in process exclusion lists. Names and
// Prefixes replace the defaults when present; Extra always appends.
type ExcludeConfig struct {
	Names    []string `yaml:"names"`
	Prefixes []string `yaml:"prefixes"`
	Extra    []string `yaml:"extra"`
}

// ContainersConfig controls Docker container annotation.
type ContainersConfig struct {
	Annotate *bool `yaml:"annotate"`
}

// APIConfig controls the read-only HTTP API exposed by serve mode.
type APIConfig struct {
	Addr string `yaml:"addr"`
}

// LogConfig controls diagnostic logging.
type LogConfig struct {
	Level string `yaml:"level"`
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	cfg := &Config{}
	if err := cfg.ApplyDefaults(); err != nil {
		panic(err)
	}
	return cfg
}

// DefaultPath returns the standard config file location.
func DefaultPath() string {
	path, err := xdg.ConfigFile("fastkill/config.yaml")
	if err != nil {
		return "config.yaml"
	}
	return path
}

// ApplyDefaults fills unset fields with their defaults.
func (c *Config) ApplyDefaults() error {
	if !c.Refresh.Interval.IsSet() {
		c.Refresh.Interval.Duration = 2 * time.Second
	}
	if c.Sort == "" {
		c.Sort = string(procs.SortRSS)
	}
	if c.Containers.Annotate == nil {
		annotate := true
		c.Containers.Annotate = &annotate
	}
	if c.API.Addr == "" {
		c.API.Addr = "127.0.0.1:7901"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	c.protected = make(map[string]struct{}, len(c.Protected))
	for _, name := range c.Protected {
		c.protected[name] = struct{}{}
	}
	return nil
}

// Validate checks semantic constraints after defaults were applied.
func (c *Config) Validate() error {
	if c.Refresh.Interval.Duration < minRefreshInterval {
		return fmt.Errorf("refresh.interval: %s is below the minimum of %s", c.Refresh.Interval.Duration, minRefreshInterval)
	}
	if _, err := procs.ParseSortMode(c.Sort); err != nil {
		return fmt.Errorf("sort: %w", err)
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level: unknown level %q (expected debug, info, warn or error)", c.Log.Level)
	}
	if _, _, err := net.SplitHostPort(c.API.Addr); err != nil {
		return fmt.Errorf("api.addr: invalid listen address %q: %w", c.API.Addr, err)
	}
	return nil
}

// SortMode returns the validated snapshot sort mode.
func (c *Config) SortMode() procs.SortMode {
	mode, err := procs.ParseSortMode(c.Sort)
	if err != nil {
		return procs.SortRSS
	}
	return mode
}

// FilterOptions translates the exclusion settings for the snapshot provider.
func (c *Config) FilterOptions() procs.FilterOptions {
	return procs.FilterOptions{
		Names:    c.Exclude.Names,
		Prefixes: c.Exclude.Prefixes,
		Extra:    c.Exclude.Extra,
	}
}

// IsProtected reports whether a process name must never be signalled.
func (c *Config) IsProtected(name string) bool {
	if c.protected == nil {
		return false
	}
	_, ok := c.protected[name]
	return ok
}

// AnnotateContainers reports whether Docker annotation is enabled.
func (c *Config) AnnotateContainers() bool {
	return c.Containers.Annotate == nil || *c.Containers.Annotate
}

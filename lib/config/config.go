// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"

	"github.com/bureau-foundation/areasearch/lib/areasearch"
	"github.com/bureau-foundation/areasearch/lib/namecache"
)

// EnvVar names the environment variable [Load] reads.
const EnvVar = "AREASEARCH_CONFIG"

// Environment represents the deployment environment.
type Environment string

const (
	// Development is for local runs against a simulator.
	Development Environment = "development"
	// Production is for runs against a real grid.
	Production Environment = "production"
)

// Config is the master configuration.
type Config struct {
	// Environment selects which override section applies.
	Environment Environment `yaml:"environment"`

	// Paths configures on-disk state.
	Paths PathsConfig `yaml:"paths"`

	// Search configures the discovery engine's pacing and limits.
	Search SearchConfig `yaml:"search"`

	// Filters holds the filters in effect at startup.
	Filters areasearch.Filters `yaml:"filters"`

	// Grid configures the region connection.
	Grid GridConfig `yaml:"grid"`

	// Names configures the name cache.
	Names NamesConfig `yaml:"names"`

	// Log configures logging.
	Log LogConfig `yaml:"log"`

	Development *Overrides `yaml:"development,omitempty"`
	Production  *Overrides `yaml:"production,omitempty"`
}

// PathsConfig configures directory and database locations.
type PathsConfig struct {
	// State is the directory holding the databases below.
	State string `yaml:"state"`
	// NameCache is the SQLite database for resolved names.
	NameCache string `yaml:"name_cache"`
	// BlockList is the SQLite database for blocked owners.
	BlockList string `yaml:"block_list"`
}

// SearchConfig configures the discovery engine.
type SearchConfig struct {
	// TickInterval is how often the loop drives the engine.
	TickInterval string `yaml:"tick_interval"`
	// ScanInterval is the minimum time between sweeps.
	ScanInterval string `yaml:"scan_interval"`
	// RefreshInterval replaces ScanInterval while a refresh is pending.
	RefreshInterval string `yaml:"refresh_interval"`
	// ReplyTimeout is how long outstanding requests may go without a
	// reply before they are requeued.
	ReplyTimeout string `yaml:"reply_timeout"`
	// Limits caps batch sizes and in-flight requests.
	Limits areasearch.Limits `yaml:"limits"`
}

// GridConfig configures the connection to a region server.
type GridConfig struct {
	// Address is a TCP host:port, "unix:path", or an absolute socket path.
	Address string `yaml:"address"`
	// AgentName is the name presented at login.
	AgentName string `yaml:"agent_name"`
}

// NamesConfig configures the name cache.
type NamesConfig struct {
	// RetryInterval is how often unanswered lookups are re-sent.
	RetryInterval string `yaml:"retry_interval"`
	// MaxAttempts is how many times a lookup is sent before giving up.
	MaxAttempts int `yaml:"max_attempts"`
	// MaxAge expires cached names older than this at startup.
	MaxAge string `yaml:"max_age"`
}

// LogConfig configures logging.
type LogConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `yaml:"level"`
}

// Overrides holds per-environment values. Nil and empty fields leave
// the base value in place.
type Overrides struct {
	Search *SearchOverrides `yaml:"search,omitempty"`
	Grid   *GridOverrides   `yaml:"grid,omitempty"`
	Log    *LogOverrides    `yaml:"log,omitempty"`
}

// SearchOverrides overrides [SearchConfig] fields.
type SearchOverrides struct {
	ScanInterval *string `yaml:"scan_interval,omitempty"`
	ReplyTimeout *string `yaml:"reply_timeout,omitempty"`
}

// GridOverrides overrides [GridConfig] fields.
type GridOverrides struct {
	Address *string `yaml:"address,omitempty"`
}

// LogOverrides overrides [LogConfig] fields.
type LogOverrides struct {
	Level *string `yaml:"level,omitempty"`
}

// Default returns a Config with development defaults.
func Default() *Config {
	limits := areasearch.DefaultLimits()
	return &Config{
		Environment: Development,
		Paths: PathsConfig{
			State:     "${HOME}/.local/state/areasearch",
			NameCache: "${AREASEARCH_STATE}/names.db",
			BlockList: "${AREASEARCH_STATE}/blocked.db",
		},
		Search: SearchConfig{
			TickInterval:    (100 * time.Millisecond).String(),
			ScanInterval:    areasearch.DefaultScanInterval.String(),
			RefreshInterval: areasearch.DefaultRefreshInterval.String(),
			ReplyTimeout:    areasearch.DefaultReplyTimeout.String(),
			Limits:          limits,
		},
		Filters: areasearch.DefaultFilters(),
		Grid: GridConfig{
			Address:   "127.0.0.1:13000",
			AgentName: "Area Searcher",
		},
		Names: NamesConfig{
			RetryInterval: namecache.DefaultRetryInterval.String(),
			MaxAttempts:   namecache.DefaultMaxAttempts,
			MaxAge:        namecache.DefaultMaxAge.String(),
		},
		Log: LogConfig{Level: "debug"},
	}
}

// Load loads configuration from the file named by AREASEARCH_CONFIG.
func Load() (*Config, error) {
	configPath := os.Getenv(EnvVar)
	if configPath == "" {
		return nil, fmt.Errorf("%s environment variable not set; "+
			"set it to the path of your areasearch.yaml, or use --config", EnvVar)
	}
	return LoadFile(configPath)
}

// LoadFile loads configuration from path on top of [Default].
func LoadFile(path string) (*Config, error) {
	cfg := Default()
	if err := cfg.loadFile(path); err != nil {
		return nil, err
	}
	cfg.applyEnvironmentOverrides()
	cfg.expandVariables()
	return cfg, nil
}

// Resolve loads path when it is set, then the file named by
// AREASEARCH_CONFIG when that is set, and otherwise returns the
// defaults with variables expanded.
func Resolve(path string) (*Config, error) {
	if path != "" {
		return LoadFile(path)
	}
	if os.Getenv(EnvVar) != "" {
		return Load()
	}
	cfg := Default()
	cfg.applyEnvironmentOverrides()
	cfg.expandVariables()
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config %s: %w", path, err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".jsonc":
		data = jsonc.ToJSON(data)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parsing config %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnvironmentOverrides() {
	var overrides *Overrides
	switch c.Environment {
	case Development:
		overrides = c.Development
	case Production:
		// Production is quieter and more patient unless the file says
		// otherwise.
		if c.Log.Level == "debug" {
			c.Log.Level = "info"
		}
		overrides = c.Production
	}
	if overrides == nil {
		return
	}

	if s := overrides.Search; s != nil {
		if s.ScanInterval != nil {
			c.Search.ScanInterval = *s.ScanInterval
		}
		if s.ReplyTimeout != nil {
			c.Search.ReplyTimeout = *s.ReplyTimeout
		}
	}
	if g := overrides.Grid; g != nil && g.Address != nil {
		c.Grid.Address = *g.Address
	}
	if l := overrides.Log; l != nil && l.Level != nil {
		c.Log.Level = *l.Level
	}
}

func (c *Config) expandVariables() {
	vars := map[string]string{
		"HOME": os.Getenv("HOME"),
	}
	c.Paths.State = expandVars(c.Paths.State, vars)
	vars["AREASEARCH_STATE"] = c.Paths.State

	c.Paths.NameCache = expandVars(c.Paths.NameCache, vars)
	c.Paths.BlockList = expandVars(c.Paths.BlockList, vars)
	c.Grid.Address = expandVars(c.Grid.Address, vars)
}

// varPattern matches ${VAR} and ${VAR:-default}.
var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

func expandVars(s string, vars map[string]string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}
		name := parts[1]
		defaultValue := ""
		if len(parts) >= 3 {
			defaultValue = parts[2]
		}
		if value, ok := vars[name]; ok && value != "" {
			return value
		}
		if value := os.Getenv(name); value != "" {
			return value
		}
		return defaultValue
	})
}

// Validate reports every invalid field.
func (c *Config) Validate() error {
	var errs []error

	if c.Environment != Development && c.Environment != Production {
		errs = append(errs, fmt.Errorf("environment must be %q or %q, got %q", Development, Production, c.Environment))
	}
	if c.Paths.NameCache == "" {
		errs = append(errs, errors.New("paths.name_cache is required"))
	}
	if c.Paths.BlockList == "" {
		errs = append(errs, errors.New("paths.block_list is required"))
	}
	if c.Grid.Address == "" {
		errs = append(errs, errors.New("grid.address is required"))
	}

	durations := []struct {
		field, value string
	}{
		{"search.tick_interval", c.Search.TickInterval},
		{"search.scan_interval", c.Search.ScanInterval},
		{"search.refresh_interval", c.Search.RefreshInterval},
		{"search.reply_timeout", c.Search.ReplyTimeout},
		{"names.retry_interval", c.Names.RetryInterval},
		{"names.max_age", c.Names.MaxAge},
	}
	for _, d := range durations {
		if _, err := positiveDuration(d.field, d.value); err != nil {
			errs = append(errs, err)
		}
	}

	if err := c.Search.Limits.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("search.limits: %w", err))
	}
	if c.Names.MaxAttempts <= 0 {
		errs = append(errs, fmt.Errorf("names.max_attempts must be positive, got %d", c.Names.MaxAttempts))
	}
	if _, err := ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, err)
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// EnsurePaths creates the state directory and the parents of both
// databases.
func (c *Config) EnsurePaths() error {
	dirs := []string{
		c.Paths.State,
		filepath.Dir(c.Paths.NameCache),
		filepath.Dir(c.Paths.BlockList),
	}
	for _, dir := range dirs {
		if dir == "" || dir == "." {
			continue
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("creating %s: %w", dir, err)
		}
	}
	return nil
}

// Tick returns the parsed tick interval.
func (s SearchConfig) Tick() time.Duration { return mustDuration(s.TickInterval) }

// Scan returns the parsed scan interval.
func (s SearchConfig) Scan() time.Duration { return mustDuration(s.ScanInterval) }

// Refresh returns the parsed refresh interval.
func (s SearchConfig) Refresh() time.Duration { return mustDuration(s.RefreshInterval) }

// Timeout returns the parsed reply timeout.
func (s SearchConfig) Timeout() time.Duration { return mustDuration(s.ReplyTimeout) }

// Retry returns the parsed retry interval.
func (n NamesConfig) Retry() time.Duration { return mustDuration(n.RetryInterval) }

// Age returns the parsed maximum cache age.
func (n NamesConfig) Age() time.Duration { return mustDuration(n.MaxAge) }

// ParseLevel maps a level name to its slog level.
func ParseLevel(name string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(name)); err != nil {
		return 0, fmt.Errorf("log.level: %w", err)
	}
	return level, nil
}

func positiveDuration(field, value string) (time.Duration, error) {
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", field, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s must be positive, got %s", field, value)
	}
	return d, nil
}

// mustDuration returns zero for unparseable values; callers run
// Validate first, and a zero duration takes the engine's default.
func mustDuration(value string) time.Duration {
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0
	}
	return d
}

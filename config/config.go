// Package config loads and saves the user configuration file.
//
// The file is YAML and decoded strictly: unknown keys are errors. A missing
// file yields the embedded defaults. Blacklists from the defaults are merged
// additively into the user's backend entries on every load.
package config

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"

	"github.com/vovanmozg/coge/bandit"
)

//go:embed defaults.yaml
var defaultsYAML []byte

const (
	// FileName is the configuration file inside Dir.
	FileName = "config.yaml"

	// DefaultMaxParticipants caps the backends entered into one race.
	DefaultMaxParticipants = 3

	// DefaultStragglerTimeout bounds how long losing calls keep running.
	DefaultStragglerTimeout = 30 * time.Second
)

// Store kinds.
const (
	StoreFile  = "file"
	StoreRedis = "redis"
)

// ValidStoreKinds is the set of recognized store kinds. Empty means file.
var ValidStoreKinds = map[string]bool{"": true, StoreFile: true, StoreRedis: true}

// Config is the user configuration.
type Config struct {
	Backend  string                    `yaml:"backend"`
	Model    string                    `yaml:"model,omitempty"`
	Strategy bandit.Strategy           `yaml:"strategy,omitempty"`
	Backends map[string]*BackendConfig `yaml:"backends,omitempty"`
	Race     RaceConfig                `yaml:"race"`
	Store    StoreConfig               `yaml:"store"`
}

// BackendConfig holds per-backend model settings.
type BackendConfig struct {
	Default   string   `yaml:"default,omitempty"`
	Available []string `yaml:"available,omitempty,flow"`
	Blacklist []string `yaml:"blacklist,omitempty,flow"`
}

// RaceConfig tunes the race coordinator. Nil pointer fields mean "not set".
type RaceConfig struct {
	MaxParticipants  int            `yaml:"max_participants,omitempty"`
	StragglerTimeout *time.Duration `yaml:"straggler_timeout,omitempty"`
}

// StoreConfig selects where learned state and usage stats live.
type StoreConfig struct {
	Kind          string `yaml:"kind,omitempty"`
	RedisAddr     string `yaml:"redis_addr,omitempty"`
	RedisPassword string `yaml:"redis_password,omitempty"`
	RedisDB       int    `yaml:"redis_db,omitempty"`
}

// Default returns the embedded default configuration.
func Default() *Config {
	cfg, err := decode(defaultsYAML)
	if err != nil {
		panic(fmt.Sprintf("embedded defaults.yaml is invalid: %v", err))
	}
	return cfg
}

// DefaultYAML returns the embedded default configuration file.
func DefaultYAML() []byte {
	return slices.Clone(defaultsYAML)
}

func decode(data []byte) (*Config, error) {
	var cfg Config
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil {
		// A document with no content decodes to io.EOF.
		if errors.Is(err, io.EOF) {
			return &cfg, nil
		}
		return nil, err
	}
	return &cfg, nil
}

// Load reads the configuration at path. A missing file yields Default().
func Load(fs afero.Fs, path string) (*Config, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}
	cfg, err := decode(data)
	if err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	cfg.MergeDefaultBlacklists(Default())
	return cfg, nil
}

// Validate checks names and ranges.
func (c *Config) Validate() error {
	if !bandit.ValidStrategies[c.Strategy] {
		return fmt.Errorf("unknown strategy %q; valid: auto, manual", c.Strategy)
	}
	if !ValidStoreKinds[c.Store.Kind] {
		return fmt.Errorf("unknown store kind %q; valid: file, redis", c.Store.Kind)
	}
	if c.Store.Kind == StoreRedis && c.Store.RedisAddr == "" {
		return fmt.Errorf("store.redis_addr is required for the redis store")
	}
	if c.Store.RedisDB < 0 {
		return fmt.Errorf("store.redis_db must be >= 0, got %d", c.Store.RedisDB)
	}
	if c.Race.MaxParticipants < 0 {
		return fmt.Errorf("race.max_participants must be >= 0, got %d", c.Race.MaxParticipants)
	}
	if c.Race.StragglerTimeout != nil && *c.Race.StragglerTimeout < 0 {
		return fmt.Errorf("race.straggler_timeout must be >= 0, got %v", *c.Race.StragglerTimeout)
	}
	if c.Strategy == bandit.StrategyManual && c.Backend == "" {
		return fmt.Errorf("manual strategy requires a backend")
	}
	return nil
}

// MergeDefaultBlacklists adds every default blacklist entry to the matching
// user backend entry. Backends the user has no entry for are left alone.
func (c *Config) MergeDefaultBlacklists(defaults *Config) {
	for name, def := range defaults.Backends {
		if def == nil || len(def.Blacklist) == 0 {
			continue
		}
		entry := c.Backends[name]
		if entry == nil {
			continue
		}
		for _, model := range def.Blacklist {
			if !slices.Contains(entry.Blacklist, model) {
				entry.Blacklist = append(entry.Blacklist, model)
			}
		}
	}
}

// MaxParticipants returns race.max_participants, or the default when unset.
func (c *Config) MaxParticipants() int {
	if c.Race.MaxParticipants == 0 {
		return DefaultMaxParticipants
	}
	return c.Race.MaxParticipants
}

// StragglerTimeout returns race.straggler_timeout, or the default when unset.
// Zero means losing calls are never cut off.
func (c *Config) StragglerTimeout() time.Duration {
	if c.Race.StragglerTimeout == nil {
		return DefaultStragglerTimeout
	}
	return *c.Race.StragglerTimeout
}

// SelectionStrategy implements bandit.Settings. Unset means auto.
func (c *Config) SelectionStrategy() bandit.Strategy {
	if c.Strategy == "" {
		return bandit.StrategyAuto
	}
	return c.Strategy
}

// PreferredBackend implements bandit.Settings.
func (c *Config) PreferredBackend() string {
	return c.Backend
}

// DefaultModel implements bandit.Settings: the backend entry's default, or
// "" so the built-in default applies. The global model never takes part;
// configure mirrors it into the preferred backend's entry.
func (c *Config) DefaultModel(backend string) string {
	if e := c.Backends[backend]; e != nil {
		return e.Default
	}
	return ""
}

// IsBlacklisted reports whether model is blacklisted for backend.
func (c *Config) IsBlacklisted(backend, model string) bool {
	e := c.Backends[backend]
	return e != nil && slices.Contains(e.Blacklist, model)
}

// AddBlacklist appends model to backend's blacklist, creating the entry when
// missing. It reports whether anything changed.
func (c *Config) AddBlacklist(backend, model string) bool {
	if c.IsBlacklisted(backend, model) {
		return false
	}
	e := c.entry(backend)
	e.Blacklist = append(e.Blacklist, model)
	return true
}

// SetAvailable replaces the models offered for backend. It reports whether
// the list changed.
func (c *Config) SetAvailable(backend string, models []string) bool {
	if e := c.Backends[backend]; e != nil && slices.Equal(e.Available, models) {
		return false
	}
	c.entry(backend).Available = slices.Clone(models)
	return true
}

// SetDefault makes model the default of backend and records it as the
// global model.
func (c *Config) SetDefault(backend, model string) {
	c.entry(backend).Default = model
	c.Model = model
}

func (c *Config) entry(backend string) *BackendConfig {
	if c.Backends == nil {
		c.Backends = make(map[string]*BackendConfig)
	}
	e := c.Backends[backend]
	if e == nil {
		e = &BackendConfig{}
		c.Backends[backend] = e
	}
	return e
}

// Dir returns the per-user configuration directory: %APPDATA%\coge on
// Windows, otherwise $XDG_CONFIG_HOME/coge falling back to ~/.config/coge.
func Dir(getenv func(string) string, goos, home string) string {
	if goos == "windows" {
		base := getenv("APPDATA")
		if base == "" {
			base = filepath.Join(home, "AppData", "Roaming")
		}
		return filepath.Join(base, "coge")
	}
	base := getenv("XDG_CONFIG_HOME")
	if base == "" {
		base = filepath.Join(home, ".config")
	}
	return filepath.Join(base, "coge")
}

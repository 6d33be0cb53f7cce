package config

import (
	"github.com/mamaar/constprop/pkg/analysis"
	"github.com/mamaar/constprop/pkg/inspection"
	"github.com/mamaar/constprop/pkg/refactor"
	"github.com/mamaar/constprop/pkg/types"
)

// Config represents the complete constprop configuration.
// It can be loaded from .constprop/config.yml with environment variable overrides.
type Config struct {
	Auto   AutoConfig   `yaml:"auto" mapstructure:"auto"`
	Paths  PathsConfig  `yaml:"paths" mapstructure:"paths"`
	Naming NamingConfig `yaml:"naming" mapstructure:"naming"`
	Log    LogConfig    `yaml:"log" mapstructure:"log"`
	Backup bool         `yaml:"backup" mapstructure:"backup"` // journal transactions for undo
}

// AutoConfig controls automatic extraction on detection.
type AutoConfig struct {
	Enabled bool   `yaml:"enabled" mapstructure:"enabled"`
	Fix     bool   `yaml:"fix" mapstructure:"fix"`
	Scope   string `yaml:"scope" mapstructure:"scope"` // "class", "hierarchy" or "package"
}

// PathsConfig defines which files are parsed and which may be written.
type PathsConfig struct {
	Include  []string `yaml:"include" mapstructure:"include"`
	Ignore   []string `yaml:"ignore" mapstructure:"ignore"`
	ReadOnly []string `yaml:"readonly" mapstructure:"readonly"`
}

// NamingConfig configures name derivation.
type NamingConfig struct {
	DefaultFieldName string `yaml:"default_field_name" mapstructure:"default_field_name"`
}

// LogConfig configures the logger. An empty File logs to stderr only.
type LogConfig struct {
	Level      string `yaml:"level" mapstructure:"level"`
	File       string `yaml:"file" mapstructure:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb" mapstructure:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups" mapstructure:"max_backups"`
}

// Default returns a configuration with sensible defaults.
func Default() *Config {
	return &Config{
		Auto: AutoConfig{Scope: types.ClassScope.String()},
		Paths: PathsConfig{
			Include: append([]string(nil), analysis.DefaultInclude...),
			Ignore:  append([]string(nil), analysis.DefaultIgnore...),
		},
		Naming: NamingConfig{DefaultFieldName: refactor.DefaultFieldName},
		Log: LogConfig{
			Level:      "info",
			MaxSizeMB:  10,
			MaxBackups: 3,
		},
		Backup: true,
	}
}

// AutoSettings converts the auto section for the inspector.
func (c *Config) AutoSettings() inspection.Settings {
	scope, err := types.ParseScopeKind(c.Auto.Scope)
	if err != nil {
		scope = types.ClassScope
	}
	return inspection.Settings{Enabled: c.Auto.Enabled, Fix: c.Auto.Fix, Scope: scope}
}

// NamingPolicy returns the naming policy with the configured default name.
func (c *Config) NamingPolicy() refactor.NamingPolicy {
	policy := refactor.DefaultNamingPolicy()
	if c.Naming.DefaultFieldName != "" {
		policy.DefaultName = c.Naming.DefaultFieldName
	}
	return policy
}

// EngineConfig builds the refactoring engine configuration.
func (c *Config) EngineConfig() (*refactor.EngineConfig, error) {
	filter, err := analysis.NewPathFilter(c.Paths.Include, c.Paths.Ignore, c.Paths.ReadOnly)
	if err != nil {
		return nil, err
	}
	ec := refactor.DefaultConfig()
	ec.Journal = c.Backup
	ec.Naming = c.NamingPolicy()
	ec.Filter = filter
	return ec, nil
}

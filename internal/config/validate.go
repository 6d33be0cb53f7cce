package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gobwas/glob"

	"github.com/mamaar/constprop/pkg/refactor"
	"github.com/mamaar/constprop/pkg/types"
)

var (
	// ErrInvalidScope indicates an unknown auto.scope value
	ErrInvalidScope = errors.New("invalid auto scope")

	// ErrInvalidPattern indicates a path pattern that does not compile
	ErrInvalidPattern = errors.New("invalid path pattern")

	// ErrInvalidFieldName indicates a default field name that is not a Java identifier
	ErrInvalidFieldName = errors.New("invalid default field name")

	// ErrInvalidLogLevel indicates an unknown log level
	ErrInvalidLogLevel = errors.New("invalid log level")

	// ErrInvalidLogRotation indicates negative rotation limits
	ErrInvalidLogRotation = errors.New("invalid log rotation settings")
)

// Validate checks that the configuration is valid and complete. Every bad
// key is reported.
func Validate(cfg *Config) error {
	var errs []error

	if _, err := types.ParseScopeKind(cfg.Auto.Scope); err != nil {
		errs = append(errs, fmt.Errorf("%w: auto.scope must be class, hierarchy or package, got '%s'", ErrInvalidScope, cfg.Auto.Scope))
	}

	for _, list := range []struct {
		key      string
		patterns []string
	}{
		{"paths.include", cfg.Paths.Include},
		{"paths.ignore", cfg.Paths.Ignore},
		{"paths.readonly", cfg.Paths.ReadOnly},
	} {
		for _, p := range list.patterns {
			if _, err := glob.Compile(p, '/'); err != nil {
				errs = append(errs, fmt.Errorf("%w: %s entry '%s': %v", ErrInvalidPattern, list.key, p, err))
			}
		}
	}

	if name := cfg.Naming.DefaultFieldName; name != "" && !refactor.IsValidIdentifier(name) {
		errs = append(errs, fmt.Errorf("%w: naming.default_field_name '%s'", ErrInvalidFieldName, name))
	}

	switch strings.ToLower(cfg.Log.Level) {
	case "debug", "info", "warn", "error", "":
	default:
		errs = append(errs, fmt.Errorf("%w: log.level must be debug, info, warn or error, got '%s'", ErrInvalidLogLevel, cfg.Log.Level))
	}
	if cfg.Log.MaxSizeMB < 0 || cfg.Log.MaxBackups < 0 {
		errs = append(errs, fmt.Errorf("%w: log.max_size_mb and log.max_backups must not be negative", ErrInvalidLogRotation))
	}

	return joinErrors(errs)
}

// joinErrors combines multiple errors into a single error with clear formatting.
func joinErrors(errs []error) error {
	switch len(errs) {
	case 0:
		return nil
	case 1:
		return errs[0]
	}
	var msgs []string
	for _, err := range errs {
		msgs = append(msgs, err.Error())
	}
	return fmt.Errorf("%d configuration errors:\n  - %s", len(errs), strings.Join(msgs, "\n  - "))
}

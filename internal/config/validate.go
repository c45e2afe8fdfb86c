package config

import (
	"fmt"
	"net"
	"slices"
	"strings"
)

// FieldError is a validation error for one configuration field.
type FieldError struct {
	// Field is the dotted path to the field (e.g. "log.level").
	Field string

	Message string
}

func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationError collects every field error found by Validate.
type ValidationError struct {
	Errors []FieldError
}

func (e ValidationError) Error() string {
	if len(e.Errors) == 1 {
		return fmt.Sprintf("configuration validation failed: %s", e.Errors[0].Error())
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "configuration validation failed with %d errors:\n", len(e.Errors))
	for _, err := range e.Errors {
		fmt.Fprintf(&sb, "  - %s\n", err.Error())
	}
	return sb.String()
}

var (
	validLevels        = []string{"debug", "info", "warn", "warning", "error"}
	validLogFormats    = []string{"text", "json"}
	validExportFormats = []string{"json", "yaml", "sqlite"}
)

// Validate returns a ValidationError if any field of cfg is invalid.
func Validate(cfg *Config) error {
	var errs []FieldError

	if !slices.Contains(validLevels, strings.ToLower(cfg.Log.Level)) {
		errs = append(errs, FieldError{"log.level", fmt.Sprintf("unknown level %q", cfg.Log.Level)})
	}
	if !slices.Contains(validLogFormats, strings.ToLower(cfg.Log.Format)) {
		errs = append(errs, FieldError{"log.format", fmt.Sprintf("unknown format %q", cfg.Log.Format)})
	}
	if cfg.Parse.MaxSize < 0 {
		errs = append(errs, FieldError{"parse.max_size", "must not be negative"})
	}
	if !slices.Contains(validExportFormats, cfg.Export.Format) {
		errs = append(errs, FieldError{"export.format", fmt.Sprintf("unknown format %q", cfg.Export.Format)})
	}
	for _, ext := range cfg.Watch.Extensions {
		if !strings.HasPrefix(ext, ".") {
			errs = append(errs, FieldError{"watch.extensions", fmt.Sprintf("%q must start with a dot", ext)})
		}
	}
	if cfg.Watch.DebounceMS < 0 {
		errs = append(errs, FieldError{"watch.debounce_ms", "must not be negative"})
	}
	if cfg.Metrics.Enabled {
		if _, _, err := net.SplitHostPort(cfg.Metrics.Address); err != nil {
			errs = append(errs, FieldError{"metrics.address", err.Error()})
		}
		if !strings.HasPrefix(cfg.Metrics.Path, "/") {
			errs = append(errs, FieldError{"metrics.path", "must start with /"})
		}
	}

	if len(errs) > 0 {
		return ValidationError{Errors: errs}
	}
	return nil
}

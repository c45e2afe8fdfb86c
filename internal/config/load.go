package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Load reads the configuration file at path, applies defaults and
// environment overrides, and validates the result. An empty path yields the
// defaults with environment overrides.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
		}
		if err := decode(path, data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
		}
	}

	ApplyDefaults(cfg)
	errs := applyEnvOverrides(cfg)

	if err := Validate(cfg); err != nil {
		var verr ValidationError
		if !errors.As(err, &verr) {
			return nil, err
		}
		errs = append(errs, verr.Errors...)
	}
	if len(errs) > 0 {
		return nil, ValidationError{Errors: errs}
	}
	return cfg, nil
}

// decode picks the decoder by file extension.
func decode(path string, data []byte, cfg *Config) error {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		return yaml.Unmarshal(data, cfg)
	case ".toml":
		_, err := toml.Decode(string(data), cfg)
		return err
	default:
		return fmt.Errorf("unsupported configuration format %q", ext)
	}
}

// applyEnvOverrides applies CIF_* environment variables to cfg and returns
// an error for each variable that could not be parsed.
func applyEnvOverrides(cfg *Config) []FieldError {
	var errs []FieldError

	if val := os.Getenv("CIF_LOG_LEVEL"); val != "" {
		cfg.Log.Level = val
	}
	if val := os.Getenv("CIF_LOG_FORMAT"); val != "" {
		cfg.Log.Format = val
	}
	if val := os.Getenv("CIF_MAX_SIZE"); val != "" {
		n, err := strconv.ParseInt(val, 10, 64)
		if err != nil {
			errs = append(errs, FieldError{"CIF_MAX_SIZE", fmt.Sprintf("invalid size %q", val)})
		} else {
			cfg.Parse.MaxSize = n
		}
	}
	if val := os.Getenv("CIF_METRICS_ADDR"); val != "" {
		cfg.Metrics.Address = val
		cfg.Metrics.Enabled = true
	}
	return errs
}

// Package config loads the configuration of the cif command-line tool.
//
// A configuration file is YAML (.yaml, .yml) or TOML (.toml). Defaults are
// applied to every field left unset, then CIF_* environment variables
// override the file, then the result is validated.
package config

// Config is the top-level configuration.
type Config struct {
	Log     LogConfig     `yaml:"log" toml:"log"`
	Parse   ParseConfig   `yaml:"parse" toml:"parse"`
	Export  ExportConfig  `yaml:"export" toml:"export"`
	Watch   WatchConfig   `yaml:"watch" toml:"watch"`
	Metrics MetricsConfig `yaml:"metrics" toml:"metrics"`
}

// LogConfig configures structured logging.
type LogConfig struct {
	// Level is one of "debug", "info", "warn", "error".
	Level string `yaml:"level" toml:"level"`

	// Format is "text" or "json".
	Format string `yaml:"format" toml:"format"`

	// AddSource includes file:line in records.
	AddSource bool `yaml:"add_source" toml:"add_source"`
}

// ParseConfig configures the parser.
type ParseConfig struct {
	// MaxSize is the largest input accepted, in bytes. Zero means no limit.
	MaxSize int64 `yaml:"max_size" toml:"max_size"`
}

// ExportConfig configures document export.
type ExportConfig struct {
	// Format is "json", "yaml" or "sqlite".
	Format string `yaml:"format" toml:"format"`

	// SQLitePath is the database written by the sqlite format.
	SQLitePath string `yaml:"sqlite_path" toml:"sqlite_path"`

	// Pretty indents JSON output.
	Pretty bool `yaml:"pretty" toml:"pretty"`
}

// WatchConfig configures directory watching.
type WatchConfig struct {
	// Extensions are the file extensions re-parsed on change.
	Extensions []string `yaml:"extensions" toml:"extensions"`

	// DebounceMS delays re-parsing until writes settle, in milliseconds.
	DebounceMS int `yaml:"debounce_ms" toml:"debounce_ms"`
}

// MetricsConfig configures the Prometheus endpoint of the watch command.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" toml:"enabled"`
	Address string `yaml:"address" toml:"address"`
	Path    string `yaml:"path" toml:"path"`
}

package config

// Default values for configuration fields.
const (
	DefaultLogLevel        = "info"
	DefaultLogFormat       = "text"
	DefaultExportFormat    = "json"
	DefaultSQLitePath      = "cif.db"
	DefaultWatchDebounceMS = 200
	DefaultMetricsAddress  = "127.0.0.1:9464"
	DefaultMetricsPath     = "/metrics"
	DefaultMaxSize         = int64(0)
)

// DefaultWatchExtensions are the extensions watched when none are configured.
var DefaultWatchExtensions = []string{".cif", ".mmcif"}

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}

// ApplyDefaults fills in every unset field of cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Log.Level == "" {
		cfg.Log.Level = DefaultLogLevel
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = DefaultLogFormat
	}
	if cfg.Export.Format == "" {
		cfg.Export.Format = DefaultExportFormat
	}
	if cfg.Export.SQLitePath == "" {
		cfg.Export.SQLitePath = DefaultSQLitePath
	}
	if len(cfg.Watch.Extensions) == 0 {
		cfg.Watch.Extensions = append([]string(nil), DefaultWatchExtensions...)
	}
	if cfg.Watch.DebounceMS == 0 {
		cfg.Watch.DebounceMS = DefaultWatchDebounceMS
	}
	if cfg.Metrics.Address == "" {
		cfg.Metrics.Address = DefaultMetricsAddress
	}
	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = DefaultMetricsPath
	}
}

package config

import (
	"strings"
	"time"

	"github.com/unfound-os/unfoundfs/internal/bytesize"
	"github.com/unfound-os/unfoundfs/pkg/notify"
)

// ApplyDefaults fills unset configuration fields with defaults. Zero
// values are replaced; explicit values are preserved.
func ApplyDefaults(cfg *Config) {
	applyLoggingDefaults(&cfg.Logging)
	applyCacheDefaults(&cfg.Cache)
	applyNotifyDefaults(&cfg.Notify)
	applyStoreDefaults(&cfg.Store)
	applyMetricsDefaults(&cfg.Metrics)

	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 30 * time.Second
	}
}

// applyLoggingDefaults sets logging defaults and normalizes the level.
func applyLoggingDefaults(cfg *LoggingConfig) {
	if cfg.Level == "" {
		cfg.Level = "INFO"
	}
	cfg.Level = strings.ToUpper(cfg.Level)

	if cfg.Format == "" {
		cfg.Format = "text"
	}
	if cfg.Output == "" {
		cfg.Output = "stdout"
	}
}

func applyCacheDefaults(cfg *CacheConfig) {
	if cfg.Policy == "" {
		cfg.Policy = "lru"
	}
	if cfg.Size == 0 {
		cfg.Size = 64 * bytesize.MiB
	}
	if cfg.PageSize == 0 {
		cfg.PageSize = 4 * bytesize.KiB
	}
}

func applyNotifyDefaults(cfg *NotifyConfig) {
	if cfg.QueueCapacity == 0 {
		cfg.QueueCapacity = notify.DefaultCapacity
	}
}

func applyStoreDefaults(cfg *StoreConfig) {
	if cfg.Backend == "" {
		cfg.Backend = "memory"
	}
}

func applyMetricsDefaults(cfg *MetricsConfig) {
	// Enabled defaults to false (opt-in for metrics)
	if cfg.Enabled && cfg.Port == 0 {
		cfg.Port = 9464
	}
}

// GetDefaultConfig returns a Config with every default applied. Useful
// for generating sample configuration files and for tests.
func GetDefaultConfig() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}

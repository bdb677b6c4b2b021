package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/unfound-os/unfoundfs/internal/bytesize"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("writing config file: %v", err)
	}
	return path
}

func TestDefaults(t *testing.T) {
	cfg := GetDefaultConfig()

	if cfg.Logging.Level != "INFO" || cfg.Logging.Format != "text" {
		t.Errorf("logging defaults = %+v", cfg.Logging)
	}
	if cfg.Cache.Policy != "lru" {
		t.Errorf("cache policy default = %q, want lru", cfg.Cache.Policy)
	}
	if cfg.Cache.Size != 64*bytesize.MiB || cfg.Cache.PageSize != 4*bytesize.KiB {
		t.Errorf("cache size defaults = %s / %s", cfg.Cache.Size, cfg.Cache.PageSize)
	}
	if got := cfg.Cache.CapacityPages(); got != 16384 {
		t.Errorf("CapacityPages = %d, want 16384", got)
	}
	if cfg.Notify.QueueCapacity != 1024 {
		t.Errorf("queue capacity default = %d, want 1024", cfg.Notify.QueueCapacity)
	}
	if cfg.Store.Backend != "memory" {
		t.Errorf("store backend default = %q, want memory", cfg.Store.Backend)
	}
	if cfg.ShutdownTimeout != 30*time.Second {
		t.Errorf("shutdown timeout default = %v", cfg.ShutdownTimeout)
	}

	if err := Validate(cfg); err != nil {
		t.Errorf("default config does not validate: %v", err)
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Cache.Policy != "lru" {
		t.Errorf("missing file did not fall back to defaults: %+v", cfg.Cache)
	}
}

func TestLoadFromFile(t *testing.T) {
	path := writeConfigFile(t, `
logging:
  level: debug
  format: json
cache:
  policy: arc
  size: 8MiB
  page_size: 8KiB
notify:
  queue_capacity: 256
store:
  backend: fsdir
  path: /var/lib/unfoundfs
shutdown_timeout: 10s
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Logging.Level != "DEBUG" {
		t.Errorf("level = %q, want normalized DEBUG", cfg.Logging.Level)
	}
	if cfg.Cache.Policy != "arc" {
		t.Errorf("policy = %q, want arc", cfg.Cache.Policy)
	}
	if cfg.Cache.Size != 8*bytesize.MiB {
		t.Errorf("size = %s, want 8MiB", cfg.Cache.Size)
	}
	if got := cfg.Cache.CapacityPages(); got != 1024 {
		t.Errorf("CapacityPages = %d, want 1024", got)
	}
	if cfg.Notify.QueueCapacity != 256 {
		t.Errorf("queue capacity = %d, want 256", cfg.Notify.QueueCapacity)
	}
	if cfg.Store.Backend != "fsdir" || cfg.Store.Path != "/var/lib/unfoundfs" {
		t.Errorf("store = %+v", cfg.Store)
	}
	if cfg.ShutdownTimeout != 10*time.Second {
		t.Errorf("shutdown timeout = %v, want 10s", cfg.ShutdownTimeout)
	}
}

func TestEnvOverride(t *testing.T) {
	path := writeConfigFile(t, `
cache:
  policy: lru
`)
	t.Setenv("UNFOUNDFS_CACHE_POLICY", "arc")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Cache.Policy != "arc" {
		t.Errorf("policy = %q, environment override ignored", cfg.Cache.Policy)
	}
}

func TestValidationRejectsBadValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad policy", func(c *Config) { c.Cache.Policy = "mru" }},
		{"bad backend", func(c *Config) { c.Store.Backend = "s3" }},
		{"bad level", func(c *Config) { c.Logging.Level = "LOUD" }},
		{"page larger than cache", func(c *Config) {
			c.Cache.Size = 4 * bytesize.KiB
			c.Cache.PageSize = 8 * bytesize.KiB
		}},
		{"fsdir without path", func(c *Config) {
			c.Store.Backend = "fsdir"
			c.Store.Path = ""
		}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := GetDefaultConfig()
			tc.mutate(cfg)
			if err := Validate(cfg); err == nil {
				t.Error("Validate accepted an invalid config")
			}
		})
	}
}

func TestSaveConfigRoundTrip(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Cache.Policy = "arc"
	cfg.Store.Backend = "badger"
	cfg.Store.Path = "/data"

	path := filepath.Join(t.TempDir(), "sub", "config.yaml")
	if err := SaveConfig(cfg, path); err != nil {
		t.Fatalf("SaveConfig failed: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load of saved config failed: %v", err)
	}
	if loaded.Cache.Policy != "arc" || loaded.Store.Backend != "badger" || loaded.Store.Path != "/data" {
		t.Errorf("round trip mismatch: %+v", loaded)
	}
}

package commands

import (
	"fmt"
	"log"

	"github.com/unfound-os/unfoundfs/internal/logger"
	"github.com/unfound-os/unfoundfs/pkg/cache"
	"github.com/unfound-os/unfoundfs/pkg/config"
	"github.com/unfound-os/unfoundfs/pkg/metrics"
	"github.com/unfound-os/unfoundfs/pkg/notify"
	"github.com/unfound-os/unfoundfs/pkg/store/badgerstore"
	"github.com/unfound-os/unfoundfs/pkg/store/fsdir"
	"github.com/unfound-os/unfoundfs/pkg/store/memory"
	"github.com/unfound-os/unfoundfs/pkg/vfs"

	storepkg "github.com/unfound-os/unfoundfs/pkg/store"
)

// loadConfig loads the configuration honoring the global --config flag
// and initializes the logger from it.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}

	if err := logger.Init(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	}); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	return cfg, nil
}

// buildEngine wires store backend, cache policy, and event queue into
// an engine per the configuration. The returned cleanup releases any
// backend resources and must be called when done.
func buildEngine(cfg *config.Config) (*vfs.Engine, func() error, error) {
	if cfg.Metrics.Enabled {
		metrics.InitRegistry()
	}

	cleanup := func() error { return nil }
	var backend storepkg.ByteStore
	switch cfg.Store.Backend {
	case "memory":
		backend = memory.New()
	case "fsdir":
		fs, err := fsdir.Open(cfg.Store.Path)
		if err != nil {
			return nil, nil, fmt.Errorf("opening fsdir store: %w", err)
		}
		backend = fs
	case "badger":
		bs, err := badgerstore.Open(cfg.Store.Path)
		if err != nil {
			return nil, nil, fmt.Errorf("opening badger store: %w", err)
		}
		backend = bs
		cleanup = bs.Close
	default:
		return nil, nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}

	capacity := cfg.Cache.CapacityPages()
	pageSize := cfg.Cache.PageSize.Int()
	var pages cache.Pages
	var err error
	switch cfg.Cache.Policy {
	case "lru":
		pages, err = cache.New(capacity, pageSize, metrics.NewCacheMetrics())
	case "arc":
		pages, err = cache.NewARC(capacity, pageSize, metrics.NewCacheMetrics())
	default:
		err = fmt.Errorf("unknown cache policy %q", cfg.Cache.Policy)
	}
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("building page cache: %w", err)
	}

	queue, err := notify.NewQueue(cfg.Notify.QueueCapacity, metrics.NewNotifyMetrics())
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("building event queue: %w", err)
	}

	engine, err := vfs.New(backend, pages, queue)
	if err != nil {
		cleanup()
		return nil, nil, err
	}

	logger.Info("engine ready",
		"backend", cfg.Store.Backend,
		"cache_policy", cfg.Cache.Policy,
		"cache_pages", capacity,
		"page_size", cfg.Cache.PageSize.String(),
		"queue_capacity", cfg.Notify.QueueCapacity,
	)
	return engine, cleanup, nil
}

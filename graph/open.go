package graph

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/brn2/gograph/internal/backend"
	"github.com/brn2/gograph/internal/backend/fs"
	"github.com/brn2/gograph/internal/backend/s3backend"
	"github.com/brn2/gograph/internal/cache"
	"github.com/brn2/gograph/internal/gconfig"
	"github.com/brn2/gograph/internal/shardplacer"
)

// Open builds a fully-wired Engine from cfg: the Storage Backend
// (filesystem or S3-compatible, per cfg.Backend.Kind), the Shard
// Placer, and the Cache Fabric. If warm-cache persistence is enabled,
// Open hydrates the Fabric from disk before returning — so a restart
// answers queries the same way it would have before shutdown — and
// starts the persister's periodic tick as a goroutine tied to ctx.
// Cache Fabric statistics are exported to reg (prometheus.
// DefaultRegisterer if nil) on that same tick.
//
// Callers assembling their own backend.Backend/cache.Fabric/
// shardplacer.Placer directly — tests, or an embedder wiring a fake
// backend — should call New instead.
func Open(ctx context.Context, cfg *gconfig.Config, reg prometheus.Registerer, opts ...Option) (*Engine, error) {
	e := &Engine{}
	for _, opt := range opts {
		opt(e)
	}
	logger := e.logger
	if logger == nil {
		logger = zap.NewNop()
	}

	be, err := openBackend(ctx, cfg.Backend, logger)
	if err != nil {
		return nil, fmt.Errorf("graph: opening storage backend: %w", err)
	}

	placer := shardplacer.New(cfg.Shard.NumShards, cfg.Shard.Levels)

	fabric := cache.New(cache.Config{
		TTL:                 cfg.Cache.TTL,
		MaxSize:             cfg.Cache.MaxSize,
		PopularityThreshold: cfg.Cache.PopularityThreshold,
		CompoundIndexes:     compoundIndexSpecs(cfg.Cache.CompoundIndexes),
		RangeIndexes:        rangeIndexSpecs(cfg.Cache.RangeIndexes),
	}, logger)

	persister := cache.NewPersister(fabric, cache.WarmCacheConfig{
		Enabled:             cfg.WarmCache.Enabled,
		Directory:           cfg.WarmCache.Directory,
		PersistenceInterval: cfg.WarmCache.PersistenceInterval,
		MaxCacheAge:         cfg.WarmCache.MaxCacheAge,
	}, logger)
	persister.Hydrate()
	persister.Start(ctx)

	startMetricsTick(ctx, fabric, reg, cfg.WarmCache.PersistenceInterval)

	engine := New(be, fabric, placer, opts...)
	return engine, nil
}

// OpenFromPath loads a Config from path (a YAML file, environment
// variables, and built-in defaults, in gconfig.Load's precedence
// order) and calls Open with it.
func OpenFromPath(ctx context.Context, path string, reg prometheus.Registerer, opts ...Option) (*Engine, error) {
	cfg, err := gconfig.Load(path)
	if err != nil {
		return nil, fmt.Errorf("graph: loading configuration: %w", err)
	}
	return Open(ctx, cfg, reg, opts...)
}

func openBackend(ctx context.Context, cfg gconfig.Backend, logger *zap.Logger) (backend.Backend, error) {
	switch cfg.Kind {
	case "s3":
		return s3backend.NewFromConfig(ctx, s3backend.Config{
			Endpoint:        cfg.Endpoint,
			Region:          cfg.Region,
			Bucket:          cfg.Bucket,
			AccessKeyID:     cfg.AccessKeyID,
			SecretAccessKey: cfg.SecretAccessKey,
			UsePathStyle:    cfg.PathStyle,
		}, logger)
	case "fs", "":
		return fs.New(cfg.RootDir, logger)
	default:
		return nil, fmt.Errorf("graph: unknown backend kind %q", cfg.Kind)
	}
}

func compoundIndexSpecs(cfgs []gconfig.CompoundIndexConfig) []cache.CompoundIndexSpec {
	specs := make([]cache.CompoundIndexSpec, len(cfgs))
	for i, c := range cfgs {
		specs[i] = cache.CompoundIndexSpec{Type: c.Type, Properties: c.Properties}
	}
	return specs
}

func rangeIndexSpecs(cfgs []gconfig.RangeIndexConfig) []cache.RangeIndexSpec {
	specs := make([]cache.RangeIndexSpec, len(cfgs))
	for i, c := range cfgs {
		specs[i] = cache.RangeIndexSpec{Type: c.Type, Property: c.Property}
	}
	return specs
}

// startMetricsTick periodically copies the Fabric's Stats snapshot
// into Prometheus counters/histograms, on the same cadence as
// warm-cache persistence, until ctx is cancelled. interval falls back
// to one minute when unset (persistence disabled but metrics still
// wanted).
func startMetricsTick(ctx context.Context, fabric *cache.Fabric, reg prometheus.Registerer, interval time.Duration) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	if interval <= 0 {
		interval = time.Minute
	}
	metrics := cache.NewMetrics(reg)
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				metrics.Observe(fabric.Stats())
			}
		}
	}()
}

package graph

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/brn2/gograph/internal/cache"
	"github.com/brn2/gograph/internal/gconfig"
	"github.com/brn2/gograph/internal/model"
)

func testConfig(dir string) *gconfig.Config {
	return &gconfig.Config{
		Shard: gconfig.Shard{NumShards: 16, Levels: 2},
		Cache: gconfig.Cache{TTL: time.Minute, MaxSize: 1000, PopularityThreshold: 1},
		Backend: gconfig.Backend{
			Kind:    "fs",
			RootDir: dir + "/data",
		},
		WarmCache: gconfig.WarmCache{
			Enabled:             true,
			Directory:           dir + "/warmcache",
			PersistenceInterval: time.Minute,
			MaxCacheAge:         time.Hour,
		},
		Limits: gconfig.Limits{DefaultQueryLimit: 100, MaxQueryLimit: 1000},
	}
}

func TestOpenBuildsAWorkingEngineAndHydratesOnRestart(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig(dir)

	ctx, cancel := context.WithCancel(context.Background())
	e, err := Open(ctx, cfg, prometheus.NewRegistry())
	require.NoError(t, err)

	n, err := e.CreateNode(ctx, "person", map[string]model.Value{"name": model.String("ada")}, nil, nil)
	require.NoError(t, err)

	fetched, err := e.GetNode(ctx, n.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, n.ID, fetched.ID)
	cancel()

	// Force a snapshot to disk without waiting for Open's background
	// ticker, then open a fresh Engine over the same directories: a cold
	// start must still answer the same way. The node has one cache hit,
	// not above the threshold of 1, so it is not in the snapshot and the
	// second Engine reads it back from the backend.
	persister := cache.NewPersister(e.fabric, cache.WarmCacheConfig{
		Enabled:             true,
		Directory:           cfg.WarmCache.Directory,
		PersistenceInterval: cfg.WarmCache.PersistenceInterval,
		MaxCacheAge:         cfg.WarmCache.MaxCacheAge,
	}, zap.NewNop())
	require.NoError(t, persister.Persist())

	ctx2, cancel2 := context.WithCancel(context.Background())
	defer cancel2()
	e2, err := Open(ctx2, cfg, prometheus.NewRegistry())
	require.NoError(t, err)

	fetchedAgain, err := e2.GetNode(ctx2, n.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, n.ID, fetchedAgain.ID)
}

func TestOpenRejectsUnknownBackendKind(t *testing.T) {
	cfg := testConfig(t.TempDir())
	cfg.Backend.Kind = "carrier-pigeon"
	_, err := Open(context.Background(), cfg, prometheus.NewRegistry())
	require.Error(t, err)
}

func TestOpenFromPathLoadsConfigAndOpens(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig(dir)
	data, err := yaml.Marshal(cfg)
	require.NoError(t, err)
	path := dir + "/gograph.yaml"
	require.NoError(t, os.WriteFile(path, data, 0o644))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	e, err := OpenFromPath(ctx, path, prometheus.NewRegistry())
	require.NoError(t, err)

	n, err := e.CreateNode(ctx, "person", nil, nil, nil)
	require.NoError(t, err)
	fetched, err := e.GetNode(ctx, n.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, n.ID, fetched.ID)
}

package gconfig

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// defaultConfig returns the engine's built-in configuration, the
// lowest-priority layer in Load's hierarchy.
func defaultConfig() *Config {
	return &Config{
		Shard: Shard{NumShards: 256, Levels: 2},
		Cache: Cache{
			TTL:                 5 * time.Minute,
			MaxSize:             100_000,
			PopularityThreshold: 5,
		},
		Backend: Backend{
			Kind:    "fs",
			RootDir: "./data",
		},
		WarmCache: WarmCache{
			Enabled:             false,
			Directory:           "./data/warmcache",
			PersistenceInterval: time.Minute,
			MaxCacheAge:         24 * time.Hour,
		},
		Limits: Limits{
			DefaultQueryLimit: 1000,
			MaxQueryLimit:     10000,
		},
	}
}

// Load builds a Config from, in ascending priority:
//  1. defaultConfig()
//  2. the YAML file at path, if path is non-empty and the file exists
//  3. environment variables
//
// The result is validated with go-playground/validator before being
// returned.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()
	sources := []string{"defaults"}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("gconfig: reading %s: %w", path, err)
			}
		} else {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("gconfig: parsing %s: %w", path, err)
			}
			sources = append(sources, path)
		}
	}

	applyEnvOverrides(cfg)
	sources = append(sources, "environment")
	cfg.LoadedFrom = sources

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("gconfig: invalid configuration: %w", err)
	}
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	cfg.Shard.NumShards = getEnvInt("GOGRAPH_SHARD_NUM_SHARDS", cfg.Shard.NumShards)
	cfg.Shard.Levels = getEnvInt("GOGRAPH_SHARD_LEVELS", cfg.Shard.Levels)

	cfg.Cache.TTL = getEnvDuration("GOGRAPH_CACHE_TTL", cfg.Cache.TTL)
	cfg.Cache.MaxSize = getEnvInt("GOGRAPH_CACHE_MAX_SIZE", cfg.Cache.MaxSize)
	cfg.Cache.PopularityThreshold = getEnvInt("GOGRAPH_CACHE_POPULARITY_THRESHOLD", cfg.Cache.PopularityThreshold)

	cfg.Backend.Kind = getEnvString("GOGRAPH_BACKEND_KIND", cfg.Backend.Kind)
	cfg.Backend.RootDir = getEnvString("GOGRAPH_BACKEND_ROOT_DIR", cfg.Backend.RootDir)
	cfg.Backend.Endpoint = getEnvString("GOGRAPH_BACKEND_ENDPOINT", cfg.Backend.Endpoint)
	cfg.Backend.Bucket = getEnvString("GOGRAPH_BACKEND_BUCKET", cfg.Backend.Bucket)
	cfg.Backend.Region = getEnvString("GOGRAPH_BACKEND_REGION", cfg.Backend.Region)
	cfg.Backend.AccessKeyID = getEnvString("GOGRAPH_BACKEND_ACCESS_KEY_ID", cfg.Backend.AccessKeyID)
	cfg.Backend.SecretAccessKey = getEnvString("GOGRAPH_BACKEND_SECRET_ACCESS_KEY", cfg.Backend.SecretAccessKey)
	cfg.Backend.PathStyle = getEnvBool("GOGRAPH_BACKEND_PATH_STYLE", cfg.Backend.PathStyle)

	cfg.WarmCache.Enabled = getEnvBool("GOGRAPH_WARMCACHE_ENABLED", cfg.WarmCache.Enabled)
	cfg.WarmCache.Directory = getEnvString("GOGRAPH_WARMCACHE_DIRECTORY", cfg.WarmCache.Directory)
	cfg.WarmCache.PersistenceInterval = getEnvDuration("GOGRAPH_WARMCACHE_PERSISTENCE_INTERVAL", cfg.WarmCache.PersistenceInterval)
	cfg.WarmCache.MaxCacheAge = getEnvDuration("GOGRAPH_WARMCACHE_MAX_CACHE_AGE", cfg.WarmCache.MaxCacheAge)

	cfg.Limits.DefaultQueryLimit = getEnvInt("GOGRAPH_LIMITS_DEFAULT_QUERY_LIMIT", cfg.Limits.DefaultQueryLimit)
	cfg.Limits.MaxQueryLimit = getEnvInt("GOGRAPH_LIMITS_MAX_QUERY_LIMIT", cfg.Limits.MaxQueryLimit)
}

func getEnvString(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultValue
}

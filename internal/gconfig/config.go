// Package gconfig is the engine's ambient configuration: a single
// Config struct, grouped by concern the same way internal/config.Config
// groups Server/Database/AWS/..., validated with struct tags via
// go-playground/validator.
package gconfig

import "time"

// Config is the complete engine configuration.
type Config struct {
	Shard     Shard     `yaml:"shard" json:"shard" validate:"required,dive"`
	Cache     Cache     `yaml:"cache" json:"cache" validate:"required,dive"`
	Backend   Backend   `yaml:"backend" json:"backend" validate:"required,dive"`
	WarmCache WarmCache `yaml:"warm_cache" json:"warm_cache" validate:"dive"`
	Limits    Limits    `yaml:"limits" json:"limits" validate:"dive"`

	// LoadedFrom records the sources Load() actually read from, lowest
	// to highest precedence, for diagnostics.
	LoadedFrom []string `yaml:"-" json:"-"`
}

// Shard configures the Shard Placer.
type Shard struct {
	NumShards int `yaml:"num_shards" json:"num_shards" validate:"min=1"`
	Levels    int `yaml:"levels" json:"levels" validate:"min=1,max=8"`
}

// CompoundIndexConfig configures one Cache Fabric compound index.
type CompoundIndexConfig struct {
	Type       string   `yaml:"type" json:"type" validate:"required"`
	Properties []string `yaml:"properties" json:"properties" validate:"required,min=1"`
}

// RangeIndexConfig configures one Cache Fabric range index.
type RangeIndexConfig struct {
	Type     string `yaml:"type" json:"type" validate:"required"`
	Property string `yaml:"property" json:"property" validate:"required"`
}

// Cache configures the Cache Fabric.
type Cache struct {
	TTL                 time.Duration         `yaml:"ttl" json:"ttl" validate:"min=1s"`
	MaxSize             int                   `yaml:"max_size" json:"max_size" validate:"min=1"`
	PopularityThreshold int                   `yaml:"popularity_threshold" json:"popularity_threshold" validate:"min=1"`
	CompoundIndexes     []CompoundIndexConfig `yaml:"compound_indexes" json:"compound_indexes" validate:"dive"`
	RangeIndexes        []RangeIndexConfig    `yaml:"range_indexes" json:"range_indexes" validate:"dive"`
}

// Backend configures the Storage Backend: either a filesystem root, or
// an S3-compatible object store.
type Backend struct {
	Kind            string `yaml:"kind" json:"kind" validate:"required,oneof=fs s3"`
	RootDir         string `yaml:"root_dir" json:"root_dir" validate:"required_if=Kind fs"`
	Endpoint        string `yaml:"endpoint" json:"endpoint"`
	Bucket          string `yaml:"bucket" json:"bucket" validate:"required_if=Kind s3"`
	Region          string `yaml:"region" json:"region" validate:"required_if=Kind s3"`
	AccessKeyID     string `yaml:"access_key_id" json:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key" json:"secret_access_key"`
	PathStyle       bool   `yaml:"path_style" json:"path_style"`
}

// WarmCache configures the on-disk warm-cache persister.
type WarmCache struct {
	Enabled             bool          `yaml:"enabled" json:"enabled"`
	Directory           string        `yaml:"directory" json:"directory" validate:"required_if=Enabled true"`
	PersistenceInterval time.Duration `yaml:"persistence_interval" json:"persistence_interval" validate:"min=1s"`
	MaxCacheAge         time.Duration `yaml:"max_cache_age" json:"max_cache_age" validate:"min=1s"`
}

// Limits mirrors the Validator's query-limit ceiling, kept here too so
// operators can see/tune it alongside the rest of the engine's
// configuration; the Validator package remains the enforcement point.
type Limits struct {
	DefaultQueryLimit int `yaml:"default_query_limit" json:"default_query_limit" validate:"min=1"`
	MaxQueryLimit     int `yaml:"max_query_limit" json:"max_query_limit" validate:"min=1"`
}

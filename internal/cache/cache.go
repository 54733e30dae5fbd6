// Package cache implements the Cache Fabric: a single in-memory
// manager composed of cooperating maps — entity cache, relationship
// cache, multi-axis indexes, adjacency lists, traversal memoization,
// and optional warm-cache persistence. All operations are safe under
// concurrent use via a single owning RWMutex, in the style of
// internal/infrastructure/cache.MemoryCache's LRU-plus-per-item-TTL
// under one lock, generalized here from a byte-blob cache into a
// richer structure covering nodes, relationships, and indexes.
package cache

import (
	"container/list"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/brn2/gograph/internal/model"
)

// Config tunes the Fabric's capacity and TTL, plus which compound and
// range indexes to maintain.
type Config struct {
	TTL              time.Duration
	MaxSize          int
	CompoundIndexes  []CompoundIndexSpec
	RangeIndexes     []RangeIndexSpec
	PopularityThreshold int // hit-count above which a node/memo is "popular" for warm-cache persistence
}

// CompoundIndexSpec configures a compound index over an ordered list of
// properties for a given node type.
type CompoundIndexSpec struct {
	Type       string
	Properties []string
}

// RangeIndexSpec configures a numeric range (bucket) index for a given
// node type and property.
type RangeIndexSpec struct {
	Type     string
	Property string
}

func (c Config) withDefaults() Config {
	if c.TTL <= 0 {
		c.TTL = 5 * time.Minute
	}
	if c.MaxSize <= 0 {
		c.MaxSize = 10000
	}
	if c.PopularityThreshold <= 0 {
		c.PopularityThreshold = 5
	}
	return c
}

type entityEntry struct {
	node       *model.Node
	insertedAt time.Time
	lruElem    *list.Element
}

type relationshipEntry struct {
	rel        *model.Relationship
	insertedAt time.Time
	lruElem    *list.Element
}

type memoEntry struct {
	ids       []string
	timestamp time.Time
}

// Fabric is the Cache Fabric. Every field it owns is guarded by mu; no
// sub-structure is safe to touch without holding it.
type Fabric struct {
	mu     sync.RWMutex
	cfg    Config
	logger *zap.Logger

	// batching
	batching   bool
	batchQueue []func()

	// entity cache
	entities    map[string]*entityEntry
	entityLRU   *list.List // front = most recently inserted/touched
	// relationship cache, keyed by Relationship.Key()
	relationships  map[string]*relationshipEntry
	relLRU         *list.List

	// indexes
	typeIndex      map[string]map[string]struct{}            // type -> node ids
	propertyIndex  map[string]map[string]map[string]struct{}  // "type|prop" -> json(value) -> node ids
	compoundIndex  map[string]map[string]map[string]struct{}  // "type|p1,p2" -> json([]values) -> node ids
	rangeIndex     map[string][]*rangeBucket                  // "type|prop" -> ordered buckets
	prefixIndex    map[string]map[string]map[string]struct{}  // "type|prop" -> prefix -> node ids
	relTypeIndex   map[string]map[string]struct{}              // rel type -> relationship keys

	// adjacency (the sole authoritative source for traversal hits)
	adjacency        map[string]map[string]map[string]struct{} // source -> type -> target ids
	reverseAdjacency map[string]map[string]map[string]struct{} // target -> type -> source ids

	// traversal memo
	memo map[string]memoEntry

	stats *Stats
}

type rangeBucket struct {
	min, max float64
	ids      map[string]struct{}
}

// New creates an empty Fabric with the given configuration.
func New(cfg Config, logger *zap.Logger) *Fabric {
	if logger == nil {
		logger = zap.NewNop()
	}
	f := &Fabric{
		cfg:              cfg.withDefaults(),
		logger:           logger,
		entities:         make(map[string]*entityEntry),
		entityLRU:        list.New(),
		relationships:    make(map[string]*relationshipEntry),
		relLRU:           list.New(),
		typeIndex:        make(map[string]map[string]struct{}),
		propertyIndex:    make(map[string]map[string]map[string]struct{}),
		compoundIndex:    make(map[string]map[string]map[string]struct{}),
		rangeIndex:       make(map[string][]*rangeBucket),
		prefixIndex:      make(map[string]map[string]map[string]struct{}),
		relTypeIndex:     make(map[string]map[string]struct{}),
		adjacency:        make(map[string]map[string]map[string]struct{}),
		reverseAdjacency: make(map[string]map[string]map[string]struct{}),
		memo:             make(map[string]memoEntry),
		stats:            newStats(),
	}
	return f
}

// Clear removes all cached state: entities, relationships, every index,
// adjacency, and memo.
func (f *Fabric) Clear() {
	f.run(func() {
		f.entities = make(map[string]*entityEntry)
		f.entityLRU = list.New()
		f.relationships = make(map[string]*relationshipEntry)
		f.relLRU = list.New()
		f.typeIndex = make(map[string]map[string]struct{})
		f.propertyIndex = make(map[string]map[string]map[string]struct{})
		f.compoundIndex = make(map[string]map[string]map[string]struct{})
		f.rangeIndex = make(map[string][]*rangeBucket)
		f.prefixIndex = make(map[string]map[string]map[string]struct{})
		f.relTypeIndex = make(map[string]map[string]struct{})
		f.adjacency = make(map[string]map[string]map[string]struct{})
		f.reverseAdjacency = make(map[string]map[string]map[string]struct{})
		f.memo = make(map[string]memoEntry)
	})
}

package cache

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"
	"go.uber.org/zap"

	"github.com/brn2/gograph/internal/model"
)

// Warm-cache is a hint: a cold start with it absent must still be
// correct, only slower. Nothing hydrated from these files is ever
// treated as authoritative — on the next real access the backend
// wins.
const (
	indexesFileName   = "indexes.cache.json"
	nodesFileName     = "nodes.cache.json"
	traversalFileName = "traversal.cache.json"
	boltFileName      = "warm.bbolt"
)

// WarmCacheConfig controls the optional on-disk warm-cache persister.
type WarmCacheConfig struct {
	Enabled             bool
	Directory           string
	PersistenceInterval time.Duration
	MaxCacheAge         time.Duration
}

// Persister periodically serializes the Fabric's indexes, popular
// nodes, and popular traversal memos to disk, and rehydrates them on
// startup.
type Persister struct {
	fabric *Fabric
	cfg    WarmCacheConfig
	logger *zap.Logger
}

// NewPersister wires a Persister to fabric. It touches no files;
// Hydrate and Persist create cfg.Directory if absent.
func NewPersister(fabric *Fabric, cfg WarmCacheConfig, logger *zap.Logger) *Persister {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.PersistenceInterval <= 0 {
		cfg.PersistenceInterval = 5 * time.Minute
	}
	if cfg.MaxCacheAge <= 0 {
		cfg.MaxCacheAge = 24 * time.Hour
	}
	return &Persister{fabric: fabric, cfg: cfg, logger: logger}
}

// ============================================================================
// On-disk shapes
// ============================================================================

type indexesSnapshot struct {
	Timestamp        time.Time                       `json:"timestamp"`
	TypeIndex        map[string][]string              `json:"typeIndex"`
	PropertyIndex    map[string]map[string][]string   `json:"propertyIndex"`
	PrefixIndex      map[string]map[string][]string   `json:"prefixIndex"`
	RelTypeIndex     map[string][]string              `json:"relTypeIndex"`
	Adjacency        map[string]map[string][]string   `json:"adjacency"`
	ReverseAdjacency map[string]map[string][]string   `json:"reverseAdjacency"`
}

type nodesSnapshot struct {
	Timestamp time.Time              `json:"timestamp"`
	Nodes     []*model.Node          `json:"nodes"`
	HitCounts map[string]int64       `json:"hitCounts"`
}

type memoRecord struct {
	Source    string          `json:"source"`
	Type      string          `json:"type"`
	Direction model.Direction `json:"direction"`
	IDs       []string        `json:"ids"`
	Timestamp time.Time       `json:"timestamp"`
}

type traversalSnapshot struct {
	Timestamp time.Time    `json:"timestamp"`
	Memos     []memoRecord `json:"memos"`
}

// ============================================================================
// Startup: purge stale files, hydrate the rest.
// ============================================================================

// Hydrate deletes any warm-cache file older than MaxCacheAge and loads
// the remaining files into the Fabric. Hydration failures are logged
// and ignored — the cache simply starts empty.
func (p *Persister) Hydrate() {
	if !p.cfg.Enabled {
		return
	}
	if err := os.MkdirAll(p.cfg.Directory, 0o755); err != nil {
		p.logger.Warn("warm cache: cannot create directory", zap.Error(err))
		return
	}

	idx, okIdx := p.loadIndexes()
	nodes, okNodes := p.loadNodes()
	trav, okTrav := p.loadTraversal()

	if !okIdx && !okNodes && !okTrav {
		return
	}

	p.fabric.run(func() {
		if okIdx {
			hydrateSetIndex(p.fabric.typeIndex, idx.TypeIndex)
			hydrateSetIndex(p.fabric.relTypeIndex, idx.RelTypeIndex)
			for k, m := range idx.PropertyIndex {
				dst := make(map[string]map[string]struct{}, len(m))
				hydrateSetIndex(dst, m)
				p.fabric.propertyIndex[k] = dst
			}
			for k, m := range idx.PrefixIndex {
				dst := make(map[string]map[string]struct{}, len(m))
				hydrateSetIndex(dst, m)
				p.fabric.prefixIndex[k] = dst
			}
			for src, byType := range idx.Adjacency {
				dst := make(map[string]map[string]struct{}, len(byType))
				hydrateSetIndex(dst, byType)
				p.fabric.adjacency[src] = dst
			}
			for tgt, byType := range idx.ReverseAdjacency {
				dst := make(map[string]map[string]struct{}, len(byType))
				hydrateSetIndex(dst, byType)
				p.fabric.reverseAdjacency[tgt] = dst
			}
		}
		if okNodes {
			for _, n := range nodes.Nodes {
				node := n.Clone()
				elem := p.fabric.entityLRU.PushBack(node.ID)
				p.fabric.entities[node.ID] = &entityEntry{node: node, insertedAt: time.Now(), lruElem: elem}
			}
			for id, count := range nodes.HitCounts {
				p.fabric.stats.hits["node:"+id] = count
			}
		}
		if okTrav {
			for _, rec := range trav.Memos {
				p.fabric.memo[memoKey(rec.Source, rec.Type, rec.Direction)] = memoEntry{ids: rec.IDs, timestamp: rec.Timestamp}
			}
		}
	})
}

func hydrateSetIndex(dst map[string]map[string]struct{}, src map[string][]string) {
	for k, ids := range src {
		set := make(map[string]struct{}, len(ids))
		for _, id := range ids {
			set[id] = struct{}{}
		}
		dst[k] = set
	}
}

func (p *Persister) loadIndexes() (indexesSnapshot, bool) {
	var snap indexesSnapshot
	if !p.readFresh(indexesFileName, &snap, snap.Timestamp) {
		return snap, false
	}
	return snap, true
}

func (p *Persister) loadNodes() (nodesSnapshot, bool) {
	var snap nodesSnapshot
	if !p.readFresh(nodesFileName, &snap, snap.Timestamp) {
		return snap, false
	}
	return snap, true
}

func (p *Persister) loadTraversal() (traversalSnapshot, bool) {
	var snap traversalSnapshot
	if !p.readFresh(traversalFileName, &snap, snap.Timestamp) {
		return snap, false
	}
	return snap, true
}

// readFresh reads path into target, deleting and ignoring it if it is
// older than MaxCacheAge or unreadable.
func (p *Persister) readFresh(name string, target interface{}, _ time.Time) bool {
	path := filepath.Join(p.cfg.Directory, name)
	data, err := os.ReadFile(path)
	if err != nil {
		return false
	}
	var probe struct {
		Timestamp time.Time `json:"timestamp"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		p.logger.Warn("warm cache: malformed file, ignoring", zap.String("file", name), zap.Error(err))
		os.Remove(path)
		return false
	}
	if time.Since(probe.Timestamp) > p.cfg.MaxCacheAge {
		p.logger.Info("warm cache: file exceeds max age, deleting", zap.String("file", name))
		os.Remove(path)
		return false
	}
	if err := json.Unmarshal(data, target); err != nil {
		p.logger.Warn("warm cache: failed to parse file, ignoring", zap.String("file", name), zap.Error(err))
		return false
	}
	return true
}

// ============================================================================
// Persist: write the three JSON files plus a bbolt mirror of the
// popular subset, on demand or on a ticking interval via Start.
// ============================================================================

// Persist writes a fresh snapshot of indexes, popular nodes, and
// popular traversal memos.
func (p *Persister) Persist() error {
	if !p.cfg.Enabled {
		return nil
	}
	if err := os.MkdirAll(p.cfg.Directory, 0o755); err != nil {
		return err
	}

	now := time.Now()
	idx, popularNodes, popularMemos := p.snapshotLocked(now)

	if err := writeJSON(filepath.Join(p.cfg.Directory, indexesFileName), idx); err != nil {
		return err
	}
	if err := writeJSON(filepath.Join(p.cfg.Directory, nodesFileName), popularNodes); err != nil {
		return err
	}
	if err := writeJSON(filepath.Join(p.cfg.Directory, traversalFileName), popularMemos); err != nil {
		return err
	}
	return p.mirrorToBolt(popularNodes, popularMemos)
}

func (p *Persister) snapshotLocked(now time.Time) (indexesSnapshot, nodesSnapshot, traversalSnapshot) {
	threshold := int64(p.fabric.cfg.PopularityThreshold)

	var idx indexesSnapshot
	var nodesSnap nodesSnapshot
	var travSnap traversalSnapshot

	p.fabric.read(func() {
		idx = indexesSnapshot{
			Timestamp:        now,
			TypeIndex:        flattenSetIndex(p.fabric.typeIndex),
			RelTypeIndex:     flattenSetIndex(p.fabric.relTypeIndex),
			PropertyIndex:    flattenNestedSetIndex(p.fabric.propertyIndex),
			PrefixIndex:      flattenNestedSetIndex(p.fabric.prefixIndex),
			Adjacency:        flattenNestedSetIndex(p.fabric.adjacency),
			ReverseAdjacency: flattenNestedSetIndex(p.fabric.reverseAdjacency),
		}

		nodesSnap = nodesSnapshot{Timestamp: now, HitCounts: map[string]int64{}}
		for id, entry := range p.fabric.entities {
			hits := p.fabric.stats.hits["node:"+id]
			if hits > threshold {
				nodesSnap.Nodes = append(nodesSnap.Nodes, entry.node.Clone())
				nodesSnap.HitCounts[id] = hits
			}
		}

		travSnap = traversalSnapshot{Timestamp: now}
		for key, entry := range p.fabric.memo {
			if p.fabric.stats.hits["memo:"+key] > threshold {
				source, typ, dir := splitMemoKey(key)
				travSnap.Memos = append(travSnap.Memos, memoRecord{
					Source: source, Type: typ, Direction: dir,
					IDs: entry.ids, Timestamp: entry.timestamp,
				})
			}
		}
	})
	return idx, nodesSnap, travSnap
}

func flattenSetIndex(m map[string]map[string]struct{}) map[string][]string {
	out := make(map[string][]string, len(m))
	for k, set := range m {
		out[k] = setToSlice(set)
	}
	return out
}

func flattenNestedSetIndex(m map[string]map[string]map[string]struct{}) map[string]map[string][]string {
	out := make(map[string]map[string][]string, len(m))
	for k, inner := range m {
		out[k] = flattenSetIndex(inner)
	}
	return out
}

func splitMemoKey(key string) (source, typ string, dir model.Direction) {
	// memoKey joins with "|"; the split is unambiguous as long as
	// source and type contain no "|": engine-assigned ids are UUIDs and
	// the Validator limits type tags to [A-Za-z0-9_-].
	parts := make([]string, 0, 3)
	start := 0
	for i := 0; i < len(key); i++ {
		if key[i] == '|' {
			parts = append(parts, key[start:i])
			start = i + 1
		}
	}
	parts = append(parts, key[start:])
	if len(parts) != 3 {
		return "", "", ""
	}
	return parts[0], parts[1], model.Direction(parts[2])
}

func writeJSON(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// mirrorToBolt writes the popular subset into an embedded bbolt
// database alongside the JSON files, giving crash-safe ordered
// iteration for tooling that wants to inspect the warm cache without
// parsing JSON. JSON remains the canonical interchange format.
func (p *Persister) mirrorToBolt(nodes nodesSnapshot, trav traversalSnapshot) error {
	path := filepath.Join(p.cfg.Directory, boltFileName)
	db, err := bolt.Open(path, 0o644, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		p.logger.Warn("warm cache: bbolt mirror unavailable", zap.Error(err))
		return nil
	}
	defer db.Close()

	return db.Update(func(tx *bolt.Tx) error {
		nodesBucket, err := tx.CreateBucketIfNotExists([]byte("popular_nodes"))
		if err != nil {
			return err
		}
		for _, n := range nodes.Nodes {
			raw, err := json.Marshal(n)
			if err != nil {
				continue
			}
			if err := nodesBucket.Put([]byte(n.ID), raw); err != nil {
				return err
			}
		}

		memoBucket, err := tx.CreateBucketIfNotExists([]byte("popular_traversals"))
		if err != nil {
			return err
		}
		for _, rec := range trav.Memos {
			raw, err := json.Marshal(rec)
			if err != nil {
				continue
			}
			key := memoKey(rec.Source, rec.Type, rec.Direction)
			if err := memoBucket.Put([]byte(key), raw); err != nil {
				return err
			}
		}
		return nil
	})
}

// Start runs Persist on a ticking interval until ctx is cancelled.
func (p *Persister) Start(ctx context.Context) {
	if !p.cfg.Enabled {
		return
	}
	go func() {
		ticker := time.NewTicker(p.cfg.PersistenceInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := p.Persist(); err != nil {
					p.logger.Warn("warm cache: persist failed", zap.Error(err))
				}
			}
		}
	}()
}

package cache

import (
	"time"

	"github.com/brn2/gograph/internal/model"
)

// CacheNode inserts or refreshes a node in the entity cache and updates
// every index derived from it (type, property, compound, range,
// prefix) atomically with respect to concurrent readers.
func (f *Fabric) CacheNode(n *model.Node) {
	node := n.Clone()
	f.run(func() {
		if existing, ok := f.entities[node.ID]; ok {
			f.removeNodeIndexesLocked(existing.node)
			f.entityLRU.Remove(existing.lruElem)
		}
		f.evictIfFullLocked()

		elem := f.entityLRU.PushFront(node.ID)
		f.entities[node.ID] = &entityEntry{node: node, insertedAt: time.Now(), lruElem: elem}
		f.indexNodeLocked(node)
	})
}

// FetchNode returns a cached node by id, honoring TTL: an entry past
// its TTL is evicted and reported as a miss.
func (f *Fabric) FetchNode(id string) (*model.Node, bool) {
	var result *model.Node
	var hit bool
	// Runs immediately even while a batch is open, so lookups see the
	// pre-batch state instead of being queued.
	func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		entry, ok := f.entities[id]
		if !ok {
			f.stats.recordMiss("node:" + id)
			return
		}
		if time.Since(entry.insertedAt) > f.cfg.TTL {
			f.removeNodeIndexesLocked(entry.node)
			f.entityLRU.Remove(entry.lruElem)
			delete(f.entities, id)
			f.stats.recordMiss("node:" + id)
			return
		}
		f.stats.recordHit("node:" + id)
		f.entityLRU.MoveToFront(entry.lruElem)
		result = entry.node.Clone()
		hit = true
	}()
	return result, hit
}

// RemoveNode explicitly evicts a node and every index entry derived
// from it.
func (f *Fabric) RemoveNode(id string) {
	f.run(func() {
		entry, ok := f.entities[id]
		if !ok {
			return
		}
		f.removeNodeIndexesLocked(entry.node)
		f.entityLRU.Remove(entry.lruElem)
		delete(f.entities, id)
	})
}

// evictIfFullLocked evicts the least-recently-used entity (the back of
// entityLRU; inserts and FetchNode hits move an entry to the front) if
// the cache is at its configured ceiling. Must be called with mu held.
func (f *Fabric) evictIfFullLocked() {
	if len(f.entities) < f.cfg.MaxSize {
		return
	}
	back := f.entityLRU.Back()
	if back == nil {
		return
	}
	id := back.Value.(string)
	entry := f.entities[id]
	if entry != nil {
		f.removeNodeIndexesLocked(entry.node)
	}
	f.entityLRU.Remove(back)
	delete(f.entities, id)
}

// indexNodeLocked adds all derived index entries for node n. Must be
// called with mu held.
func (f *Fabric) indexNodeLocked(n *model.Node) {
	f.addToSetIndexLocked(f.typeIndex, n.Type, n.ID)

	for prop, val := range n.Properties {
		f.indexPropertyLocked(n.Type, prop, val, n.ID)
	}
	f.indexCompoundLocked(n)
}

// removeNodeIndexesLocked removes every derived index entry for node n.
// Must be called with mu held.
func (f *Fabric) removeNodeIndexesLocked(n *model.Node) {
	if n == nil {
		return
	}
	removeFromSetIndex(f.typeIndex, n.Type, n.ID)

	for prop, val := range n.Properties {
		f.removePropertyLocked(n.Type, prop, val, n.ID)
	}
	f.removeCompoundLocked(n)
}

func (f *Fabric) addToSetIndexLocked(idx map[string]map[string]struct{}, key, id string) {
	set, ok := idx[key]
	if !ok {
		set = make(map[string]struct{})
		idx[key] = set
	}
	set[id] = struct{}{}
}

func removeFromSetIndex(idx map[string]map[string]struct{}, key, id string) {
	set, ok := idx[key]
	if !ok {
		return
	}
	delete(set, id)
	if len(set) == 0 {
		delete(idx, key)
	}
}

package cache

import (
	"time"

	"github.com/brn2/gograph/internal/model"
)

// CacheRelationship inserts or refreshes a relationship in the
// relationship cache. Both adjacency maps and the relationship-type
// index are updated together, atomically with respect to concurrent
// readers, so the adjacency lists can never drift out of sync with the
// relationship cache they're derived from.
func (f *Fabric) CacheRelationship(r *model.Relationship) {
	rel := r.Clone()
	f.run(func() {
		key := rel.Key()
		if existing, ok := f.relationships[key]; ok {
			f.removeRelationshipIndexesLocked(existing.rel)
			f.relLRU.Remove(existing.lruElem)
		}
		f.evictRelIfFullLocked()

		elem := f.relLRU.PushFront(key)
		f.relationships[key] = &relationshipEntry{rel: rel, insertedAt: time.Now(), lruElem: elem}
		f.indexRelationshipLocked(rel)
	})
}

// FetchRelationship returns a cached relationship by its (source,
// target, type) triple, honoring TTL.
func (f *Fabric) FetchRelationship(source, target, typ string) (*model.Relationship, bool) {
	key := (&model.Relationship{Source: source, Target: target, Type: typ}).Key()
	var result *model.Relationship
	var hit bool
	// Runs immediately even while a batch is open, so lookups see the
	// pre-batch state instead of being queued.
	func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		entry, ok := f.relationships[key]
		if !ok {
			f.stats.recordMiss("rel:" + key)
			return
		}
		if time.Since(entry.insertedAt) > f.cfg.TTL {
			f.removeRelationshipIndexesLocked(entry.rel)
			f.relLRU.Remove(entry.lruElem)
			delete(f.relationships, key)
			f.stats.recordMiss("rel:" + key)
			return
		}
		f.stats.recordHit("rel:" + key)
		f.relLRU.MoveToFront(entry.lruElem)
		result = entry.rel.Clone()
		hit = true
	}()
	return result, hit
}

// RemoveRelationship explicitly evicts a relationship and its adjacency
// / relationship-type-index entries.
func (f *Fabric) RemoveRelationship(source, target, typ string) {
	key := (&model.Relationship{Source: source, Target: target, Type: typ}).Key()
	f.run(func() {
		entry, ok := f.relationships[key]
		if !ok {
			return
		}
		f.removeRelationshipIndexesLocked(entry.rel)
		f.relLRU.Remove(entry.lruElem)
		delete(f.relationships, key)
	})
}

func (f *Fabric) evictRelIfFullLocked() {
	if len(f.relationships) < f.cfg.MaxSize {
		return
	}
	back := f.relLRU.Back()
	if back == nil {
		return
	}
	key := back.Value.(string)
	entry := f.relationships[key]
	if entry != nil {
		f.removeRelationshipIndexesLocked(entry.rel)
	}
	f.relLRU.Remove(back)
	delete(f.relationships, key)
}

func (f *Fabric) indexRelationshipLocked(r *model.Relationship) {
	f.addToSetIndexLocked(f.relTypeIndex, r.Type, r.Key())

	srcByType, ok := f.adjacency[r.Source]
	if !ok {
		srcByType = make(map[string]map[string]struct{})
		f.adjacency[r.Source] = srcByType
	}
	targets, ok := srcByType[r.Type]
	if !ok {
		targets = make(map[string]struct{})
		srcByType[r.Type] = targets
	}
	targets[r.Target] = struct{}{}

	tgtByType, ok := f.reverseAdjacency[r.Target]
	if !ok {
		tgtByType = make(map[string]map[string]struct{})
		f.reverseAdjacency[r.Target] = tgtByType
	}
	sources, ok := tgtByType[r.Type]
	if !ok {
		sources = make(map[string]struct{})
		tgtByType[r.Type] = sources
	}
	sources[r.Source] = struct{}{}

	// Any memo covering this source/type is now stale; evicting it
	// forces a rebuild from the freshly-updated adjacency on next read.
	f.invalidateMemoLocked(r.Source, r.Type)
	f.invalidateMemoLocked(r.Target, r.Type)
}

func (f *Fabric) removeRelationshipIndexesLocked(r *model.Relationship) {
	if r == nil {
		return
	}
	removeFromSetIndex(f.relTypeIndex, r.Type, r.Key())

	if byType, ok := f.adjacency[r.Source]; ok {
		if targets, ok := byType[r.Type]; ok {
			delete(targets, r.Target)
			if len(targets) == 0 {
				delete(byType, r.Type)
			}
		}
		if len(byType) == 0 {
			delete(f.adjacency, r.Source)
		}
	}
	if byType, ok := f.reverseAdjacency[r.Target]; ok {
		if sources, ok := byType[r.Type]; ok {
			delete(sources, r.Source)
			if len(sources) == 0 {
				delete(byType, r.Type)
			}
		}
		if len(byType) == 0 {
			delete(f.reverseAdjacency, r.Target)
		}
	}

	f.invalidateMemoLocked(r.Source, r.Type)
	f.invalidateMemoLocked(r.Target, r.Type)
}

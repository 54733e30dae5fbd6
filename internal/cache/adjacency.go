package cache

import (
	"time"

	"github.com/brn2/gograph/internal/model"
)

// AdjacencyOut returns the cached set of target ids source points to
// via relationships of type typ, and whether an adjacency entry exists
// for source at all (distinguishing "no edges" from "never seen").
func (f *Fabric) AdjacencyOut(source, typ string) ([]string, bool) {
	var out []string
	var known bool
	f.read(func() {
		byType, ok := f.adjacency[source]
		known = ok
		if !ok {
			return
		}
		out = setToSlice(byType[typ])
	})
	return out, known
}

// AdjacencyIn returns the cached set of source ids that point to target
// via relationships of type typ.
func (f *Fabric) AdjacencyIn(target, typ string) ([]string, bool) {
	var out []string
	var known bool
	f.read(func() {
		byType, ok := f.reverseAdjacency[target]
		known = ok
		if !ok {
			return
		}
		out = setToSlice(byType[typ])
	})
	return out, known
}

func memoKey(source, typ string, dir model.Direction) string {
	return source + "|" + typ + "|" + string(dir)
}

// MemoGet returns a memoized traversal result for (source, typ, dir) if
// present and within TTL.
func (f *Fabric) MemoGet(source, typ string, dir model.Direction) ([]string, bool) {
	key := memoKey(source, typ, dir)
	start := time.Now()
	var out []string
	var hit bool
	// Runs immediately even while a batch is open, so lookups see the
	// pre-batch state instead of being queued.
	func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		entry, ok := f.memo[key]
		if !ok {
			f.stats.recordMiss("memo:" + key)
			return
		}
		if time.Since(entry.timestamp) > f.cfg.TTL {
			delete(f.memo, key)
			f.stats.recordMiss("memo:" + key)
			return
		}
		f.stats.recordHit("memo:" + key)
		f.stats.recordTraversalTime(key, time.Since(start))
		out = append([]string(nil), entry.ids...)
		hit = true
	}()
	return out, hit
}

// MemoPut stores a traversal result for (source, typ, dir).
func (f *Fabric) MemoPut(source, typ string, dir model.Direction, ids []string) {
	key := memoKey(source, typ, dir)
	f.run(func() {
		f.memo[key] = memoEntry{ids: append([]string(nil), ids...), timestamp: time.Now()}
	})
}

// invalidateMemoLocked drops every direction's memo entry for id/typ.
// Must be called with mu held.
func (f *Fabric) invalidateMemoLocked(id, typ string) {
	delete(f.memo, memoKey(id, typ, model.DirectionOut))
	delete(f.memo, memoKey(id, typ, model.DirectionIn))
	delete(f.memo, memoKey(id, typ, model.DirectionBoth))
}

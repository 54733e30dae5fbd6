// Package traversal implements the Traversal Engine: given a source
// node id, a relationship type, and a direction, it returns the
// connected nodes, resolving through three layers in order —
// traversal memo, adjacency list, cold backend scan — the way
// GraphQueryService.traverseGraph builds an adjacency map before
// walking it, generalized here into a persistent, incrementally
// maintained cache instead of a per-request rebuild.
package traversal

import (
	"context"
	"encoding/json"
	"sort"

	"go.uber.org/zap"

	"github.com/brn2/gograph/internal/backend"
	"github.com/brn2/gograph/internal/cache"
	"github.com/brn2/gograph/internal/gerrors"
	"github.com/brn2/gograph/internal/model"
	"github.com/brn2/gograph/internal/shardplacer"
)

// Visibility reports whether a node is visible to the caller; the
// Permission Gate supplies this. A nil Visibility admits everything.
type Visibility func(*model.Node) bool

// Engine resolves relationship traversals against the Cache Fabric,
// falling back to the Storage Backend on a cold cache.
type Engine struct {
	fabric  *cache.Fabric
	backend backend.Backend
	placer  *shardplacer.Placer
	logger  *zap.Logger
}

// New builds a traversal Engine.
func New(fabric *cache.Fabric, be backend.Backend, placer *shardplacer.Placer, logger *zap.Logger) *Engine {
	return &Engine{fabric: fabric, backend: be, placer: placer, logger: logger}
}

// Related returns the nodes reachable from source via relationships of
// type relType in the given direction, filtered by visible. Nodes that
// no longer exist at load time are silently dropped — a vanished
// endpoint is not a traversal error. skipCache forces the cold path:
// memo and adjacency are bypassed entirely and the id set is read
// straight from the backend, the way a caller verifies the backend is
// itself consistent rather than trusting whatever the Cache Fabric has
// accumulated.
func (e *Engine) Related(ctx context.Context, source, relType string, dir model.Direction, visible Visibility, skipCache bool) ([]*model.Node, error) {
	ids, err := e.relatedIDs(ctx, source, relType, dir, skipCache)
	if err != nil {
		return nil, err
	}

	nodes := make([]*model.Node, 0, len(ids))
	for _, id := range ids {
		n, err := e.ResolveNode(ctx, id)
		if err != nil {
			if gerrors.Is(err, gerrors.KindNodeNotFound) {
				continue
			}
			return nil, err
		}
		if visible != nil && !visible(n) {
			continue
		}
		nodes = append(nodes, n)
	}
	return nodes, nil
}

// relatedIDs resolves the id set for (source, relType, dir) through
// memo, then adjacency, then the cold backend scan — populating each
// faster layer from the slower one it fell through to. skipCache
// bypasses memo and adjacency unconditionally, going straight to
// coldScan, and still repopulates both on the way back so a later
// cache-permitting call benefits from the forced scan.
func (e *Engine) relatedIDs(ctx context.Context, source, relType string, dir model.Direction, skipCache bool) ([]string, error) {
	if !skipCache {
		if ids, hit := e.fabric.MemoGet(source, relType, dir); hit {
			return ids, nil
		}

		if ids, ok := e.adjacencyIDs(source, relType, dir); ok {
			e.fabric.MemoPut(source, relType, dir, ids)
			return ids, nil
		}
	}

	ids, err := e.coldScan(ctx, source, relType, dir)
	if err != nil {
		return nil, err
	}
	e.fabric.MemoPut(source, relType, dir, ids)
	return ids, nil
}

// adjacencyIDs consults the adjacency lists built from previously
// cached relationships. It reports ok=false, meaning "cache doesn't
// know", when the Fabric holds no adjacency entry for source in the
// direction(s) it needs — never populated, or dropped once the last
// cached relationship there was removed or evicted; an entry that is
// known but has no ids for relType is a true "zero neighbors" answer.
func (e *Engine) adjacencyIDs(source, relType string, dir model.Direction) ([]string, bool) {
	switch dir {
	case model.DirectionOut:
		return e.fabric.AdjacencyOut(source, relType)
	case model.DirectionIn:
		return e.fabric.AdjacencyIn(source, relType)
	case model.DirectionBoth:
		out, outKnown := e.fabric.AdjacencyOut(source, relType)
		in, inKnown := e.fabric.AdjacencyIn(source, relType)
		if !outKnown || !inKnown {
			return nil, false
		}
		return unionDedup(out, in), true
	default:
		return nil, false
	}
}

// coldScan lists every relationship of relType from the backend,
// caching each one it loads, and keeps the ids touching source in the
// requested direction.
func (e *Engine) coldScan(ctx context.Context, source, relType string, dir model.Direction) ([]string, error) {
	prefix := backend.RelationshipTypePrefix(relType)
	keys, err := e.backend.ListKeys(ctx, prefix)
	if err != nil {
		return nil, gerrors.BackendIO("list-relationships", err)
	}

	var ids []string
	for _, key := range keys {
		raw, err := e.backend.Get(ctx, key)
		if err != nil {
			if err == backend.ErrNotFound {
				continue
			}
			return nil, gerrors.BackendIO("get-relationship", err)
		}
		var rel model.Relationship
		if err := json.Unmarshal(raw, &rel); err != nil {
			e.logger.Warn("skipping malformed relationship record", zap.String("key", key), zap.Error(err))
			continue
		}
		e.fabric.CacheRelationship(&rel)

		switch dir {
		case model.DirectionOut:
			if rel.Source == source {
				ids = append(ids, rel.Target)
			}
		case model.DirectionIn:
			if rel.Target == source {
				ids = append(ids, rel.Source)
			}
		case model.DirectionBoth:
			if rel.Source == source {
				ids = append(ids, rel.Target)
			} else if rel.Target == source {
				ids = append(ids, rel.Source)
			}
		}
	}
	sort.Strings(ids)
	return ids, nil
}

// ResolveNode resolves a node cache-first, falling through to the
// backend and repopulating the cache on a miss. The Engine Facade
// shares this lookup for plain by-id gets.
func (e *Engine) ResolveNode(ctx context.Context, id string) (*model.Node, error) {
	if n, hit := e.fabric.FetchNode(id); hit {
		return n, nil
	}

	typ, shardPath, raw, err := e.scanForNode(ctx, id)
	if err != nil {
		return nil, err
	}
	var n model.Node
	if err := json.Unmarshal(raw, &n); err != nil {
		return nil, gerrors.BackendIO("decode-node:"+typ+"/"+shardPath, err)
	}
	e.fabric.CacheNode(&n)
	return &n, nil
}

// scanForNode finds a node's backend record by id alone, since the
// traversal layer knows an id but not its type. It lists every key
// under the nodes root to learn the type names, then probes each type
// once at the shard path derived from the id, mirroring the Shard
// Placer's own path derivation.
func (e *Engine) scanForNode(ctx context.Context, id string) (typ, shardPath string, raw []byte, err error) {
	typePrefixes, err := e.backend.ListKeys(ctx, backend.NodesRoot)
	if err != nil {
		return "", "", nil, gerrors.BackendIO("list-node-types", err)
	}
	seen := map[string]bool{}
	for _, key := range typePrefixes {
		t := nodeTypeFromKey(key)
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true

		sp := e.placer.Path(id)
		nodeKey := backend.NodeKey(t, sp, id)
		data, getErr := e.backend.Get(ctx, nodeKey)
		if getErr == nil {
			return t, sp, data, nil
		}
		if getErr != backend.ErrNotFound {
			return "", "", nil, gerrors.BackendIO("get-node:"+nodeKey, getErr)
		}
	}
	return "", "", nil, gerrors.NodeNotFound(id)
}

// nodeTypeFromKey extracts the <type> segment from a key of the form
// nodes/<type>/<shard-path...>/<id>.json.
func nodeTypeFromKey(key string) string {
	rest := key[len(backend.NodesRoot):]
	for i := 0; i < len(rest); i++ {
		if rest[i] == '/' {
			return rest[:i]
		}
	}
	return ""
}

func unionDedup(a, b []string) []string {
	set := make(map[string]struct{}, len(a)+len(b))
	out := make([]string, 0, len(a)+len(b))
	for _, id := range a {
		if _, ok := set[id]; !ok {
			set[id] = struct{}{}
			out = append(out, id)
		}
	}
	for _, id := range b {
		if _, ok := set[id]; !ok {
			set[id] = struct{}{}
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return out
}

package graph

import (
	"context"
	"path"
	"strings"

	"github.com/brn2/gograph/internal/backend"
	"github.com/brn2/gograph/internal/gerrors"
	"github.com/brn2/gograph/internal/model"
)

// nodeLoader adapts an Engine to the query package's Loader interface,
// so the Query Executor can plan against the Cache Fabric's indexes
// and fall through to the Storage Backend for anything the cache
// doesn't cover.
type nodeLoader struct {
	engine *Engine
	ctx    context.Context
}

// TypeCandidates reports the Cache Fabric's type index, and whether
// the index actually holds an entry for typ. A cold cache that has
// never seen a node of typ reports ok=false so plan falls back to
// ScanAll instead of treating "nothing cached yet" as "nothing
// exists" — the same distinction AdjacencyOut makes for traversal.
func (l *nodeLoader) TypeCandidates(typ string) ([]string, bool) {
	return l.engine.fabric.QueryByType(typ)
}

// PropertyCandidates reports the Cache Fabric's property index the
// same way TypeCandidates does, ok=false meaning the index holds no
// entry for that exact property value rather than a confirmed zero.
func (l *nodeLoader) PropertyCandidates(typ, property string, val model.Value) ([]string, bool) {
	return l.engine.fabric.QueryByProperty(typ, property, val)
}

// ScanAll lists every node id of typ (or every node id of every type,
// when typ is empty) directly from the backend, the fallback path used
// when a query's filter carries no type or property equality hint.
func (l *nodeLoader) ScanAll(typ string) ([]string, error) {
	prefix := backend.NodesRoot
	if typ != "" {
		prefix = backend.NodeTypePrefix(typ)
	}
	keys, err := l.engine.backend.ListKeys(l.ctx, prefix)
	if err != nil {
		return nil, gerrors.BackendIO("scan-nodes:"+prefix, err)
	}
	ids := make([]string, 0, len(keys))
	for _, key := range keys {
		ids = append(ids, idFromNodeKey(key))
	}
	return ids, nil
}

// LoadNode fetches a node by id, cache-first falling through to the
// backend, sharing the Traversal Engine's own lookup.
func (l *nodeLoader) LoadNode(id string) (*model.Node, error) {
	return l.engine.traverser.ResolveNode(l.ctx, id)
}

// idFromNodeKey extracts the <id> segment from a key of the form
// nodes/<type>/<shard-path...>/<id>.json.
func idFromNodeKey(key string) string {
	base := path.Base(key)
	return strings.TrimSuffix(base, ".json")
}

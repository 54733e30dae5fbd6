// Package backend defines the bytes-level storage contract implemented
// identically by the filesystem backend (internal/backend/fs) and the
// S3-compatible object-store backend (internal/backend/s3backend).
package backend

import (
	"context"
	"errors"
)

// ErrNotFound is the distinguished not-found signal. It is not wrapped
// in a GraphError here because "not found" at the bytes layer is a
// normal outcome, not a failure — the Engine Facade is responsible for
// translating a backend miss into the appropriate gerrors.NodeNotFound /
// gerrors.RelationshipNotFound at the API boundary.
var ErrNotFound = errors.New("backend: key not found")

// Backend is the bytes-level create/read/update/delete contract, keyed
// by the shard-placed relative path computed by internal/shardplacer.
// Implementations must propagate transport/IO errors unchanged (the
// caller wraps them as gerrors.BackendIO).
type Backend interface {
	// Put writes value at key, creating or overwriting it.
	Put(ctx context.Context, key string, value []byte) error
	// Get reads the bytes stored at key. Returns ErrNotFound if absent.
	Get(ctx context.Context, key string) ([]byte, error)
	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error
	// ListKeys lists all keys under prefix.
	ListKeys(ctx context.Context, prefix string) ([]string, error)
}

// NodeKey returns the canonical key for a node of the given type, id,
// and shard path: nodes/<type>/<shard-path>/<id>.json
func NodeKey(typ, shardPath, id string) string {
	return "nodes/" + typ + "/" + shardPath + "/" + id + ".json"
}

// NodeTypePrefix returns the prefix under which all nodes of a type
// live, used both for "list entities of a type" and for the
// type-enumeration fallback in get-by-id-only lookups.
func NodeTypePrefix(typ string) string {
	return "nodes/" + typ + "/"
}

// RelationshipKey returns the canonical key for a relationship of the
// given type, shard path, and endpoints:
// relationships/<type>/<shard-path>/<source>__<target>.json
func RelationshipKey(typ, shardPath, source, target string) string {
	return "relationships/" + typ + "/" + shardPath + "/" + source + "__" + target + ".json"
}

// RelationshipTypePrefix returns the prefix under which all
// relationships of a type live, the directory the Traversal Engine's
// cold path lists.
func RelationshipTypePrefix(typ string) string {
	return "relationships/" + typ + "/"
}

// NodesRoot and RelationshipsRoot are the two top-level roots under
// which type prefixes are enumerated.
const (
	NodesRoot         = "nodes/"
	RelationshipsRoot = "relationships/"
)

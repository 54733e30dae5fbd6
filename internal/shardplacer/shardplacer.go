// Package shardplacer implements the deterministic id-to-directory-path
// function that underlies the content-addressed, sharded object layout
// shared by the filesystem and S3-compatible backends.
package shardplacer

import (
	"crypto/sha256"
	"fmt"
	"strings"
)

// DefaultShards and DefaultLevels are the defaults applied when a
// caller doesn't configure its own shard count or nesting depth.
const (
	DefaultShards = 256
	DefaultLevels = 2
)

// Placer computes shard paths for a fixed (numShards, levels)
// configuration. Two Placers with identical configuration always
// produce identical output for the same id, across process instances.
type Placer struct {
	numShards int
	levels    int
}

// New returns a Placer configured with numShards and levels. Values
// less than or equal to zero fall back to the documented defaults.
func New(numShards, levels int) *Placer {
	if numShards <= 0 {
		numShards = DefaultShards
	}
	if levels <= 0 {
		levels = DefaultLevels
	}
	return &Placer{numShards: numShards, levels: levels}
}

// Path computes the shard-relative directory path for id: a SHA-256
// digest of id is taken, the first `levels` bytes are each reduced
// modulo numShards, and each becomes a three-digit zero-padded decimal
// path segment.
func (p *Placer) Path(id string) string {
	sum := sha256.Sum256([]byte(id))
	segments := make([]string, p.levels)
	for i := 0; i < p.levels; i++ {
		bucket := int(sum[i]) % p.numShards
		segments[i] = fmt.Sprintf("%03d", bucket)
	}
	return strings.Join(segments, "/")
}

// RelationshipPath computes the shard path for a relationship, hashing
// the directional concatenation of its endpoints so that reversing the
// endpoints yields a different path.
func (p *Placer) RelationshipPath(source, target string) string {
	return p.Path(source + "__" + target)
}

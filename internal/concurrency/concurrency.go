// Package concurrency implements the optimistic version check: every
// node and relationship carries a monotonically incrementing Version,
// and an update naming an expectedVersion must match the entity's
// current version exactly or be rejected. This generalizes
// shared.VersionConsistencyRule, where a rule object compared a
// recorded expected version against an aggregate's GetVersion() inside
// a consistency boundary; here the same comparison is a standalone
// check the Engine Facade runs before every write.
package concurrency

import "github.com/brn2/gograph/internal/gerrors"

// CheckVersion returns a ConcurrentModification error if expected does
// not match current. expected <= 0 means "no version was supplied",
// which skips the check — callers that don't care about optimistic
// locking may omit it.
func CheckVersion(entityID string, current, expected int) error {
	if expected <= 0 {
		return nil
	}
	if current != expected {
		return gerrors.ConcurrentModification(entityID, expected, current)
	}
	return nil
}

// NextVersion returns the version an entity should carry after a
// successful update.
func NextVersion(current int) int {
	return current + 1
}

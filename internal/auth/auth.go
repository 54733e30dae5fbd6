// Package auth implements the Permission Gate: it decides whether a
// caller may see or write a given node or relationship. Where
// internal/repository.NodeQuery.UserID scopes every repository query
// by a single owning user id, this generalizes that single-owner
// scoping into a caller-held permission set checked for intersection
// against the entity's declared permissions.
package auth

import "github.com/brn2/gograph/internal/model"

// Context is the caller's authorization context for one operation.
type Context struct {
	Permissions []string
	IsAdmin     bool
}

// NewContext builds a non-admin Context holding the given permissions.
func NewContext(permissions ...string) Context {
	return Context{Permissions: permissions}
}

// AdminContext builds a Context that bypasses every permission check.
func AdminContext() Context {
	return Context{IsAdmin: true}
}

// CanSeeNode reports whether the caller may read n: admins always can;
// otherwise the caller must hold at least one of n's permissions, or n
// must declare no permissions at all (public).
func (c Context) CanSeeNode(n *model.Node) bool {
	if c.IsAdmin {
		return true
	}
	return hasIntersection(c.Permissions, n.Permissions)
}

// CanSeeRelationship reports whether the caller may traverse or read r.
func (c Context) CanSeeRelationship(r *model.Relationship) bool {
	if c.IsAdmin {
		return true
	}
	return hasIntersection(c.Permissions, r.Permissions)
}

// CanCreateNode reports whether the caller may create a node declaring
// permissions perms: a non-admin caller must own at least one of the
// permissions they are about to grant the node; the other entries in
// perms need not be held by the caller. An empty perms is allowed.
func (c Context) CanCreateNode(perms []string) bool {
	if c.IsAdmin {
		return true
	}
	if len(perms) == 0 {
		return true
	}
	return hasIntersection(c.Permissions, perms)
}

// CanCreateRelationship reports whether the caller may create a
// relationship declaring permissions perms between source and target,
// given that both endpoints are already visible to the caller. Callers
// must check endpoint visibility themselves before calling this, since
// that check requires the nodes to be loaded.
func (c Context) CanCreateRelationship(perms []string) bool {
	return c.CanCreateNode(perms)
}

func hasIntersection(held, required []string) bool {
	if len(required) == 0 {
		return true
	}
	heldSet := make(map[string]struct{}, len(held))
	for _, p := range held {
		heldSet[p] = struct{}{}
	}
	for _, p := range required {
		if _, ok := heldSet[p]; ok {
			return true
		}
	}
	return false
}

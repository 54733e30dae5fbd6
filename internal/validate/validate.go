// Package validate implements the structural and safety checks on
// entities and query limits. It mirrors the centralized
// validation-service shape of internal/interfaces/http/validation but
// validates the graph's own domain types rather than HTTP DTOs.
package validate

import (
	"encoding/json"
	"fmt"
	"regexp"

	"github.com/brn2/gograph/internal/gerrors"
	"github.com/brn2/gograph/internal/model"
)

var (
	typeTagRegex = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)
	propKeyRegex = regexp.MustCompile(`^[A-Za-z0-9_.\-]+$`)
)

const (
	MaxTypeTagLength    = 100
	MaxTopLevelKeys     = 1000
	MaxPropertyKeyLen   = 100
	MaxPropertyValueSize = 1 << 20 // 1 MiB
	MaxPermissionLen    = 50
	MinPermissionLen    = 1

	DefaultQueryLimit = 1000
	MaxQueryLimit     = 10000
)

// Validator runs the structural rules. It is stateless and safe for
// concurrent use, matching the singleton validator pattern without
// requiring one (no global mutable state to protect).
type Validator struct{}

func New() *Validator { return &Validator{} }

// ValidateNodeForCreate checks a node's type tag, property map, and
// permission set ahead of a create.
func (v *Validator) ValidateNodeForCreate(n *model.Node) error {
	if err := v.validateTypeTag(n.Type); err != nil {
		return err
	}
	if err := v.validatePermissions(n.Permissions); err != nil {
		return err
	}
	return v.validateProperties(n.Properties)
}

// ValidateNodeForUpdate checks an update payload against the immutable
// fields (id, type) and requires at least one field to change.
func (v *Validator) ValidateNodeForUpdate(updates map[string]interface{}) error {
	if len(updates) == 0 {
		return gerrors.Validation("updates", "update payload must be non-empty", updates)
	}
	for _, immutable := range []string{"id", "type"} {
		if _, ok := updates[immutable]; ok {
			return gerrors.Validation(immutable, "field is immutable and cannot be updated", updates[immutable])
		}
	}
	if props, ok := updates["properties"].(map[string]model.Value); ok {
		if err := v.validateProperties(props); err != nil {
			return err
		}
	}
	if perms, ok := updates["permissions"].([]string); ok {
		if err := v.validatePermissions(perms); err != nil {
			return err
		}
	}
	return nil
}

// ValidateRelationshipForCreate checks a relationship's type tag and
// permission/property shape. Source/target existence and visibility are
// checked elsewhere (Permission Gate, Engine Facade), not here.
func (v *Validator) ValidateRelationshipForCreate(r *model.Relationship) error {
	if err := v.validateTypeTag(r.Type); err != nil {
		return err
	}
	if r.Permissions != nil {
		if err := v.validatePermissions(r.Permissions); err != nil {
			return err
		}
	}
	if r.Properties != nil {
		if err := v.validateProperties(r.Properties); err != nil {
			return err
		}
	}
	return nil
}

// ValidateRelationshipForUpdate forbids touching source/target/type and
// requires a non-empty payload.
func (v *Validator) ValidateRelationshipForUpdate(updates map[string]interface{}) error {
	if len(updates) == 0 {
		return gerrors.Validation("updates", "update payload must be non-empty", updates)
	}
	for _, immutable := range []string{"source", "target", "type"} {
		if _, ok := updates[immutable]; ok {
			return gerrors.Validation(immutable, "field is immutable and cannot be updated", updates[immutable])
		}
	}
	return nil
}

// ValidateQueryLimit enforces the positive-default-ceiling rule for
// pagination limits.
func (v *Validator) ValidateQueryLimit(limit int) (int, error) {
	if limit <= 0 {
		return DefaultQueryLimit, nil
	}
	if limit > MaxQueryLimit {
		return 0, gerrors.QueryLimitExceeded(limit, MaxQueryLimit)
	}
	return limit, nil
}

func (v *Validator) validateTypeTag(typ string) error {
	if typ == "" {
		return gerrors.Validation("type", "type tag must not be empty", typ)
	}
	if len(typ) > MaxTypeTagLength {
		return gerrors.Validation("type", fmt.Sprintf("type tag exceeds %d characters", MaxTypeTagLength), typ)
	}
	if !typeTagRegex.MatchString(typ) {
		return gerrors.Validation("type", "type tag must match [A-Za-z0-9_-]+", typ)
	}
	return nil
}

func (v *Validator) validatePermissions(perms []string) error {
	if len(perms) == 0 {
		return gerrors.Validation("permissions", "permission set must be non-empty", perms)
	}
	for _, p := range perms {
		if len(p) < MinPermissionLen || len(p) > MaxPermissionLen {
			return gerrors.Validation("permissions", fmt.Sprintf("each permission token must be %d-%d chars", MinPermissionLen, MaxPermissionLen), p)
		}
	}
	return nil
}

func (v *Validator) validateProperties(props map[string]model.Value) error {
	if props == nil {
		return gerrors.Validation("properties", "property map must not be nil", props)
	}
	if len(props) > MaxTopLevelKeys {
		return gerrors.Validation("properties", fmt.Sprintf("property map exceeds %d top-level keys", MaxTopLevelKeys), len(props))
	}
	for k, val := range props {
		if err := v.validateKey(k); err != nil {
			return err
		}
		if raw, err := json.Marshal(val); err == nil && len(raw) > MaxPropertyValueSize {
			return gerrors.Validation(k, "value exceeds 1 MiB serialized size", len(raw))
		}
		if err := v.validateValue(k, val, 0); err != nil {
			return err
		}
	}
	return nil
}

func (v *Validator) validateKey(key string) error {
	if len(key) > MaxPropertyKeyLen {
		return gerrors.Validation("properties", fmt.Sprintf("property key exceeds %d characters", MaxPropertyKeyLen), key)
	}
	if !propKeyRegex.MatchString(key) {
		return gerrors.Validation("properties", "property key must match [A-Za-z0-9_.\\-]+", key)
	}
	if model.ReservedPropertyKeys[key] {
		return gerrors.Validation("properties", "property key is reserved", key)
	}
	return nil
}

// validateValue recurses into list/map values to enforce key rules and
// nesting depth. Scalar values cannot be callables by construction: the
// Value sum type has no function kind to represent one.
func (v *Validator) validateValue(field string, val model.Value, depth int) error {
	switch val.Kind {
	case model.KindList:
		for _, item := range val.L {
			if err := v.validateValue(field, item, depth+1); err != nil {
				return err
			}
		}
	case model.KindMap:
		if depth >= model.MaxNestingDepth {
			return gerrors.Validation(field, "nested map exceeds maximum depth", depth)
		}
		for k, item := range val.M {
			if err := v.validateKey(k); err != nil {
				return err
			}
			if err := v.validateValue(field+"."+k, item, depth+1); err != nil {
				return err
			}
		}
	}
	return nil
}

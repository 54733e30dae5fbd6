package query

import "github.com/brn2/gograph/internal/model"

// Loader supplies the candidate sources an evaluation plan can draw
// on: the Cache Fabric's type/property indexes as optimization hints,
// and a full scan as the always-correct fallback. Index hits are never
// trusted on their own — Execute always re-runs the complete filter
// predicate against whatever a Loader returns.
type Loader interface {
	// TypeCandidates returns cached node ids of the given type, and
	// whether the type index held an entry at all (an empty-but-known
	// entry still short-circuits the scan).
	TypeCandidates(typ string) (ids []string, ok bool)
	// PropertyCandidates returns cached node ids of the given type
	// whose property equals val, and whether the index held an entry.
	PropertyCandidates(typ, property string, val model.Value) (ids []string, ok bool)
	// ScanAll returns every known node id of the given type (typ=""
	// for every type), consulting the backend when the cache can't
	// answer authoritatively.
	ScanAll(typ string) ([]string, error)
	// LoadNode fetches a node by id, cache-first falling through to
	// the backend on miss.
	LoadNode(id string) (*model.Node, error)
}

// plan resolves the candidate id set for filter using the typeIndex
// hint when the filter is a top-level conjunction containing an
// equality leaf on "type", narrowed through the propertyIndex when the
// conjunction also holds a properties.X equality leaf; a properties.X
// leaf without a type leaf gives no hint. Otherwise it falls back to a
// full scan.
func plan(loader Loader, f *Filter) ([]string, error) {
	typeHint, propHint := conjunctiveHints(f)

	var candidates []string
	var haveCandidates bool

	if typeHint != "" {
		if ids, ok := loader.TypeCandidates(typeHint); ok {
			candidates = ids
			haveCandidates = true
		}
	}

	if typeHint != "" && propHint != nil {
		if ids, ok := loader.PropertyCandidates(typeHint, propHint.property, propHint.value); ok {
			if haveCandidates {
				candidates = intersect(candidates, ids)
			} else {
				candidates = ids
				haveCandidates = true
			}
		}
	}

	if haveCandidates {
		return candidates, nil
	}
	return loader.ScanAll(typeHint)
}

type propertyHint struct {
	property string
	value    model.Value
}

// conjunctiveHints walks the top-level AND-conjunction of f (a bare
// leaf counts as a one-element conjunction) and extracts an equality
// constraint on "type" and the first equality constraint on a
// properties.X field, if present. OR and NOT branches can't safely
// narrow the candidate set from a single arm, so they yield no hints.
func conjunctiveHints(f *Filter) (typeHint string, propHint *propertyHint) {
	for _, leaf := range conjunctiveEqLeaves(f) {
		if leaf.Field == "type" && typeHint == "" {
			typeHint = leaf.Value.S
			continue
		}
		if prop, ok := IsPropertyPath(leaf.Field); ok && propHint == nil {
			propHint = &propertyHint{property: prop, value: leaf.Value}
		}
	}
	return typeHint, propHint
}

func conjunctiveEqLeaves(f *Filter) []*Filter {
	if f == nil {
		return nil
	}
	if f.IsLeaf() {
		if f.Operator == OpEq {
			return []*Filter{f}
		}
		return nil
	}
	if f.Logic != LogicAnd {
		return nil
	}
	var out []*Filter
	for _, child := range f.Children {
		out = append(out, conjunctiveEqLeaves(child)...)
	}
	return out
}

func intersect(a, b []string) []string {
	set := make(map[string]struct{}, len(b))
	for _, id := range b {
		set[id] = struct{}{}
	}
	var out []string
	for _, id := range a {
		if _, ok := set[id]; ok {
			out = append(out, id)
		}
	}
	return out
}

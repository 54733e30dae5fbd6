package query

import (
	"strings"

	"github.com/brn2/gograph/internal/model"
)

const propertiesPrefix = "properties."

// ResolveField resolves a field path against a node. Supported paths
// are "type" and "properties.<dotted.path>"; any other path, or a path
// whose intermediate segment isn't a map, resolves to (undefined,
// false).
func ResolveField(n *model.Node, path string) (model.Value, bool) {
	if path == "type" {
		return model.String(n.Type), true
	}
	if !strings.HasPrefix(path, propertiesPrefix) {
		return model.Value{}, false
	}
	rest := strings.TrimPrefix(path, propertiesPrefix)
	if rest == "" {
		return model.Value{}, false
	}
	return resolveInMap(n.Properties, strings.Split(rest, "."))
}

func resolveInMap(m map[string]model.Value, segments []string) (model.Value, bool) {
	if len(segments) == 0 {
		return model.Value{}, false
	}
	val, ok := m[segments[0]]
	if !ok {
		return model.Value{}, false
	}
	if len(segments) == 1 {
		return val, true
	}
	if val.Kind != model.KindMap {
		return model.Value{}, false
	}
	return resolveInMap(val.M, segments[1:])
}

// IsPropertyPath reports whether path addresses a node property (as
// opposed to "type"), and returns the property's own dotted path
// (without the "properties." prefix).
func IsPropertyPath(path string) (string, bool) {
	if !strings.HasPrefix(path, propertiesPrefix) {
		return "", false
	}
	return strings.TrimPrefix(path, propertiesPrefix), true
}

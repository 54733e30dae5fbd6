package cache

import (
	"encoding/json"
	"sort"
	"strings"

	"github.com/brn2/gograph/internal/model"
)

func propKey(typ, prop string) string { return typ + "|" + prop }

func jsonKey(v model.Value) string {
	raw, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(raw)
}

// indexPropertyLocked adds id to the property index, the prefix index
// (for string values), and extends/creates a range bucket (for numeric
// values on a configured range index). Must be called with mu held.
func (f *Fabric) indexPropertyLocked(typ, prop string, val model.Value, id string) {
	key := propKey(typ, prop)
	m, ok := f.propertyIndex[key]
	if !ok {
		m = make(map[string]map[string]struct{})
		f.propertyIndex[key] = m
	}
	jk := jsonKey(val)
	set, ok := m[jk]
	if !ok {
		set = make(map[string]struct{})
		m[jk] = set
	}
	set[id] = struct{}{}

	if val.Kind == model.KindString {
		f.indexPrefixLocked(typ, prop, val.S, id)
	}
	if val.Kind == model.KindNumber && f.hasRangeIndexLocked(typ, prop) {
		f.indexRangeLocked(typ, prop, val.N, id)
	}
}

func (f *Fabric) removePropertyLocked(typ, prop string, val model.Value, id string) {
	key := propKey(typ, prop)
	if m, ok := f.propertyIndex[key]; ok {
		jk := jsonKey(val)
		if set, ok := m[jk]; ok {
			delete(set, id)
			if len(set) == 0 {
				delete(m, jk)
			}
		}
		if len(m) == 0 {
			delete(f.propertyIndex, key)
		}
	}
	if val.Kind == model.KindString {
		f.removePrefixLocked(typ, prop, val.S, id)
	}
	if val.Kind == model.KindNumber {
		f.removeRangeLocked(typ, prop, val.N, id)
	}
}

// ============================================================================
// Prefix index — always on for string properties.
// ============================================================================

func (f *Fabric) indexPrefixLocked(typ, prop, s string, id string) {
	key := propKey(typ, prop)
	m, ok := f.prefixIndex[key]
	if !ok {
		m = make(map[string]map[string]struct{})
		f.prefixIndex[key] = m
	}
	runes := []rune(s)
	for i := 1; i <= len(runes); i++ {
		prefix := string(runes[:i])
		set, ok := m[prefix]
		if !ok {
			set = make(map[string]struct{})
			m[prefix] = set
		}
		set[id] = struct{}{}
	}
}

func (f *Fabric) removePrefixLocked(typ, prop, s string, id string) {
	key := propKey(typ, prop)
	m, ok := f.prefixIndex[key]
	if !ok {
		return
	}
	runes := []rune(s)
	for i := 1; i <= len(runes); i++ {
		prefix := string(runes[:i])
		if set, ok := m[prefix]; ok {
			delete(set, id)
			if len(set) == 0 {
				delete(m, prefix)
			}
		}
	}
	if len(m) == 0 {
		delete(f.prefixIndex, key)
	}
}

// QueryByPrefix returns node ids of type typ whose property prop is a
// string beginning with prefix.
func (f *Fabric) QueryByPrefix(typ, prop, prefix string) []string {
	var out []string
	f.read(func() {
		f.stats.recordIndexAccess("prefix:" + propKey(typ, prop))
		m, ok := f.prefixIndex[propKey(typ, prop)]
		if !ok {
			return
		}
		set, ok := m[prefix]
		if !ok {
			return
		}
		out = setToSlice(set)
	})
	return out
}

// ============================================================================
// Compound index — configured (type, ordered property list).
// ============================================================================

func compoundKey(typ string, props []string) string {
	return typ + "|" + strings.Join(props, ",")
}

func (f *Fabric) hasCompoundIndexLocked(typ string, props []string) bool {
	for _, spec := range f.cfg.CompoundIndexes {
		if spec.Type == typ && slicesEqual(spec.Properties, props) {
			return true
		}
	}
	return false
}

func (f *Fabric) indexCompoundLocked(n *model.Node) {
	for _, spec := range f.cfg.CompoundIndexes {
		if spec.Type != n.Type {
			continue
		}
		values := make([]model.Value, len(spec.Properties))
		for i, p := range spec.Properties {
			values[i] = n.Properties[p]
		}
		raw, err := json.Marshal(values)
		if err != nil {
			continue
		}
		key := compoundKey(spec.Type, spec.Properties)
		m, ok := f.compoundIndex[key]
		if !ok {
			m = make(map[string]map[string]struct{})
			f.compoundIndex[key] = m
		}
		set, ok := m[string(raw)]
		if !ok {
			set = make(map[string]struct{})
			m[string(raw)] = set
		}
		set[n.ID] = struct{}{}
	}
}

func (f *Fabric) removeCompoundLocked(n *model.Node) {
	for _, spec := range f.cfg.CompoundIndexes {
		if spec.Type != n.Type {
			continue
		}
		values := make([]model.Value, len(spec.Properties))
		for i, p := range spec.Properties {
			values[i] = n.Properties[p]
		}
		raw, err := json.Marshal(values)
		if err != nil {
			continue
		}
		key := compoundKey(spec.Type, spec.Properties)
		m, ok := f.compoundIndex[key]
		if !ok {
			continue
		}
		if set, ok := m[string(raw)]; ok {
			delete(set, n.ID)
			if len(set) == 0 {
				delete(m, string(raw))
			}
		}
	}
}

// QueryByCompound returns node ids of type typ whose ordered property
// values exactly match values.
func (f *Fabric) QueryByCompound(typ string, props []string, values []model.Value) []string {
	var out []string
	f.read(func() {
		key := compoundKey(typ, props)
		f.stats.recordIndexAccess("compound:" + key)
		m, ok := f.compoundIndex[key]
		if !ok {
			return
		}
		raw, err := json.Marshal(values)
		if err != nil {
			return
		}
		set, ok := m[string(raw)]
		if !ok {
			return
		}
		out = setToSlice(set)
	})
	return out
}

func slicesEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// ============================================================================
// Range index — configured for numeric properties.
// ============================================================================

func (f *Fabric) hasRangeIndexLocked(typ, prop string) bool {
	for _, spec := range f.cfg.RangeIndexes {
		if spec.Type == typ && spec.Property == prop {
			return true
		}
	}
	return false
}

const defaultBucketWidth = 100.0

// indexRangeLocked places value into the first existing bucket whose
// [min, max] covers it; otherwise it creates a new bucket starting at
// value whose width is the average of the existing bucket widths (100
// if the index is empty). Existing buckets are never extended, and a
// new bucket may overlap its neighbours. Must be called with mu held.
func (f *Fabric) indexRangeLocked(typ, prop string, value float64, id string) {
	key := propKey(typ, prop)
	buckets := f.rangeIndex[key]

	for _, b := range buckets {
		if value >= b.min && value <= b.max {
			b.ids[id] = struct{}{}
			return
		}
	}

	width := defaultBucketWidth
	if len(buckets) > 0 {
		var total float64
		for _, b := range buckets {
			total += b.max - b.min
		}
		width = total / float64(len(buckets))
	}

	nb := &rangeBucket{min: value, max: value + width, ids: map[string]struct{}{id: {}}}
	buckets = append(buckets, nb)
	sort.Slice(buckets, func(i, j int) bool { return buckets[i].min < buckets[j].min })
	f.rangeIndex[key] = buckets
}

func (f *Fabric) removeRangeLocked(typ, prop string, value float64, id string) {
	key := propKey(typ, prop)
	buckets := f.rangeIndex[key]
	for i, b := range buckets {
		if value >= b.min && value <= b.max {
			delete(b.ids, id)
			if len(b.ids) == 0 {
				f.rangeIndex[key] = append(buckets[:i], buckets[i+1:]...)
			}
			return
		}
	}
}

// QueryByRange returns node ids of type typ whose numeric property prop
// falls within [min, max], inclusive.
func (f *Fabric) QueryByRange(typ, prop string, min, max float64) []string {
	var out []string
	f.read(func() {
		key := propKey(typ, prop)
		f.stats.recordIndexAccess("range:" + key)
		seen := make(map[string]struct{})
		for _, b := range f.rangeIndex[key] {
			if b.max < min || b.min > max {
				continue
			}
			// A bucket can be wider than [min, max]; keep only ids whose
			// cached value itself falls inside the range.
			for id := range b.ids {
				entry, ok := f.entities[id]
				if !ok {
					continue
				}
				v := entry.node.Properties[prop]
				if v.Kind == model.KindNumber && v.N >= min && v.N <= max {
					seen[id] = struct{}{}
				}
			}
		}
		out = setToSlice(seen)
	})
	return out
}

// ============================================================================
// Type and single-property queries.
// ============================================================================

// QueryByType returns every cached node id of the given type, and
// whether the type index holds an entry for typ at all. A type that
// has never had a node pass through the cache reports ok=false, the
// same "no information" signal AdjacencyOut gives a source it has
// never indexed — callers must not mistake an empty, unknown index
// for a confirmed-empty result.
func (f *Fabric) QueryByType(typ string) ([]string, bool) {
	var out []string
	var ok bool
	f.read(func() {
		f.stats.recordIndexAccess("type:" + typ)
		set, present := f.typeIndex[typ]
		ok = present
		if present {
			out = setToSlice(set)
		}
	})
	return out, ok
}

// QueryByProperty returns node ids of type typ whose property prop
// equals val exactly, and whether the property index holds an entry
// for that exact (typ, prop, val) triple.
func (f *Fabric) QueryByProperty(typ, prop string, val model.Value) ([]string, bool) {
	var out []string
	var ok bool
	f.read(func() {
		key := propKey(typ, prop)
		f.stats.recordIndexAccess("property:" + key)
		m, present := f.propertyIndex[key]
		if !present {
			return
		}
		set, present := m[jsonKey(val)]
		ok = present
		if present {
			out = setToSlice(set)
		}
	})
	return out, ok
}

func setToSlice(set map[string]struct{}) []string {
	if len(set) == 0 {
		return nil
	}
	out := make([]string, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	return out
}

package query

import (
	"sort"

	"github.com/brn2/gograph/internal/model"
)

// SortKey orders results by a resolved field path, ascending unless
// Descending is set.
type SortKey struct {
	Field      string
	Descending bool
}

// sortNodes stably orders nodes by the given multi-key sort. Nulls
// (including fields that fail to resolve) sort before non-nulls in
// ascending order.
func sortNodes(nodes []*model.Node, keys []SortKey) {
	if len(keys) == 0 {
		return
	}
	sort.SliceStable(nodes, func(i, j int) bool {
		for _, k := range keys {
			c := compareKey(nodes[i], nodes[j], k.Field)
			if c == 0 {
				continue
			}
			if k.Descending {
				return c > 0
			}
			return c < 0
		}
		return false
	})
}

// compareKey returns -1/0/1 comparing the two nodes' resolved field
// values, ascending-order convention (nulls first).
func compareKey(a, b *model.Node, field string) int {
	av, aok := ResolveField(a, field)
	bv, bok := ResolveField(b, field)
	an := !aok || av.IsNull()
	bn := !bok || bv.IsNull()
	switch {
	case an && bn:
		return 0
	case an:
		return -1
	case bn:
		return 1
	}
	if av.Kind != bv.Kind {
		// Incomparable kinds sort by kind ordinal for stability.
		if av.Kind < bv.Kind {
			return -1
		}
		return 1
	}
	switch av.Kind {
	case model.KindNumber:
		switch {
		case av.N < bv.N:
			return -1
		case av.N > bv.N:
			return 1
		}
		return 0
	case model.KindString:
		switch {
		case av.S < bv.S:
			return -1
		case av.S > bv.S:
			return 1
		}
		return 0
	case model.KindBool:
		if av.B == bv.B {
			return 0
		}
		if !av.B && bv.B {
			return -1
		}
		return 1
	default:
		return 0
	}
}

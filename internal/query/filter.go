// Package query implements the Query Executor: a filter tree
// evaluator, stable multi-key sort, offset/limit pagination, and
// group-aware aggregation, in the same query-object style as
// internal/repository.NodeQuery/EdgeQuery.
package query

import (
	"strings"

	"github.com/brn2/gograph/internal/model"
)

// Operator is a leaf comparison or membership test.
type Operator string

const (
	OpEq         Operator = "eq"
	OpNe         Operator = "ne"
	OpGt         Operator = "gt"
	OpGte        Operator = "gte"
	OpLt         Operator = "lt"
	OpLte        Operator = "lte"
	OpIn         Operator = "in"
	OpNotIn      Operator = "not_in"
	OpContains   Operator = "contains"
	OpStartsWith Operator = "starts_with"
	OpEndsWith   Operator = "ends_with"
)

// Logic combines child filters. The zero value means "this Filter is a
// leaf", not a logic node.
type Logic string

const (
	LogicAnd Logic = "and"
	LogicOr  Logic = "or"
	LogicNot Logic = "not"
)

// Filter is a recursive filter tree node. A node is either a leaf
// (Logic is empty: Field/Operator/Value(s) are meaningful) or a
// combinator (Logic is and/or/not: Children are meaningful). A nil
// Filter, or one with no Logic and no Operator, matches everything.
type Filter struct {
	Field    string
	Operator Operator
	Value    model.Value
	Values   []model.Value // used by OpIn / OpNotIn

	Logic    Logic
	Children []*Filter
}

// IsLeaf reports whether f is a comparison leaf rather than a logic
// combinator.
func (f *Filter) IsLeaf() bool { return f.Logic == "" }

// Evaluate reports whether node satisfies the filter tree. A nil
// filter (or an entirely zero-value one) matches everything.
func Evaluate(f *Filter, n *model.Node) bool {
	if f == nil || (f.Logic == "" && f.Operator == "") {
		return true
	}
	if f.IsLeaf() {
		return evaluateLeaf(f, n)
	}
	switch f.Logic {
	case LogicAnd:
		for _, child := range f.Children {
			if !Evaluate(child, n) {
				return false
			}
		}
		return true
	case LogicOr:
		for _, child := range f.Children {
			if Evaluate(child, n) {
				return true
			}
		}
		return false
	case LogicNot:
		if len(f.Children) != 1 {
			return false
		}
		return !Evaluate(f.Children[0], n)
	default:
		return false
	}
}

func evaluateLeaf(f *Filter, n *model.Node) bool {
	val, ok := ResolveField(n, f.Field)
	if !ok {
		// A missing intermediate path yields "undefined"; every
		// comparison leaf reports false against it.
		return false
	}
	switch f.Operator {
	case OpEq:
		return val.Equal(f.Value)
	case OpNe:
		return !val.Equal(f.Value)
	case OpGt, OpGte, OpLt, OpLte:
		return evaluateOrdered(f.Operator, val, f.Value)
	case OpIn:
		for _, candidate := range f.Values {
			if val.Equal(candidate) {
				return true
			}
		}
		return false
	case OpNotIn:
		for _, candidate := range f.Values {
			if val.Equal(candidate) {
				return false
			}
		}
		return true
	case OpContains:
		return val.Kind == model.KindString && f.Value.Kind == model.KindString && strings.Contains(val.S, f.Value.S)
	case OpStartsWith:
		return val.Kind == model.KindString && f.Value.Kind == model.KindString && strings.HasPrefix(val.S, f.Value.S)
	case OpEndsWith:
		return val.Kind == model.KindString && f.Value.Kind == model.KindString && strings.HasSuffix(val.S, f.Value.S)
	default:
		return false
	}
}

// evaluateOrdered compares numbers numerically and strings
// lexicographically; any other kind, or a kind mismatch, never
// satisfies an ordering comparison.
func evaluateOrdered(op Operator, a, b model.Value) bool {
	if a.Kind != b.Kind {
		return false
	}
	var cmp int
	switch a.Kind {
	case model.KindNumber:
		switch {
		case a.N < b.N:
			cmp = -1
		case a.N > b.N:
			cmp = 1
		}
	case model.KindString:
		cmp = strings.Compare(a.S, b.S)
	default:
		return false
	}
	switch op {
	case OpGt:
		return cmp > 0
	case OpGte:
		return cmp >= 0
	case OpLt:
		return cmp < 0
	case OpLte:
		return cmp <= 0
	}
	return false
}

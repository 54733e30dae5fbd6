package query

import (
	"fmt"
	"strings"

	"github.com/brn2/gograph/internal/model"
)

// AggOp is a supported aggregation operator.
type AggOp string

const (
	AggCount AggOp = "count"
	AggSum   AggOp = "sum"
	AggAvg   AggOp = "avg"
	AggMin   AggOp = "min"
	AggMax   AggOp = "max"
)

// Aggregation declares one computed value: an operator over a source
// field path, surfaced under Alias (or a default name derived from
// Operator/Field when Alias is empty).
type Aggregation struct {
	Operator AggOp
	Field    string
	Alias    string
}

func (a Aggregation) alias() string {
	if a.Alias != "" {
		return a.Alias
	}
	if a.Operator == AggCount {
		return "count"
	}
	return string(a.Operator) + "_" + a.Field
}

// Group is one group-by bucket: its resolved key values and the
// computed aggregates over its member nodes.
type Group struct {
	Key        string
	Values     []model.Value
	Aggregates map[string]float64
}

// AggregateResult is the aggregate stage's output. Scalar is populated
// when GroupBy is empty; Groups is populated otherwise.
type AggregateResult struct {
	Scalar map[string]float64
	Groups []Group
}

// aggregate computes aggs over nodes, partitioned by groupBy if
// non-empty. The grouping key is the resolved group-by values joined
// with "__".
func aggregate(nodes []*model.Node, aggs []Aggregation, groupBy []string) AggregateResult {
	if len(groupBy) == 0 {
		scalar := make(map[string]float64, len(aggs))
		for _, agg := range aggs {
			scalar[agg.alias()] = computeAgg(agg, nodes)
		}
		return AggregateResult{Scalar: scalar}
	}

	type bucket struct {
		values []model.Value
		nodes  []*model.Node
	}
	order := make([]string, 0)
	buckets := make(map[string]*bucket)

	for _, n := range nodes {
		values := make([]model.Value, len(groupBy))
		parts := make([]string, len(groupBy))
		for i, field := range groupBy {
			v, _ := ResolveField(n, field)
			values[i] = v
			parts[i] = stringifyValue(v)
		}
		key := strings.Join(parts, "__")
		b, ok := buckets[key]
		if !ok {
			b = &bucket{values: values}
			buckets[key] = b
			order = append(order, key)
		}
		b.nodes = append(b.nodes, n)
	}

	groups := make([]Group, 0, len(order))
	for _, key := range order {
		b := buckets[key]
		aggregates := make(map[string]float64, len(aggs))
		for _, agg := range aggs {
			aggregates[agg.alias()] = computeAgg(agg, b.nodes)
		}
		groups = append(groups, Group{Key: key, Values: b.values, Aggregates: aggregates})
	}
	return AggregateResult{Groups: groups}
}

func computeAgg(agg Aggregation, nodes []*model.Node) float64 {
	if agg.Operator == AggCount {
		return float64(len(nodes))
	}

	var values []float64
	for _, n := range nodes {
		v, ok := ResolveField(n, agg.Field)
		if !ok || v.Kind != model.KindNumber {
			continue
		}
		values = append(values, v.N)
	}
	if len(values) == 0 {
		return 0
	}
	switch agg.Operator {
	case AggSum:
		var total float64
		for _, v := range values {
			total += v
		}
		return total
	case AggAvg:
		var total float64
		for _, v := range values {
			total += v
		}
		return total / float64(len(values))
	case AggMin:
		min := values[0]
		for _, v := range values[1:] {
			if v < min {
				min = v
			}
		}
		return min
	case AggMax:
		max := values[0]
		for _, v := range values[1:] {
			if v > max {
				max = v
			}
		}
		return max
	default:
		return 0
	}
}

func stringifyValue(v model.Value) string {
	switch v.Kind {
	case model.KindNull:
		return ""
	case model.KindString:
		return v.S
	case model.KindBool:
		return fmt.Sprintf("%t", v.B)
	case model.KindNumber:
		return fmt.Sprintf("%g", v.N)
	default:
		return fmt.Sprintf("%v", v.Any())
	}
}

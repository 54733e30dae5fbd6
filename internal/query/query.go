package query

import (
	"github.com/brn2/gograph/internal/gerrors"
	"github.com/brn2/gograph/internal/model"
	"github.com/brn2/gograph/internal/validate"
)

// Spec is a complete query request: the filter tree, sort order,
// pagination window, and optional aggregations.
type Spec struct {
	Filter       *Filter
	Sort         []SortKey
	Offset       int
	Limit        int
	Aggregations []Aggregation
	GroupBy      []string
}

// Visibility is the permission filter applied after structural
// filtering; callers wire this to the Permission Gate (auth package).
// A nil Visibility admits every structurally-matching node.
type Visibility func(*model.Node) bool

// Result is the Query Executor's output: the paginated, permission-
// filtered node page, plus aggregates computed over that same
// filtered-and-visible set when Spec.Aggregations is non-empty.
type Result struct {
	Page       Page
	Aggregates *AggregateResult
}

// Executor evaluates Specs against a Loader.
type Executor struct {
	validator *validate.Validator
}

// New builds an Executor.
func New() *Executor {
	return &Executor{validator: validate.New()}
}

// Execute resolves candidates via the index-assisted plan, re-runs the
// full filter predicate against every candidate (indexes are hints,
// never ground truth), applies the permission filter, then sorts,
// paginates, and optionally aggregates.
func (e *Executor) Execute(loader Loader, spec Spec, visible Visibility) (Result, error) {
	limit, err := e.validator.ValidateQueryLimit(spec.Limit)
	if err != nil {
		return Result{}, err
	}

	candidateIDs, err := plan(loader, spec.Filter)
	if err != nil {
		return Result{}, gerrors.BackendIO("query-plan-scan", err)
	}

	matched := make([]*model.Node, 0, len(candidateIDs))
	for _, id := range candidateIDs {
		n, err := loader.LoadNode(id)
		if err != nil {
			// A candidate that has since vanished (deleted between
			// index hit and load) is simply not a result; any other
			// failure is surfaced at the engine's discretion via its
			// own not-found/backend-IO distinction.
			if gerrors.Is(err, gerrors.KindNodeNotFound) {
				continue
			}
			return Result{}, err
		}
		if !Evaluate(spec.Filter, n) {
			continue
		}
		if visible != nil && !visible(n) {
			continue
		}
		matched = append(matched, n)
	}

	sortNodes(matched, spec.Sort)
	page := paginate(matched, spec.Offset, limit)

	result := Result{Page: page}
	if len(spec.Aggregations) > 0 {
		agg := aggregate(matched, spec.Aggregations, spec.GroupBy)
		result.Aggregates = &agg
	}
	return result, nil
}

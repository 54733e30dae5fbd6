package query

import "github.com/brn2/gograph/internal/model"

// Page is a slice of matching nodes plus pagination metadata.
type Page struct {
	Nodes   []*model.Node
	Total   int
	HasMore bool
}

// paginate applies a zero-based offset and positive limit to an
// already-filtered, already-sorted node slice.
func paginate(nodes []*model.Node, offset, limit int) Page {
	total := len(nodes)
	if offset < 0 {
		offset = 0
	}
	if offset >= total {
		return Page{Nodes: nil, Total: total, HasMore: false}
	}
	end := offset + limit
	hasMore := end < total
	if end > total {
		end = total
	}
	out := make([]*model.Node, end-offset)
	copy(out, nodes[offset:end])
	return Page{Nodes: out, Total: total, HasMore: hasMore}
}

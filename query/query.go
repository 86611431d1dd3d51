// Package query holds the wire-agnostic search request model: the query
// descriptor, its filter and sort parts, the result metadata envelope and
// the errors raised while compiling a query.
package query

import "slices"

// SearchQuery describes a search over a single entity.
//
// Length is the page size (0 means use the default). FindOne limits the
// result to at most one row. FindAll ignores Filter entirely but keeps
// sort and pagination.
type SearchQuery struct {
	// Relation is carried for wire compatibility and is not compiled.
	Relation *SearchRelation   `json:"relation,omitempty"`
	Sort     *SearchSortOption `json:"sort,omitempty"`
	Offset   int32             `json:"offset"`
	Length   int32             `json:"length"`
	Page     int32             `json:"page"`
	Filter   *SearchFilter     `json:"filter,omitempty"`
	FindOne  bool              `json:"find_one"`
	FindAll  bool              `json:"find_all"`
}

// SearchRelation names parent ids and child types a query is scoped to.
type SearchRelation struct {
	ParentIDs []int32  `json:"parent_ids,omitempty"`
	ChildType []string `json:"child_type,omitempty"`
}

// SearchFilter groups conditions: every Must condition has to hold and,
// when Any is non-empty, at least one Any condition has to hold.
type SearchFilter struct {
	Must []SearchCondition `json:"must,omitempty"`
	Any  []SearchCondition `json:"any,omitempty"`
}

// SearchCondition is a single field predicate.
type SearchCondition struct {
	Field    string   `json:"field"`
	Operator Operator `json:"operator"`
	// Threshold is reserved for similarity search.
	Threshold *float32 `json:"threshold,omitempty"`
	Value     *string  `json:"value,omitempty"`
	// ValueTo is the upper bound of BETWEEN and NOT BETWEEN.
	ValueTo *string `json:"value_to,omitempty"`
	// ValueList feeds IN and NOT IN.
	ValueList []string `json:"value_list,omitempty"`
}

// SearchSortOption orders results by one field.
type SearchSortOption struct {
	Field string        `json:"field"`
	Order SortDirection `json:"order"`
}

// SearchResultMetadata describes a result page and the query that produced it.
//
// FilterCount and FilterReason are set only by post-query projection and
// count the rows dropped by that step.
type SearchResultMetadata struct {
	ResultItems      int32        `json:"result_items"`
	Offset           int32        `json:"offset"`
	Length           int32        `json:"length"`
	Page             int32        `json:"page"`
	ResultTotalPages int32        `json:"result_total_pages"`
	ResultTotalItems int32        `json:"result_total_items"`
	Query            *SearchQuery `json:"query,omitempty"`
	FilterCount      *int32       `json:"filter_count,omitempty"`
	FilterReason     *string      `json:"filter_reason,omitempty"`
}

// All returns the query used when the caller supplies none.
func All() *SearchQuery {
	return &SearchQuery{FindAll: true}
}

// Clone returns a deep copy of q. A nil query clones to nil.
func (q *SearchQuery) Clone() *SearchQuery {
	if q == nil {
		return nil
	}
	out := *q
	if q.Relation != nil {
		out.Relation = &SearchRelation{
			ParentIDs: slices.Clone(q.Relation.ParentIDs),
			ChildType: slices.Clone(q.Relation.ChildType),
		}
	}
	if q.Sort != nil {
		s := *q.Sort
		out.Sort = &s
	}
	if q.Filter != nil {
		out.Filter = &SearchFilter{
			Must: cloneConditions(q.Filter.Must),
			Any:  cloneConditions(q.Filter.Any),
		}
	}
	return &out
}

// Clone returns a deep copy of c.
func (c SearchCondition) Clone() SearchCondition {
	out := c
	if c.Threshold != nil {
		t := *c.Threshold
		out.Threshold = &t
	}
	if c.Value != nil {
		v := *c.Value
		out.Value = &v
	}
	if c.ValueTo != nil {
		v := *c.ValueTo
		out.ValueTo = &v
	}
	out.ValueList = slices.Clone(c.ValueList)
	return out
}

func cloneConditions(in []SearchCondition) []SearchCondition {
	if in == nil {
		return nil
	}
	out := make([]SearchCondition, len(in))
	for i := range in {
		out[i] = in[i].Clone()
	}
	return out
}

// String returns a pointer to s, for populating optional fields.
func String(s string) *string { return &s }

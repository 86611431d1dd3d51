package pebble

import "github.com/carrel-labs/pebble/query"

// Result pairs the rows of one run with their metadata.
type Result[M any] struct {
	Metadata query.SearchResultMetadata `json:"metadata"`
	Results  []M                        `json:"results"`
}

// First returns the first row, if any.
func (r *Result[M]) First() (M, bool) {
	return first(r.Results)
}

// Generic is a result whose rows were projected into another type.
type Generic[T any] struct {
	Metadata query.SearchResultMetadata `json:"metadata"`
	Results  []T                        `json:"results"`
}

// First returns the first row, if any.
func (g *Generic[T]) First() (T, bool) {
	return first(g.Results)
}

// MapInto projects every row through fn, dropping rows for which fn
// reports false. The new metadata counts the surviving rows in
// ResultItems and the dropped ones in FilterCount, tagged with reason.
// res is left unchanged.
func MapInto[M, T any](res *Result[M], fn func(M) (T, bool), reason *string) *Generic[T] {
	out, meta := project(res.Results, res.Metadata, fn, reason)
	return &Generic[T]{Metadata: meta, Results: out}
}

// MapResult re-projects a generic result. Drop accounting covers this
// step only.
func MapResult[T, U any](g *Generic[T], fn func(T) (U, bool), reason *string) *Generic[U] {
	out, meta := project(g.Results, g.Metadata, fn, reason)
	return &Generic[U]{Metadata: meta, Results: out}
}

func project[A, B any](
	in []A, meta query.SearchResultMetadata, fn func(A) (B, bool), reason *string,
) ([]B, query.SearchResultMetadata) {
	out := make([]B, 0, len(in))
	for _, v := range in {
		if p, ok := fn(v); ok {
			out = append(out, p)
		}
	}

	dropped := max(int32(len(in))-int32(len(out)), 0)
	meta.ResultItems = int32(len(out))
	meta.FilterCount = &dropped
	meta.FilterReason = nil
	if reason != nil {
		r := *reason
		meta.FilterReason = &r
	}
	meta.Query = meta.Query.Clone()
	return out, meta
}

func first[T any](rows []T) (T, bool) {
	if len(rows) == 0 {
		var zero T
		return zero, false
	}
	return rows[0], true
}

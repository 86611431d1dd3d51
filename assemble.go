package pebble

import (
	"fmt"

	"github.com/carrel-labs/pebble/field"
	"github.com/carrel-labs/pebble/internal/compiler"
	"github.com/carrel-labs/pebble/query"
)

// Groups are the compiled must (All) and any (Any) predicate groups of a query.
type Groups = compiler.Groups

// Conditions normalizes q and compiles its filter against fields, for
// callers composing their own selections. A nil query compiles to empty
// groups.
func Conditions(q *query.SearchQuery, fields field.Map) (Groups, error) {
	if q == nil {
		return Groups{}, nil
	}
	g, err := compiler.Compile(query.Normalize(q).Filter, fields)
	if err != nil {
		return Groups{}, fmt.Errorf("compile filter: %w", err)
	}
	return g, nil
}

// Apply attaches q to sel: filter predicates (unless FindAll is set),
// limit, offset and sort. Field names are normalized to snake_case before
// they are resolved against fields. The filter is compiled even when
// FindAll discards it, so a malformed query is always rejected.
// FindOne does not change what is attached.
func Apply[M any](sel Select[M], q *query.SearchQuery, fields field.Map) (Select[M], error) {
	if q == nil {
		q = query.All()
	}
	nq := query.Normalize(q)

	groups, err := compiler.Compile(nq.Filter, fields)
	if err != nil {
		return sel, fmt.Errorf("compile filter: %w", err)
	}
	order, err := compiler.OrderBy(nq.Sort, fields)
	if err != nil {
		return sel, fmt.Errorf("compile: %w", err)
	}

	if !nq.FindAll {
		for _, p := range groups.Predicates() {
			sel = sel.Where(p)
		}
	}
	if nq.Length > 0 {
		sel = sel.Limit(uint64(nq.Length))
	}
	if nq.Offset > 0 {
		sel = sel.Offset(uint64(nq.Offset))
	}
	if order != "" {
		sel = sel.OrderBy(order)
	}
	return sel, nil
}

// ApplyConditions applies q to an unfiltered selection of e.
func ApplyConditions[M any](e Entity[M], q *query.SearchQuery, fields field.Map) (Select[M], error) {
	return Apply(Find(e), q, fields)
}

// Relation declares how rows of M are reached from one source row S.
// Scope narrows the target selection to the rows linked to source,
// typically with a foreign key predicate or a join.
type Relation[S, M any] struct {
	To    Entity[M]
	Scope func(sel Select[M], source S) Select[M]
}

// FindLinked starts a selection of the rows linked to source.
func FindLinked[S, M any](source S, rel Relation[S, M]) Select[M] {
	return rel.Scope(Find(rel.To), source)
}

// ApplyLinkedConditions applies q to the rows linked to source.
func ApplyLinkedConditions[S, M any](source S, q *query.SearchQuery, fields field.Map, rel Relation[S, M]) (Select[M], error) {
	return Apply(FindLinked(source, rel), q, fields)
}

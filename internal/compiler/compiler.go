// Package compiler turns filter conditions into squirrel predicate trees.
package compiler

import (
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"github.com/carrel-labs/pebble/field"
	"github.com/carrel-labs/pebble/query"
)

// Groups holds the compiled predicates of one filter. All is the
// conjunction of must conditions, Any the disjunction of any conditions.
type Groups struct {
	All sq.And
	Any sq.Or
}

// Empty reports whether neither group holds a predicate.
func (g Groups) Empty() bool { return len(g.All) == 0 && len(g.Any) == 0 }

// Predicates returns the non-empty groups, ready to pass to Where.
// An empty group is never returned since squirrel renders it as a
// constant (1=1 or 1=0).
func (g Groups) Predicates() []sq.Sqlizer {
	var out []sq.Sqlizer
	if len(g.All) > 0 {
		out = append(out, g.All)
	}
	if len(g.Any) > 0 {
		out = append(out, g.Any)
	}
	return out
}

// Compile builds the predicate groups of f against fields. Field names
// are looked up verbatim; callers normalize first. The first failing
// condition aborts compilation. A nil filter compiles to empty groups.
func Compile(f *query.SearchFilter, fields field.Map) (Groups, error) {
	var g Groups
	if f == nil {
		return g, nil
	}
	for i := range f.Must {
		p, err := Condition(&f.Must[i], fields)
		if err != nil {
			return Groups{}, fmt.Errorf("must[%d]: %w", i, err)
		}
		g.All = append(g.All, p)
	}
	for i := range f.Any {
		p, err := Condition(&f.Any[i], fields)
		if err != nil {
			return Groups{}, fmt.Errorf("any[%d]: %w", i, err)
		}
		g.Any = append(g.Any, p)
	}
	return g, nil
}

// Condition compiles one condition. The field is resolved before the
// operator is inspected, so an unknown field wins over a bad operator.
func Condition(c *query.SearchCondition, fields field.Map) (sq.Sqlizer, error) {
	col, err := fields.Resolve(c.Field)
	if err != nil {
		return nil, err
	}
	name := col.String()

	switch c.Operator {
	case query.OperatorEquals, query.OperatorNotEquals,
		query.OperatorGreaterThan, query.OperatorGreaterThanOrEquals,
		query.OperatorLessThan, query.OperatorLessThanOrEquals,
		query.OperatorContains, query.OperatorLike:
		if c.Value == nil {
			return nil, missing(c, "value")
		}
		return comparison(c.Operator, name, *c.Value), nil

	case query.OperatorIn:
		if len(c.ValueList) == 0 {
			return nil, missing(c, "value_list")
		}
		return sq.Eq{name: c.ValueList}, nil
	case query.OperatorNotIn:
		if len(c.ValueList) == 0 {
			return nil, missing(c, "value_list")
		}
		return sq.NotEq{name: c.ValueList}, nil

	case query.OperatorIsNull:
		return sq.Eq{name: nil}, nil
	case query.OperatorIsNotNull:
		return sq.NotEq{name: nil}, nil

	case query.OperatorBetween, query.OperatorNotBetween:
		if c.Value == nil || *c.Value == "" {
			return nil, missing(c, "value")
		}
		if c.ValueTo == nil {
			return nil, missing(c, "value_to")
		}
		op := "BETWEEN"
		if c.Operator == query.OperatorNotBetween {
			op = "NOT BETWEEN"
		}
		return sq.Expr(name+" "+op+" ? AND ?", *c.Value, *c.ValueTo), nil
	}

	return nil, &query.CompileError{Field: c.Field, Operator: c.Operator, Err: query.ErrInvalidOperator}
}

func comparison(op query.Operator, name, v string) sq.Sqlizer {
	switch op {
	case query.OperatorNotEquals:
		return sq.NotEq{name: v}
	case query.OperatorGreaterThan:
		return sq.Gt{name: v}
	case query.OperatorGreaterThanOrEquals:
		return sq.GtOrEq{name: v}
	case query.OperatorLessThan:
		return sq.Lt{name: v}
	case query.OperatorLessThanOrEquals:
		return sq.LtOrEq{name: v}
	case query.OperatorContains:
		return sq.Like{name: "%" + v + "%"}
	case query.OperatorLike:
		return sq.Like{name: v}
	default:
		return sq.Eq{name: v}
	}
}

func missing(c *query.SearchCondition, param string) error {
	return &query.CompileError{Field: c.Field, Operator: c.Operator, Param: param, Err: query.ErrMissingValue}
}

// OrderBy resolves s into an ORDER BY term such as "items.created_at DESC".
// A nil sort yields an empty term. Unspecified orders ascending; codes
// outside the defined directions fail with ErrInvalidSort.
func OrderBy(s *query.SearchSortOption, fields field.Map) (string, error) {
	if s == nil {
		return "", nil
	}
	if !s.Order.IsKnown() {
		return "", fmt.Errorf("sort: %w", &query.CompileError{Field: s.Field, Order: s.Order, Err: query.ErrInvalidSort})
	}
	col, err := fields.Resolve(s.Field)
	if err != nil {
		return "", fmt.Errorf("sort: %w", err)
	}
	if s.Order == query.SortDesc {
		return col.String() + " DESC", nil
	}
	return col.String() + " ASC", nil
}

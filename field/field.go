// Package field maps logical query field names to physical columns.
package field

import (
	"sort"

	"github.com/carrel-labs/pebble/query"
)

// Column is a physical column reference.
type Column struct {
	Table string
	Name  string
}

// String renders the column as table.name, or name when Table is empty.
func (c Column) String() string {
	if c.Table == "" {
		return c.Name
	}
	return c.Table + "." + c.Name
}

// Map associates snake_case logical names with columns. It must list
// every field a query may reference.
type Map map[string]Column

// New builds a map for table where every logical name equals its column name.
func New(table string, names ...string) Map {
	m := make(Map, len(names))
	for _, n := range names {
		m[n] = Column{Table: table, Name: n}
	}
	return m
}

// With returns a copy of m with name mapped to col.
func (m Map) With(name string, col Column) Map {
	out := make(Map, len(m)+1)
	for k, v := range m {
		out[k] = v
	}
	out[name] = col
	return out
}

// Resolve looks name up exactly. A miss returns a *query.CompileError
// wrapping query.ErrInvalidField.
func (m Map) Resolve(name string) (Column, error) {
	col, ok := m[name]
	if !ok {
		return Column{}, &query.CompileError{Field: name, Err: query.ErrInvalidField}
	}
	return col, nil
}

// Names returns the logical names in sorted order.
func (m Map) Names() []string {
	names := make([]string, 0, len(m))
	for n := range m {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

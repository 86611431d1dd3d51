package pebble

import (
	"context"
	"errors"
	"fmt"
	"math"
	"slices"
	"strings"

	sq "github.com/Masterminds/squirrel"

	"github.com/carrel-labs/pebble/db"
	"github.com/carrel-labs/pebble/internal/logger"
)

// Entity binds a row model M to its table.
type Entity[M any] interface {
	Table() string
	// Columns lists the selected columns in Scan order. Unqualified names
	// are prefixed with Table.
	Columns() []string
	Scan(row db.Row) (M, error)
}

// Select is an immutable selection over one entity. Every method returns
// a new Select, so a base selection can be shared between requests.
//
// Order, limit and offset are kept apart from the predicates so the count
// query can be built from the same filtered selection without them.
type Select[M any] struct {
	entity  Entity[M]
	builder sq.SelectBuilder
	orderBy []string
	limit   uint64
	offset  uint64
	limited bool
	skipped bool
}

// Find starts an unfiltered selection of every row of e.
func Find[M any](e Entity[M]) Select[M] {
	table := e.Table()
	cols := make([]string, 0, len(e.Columns()))
	for _, c := range e.Columns() {
		if !strings.Contains(c, ".") {
			c = table + "." + c
		}
		cols = append(cols, c)
	}
	return Select[M]{
		entity:  e,
		builder: sq.Select(cols...).From(table),
	}
}

// Entity returns the entity the selection reads.
func (s Select[M]) Entity() Entity[M] { return s.entity }

// Where adds a predicate. Multiple calls are joined with AND.
func (s Select[M]) Where(pred any, args ...any) Select[M] {
	s.builder = s.builder.Where(pred, args...)
	return s
}

// Join adds an inner join clause such as "notes ON notes.item_id = items.id".
func (s Select[M]) Join(join string, args ...any) Select[M] {
	s.builder = s.builder.Join(join, args...)
	return s
}

// LeftJoin adds a left join clause.
func (s Select[M]) LeftJoin(join string, args ...any) Select[M] {
	s.builder = s.builder.LeftJoin(join, args...)
	return s
}

// Limit caps the number of rows fetched.
func (s Select[M]) Limit(n uint64) Select[M] {
	s.limit, s.limited = n, true
	return s
}

// Offset skips the first n rows.
func (s Select[M]) Offset(n uint64) Select[M] {
	s.offset, s.skipped = n, true
	return s
}

// OrderBy appends ordering terms such as "items.created_at DESC".
func (s Select[M]) OrderBy(terms ...string) Select[M] {
	s.orderBy = append(slices.Clip(s.orderBy), terms...)
	return s
}

// noLimit stands in for a missing LIMIT when only an offset is set. SQLite
// has no OFFSET without LIMIT; Postgres and SQLite both take a bigint bound.
const noLimit = math.MaxInt64

// Builder returns the complete data query.
func (s Select[M]) Builder() sq.SelectBuilder {
	b := s.builder
	if len(s.orderBy) > 0 {
		b = b.OrderBy(s.orderBy...)
	}
	switch {
	case s.limited:
		b = b.Limit(s.limit)
	case s.skipped:
		b = b.Limit(noLimit)
	}
	if s.skipped {
		b = b.Offset(s.offset)
	}
	return b
}

// ToSQL renders the data query with ? placeholders.
func (s Select[M]) ToSQL() (string, []any, error) {
	return s.Builder().ToSql()
}

// CountBuilder returns the count query: the filtered selection without
// order, limit or offset, wrapped in SELECT COUNT(*).
func (s Select[M]) CountBuilder() sq.SelectBuilder {
	return sq.Select("COUNT(*)").FromSelect(s.builder, "pebble_count")
}

// All fetches every row of the data query.
func (s Select[M]) All(ctx context.Context, conn db.Querier) ([]M, error) {
	return s.fetch(ctx, conn, s.Builder(), db.OpSelect)
}

// One fetches at most one row. ok is false when nothing matched.
func (s Select[M]) One(ctx context.Context, conn db.Querier) (m M, ok bool, err error) {
	rows, err := s.fetch(ctx, conn, s.Limit(1).Builder(), db.OpSelectOne)
	if err != nil || len(rows) == 0 {
		return m, false, err
	}
	return rows[0], true, nil
}

// Pages holds the totals of a filtered selection.
type Pages struct {
	Items int64
	Pages int64
}

// Count returns the number of rows matching the selection's predicates
// and how many pages of pageSize they fill. Order, limit and offset are
// ignored.
func (s Select[M]) Count(ctx context.Context, conn db.Querier, pageSize int64) (Pages, error) {
	if pageSize <= 0 {
		return Pages{}, fmt.Errorf("count: page size must be positive, got %d", pageSize)
	}

	query, args, err := s.CountBuilder().PlaceholderFormat(conn.Placeholder()).ToSql()
	if err != nil {
		return Pages{}, fmt.Errorf("build count: %w", err)
	}
	logger.FromContext(ctx).Debug("query", logger.SQL(s.entity.Table(), db.OpCount, query, args)...)
	rows, err := conn.Query(ctx, query, args...)
	if err != nil {
		return Pages{}, db.Wrap(db.OpCount, err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return Pages{}, db.Wrap(db.OpCount, err)
		}
		return Pages{}, db.Wrap(db.OpCount, errors.New("no rows returned"))
	}
	var n int64
	if err := rows.Scan(&n); err != nil {
		return Pages{}, db.Wrap(db.OpCount, err)
	}
	if err := rows.Err(); err != nil {
		return Pages{}, db.Wrap(db.OpCount, err)
	}
	return Pages{Items: n, Pages: (n + pageSize - 1) / pageSize}, nil
}

func (s Select[M]) fetch(ctx context.Context, conn db.Querier, b sq.SelectBuilder, op string) ([]M, error) {
	query, args, err := b.PlaceholderFormat(conn.Placeholder()).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build %s: %w", op, err)
	}
	logger.FromContext(ctx).Debug("query", logger.SQL(s.entity.Table(), op, query, args)...)
	rows, err := conn.Query(ctx, query, args...)
	if err != nil {
		return nil, db.Wrap(op, err)
	}
	defer rows.Close()

	out := make([]M, 0)
	for rows.Next() {
		m, err := s.entity.Scan(rows)
		if err != nil {
			return nil, db.Wrap(db.OpScan, err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, db.Wrap(op, err)
	}
	return out, nil
}

// Package sqldb adapts database/sql handles to db.Querier.
package sqldb

import (
	"context"
	"database/sql"

	sq "github.com/Masterminds/squirrel"

	"github.com/carrel-labs/pebble/db"
)

// Conn is the query surface shared by *sql.DB, *sql.Conn and *sql.Tx.
type Conn interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// Querier runs queries on a database/sql handle.
type Querier struct {
	conn        Conn
	placeholder sq.PlaceholderFormat
}

// New wraps conn. Use sq.Question for SQLite and MySQL, sq.Dollar for
// Postgres through the pgx stdlib driver. A nil placeholder means sq.Question.
func New(conn Conn, placeholder sq.PlaceholderFormat) *Querier {
	if placeholder == nil {
		placeholder = sq.Question
	}
	return &Querier{conn: conn, placeholder: placeholder}
}

// Query implements db.Querier.
func (q *Querier) Query(ctx context.Context, query string, args ...any) (db.Rows, error) {
	rows, err := q.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return &sqlRows{rows: rows}, nil
}

// Placeholder implements db.Querier.
func (q *Querier) Placeholder() sq.PlaceholderFormat { return q.placeholder }

type sqlRows struct {
	rows *sql.Rows
}

func (r *sqlRows) Next() bool             { return r.rows.Next() }
func (r *sqlRows) Scan(dest ...any) error { return r.rows.Scan(dest...) }
func (r *sqlRows) Err() error             { return r.rows.Err() }
func (r *sqlRows) Close()                 { _ = r.rows.Close() }

// Package pgxdb adapts native pgx connections to db.Querier.
package pgxdb

import (
	"context"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/carrel-labs/pebble/db"
)

// Conn is the query surface shared by *pgxpool.Pool, *pgx.Conn and pgx.Tx.
type Conn interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// Querier runs queries through pgx with $n placeholders.
type Querier struct {
	conn Conn
}

// New wraps conn.
func New(conn Conn) *Querier {
	return &Querier{conn: conn}
}

// Query implements db.Querier. pgx.Rows already satisfies db.Rows.
func (q *Querier) Query(ctx context.Context, sql string, args ...any) (db.Rows, error) {
	rows, err := q.conn.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// Placeholder implements db.Querier.
func (q *Querier) Placeholder() sq.PlaceholderFormat { return sq.Dollar }

// Package db is the storage binding used by the query runner. Adapters in
// sqldb and pgxdb implement it over database/sql and pgx.
package db

import (
	"context"

	sq "github.com/Masterminds/squirrel"
)

// Querier runs read queries on a borrowed connection. It is never closed
// by the runner.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (Rows, error)
	// Placeholder is the bind-parameter style the backend expects.
	Placeholder() sq.PlaceholderFormat
}

// Row is the scan target handed to entity decoders.
type Row interface {
	Scan(dest ...any) error
}

// Rows is a forward-only result cursor.
type Rows interface {
	Row
	Next() bool
	Err() error
	Close()
}

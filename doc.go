// Package pebble compiles search queries into SQL selections, runs them and
// packages the rows with pagination metadata.
//
// An Entity binds a row model to its table. Find starts a Select over it,
// Apply attaches a query.SearchQuery (filters, sort, limit, offset) and Run
// executes the data query together with a count query over the same
// predicates:
//
//	res, err := pebble.Run(ctx, sqldb.New(conn, sq.Question), pebble.Find(items), q, fields)
//
// Results can be projected with MapInto and MapResult, which keep the drop
// accounting in the metadata.
package pebble

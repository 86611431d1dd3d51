package pebble

import (
	"context"
	"math"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/carrel-labs/pebble/db"
	"github.com/carrel-labs/pebble/field"
	"github.com/carrel-labs/pebble/internal/logger"
	"github.com/carrel-labs/pebble/internal/metrics"
	"github.com/carrel-labs/pebble/query"
)

// Run applies q to sel, fetches the matching rows and counts them.
//
// A nil query lists everything. With FindOne at most one row is fetched.
// Totals come from a second query over the same predicates that ignores
// limit, offset and order; pages are counted with the query length, or
// DefaultPageSize when the length is not positive. Any failure aborts the
// run and no partial result is returned.
func Run[M any](
	ctx context.Context, conn db.Querier, sel Select[M],
	q *query.SearchQuery, fields field.Map, opts ...Option,
) (*Result[M], error) {
	cfg := newRunConfig(opts)
	if cfg.logger != nil {
		ctx = logger.ContextWithLogger(ctx, cfg.logger)
	}
	if q == nil {
		q = query.All()
	}
	entity := sel.entity.Table()

	start := time.Now()
	assembled, err := Apply(sel, q, fields)
	observe(entity, metrics.PhaseCompile, start, err)
	if err != nil {
		return nil, err
	}

	pageSize := int64(q.Length)
	if pageSize <= 0 {
		pageSize = cfg.pageSize
	}

	var (
		rows  []M
		pages Pages
	)
	fetch := func(ctx context.Context) error {
		start := time.Now()
		var err error
		if q.FindOne {
			rows, err = fetchOne(ctx, conn, assembled)
		} else {
			rows, err = assembled.All(ctx, conn)
		}
		observe(entity, metrics.PhaseSelect, start, err)
		return err
	}
	count := func(ctx context.Context) error {
		start := time.Now()
		var err error
		pages, err = assembled.Count(ctx, conn, pageSize)
		observe(entity, metrics.PhaseCount, start, err)
		return err
	}

	if cfg.concurrentCount {
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error { return fetch(gctx) })
		g.Go(func() error { return count(gctx) })
		if err := g.Wait(); err != nil {
			return nil, err
		}
	} else {
		if err := fetch(ctx); err != nil {
			return nil, err
		}
		if err := count(ctx); err != nil {
			return nil, err
		}
	}

	metrics.QueryResultItems.WithLabelValues(entity).Observe(float64(len(rows)))

	return &Result[M]{
		Metadata: query.SearchResultMetadata{
			ResultItems:      clamp32(int64(len(rows))),
			Offset:           q.Offset,
			Length:           q.Length,
			Page:             q.Page,
			ResultTotalPages: clamp32(pages.Pages),
			ResultTotalItems: clamp32(pages.Items),
			Query:            q.Clone(),
		},
		Results: rows,
	}, nil
}

// Search runs q against the selection. See Run.
func (s Select[M]) Search(
	ctx context.Context, conn db.Querier,
	q *query.SearchQuery, fields field.Map, opts ...Option,
) (*Result[M], error) {
	return Run(ctx, conn, s, q, fields, opts...)
}

func fetchOne[M any](ctx context.Context, conn db.Querier, sel Select[M]) ([]M, error) {
	m, ok, err := sel.One(ctx, conn)
	if err != nil {
		return nil, err
	}
	if !ok {
		return []M{}, nil
	}
	return []M{m}, nil
}

// clamp32 saturates n to the int32 range of the metadata fields.
func clamp32(n int64) int32 {
	return int32(max(math.MinInt32, min(n, math.MaxInt32)))
}

func observe(entity, phase string, start time.Time, err error) {
	metrics.QueryDuration.WithLabelValues(entity, phase).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.QueryErrorsTotal.WithLabelValues(entity, phase).Inc()
	}
}

package catalog

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	sq "github.com/Masterminds/squirrel"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/carrel-labs/pebble/db/sqldb"
	"github.com/carrel-labs/pebble/query"
)

func newTestRepo(t *testing.T) *Repository {
	t.Helper()
	conn, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "catalog.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })

	if err := Migrate(context.Background(), conn, "sqlite", zap.NewNop()); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	r := New(conn, sqldb.New(conn, sq.Question))
	clock := time.UnixMilli(1_700_000_000_000)
	r.now = func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}
	return r
}

func mustItem(t *testing.T, r *Repository, in NewItem) Item {
	t.Helper()
	it, err := r.CreateItem(context.Background(), in)
	if err != nil {
		t.Fatalf("create item %q: %v", in.Name, err)
	}
	return it
}

func TestRepository_CreateAndGetItem(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()

	created := mustItem(t, r, NewItem{Name: "lamp", Type: "tool", Age: 3})
	if created.ID == "" || created.Status != "active" {
		t.Fatalf("created = %+v", created)
	}

	got, err := r.GetItem(ctx, created.ID)
	if err != nil {
		t.Fatalf("get item: %v", err)
	}
	if got != created {
		t.Errorf("got %+v, want %+v", got, created)
	}

	if _, err := r.GetItem(ctx, "missing"); !errors.Is(err, ErrItemNotFound) {
		t.Errorf("expected ErrItemNotFound, got %v", err)
	}
}

func TestRepository_CreateValidation(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()

	tests := []struct {
		name string
		run  func() error
		want error
	}{
		{"blank name", func() error { _, err := r.CreateItem(ctx, NewItem{Name: "  "}); return err }, ErrInvalidInput},
		{"negative age", func() error { _, err := r.CreateItem(ctx, NewItem{Name: "x", Age: -1}); return err }, ErrInvalidInput},
		{"blank body", func() error { _, err := r.CreateNote(ctx, "any", NewNote{}); return err }, ErrInvalidInput},
		{"unknown item", func() error { _, err := r.CreateNote(ctx, "missing", NewNote{Body: "hi"}); return err }, ErrItemNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.run(); !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestRepository_SearchItems(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()

	mustItem(t, r, NewItem{Name: "a", Type: "book", Age: 40})
	mustItem(t, r, NewItem{Name: "b", Type: "book", Age: 20})
	mustItem(t, r, NewItem{Name: "c", Type: "toy", Age: 30})
	mustItem(t, r, NewItem{Name: "d", Status: "archived", Type: "book", Age: 10})

	q := &query.SearchQuery{
		Filter: &query.SearchFilter{Must: []query.SearchCondition{
			{Field: "status", Operator: query.OperatorEquals, Value: query.String("active")},
			{Field: "type", Operator: query.OperatorEquals, Value: query.String("book")},
		}},
		Sort:   &query.SearchSortOption{Field: "age", Order: query.SortAsc},
		Length: 10,
	}
	res, err := r.SearchItems(ctx, q)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(res.Results) != 2 || res.Results[0].Name != "b" || res.Results[1].Name != "a" {
		t.Errorf("results = %+v", res.Results)
	}
	if res.Metadata.ResultTotalItems != 2 || res.Metadata.ResultTotalPages != 1 {
		t.Errorf("metadata = %+v", res.Metadata)
	}

	all, err := r.SearchItems(ctx, nil)
	if err != nil {
		t.Fatalf("search all: %v", err)
	}
	if all.Metadata.ResultTotalItems != 4 {
		t.Errorf("total = %d, want 4", all.Metadata.ResultTotalItems)
	}
}

func TestRepository_SearchItems_UnknownField(t *testing.T) {
	r := newTestRepo(t)
	q := &query.SearchQuery{Filter: &query.SearchFilter{Must: []query.SearchCondition{
		{Field: "color", Operator: query.OperatorEquals, Value: query.String("red")},
	}}}
	if _, err := r.SearchItems(context.Background(), q); !errors.Is(err, query.ErrInvalidField) {
		t.Errorf("expected ErrInvalidField, got %v", err)
	}
}

func TestRepository_SearchNotes(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()

	lamp := mustItem(t, r, NewItem{Name: "lamp", Type: "tool"})
	desk := mustItem(t, r, NewItem{Name: "desk", Type: "tool"})
	for _, body := range []string{"bulb broken", "new bulb", "dusty"} {
		if _, err := r.CreateNote(ctx, lamp.ID, NewNote{Body: body}); err != nil {
			t.Fatalf("create note: %v", err)
		}
	}
	if _, err := r.CreateNote(ctx, desk.ID, NewNote{Body: "bulb spare", Kind: "todo"}); err != nil {
		t.Fatalf("create note: %v", err)
	}

	q := &query.SearchQuery{
		Filter: &query.SearchFilter{Must: []query.SearchCondition{
			{Field: "body", Operator: query.OperatorContains, Value: query.String("bulb")},
			{Field: "item_name", Operator: query.OperatorEquals, Value: query.String("lamp")},
		}},
		Sort: &query.SearchSortOption{Field: "created_at", Order: query.SortDesc},
	}
	res, err := r.SearchNotes(ctx, lamp.ID, q)
	if err != nil {
		t.Fatalf("search notes: %v", err)
	}
	if len(res.Results) != 2 || res.Results[0].Body != "new bulb" || res.Results[1].Body != "bulb broken" {
		t.Errorf("results = %+v", res.Results)
	}
	for _, n := range res.Results {
		if n.ItemID != lamp.ID || n.Kind != "comment" {
			t.Errorf("note = %+v", n)
		}
	}

	if _, err := r.SearchNotes(ctx, "missing", nil); !errors.Is(err, ErrItemNotFound) {
		t.Errorf("expected ErrItemNotFound, got %v", err)
	}
}

func TestRepository_SeedSample(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()

	if err := r.SeedSample(ctx, 8); err != nil {
		t.Fatalf("seed: %v", err)
	}
	q := &query.SearchQuery{Filter: &query.SearchFilter{Must: []query.SearchCondition{
		{Field: "status", Operator: query.OperatorEquals, Value: query.String("archived")},
	}}}
	res, err := r.SearchItems(ctx, q)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if res.Metadata.ResultTotalItems != 2 {
		t.Errorf("archived = %d, want 2", res.Metadata.ResultTotalItems)
	}
}

func TestMigrate_UnsupportedDriver(t *testing.T) {
	if err := Migrate(context.Background(), nil, "mysql", zap.NewNop()); err == nil {
		t.Error("expected error for unsupported driver")
	}
}

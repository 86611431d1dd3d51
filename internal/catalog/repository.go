package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"github.com/carrel-labs/pebble"
	"github.com/carrel-labs/pebble/db"
	"github.com/carrel-labs/pebble/query"
)

// execer is the write side of the store (ISP).
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Repository reads items and notes through pebble and writes them with
// plain inserts.
type Repository struct {
	writer execer
	reader db.Querier
	opts   []pebble.Option
	now    func() time.Time
}

// New creates a catalog repository. opts are passed to every search.
func New(writer execer, reader db.Querier, opts ...pebble.Option) *Repository {
	return &Repository{writer: writer, reader: reader, opts: opts, now: time.Now}
}

// NewItem is the create payload for an item.
type NewItem struct {
	Name   string `json:"name"`
	Status string `json:"status"`
	Type   string `json:"type"`
	Age    int64  `json:"age"`
}

// NewNote is the create payload for a note.
type NewNote struct {
	Body string `json:"body"`
	Kind string `json:"kind"`
}

// CreateItem stores a new item and returns it with its generated ID.
func (r *Repository) CreateItem(ctx context.Context, in NewItem) (Item, error) {
	if strings.TrimSpace(in.Name) == "" {
		return Item{}, fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	if in.Age < 0 {
		return Item{}, fmt.Errorf("%w: age must not be negative", ErrInvalidInput)
	}
	it := Item{
		ID:        uuid.NewString(),
		Name:      in.Name,
		Status:    orDefault(in.Status, "active"),
		Type:      in.Type,
		Age:       in.Age,
		CreatedAt: r.now().UnixMilli(),
	}

	stmt, args, err := sq.Insert("items").
		Columns("id", "name", "status", "type", "age", "created_at").
		Values(it.ID, it.Name, it.Status, it.Type, it.Age, it.CreatedAt).
		PlaceholderFormat(r.reader.Placeholder()).
		ToSql()
	if err != nil {
		return Item{}, fmt.Errorf("build insert item: %w", err)
	}
	if _, err := r.writer.ExecContext(ctx, stmt, args...); err != nil {
		return Item{}, fmt.Errorf("insert item %s: %w", it.ID, db.Wrap(db.OpInsert, err))
	}
	return it, nil
}

// CreateNote attaches a note to an existing item.
func (r *Repository) CreateNote(ctx context.Context, itemID string, in NewNote) (Note, error) {
	if strings.TrimSpace(in.Body) == "" {
		return Note{}, fmt.Errorf("%w: body is required", ErrInvalidInput)
	}
	if _, err := r.GetItem(ctx, itemID); err != nil {
		return Note{}, err
	}
	n := Note{
		ID:        uuid.NewString(),
		ItemID:    itemID,
		Body:      in.Body,
		Kind:      orDefault(in.Kind, "comment"),
		CreatedAt: r.now().UnixMilli(),
	}

	stmt, args, err := sq.Insert("notes").
		Columns("id", "item_id", "body", "kind", "created_at").
		Values(n.ID, n.ItemID, n.Body, n.Kind, n.CreatedAt).
		PlaceholderFormat(r.reader.Placeholder()).
		ToSql()
	if err != nil {
		return Note{}, fmt.Errorf("build insert note: %w", err)
	}
	if _, err := r.writer.ExecContext(ctx, stmt, args...); err != nil {
		return Note{}, fmt.Errorf("insert note %s: %w", n.ID, db.Wrap(db.OpInsert, err))
	}
	return n, nil
}

// GetItem returns one item by ID.
func (r *Repository) GetItem(ctx context.Context, id string) (Item, error) {
	it, ok, err := pebble.Find[Item](ItemEntity{}).
		Where(sq.Eq{"items.id": id}).
		One(ctx, r.reader)
	if err != nil {
		return Item{}, fmt.Errorf("get item %s: %w", id, err)
	}
	if !ok {
		return Item{}, fmt.Errorf("item %s: %w", id, ErrItemNotFound)
	}
	return it, nil
}

// SearchItems runs q over all items.
func (r *Repository) SearchItems(ctx context.Context, q *query.SearchQuery) (*pebble.Result[Item], error) {
	return pebble.Run(ctx, r.reader, pebble.Find[Item](ItemEntity{}), q, ItemFields, r.opts...)
}

// SearchNotes runs q over the notes of one item.
func (r *Repository) SearchNotes(ctx context.Context, itemID string, q *query.SearchQuery) (*pebble.Result[Note], error) {
	it, err := r.GetItem(ctx, itemID)
	if err != nil {
		return nil, err
	}
	return pebble.Run(ctx, r.reader, pebble.FindLinked(it, ItemNotes), q, NoteFields, r.opts...)
}

// SeedSample inserts n generated items, each with one note. Used by the demo
// server on an empty database.
func (r *Repository) SeedSample(ctx context.Context, n int) error {
	types := []string{"book", "tool", "toy"}
	for i := 0; i < n; i++ {
		status := "active"
		if i%4 == 3 {
			status = "archived"
		}
		it, err := r.CreateItem(ctx, NewItem{
			Name:   fmt.Sprintf("sample-%03d", i+1),
			Status: status,
			Type:   types[i%len(types)],
			Age:    int64(18 + i%50),
		})
		if err != nil {
			return fmt.Errorf("seed item %d: %w", i+1, err)
		}
		if _, err := r.CreateNote(ctx, it.ID, NewNote{Body: "seeded " + it.Name}); err != nil {
			return fmt.Errorf("seed note %d: %w", i+1, err)
		}
	}
	return nil
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

// Package catalog is the sample schema served by the demo: items and the
// notes attached to them.
package catalog

import (
	sq "github.com/Masterminds/squirrel"

	"github.com/carrel-labs/pebble"
	"github.com/carrel-labs/pebble/db"
	"github.com/carrel-labs/pebble/field"
)

// Item is a catalog entry.
type Item struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Status    string `json:"status"`
	Type      string `json:"type"`
	Age       int64  `json:"age"`
	CreatedAt int64  `json:"created_at"` // unix milliseconds
}

// Note is free text attached to an item.
type Note struct {
	ID        string `json:"id"`
	ItemID    string `json:"item_id"`
	Body      string `json:"body"`
	Kind      string `json:"kind"`
	CreatedAt int64  `json:"created_at"`
}

// ItemEntity binds Item to the items table.
type ItemEntity struct{}

func (ItemEntity) Table() string { return "items" }

func (ItemEntity) Columns() []string {
	return []string{"id", "name", "status", "type", "age", "created_at"}
}

func (ItemEntity) Scan(row db.Row) (Item, error) {
	var it Item
	err := row.Scan(&it.ID, &it.Name, &it.Status, &it.Type, &it.Age, &it.CreatedAt)
	return it, err
}

// NoteEntity binds Note to the notes table.
type NoteEntity struct{}

func (NoteEntity) Table() string { return "notes" }

func (NoteEntity) Columns() []string {
	return []string{"id", "item_id", "body", "kind", "created_at"}
}

func (NoteEntity) Scan(row db.Row) (Note, error) {
	var n Note
	err := row.Scan(&n.ID, &n.ItemID, &n.Body, &n.Kind, &n.CreatedAt)
	return n, err
}

// Searchable fields.
var (
	ItemFields = field.New("items", "id", "name", "status", "type", "age", "created_at")

	// NoteFields also reaches the owning item through the join added by ItemNotes.
	NoteFields = field.New("notes", "id", "body", "kind", "created_at").
		With("item_name", field.Column{Table: "items", Name: "name"}).
		With("item_status", field.Column{Table: "items", Name: "status"})
)

// ItemNotes reaches the notes of one item.
var ItemNotes = pebble.Relation[Item, Note]{
	To: NoteEntity{},
	Scope: func(sel pebble.Select[Note], it Item) pebble.Select[Note] {
		return sel.
			Join("items ON items.id = notes.item_id").
			Where(sq.Eq{"notes.item_id": it.ID})
	},
}

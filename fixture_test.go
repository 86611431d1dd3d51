package pebble

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"testing"

	sq "github.com/Masterminds/squirrel"
	_ "modernc.org/sqlite"

	"github.com/carrel-labs/pebble/db"
	"github.com/carrel-labs/pebble/db/sqldb"
	"github.com/carrel-labs/pebble/field"
)

const fixtureItems = 35

type item struct {
	ID        int64
	Name      string
	Status    string
	Type      string
	Age       int64
	CreatedAt int64
}

type note struct {
	ID     int64
	ItemID int64
	Body   string
	Pinned bool
}

type itemEntity struct{}

func (itemEntity) Table() string { return "items" }
func (itemEntity) Columns() []string {
	return []string{"id", "name", "status", "type", "age", "created_at"}
}
func (itemEntity) Scan(row db.Row) (item, error) {
	var it item
	err := row.Scan(&it.ID, &it.Name, &it.Status, &it.Type, &it.Age, &it.CreatedAt)
	return it, err
}

type noteEntity struct{}

func (noteEntity) Table() string     { return "notes" }
func (noteEntity) Columns() []string { return []string{"id", "item_id", "body", "pinned"} }
func (noteEntity) Scan(row db.Row) (note, error) {
	var n note
	err := row.Scan(&n.ID, &n.ItemID, &n.Body, &n.Pinned)
	return n, err
}

var (
	items = itemEntity{}
	notes = noteEntity{}

	itemFields = field.New("items", "id", "name", "status", "type", "age", "created_at")
	noteFields = field.New("notes", "id", "body", "pinned")

	itemNotes = Relation[item, note]{
		To: notes,
		Scope: func(sel Select[note], it item) Select[note] {
			return sel.Where(sq.Eq{"notes.item_id": it.ID})
		},
	}
)

// fixtureItem derives row i (1-based): 20 of 35 rows are active, even
// ids have type "x", ages run 11..45 and creation time grows with id.
func fixtureItem(i int) item {
	it := item{
		ID:        int64(i),
		Name:      fmt.Sprintf("item-%02d", i),
		Status:    "inactive",
		Type:      "y",
		Age:       int64(i + 10),
		CreatedAt: 1_700_000_000 + int64(i)*3600,
	}
	if i%7 < 4 {
		it.Status = "active"
	}
	if i%2 == 0 {
		it.Type = "x"
	}
	return it
}

func openFixture(t *testing.T) *sql.DB {
	t.Helper()
	conn, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	conn.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = conn.Close() })

	schema := []string{
		`CREATE TABLE items (
			id INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			status TEXT NOT NULL,
			type TEXT NOT NULL,
			age INTEGER NOT NULL,
			created_at INTEGER NOT NULL
		)`,
		`CREATE TABLE notes (
			id INTEGER PRIMARY KEY,
			item_id INTEGER NOT NULL REFERENCES items(id),
			body TEXT NOT NULL,
			pinned INTEGER NOT NULL DEFAULT 0
		)`,
	}
	for _, s := range schema {
		if _, err := conn.Exec(s); err != nil {
			t.Fatalf("schema: %v", err)
		}
	}

	for i := 1; i <= fixtureItems; i++ {
		it := fixtureItem(i)
		_, err := conn.Exec(
			`INSERT INTO items (id, name, status, type, age, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
			it.ID, it.Name, it.Status, it.Type, it.Age, it.CreatedAt,
		)
		if err != nil {
			t.Fatalf("insert item: %v", err)
		}
	}

	fixtureNotes := []note{
		{ID: 1, ItemID: 1, Body: "first", Pinned: true},
		{ID: 2, ItemID: 1, Body: "second"},
		{ID: 3, ItemID: 1, Body: "third", Pinned: true},
		{ID: 4, ItemID: 2, Body: "only"},
	}
	for _, n := range fixtureNotes {
		if _, err := conn.Exec(
			`INSERT INTO notes (id, item_id, body, pinned) VALUES (?, ?, ?, ?)`,
			n.ID, n.ItemID, n.Body, n.Pinned,
		); err != nil {
			t.Fatalf("insert note: %v", err)
		}
	}
	return conn
}

// recordingQuerier counts round trips and can fail the statements matched by failOn.
type recordingQuerier struct {
	db.Querier

	mu      sync.Mutex
	queries []string
	failOn  func(sql string) bool
	err     error
}

func newRecordingQuerier(t *testing.T) *recordingQuerier {
	t.Helper()
	return &recordingQuerier{Querier: sqldb.New(openFixture(t), sq.Question)}
}

func (q *recordingQuerier) Query(ctx context.Context, query string, args ...any) (db.Rows, error) {
	q.mu.Lock()
	q.queries = append(q.queries, query)
	fail := q.failOn != nil && q.failOn(query)
	q.mu.Unlock()
	if fail {
		return nil, q.err
	}
	return q.Querier.Query(ctx, query, args...)
}

func (q *recordingQuerier) calls() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.queries)
}

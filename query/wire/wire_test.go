package wire

import (
	"errors"
	"reflect"
	"testing"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/carrel-labs/pebble/query"
)

func fullQuery() *query.SearchQuery {
	th := float32(0.75)
	return &query.SearchQuery{
		Relation: &query.SearchRelation{ParentIDs: []int32{3, 300, -1}, ChildType: []string{"note", "tag"}},
		Sort:     &query.SearchSortOption{Field: "created_at", Order: query.SortDesc},
		Offset:   20,
		Length:   10,
		Page:     3,
		Filter: &query.SearchFilter{
			Must: []query.SearchCondition{
				{Field: "status", Operator: query.OperatorEquals, Value: query.String("active")},
				{Field: "age", Operator: query.OperatorBetween, Value: query.String("18"), ValueTo: query.String("30")},
			},
			Any: []query.SearchCondition{
				{Field: "type", Operator: query.OperatorIn, ValueList: []string{"a", "b"}},
				{Field: "body", Operator: query.OperatorSimilar, Value: query.String("hello"), Threshold: &th},
			},
		},
		FindOne: true,
	}
}

func TestQuery_RoundTrip(t *testing.T) {
	tests := []struct {
		name string
		q    *query.SearchQuery
	}{
		{"full", fullQuery()},
		{"find all", query.All()},
		{"empty value kept", &query.SearchQuery{Filter: &query.SearchFilter{
			Must: []query.SearchCondition{{Field: "name", Operator: query.OperatorEquals, Value: query.String("")}},
		}}},
		{"zero", &query.SearchQuery{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := UnmarshalQuery(MarshalQuery(tt.q))
			if err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if !reflect.DeepEqual(got, tt.q) {
				t.Errorf("round trip mismatch:\n got %+v\nwant %+v", got, tt.q)
			}
		})
	}
}

func TestMarshalQuery_FieldNumbers(t *testing.T) {
	b := MarshalQuery(&query.SearchQuery{Length: 10, FindAll: true})

	want := protowire.AppendTag(nil, 4, protowire.VarintType)
	want = protowire.AppendVarint(want, 10)
	want = protowire.AppendTag(want, 8, protowire.VarintType)
	want = protowire.AppendVarint(want, 1)

	if !reflect.DeepEqual(b, want) {
		t.Errorf("encoded = %x, want %x", b, want)
	}
}

func TestUnmarshalQuery_UnpackedParentIDsAndUnknownFields(t *testing.T) {
	var rel []byte
	rel = protowire.AppendTag(rel, 1, protowire.VarintType)
	rel = protowire.AppendVarint(rel, 5)
	rel = protowire.AppendTag(rel, 1, protowire.VarintType)
	rel = protowire.AppendVarint(rel, 6)

	var b []byte
	b = protowire.AppendTag(b, 9, protowire.BytesType)
	b = protowire.AppendBytes(b, rel)
	b = protowire.AppendTag(b, 99, protowire.Fixed64Type)
	b = protowire.AppendFixed64(b, 12345)
	b = protowire.AppendTag(b, 5, protowire.VarintType)
	b = protowire.AppendVarint(b, 2)

	q, err := UnmarshalQuery(b)
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !reflect.DeepEqual(q.Relation.ParentIDs, []int32{5, 6}) {
		t.Errorf("parent ids = %v", q.Relation.ParentIDs)
	}
	if q.Page != 2 {
		t.Errorf("page = %d", q.Page)
	}
}

func TestUnmarshalQuery_Malformed(t *testing.T) {
	b := protowire.AppendTag(nil, 6, protowire.BytesType)
	b = protowire.AppendVarint(b, 50) // length past end of buffer

	if _, err := UnmarshalQuery(b); !errors.Is(err, ErrMalformed) {
		t.Errorf("expected ErrMalformed, got %v", err)
	}
}

func TestMetadata_RoundTrip(t *testing.T) {
	count := int32(2)
	m := &query.SearchResultMetadata{
		ResultItems:      3,
		Offset:           20,
		Length:           10,
		Page:             3,
		ResultTotalPages: 6,
		ResultTotalItems: 53,
		Query:            fullQuery(),
		FilterCount:      &count,
		FilterReason:     query.String("odd-index excluded"),
	}

	got, err := UnmarshalMetadata(MarshalMetadata(m))
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !reflect.DeepEqual(got, m) {
		t.Errorf("round trip mismatch:\n got %+v\nwant %+v", got, m)
	}
}

func TestMetadata_ZeroFilterCountIsPresent(t *testing.T) {
	zero := int32(0)
	got, err := UnmarshalMetadata(MarshalMetadata(&query.SearchResultMetadata{FilterCount: &zero}))
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.FilterCount == nil || *got.FilterCount != 0 {
		t.Errorf("filter_count = %v, want explicit 0", got.FilterCount)
	}
	if got.FilterReason != nil || got.Query != nil {
		t.Errorf("unexpected fields: %+v", got)
	}
}

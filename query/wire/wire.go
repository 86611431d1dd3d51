// Package wire encodes the query model in protobuf wire format using the
// stable field numbers of the published search messages, so payloads stay
// compatible with generated clients in other languages.
package wire

import (
	"errors"
	"fmt"
	"math"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/carrel-labs/pebble/query"
)

// Field numbers of SearchQuery.
const (
	querySort     protowire.Number = 1
	queryOffset   protowire.Number = 3
	queryLength   protowire.Number = 4
	queryPage     protowire.Number = 5
	queryFilter   protowire.Number = 6
	queryFindOne  protowire.Number = 7
	queryFindAll  protowire.Number = 8
	queryRelation protowire.Number = 9
)

// Field numbers of SearchRelation, SearchFilter, SearchSortOption.
const (
	relationParentIDs protowire.Number = 1
	relationChildType protowire.Number = 2

	filterMust protowire.Number = 1
	filterAny  protowire.Number = 2

	sortField protowire.Number = 1
	sortOrder protowire.Number = 2
)

// Field numbers of SearchCondition.
const (
	conditionField     protowire.Number = 1
	conditionOperator  protowire.Number = 2
	conditionValue     protowire.Number = 3
	conditionValueList protowire.Number = 4
	conditionThreshold protowire.Number = 5
	conditionValueTo   protowire.Number = 6
)

// Field numbers of SearchResultMetadata.
const (
	metaResultItems      protowire.Number = 1
	metaOffset           protowire.Number = 2
	metaLength           protowire.Number = 3
	metaPage             protowire.Number = 4
	metaResultTotalPages protowire.Number = 5
	metaResultTotalItems protowire.Number = 6
	metaQuery            protowire.Number = 7
	metaFilterCount      protowire.Number = 9
	metaFilterReason     protowire.Number = 10
)

// ErrMalformed signals a payload that is not valid protobuf wire data.
var ErrMalformed = errors.New("wire: malformed message")

// MarshalQuery encodes q. A nil query encodes to an empty message.
func MarshalQuery(q *query.SearchQuery) []byte {
	if q == nil {
		return nil
	}
	return appendQuery(nil, q)
}

// UnmarshalQuery decodes a SearchQuery. Unknown fields are skipped.
func UnmarshalQuery(b []byte) (*query.SearchQuery, error) {
	q := &query.SearchQuery{}
	if err := decodeQuery(b, q); err != nil {
		return nil, err
	}
	return q, nil
}

// MarshalMetadata encodes result metadata, embedding the originating query.
func MarshalMetadata(m *query.SearchResultMetadata) []byte {
	if m == nil {
		return nil
	}
	var b []byte
	b = appendInt32(b, metaResultItems, m.ResultItems)
	b = appendInt32(b, metaOffset, m.Offset)
	b = appendInt32(b, metaLength, m.Length)
	b = appendInt32(b, metaPage, m.Page)
	b = appendInt32(b, metaResultTotalPages, m.ResultTotalPages)
	b = appendInt32(b, metaResultTotalItems, m.ResultTotalItems)
	if m.Query != nil {
		b = appendMessage(b, metaQuery, appendQuery(nil, m.Query))
	}
	if m.FilterCount != nil {
		b = protowire.AppendTag(b, metaFilterCount, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(int64(*m.FilterCount)))
	}
	if m.FilterReason != nil {
		b = protowire.AppendTag(b, metaFilterReason, protowire.BytesType)
		b = protowire.AppendString(b, *m.FilterReason)
	}
	return b
}

// UnmarshalMetadata decodes result metadata.
func UnmarshalMetadata(b []byte) (*query.SearchResultMetadata, error) {
	m := &query.SearchResultMetadata{}
	err := walk(b, func(num protowire.Number, typ protowire.Type, v []byte, x uint64) error {
		switch {
		case num == metaResultItems && typ == protowire.VarintType:
			m.ResultItems = int32(x)
		case num == metaOffset && typ == protowire.VarintType:
			m.Offset = int32(x)
		case num == metaLength && typ == protowire.VarintType:
			m.Length = int32(x)
		case num == metaPage && typ == protowire.VarintType:
			m.Page = int32(x)
		case num == metaResultTotalPages && typ == protowire.VarintType:
			m.ResultTotalPages = int32(x)
		case num == metaResultTotalItems && typ == protowire.VarintType:
			m.ResultTotalItems = int32(x)
		case num == metaQuery && typ == protowire.BytesType:
			if m.Query == nil {
				m.Query = &query.SearchQuery{}
			}
			return decodeQuery(v, m.Query)
		case num == metaFilterCount && typ == protowire.VarintType:
			n := int32(x)
			m.FilterCount = &n
		case num == metaFilterReason && typ == protowire.BytesType:
			s := string(v)
			m.FilterReason = &s
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return m, nil
}

func appendQuery(b []byte, q *query.SearchQuery) []byte {
	if q.Sort != nil {
		var s []byte
		s = appendString(s, sortField, q.Sort.Field)
		s = appendInt32(s, sortOrder, int32(q.Sort.Order))
		b = appendMessage(b, querySort, s)
	}
	b = appendInt32(b, queryOffset, q.Offset)
	b = appendInt32(b, queryLength, q.Length)
	b = appendInt32(b, queryPage, q.Page)
	if q.Filter != nil {
		var f []byte
		for i := range q.Filter.Must {
			f = appendMessage(f, filterMust, appendCondition(nil, &q.Filter.Must[i]))
		}
		for i := range q.Filter.Any {
			f = appendMessage(f, filterAny, appendCondition(nil, &q.Filter.Any[i]))
		}
		b = appendMessage(b, queryFilter, f)
	}
	b = appendBool(b, queryFindOne, q.FindOne)
	b = appendBool(b, queryFindAll, q.FindAll)
	if q.Relation != nil {
		var r []byte
		if len(q.Relation.ParentIDs) > 0 {
			var packed []byte
			for _, id := range q.Relation.ParentIDs {
				packed = protowire.AppendVarint(packed, uint64(int64(id)))
			}
			r = appendMessage(r, relationParentIDs, packed)
		}
		for _, ct := range q.Relation.ChildType {
			r = protowire.AppendTag(r, relationChildType, protowire.BytesType)
			r = protowire.AppendString(r, ct)
		}
		b = appendMessage(b, queryRelation, r)
	}
	return b
}

func appendCondition(b []byte, c *query.SearchCondition) []byte {
	b = appendString(b, conditionField, c.Field)
	b = appendInt32(b, conditionOperator, int32(c.Operator))
	if c.Value != nil {
		b = protowire.AppendTag(b, conditionValue, protowire.BytesType)
		b = protowire.AppendString(b, *c.Value)
	}
	for _, v := range c.ValueList {
		b = protowire.AppendTag(b, conditionValueList, protowire.BytesType)
		b = protowire.AppendString(b, v)
	}
	if c.Threshold != nil {
		b = protowire.AppendTag(b, conditionThreshold, protowire.Fixed32Type)
		b = protowire.AppendFixed32(b, math.Float32bits(*c.Threshold))
	}
	if c.ValueTo != nil {
		b = protowire.AppendTag(b, conditionValueTo, protowire.BytesType)
		b = protowire.AppendString(b, *c.ValueTo)
	}
	return b
}

func decodeQuery(b []byte, q *query.SearchQuery) error {
	return walk(b, func(num protowire.Number, typ protowire.Type, v []byte, x uint64) error {
		switch {
		case num == querySort && typ == protowire.BytesType:
			if q.Sort == nil {
				q.Sort = &query.SearchSortOption{}
			}
			return decodeSort(v, q.Sort)
		case num == queryOffset && typ == protowire.VarintType:
			q.Offset = int32(x)
		case num == queryLength && typ == protowire.VarintType:
			q.Length = int32(x)
		case num == queryPage && typ == protowire.VarintType:
			q.Page = int32(x)
		case num == queryFilter && typ == protowire.BytesType:
			if q.Filter == nil {
				q.Filter = &query.SearchFilter{}
			}
			return decodeFilter(v, q.Filter)
		case num == queryFindOne && typ == protowire.VarintType:
			q.FindOne = protowire.DecodeBool(x)
		case num == queryFindAll && typ == protowire.VarintType:
			q.FindAll = protowire.DecodeBool(x)
		case num == queryRelation && typ == protowire.BytesType:
			if q.Relation == nil {
				q.Relation = &query.SearchRelation{}
			}
			return decodeRelation(v, q.Relation)
		}
		return nil
	})
}

func decodeSort(b []byte, s *query.SearchSortOption) error {
	return walk(b, func(num protowire.Number, typ protowire.Type, v []byte, x uint64) error {
		switch {
		case num == sortField && typ == protowire.BytesType:
			s.Field = string(v)
		case num == sortOrder && typ == protowire.VarintType:
			s.Order = query.SortDirection(int32(x))
		}
		return nil
	})
}

func decodeFilter(b []byte, f *query.SearchFilter) error {
	return walk(b, func(num protowire.Number, typ protowire.Type, v []byte, _ uint64) error {
		if typ != protowire.BytesType {
			return nil
		}
		switch num {
		case filterMust, filterAny:
			var c query.SearchCondition
			if err := decodeCondition(v, &c); err != nil {
				return err
			}
			if num == filterMust {
				f.Must = append(f.Must, c)
			} else {
				f.Any = append(f.Any, c)
			}
		}
		return nil
	})
}

func decodeCondition(b []byte, c *query.SearchCondition) error {
	return walk(b, func(num protowire.Number, typ protowire.Type, v []byte, x uint64) error {
		switch {
		case num == conditionField && typ == protowire.BytesType:
			c.Field = string(v)
		case num == conditionOperator && typ == protowire.VarintType:
			c.Operator = query.Operator(int32(x))
		case num == conditionValue && typ == protowire.BytesType:
			c.Value = query.String(string(v))
		case num == conditionValueList && typ == protowire.BytesType:
			c.ValueList = append(c.ValueList, string(v))
		case num == conditionThreshold && typ == protowire.Fixed32Type:
			t := math.Float32frombits(uint32(x))
			c.Threshold = &t
		case num == conditionValueTo && typ == protowire.BytesType:
			c.ValueTo = query.String(string(v))
		}
		return nil
	})
}

func decodeRelation(b []byte, r *query.SearchRelation) error {
	return walk(b, func(num protowire.Number, typ protowire.Type, v []byte, x uint64) error {
		switch {
		case num == relationParentIDs && typ == protowire.VarintType:
			r.ParentIDs = append(r.ParentIDs, int32(x))
		case num == relationParentIDs && typ == protowire.BytesType:
			for len(v) > 0 {
				id, n := protowire.ConsumeVarint(v)
				if n < 0 {
					return fmt.Errorf("%w: parent_ids: %w", ErrMalformed, protowire.ParseError(n))
				}
				r.ParentIDs = append(r.ParentIDs, int32(id))
				v = v[n:]
			}
		case num == relationChildType && typ == protowire.BytesType:
			r.ChildType = append(r.ChildType, string(v))
		}
		return nil
	})
}

// walk iterates over the fields of one message. For varint and fixed32
// fields x carries the scalar; for length-delimited fields v carries the payload.
func walk(b []byte, fn func(num protowire.Number, typ protowire.Type, v []byte, x uint64) error) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return fmt.Errorf("%w: %w", ErrMalformed, protowire.ParseError(n))
		}
		b = b[n:]

		var (
			v []byte
			x uint64
		)
		switch typ {
		case protowire.VarintType:
			x, n = protowire.ConsumeVarint(b)
		case protowire.Fixed32Type:
			var f uint32
			f, n = protowire.ConsumeFixed32(b)
			x = uint64(f)
		case protowire.BytesType:
			v, n = protowire.ConsumeBytes(b)
		default:
			n = protowire.ConsumeFieldValue(num, typ, b)
		}
		if n < 0 {
			return fmt.Errorf("%w: field %d: %w", ErrMalformed, num, protowire.ParseError(n))
		}
		b = b[n:]

		if err := fn(num, typ, v, x); err != nil {
			return err
		}
	}
	return nil
}

func appendInt32(b []byte, num protowire.Number, v int32) []byte {
	if v == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, uint64(int64(v)))
}

func appendBool(b []byte, num protowire.Number, v bool) []byte {
	if !v {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, protowire.EncodeBool(v))
}

func appendString(b []byte, num protowire.Number, s string) []byte {
	if s == "" {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, s)
}

func appendMessage(b []byte, num protowire.Number, msg []byte) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, msg)
}

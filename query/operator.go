package query

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Operator is the comparison a SearchCondition applies to its field.
// Codes are stable wire values.
type Operator int32

// Operator codes. Only a subset compiles to SQL; the rest are reserved
// so that payloads carrying them decode and fail with ErrInvalidOperator.
const (
	OperatorUnspecified         Operator = 0
	OperatorEquals              Operator = 1
	OperatorNotEquals           Operator = 2
	OperatorGreaterThan         Operator = 3
	OperatorGreaterThanOrEquals Operator = 4
	OperatorLessThan            Operator = 5
	OperatorLessThanOrEquals    Operator = 6
	OperatorIn                  Operator = 7
	OperatorNotIn               Operator = 8
	OperatorContains            Operator = 9
	OperatorNotContains         Operator = 10
	OperatorStartsWith          Operator = 11
	OperatorNotStartsWith       Operator = 12
	OperatorEndsWith            Operator = 13
	OperatorNotEndsWith         Operator = 14
	OperatorExists              Operator = 15
	OperatorNotExists           Operator = 16
	OperatorIsNull              Operator = 17
	OperatorIsNotNull           Operator = 18
	OperatorIsTrue              Operator = 19
	OperatorIsFalse             Operator = 20
	OperatorLike                Operator = 21
	OperatorNotLike             Operator = 22
	OperatorIlike               Operator = 23
	OperatorNotIlike            Operator = 24
	OperatorBetween             Operator = 25
	OperatorNotBetween          Operator = 26
	OperatorSimilar             Operator = 27
)

const operatorPrefix = "SEARCH_OPERATOR_"

var operatorNames = map[Operator]string{
	OperatorUnspecified:         "UNSPECIFIED",
	OperatorEquals:              "EQUALS",
	OperatorNotEquals:           "NOT_EQUALS",
	OperatorGreaterThan:         "GREATER_THAN",
	OperatorGreaterThanOrEquals: "GREATER_THAN_OR_EQUALS",
	OperatorLessThan:            "LESS_THAN",
	OperatorLessThanOrEquals:    "LESS_THAN_OR_EQUALS",
	OperatorIn:                  "IN",
	OperatorNotIn:               "NOT_IN",
	OperatorContains:            "CONTAINS",
	OperatorNotContains:         "NOT_CONTAINS",
	OperatorStartsWith:          "STARTS_WITH",
	OperatorNotStartsWith:       "NOT_STARTS_WITH",
	OperatorEndsWith:            "ENDS_WITH",
	OperatorNotEndsWith:         "NOT_ENDS_WITH",
	OperatorExists:              "EXISTS",
	OperatorNotExists:           "NOT_EXISTS",
	OperatorIsNull:              "IS_NULL",
	OperatorIsNotNull:           "IS_NOT_NULL",
	OperatorIsTrue:              "IS_TRUE",
	OperatorIsFalse:             "IS_FALSE",
	OperatorLike:                "LIKE",
	OperatorNotLike:             "NOT_LIKE",
	OperatorIlike:               "ILIKE",
	OperatorNotIlike:            "NOT_ILIKE",
	OperatorBetween:             "BETWEEN",
	OperatorNotBetween:          "NOT_BETWEEN",
	OperatorSimilar:             "SIMILAR",
}

var operatorsByName = func() map[string]Operator {
	m := make(map[string]Operator, len(operatorNames))
	for op, name := range operatorNames {
		m[name] = op
	}
	return m
}()

// String returns the wire name, e.g. SEARCH_OPERATOR_EQUALS.
func (o Operator) String() string {
	if name, ok := operatorNames[o]; ok {
		return operatorPrefix + name
	}
	return fmt.Sprintf("%s%d", operatorPrefix, int32(o))
}

// Label is the lower-case human form used in error messages ("not between").
func (o Operator) Label() string {
	if name, ok := operatorNames[o]; ok {
		return strings.ToLower(strings.ReplaceAll(name, "_", " "))
	}
	return strconv.Itoa(int(o))
}

// IsKnown reports whether the code belongs to the catalog.
func (o Operator) IsKnown() bool {
	_, ok := operatorNames[o]
	return ok
}

// ParseOperator accepts the wire name with or without the SEARCH_OPERATOR_
// prefix, case-insensitively, or a decimal code.
func ParseOperator(s string) (Operator, error) {
	name := strings.ToUpper(strings.TrimSpace(s))
	name = strings.TrimPrefix(name, operatorPrefix)
	if op, ok := operatorsByName[name]; ok {
		return op, nil
	}
	if n, err := strconv.ParseInt(name, 10, 32); err == nil {
		return Operator(n), nil
	}
	return OperatorUnspecified, fmt.Errorf("%w: %q", ErrInvalidOperator, s)
}

// MarshalJSON encodes the operator as its wire name.
func (o Operator) MarshalJSON() ([]byte, error) {
	return json.Marshal(o.String())
}

// UnmarshalJSON accepts a name or a numeric code.
func (o *Operator) UnmarshalJSON(data []byte) error {
	var code int32
	if err := json.Unmarshal(data, &code); err == nil {
		*o = Operator(code)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("operator must be a string or integer: %w", err)
	}
	op, err := ParseOperator(s)
	if err != nil {
		return err
	}
	*o = op
	return nil
}

// SortDirection orders a sort field. Unspecified sorts ascending.
type SortDirection int32

// Sort directions.
const (
	SortUnspecified SortDirection = 0
	SortAsc         SortDirection = 1
	SortDesc        SortDirection = 2
)

const sortPrefix = "SORT_DIRECTION_"

// String returns the wire name, e.g. SORT_DIRECTION_DESC.
func (d SortDirection) String() string {
	switch d {
	case SortUnspecified:
		return sortPrefix + "UNSPECIFIED"
	case SortAsc:
		return sortPrefix + "ASC"
	case SortDesc:
		return sortPrefix + "DESC"
	default:
		return fmt.Sprintf("%s%d", sortPrefix, int32(d))
	}
}

// IsKnown reports whether the code is one of the defined directions.
func (d SortDirection) IsKnown() bool {
	return d >= SortUnspecified && d <= SortDesc
}

// ParseSortDirection accepts ASC/DESC/UNSPECIFIED with or without prefix, or a code.
func ParseSortDirection(s string) (SortDirection, error) {
	name := strings.TrimPrefix(strings.ToUpper(strings.TrimSpace(s)), sortPrefix)
	switch name {
	case "", "UNSPECIFIED":
		return SortUnspecified, nil
	case "ASC", "ASCENDING":
		return SortAsc, nil
	case "DESC", "DESCENDING":
		return SortDesc, nil
	}
	if n, err := strconv.ParseInt(name, 10, 32); err == nil {
		return SortDirection(n), nil
	}
	return SortUnspecified, fmt.Errorf("invalid sort direction %q", s)
}

// MarshalJSON encodes the direction as its wire name.
func (d SortDirection) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// UnmarshalJSON accepts a name or a numeric code.
func (d *SortDirection) UnmarshalJSON(data []byte) error {
	var code int32
	if err := json.Unmarshal(data, &code); err == nil {
		*d = SortDirection(code)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("sort order must be a string or integer: %w", err)
	}
	dir, err := ParseSortDirection(s)
	if err != nil {
		return err
	}
	*d = dir
	return nil
}

package query

import (
	"regexp"

	"github.com/gobeam/stringy"
)

// Normalize returns a copy of q with every filter and sort field name in
// snake_case, so "Created At" and "createdAt" both become "created_at".
// The input is left untouched.
func Normalize(q *SearchQuery) *SearchQuery {
	out := q.Clone()
	if out == nil {
		return nil
	}
	if out.Filter != nil {
		for i := range out.Filter.Must {
			out.Filter.Must[i].Field = SnakeCase(out.Filter.Must[i].Field)
		}
		for i := range out.Filter.Any {
			out.Filter.Any[i].Field = SnakeCase(out.Filter.Any[i].Field)
		}
	}
	if out.Sort != nil {
		out.Sort.Field = SnakeCase(out.Sort.Field)
	}
	return out
}

// Word boundaries stringy does not split on by itself: the end of an
// acronym ("HTTPStatus") and letter/digit transitions ("field1", "2fa").
var (
	acronymBoundary     = regexp.MustCompile(`([A-Z]+)([A-Z][a-z])`)
	letterDigitBoundary = regexp.MustCompile(`([A-Za-z])([0-9])`)
	digitLetterBoundary = regexp.MustCompile(`([0-9])([A-Za-z])`)
)

// SnakeCase converts a human or camel-cased field name to snake_case.
func SnakeCase(name string) string {
	if name == "" {
		return name
	}
	name = acronymBoundary.ReplaceAllString(name, "$1 $2")
	name = letterDigitBoundary.ReplaceAllString(name, "$1 $2")
	name = digitLetterBoundary.ReplaceAllString(name, "$1 $2")
	return stringy.New(name).SnakeCase().ToLower()
}

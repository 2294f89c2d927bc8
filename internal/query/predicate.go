// Package query evaluates document predicates against loosely typed records.
//
// A predicate is a small AST (Equals, And, Or, Regex, Exists, Ne, Gte, Lt,
// SizeEquals, In, Nested) built either with the helpers in builder.go or by
// parsing a JSON query document with Parse / ParseJSON.
package query

import (
	"reflect"
	"regexp"
)

// Predicate reports whether a document satisfies a condition.
type Predicate interface {
	Match(doc map[string]any) bool
}

// All matches every document. It is what an empty query document parses to.
type All struct{}

func (All) Match(map[string]any) bool { return true }

// And matches when every term matches. An empty And matches everything.
type And struct {
	Terms []Predicate
}

func (p And) Match(doc map[string]any) bool {
	for _, t := range p.Terms {
		if !t.Match(doc) {
			return false
		}
	}
	return true
}

// Or matches when at least one term matches. An empty Or matches nothing.
type Or struct {
	Terms []Predicate
}

func (p Or) Match(doc map[string]any) bool {
	for _, t := range p.Terms {
		if t.Match(doc) {
			return true
		}
	}
	return false
}

// Equals matches when the field equals Value. A missing field equals nil.
type Equals struct {
	Field string
	Value any
}

func (p Equals) Match(doc map[string]any) bool {
	return Equal(doc[p.Field], p.Value)
}

// Regex matches string fields against a compiled pattern.
type Regex struct {
	Field   string
	Pattern *regexp.Regexp
}

func (p Regex) Match(doc map[string]any) bool {
	s, ok := doc[p.Field].(string)
	return ok && p.Pattern.MatchString(s)
}

// Exists matches when the presence of a non-nil field value equals Want.
type Exists struct {
	Field string
	Want  bool
}

func (p Exists) Match(doc map[string]any) bool {
	v, ok := doc[p.Field]
	return (ok && v != nil) == p.Want
}

// Ne matches when the field does not equal Value.
type Ne struct {
	Field string
	Value any
}

func (p Ne) Match(doc map[string]any) bool {
	return !Equal(doc[p.Field], p.Value)
}

// Gte matches when the field orders at or after Value.
// Only number/number and string/string pairs are comparable.
type Gte struct {
	Field string
	Value any
}

func (p Gte) Match(doc map[string]any) bool {
	c, ok := Compare(doc[p.Field], p.Value)
	return ok && c >= 0
}

// Lt matches when the field orders strictly before Value.
type Lt struct {
	Field string
	Value any
}

func (p Lt) Match(doc map[string]any) bool {
	c, ok := Compare(doc[p.Field], p.Value)
	return ok && c < 0
}

// SizeEquals matches sequence fields of exactly Size elements.
type SizeEquals struct {
	Field string
	Size  int
}

func (p SizeEquals) Match(doc map[string]any) bool {
	v := doc[p.Field]
	if v == nil {
		return false
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return false
	}
	return rv.Len() == p.Size
}

// In matches when the field equals any of Values.
type In struct {
	Field  string
	Values []any
}

func (p In) Match(doc map[string]any) bool {
	v := doc[p.Field]
	for _, candidate := range p.Values {
		if Equal(v, candidate) {
			return true
		}
	}
	return false
}

// Nested applies Query to the sub-document stored under Field.
// Fields holding anything other than a mapping never match.
type Nested struct {
	Field string
	Query Predicate
}

func (p Nested) Match(doc map[string]any) bool {
	sub, ok := asMap(doc[p.Field])
	if !ok {
		return false
	}
	return p.Query.Match(sub)
}

// Filter returns the documents matching p, preserving input order.
// A nil predicate matches everything.
func Filter[T ~map[string]any](docs []T, p Predicate) []T {
	out := make([]T, 0, len(docs))
	for _, d := range docs {
		if p == nil || p.Match(d) {
			out = append(out, d)
		}
	}
	return out
}

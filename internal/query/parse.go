package query

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"sort"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// ErrInvalidQuery is returned for query documents that cannot be parsed.
var ErrInvalidQuery = errors.New("invalid query")

const isoLayout = "2006-01-02T15:04:05.000Z"

// ParseJSON parses a JSON query document such as
// {"$or": [{"role": "admin"}, {"age": {"$gte": 18, "$lt": 65}}]}.
// Key order is preserved, and an empty or blank input parses to All.
func ParseJSON(data []byte) (Predicate, error) {
	if len(strings.TrimSpace(string(data))) == 0 {
		return All{}, nil
	}
	var doc bson.D
	if err := bson.UnmarshalExtJSON(data, false, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidQuery, err)
	}
	return Parse(doc)
}

// Parse converts a decoded query document into a Predicate.
//
// Top-level keys are combined with AND. "$or" and "$and" take arrays of
// sub-queries. A field mapped to a document whose keys are operators
// ($regex, $options, $exists, $ne, $gte, $lt, $size, $in) yields those
// operators combined with AND; a document without operator keys is a
// nested query; any other value is an equality test.
func Parse(doc bson.D) (Predicate, error) {
	terms := make([]Predicate, 0, len(doc))
	for _, e := range doc {
		switch {
		case e.Key == "$or" || e.Key == "$and":
			subs, err := parseList(e.Key, e.Value)
			if err != nil {
				return nil, err
			}
			if e.Key == "$or" {
				terms = append(terms, Or{Terms: subs})
			} else {
				terms = append(terms, And{Terms: subs})
			}
		case strings.HasPrefix(e.Key, "$"):
			return nil, fmt.Errorf("%w: unknown top-level operator %q", ErrInvalidQuery, e.Key)
		default:
			p, err := parseField(e.Key, e.Value)
			if err != nil {
				return nil, err
			}
			terms = append(terms, p)
		}
	}
	return collapse(terms), nil
}

// ParseMap is Parse for an unordered document.
func ParseMap(doc map[string]any) (Predicate, error) {
	d, _ := asDoc(doc)
	return Parse(d)
}

func collapse(terms []Predicate) Predicate {
	switch len(terms) {
	case 0:
		return All{}
	case 1:
		return terms[0]
	}
	return And{Terms: terms}
}

func parseList(op string, v any) ([]Predicate, error) {
	items, ok := asSlice(v)
	if !ok {
		return nil, fmt.Errorf("%w: %s expects an array", ErrInvalidQuery, op)
	}
	out := make([]Predicate, 0, len(items))
	for _, item := range items {
		sub, ok := asDoc(item)
		if !ok {
			return nil, fmt.Errorf("%w: %s entries must be documents", ErrInvalidQuery, op)
		}
		p, err := Parse(sub)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

func parseField(field string, v any) (Predicate, error) {
	if re, ok := v.(bson.Regex); ok {
		return Pattern(field, re.Pattern, re.Options)
	}
	sub, ok := asDoc(v)
	if !ok {
		return Equals{Field: field, Value: plain(v)}, nil
	}
	if !hasOperator(sub) {
		q, err := Parse(sub)
		if err != nil {
			return nil, err
		}
		return Nested{Field: field, Query: q}, nil
	}

	var (
		ops      []Predicate
		pattern  any
		options  string
		hasRegex bool
		hasOpts  bool
	)
	for _, e := range sub {
		switch e.Key {
		case "$regex":
			pattern, hasRegex = e.Value, true
		case "$options":
			s, ok := e.Value.(string)
			if !ok {
				return nil, fmt.Errorf("%w: $options on %q must be a string", ErrInvalidQuery, field)
			}
			options, hasOpts = s, true
		case "$exists":
			want, ok := truthy(e.Value)
			if !ok {
				return nil, fmt.Errorf("%w: $exists on %q must be a boolean", ErrInvalidQuery, field)
			}
			ops = append(ops, Exists{Field: field, Want: want})
		case "$ne":
			ops = append(ops, Ne{Field: field, Value: plain(e.Value)})
		case "$gte":
			ops = append(ops, Gte{Field: field, Value: plain(e.Value)})
		case "$lt":
			ops = append(ops, Lt{Field: field, Value: plain(e.Value)})
		case "$size":
			f, ok := toFloat(e.Value)
			if !ok || f < 0 || f != math.Trunc(f) {
				return nil, fmt.Errorf("%w: $size on %q must be a non-negative integer", ErrInvalidQuery, field)
			}
			ops = append(ops, SizeEquals{Field: field, Size: int(f)})
		case "$in":
			values, ok := asSlice(e.Value)
			if !ok {
				return nil, fmt.Errorf("%w: $in on %q expects an array", ErrInvalidQuery, field)
			}
			converted := make([]any, len(values))
			for i, x := range values {
				converted[i] = plain(x)
			}
			ops = append(ops, In{Field: field, Values: converted})
		default:
			return nil, fmt.Errorf("%w: unsupported operator %q on %q", ErrInvalidQuery, e.Key, field)
		}
	}

	if hasOpts && !hasRegex {
		return nil, fmt.Errorf("%w: $options without $regex on %q", ErrInvalidQuery, field)
	}
	if hasRegex {
		var p Predicate
		var err error
		switch r := pattern.(type) {
		case string:
			p, err = Pattern(field, r, options)
		case bson.Regex:
			p, err = Pattern(field, r.Pattern, r.Options+options)
		default:
			return nil, fmt.Errorf("%w: $regex on %q must be a string", ErrInvalidQuery, field)
		}
		if err != nil {
			return nil, err
		}
		ops = append([]Predicate{p}, ops...)
	}
	return collapse(ops), nil
}

func compileRegex(pattern, options string) (*regexp.Regexp, error) {
	var flags strings.Builder
	for _, o := range options {
		switch o {
		case 'i', 'm', 's':
			if !strings.ContainsRune(flags.String(), o) {
				flags.WriteRune(o)
			}
		case 'g', 'u':
			// no effect on a single match test
		default:
			return nil, fmt.Errorf("%w: unsupported regex option %q", ErrInvalidQuery, o)
		}
	}
	expr := pattern
	if flags.Len() > 0 {
		expr = "(?" + flags.String() + ")" + pattern
	}
	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidQuery, err)
	}
	return re, nil
}

func hasOperator(d bson.D) bool {
	for _, e := range d {
		if strings.HasPrefix(e.Key, "$") {
			return true
		}
	}
	return false
}

func truthy(v any) (bool, bool) {
	if b, ok := v.(bool); ok {
		return b, true
	}
	if f, ok := toFloat(v); ok {
		return f != 0, true
	}
	return false, false
}

// asDoc views document-shaped values as an ordered bson.D. Unordered maps
// are sorted by key.
func asDoc(v any) (bson.D, bool) {
	switch d := v.(type) {
	case bson.D:
		return d, true
	case nil:
		return nil, false
	}
	m, ok := asMap(v)
	if !ok {
		return nil, false
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make(bson.D, 0, len(keys))
	for _, k := range keys {
		out = append(out, bson.E{Key: k, Value: m[k]})
	}
	return out, true
}

// plain converts decoded BSON values into the JSON-shaped values records
// hold: documents become map[string]any, arrays []any, dates ISO strings.
func plain(v any) any {
	switch x := v.(type) {
	case bson.D:
		out := make(map[string]any, len(x))
		for _, e := range x {
			out[e.Key] = plain(e.Value)
		}
		return out
	case bson.M:
		out := make(map[string]any, len(x))
		for k, e := range x {
			out[k] = plain(e)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, e := range x {
			out[k] = plain(e)
		}
		return out
	case bson.A:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = plain(e)
		}
		return out
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = plain(e)
		}
		return out
	case bson.DateTime:
		return x.Time().UTC().Format(isoLayout)
	case time.Time:
		return x.UTC().Format(isoLayout)
	case bson.Null, bson.Undefined:
		return nil
	case int32:
		return float64(x)
	case int64:
		return float64(x)
	}
	return v
}

// Plain exposes the BSON-to-record value conversion to sibling packages.
func Plain(v any) any { return plain(v) }

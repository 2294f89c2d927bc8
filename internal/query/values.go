package query

import (
	"encoding/json"
	"reflect"
	"sort"
	"strings"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// Equal compares two record values structurally. Numbers of any Go numeric
// type compare by value, and sequences and mappings compare element-wise.
func Equal(a, b any) bool {
	if a == nil || b == nil {
		return isNil(a) && isNil(b)
	}
	if fa, ok := toFloat(a); ok {
		fb, ok := toFloat(b)
		return ok && fa == fb
	}
	if ma, ok := asMap(a); ok {
		mb, ok := asMap(b)
		if !ok || len(ma) != len(mb) {
			return false
		}
		for k, va := range ma {
			vb, ok := mb[k]
			if !ok || !Equal(va, vb) {
				return false
			}
		}
		return true
	}
	if sa, ok := asSlice(a); ok {
		sb, ok := asSlice(b)
		if !ok || len(sa) != len(sb) {
			return false
		}
		for i := range sa {
			if !Equal(sa[i], sb[i]) {
				return false
			}
		}
		return true
	}
	return reflect.DeepEqual(a, b)
}

// Compare orders a against b. ok is false unless both values are numbers or
// both are strings.
func Compare(a, b any) (c int, ok bool) {
	if fa, okA := toFloat(a); okA {
		fb, okB := toFloat(b)
		if !okB {
			return 0, false
		}
		return cmpFloat(fa, fb), true
	}
	sa, okA := a.(string)
	sb, okB := b.(string)
	if !okA || !okB {
		return 0, false
	}
	return strings.Compare(sa, sb), true
}

// Order is a total order over record values used for sorting:
// nil < numbers < strings < mappings < sequences < booleans.
// Values of the same rank that have no natural order compare equal.
func Order(a, b any) int {
	ra, rb := rank(a), rank(b)
	if ra != rb {
		return cmpInt(ra, rb)
	}
	switch ra {
	case rankNumber, rankString:
		c, _ := Compare(a, b)
		return c
	case rankBool:
		ba, bb := a.(bool), b.(bool)
		switch {
		case ba == bb:
			return 0
		case !ba:
			return -1
		default:
			return 1
		}
	}
	return 0
}

const (
	rankNil = iota
	rankNumber
	rankString
	rankMap
	rankSlice
	rankBool
	rankOther
)

func rank(v any) int {
	if isNil(v) {
		return rankNil
	}
	if _, ok := toFloat(v); ok {
		return rankNumber
	}
	if _, ok := v.(string); ok {
		return rankString
	}
	if _, ok := v.(bool); ok {
		return rankBool
	}
	if _, ok := asMap(v); ok {
		return rankMap
	}
	if _, ok := asSlice(v); ok {
		return rankSlice
	}
	return rankOther
}

// Lookup resolves a dotted path such as "profile.department" against doc.
func Lookup(doc map[string]any, path string) (any, bool) {
	if v, ok := doc[path]; ok || !strings.Contains(path, ".") {
		return v, ok
	}
	cur := any(doc)
	for _, part := range strings.Split(path, ".") {
		m, ok := asMap(cur)
		if !ok {
			return nil, false
		}
		if cur, ok = m[part]; !ok {
			return nil, false
		}
	}
	return cur, true
}

// CanonicalKey renders v as JSON with map keys sorted, suitable as a
// grouping identity.
func CanonicalKey(v any) string {
	var b strings.Builder
	writeCanonical(&b, v)
	return b.String()
}

func writeCanonical(b *strings.Builder, v any) {
	if f, ok := toFloat(v); ok {
		raw, _ := json.Marshal(f)
		b.Write(raw)
		return
	}
	if m, ok := asMap(v); ok {
		keys := make([]string, 0, len(m))
		for k := range m {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		b.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				b.WriteByte(',')
			}
			raw, _ := json.Marshal(k)
			b.Write(raw)
			b.WriteByte(':')
			writeCanonical(b, m[k])
		}
		b.WriteByte('}')
		return
	}
	if s, ok := asSlice(v); ok {
		b.WriteByte('[')
		for i, e := range s {
			if i > 0 {
				b.WriteByte(',')
			}
			writeCanonical(b, e)
		}
		b.WriteByte(']')
		return
	}
	raw, err := json.Marshal(v)
	if err != nil {
		b.WriteString("null")
		return
	}
	b.Write(raw)
}

// ToFloat converts any Go numeric value to float64.
func ToFloat(v any) (float64, bool) { return toFloat(v) }

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Map, reflect.Slice, reflect.Pointer, reflect.Interface:
		return rv.IsNil()
	}
	return false
}

// asMap views mapping-shaped values (including ordered BSON documents) as
// map[string]any.
func asMap(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case bson.M:
		return m, true
	case bson.D:
		out := make(map[string]any, len(m))
		for _, e := range m {
			out[e.Key] = e.Value
		}
		return out, true
	}
	if v == nil {
		return nil, false
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Map || rv.Type().Key().Kind() != reflect.String {
		return nil, false
	}
	out := make(map[string]any, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		out[iter.Key().String()] = iter.Value().Interface()
	}
	return out, true
}

func asSlice(v any) ([]any, bool) {
	switch s := v.(type) {
	case []any:
		return s, true
	case bson.A:
		return s, true
	case bson.D:
		return nil, false
	case []byte:
		return nil, false
	}
	if v == nil {
		return nil, false
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, true
}

func cmpFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func cmpInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

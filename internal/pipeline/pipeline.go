// Package pipeline runs ordered aggregation stages over record snapshots.
package pipeline

import (
	"errors"
	"sort"
	"strconv"

	"github.com/SAP-F-2025/college-portal-service/internal/query"
)

// ErrInvalidPipeline is returned for pipelines that cannot be parsed.
var ErrInvalidPipeline = errors.New("invalid pipeline")

// Stage transforms a collection snapshot. Stages never mutate the records
// they receive.
type Stage interface {
	Apply(docs []map[string]any) ([]map[string]any, error)
}

// Pipeline is an ordered list of stages.
type Pipeline []Stage

// Run threads docs through every stage in order.
func (p Pipeline) Run(docs []map[string]any) ([]map[string]any, error) {
	out := docs
	for _, stage := range p {
		var err error
		if out, err = stage.Apply(out); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Run is shorthand for Pipeline(stages).Run(docs).
func Run(docs []map[string]any, stages ...Stage) ([]map[string]any, error) {
	return Pipeline(stages).Run(docs)
}

// Match keeps the records satisfying Query.
type Match struct {
	Query query.Predicate
}

func (s Match) Apply(docs []map[string]any) ([]map[string]any, error) {
	return query.Filter(docs, s.Query), nil
}

// GroupKey derives the grouping identity of a record.
type GroupKey interface {
	Resolve(doc map[string]any) any
}

// FieldKey groups by the value at a dotted path.
type FieldKey string

func (k FieldKey) Resolve(doc map[string]any) any {
	v, _ := query.Lookup(doc, string(k))
	return v
}

// KeyPart names one component of a CompositeKey.
type KeyPart struct {
	Name string
	Path string
}

// CompositeKey groups by several named paths at once. The resolved key is a
// mapping of name to value.
type CompositeKey []KeyPart

func (k CompositeKey) Resolve(doc map[string]any) any {
	out := make(map[string]any, len(k))
	for _, part := range k {
		v, _ := query.Lookup(doc, part.Path)
		out[part.Name] = v
	}
	return out
}

// RecordKey puts every record in its own group, keyed by _id or id.
type RecordKey struct{}

func (RecordKey) Resolve(doc map[string]any) any {
	if v, ok := doc["_id"]; ok && v != nil {
		return v
	}
	return doc["id"]
}

// Accumulator folds the records of one group into a value.
type Accumulator interface {
	Init() any
	Add(acc any, doc map[string]any) any
}

// CountAcc counts records ($sum: 1).
type CountAcc struct{}

func (CountAcc) Init() any { return 0 }

func (CountAcc) Add(acc any, _ map[string]any) any { return acc.(int) + 1 }

// SumAcc adds the numeric value at Path. Missing or non-numeric values add 0.
type SumAcc struct {
	Path string
}

func (SumAcc) Init() any { return 0.0 }

func (a SumAcc) Add(acc any, doc map[string]any) any {
	v, _ := query.Lookup(doc, a.Path)
	f, _ := query.ToFloat(v)
	return acc.(float64) + f
}

// PushAcc collects the value at Path from each record, in order.
type PushAcc struct {
	Path string
}

func (PushAcc) Init() any { return []any{} }

func (a PushAcc) Add(acc any, doc map[string]any) any {
	v, _ := query.Lookup(doc, a.Path)
	return append(acc.([]any), v)
}

// Field is a named output of a Group stage.
type Field struct {
	Name string
	Acc  Accumulator
}

// Group buckets records by Key and emits one record per bucket carrying
// _id plus each accumulated Field. Buckets are emitted in first-seen order.
type Group struct {
	Key    GroupKey
	Fields []Field
}

func (s Group) Apply(docs []map[string]any) ([]map[string]any, error) {
	key := s.Key
	if key == nil {
		key = RecordKey{}
	}
	index := make(map[string]int)
	var out []map[string]any
	for _, doc := range docs {
		id := key.Resolve(doc)
		canon := query.CanonicalKey(id)
		i, ok := index[canon]
		if !ok {
			group := map[string]any{"_id": id}
			for _, f := range s.Fields {
				group[f.Name] = f.Acc.Init()
			}
			i = len(out)
			index[canon] = i
			out = append(out, group)
		}
		for _, f := range s.Fields {
			out[i][f.Name] = f.Acc.Add(out[i][f.Name], doc)
		}
	}
	if out == nil {
		out = []map[string]any{}
	}
	return out, nil
}

// Projection computes one output field from a record.
type Projection interface {
	Project(doc map[string]any) (any, bool)
}

// Include copies the value at Path. Missing values are omitted.
type Include struct {
	Path string
}

func (p Include) Project(doc map[string]any) (any, bool) {
	return query.Lookup(doc, p.Path)
}

// Subtract computes A - B over numeric paths. Non-numeric operands yield nil.
type Subtract struct {
	A, B string
}

func (p Subtract) Project(doc map[string]any) (any, bool) {
	av, _ := query.Lookup(doc, p.A)
	bv, _ := query.Lookup(doc, p.B)
	a, okA := query.ToFloat(av)
	b, okB := query.ToFloat(bv)
	if !okA || !okB {
		return nil, true
	}
	return a - b, true
}

// CountValues builds a frequency mapping of the values in the sequence at
// Input, starting from a copy of Initial.
type CountValues struct {
	Input   string
	Initial map[string]any
}

func (p CountValues) Project(doc map[string]any) (any, bool) {
	out := make(map[string]any, len(p.Initial))
	for k, v := range p.Initial {
		out[k] = v
	}
	v, _ := query.Lookup(doc, p.Input)
	items, _ := v.([]any)
	for _, item := range items {
		k := valueKey(item)
		n, _ := query.ToFloat(out[k])
		out[k] = n + 1
	}
	return out, true
}

func valueKey(v any) string {
	switch x := v.(type) {
	case nil:
		return "null"
	case string:
		return x
	case bool:
		return strconv.FormatBool(x)
	}
	if f, ok := query.ToFloat(v); ok {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	return query.CanonicalKey(v)
}

// Output names a projected field.
type Output struct {
	Name string
	Expr Projection
}

// Project reshapes each record into only the listed outputs.
type Project []Output

func (s Project) Apply(docs []map[string]any) ([]map[string]any, error) {
	out := make([]map[string]any, len(docs))
	for i, doc := range docs {
		projected := make(map[string]any, len(s))
		for _, o := range s {
			if v, ok := o.Expr.Project(doc); ok {
				projected[o.Name] = v
			}
		}
		out[i] = projected
	}
	return out, nil
}

// SortKey is one ordering criterion.
type SortKey struct {
	Path string
	Desc bool
}

// Sort orders records stably by each key in turn.
type Sort []SortKey

func (s Sort) Apply(docs []map[string]any) ([]map[string]any, error) {
	out := make([]map[string]any, len(docs))
	copy(out, docs)
	sort.SliceStable(out, func(i, j int) bool {
		for _, k := range s {
			a, _ := query.Lookup(out[i], k.Path)
			b, _ := query.Lookup(out[j], k.Path)
			c := query.Order(a, b)
			if c == 0 {
				continue
			}
			if k.Desc {
				return c > 0
			}
			return c < 0
		}
		return false
	})
	return out, nil
}

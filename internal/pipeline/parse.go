package pipeline

import (
	"fmt"
	"sort"
	"strings"

	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/SAP-F-2025/college-portal-service/internal/query"
)

// ParseJSON parses the wire form of a pipeline:
//
//	[{"$match": {...}}, {"$group": {"_id": "$department", "count": {"$sum": 1}}},
//	 {"$project": {...}}, {"$sort": {"count": -1}}]
func ParseJSON(data []byte) (Pipeline, error) {
	wrapped := make([]byte, 0, len(data)+16)
	wrapped = append(wrapped, `{"pipeline":`...)
	wrapped = append(wrapped, data...)
	wrapped = append(wrapped, '}')

	var doc bson.D
	if err := bson.UnmarshalExtJSON(wrapped, false, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPipeline, err)
	}
	if len(doc) != 1 {
		return nil, fmt.Errorf("%w: expected an array of stages", ErrInvalidPipeline)
	}
	stages, ok := asArray(doc[0].Value)
	if !ok {
		return nil, fmt.Errorf("%w: expected an array of stages", ErrInvalidPipeline)
	}
	return Parse(stages)
}

// Parse converts decoded stage documents into a Pipeline.
func Parse(stages []any) (Pipeline, error) {
	out := make(Pipeline, 0, len(stages))
	for i, raw := range stages {
		d, ok := asDoc(raw)
		if !ok || len(d) != 1 {
			return nil, fmt.Errorf("%w: stage %d must be a document with a single operator", ErrInvalidPipeline, i)
		}
		stage, err := parseStage(d[0].Key, d[0].Value)
		if err != nil {
			return nil, fmt.Errorf("stage %d: %w", i, err)
		}
		out = append(out, stage)
	}
	return out, nil
}

func parseStage(op string, v any) (Stage, error) {
	spec, ok := asDoc(v)
	if !ok {
		return nil, fmt.Errorf("%w: %s expects a document", ErrInvalidPipeline, op)
	}
	switch op {
	case "$match":
		q, err := query.Parse(spec)
		if err != nil {
			return nil, err
		}
		return Match{Query: q}, nil
	case "$group":
		return parseGroup(spec)
	case "$project":
		return parseProject(spec)
	case "$sort":
		return parseSort(spec)
	}
	return nil, fmt.Errorf("%w: unsupported stage %q", ErrInvalidPipeline, op)
}

func parseGroup(spec bson.D) (Stage, error) {
	g := Group{Key: RecordKey{}}
	for _, e := range spec {
		if e.Key == "_id" {
			key, err := parseGroupKey(e.Value)
			if err != nil {
				return nil, err
			}
			g.Key = key
			continue
		}
		acc, err := parseAccumulator(e.Key, e.Value)
		if err != nil {
			return nil, err
		}
		g.Fields = append(g.Fields, Field{Name: strings.TrimPrefix(e.Key, "$"), Acc: acc})
	}
	return g, nil
}

func parseGroupKey(v any) (GroupKey, error) {
	if v == nil {
		return RecordKey{}, nil
	}
	if s, ok := v.(string); ok {
		path, err := fieldRef(s)
		if err != nil {
			return nil, err
		}
		return FieldKey(path), nil
	}
	d, ok := asDoc(v)
	if !ok {
		return nil, fmt.Errorf("%w: $group _id must be a field reference or document", ErrInvalidPipeline)
	}
	key := make(CompositeKey, 0, len(d))
	for _, e := range d {
		s, ok := e.Value.(string)
		if !ok {
			return nil, fmt.Errorf("%w: $group _id.%s must be a field reference", ErrInvalidPipeline, e.Key)
		}
		path, err := fieldRef(s)
		if err != nil {
			return nil, err
		}
		key = append(key, KeyPart{Name: e.Key, Path: path})
	}
	return key, nil
}

func parseAccumulator(name string, v any) (Accumulator, error) {
	d, ok := asDoc(v)
	if !ok || len(d) != 1 {
		return nil, fmt.Errorf("%w: accumulator %q must be a single-operator document", ErrInvalidPipeline, name)
	}
	switch d[0].Key {
	case "$sum":
		if f, ok := query.ToFloat(d[0].Value); ok {
			if f != 1 {
				return nil, fmt.Errorf("%w: $sum constant must be 1", ErrInvalidPipeline)
			}
			return CountAcc{}, nil
		}
		s, ok := d[0].Value.(string)
		if !ok {
			return nil, fmt.Errorf("%w: $sum expects 1 or a field reference", ErrInvalidPipeline)
		}
		path, err := fieldRef(s)
		if err != nil {
			return nil, err
		}
		return SumAcc{Path: path}, nil
	case "$push":
		s, ok := d[0].Value.(string)
		if !ok {
			return nil, fmt.Errorf("%w: $push expects a field reference", ErrInvalidPipeline)
		}
		path, err := fieldRef(s)
		if err != nil {
			return nil, err
		}
		return PushAcc{Path: path}, nil
	}
	return nil, fmt.Errorf("%w: unsupported accumulator %q", ErrInvalidPipeline, d[0].Key)
}

func parseProject(spec bson.D) (Stage, error) {
	p := make(Project, 0, len(spec))
	for _, e := range spec {
		if f, ok := query.ToFloat(e.Value); ok {
			if f != 0 {
				p = append(p, Output{Name: e.Key, Expr: Include{Path: e.Key}})
			}
			continue
		}
		if b, ok := e.Value.(bool); ok {
			if b {
				p = append(p, Output{Name: e.Key, Expr: Include{Path: e.Key}})
			}
			continue
		}
		if s, ok := e.Value.(string); ok && strings.HasPrefix(s, "$") {
			p = append(p, Output{Name: e.Key, Expr: Include{Path: strings.TrimPrefix(s, "$")}})
			continue
		}
		expr, err := parseExpression(e.Key, e.Value)
		if err != nil {
			return nil, err
		}
		p = append(p, Output{Name: e.Key, Expr: expr})
	}
	return p, nil
}

func parseExpression(name string, v any) (Projection, error) {
	d, ok := asDoc(v)
	if !ok || len(d) != 1 {
		return nil, fmt.Errorf("%w: projection %q must be 1, 0 or an expression", ErrInvalidPipeline, name)
	}
	switch d[0].Key {
	case "$subtract":
		args, ok := asArray(d[0].Value)
		if !ok || len(args) != 2 {
			return nil, fmt.Errorf("%w: $subtract expects two field references", ErrInvalidPipeline)
		}
		paths := make([]string, 2)
		for i, a := range args {
			s, ok := a.(string)
			if !ok {
				return nil, fmt.Errorf("%w: $subtract expects two field references", ErrInvalidPipeline)
			}
			path, err := fieldRef(s)
			if err != nil {
				return nil, err
			}
			paths[i] = path
		}
		return Subtract{A: paths[0], B: paths[1]}, nil
	case "$reduce":
		spec, ok := asDoc(d[0].Value)
		if !ok {
			return nil, fmt.Errorf("%w: $reduce expects a document", ErrInvalidPipeline)
		}
		cv := CountValues{Initial: map[string]any{}}
		for _, e := range spec {
			switch e.Key {
			case "input":
				s, ok := e.Value.(string)
				if !ok {
					return nil, fmt.Errorf("%w: $reduce input must be a field reference", ErrInvalidPipeline)
				}
				path, err := fieldRef(s)
				if err != nil {
					return nil, err
				}
				cv.Input = path
			case "initialValue":
				if e.Value == nil {
					continue
				}
				init, ok := query.Plain(e.Value).(map[string]any)
				if !ok {
					return nil, fmt.Errorf("%w: $reduce initialValue must be a document", ErrInvalidPipeline)
				}
				cv.Initial = init
			case "in":
				// only frequency counting is supported
			default:
				return nil, fmt.Errorf("%w: unsupported $reduce key %q", ErrInvalidPipeline, e.Key)
			}
		}
		if cv.Input == "" {
			return nil, fmt.Errorf("%w: $reduce requires input", ErrInvalidPipeline)
		}
		return cv, nil
	}
	return nil, fmt.Errorf("%w: unsupported expression %q", ErrInvalidPipeline, d[0].Key)
}

func parseSort(spec bson.D) (Stage, error) {
	s := make(Sort, 0, len(spec))
	for _, e := range spec {
		f, ok := query.ToFloat(e.Value)
		if !ok || (f != 1 && f != -1) {
			return nil, fmt.Errorf("%w: sort direction for %q must be 1 or -1", ErrInvalidPipeline, e.Key)
		}
		s = append(s, SortKey{Path: e.Key, Desc: f < 0})
	}
	return s, nil
}

func fieldRef(s string) (string, error) {
	if !strings.HasPrefix(s, "$") || len(s) < 2 {
		return "", fmt.Errorf("%w: %q is not a field reference", ErrInvalidPipeline, s)
	}
	return s[1:], nil
}

func asDoc(v any) (bson.D, bool) {
	switch d := v.(type) {
	case bson.D:
		return d, true
	case bson.M:
		return sortedDoc(d), true
	case map[string]any:
		return sortedDoc(d), true
	}
	return nil, false
}

func sortedDoc(m map[string]any) bson.D {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make(bson.D, 0, len(keys))
	for _, k := range keys {
		out = append(out, bson.E{Key: k, Value: m[k]})
	}
	return out
}

func asArray(v any) ([]any, bool) {
	switch a := v.(type) {
	case bson.A:
		return a, true
	case []any:
		return a, true
	}
	return nil, false
}

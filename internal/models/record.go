package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// Field names every stored record carries.
const (
	FieldID        = "id"
	FieldCreatedAt = "createdAt"
	FieldUpdatedAt = "updatedAt"
)

// TimeLayout is the on-disk timestamp format. Values sort lexicographically.
const TimeLayout = "2006-01-02T15:04:05.000Z"

// Record is a stored document: an open mapping of field name to JSON value.
type Record map[string]any

// ID returns the record's identifier, or "" when unset.
func (r Record) ID() string {
	id, _ := r[FieldID].(string)
	return id
}

func (r Record) CreatedAt() string {
	s, _ := r[FieldCreatedAt].(string)
	return s
}

// Clone returns a deep copy so callers can mutate the result freely.
func (r Record) Clone() Record {
	if r == nil {
		return nil
	}
	return cloneValue(map[string]any(r)).(map[string]any)
}

func cloneValue(v any) any {
	switch x := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, e := range x {
			out[k] = cloneValue(e)
		}
		return out
	case Record:
		return Record(cloneValue(map[string]any(x)).(map[string]any))
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = cloneValue(e)
		}
		return out
	}
	return v
}

// Decode converts the record into a typed model via its JSON form.
func (r Record) Decode(dst any) error {
	raw, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("failed to encode record: %w", err)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("failed to decode record: %w", err)
	}
	return nil
}

// ToRecord converts a typed model into a Record via its JSON form.
func ToRecord(v any) (Record, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %T: %w", v, err)
	}
	var r Record
	if err := json.Unmarshal(raw, &r); err != nil {
		return nil, fmt.Errorf("failed to decode %T: %w", v, err)
	}
	return r, nil
}

// Records converts a slice of Record to plain maps for query evaluation.
func Records(in []Record) []map[string]any {
	out := make([]map[string]any, len(in))
	for i, r := range in {
		out[i] = r
	}
	return out
}

// FormatTime renders t in TimeLayout (UTC).
func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

// ParseTime parses a TimeLayout or RFC 3339 timestamp.
func ParseTime(s string) (time.Time, error) {
	if t, err := time.Parse(TimeLayout, s); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339Nano, s)
}

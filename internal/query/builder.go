package query

// Eq builds an Equals predicate.
func Eq(field string, value any) Predicate { return Equals{Field: field, Value: value} }

// NotEq builds an Ne predicate.
func NotEq(field string, value any) Predicate { return Ne{Field: field, Value: value} }

// AllOf combines terms with logical AND.
func AllOf(terms ...Predicate) Predicate { return And{Terms: terms} }

// AnyOf combines terms with logical OR.
func AnyOf(terms ...Predicate) Predicate { return Or{Terms: terms} }

// Present matches documents where field holds a non-nil value.
func Present(field string) Predicate { return Exists{Field: field, Want: true} }

// Absent matches documents where field is missing or nil.
func Absent(field string) Predicate { return Exists{Field: field, Want: false} }

// AtLeast builds a Gte predicate.
func AtLeast(field string, value any) Predicate { return Gte{Field: field, Value: value} }

// Below builds an Lt predicate.
func Below(field string, value any) Predicate { return Lt{Field: field, Value: value} }

// Within matches lo <= field < hi.
func Within(field string, lo, hi any) Predicate {
	return And{Terms: []Predicate{Gte{Field: field, Value: lo}, Lt{Field: field, Value: hi}}}
}

// HasSize builds a SizeEquals predicate.
func HasSize(field string, n int) Predicate { return SizeEquals{Field: field, Size: n} }

// OneOf builds an In predicate.
func OneOf[T any](field string, values ...T) Predicate {
	vs := make([]any, len(values))
	for i, v := range values {
		vs[i] = v
	}
	return In{Field: field, Values: vs}
}

// Under builds a Nested predicate.
func Under(field string, q Predicate) Predicate { return Nested{Field: field, Query: q} }

// Pattern compiles pattern with the given option letters (i, m, s) into a
// Regex predicate.
func Pattern(field, pattern, options string) (Predicate, error) {
	re, err := compileRegex(pattern, options)
	if err != nil {
		return nil, err
	}
	return Regex{Field: field, Pattern: re}, nil
}

// MustPattern is like Pattern but panics on an invalid expression.
func MustPattern(field, pattern, options string) Predicate {
	p, err := Pattern(field, pattern, options)
	if err != nil {
		panic(err)
	}
	return p
}

// Package attrs reads values back out of slog-style key/value attribute
// slices ([key1, value1, key2, value2, ...]).
package attrs

import "fmt"

// Lookup returns the value paired with key. Non-string keys and a trailing
// key without a value are skipped.
func Lookup(attrs []any, key string) (any, bool) {
	for i := 0; i+1 < len(attrs); i += 2 {
		if k, ok := attrs[i].(string); ok && k == key {
			return attrs[i+1], true
		}
	}
	return nil, false
}

// ExtractString returns the value for key as a string. Domain primitives
// implementing fmt.Stringer are rendered with String. Any other type, or a
// missing key, yields "".
func ExtractString(attrs []any, key string) string {
	v, ok := Lookup(attrs, key)
	if !ok {
		return ""
	}
	switch s := v.(type) {
	case string:
		return s
	case fmt.Stringer:
		return s.String()
	default:
		return ""
	}
}

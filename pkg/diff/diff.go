// Package diff provides read access to sparse mutation descriptions.
//
// The host delivers pending changes either as a nested tree mirroring the
// entity's attribute shape, or as a map of dot-joined path strings to new
// values. Both forms describe the same mutation and must be accepted
// interchangeably wherever a diff is consulted.
package diff

import (
	"strings"
)

// Tree is a sparse mutation description. Keys may be plain attribute names
// with nested Tree/map values, flattened dot-joined paths, or a mix of both.
type Tree map[string]any

// Present reports whether path is touched by the diff. A path is present if
// it exists as a nested key at the corresponding depth, as a verbatim
// flattened key, or as a strict dot-prefix of some flattened key (meaning a
// deeper sub-field changed).
func (t Tree) Present(path string) bool {
	if t == nil {
		return false
	}
	if _, ok := t[path]; ok {
		return true
	}
	prefix := path + "."
	for k := range t {
		if strings.HasPrefix(k, prefix) {
			return true
		}
	}
	head, rest, split := strings.Cut(path, ".")
	if !split {
		return false
	}
	sub, ok := asTree(t[head])
	if !ok {
		return false
	}
	return sub.Present(rest)
}

// Get resolves path to its new value, preferring the nested form and falling
// back to the verbatim flattened key. The second return is false when the
// path does not resolve to a value.
func (t Tree) Get(path string) (any, bool) {
	if t == nil {
		return nil, false
	}
	head, rest, split := strings.Cut(path, ".")
	if !split {
		v, ok := t[path]
		return v, ok
	}
	if sub, ok := asTree(t[head]); ok {
		if v, ok := sub.Get(rest); ok {
			return v, ok
		}
	}
	v, ok := t[path]
	return v, ok
}

// Value resolves path like Get, returning fallback when absent.
func (t Tree) Value(path string, fallback any) any {
	if v, ok := t.Get(path); ok {
		return v
	}
	return fallback
}

// Sub returns the portion of the diff beneath path as a new Tree. Nested
// subtrees are carried over as-is; flattened keys lose the path prefix, so
// the result can be consulted with the same accessors regardless of the
// original form. Returns nil when nothing under path is touched.
func (t Tree) Sub(path string) Tree {
	if t == nil {
		return nil
	}
	var out Tree
	if sub, ok := asTree(t.Value(path, nil)); ok {
		out = make(Tree, len(sub))
		for k, v := range sub {
			out[k] = v
		}
	}
	prefix := path + "."
	for k, v := range t {
		if !strings.HasPrefix(k, prefix) {
			continue
		}
		if out == nil {
			out = make(Tree)
		}
		out[strings.TrimPrefix(k, prefix)] = v
	}
	// A flattened parent may also hide deeper levels, e.g. Sub("a") of
	// {"a.b": {"c": 1}} already handled above; nested heads with flattened
	// remainders are resolved by the recursive accessors on the result.
	return out
}

// Keys lists the distinct first path segments of the tree's entries.
func (t Tree) Keys() []string {
	if len(t) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(t))
	keys := make([]string, 0, len(t))
	for k := range t {
		head, _, _ := strings.Cut(k, ".")
		if _, ok := seen[head]; ok {
			continue
		}
		seen[head] = struct{}{}
		keys = append(keys, head)
	}
	return keys
}

// Number resolves path to a numeric value. JSON decoding yields float64;
// literal trees built in Go may carry int values.
func (t Tree) Number(path string) (float64, bool) {
	v, ok := t.Get(path)
	if !ok {
		return 0, false
	}
	return AsNumber(v)
}

// Int resolves path to an int, truncating fractional values.
func (t Tree) Int(path string) (int, bool) {
	n, ok := t.Number(path)
	if !ok {
		return 0, false
	}
	return int(n), true
}

// Bool resolves path to a bool.
func (t Tree) Bool(path string) (bool, bool) {
	v, ok := t.Get(path)
	if !ok {
		return false, false
	}
	b, ok := v.(bool)
	return b, ok
}

// String resolves path to a string.
func (t Tree) String(path string) (string, bool) {
	v, ok := t.Get(path)
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// AsNumber coerces the numeric types a diff value can arrive as.
func AsNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	case uint:
		return float64(n), true
	}
	return 0, false
}

// Falsy reports whether v counts as "no value" under the change-detection
// rules: nil, false, numeric zero and the empty string all qualify.
func Falsy(v any) bool {
	if v == nil {
		return true
	}
	if n, ok := AsNumber(v); ok {
		return n == 0
	}
	switch x := v.(type) {
	case bool:
		return !x
	case string:
		return x == ""
	}
	return false
}

// Equal compares two diff values, coercing numeric types so that an int in
// a literal tree matches the float64 the same value decodes to from JSON.
func Equal(a, b any) bool {
	if an, ok := AsNumber(a); ok {
		bn, ok := AsNumber(b)
		return ok && an == bn
	}
	return a == b
}

func asTree(v any) (Tree, bool) {
	switch m := v.(type) {
	case Tree:
		return m, true
	case map[string]any:
		return Tree(m), true
	}
	return nil, false
}

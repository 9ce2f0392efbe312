// Package params resolves possibly nested field names such as
// "user[username]" against the parameter maps of an inbound request.
package params

import (
	"reflect"
	"strconv"
	"strings"
)

// Map is a request-side parameter container. Values are scalars (strings,
// numbers, bools) or composites (nested maps and slices).
type Map map[string]any

// Path is a parsed field name: "user[name][first]" becomes
// Path{"user", "name", "first"}. A plain field is a one-element Path.
type Path []string

// ParsePath splits a field name on its bracket delimiters.
func ParsePath(field string) Path {
	return Path(strings.Split(strings.ReplaceAll(field, "]", ""), "["))
}

// String renders the path back into bracket notation.
func (p Path) String() string {
	if len(p) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString(p[0])
	for _, key := range p[1:] {
		b.WriteByte('[')
		b.WriteString(key)
		b.WriteByte(']')
	}
	return b.String()
}

// Lookup returns the first scalar value resolved by fields, tried in order.
//
// Traversal stops at the first non-composite value even when keys remain, so
// "a[b][c]" yields the value at a.b when that value is already a scalar. A
// path that hits an absent value, or that ends on a composite, falls through
// to the next candidate. A nil root resolves nothing.
func Lookup(root Map, fields ...string) (any, bool) {
	if root == nil {
		return nil, false
	}
	for _, field := range fields {
		if v, ok := root.resolve(ParsePath(field)); ok {
			return v, true
		}
	}
	return nil, false
}

func (m Map) resolve(path Path) (any, bool) {
	var obj any = m
	for _, key := range path {
		prop, ok := child(obj, key)
		if !ok || isNil(prop) {
			return nil, false
		}
		if !IsComposite(prop) {
			return prop, true
		}
		obj = prop
	}
	return nil, false
}

// IsComposite reports whether v is a nested structure rather than a scalar.
func IsComposite(v any) bool {
	switch v.(type) {
	case nil:
		return false
	case Map, map[string]any, map[string]string, []any, []string:
		return true
	}
	switch reflect.TypeOf(v).Kind() {
	case reflect.Map, reflect.Slice, reflect.Array, reflect.Struct:
		return true
	case reflect.Pointer:
		return reflect.TypeOf(v).Elem().Kind() == reflect.Struct
	}
	return false
}

func child(obj any, key string) (any, bool) {
	switch o := obj.(type) {
	case Map:
		v, ok := o[key]
		return v, ok
	case map[string]any:
		v, ok := o[key]
		return v, ok
	case map[string]string:
		v, ok := o[key]
		return v, ok
	case []any:
		i, err := strconv.Atoi(key)
		if err != nil || i < 0 || i >= len(o) {
			return nil, false
		}
		return o[i], true
	case []string:
		i, err := strconv.Atoi(key)
		if err != nil || i < 0 || i >= len(o) {
			return nil, false
		}
		return o[i], true
	}

	rv := reflect.ValueOf(obj)
	if rv.Kind() == reflect.Map && rv.Type().Key().Kind() == reflect.String {
		v := rv.MapIndex(reflect.ValueOf(key).Convert(rv.Type().Key()))
		if !v.IsValid() {
			return nil, false
		}
		return v.Interface(), true
	}
	return nil, false
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface, reflect.Func, reflect.Chan:
		return rv.IsNil()
	}
	return false
}

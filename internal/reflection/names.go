package reflection

import (
	"reflect"
	"regexp"
	"strings"
)

var wordBoundary = regexp.MustCompile(`([a-z0-9])([A-Z])`)

// SnakeCase converts a PascalCase or camelCase identifier to snake_case.
// Runs of capitals are not split, so "HTTPServer" becomes "httpserver".
func SnakeCase(name string) string {
	return strings.ToLower(wordBoundary.ReplaceAllString(name, "${1}_${2}"))
}

// TypeName returns the declared name of t with pointers removed and any
// generic instantiation suffix dropped. Unnamed types yield "".
func TypeName(t reflect.Type) string {
	if t == nil {
		return ""
	}
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}

	name := t.Name()
	if i := strings.IndexByte(name, '['); i >= 0 {
		name = name[:i]
	}
	return name
}

// DefaultName is the snake_case default name used for values of type t.
func DefaultName(t reflect.Type) string {
	return SnakeCase(TypeName(t))
}

// IsUntyped reports whether t carries no usable type information, which is
// the case for the empty interface.
func IsUntyped(t reflect.Type) bool {
	return t == nil || (t.Kind() == reflect.Interface && t.NumMethod() == 0)
}

package helpers

import "reflect"

// StrPanic panics with panicMessage when p is empty, otherwise returns p.
// Used by constructors for required configuration strings (base URLs, addresses).
func StrPanic(p string, panicMessage string) string {
	if p == "" {
		panic(panicMessage)
	}
	return p
}

// NilPanic panics with panicMessage when v is nil (including typed nil pointers, maps, funcs and
// slices), otherwise returns v unchanged. Constructors use it for required collaborators so a
// wiring mistake fails at startup instead of on the first connection.
func NilPanic[T any](v T, panicMessage string) T {
	if isNil(v) {
		panic(panicMessage)
	}
	return v
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Ptr, reflect.Slice, reflect.Map, reflect.Chan, reflect.Func, reflect.Interface:
		return rv.IsNil()
	default:
		return false
	}
}

// Ptr returns a pointer whose value is v.
func Ptr[T any](v T) *T {
	return &v
}

// Value is like *p but returns the zero value when p is nil.
func Value[T any](p *T) T {
	if p == nil {
		var zero T
		return zero
	}
	return *p
}

// OptionalString turns an empty string into nil. Connection queries send "" for absent values.
func OptionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// EqualOptional reports whether two optional strings hold the same value (both nil counts as equal).
func EqualOptional(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

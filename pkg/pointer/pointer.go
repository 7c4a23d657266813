// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package pointer supports partial updates, where a nil field means "leave
unchanged" and a non-nil field carries the new value.

  - To: builds an optional field from a literal.
  - Val: reads an optional field, zero when absent.
  - Assign: copies a present field onto the stored value.
*/
package pointer

// To returns a pointer to v.
func To[T any](v T) *T {
	return &v
}

// Val dereferences p, returning the zero value of T when p is nil.
func Val[T any](p *T) T {
	if p == nil {
		var zero T
		return zero
	}
	return *p
}

// Assign stores *src into *dst, passed through normalize when one is given.
// It reports whether src was present.
func Assign[T any](dst *T, src *T, normalize func(T) T) bool {
	if src == nil {
		return false
	}
	value := *src
	if normalize != nil {
		value = normalize(value)
	}
	*dst = value
	return true
}

package patcher

import "slices"

// Action rewrites a matched window. It receives a copy of the matched
// elements that it owns and returns the elements to emit in their place.
type Action[E any] func(matched []E) []E

// Append keeps the matched window and adds elts after it.
func Append[E any](elts ...E) Action[E] {
	return func(m []E) []E {
		return append(m, elts...)
	}
}

// Prepend keeps the matched window and adds elts before it.
func Prepend[E any](elts ...E) Action[E] {
	return func(m []E) []E {
		return append(slices.Clone(elts), m...)
	}
}

// Replace emits elts instead of the matched window.
func Replace[E any](elts ...E) Action[E] {
	return func([]E) []E {
		return slices.Clone(elts)
	}
}

// Delete drops the matched window.
func Delete[E any]() Action[E] {
	return func([]E) []E {
		return nil
	}
}

// DropLast removes the last n elements of the window.
func DropLast[E any](n int) Action[E] {
	return func(m []E) []E {
		if n <= 0 {
			return m
		}
		if n >= len(m) {
			return m[:0]
		}
		return m[:len(m)-n]
	}
}

// Chain runs the actions in order, each on the output of the previous one.
func Chain[E any](actions ...Action[E]) Action[E] {
	return func(m []E) []E {
		for _, a := range actions {
			m = a(m)
		}
		return m
	}
}

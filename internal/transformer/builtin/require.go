// Package builtin contains simple, reusable transformers used by the
// warehouse loads.
package builtin

// Require removes any record for which Present reports a missing required
// field.
type Require[T any] struct {
	Present func(T) bool
}

// Apply returns a filtered slice containing only records that pass Present.
// The input slice is reused.
func (r Require[T]) Apply(in []T) []T {
	if r.Present == nil {
		return in
	}
	out := in[:0]
	for _, rec := range in {
		if r.Present(rec) {
			out = append(out, rec)
		}
	}
	return out
}

// DeDup is the policy-driven de-duplication transformer used by the
// dimension loads. It collapses records sharing a key and chooses a winner
// by an explicit sequence number:
//
//   - "keep-last" : keep the record with the highest sequence (default)
//   - "keep-first": keep the record with the lowest sequence
//
// Equal sequences break by input position (later wins for keep-last, earlier
// for keep-first).
//
// This runs in-memory on one batch. The database still enforces the primary
// key as a backstop.

package builtin

import (
	"sort"
	"strings"
)

// Policies understood by DeDup.
const (
	KeepLast  = "keep-last"
	KeepFirst = "keep-first"
)

// DeDup implements a configurable, in-memory de-duplication policy.
type DeDup[T any] struct {
	// Key returns the business key of a record. ok=false means the record
	// cannot be keyed; such records pass through after the winners.
	Key func(T) (key string, ok bool)

	// Seq returns the record's source sequence number, e.g. its staging
	// surrogate id. When nil, the input position is used.
	Seq func(T) int64

	// Policy is KeepLast or KeepFirst; empty means KeepLast.
	Policy string
}

// Apply returns a new slice holding one winner per key, ordered by the
// winners' input positions, followed by unkeyed records in input order.
func (d DeDup[T]) Apply(in []T) []T {
	if len(in) == 0 || d.Key == nil {
		return in
	}

	first := strings.ToLower(strings.TrimSpace(d.Policy)) == KeepFirst

	type slot struct {
		index int
		seq   int64
	}
	winners := make(map[string]slot, len(in))
	var unkeyed []int

	for i, r := range in {
		key, ok := d.Key(r)
		if !ok {
			unkeyed = append(unkeyed, i)
			continue
		}
		s := slot{index: i, seq: int64(i)}
		if d.Seq != nil {
			s.seq = d.Seq(r)
		}
		prev, exists := winners[key]
		switch {
		case !exists:
			winners[key] = s
		case first && s.seq < prev.seq:
			winners[key] = s
		case !first && s.seq >= prev.seq:
			// Inputs are visited in order, so >= also settles ties by position.
			winners[key] = s
		}
	}

	indexes := make([]int, 0, len(winners))
	for _, s := range winners {
		indexes = append(indexes, s.index)
	}
	sort.Ints(indexes)

	out := make([]T, 0, len(indexes)+len(unkeyed))
	for _, idx := range indexes {
		out = append(out, in[idx])
	}
	for _, idx := range unkeyed {
		out = append(out, in[idx])
	}
	return out
}

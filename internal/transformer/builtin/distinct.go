package builtin

import (
	"encoding/binary"
	"fmt"
	"math"
	"reflect"
	"time"

	"github.com/zeebo/xxh3"
)

// Distinct drops records whose full tuple equals an earlier record's,
// keeping the first occurrence. Tuples are bucketed by an xxh3 fingerprint
// and compared exactly within a bucket, so hash collisions never merge
// distinct rows.
type Distinct[T any] struct {
	Tuple func(T) []any
}

// Apply returns a new slice with duplicates removed, in input order.
func (d Distinct[T]) Apply(in []T) []T {
	if len(in) == 0 || d.Tuple == nil {
		return in
	}
	seen := make(map[uint64][][]any, len(in))
	out := make([]T, 0, len(in))
	for _, r := range in {
		tuple := d.Tuple(r)
		fp := Fingerprint(tuple...)
		dup := false
		for _, prev := range seen[fp] {
			if reflect.DeepEqual(prev, tuple) {
				dup = true
				break
			}
		}
		if dup {
			continue
		}
		seen[fp] = append(seen[fp], tuple)
		out = append(out, r)
	}
	return out
}

// Fingerprint hashes a tuple of scalar values with xxh3. Each value is
// written with a type tag and a length prefix, so ("ab", "c") and
// ("a", "bc") differ, as do nil and "".
func Fingerprint(values ...any) uint64 {
	h := xxh3.New()
	var buf [9]byte
	for _, v := range values {
		switch t := v.(type) {
		case nil:
			buf[0] = 0
			_, _ = h.Write(buf[:1])
		case string:
			buf[0] = 1
			binary.LittleEndian.PutUint64(buf[1:], uint64(len(t)))
			_, _ = h.Write(buf[:])
			_, _ = h.WriteString(t)
		case int64:
			writeWord(h, &buf, 2, uint64(t))
		case int:
			writeWord(h, &buf, 2, uint64(t))
		case float64:
			writeWord(h, &buf, 3, math.Float64bits(t))
		case bool:
			var b uint64
			if t {
				b = 1
			}
			writeWord(h, &buf, 4, b)
		case time.Time:
			writeWord(h, &buf, 5, uint64(t.UnixNano()))
		default:
			s := fmt.Sprintf("%T:%v", t, t)
			buf[0] = 6
			binary.LittleEndian.PutUint64(buf[1:], uint64(len(s)))
			_, _ = h.Write(buf[:])
			_, _ = h.WriteString(s)
		}
	}
	return h.Sum64()
}

func writeWord(h *xxh3.Hasher, buf *[9]byte, tag byte, w uint64) {
	buf[0] = tag
	binary.LittleEndian.PutUint64(buf[1:], w)
	_, _ = h.Write(buf[:])
}

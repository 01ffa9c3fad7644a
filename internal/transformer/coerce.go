// Package transformer converts decoded JSON values into database-ready rows
// ([]any aligned to a table's load columns) using a per-column plan compiled
// once from the table model.
//
// A value that cannot be represented in its column fails the row, as the
// warehouse's own COPY would; there is no lenient mode.
package transformer

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/adespotakis/data-engineering-part2-redshift/internal/schema"
)

// Plan holds a per-column coercion plan for one table.
type Plan struct {
	cols []colPlan
}

type colPlan struct {
	name   string
	coerce func(v any) (any, error)
}

// CoerceError reports a value that does not fit its column.
type CoerceError struct {
	Column string
	Value  any
	Err    error
}

func (e *CoerceError) Error() string {
	return fmt.Sprintf("column %s: cannot use %#v: %v", e.Column, e.Value, e.Err)
}

func (e *CoerceError) Unwrap() error { return e.Err }

// Compile builds a plan for cols, in order.
func Compile(cols []schema.Column) Plan {
	p := Plan{cols: make([]colPlan, len(cols))}
	for i, c := range cols {
		p.cols[i] = colPlan{name: c.Name, coerce: coercerFor(c)}
	}
	return p
}

// Columns returns the planned column names, in order.
func (p Plan) Columns() []string {
	out := make([]string, len(p.cols))
	for i, c := range p.cols {
		out[i] = c.name
	}
	return out
}

// Row coerces vals (aligned to the plan's columns) into a new row.
func (p Plan) Row(vals []any) ([]any, error) {
	if len(vals) != len(p.cols) {
		return nil, fmt.Errorf("row width %d, want %d", len(vals), len(p.cols))
	}
	row := make([]any, len(vals))
	for i, c := range p.cols {
		v, err := c.coerce(vals[i])
		if err != nil {
			return nil, &CoerceError{Column: c.name, Value: vals[i], Err: err}
		}
		row[i] = v
	}
	return row, nil
}

// --- plan compilation ---------------------------------------------------------

func coercerFor(c schema.Column) func(any) (any, error) {
	switch c.Type {
	case schema.Identity, schema.Int, schema.BigInt:
		bits := 64
		if c.Type == schema.Int {
			bits = 32
		}
		return func(v any) (any, error) { return toInt(v, bits) }
	case schema.Numeric, schema.Real:
		return toFloat
	case schema.Timestamp:
		return toTime
	default:
		size := c.Size
		return func(v any) (any, error) {
			s, err := toText(v)
			if err != nil || s == nil {
				return s, err
			}
			if size > 0 && len(s.(string)) > size {
				return nil, fmt.Errorf("length %d exceeds %d", len(s.(string)), size)
			}
			return s, nil
		}
	}
}

// --- helpers ------------------------------------------------------------------

// toInt accepts integers, integral floats ("42.0") and numeric strings.
// Empty strings are NULL.
func toInt(v any, bits int) (any, error) {
	var n int64
	switch t := v.(type) {
	case nil:
		return nil, nil
	case int64:
		n = t
	case int:
		n = int64(t)
	case json.Number:
		i, err := parseIntFast(t.String())
		if err != nil {
			return nil, err
		}
		n = i
	case float64:
		i, err := floatToInt(t)
		if err != nil {
			return nil, err
		}
		n = i
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return nil, nil
		}
		i, err := parseIntFast(s)
		if err != nil {
			return nil, err
		}
		n = i
	default:
		return nil, fmt.Errorf("unsupported type %T", v)
	}
	if bits == 32 && (n < math.MinInt32 || n > math.MaxInt32) {
		return nil, fmt.Errorf("out of range for int")
	}
	return n, nil
}

// floatToInt converts an integral f that fits in int64. 2^63 itself is out
// of range; -2^63 is not.
func floatToInt(f float64) (int64, error) {
	if f != math.Trunc(f) {
		return 0, fmt.Errorf("not an integer")
	}
	if f < math.MinInt64 || f >= math.MaxInt64 {
		return 0, fmt.Errorf("out of range for bigint")
	}
	return int64(f), nil
}

// parseIntFast only falls back to float parsing when s contains a '.' or an
// exponent.
func parseIntFast(s string) (int64, error) {
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i, nil
	}
	if strings.ContainsAny(s, ".eE") {
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return floatToInt(f)
		}
	}
	return 0, fmt.Errorf("not an integer")
}

func toFloat(v any) (any, error) {
	switch t := v.(type) {
	case nil:
		return nil, nil
	case float64:
		return t, nil
	case int64:
		return float64(t), nil
	case int:
		return float64(t), nil
	case json.Number:
		return t.Float64()
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return nil, nil
		}
		return strconv.ParseFloat(s, 64)
	}
	return nil, fmt.Errorf("unsupported type %T", v)
}

// toText keeps strings verbatim, including empty ones, and renders scalars
// and nested values as their JSON text.
func toText(v any) (any, error) {
	switch t := v.(type) {
	case nil:
		return nil, nil
	case string:
		return t, nil
	case json.Number:
		return t.String(), nil
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), nil
	case bool:
		return strconv.FormatBool(t), nil
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return nil, err
		}
		return string(b), nil
	}
}

// toTime accepts epoch milliseconds or an ISO-8601 string; results are UTC.
func toTime(v any) (any, error) {
	switch t := v.(type) {
	case nil:
		return nil, nil
	case time.Time:
		return t.UTC(), nil
	case json.Number, float64, int64, int:
		ms, err := toInt(t, 64)
		if err != nil {
			return nil, err
		}
		return time.UnixMilli(ms.(int64)).UTC(), nil
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return nil, nil
		}
		for _, layout := range []string{time.RFC3339Nano, "2006-01-02 15:04:05.999999999", "2006-01-02"} {
			if ts, err := time.Parse(layout, s); err == nil {
				return ts.UTC(), nil
			}
		}
		return nil, fmt.Errorf("unrecognized timestamp")
	}
	return nil, fmt.Errorf("unsupported type %T", v)
}

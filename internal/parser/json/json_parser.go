// Package json decodes the JSON objects the staging loader reads from object
// storage and maps them onto table columns (see jsonpaths.go).
//
// Supported framings, matching what the warehouse COPY accepts:
//
//   - newline-delimited or concatenated objects:
//     {"id":1,"name":"a"}
//     {"id":2,"name":"b"}
//   - a top-level array of objects: [{"id":1},{"id":2}]
//   - any mix of the two in one stream.
//
// A leading byte-order mark is honored (UTF-8 BOMs are dropped, UTF-16 input
// is transcoded). Numbers decode as json.Number so callers decide their type.
package json

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// Decoder yields one JSON object per Next call.
type Decoder struct {
	dec     *json.Decoder
	pending []any // elements of a top-level array not yet returned
	n       int   // objects returned so far
}

// NewDecoder constructs a Decoder over r.
func NewDecoder(r io.Reader) *Decoder {
	d := json.NewDecoder(transform.NewReader(r, unicode.BOMOverride(transform.Nop)))
	d.UseNumber()
	return &Decoder{dec: d}
}

// Next returns the next object. It returns io.EOF when the stream is
// exhausted. A top-level value that is neither an object nor an array of
// objects is an error; so is malformed JSON.
func (d *Decoder) Next() (map[string]any, error) {
	for {
		if len(d.pending) > 0 {
			elem := d.pending[0]
			d.pending = d.pending[1:]
			obj, ok := elem.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("json parser: record %d: array element is %T, want object", d.n+1, elem)
			}
			d.n++
			return obj, nil
		}

		var raw any
		if err := d.dec.Decode(&raw); err != nil {
			if errors.Is(err, io.EOF) {
				return nil, io.EOF
			}
			return nil, fmt.Errorf("json parser: record %d: decode: %w", d.n+1, err)
		}

		switch v := raw.(type) {
		case map[string]any:
			d.n++
			return v, nil
		case []any:
			d.pending = v
		default:
			return nil, fmt.Errorf("json parser: record %d: top-level %T, want object", d.n+1, raw)
		}
	}
}

// Count returns the number of objects returned so far.
func (d *Decoder) Count() int { return d.n }

// DecodeAll is a helper for non-streaming use (manifests, tests, small
// inputs). It reads every object from r.
func DecodeAll(r io.Reader) ([]map[string]any, error) {
	d := NewDecoder(r)
	var out []map[string]any
	for {
		obj, err := d.Next()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return nil, err
		}
		out = append(out, obj)
	}
}

package json

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
)

// Auto is the manifest value that maps object keys to column names.
const Auto = "auto"

// Path is one compiled JSONPath expression: a sequence of object keys and
// array indexes, e.g. $['song']['artist'] or $.tags[0].
type Path []step

type step struct {
	key   string
	index int
	isIdx bool
}

// String renders p in bracket notation.
func (p Path) String() string {
	var b strings.Builder
	b.WriteByte('$')
	for _, s := range p {
		if s.isIdx {
			fmt.Fprintf(&b, "[%d]", s.index)
			continue
		}
		fmt.Fprintf(&b, "['%s']", s.key)
	}
	return b.String()
}

// Lookup walks obj along p. A missing key, an out-of-range index or a type
// mismatch yields (nil, false).
func (p Path) Lookup(obj any) (any, bool) {
	cur := obj
	for _, s := range p {
		if s.isIdx {
			arr, ok := cur.([]any)
			if !ok || s.index < 0 || s.index >= len(arr) {
				return nil, false
			}
			cur = arr[s.index]
			continue
		}
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		if cur, ok = m[s.key]; !ok {
			return nil, false
		}
	}
	return cur, true
}

// ParsePath compiles a JSONPath expression in the subset the warehouse COPY
// accepts: a root '$' followed by dot members (.name), bracketed quoted
// members (['name'] or ["name"]) and non-negative array indexes ([0]).
func ParsePath(expr string) (Path, error) {
	s := strings.TrimSpace(expr)
	if !strings.HasPrefix(s, "$") {
		return nil, fmt.Errorf("jsonpath %q: must start with $", expr)
	}
	s = s[1:]

	var p Path
	for len(s) > 0 {
		switch s[0] {
		case '.':
			s = s[1:]
			end := strings.IndexAny(s, ".[")
			if end < 0 {
				end = len(s)
			}
			if end == 0 {
				return nil, fmt.Errorf("jsonpath %q: empty member name", expr)
			}
			p = append(p, step{key: s[:end]})
			s = s[end:]
		case '[':
			if len(s) > 1 && (s[1] == '\'' || s[1] == '"') {
				quote := s[1]
				end := strings.IndexByte(s[2:], quote)
				if end < 0 {
					return nil, fmt.Errorf("jsonpath %q: unbalanced quotes", expr)
				}
				after := s[2+end+1:]
				if !strings.HasPrefix(after, "]") {
					return nil, fmt.Errorf("jsonpath %q: unterminated [", expr)
				}
				p = append(p, step{key: s[2 : 2+end]})
				s = after[1:]
				continue
			}
			end := strings.IndexByte(s, ']')
			if end < 0 {
				return nil, fmt.Errorf("jsonpath %q: unterminated [", expr)
			}
			inner := strings.TrimSpace(s[1:end])
			n, err := strconv.Atoi(inner)
			if err != nil || n < 0 {
				return nil, fmt.Errorf("jsonpath %q: bad index %q", expr, inner)
			}
			p = append(p, step{index: n, isIdx: true})
			s = s[end+1:]
		default:
			return nil, fmt.Errorf("jsonpath %q: unexpected %q", expr, s[0])
		}
	}
	if len(p) == 0 {
		return nil, fmt.Errorf("jsonpath %q: selects the whole record", expr)
	}
	return p, nil
}

// ParseManifest reads a JSON-paths file of the form
//
//	{"jsonpaths": ["$['artist']", "$['auth']", ...]}
func ParseManifest(r io.Reader) ([]Path, error) {
	objs, err := DecodeAll(r)
	if err != nil {
		return nil, fmt.Errorf("jsonpaths manifest: %w", err)
	}
	if len(objs) != 1 {
		return nil, fmt.Errorf("jsonpaths manifest: want one object, got %d", len(objs))
	}
	raw, ok := objs[0]["jsonpaths"].([]any)
	if !ok {
		return nil, fmt.Errorf("jsonpaths manifest: missing \"jsonpaths\" array")
	}
	paths := make([]Path, len(raw))
	for i, v := range raw {
		expr, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("jsonpaths manifest: entry %d is %T, want string", i, v)
		}
		if paths[i], err = ParsePath(expr); err != nil {
			return nil, fmt.Errorf("jsonpaths manifest: entry %d: %w", i, err)
		}
	}
	return paths, nil
}

// Mapping extracts a row of column values from a decoded object.
type Mapping struct {
	columns []string
	paths   []Path // nil in auto mode
}

// IsAuto reports whether manifest selects key-to-column matching: "auto" or
// "auto ignorecase", in any case.
func IsAuto(manifest string) bool {
	f := strings.Fields(strings.ToLower(manifest))
	return len(f) > 0 && f[0] == Auto
}

// NewPathMapping maps columns positionally onto paths; the counts must match.
func NewPathMapping(columns []string, paths []Path) (*Mapping, error) {
	if len(paths) != len(columns) {
		return nil, fmt.Errorf("jsonpaths: %d paths for %d columns", len(paths), len(columns))
	}
	return &Mapping{columns: columns, paths: paths}, nil
}

// NewAutoMapping matches object keys to column names. An exact match wins;
// otherwise keys are compared case-folded.
func NewAutoMapping(columns []string) *Mapping {
	return &Mapping{columns: columns}
}

// Columns returns the mapped column names.
func (m *Mapping) Columns() []string { return m.columns }

// Row returns the values for obj aligned to the mapped columns. Missing
// fields are nil. Row is safe for concurrent use.
func (m *Mapping) Row(obj map[string]any) []any {
	row := make([]any, len(m.columns))
	if m.paths != nil {
		for i, p := range m.paths {
			row[i], _ = p.Lookup(obj)
		}
		return row
	}

	var (
		fold   cases.Caser
		folded map[string]any
	)
	for i, col := range m.columns {
		if v, ok := obj[col]; ok {
			row[i] = v
			continue
		}
		if folded == nil {
			fold = cases.Fold()
			folded = make(map[string]any, len(obj))
			for k, v := range obj {
				folded[fold.String(k)] = v
			}
		}
		row[i] = folded[fold.String(col)]
	}
	return row
}

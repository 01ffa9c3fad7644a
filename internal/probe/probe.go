// Package probe samples staging input objects and reports how their JSON keys
// line up with a staging table: which key feeds which column, what types the
// sampled values have, and how many values the column could not hold. It
// also renders a starter JSON-paths manifest for the table.
//
// The result is meant to be read and hand-edited before it is published next
// to the data (e.g. as log_json_path.json).
package probe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"

	"github.com/adespotakis/data-engineering-part2-redshift/internal/datasource"
	jsonparser "github.com/adespotakis/data-engineering-part2-redshift/internal/parser/json"
	"github.com/adespotakis/data-engineering-part2-redshift/internal/schema"
	"github.com/adespotakis/data-engineering-part2-redshift/internal/transformer"
)

const (
	defaultMaxObjects = 10
	defaultMaxRecords = 1000
)

// Options controls what is sampled.
type Options struct {
	Source datasource.ObjectSource
	Prefix string
	Table  schema.Table
	// MaxObjects bounds how many objects (in key order) are read.
	MaxObjects int
	// MaxRecords bounds the total number of records sampled.
	MaxRecords int
}

// Field summarizes one top-level JSON key.
type Field struct {
	Key     string `json:"key"`
	Column  string `json:"column,omitempty"` // empty when no load column matches
	Type    string `json:"type"`             // null, int, float, bool, string, object, array, mixed
	Seen    int    `json:"seen"`
	Nulls   int    `json:"nulls"`
	Rejects int    `json:"rejects,omitempty"` // values the column cannot hold
	Example string `json:"example,omitempty"`
}

// Result is the probe report.
type Result struct {
	Table   string   `json:"table"`
	Objects int      `json:"objects"`
	Records int      `json:"records"`
	Fields  []Field  `json:"fields"`
	Missing []string `json:"missing,omitempty"` // load columns no sampled key maps to

	table schema.Table
}

type fieldStats struct {
	Field
	types map[string]struct{}
	plan  *transformer.Plan
}

// Probe samples opt.Prefix and reports it against opt.Table.
func Probe(ctx context.Context, opt Options) (Result, error) {
	if opt.Source == nil {
		return Result{}, fmt.Errorf("probe: no object source")
	}
	maxObjects := opt.MaxObjects
	if maxObjects <= 0 {
		maxObjects = defaultMaxObjects
	}
	maxRecords := opt.MaxRecords
	if maxRecords <= 0 {
		maxRecords = defaultMaxRecords
	}

	keys, err := opt.Source.List(ctx, opt.Prefix)
	if err != nil {
		return Result{}, err
	}
	if len(keys) == 0 {
		return Result{}, fmt.Errorf("probe: no objects under %s", opt.Prefix)
	}
	if len(keys) > maxObjects {
		keys = keys[:maxObjects]
	}

	res := Result{Table: opt.Table.Name, table: opt.Table}
	stats := map[string]*fieldStats{}
	for _, key := range keys {
		if res.Records >= maxRecords {
			break
		}
		n, err := sample(ctx, opt, key, maxRecords-res.Records, stats)
		res.Records += n
		if err != nil {
			return res, err
		}
		res.Objects++
	}

	used := map[string]bool{}
	for _, s := range stats {
		s.Type = collapse(s.types)
		res.Fields = append(res.Fields, s.Field)
		if s.Column != "" {
			used[s.Column] = true
		}
	}
	sort.Slice(res.Fields, func(i, j int) bool { return res.Fields[i].Key < res.Fields[j].Key })
	for _, c := range opt.Table.LoadColumns() {
		if !used[c.Name] {
			res.Missing = append(res.Missing, c.Name)
		}
	}
	return res, nil
}

func sample(ctx context.Context, opt Options, key string, limit int, stats map[string]*fieldStats) (int, error) {
	rc, err := opt.Source.Open(ctx, key)
	if err != nil {
		return 0, err
	}
	defer rc.Close()

	dec := jsonparser.NewDecoder(rc)
	n := 0
	for n < limit {
		obj, err := dec.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return n, fmt.Errorf("%s: %w", key, err)
		}
		n++
		for k, v := range obj {
			s, ok := stats[k]
			if !ok {
				s = newStats(opt.Table, k)
				stats[k] = s
			}
			s.observe(v)
		}
	}
	return n, nil
}

func newStats(t schema.Table, key string) *fieldStats {
	s := &fieldStats{Field: Field{Key: key}, types: map[string]struct{}{}}
	if c, ok := t.Column(key); ok && c.Type != schema.Identity {
		s.Column = c.Name
		p := transformer.Compile([]schema.Column{c})
		s.plan = &p
	}
	return s
}

func (s *fieldStats) observe(v any) {
	s.Seen++
	if v == nil {
		s.Nulls++
		return
	}
	s.types[typeOf(v)] = struct{}{}
	if s.Example == "" {
		if b, err := json.Marshal(v); err == nil {
			s.Example = string(b)
		}
	}
	if s.plan != nil {
		if _, err := s.plan.Row([]any{v}); err != nil {
			s.Rejects++
		}
	}
}

func typeOf(v any) string {
	switch t := v.(type) {
	case json.Number:
		if _, err := strconv.ParseInt(t.String(), 10, 64); err == nil {
			return "int"
		}
		return "float"
	case string:
		return "string"
	case bool:
		return "bool"
	case map[string]any:
		return "object"
	case []any:
		return "array"
	}
	return "mixed"
}

// collapse widens int to float and reports anything else heterogeneous as
// mixed.
func collapse(types map[string]struct{}) string {
	switch len(types) {
	case 0:
		return "null"
	case 1:
		for t := range types {
			return t
		}
	case 2:
		_, i := types["int"]
		_, f := types["float"]
		if i && f {
			return "float"
		}
	}
	return "mixed"
}

// Manifest renders a JSON-paths manifest for the table's load columns, in
// table order. Columns no sampled key maps to are addressed by their own
// name.
func (r Result) Manifest() ([]byte, error) {
	byColumn := map[string]string{}
	for _, f := range r.Fields {
		if f.Column != "" {
			byColumn[f.Column] = f.Key
		}
	}
	var paths []string
	for _, c := range r.table.LoadColumns() {
		key, ok := byColumn[c.Name]
		if !ok {
			key = c.Name
		}
		p, err := jsonparser.ParsePath(`$["` + key + `"]`)
		if err != nil {
			return nil, err
		}
		paths = append(paths, p.String())
	}
	return json.MarshalIndent(struct {
		JSONPaths []string `json:"jsonpaths"`
	}{paths}, "", "  ")
}

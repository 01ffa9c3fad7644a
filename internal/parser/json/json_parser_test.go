package json

import (
	"encoding/json"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

/*
TestDecoderNext_Framings verifies that NDJSON, concatenated objects and
top-level arrays all yield the same records, in stream order.
*/
func TestDecoderNext_Framings(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
	}{
		{name: "ndjson", in: "{\"id\":1}\n{\"id\":2}\n{\"id\":3}\n"},
		{name: "concatenated", in: `{"id":1}{"id":2} {"id":3}`},
		{name: "array", in: `[{"id":1},{"id":2},{"id":3}]`},
		{name: "array_then_ndjson", in: "[{\"id\":1},{\"id\":2}]\n{\"id\":3}"},
		{name: "utf8_bom", in: "\ufeff{\"id\":1}\n{\"id\":2}\n{\"id\":3}"},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			recs, err := DecodeAll(strings.NewReader(tc.in))
			if err != nil {
				t.Fatalf("DecodeAll: %v", err)
			}
			var ids []string
			for _, r := range recs {
				ids = append(ids, r["id"].(json.Number).String())
			}
			if diff := cmp.Diff([]string{"1", "2", "3"}, ids); diff != "" {
				t.Fatalf("ids (-want +got):\n%s", diff)
			}
		})
	}
}

func TestDecoderNext_EmptyInput(t *testing.T) {
	t.Parallel()

	d := NewDecoder(strings.NewReader("  \n"))
	if _, err := d.Next(); !errors.Is(err, io.EOF) {
		t.Fatalf("Next() = %v; want io.EOF", err)
	}
	if d.Count() != 0 {
		t.Fatalf("Count() = %d; want 0", d.Count())
	}
}

func TestDecoderNext_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "primitive", in: `{"id":1}` + "\n42", want: "record 2"},
		{name: "array_of_primitives", in: `[1]`, want: "array element"},
		{name: "truncated", in: `{"id":1}{"id":`, want: "decode"},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			_, err := DecodeAll(strings.NewReader(tc.in))
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("err = %v; want containing %q", err, tc.want)
			}
		})
	}
}

func TestParsePath(t *testing.T) {
	t.Parallel()

	obj := map[string]any{
		"artist": "Des'ree",
		"song":   map[string]any{"title": "You Gotta Be", "tags": []any{"pop", "soul"}},
		"a.b":    "dotted",
	}

	tests := []struct {
		expr    string
		want    any
		found   bool
		wantErr bool
	}{
		{expr: "$['artist']", want: "Des'ree", found: true},
		{expr: `$["artist"]`, want: "Des'ree", found: true},
		{expr: "$.artist", want: "Des'ree", found: true},
		{expr: "$.song.title", want: "You Gotta Be", found: true},
		{expr: "$['song']['tags'][1]", want: "soul", found: true},
		{expr: "$['a.b']", want: "dotted", found: true},
		{expr: "$.song.tags[5]"},
		{expr: "$.missing"},
		{expr: "$.artist.name"},
		{expr: "artist", wantErr: true},
		{expr: "$", wantErr: true},
		{expr: "$.", wantErr: true},
		{expr: "$['artist'", wantErr: true},
		{expr: "$[-1]", wantErr: true},
		{expr: "$[x]", wantErr: true},
	}
	for _, tc := range tests {
		p, err := ParsePath(tc.expr)
		if tc.wantErr {
			if err == nil {
				t.Errorf("ParsePath(%q) expected error, got %v", tc.expr, p)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParsePath(%q): %v", tc.expr, err)
			continue
		}
		got, found := p.Lookup(obj)
		if found != tc.found || got != tc.want {
			t.Errorf("%s.Lookup = (%v, %v); want (%v, %v)", tc.expr, got, found, tc.want, tc.found)
		}
	}
}

func TestPathString(t *testing.T) {
	t.Parallel()

	p, err := ParsePath("$.song.tags[0]")
	if err != nil {
		t.Fatal(err)
	}
	if got := p.String(); got != "$['song']['tags'][0]" {
		t.Fatalf("String() = %q", got)
	}
}

func TestParseManifest(t *testing.T) {
	t.Parallel()

	paths, err := ParseManifest(strings.NewReader(`{
    "jsonpaths": [
        "$['artist']",
        "$['auth']",
        "$['firstName']"
    ]
}`))
	if err != nil {
		t.Fatalf("ParseManifest: %v", err)
	}
	if len(paths) != 3 || paths[2].String() != "$['firstName']" {
		t.Fatalf("paths = %v", paths)
	}

	for _, bad := range []string{`{}`, `{"jsonpaths":[1]}`, `{"jsonpaths":["x"]}`, `{"jsonpaths":[]}{"jsonpaths":[]}`} {
		if _, err := ParseManifest(strings.NewReader(bad)); err == nil {
			t.Errorf("ParseManifest(%s) expected error", bad)
		}
	}
}

func TestMapping(t *testing.T) {
	t.Parallel()

	obj := map[string]any{"artist": "Muse", "firstName": "Kaylee", "LENGTH": json.Number("1.5")}
	cols := []string{"artist", "firstname", "length", "song"}

	auto := NewAutoMapping(cols)
	want := []any{"Muse", "Kaylee", json.Number("1.5"), nil}
	if diff := cmp.Diff(want, auto.Row(obj)); diff != "" {
		t.Fatalf("auto row (-want +got):\n%s", diff)
	}

	var paths []Path
	for _, e := range []string{"$.firstName", "$.artist", "$.nope", "$.LENGTH"} {
		p, err := ParsePath(e)
		if err != nil {
			t.Fatal(err)
		}
		paths = append(paths, p)
	}
	m, err := NewPathMapping(cols, paths)
	if err != nil {
		t.Fatalf("NewPathMapping: %v", err)
	}
	want = []any{"Kaylee", "Muse", nil, json.Number("1.5")}
	if diff := cmp.Diff(want, m.Row(obj)); diff != "" {
		t.Fatalf("path row (-want +got):\n%s", diff)
	}

	if _, err := NewPathMapping(cols, paths[:2]); err == nil {
		t.Fatal("expected count mismatch error")
	}
}

func TestIsAuto(t *testing.T) {
	t.Parallel()

	for in, want := range map[string]bool{
		"auto":                  true,
		"AUTO":                  true,
		"auto ignorecase":       true,
		"s3://b/log_paths.json": false,
		"":                      false,
	} {
		if got := IsAuto(in); got != want {
			t.Errorf("IsAuto(%q) = %v, want %v", in, got, want)
		}
	}
}

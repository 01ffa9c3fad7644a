// Package datasource defines where staging input comes from: a set of
// objects under a prefix (an S3 prefix or a local directory), each opened as
// a byte stream.
package datasource

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
)

// ObjectSource lists and opens objects.
type ObjectSource interface {
	// List returns the keys of every object whose key starts with prefix,
	// sorted. Keys are returned in the same addressing form as prefix so
	// they can be passed back to Open.
	List(ctx context.Context, prefix string) ([]string, error)
	// Open opens one object for reading. The caller closes it.
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}

// Mux routes keys to an ObjectSource by URI scheme ("s3", "file"). Keys
// without a scheme use the "" entry.
type Mux map[string]ObjectSource

var _ ObjectSource = Mux(nil)

// Scheme returns the URI scheme of key, or "" for a plain path.
func Scheme(key string) string {
	if i := strings.Index(key, "://"); i > 0 {
		return strings.ToLower(key[:i])
	}
	return ""
}

func (m Mux) route(key string) (ObjectSource, error) {
	s := Scheme(key)
	src, ok := m[s]
	if !ok {
		return nil, fmt.Errorf("datasource: no source for scheme %q (key %s)", s, key)
	}
	return src, nil
}

// List implements ObjectSource.
func (m Mux) List(ctx context.Context, prefix string) ([]string, error) {
	src, err := m.route(prefix)
	if err != nil {
		return nil, err
	}
	keys, err := src.List(ctx, prefix)
	if err != nil {
		return nil, err
	}
	sort.Strings(keys)
	return keys, nil
}

// Open implements ObjectSource.
func (m Mux) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	src, err := m.route(key)
	if err != nil {
		return nil, err
	}
	return src.Open(ctx, key)
}

// Package file implements a local filesystem-backed object source. Keys are
// plain paths or file:// URIs.
package file

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/adespotakis/data-engineering-part2-redshift/internal/datasource"
)

// Local is a filesystem object source. The zero value is ready to use and
// safe for concurrent use.
type Local struct{}

var _ datasource.ObjectSource = Local{}

// List returns every regular file under prefix. When prefix names a
// directory, it is walked recursively; otherwise the files in its parent
// directory (recursively) whose path starts with prefix are returned. Keys
// keep the file:// scheme when prefix had it.
func (Local) List(ctx context.Context, prefix string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	uri := strings.HasPrefix(prefix, "file://")
	p := toPath(prefix)

	root, match := p, ""
	if fi, err := os.Stat(p); err != nil || !fi.IsDir() {
		root, match = filepath.Dir(p), p
	}

	var out []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		if match != "" && !strings.HasPrefix(path, match) {
			return nil
		}
		if uri {
			path = "file://" + filepath.ToSlash(path)
		}
		out = append(out, path)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", prefix, err)
	}
	sort.Strings(out)
	return out, nil
}

// Open opens the file at key and returns it as an io.ReadCloser.
//
// Behavior:
//   - If the context is already canceled or its deadline exceeded at the time
//     of the call, Open returns the context error immediately without touching
//     the filesystem.
//   - Any filesystem error is wrapped with the path for context, while still
//     permitting errors.Is/As checks by callers (e.g., errors.Is(err, os.ErrNotExist)).
func (Local) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}
	p := toPath(key)
	f, err := os.Open(p)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", p, err)
	}
	return f, nil
}

func toPath(key string) string {
	if rest, ok := strings.CutPrefix(key, "file://"); ok {
		return filepath.FromSlash(rest)
	}
	return key
}

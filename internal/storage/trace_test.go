package storage

import (
	"bytes"
	"context"
	"log"
	"strings"
	"testing"
)

// Not parallel: redirects the global logger.
func TestTraced_LogsAndDelegates(t *testing.T) {
	var buf bytes.Buffer
	prev := log.Writer()
	log.SetOutput(&buf)
	t.Cleanup(func() { log.SetOutput(prev) })

	inner := &fakeRepo{}
	repo := Traced(inner)

	n, err := repo.Exec(context.Background(), "CREATE TABLE\n    x (a INT)")
	if err != nil || n != 1 {
		t.Fatalf("Exec = (%d, %v)", n, err)
	}
	if len(inner.stmts) != 1 {
		t.Fatalf("inner saw %d statements, want 1", len(inner.stmts))
	}
	if !strings.Contains(buf.String(), "CREATE TABLE x (a INT)") {
		t.Fatalf("log output %q does not contain collapsed statement", buf.String())
	}

	repo.Close()
	if !inner.closed {
		t.Fatal("Close not delegated")
	}
}

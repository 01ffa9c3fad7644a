package all

import (
	"testing"

	"github.com/adespotakis/data-engineering-part2-redshift/internal/storage"
)

func TestAllKindsRegistered(t *testing.T) {
	t.Parallel()

	got := map[string]bool{}
	for _, k := range storage.ListKinds() {
		got[k] = true
	}
	for _, want := range []string{"mssql", "postgres", "redshift", "sqlite"} {
		if !got[want] {
			t.Errorf("kind %q not registered; have %v", want, storage.ListKinds())
		}
	}
}

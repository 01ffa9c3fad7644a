package schema

import (
	"strconv"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// plain double-quotes identifiers and renders types by their logical name.
type plain struct{}

func (plain) Name() string                            { return "plain" }
func (plain) Quote(id string) string                  { return `"` + id + `"` }
func (plain) TableRef(t Table) string                 { return t.Name }
func (plain) Placeholder(n int) string                { return "$" + strconv.Itoa(n) }
func (plain) ColumnType(c Column) string              { return strings.ToUpper(c.Type.String()) }
func (plain) CreateTable(t Table) string              { return "" }
func (plain) DropTable(t Table, ifExists bool) string { return "" }
func (plain) Truncate(t Table) string                 { return "" }
func (plain) SelectFirst(list, rest string) string    { return "" }
func (plain) ServerCopy() bool                        { return false }

func TestTables_Shape(t *testing.T) {
	t.Parallel()

	tests := []struct {
		table Table
		pk    []string
		load  int
	}{
		{StagingLogs, []string{"id"}, 18},
		{StagingSongs, []string{"id"}, 10},
		{Songplays, []string{"songplay_id"}, 8},
		{Users, []string{"user_id"}, 5},
		{Songs, []string{"song_id"}, 5},
		{Artists, []string{"artist_id"}, 5},
		{Time, []string{"start_time"}, 7},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.table.Name, func(t *testing.T) {
			t.Parallel()
			if diff := cmp.Diff(tt.pk, tt.table.PrimaryKey()); diff != "" {
				t.Errorf("PrimaryKey (-want +got):\n%s", diff)
			}
			if n := len(tt.table.LoadColumns()); n != tt.load {
				t.Errorf("LoadColumns = %d, want %d", n, tt.load)
			}
		})
	}
}

func TestTables_Groups(t *testing.T) {
	t.Parallel()

	if len(Tables) != len(Staging)+len(Permanent) {
		t.Fatalf("Tables = %d, want staging+permanent", len(Tables))
	}
	for _, tbl := range Staging {
		if !tbl.Temporary {
			t.Errorf("%s: staging table not temporary", tbl.Name)
		}
	}
	for _, tbl := range Permanent {
		if tbl.Temporary {
			t.Errorf("%s: permanent table marked temporary", tbl.Name)
		}
		got, ok := Lookup(tbl.Name)
		if !ok || got.Name != tbl.Name {
			t.Errorf("Lookup(%s) = %v, %v", tbl.Name, got.Name, ok)
		}
	}
	if _, ok := Lookup("plays"); ok {
		t.Errorf("Lookup(plays) found a table")
	}
}

func TestTable_ColumnCaseInsensitive(t *testing.T) {
	t.Parallel()

	c, ok := StagingLogs.Column("USERID")
	if !ok || c.Name != "userId" || c.Type != Varchar {
		t.Fatalf("Column(USERID) = %+v, %v", c, ok)
	}
	if _, ok := StagingLogs.Column("user_id"); ok {
		t.Fatalf("Column(user_id) matched")
	}
}

func TestColumnDefs(t *testing.T) {
	t.Parallel()

	got := ColumnDefs(plain{}, Users)
	want := "(\n" +
		"    \"user_id\" INT NOT NULL,\n" +
		"    \"first_name\" VARCHAR,\n" +
		"    \"last_name\" VARCHAR,\n" +
		"    \"gender\" VARCHAR,\n" +
		"    \"level\" VARCHAR,\n" +
		"    PRIMARY KEY (\"user_id\")\n" +
		")"
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("ColumnDefs (-want +got):\n%s", diff)
	}
}

func TestQuoteListAndPlaceholders(t *testing.T) {
	t.Parallel()

	if got := QuoteList(plain{}, []string{"a", "b"}); got != `"a", "b"` {
		t.Errorf("QuoteList = %s", got)
	}
	if got := Placeholders(plain{}, 3, 3); got != "$3, $4, $5" {
		t.Errorf("Placeholders = %s", got)
	}
	if got := Names(Songs.LoadColumns()); strings.Join(got, ",") != "song_id,title,artist_id,year,duration" {
		t.Errorf("Names = %v", got)
	}
}

func TestType_String(t *testing.T) {
	t.Parallel()

	if got := Type(99).String(); got != "Type(99)" {
		t.Fatalf("String = %s", got)
	}
	if got := Identity.String(); got != "identity" {
		t.Fatalf("String = %s", got)
	}
}

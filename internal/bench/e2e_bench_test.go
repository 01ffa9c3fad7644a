package bench

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"testing"

	jsonparser "github.com/adespotakis/data-engineering-part2-redshift/internal/parser/json"
	"github.com/adespotakis/data-engineering-part2-redshift/internal/schema"
	"github.com/adespotakis/data-engineering-part2-redshift/internal/storage"
	"github.com/adespotakis/data-engineering-part2-redshift/internal/transformer"
)

// BenchmarkStageLogs exercises the client-mode staging hot path for event
// logs in memory: JSON decoding, auto key-to-column mapping, column
// coercion and batching into a fake COPY function.
//
// Run with:
//
//	go test -run=^$ -bench ^BenchmarkStageLogs$ -cpuprofile cpu.out -memprofile mem.out -count=1
func BenchmarkStageLogs(b *testing.B) {
	ctx := context.Background()

	var buf bytes.Buffer
	for i := 0; i < 1000; i++ {
		fmt.Fprintf(&buf, `{"artist":"Des'ree","auth":"Logged In","firstName":"Kaylee","gender":"F","itemInSession":%d,"lastName":"Summers","length":246.30812,"level":"free","location":"Phoenix-Mesa-Scottsdale, AZ","method":"PUT","page":"NextSong","registration":1540344794796.0,"sessionId":139,"song":"You Gotta Be","status":200,"ts":%d,"userAgent":"Mozilla/5.0","userId":"8"}`+"\n",
			i, 1541106106796+int64(i)*1000)
	}
	data := buf.Bytes()

	cols := schema.StagingLogs.LoadColumns()
	names := schema.Names(cols)
	mapping := jsonparser.NewAutoMapping(names)
	plan := transformer.Compile(cols)

	// Counts rows only, isolating decode and coercion from any driver.
	copyFn := func(ctx context.Context, columns []string, rows [][]any) (int64, error) {
		return int64(len(rows)), nil
	}

	log.SetOutput(io.Discard)
	b.Cleanup(func() { log.SetOutput(os.Stderr) })

	b.SetBytes(int64(len(data)))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		dec := jsonparser.NewDecoder(bytes.NewReader(data))
		rows := make([][]any, 0, 1000)
		for {
			obj, err := dec.Next()
			if errors.Is(err, io.EOF) {
				break
			}
			if err != nil {
				b.Fatalf("decode: %v", err)
			}
			row, err := plan.Row(mapping.Row(obj))
			if err != nil {
				b.Fatalf("coerce: %v", err)
			}
			rows = append(rows, row)
		}
		n, err := storage.LoadRows(ctx, schema.StagingLogsTable, names, rows, 500, copyFn)
		if err != nil || n != 1000 {
			b.Fatalf("LoadRows = %d, %v", n, err)
		}
	}
}

// Command probe samples staging input objects and reports how their keys map
// onto a staging table, or prints a starter JSON-paths manifest for it.
//
// The manifest is intended to be hand-edited and published next to the data,
// then named in S3.LOG_JSONPATH / S3.SONG_JSON_PATHS.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/adespotakis/data-engineering-part2-redshift/internal/datasource"
	"github.com/adespotakis/data-engineering-part2-redshift/internal/datasource/file"
	"github.com/adespotakis/data-engineering-part2-redshift/internal/datasource/s3ds"
	"github.com/adespotakis/data-engineering-part2-redshift/internal/probe"
	"github.com/adespotakis/data-engineering-part2-redshift/internal/schema"
)

func main() {
	var (
		flagPrefix = flag.String(
			"prefix",
			"",
			"object prefix to sample: s3://bucket/key, file:// URI or local path",
		)
		flagTable = flag.String(
			"table",
			schema.StagingLogsTable,
			"staging table to probe against: staging_logs|staging_songs",
		)
		flagObjects = flag.Int(
			"objects",
			10,
			"maximum number of objects to read",
		)
		flagRecords = flag.Int(
			"records",
			1000,
			"maximum number of records to sample",
		)
		flagManifest = flag.Bool(
			"manifest",
			false,
			"print a JSON-paths manifest instead of the field report",
		)
		flagPretty = flag.Bool(
			"pretty",
			true,
			"pretty-print the field report",
		)
		flagRegion   = flag.String("region", "", "AWS region of the bucket")
		flagEndpoint = flag.String("s3-endpoint", "", "custom S3 endpoint (MinIO, LocalStack)")
	)
	flag.Parse()

	if *flagPrefix == "" {
		fmt.Fprintln(os.Stderr, "missing -prefix")
		flag.Usage()
		os.Exit(2)
	}
	table, ok := schema.Lookup(*flagTable)
	if !ok || !table.Temporary {
		fmt.Fprintf(os.Stderr, "unknown staging table %q\n", *flagTable)
		os.Exit(2)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	src := datasource.Mux{"file": file.Local{}, "": file.Local{}}
	if datasource.Scheme(*flagPrefix) == "s3" {
		s3src, err := s3ds.New(ctx, s3ds.Config{Region: *flagRegion, Endpoint: *flagEndpoint})
		if err != nil {
			log.Fatalf("probe: %v", err)
		}
		src["s3"] = s3src
	}

	res, err := probe.Probe(ctx, probe.Options{
		Source:     src,
		Prefix:     *flagPrefix,
		Table:      table,
		MaxObjects: *flagObjects,
		MaxRecords: *flagRecords,
	})
	if err != nil {
		log.Fatalf("probe failed: %v", err)
	}

	if *flagManifest {
		b, err := res.Manifest()
		if err != nil {
			log.Fatalf("probe: manifest: %v", err)
		}
		fmt.Println(string(b))
		return
	}

	enc := json.NewEncoder(os.Stdout)
	if *flagPretty {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(res); err != nil {
		log.Fatalf("encode report: %v", err)
	}
}

// Command create_tables (re)creates the warehouse schema: it drops the five
// permanent tables when they exist and creates all seven tables.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/adespotakis/data-engineering-part2-redshift/internal/config"
	"github.com/adespotakis/data-engineering-part2-redshift/internal/storage"
	"github.com/adespotakis/data-engineering-part2-redshift/internal/warehouse"

	// register all backends with the storage factory.
	_ "github.com/adespotakis/data-engineering-part2-redshift/internal/storage/all"
)

func main() {
	cfgPath := flag.String("config", config.DefaultPath, "path to the INI config file")
	keep := flag.Bool("keep", false, "do not drop existing tables first")
	verbose := flag.Bool("v", false, "log every statement")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fatalf("%v", err)
	}
	for _, iss := range config.Validate(cfg) {
		fmt.Fprintf(os.Stderr, "%s: %s: %s\n", iss.Severity, iss.Path, iss.Message)
	}

	if err := run(cfg, *keep, *verbose); err != nil {
		log.Printf("create_tables: %v", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, keep, verbose bool) error {
	ctx := context.Background()
	start := time.Now()

	repo, err := storage.New(ctx, storage.Config{Kind: cfg.Warehouse.Kind, DSN: cfg.DSN()})
	if err != nil {
		return fmt.Errorf("open %s: %w", cfg.Warehouse.Kind, err)
	}
	defer repo.Close()
	if verbose {
		repo = storage.Traced(repo)
	}

	s := warehouse.NewSchema(repo)
	if !keep {
		if err := s.DropAllIfExists(ctx); err != nil {
			return err
		}
	}
	if err := s.CreateAll(ctx); err != nil {
		return err
	}
	log.Printf("create_tables: kind=%s done in %s", cfg.Warehouse.Kind, time.Since(start).Truncate(time.Millisecond))
	return nil
}

func fatalf(format string, a ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", a...)
	os.Exit(1)
}

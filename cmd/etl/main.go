// Command etl runs one warehouse load: it stages the event-log and song
// objects, then loads the fact and dimension tables. The schema must already
// exist (see create_tables).
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/adespotakis/data-engineering-part2-redshift/internal/config"
	"github.com/adespotakis/data-engineering-part2-redshift/internal/datasource"
	"github.com/adespotakis/data-engineering-part2-redshift/internal/datasource/file"
	"github.com/adespotakis/data-engineering-part2-redshift/internal/datasource/s3ds"
	"github.com/adespotakis/data-engineering-part2-redshift/internal/metrics"
	"github.com/adespotakis/data-engineering-part2-redshift/internal/metrics/datadog"
	"github.com/adespotakis/data-engineering-part2-redshift/internal/metrics/prompush"
	"github.com/adespotakis/data-engineering-part2-redshift/internal/pipeline"
	"github.com/adespotakis/data-engineering-part2-redshift/internal/storage"

	// register all backends with the storage factory.
	_ "github.com/adespotakis/data-engineering-part2-redshift/internal/storage/all"
)

func main() {
	var (
		cfgPath           string
		metricsBackendFlg string
		pushGatewayURLFlg string
		datadogAddrFlg    string
		s3Endpoint        string
		validate          bool
	)
	flag.StringVar(&cfgPath, "config", config.DefaultPath, "path to the INI config file")
	flag.StringVar(&metricsBackendFlg, "metrics-backend", "", "metrics backend: none, pushgateway, datadog (overrides METRICS.BACKEND)")
	flag.StringVar(&pushGatewayURLFlg, "pushgateway-url", "", "Pushgateway base URL (overrides METRICS.PUSHGATEWAY_URL)")
	flag.StringVar(&datadogAddrFlg, "datadog-addr", "", "DogStatsD address (overrides METRICS.DATADOG_ADDR)")
	flag.StringVar(&s3Endpoint, "s3-endpoint", "", "custom S3 endpoint for client-side staging (MinIO, LocalStack)")
	flag.BoolVar(&validate, "validate", false, "validate the configuration and exit")
	verbose := flag.Bool("v", false, "log every statement")
	flag.Parse()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		fatalf("%v", err)
	}
	for _, iss := range config.Validate(cfg) {
		fmt.Fprintf(os.Stderr, "%s: %s: %s\n", iss.Severity, iss.Path, iss.Message)
	}
	if validate {
		log.Printf("Configuration is valid: %v", cfgPath)
		os.Exit(0)
	}

	if metricsBackendFlg != "" {
		cfg.Metrics.Backend = metricsBackendFlg
	}
	if pushGatewayURLFlg != "" {
		cfg.Metrics.PushgatewayURL = pushGatewayURLFlg
	}
	if datadogAddrFlg != "" {
		cfg.Metrics.DatadogAddr = datadogAddrFlg
	}
	if err := run(cfg, s3Endpoint, *verbose); err != nil {
		log.Printf("etl: %v", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, s3Endpoint string, verbose bool) error {
	if b := metricsBackend(cfg.Metrics, verbose); b != nil {
		metrics.SetBackend(b)
		defer func() {
			if err := metrics.Flush(); err != nil {
				log.Printf("metrics: flush error: %v", err)
			}
		}()
	}

	ctx := context.Background()
	start := time.Now()

	repo, err := storage.New(ctx, storage.Config{Kind: cfg.Warehouse.Kind, DSN: cfg.DSN()})
	if err != nil {
		return fmt.Errorf("open %s: %w", cfg.Warehouse.Kind, err)
	}
	defer repo.Close()
	if verbose {
		repo = storage.Traced(repo)
		log.Printf("etl: kind=%s policy=%s copy_mode=%s batch=%d workers=%d",
			cfg.Warehouse.Kind, cfg.Warehouse.LoadPolicy, cfg.Warehouse.CopyMode,
			cfg.Warehouse.BatchSize, cfg.Warehouse.LoaderWorkers)
	}

	src, err := objectSource(ctx, cfg, s3Endpoint)
	if err != nil {
		return err
	}
	if _, err := pipeline.Run(ctx, cfg, repo, src); err != nil {
		return err
	}
	if verbose {
		log.Printf("completed in %s", time.Since(start).Truncate(time.Millisecond))
	}
	return nil
}

// objectSource routes s3:// keys to S3 and everything else to the local
// filesystem. The -s3-endpoint flag overrides S3.ENDPOINT.
func objectSource(ctx context.Context, cfg *config.Config, endpoint string) (datasource.ObjectSource, error) {
	if endpoint == "" {
		endpoint = cfg.S3.Endpoint
	}
	s3src, err := s3ds.New(ctx, s3ds.Config{Region: cfg.S3.Region, Endpoint: endpoint})
	if err != nil {
		return nil, err
	}
	return datasource.Mux{
		"s3":   s3src,
		"file": file.Local{},
		"":     file.Local{},
	}, nil
}

// metricsBackend returns the configured backend, or nil when metrics are
// disabled or the backend cannot be created.
func metricsBackend(m config.Metrics, verbose bool) metrics.Backend {
	switch m.Backend {
	case "pushgateway":
		gwURL := m.PushgatewayURL
		if gwURL == "" {
			gwURL = os.Getenv("PUSHGATEWAY_URL")
		}
		if gwURL == "" {
			gwURL = "http://localhost:9091"
		}
		b, err := prompush.NewBackend(m.Job, gwURL)
		if err != nil {
			log.Printf("metrics: failed to init prom push backend: %v; using nop", err)
			return nil
		}
		log.Printf("metrics: url=%v, backend=%v, job_name=%v", gwURL, m.Backend, m.Job)
		return b

	case "datadog":
		addr := m.DatadogAddr
		if addr == "" {
			addr = os.Getenv("DD_DOGSTATSD_URL")
		}
		if addr == "" {
			addr = "127.0.0.1:8125"
		}
		b, err := datadog.NewBackend(datadog.Config{Addr: addr, Tags: []string{"job:" + m.Job}})
		if err != nil {
			log.Printf("metrics: failed to init datadog backend: %v; using nop", err)
			return nil
		}
		log.Printf("metrics: addr=%v, backend=%v, job_name=%v", addr, m.Backend, m.Job)
		return b

	case "", "none":
		if verbose {
			log.Printf("metrics: disabled (backend=%q)", m.Backend)
		}
	default:
		log.Printf("metrics: unknown backend %q; metrics disabled", m.Backend)
	}
	return nil
}

func fatalf(format string, a ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", a...)
	os.Exit(1)
}

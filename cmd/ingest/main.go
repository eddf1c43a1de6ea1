// Command ingest runs one ingestion pipeline: it fetches a raw sales CSV
// from the configured source, cleans and aggregates the rows, and batch-loads
// them into the store.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"

	"retailetl/internal/config"
	"retailetl/internal/datasource"
	"retailetl/internal/datasource/file"
	s3ds "retailetl/internal/datasource/s3"
	"retailetl/internal/datasource/web"
	"retailetl/internal/etl"
	"retailetl/internal/metrics"
	"retailetl/internal/metrics/datadog"
	"retailetl/internal/metrics/prompush"
	"retailetl/internal/storage/dynamo"
)

func main() {
	var (
		cfgPath        string
		metricsBackend string
		pushGatewayURL string
		dogstatsdAddr  string
		validate       bool
	)

	flag.StringVar(&cfgPath, "config", "configs/pipelines/sample.json", "pipeline config JSON path")
	flag.StringVar(&metricsBackend, "metrics-backend", "none", "metrics backend (pushgateway, datadog, none)")
	flag.StringVar(&pushGatewayURL, "pushgateway-url", "", "Pushgateway base URL (overrides env PUSHGATEWAY_URL)")
	flag.StringVar(&dogstatsdAddr, "dogstatsd-addr", "", "DogStatsD address (overrides env DOGSTATSD_ADDR)")
	flag.BoolVar(&validate, "validate", false, "validate the configuration and exit")
	verbose := flag.Bool("v", false, "enable verbose logs")
	flag.Parse()

	p, err := config.Load(cfgPath)
	if err != nil {
		fatalf("load config: %v", err)
	}

	issues := config.ValidatePipeline(p)
	hasError := false
	for _, iss := range issues {
		fmt.Fprintf(os.Stderr, "%s: %s: %s\n", iss.Severity, iss.Path, iss.Message)
		if iss.Severity == config.SeverityError {
			hasError = true
		}
	}
	if hasError {
		log.Printf("configuration is invalid: %v", cfgPath)
		os.Exit(1)
	}
	if validate {
		log.Printf("configuration is valid: %v", cfgPath)
		os.Exit(0)
	}

	setupMetrics(metricsBackend, pushGatewayURL, dogstatsdAddr, p.Job, *verbose)
	defer func() {
		if err := metrics.Flush(); err != nil {
			log.Printf("metrics: flush error: %v", err)
		}
	}()

	ctx := context.Background()
	start := time.Now()

	source, err := buildSource(ctx, p)
	if err != nil {
		fatalf("source: %v", err)
	}

	client, err := dynamo.NewClient(ctx, p.Store)
	if err != nil {
		fatalf("store client: %v", err)
	}
	if p.Store.AutoCreateTable {
		if err := dynamo.EnsureTable(ctx, client, p.Store.Table); err != nil {
			fatalf("ensure table: %v", err)
		}
	}
	repo := dynamo.NewRepository(client, p.Store.Table)

	if *verbose {
		log.Printf("pipeline: job=%s source=%s table=%s", p.Job, p.Source.Kind, p.Store.Table)
	}

	sum, err := etl.New(p, source, repo).Run(ctx)
	if err != nil {
		log.Fatalf("%v", err)
	}

	log.Printf("summary: parsed=%d parse_skipped=%d coerce_dropped=%d validate_dropped=%d key_missing=%d aggregated=%d loaded=%d",
		sum.Parsed, sum.ParseSkipped, sum.CoerceDropped, sum.ValidateDropped, sum.KeyMissing, sum.Aggregated, sum.Loaded)
	if *verbose {
		log.Printf("completed in %s", time.Since(start).Truncate(time.Millisecond))
	}
}

// buildSource constructs the configured raw-bytes source.
func buildSource(ctx context.Context, p config.Pipeline) (datasource.Source, error) {
	switch p.Source.Kind {
	case "file":
		return file.NewLocal(p.Source.File.Path), nil

	case "s3":
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(p.Store.Region))
		if err != nil {
			return nil, fmt.Errorf("load aws config: %v", err)
		}
		opts := []s3ds.Option{
			s3ds.WithForceDownload(p.Source.S3.ForceDownload),
		}
		if p.Source.S3.CacheDir != "" {
			opts = append(opts, s3ds.WithCacheDir(p.Source.S3.CacheDir))
		}
		return s3ds.NewObject(awss3.NewFromConfig(awsCfg), p.Source.S3.Bucket, p.Source.S3.Key, opts...), nil

	case "http":
		var opts []web.Option
		if p.Source.HTTP.MaxRetries > 0 {
			opts = append(opts, web.WithRetries(p.Source.HTTP.MaxRetries))
		}
		return web.NewURL(p.Source.HTTP.URL, opts...), nil

	default:
		return nil, fmt.Errorf("unsupported source kind %q", p.Source.Kind)
	}
}

// setupMetrics installs the selected metrics backend. Resolution order per
// knob: flag, then environment, then default.
func setupMetrics(backend, gwURL, ddAddr, job string, verbose bool) {
	if backend == "" {
		backend = os.Getenv("METRICS_BACKEND")
	}
	if job == "" {
		job = "retail_etl"
	}

	switch backend {
	case "pushgateway":
		if gwURL == "" {
			gwURL = os.Getenv("PUSHGATEWAY_URL")
		}
		if gwURL == "" {
			gwURL = "http://localhost:9091"
		}
		b, err := prompush.NewBackend(job, gwURL)
		if err != nil {
			log.Printf("metrics: failed to init pushgateway backend: %v; using nop", err)
			return
		}
		log.Printf("metrics: backend=pushgateway url=%s job=%s", gwURL, job)
		metrics.SetBackend(b)

	case "datadog":
		if ddAddr == "" {
			ddAddr = os.Getenv("DOGSTATSD_ADDR")
		}
		if ddAddr == "" {
			ddAddr = "127.0.0.1:8125"
		}
		b, err := datadog.NewBackend(datadog.Config{Addr: ddAddr, Namespace: "retailetl."})
		if err != nil {
			log.Printf("metrics: failed to init datadog backend: %v; using nop", err)
			return
		}
		log.Printf("metrics: backend=datadog addr=%s job=%s", ddAddr, job)
		metrics.SetBackend(b)

	case "", "none":
		if verbose {
			log.Printf("metrics: disabled (backend=%q)", backend)
		}

	default:
		log.Printf("metrics: unknown backend %q; metrics disabled", backend)
	}
}

func fatalf(format string, a ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", a...)
	os.Exit(1)
}

// Package etl wires the ingestion pipeline end to end: raw CSV source →
// parser → normalize → coerce → validate → aggregate → adapted batch load
// into the store. The package owns stage sequencing, per-stage metrics, and
// the run summary; every collaborator arrives through an interface so runs
// are testable without a network.
package etl

import (
	"context"
	"fmt"
	"log"
	"time"

	"retailetl/internal/config"
	"retailetl/internal/datasource"
	"retailetl/internal/metrics"
	"retailetl/internal/parser"
	csvparser "retailetl/internal/parser/csv"
	"retailetl/internal/schema"
	"retailetl/internal/storage"
	"retailetl/internal/transformer"
	"retailetl/internal/transformer/builtin"
	"retailetl/pkg/records"
)

// maxRejectLogs bounds per-stage reject logging; beyond it rows are only
// counted.
const maxRejectLogs = 20

// Summary reports what happened to every row of a run.
type Summary struct {
	// Parsed is the number of rows the parser produced.
	Parsed int64
	// ParseSkipped counts malformed CSV rows the parser dropped.
	ParseSkipped int64
	// CoerceDropped counts rows dropped for untypeable cells (bad dates,
	// non-numeric quantities or prices).
	CoerceDropped int64
	// ValidateDropped counts rows excluded by the economic checks
	// (quantity <= 0 or unit_price <= 0).
	ValidateDropped int64
	// KeyMissing counts rows lacking an invoice or line-item identifier.
	KeyMissing int64
	// Aggregated is the number of distinct (invoice, line item) rows that
	// reached the store.
	Aggregated int64
	// Loaded is the number of rows the store confirmed written.
	Loaded int64
}

// Pipeline is one configured ingestion run.
type Pipeline struct {
	cfg    config.Pipeline
	source datasource.Source
	store  storage.Writer
	parser parser.Parser
}

// New assembles a run from its collaborators. The source supplies raw CSV
// bytes; the store receives finalized rows.
func New(cfg config.Pipeline, source datasource.Source, store storage.Writer) *Pipeline {
	return &Pipeline{
		cfg:    cfg,
		source: source,
		store:  store,
		parser: csvparser.NewParser(parserOptions(cfg.Parser)),
	}
}

// Run executes the pipeline and returns the row-level summary. Aggregation
// completes over the whole input before the first write, so a failed run
// never leaves half an invoice line in the store with stale sums.
func (p *Pipeline) Run(ctx context.Context) (Summary, error) {
	var sum Summary
	job := p.cfg.Job

	// Stage 1: fetch + parse.
	t0 := time.Now()
	rows, skipped, err := p.parse(ctx)
	metrics.RecordStep(job, "parse", err, time.Since(t0))
	if err != nil {
		return sum, fmt.Errorf("parse: %w", err)
	}
	sum.Parsed = int64(len(rows))
	sum.ParseSkipped = int64(skipped)
	metrics.RecordRow(job, "processed", sum.Parsed)
	metrics.RecordRow(job, "parse_dropped", sum.ParseSkipped)
	log.Printf("etl: job=%s parsed=%d skipped=%d", job, sum.Parsed, sum.ParseSkipped)

	// Stage 2: transform.
	t0 = time.Now()
	out := p.transform(rows, &sum)
	metrics.RecordStep(job, "transform", nil, time.Since(t0))
	sum.Aggregated = int64(len(out))
	metrics.RecordRow(job, "coerce_dropped", sum.CoerceDropped)
	metrics.RecordRow(job, "validate_dropped", sum.ValidateDropped)
	metrics.RecordRow(job, "key_missing", sum.KeyMissing)
	metrics.RecordRow(job, "aggregated", sum.Aggregated)
	log.Printf("etl: job=%s aggregated=%d coerce_dropped=%d validate_dropped=%d key_missing=%d",
		job, sum.Aggregated, sum.CoerceDropped, sum.ValidateDropped, sum.KeyMissing)

	// Stage 3: load.
	t0 = time.Now()
	loaded, err := p.load(ctx, out)
	metrics.RecordStep(job, "load", err, time.Since(t0))
	sum.Loaded = loaded
	metrics.RecordRow(job, "loaded", loaded)
	if err != nil {
		return sum, fmt.Errorf("load: %w", err)
	}

	batchSize := p.batchSize()
	metrics.RecordBatches(job, (loaded+int64(batchSize)-1)/int64(batchSize))
	log.Printf("etl: job=%s done loaded=%d", job, loaded)
	return sum, nil
}

func (p *Pipeline) parse(ctx context.Context) ([]records.Record, int, error) {
	rc, err := p.source.Open(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("open source: %w", err)
	}
	defer rc.Close()

	return p.parser.Parse(rc)
}

func (p *Pipeline) transform(rows []records.Record, sum *Summary) []records.Record {
	chain := transformer.Chain{
		builtin.Normalize{},
		builtin.Coerce{
			Types: builtin.TypeTable{
				schema.AttrQuantity:  builtin.KindInt,
				schema.AttrUnitPrice: builtin.KindFloat,
				schema.AttrTimestamp: builtin.KindTime,
			},
			TimeLayouts: schema.RawDateLayouts,
			Reject:      rejectCounter(p.cfg.Job, &sum.CoerceDropped),
		},
		builtin.ValidateSales{
			Reject: rejectCounter(p.cfg.Job, &sum.ValidateDropped),
		},
		builtin.AggregateLines{
			Reject: rejectCounter(p.cfg.Job, &sum.KeyMissing),
		},
	}
	return chain.Apply(rows)
}

func (p *Pipeline) load(ctx context.Context, rows []records.Record) (int64, error) {
	buf := p.cfg.Runtime.ChannelBuffer
	if buf <= 0 {
		buf = 256
	}
	in := make(chan records.Record, buf)
	go func() {
		defer close(in)
		for _, r := range rows {
			select {
			case in <- r:
			case <-ctx.Done():
				return
			}
		}
	}()

	return storage.LoadBatches(ctx, in, p.batchSize(), p.cfg.Runtime.ProgressEvery, p.store.BulkPut)
}

func (p *Pipeline) batchSize() int {
	if p.cfg.Runtime.BatchSize > 0 {
		return p.cfg.Runtime.BatchSize
	}
	return 25
}

// rejectCounter counts dropped rows into dst, logging a bounded sample so a
// poisoned input does not flood the logs.
func rejectCounter(job string, dst *int64) func(builtin.RejectedRow) {
	return func(rr builtin.RejectedRow) {
		*dst++
		if *dst <= maxRejectLogs {
			log.Printf("etl: job=%s stage=%s dropped row: %s", job, rr.Stage, rr.Reason)
		} else if *dst == maxRejectLogs+1 {
			log.Printf("etl: job=%s stage=%s further drops suppressed", job, rr.Stage)
		}
	}
}

// parserOptions maps the free-form parser option bag onto the CSV parser's
// typed options. Raw retail exports default to headered, Latin-1 input.
func parserOptions(pc config.Parser) csvparser.Options {
	headerMap := make(map[string]string, len(schema.DefaultHeaderMap))
	for k, v := range schema.DefaultHeaderMap {
		headerMap[k] = v
	}
	for k, v := range pc.Options.StringMap("header_map") {
		headerMap[k] = v
	}
	return csvparser.Options{
		HasHeader:      pc.Options.Bool("has_header", true),
		Comma:          pc.Options.Rune("comma", ','),
		TrimSpace:      pc.Options.Bool("trim_space", true),
		ExpectedFields: pc.Options.Int("expected_fields", 0),
		HeaderMap:      headerMap,
		Encoding:       pc.Options.String("encoding", "latin1"),
	}
}

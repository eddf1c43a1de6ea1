package config

import (
	"os"
	"path/filepath"
	"testing"
)

// TestLoad_FullPipeline verifies a complete pipeline file decodes into the
// expected struct fields, including the free-form parser options bag.
func TestLoad_FullPipeline(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pipeline.json")
	body := `{
	  "job": "retail_eu",
	  "source": {
	    "kind": "s3",
	    "s3": { "bucket": "raw-sales", "key": "raw/online_retail.csv", "cache_dir": "tmp/cache" }
	  },
	  "parser": { "options": { "has_header": true, "encoding": "latin1", "comma": ";" } },
	  "store": { "table": "ecommerce_eu", "region": "eu-west-1", "auto_create_table": true },
	  "runtime": { "batch_size": 25, "channel_buffer": 512, "progress_every": 1000 }
	}`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}

	p, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if p.Job != "retail_eu" {
		t.Errorf("job = %q, want retail_eu", p.Job)
	}
	if p.Source.Kind != "s3" || p.Source.S3.Bucket != "raw-sales" {
		t.Errorf("source = %+v", p.Source)
	}
	if !p.Parser.Options.Bool("has_header", false) {
		t.Error("has_header not decoded")
	}
	if got := p.Parser.Options.Rune("comma", ','); got != ';' {
		t.Errorf("comma = %q, want ';'", got)
	}
	if p.Store.Table != "ecommerce_eu" || !p.Store.AutoCreateTable {
		t.Errorf("store = %+v", p.Store)
	}
	if p.Runtime.BatchSize != 25 || p.Runtime.ProgressEvery != 1000 {
		t.Errorf("runtime = %+v", p.Runtime)
	}
}

// TestLoad_EnvOverrides verifies the endpoint env var always wins and the
// region env var only fills an empty field.
func TestLoad_EnvOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pipeline.json")
	body := `{"job":"j","source":{"kind":"file","file":{"path":"x.csv"}},
	  "store":{"table":"t","region":"eu-west-1"}}`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}

	t.Setenv("AWS_REGION", "us-east-1")
	t.Setenv("DYNAMODB_ENDPOINT", "http://localhost:8000")

	p, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if p.Store.Region != "eu-west-1" {
		t.Errorf("region = %q; env must not override an explicit value", p.Store.Region)
	}
	if p.Store.Endpoint != "http://localhost:8000" {
		t.Errorf("endpoint = %q, want env override", p.Store.Endpoint)
	}
}

// TestOptions_TypedGetters exercises the Options coercion rules, including the
// float64 decoding of JSON numbers.
func TestOptions_TypedGetters(t *testing.T) {
	t.Parallel()

	o := Options{
		"s":  "text",
		"b":  true,
		"n":  float64(42),
		"r":  ";",
		"m":  map[string]any{"a": "b", "bad": 1},
		"ws": " ",
	}

	if got := o.String("s", "d"); got != "text" {
		t.Errorf("String = %q", got)
	}
	if got := o.String("missing", "d"); got != "d" {
		t.Errorf("String default = %q", got)
	}
	if !o.Bool("b", false) {
		t.Error("Bool = false")
	}
	if got := o.Int("n", 0); got != 42 {
		t.Errorf("Int = %d", got)
	}
	if got := o.Int("s", 7); got != 7 {
		t.Errorf("Int wrong-type default = %d", got)
	}
	if got := o.Rune("r", ','); got != ';' {
		t.Errorf("Rune = %q", got)
	}
	m := o.StringMap("m")
	if m["a"] != "b" {
		t.Errorf("StringMap = %v", m)
	}
	if _, ok := m["bad"]; ok {
		t.Error("StringMap kept non-string value")
	}
}

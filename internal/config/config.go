// Package config defines the canonical, JSON-serializable configuration model
// for the ingestion pipeline and the query tooling. It is intentionally small,
// explicit, and dependency-free so that pipelines can be loaded from disk (or
// other sources) and passed through the program without additional glue code.
//
// Design goals:
//
//  1. Stability: Changes to this package should be additive and backwards-
//     compatible whenever possible.
//  2. Clarity: Field names in Go mirror the JSON structure used in pipeline
//     files under configs/*.json.
//  3. Minimalism: No third-party config libraries; decoding is performed by the
//     standard library, with a light Options helper for typed access.
//
// Example (trimmed):
//
//	{
//	  "job":    "retail_eu",
//	  "source": { "kind": "s3", "s3": { "bucket": "raw-sales", "key": "online_retail.csv" } },
//	  "parser": { "options": { "has_header": true, "encoding": "latin1" } },
//	  "store":  { "table": "ecommerce_eu", "region": "eu-west-1", "auto_create_table": true }
//	}
package config

import (
	"encoding/json"
	"fmt"
	"os"
)

// Pipeline describes one full ingestion run. It is the top-level object
// decoded from a pipeline file.
type Pipeline struct {
	// Job names the run; it labels metrics and log lines.
	Job string `json:"job"`

	// Source describes where the raw CSV bytes come from.
	Source Source `json:"source"`

	// Parser configures how raw bytes are turned into records.
	Parser Parser `json:"parser"`

	// Store describes the wide-column store that receives the records and
	// serves the analytical queries.
	Store Store `json:"store"`

	// Runtime controls batching and buffering.
	Runtime RuntimeConfig `json:"runtime"`
}

// RuntimeConfig controls batching, channel buffer sizes, and progress cadence.
type RuntimeConfig struct {
	// BatchSize is the number of items per write batch. The store caps a
	// single batch request at 25 items; larger values are split by the
	// repository.
	BatchSize int `json:"batch_size"`

	// ChannelBuffer sizes the loader's input channel.
	ChannelBuffer int `json:"channel_buffer"`

	// ProgressEvery emits a progress log line after this many records.
	// Zero selects the default of 1000.
	ProgressEvery int `json:"progress_every"`
}

// Source identifies the data source. Additional kinds can be added over time.
type Source struct {
	// Kind selects the source implementation: "file", "s3", or "http".
	Kind string `json:"kind"`

	// File carries options for the "file" source kind.
	File SourceFile `json:"file"`

	// S3 carries options for the "s3" source kind.
	S3 SourceS3 `json:"s3"`

	// HTTP carries options for the "http" source kind.
	HTTP SourceHTTP `json:"http"`
}

// SourceFile holds configuration for the "file" source kind.
type SourceFile struct {
	// Path is the local filesystem path to the input file.
	Path string `json:"path"`
}

// SourceS3 holds configuration for the "s3" source kind. Objects are cached
// on local disk between runs; the cache is keyed by bucket and object key.
type SourceS3 struct {
	Bucket string `json:"bucket"`
	Key    string `json:"key"`

	// CacheDir is the local cache directory. Empty selects "data/cache".
	CacheDir string `json:"cache_dir"`

	// ForceDownload bypasses the cache and re-fetches the object.
	ForceDownload bool `json:"force_download"`
}

// SourceHTTP holds configuration for the "http" source kind. Transient
// failures are retried with exponential backoff.
type SourceHTTP struct {
	// URL is the document to fetch.
	URL string `json:"url"`

	// MaxRetries is the number of retry attempts after the initial request.
	// Zero selects the default.
	MaxRetries int `json:"max_retries"`
}

// Parser selects how to parse the raw source into logical rows/columns.
type Parser struct {
	// Options is a free-form map interpreted by the CSV parser. Typical keys:
	//   has_header (bool), comma (string), trim_space (bool),
	//   encoding (string: "latin1"|"utf8"), header_map (object)
	Options Options `json:"options"`
}

// Store configures the wide-column store sink and query target.
type Store struct {
	// Table is the store's table name (e.g. "ecommerce_eu").
	Table string `json:"table"`

	// Region is the store's region. Empty defers to the environment.
	Region string `json:"region"`

	// Endpoint optionally overrides the store endpoint, e.g. a local
	// emulator at http://localhost:8000. Empty uses the real service.
	Endpoint string `json:"endpoint"`

	// AutoCreateTable creates the table (with its secondary indexes) when it
	// does not exist yet.
	AutoCreateTable bool `json:"auto_create_table"`
}

// Load reads and decodes a pipeline file and applies environment overrides
// (12-factor style): AWS_REGION fills store.region when the file leaves it
// empty, and DYNAMODB_ENDPOINT always overrides store.endpoint.
func Load(path string) (Pipeline, error) {
	var p Pipeline
	f, err := os.Open(path)
	if err != nil {
		return p, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()

	if err := json.NewDecoder(f).Decode(&p); err != nil {
		return p, fmt.Errorf("decode config %s: %w", path, err)
	}
	p.applyEnv()
	return p, nil
}

func (p *Pipeline) applyEnv() {
	if v := os.Getenv("AWS_REGION"); v != "" && p.Store.Region == "" {
		p.Store.Region = v
	}
	if v := os.Getenv("DYNAMODB_ENDPOINT"); v != "" {
		p.Store.Endpoint = v
	}
}

// Options is a small helper to fetch typed values from arbitrary JSON maps
// without introducing third-party configuration libraries. It purposefully
// performs only minimal type coercion and returns provided defaults when a key
// is absent or of an unexpected type.
//
// Options is used for parser-specific configuration where the shape varies by
// implementation.
type Options map[string]any

// String returns the string value for key or def if key is missing or not a string.
func (o Options) String(key, def string) string {
	if v, ok := o[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return def
}

// Bool returns the bool value for key or def if key is missing or not a bool.
func (o Options) Bool(key string, def bool) bool {
	if v, ok := o[key]; ok {
		if b, ok := v.(bool); ok {
			return b
		}
	}
	return def
}

// Int returns the int value for key or def. JSON numbers are decoded as
// float64 by encoding/json, so this method accepts float64 and casts to int.
// If the value is neither float64 nor int, def is returned.
func (o Options) Int(key string, def int) int {
	if v, ok := o[key]; ok {
		switch n := v.(type) {
		case float64:
			return int(n)
		case int:
			return n
		}
	}
	return def
}

// Rune returns the first rune of a string value for key, or def if key is
// missing or empty. This is useful for single-character parser settings such as
// a CSV delimiter.
func (o Options) Rune(key string, def rune) rune {
	if v, ok := o[key]; ok {
		if s, ok := v.(string); ok && len(s) > 0 {
			return []rune(s)[0]
		}
	}
	return def
}

// StringMap returns a map[string]string for key when the value is an object
// whose values are strings. Non-string values are ignored. Returns an empty map
// when the key is missing or the value is not an object.
func (o Options) StringMap(key string) map[string]string {
	res := map[string]string{}
	if v, ok := o[key]; ok {
		if m, ok := v.(map[string]any); ok {
			for k, vv := range m {
				if s, ok := vv.(string); ok {
					res[k] = s
				}
			}
		}
	}
	return res
}

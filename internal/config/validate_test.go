package config

import "testing"

func hasIssue(issues []Issue, sev IssueSeverity, path string) bool {
	for _, i := range issues {
		if i.Severity == sev && i.Path == path {
			return true
		}
	}
	return false
}

// TestValidatePipeline_TableDriven checks the main error and warning paths of
// the static pipeline linter.
func TestValidatePipeline_TableDriven(t *testing.T) {
	t.Parallel()

	valid := Pipeline{
		Job:    "retail_eu",
		Source: Source{Kind: "file", File: SourceFile{Path: "data.csv"}},
		Store:  Store{Table: "ecommerce_eu", Region: "eu-west-1"},
	}

	tests := []struct {
		name     string
		mutate   func(*Pipeline)
		wantSev  IssueSeverity
		wantPath string
	}{
		{
			name:     "missing_job",
			mutate:   func(p *Pipeline) { p.Job = "" },
			wantSev:  SeverityError,
			wantPath: "job",
		},
		{
			name:     "missing_source_kind",
			mutate:   func(p *Pipeline) { p.Source.Kind = "" },
			wantSev:  SeverityError,
			wantPath: "source.kind",
		},
		{
			name:     "file_without_path",
			mutate:   func(p *Pipeline) { p.Source.File.Path = "" },
			wantSev:  SeverityError,
			wantPath: "source.file.path",
		},
		{
			name: "s3_without_bucket",
			mutate: func(p *Pipeline) {
				p.Source = Source{Kind: "s3", S3: SourceS3{Key: "k"}}
			},
			wantSev:  SeverityError,
			wantPath: "source.s3.bucket",
		},
		{
			name: "http_without_url",
			mutate: func(p *Pipeline) {
				p.Source = Source{Kind: "http"}
			},
			wantSev:  SeverityError,
			wantPath: "source.http.url",
		},
		{
			name:     "unknown_source_kind_is_warning",
			mutate:   func(p *Pipeline) { p.Source.Kind = "ftp" },
			wantSev:  SeverityWarning,
			wantPath: "source.kind",
		},
		{
			name:     "missing_table",
			mutate:   func(p *Pipeline) { p.Store.Table = "" },
			wantSev:  SeverityError,
			wantPath: "store.table",
		},
		{
			name:     "no_region_nor_endpoint_is_warning",
			mutate:   func(p *Pipeline) { p.Store.Region = "" },
			wantSev:  SeverityWarning,
			wantPath: "store.region",
		},
		{
			name: "bad_encoding",
			mutate: func(p *Pipeline) {
				p.Parser.Options = Options{"encoding": "ebcdic"}
			},
			wantSev:  SeverityError,
			wantPath: "parser.options.encoding",
		},
		{
			name:     "negative_batch_size",
			mutate:   func(p *Pipeline) { p.Runtime.BatchSize = -1 },
			wantSev:  SeverityError,
			wantPath: "runtime.batch_size",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			p := valid
			tc.mutate(&p)
			issues := ValidatePipeline(p)
			if !hasIssue(issues, tc.wantSev, tc.wantPath) {
				t.Errorf("issues = %v, want %s at %s", issues, tc.wantSev, tc.wantPath)
			}
		})
	}

	if issues := ValidatePipeline(valid); len(issues) != 0 {
		t.Errorf("valid pipeline produced issues: %v", issues)
	}
}

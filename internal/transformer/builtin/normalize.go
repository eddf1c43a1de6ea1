// Package builtin contains the reusable pipeline transformers: whitespace
// normalization, typed cell coercion, economic validation, and composite-key
// aggregation. Transformers run in that order; each one is a pure function of
// its input batch apart from the optional reject sink.
package builtin

import (
	"strings"

	"retailetl/pkg/records"
)

// RejectedRow describes a row dropped by a transformer, for observability.
type RejectedRow struct {
	Raw    records.Record
	Reason string
	Stage  string
}

const nbspace = " "

// Normalize cleans string values in place: NO-BREAK SPACE becomes an ASCII
// space and edge whitespace is trimmed. Non-string values are untouched.
type Normalize struct{}

func (Normalize) Apply(in []records.Record) []records.Record {
	for _, r := range in {
		for k, v := range r {
			if s, ok := v.(string); ok {
				s = strings.TrimSpace(strings.ReplaceAll(s, nbspace, " "))
				r[k] = s
			}
		}
	}
	return in
}

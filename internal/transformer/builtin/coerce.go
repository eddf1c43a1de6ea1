package builtin

import (
	"fmt"
	"log"
	"strconv"
	"time"

	"retailetl/pkg/records"
)

// CellKind declares the parsed type of a column. Cells that fail to parse
// into their declared kind mark the whole row invalid; invalid rows are
// dropped and counted, never fatal.
type CellKind int

const (
	KindText CellKind = iota
	KindInt
	KindFloat
	KindTime
)

// TypeTable declares the expected kind per column. Columns not listed pass
// through as text.
type TypeTable map[string]CellKind

// Coerce converts string cells into their declared types before any business
// logic runs. A row is dropped when any declared column fails to parse.
//
// Columns declared in the table but absent from the input pass through with a
// single warning; an incomplete export reduces the result set downstream but
// never aborts the run.
type Coerce struct {
	Types TypeTable

	// TimeLayouts are tried in order for KindTime columns.
	TimeLayouts []string

	// Reject receives each dropped row. Optional.
	Reject func(RejectedRow)
}

func (c Coerce) Apply(in []records.Record) []records.Record {
	if len(in) == 0 || len(c.Types) == 0 {
		return in
	}

	// Column presence is uniform across one parsed batch, so probing the
	// first row is enough to detect absent columns.
	absent := map[string]bool{}
	for col := range c.Types {
		if _, ok := in[0][col]; !ok {
			absent[col] = true
			log.Printf("coerce: column %q not found in input; passing rows through unchanged", col)
		}
	}

	out := make([]records.Record, 0, len(in))
rows:
	for _, r := range in {
		for col, kind := range c.Types {
			if absent[col] {
				continue
			}
			v := r[col]
			if v == nil {
				// Missing value in a present column: leave nil; required-ness
				// is the validator's concern.
				continue
			}
			s, isStr := v.(string)
			if !isStr {
				continue // already typed
			}
			parsed, err := parseCell(s, kind, c.TimeLayouts)
			if err != nil {
				if c.Reject != nil {
					c.Reject(RejectedRow{Raw: r, Reason: fmt.Sprintf("column %q: %v", col, err), Stage: "coerce"})
				}
				continue rows
			}
			r[col] = parsed
		}
		out = append(out, r)
	}
	return out
}

// parseCell converts one string cell into its declared kind.
func parseCell(s string, kind CellKind, layouts []string) (any, error) {
	switch kind {
	case KindText:
		return s, nil
	case KindInt:
		i, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%q not an int", s)
		}
		return i, nil
	case KindFloat:
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, fmt.Errorf("%q not a number", s)
		}
		return f, nil
	case KindTime:
		for _, layout := range layouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t, nil
			}
		}
		return nil, fmt.Errorf("%q matches no known date layout", s)
	default:
		return nil, fmt.Errorf("unknown cell kind %d", kind)
	}
}

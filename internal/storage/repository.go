package storage

import (
	"context"

	"retailetl/pkg/records"
)

// IndexQuery is an index-scoped access descriptor: the named secondary index
// is walked with Key (partition equality, optionally conjoined with a sort-key
// range), Filter is applied server-side to each page, and Projection trims the
// returned attributes. Results follow the index's own ordering (partition,
// then ascending sort key).
type IndexQuery struct {
	Index      string
	Key        Predicate
	Filter     Predicate
	Projection []string
}

// TableScan is a full-table access descriptor. No ordering is guaranteed; the
// store returns items in arbitrary physical order.
type TableScan struct {
	Filter     Predicate
	Projection []string
}

// Result is the tagged outcome of a paginated read. When Cause is nil the
// result set is complete; otherwise Items holds the pages accumulated before
// the failure and callers must treat the set as a prefix, not a total.
type Result struct {
	Items []records.Record
	Cause error
}

// Complete reports whether the result covers every matching record.
func (r Result) Complete() bool { return r.Cause == nil }

// CompleteResult tags items as a full result set.
func CompleteResult(items []records.Record) Result { return Result{Items: items} }

// PartialResult tags items as a truncated result set with the failure that
// cut it short.
func PartialResult(items []records.Record, cause error) Result {
	return Result{Items: items, Cause: cause}
}

// Reader executes paginated reads against the store, following continuation
// cursors until the store signals exhaustion and materializing all pages.
type Reader interface {
	Query(ctx context.Context, q IndexQuery) Result
	Scan(ctx context.Context, s TableScan) Result
}

// Writer persists finalized records. BulkPut reports the number of records
// written; on error the count covers the records confirmed before the
// failure.
type Writer interface {
	BulkPut(ctx context.Context, recs []records.Record) (int64, error)
}

// Repository is the full store contract the pipeline and the analytical
// queries depend on. There is no package-level default handle: callers thread
// an explicit Repository through every component.
type Repository interface {
	Reader
	Writer
}

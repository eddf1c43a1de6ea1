// Package analytics implements the canned retrievals over the loaded sales
// table: per-country sales, per-customer orders, date-range slices, revenue
// totals, and the projected slices feeding histograms and per-country maps.
//
// Every retrieval returns the storage.Result tag unchanged: a partial result
// (a page failed mid-walk) still carries the rows gathered before the
// failure, and callers decide whether a prefix is usable.
package analytics

import (
	"context"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"retailetl/internal/schema"
	"retailetl/internal/storage"
)

// Engine runs the analytical retrievals against a store reader.
type Engine struct {
	repo storage.Reader
}

// New builds an engine over the given reader.
func New(repo storage.Reader) *Engine {
	return &Engine{repo: repo}
}

// SalesByCountry returns the line items sold into one country, ascending by
// invoice timestamp. A non-zero from/to pair restricts to the closed range
// [from, to]; zero times mean the whole history.
func (e *Engine) SalesByCountry(ctx context.Context, country string, from, to time.Time) storage.Result {
	key := storage.Equals(schema.AttrCountry, country)
	if !from.IsZero() && !to.IsZero() {
		key = storage.AllOf(key, storage.InRange(schema.AttrTimestamp, from, to))
	}
	return e.repo.Query(ctx, storage.IndexQuery{
		Index: schema.CountryIndex,
		Key:   key,
	})
}

// OrdersByCustomer returns every line item bought by one customer, ascending
// by invoice timestamp.
func (e *Engine) OrdersByCustomer(ctx context.Context, customerID string) storage.Result {
	return e.repo.Query(ctx, storage.IndexQuery{
		Index: schema.CustomerIndex,
		Key:   storage.Equals(schema.AttrCustomerID, customerID),
	})
}

// OrdersByDateRange returns the line items invoiced in the closed range
// [from, to] regardless of country or customer. No index covers a bare time
// range, so this walks the whole table with a server-side filter.
func (e *Engine) OrdersByDateRange(ctx context.Context, from, to time.Time) storage.Result {
	return e.repo.Scan(ctx, storage.TableScan{
		Filter:     storage.InRange(schema.AttrTimestamp, from, to),
		Projection: schema.ResultColumns,
	})
}

// RevenueByDate sums total_amount over one calendar day using exact decimal
// arithmetic. The returned result carries the underlying rows and the
// completeness tag; on a partial result the total covers only the gathered
// prefix.
func (e *Engine) RevenueByDate(ctx context.Context, day time.Time) (decimal.Decimal, storage.Result) {
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	end := start.Add(24*time.Hour - time.Second)
	res := e.repo.Scan(ctx, storage.TableScan{
		Filter:     storage.InRange(schema.AttrTimestamp, start, end),
		Projection: []string{schema.AttrInvoiceID, schema.AttrTimestamp, schema.AttrTotalAmount},
	})

	total := decimal.Zero
	for _, rec := range res.Items {
		total = total.Add(amountOf(rec[schema.AttrTotalAmount]))
	}
	return total, res
}

// HistogramSlice returns (country, total_amount) pairs for line items whose
// country is in the given set and whose total lies within the closed amount
// bounds. Pass negative bounds to leave a side open.
func (e *Engine) HistogramSlice(ctx context.Context, countries []string, minAmount, maxAmount float64) storage.Result {
	preds := make([]storage.Predicate, 0, 3)
	if len(countries) > 0 {
		set := make([]any, len(countries))
		for i, c := range countries {
			set[i] = c
		}
		preds = append(preds, storage.OneOf(schema.AttrCountry, set...))
	}
	if minAmount >= 0 {
		preds = append(preds, storage.AtLeast(schema.AttrTotalAmount, minAmount))
	}
	if maxAmount >= 0 {
		preds = append(preds, storage.AtMost(schema.AttrTotalAmount, maxAmount))
	}

	scan := storage.TableScan{
		Projection: []string{schema.AttrCountry, schema.AttrTotalAmount},
	}
	if len(preds) > 0 {
		scan.Filter = storage.AllOf(preds...)
	}
	return e.repo.Scan(ctx, scan)
}

// GeoSlice returns (country, invoice_timestamp, total_amount) triples,
// optionally restricted to the closed range [from, to]. It feeds per-country
// aggregation downstream, so only the three attributes are projected.
func (e *Engine) GeoSlice(ctx context.Context, from, to time.Time) storage.Result {
	scan := storage.TableScan{
		Projection: []string{schema.AttrCountry, schema.AttrTimestamp, schema.AttrTotalAmount},
	}
	if !from.IsZero() && !to.IsZero() {
		scan.Filter = storage.InRange(schema.AttrTimestamp, from, to)
	}
	return e.repo.Scan(ctx, scan)
}

// amountOf rebuilds an exact decimal from a stored amount. Stored numbers
// decode to float64, so the shortest decimal string of the float recovers
// the digits that were written.
func amountOf(v any) decimal.Decimal {
	switch t := v.(type) {
	case float64:
		d, err := decimal.NewFromString(strconv.FormatFloat(t, 'f', -1, 64))
		if err != nil {
			return decimal.Zero
		}
		return d
	case int64:
		return decimal.NewFromInt(t)
	default:
		return decimal.Zero
	}
}

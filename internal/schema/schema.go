// Package schema fixes the canonical attribute names and store schema for the
// invoice-line sales dataset. Every stage of the pipeline and every query
// speaks these names; the raw export's header variants are mapped onto them
// at parse time.
package schema

// Canonical attribute names.
const (
	AttrInvoiceID   = "invoice_id"
	AttrLineItemID  = "line_item_id"
	AttrDescription = "description"
	AttrQuantity    = "quantity"
	AttrTimestamp   = "invoice_timestamp"
	AttrUnitPrice   = "unit_price"
	AttrCustomerID  = "customer_id"
	AttrCountry     = "country"
	AttrTotalAmount = "total_amount"
)

// GuestCustomer is the sentinel stored when a row has no customer. The
// customer index partitions on customer_id, and the store silently omits
// items whose index key attribute is absent, so the sentinel keeps guest
// orders visible to customer queries.
const GuestCustomer = "Guest"

// Secondary index names.
const (
	CountryIndex  = "country-index"
	CustomerIndex = "customer-index"
)

// TimestampLayout is the ISO-8601 form timestamps take inside the store;
// lexicographic order equals chronological order, which the range queries
// rely on.
const TimestampLayout = "2006-01-02T15:04:05"

// RawDateLayouts are accepted invoice date forms in raw exports, tried in
// order. The classic online-retail export uses "M/D/YYYY H:MM".
var RawDateLayouts = []string{
	"1/2/2006 15:04",
	"1/2/2006 15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// DefaultHeaderMap renames normalized raw headers (already lowercased,
// trimmed, underscored) to canonical attribute names.
var DefaultHeaderMap = map[string]string{
	"invoiceno":   AttrInvoiceID,
	"stockcode":   AttrLineItemID,
	"description": AttrDescription,
	"quantity":    AttrQuantity,
	"invoicedate": AttrTimestamp,
	"unitprice":   AttrUnitPrice,
	"customerid":  AttrCustomerID,
	"country":     AttrCountry,
}

// ResultColumns is the uniform shape analytical consumers receive.
var ResultColumns = []string{
	AttrInvoiceID,
	AttrCustomerID,
	AttrCountry,
	AttrTimestamp,
	AttrTotalAmount,
}

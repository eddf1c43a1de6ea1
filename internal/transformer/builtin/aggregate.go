package builtin

import (
	"strings"

	"retailetl/internal/schema"
	"retailetl/pkg/records"
)

// AggregateLines collapses rows sharing one (invoice_id, line_item_id)
// composite key into a single record.
//
// The store enforces uniqueness on invoice_id alone; without this stage a
// later write for the same invoice/line pair would silently overwrite an
// earlier one with partial data. Pre-aggregating removes that race and makes
// loads idempotent.
//
// Within a group, quantity and total_amount are summed; invoice_timestamp,
// country, customer_id, and unit_price come from the first row encountered
// (assumed constant for the same line of the same order — in particular a
// varying unit_price is collapsed to the first one seen). Rows lacking either
// key component are dropped and reported.
//
// A missing customer_id becomes the guest sentinel before keying, so the
// customer index attribute is populated on every stored record. Output order
// is first-encounter order, which keeps runs deterministic.
type AggregateLines struct {
	// Reject receives rows without a usable composite key. Optional.
	Reject func(RejectedRow)
}

func (a AggregateLines) Apply(in []records.Record) []records.Record {
	groups := make(map[string]records.Record, len(in))
	order := make([]string, 0, len(in))

	for _, r := range in {
		fillGuest(r)

		key, ok := compositeKey(r)
		if !ok {
			if a.Reject != nil {
				a.Reject(RejectedRow{Raw: r, Reason: "missing invoice_id or line_item_id", Stage: "aggregate"})
			}
			continue
		}

		head, seen := groups[key]
		if !seen {
			// Clone so summing never mutates the caller's rows.
			groups[key] = r.Clone()
			order = append(order, key)
			continue
		}

		// Sum the additive attributes; everything else keeps the head's value.
		if q, ok := asInt(r[schema.AttrQuantity]); ok {
			hq, _ := asInt(head[schema.AttrQuantity])
			head[schema.AttrQuantity] = hq + q
		}
		if t, ok := asFloat(r[schema.AttrTotalAmount]); ok {
			ht, _ := asFloat(head[schema.AttrTotalAmount])
			head[schema.AttrTotalAmount] = ht + t
		}
	}

	out := make([]records.Record, 0, len(order))
	for _, key := range order {
		out = append(out, groups[key])
	}
	return out
}

// compositeKey builds the (invoice_id, line_item_id) grouping key. Both
// components must be non-empty strings.
func compositeKey(r records.Record) (string, bool) {
	inv, ok := r[schema.AttrInvoiceID].(string)
	if !ok || inv == "" {
		return "", false
	}
	item, ok := r[schema.AttrLineItemID].(string)
	if !ok || item == "" {
		return "", false
	}
	var b strings.Builder
	b.WriteString(inv)
	b.WriteByte('\x1f') // unlikely separator
	b.WriteString(item)
	return b.String(), true
}

// fillGuest replaces a missing or empty customer_id with the guest sentinel.
func fillGuest(r records.Record) {
	switch v := r[schema.AttrCustomerID].(type) {
	case nil:
		r[schema.AttrCustomerID] = schema.GuestCustomer
	case string:
		if v == "" {
			r[schema.AttrCustomerID] = schema.GuestCustomer
		}
	}
}

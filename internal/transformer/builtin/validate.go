package builtin

import (
	"fmt"

	"retailetl/internal/schema"
	"retailetl/pkg/records"
)

// ValidateSales drops economically invalid rows (quantity <= 0 or
// unit_price <= 0; the raw export encodes returns and corrections as negative
// lines) and recomputes total_amount from the validated quantity and price.
//
// The derived amount is never trusted from input: recomputing keeps it
// consistent with the values that survived validation.
//
// When either required column is absent from the batch, validation is a
// pass-through, not a fatal condition.
type ValidateSales struct {
	// Reject receives each dropped row. Optional.
	Reject func(RejectedRow)
}

func (v ValidateSales) Apply(in []records.Record) []records.Record {
	if len(in) == 0 {
		return in
	}
	if _, ok := in[0][schema.AttrQuantity]; !ok {
		return in
	}
	if _, ok := in[0][schema.AttrUnitPrice]; !ok {
		return in
	}

	out := make([]records.Record, 0, len(in))
	for _, r := range in {
		qty, qok := asInt(r[schema.AttrQuantity])
		price, pok := asFloat(r[schema.AttrUnitPrice])
		if !qok || !pok || qty <= 0 || price <= 0 {
			if v.Reject != nil {
				v.Reject(RejectedRow{
					Raw:    r,
					Reason: fmt.Sprintf("non-positive sale: quantity=%v unit_price=%v", r[schema.AttrQuantity], r[schema.AttrUnitPrice]),
					Stage:  "validate",
				})
			}
			continue
		}
		r[schema.AttrTotalAmount] = float64(qty) * price
		out = append(out, r)
	}
	return out
}

func asInt(v any) (int64, bool) {
	switch t := v.(type) {
	case int64:
		return t, true
	case int:
		return int64(t), true
	case float64:
		return int64(t), true
	default:
		return 0, false
	}
}

func asFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case int64:
		return float64(t), true
	case int:
		return float64(t), true
	default:
		return 0, false
	}
}

package builtin

import (
	"testing"

	"retailetl/internal/schema"
	"retailetl/pkg/records"
)

// TestValidateSales_DropsNonPositive covers the exclusion rule: for all rows
// with non-positive quantity or price, no record survives validation.
func TestValidateSales_DropsNonPositive(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		qty   any
		price any
		kept  bool
	}{
		{"positive_sale", int64(2), 5.0, true},
		{"zero_quantity", int64(0), 5.0, false},
		{"negative_quantity_return_line", int64(-3), 5.0, false},
		{"zero_price", int64(2), 0.0, false},
		{"negative_price_correction", int64(2), -1.5, false},
		{"missing_quantity_value", nil, 5.0, false},
		{"untyped_quantity", "2", 5.0, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			var rejected int
			v := ValidateSales{Reject: func(RejectedRow) { rejected++ }}
			in := []records.Record{{
				schema.AttrQuantity:  tc.qty,
				schema.AttrUnitPrice: tc.price,
			}}
			out := v.Apply(in)
			if kept := len(out) == 1; kept != tc.kept {
				t.Fatalf("kept = %v, want %v", kept, tc.kept)
			}
			if !tc.kept && rejected != 1 {
				t.Errorf("rejected = %d, want 1", rejected)
			}
		})
	}
}

// TestValidateSales_RecomputesTotal confirms total_amount is always derived
// from the validated quantity and price, ignoring any incoming value.
func TestValidateSales_RecomputesTotal(t *testing.T) {
	t.Parallel()

	in := []records.Record{{
		schema.AttrQuantity:    int64(3),
		schema.AttrUnitPrice:   2.5,
		schema.AttrTotalAmount: 999.0, // must be ignored
	}}
	out := ValidateSales{}.Apply(in)
	if got := out[0][schema.AttrTotalAmount]; got != 7.5 {
		t.Errorf("total_amount = %v, want 7.5", got)
	}
}

// TestValidateSales_AbsentColumnsPassThrough: when either required column is
// missing from the batch, validation is a no-op, not a fatal condition.
func TestValidateSales_AbsentColumnsPassThrough(t *testing.T) {
	t.Parallel()

	in := []records.Record{{schema.AttrCountry: "Spain"}}
	out := ValidateSales{}.Apply(in)
	if len(out) != 1 {
		t.Fatalf("rows = %d, want 1", len(out))
	}
}

package builtin

import (
	"testing"
	"time"

	"retailetl/internal/schema"
	"retailetl/pkg/records"
)

// TestCoerceApply_TypedCells verifies string cells parse into their declared
// kinds and already-typed or nil cells pass through.
func TestCoerceApply_TypedCells(t *testing.T) {
	t.Parallel()

	c := Coerce{
		Types: TypeTable{
			schema.AttrQuantity:  KindInt,
			schema.AttrUnitPrice: KindFloat,
			schema.AttrTimestamp: KindTime,
		},
		TimeLayouts: schema.RawDateLayouts,
	}
	in := []records.Record{{
		schema.AttrQuantity:  "6",
		schema.AttrUnitPrice: "2.55",
		schema.AttrTimestamp: "12/1/2010 8:26",
		schema.AttrCountry:   "France",
	}}

	out := c.Apply(in)
	if len(out) != 1 {
		t.Fatalf("rows = %d, want 1", len(out))
	}
	r := out[0]
	if got := r[schema.AttrQuantity]; got != int64(6) {
		t.Errorf("quantity = %v (%T)", got, got)
	}
	if got := r[schema.AttrUnitPrice]; got != 2.55 {
		t.Errorf("unit_price = %v", got)
	}
	ts, ok := r[schema.AttrTimestamp].(time.Time)
	if !ok {
		t.Fatalf("timestamp = %T, want time.Time", r[schema.AttrTimestamp])
	}
	want := time.Date(2010, 12, 1, 8, 26, 0, 0, time.UTC)
	if !ts.Equal(want) {
		t.Errorf("timestamp = %v, want %v", ts, want)
	}
}

// TestCoerceApply_DropsUnparseableRows checks the row-level drop semantics:
// any declared column failing to parse drops the whole row, with a reject
// report, never an error.
func TestCoerceApply_DropsUnparseableRows(t *testing.T) {
	t.Parallel()

	var rejected []RejectedRow
	c := Coerce{
		Types:       TypeTable{schema.AttrTimestamp: KindTime, schema.AttrQuantity: KindInt},
		TimeLayouts: schema.RawDateLayouts,
		Reject:      func(r RejectedRow) { rejected = append(rejected, r) },
	}
	in := []records.Record{
		{schema.AttrTimestamp: "12/1/2010 8:26", schema.AttrQuantity: "2"},
		{schema.AttrTimestamp: "not a date", schema.AttrQuantity: "2"},
		{schema.AttrTimestamp: "12/1/2010 8:26", schema.AttrQuantity: "two"},
	}

	out := c.Apply(in)
	if len(out) != 1 {
		t.Fatalf("rows = %d, want 1", len(out))
	}
	if len(rejected) != 2 {
		t.Fatalf("rejected = %d, want 2", len(rejected))
	}
	for _, r := range rejected {
		if r.Stage != "coerce" {
			t.Errorf("stage = %q", r.Stage)
		}
	}
}

// TestCoerceApply_AbsentColumnPassThrough verifies a declared column missing
// from the batch does not drop rows or raise.
func TestCoerceApply_AbsentColumnPassThrough(t *testing.T) {
	t.Parallel()

	c := Coerce{Types: TypeTable{schema.AttrTimestamp: KindTime}, TimeLayouts: schema.RawDateLayouts}
	in := []records.Record{{"a": "1"}, {"a": "2"}}
	out := c.Apply(in)
	if len(out) != 2 {
		t.Fatalf("rows = %d, want 2 (pass-through)", len(out))
	}
}

// TestCoerceApply_NilCellsKept leaves missing values alone; required-ness is
// decided later.
func TestCoerceApply_NilCellsKept(t *testing.T) {
	t.Parallel()

	c := Coerce{Types: TypeTable{schema.AttrQuantity: KindInt}}
	in := []records.Record{{schema.AttrQuantity: nil}}
	out := c.Apply(in)
	if len(out) != 1 || out[0][schema.AttrQuantity] != nil {
		t.Errorf("out = %v", out)
	}
}

// Package records defines the dynamic row representation shared by the
// parser, transformer, and storage layers.
package records

// Record is one logical row keyed by canonical attribute name. Values hold
// native Go types while records move through the pipeline (string, int,
// float64, time.Time, nil); conversion to the storage engine's attribute
// representation happens only at the write boundary.
type Record map[string]any

// Clone returns a shallow copy of r. Values are shared; the map itself is new.
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

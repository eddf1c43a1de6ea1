// Package storage contains storage-agnostic contracts and utilities: the
// predicate tree used to describe matches, the tagged result type returned by
// reads, the repository interfaces, and a generic batched loader.
//
// Nothing in this package touches the network; concrete store backends live in
// subpackages (currently dynamo) and translate these contracts into their own
// wire shapes.
package storage

// Predicate describes which records match, never how they are found. The
// access path (index query vs table scan) is chosen by the caller of the
// repository based on which attributes appear in the predicate and which
// indexes exist.
//
// Predicates are immutable value trees; constructors copy their inputs.
type Predicate interface{ isPredicate() }

// Eq matches records whose attribute equals the value.
type Eq struct {
	Attr  string
	Value any
}

// Between matches records whose attribute lies in the closed interval
// [Low, High].
type Between struct {
	Attr      string
	Low, High any
}

// GTE matches records whose attribute is >= Value.
type GTE struct {
	Attr  string
	Value any
}

// LTE matches records whose attribute is <= Value.
type LTE struct {
	Attr  string
	Value any
}

// And matches records satisfying every child predicate.
type And struct{ Preds []Predicate }

// Or matches records satisfying at least one child predicate.
type Or struct{ Preds []Predicate }

func (Eq) isPredicate()      {}
func (Between) isPredicate() {}
func (GTE) isPredicate()     {}
func (LTE) isPredicate()     {}
func (And) isPredicate()     {}
func (Or) isPredicate()      {}

// Equals builds an equality leaf.
func Equals(attr string, value any) Predicate { return Eq{Attr: attr, Value: value} }

// InRange builds a closed-interval leaf.
func InRange(attr string, low, high any) Predicate {
	return Between{Attr: attr, Low: low, High: high}
}

// AtLeast builds a >= leaf.
func AtLeast(attr string, value any) Predicate { return GTE{Attr: attr, Value: value} }

// AtMost builds a <= leaf.
func AtMost(attr string, value any) Predicate { return LTE{Attr: attr, Value: value} }

// AllOf conjoins predicates. A single operand is returned unwrapped.
func AllOf(preds ...Predicate) Predicate {
	if len(preds) == 1 {
		return preds[0]
	}
	return And{Preds: append([]Predicate(nil), preds...)}
}

// AnyOf disjoins predicates. A single operand is returned unwrapped.
func AnyOf(preds ...Predicate) Predicate {
	if len(preds) == 1 {
		return preds[0]
	}
	return Or{Preds: append([]Predicate(nil), preds...)}
}

// OneOf matches records whose attribute equals any of the values; it is the
// disjunction form used for discrete sets such as country lists.
func OneOf(attr string, values ...any) Predicate {
	preds := make([]Predicate, len(values))
	for i, v := range values {
		preds[i] = Eq{Attr: attr, Value: v}
	}
	return AnyOf(preds...)
}

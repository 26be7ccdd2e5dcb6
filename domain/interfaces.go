// Package domain contains the interfaces and option types shared by the
// selector compiler and matcher core: the document model, the injected
// value comparator and geo library, and the compiled matcher surface. It
// defines the ports; adapter/* packages provide the concrete implementations.
package domain

import (
	"iter"
)

// Comparer is the injected value comparator (C1): typed equality, ordered
// comparison, and BSON type-code extraction over document values.
type Comparer interface {
	// DeepEquals reports extended-JSON equality: regex equality compares
	// pattern+flags, binary blobs compare bytewise, null/undefined compare
	// equal to each other for this predicate.
	DeepEquals(a, b any) bool
	// Compare returns -1, 0 or 1. Only ever called by consumers on two
	// values sharing the same Type() code.
	Compare(a, b any) (int, error)
	// Type returns the BSON type code for v.
	Type(v any) int
	// IsBinary reports whether v is a binary blob value.
	IsBinary(v any) bool
	// Clone returns a structural deep copy of v.
	Clone(v any) any
}

// Geo is the injected geo library (C8): coordinate-pair distance and GeoJSON
// point/geometry distance predicates.
type Geo interface {
	// PointDistance returns the geodesic distance, in meters, between two
	// GeoJSON points.
	PointDistance(p, q any) (float64, error)
	// GeometryWithinRadius reports whether geom falls within radius of
	// center (a coarse boolean test, used only to rank non-point
	// candidates for $near).
	GeometryWithinRadius(geom, center any, radius float64) (bool, error)
	// PairDistance returns the Euclidean distance between two 2-element
	// numeric coordinate pairs.
	PairDistance(a, b [2]float64) float64
}

// Document is a recursively-nested mapping from string keys to values, the
// unit the matcher core operates on.
type Document interface {
	// ID returns the value of the document's _id field, or nil.
	ID() any
	// D returns the subdocument for the given key, if any.
	D(string) Document
	// Get returns the value under the given key, or nil if unset.
	Get(string) any
	// Iter returns an unordered sequence of key-value pairs in the document.
	Iter() iter.Seq2[string, any]
	// Keys returns an unordered sequence of keys in the document.
	Keys() iter.Seq[string]
	// Values returns an unordered sequence of values in the document.
	Values() iter.Seq[any]
	// Has reports whether a value is set under the given key.
	Has(string) bool
	// Len returns the number of set fields in the document.
	Len() int
}

// DocumentFactory constructs a [Document] from a struct, map, or existing
// Document. Used wherever the matcher core needs to treat a raw operand
// (e.g. an $elemMatch sub-selector operand, or a query literal) uniformly
// as a Document.
type DocumentFactory = func(any) (Document, error)

// FieldLookup is the path lookup engine (C2): resolves a dotted field path
// against a document, producing every branch the path reaches.
type FieldLookup interface {
	// Lookup resolves path (already split on ".") against doc, following
	// the branching rules of spec §4.2. forSort suppresses implicit
	// branching when the next path part is numeric (sort-key mode).
	Lookup(doc any, path []string, forSort bool) []Branch
}

// Matcher is a compiled selector: a pure function from a document to a
// [MatchResult].
type Matcher interface {
	// DocumentMatches applies the compiled selector to doc.
	DocumentMatches(doc any) (MatchResult, error)
	// HasGeoQuery reports whether the selector contains a $near clause.
	HasGeoQuery() bool
	// HasWhere reports whether the selector contains a $where clause.
	HasWhere() bool
	// IsSimple reports whether the selector uses only implicit equality and
	// scalar-operand comparison operators (spec §3 invariant 3).
	IsSimple() bool
	// Paths returns the field paths referenced at the top level of the
	// selector, plus the empty-string sentinel iff HasWhere().
	Paths() []string
}


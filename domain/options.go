package domain

// CompileOption configures a compiled [Matcher] through the functional
// options pattern used throughout this project's lineage (see the root
// package's WithXxx constructors).
type CompileOption func(*CompileOptions)

// CompileOptions holds the injected collaborators a selector is compiled
// against. Sensible defaults are supplied by the matcher package if a given
// field is left nil.
type CompileOptions struct {
	// DocumentFactory builds a Document from a raw map/struct operand, used
	// for $elemMatch document-shaped operands and for _id shorthand cloning.
	DocumentFactory DocumentFactory
	// Comparer provides deep equality, ordered comparison, and type-code
	// extraction over document values (C1).
	Comparer Comparer
	// Geo provides coordinate and GeoJSON distance primitives (C8), used
	// only when the selector contains a $near clause.
	Geo Geo
}

// WithDocumentFactory sets the document factory used to coerce raw
// operands into [Document] values during compilation and matching.
func WithDocumentFactory(d DocumentFactory) CompileOption {
	return func(co *CompileOptions) {
		co.DocumentFactory = d
	}
}

// WithComparer sets the value comparator (C1) a compiled matcher uses.
func WithComparer(c Comparer) CompileOption {
	return func(co *CompileOptions) {
		co.Comparer = c
	}
}

// WithGeo sets the geo primitives library (C8) a compiled matcher uses for
// $near clauses.
func WithGeo(g Geo) CompileOption {
	return func(co *CompileOptions) {
		co.Geo = g
	}
}

// Package marsdb provides the selector compiler and matcher core of an
// in-memory document query engine modeled on the MongoDB query language:
// given a declarative selector, [Compile] produces a [domain.Matcher] that
// decides whether a document satisfies it and reports the array indices
// traversed and, for geo queries, a distance.
//
// The surrounding collection, query planner, indexes, update engine, sort
// key generator, and persistence are out of this package's scope (spec
// §1); they are expected to consume a compiled [domain.Matcher] and
// [MakeLookupFunction] as injected collaborators.
package marsdb

import (
	"strings"

	"github.com/eyalvardi/marsdb/adapter/matcher"
	"github.com/eyalvardi/marsdb/adapter/pathlookup"
	"github.com/eyalvardi/marsdb/domain"
)

// Re-exported so callers depending only on the root package still get typed
// compile errors without reaching into domain directly.
type (
	ErrInvalidSelectorShape = domain.ErrInvalidSelectorShape
	ErrUnknownOperator      = domain.ErrUnknownOperator
	ErrOperatorOperandType  = domain.ErrOperatorOperandType
	ErrOperatorContext      = domain.ErrOperatorContext
	ErrInvalidDocument      = domain.ErrInvalidDocument
)

// CompileOption configures a compiled [domain.Matcher]. See
// [WithDocumentFactory], [WithComparer], and [WithGeo].
type CompileOption = domain.CompileOption

// Predicate is a trusted, typed callable selector — also accepted as a
// $where operand.
type Predicate = matcher.Predicate

// WithDocumentFactory sets the document factory used to coerce raw
// operands (struct/map literals) into [domain.Document] values during
// compilation and matching. Defaults to [adapter/data.NewDocument].
func WithDocumentFactory(d domain.DocumentFactory) CompileOption {
	return domain.WithDocumentFactory(d)
}

// WithComparer sets the value comparator (C1) a compiled matcher uses.
// Defaults to [adapter/comparer.New].
func WithComparer(c domain.Comparer) CompileOption {
	return domain.WithComparer(c)
}

// WithGeo sets the geo primitives library (C8) a compiled matcher uses for
// $near clauses. Defaults to [adapter/geo.New].
func WithGeo(g domain.Geo) CompileOption {
	return domain.WithGeo(g)
}

// Compile validates and compiles selector into an executable [domain.Matcher]
// (spec §4.9, C7).
func Compile(selector any, opts ...CompileOption) (domain.Matcher, error) {
	return matcher.Compile(selector, opts...)
}

// MakeLookupFunction returns a function resolving path (a dotted field
// path, e.g. "a.b.0.c") against a document with the path lookup engine's
// (C2) exact branching semantics. forSort suppresses implicit array
// branching when the next path part is numeric, the mode an external
// sort-key generator needs (spec §6).
func MakeLookupFunction(path string, forSort bool) func(doc any) []domain.Branch {
	var parts []string
	if path != "" {
		parts = strings.Split(path, ".")
	}
	return func(doc any) []domain.Branch {
		return pathlookup.Lookup(doc, parts, forSort)
	}
}

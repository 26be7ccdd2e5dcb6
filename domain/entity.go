package domain

// IndexStep is one element of a [Branch]'s ArrayIndices sequence. Explicit
// steps come from a dotted-path segment that was itself a numeric array
// index ("a.0.b"); implicit steps come from branching across every element
// of an array found along the path. The distinction exists solely so that
// an external sort-key generator can tell them apart; the matcher core
// itself treats both uniformly.
type IndexStep struct {
	Index    int
	Explicit bool
}

// Branch is one candidate value reached while resolving a dotted path
// against a document, tagged with the array indices traversed to reach it.
type Branch struct {
	// Value is the resolved value. Defined is false when the path pointed at
	// an absent key or ran into a non-container value before its last part
	// ("undefined"). An out-of-range array index yields no branch at all.
	Value   any
	Defined bool
	// ArrayIndices records every array index walked to reach Value.
	ArrayIndices []IndexStep
	// DontIterate is set when the path ended with an explicit numeric index
	// into an array whose element is itself an array: branch expansion must
	// not flatten it further.
	DontIterate bool
}

// MatchResult is the outcome of applying a compiled matcher, or any of its
// internal branched/document layers, to a value or document.
type MatchResult struct {
	Matched      bool
	ArrayIndices []IndexStep
	Distance     *float64
}

// Erased returns a copy with ArrayIndices and Distance dropped. Invariant:
// whenever a composition layer's overall result is false, no metadata from
// its children survives.
func (r MatchResult) Erased() MatchResult {
	return MatchResult{Matched: r.Matched}
}

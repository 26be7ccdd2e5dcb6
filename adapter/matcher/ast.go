package matcher

import "github.com/eyalvardi/marsdb/domain"

// Kind tags the variant a compiled [Node] represents — the tagged AST of
// spec §9 ("closures → tagged variants"), interpreted by matchDocument and
// matchBranched instead of a tree of closures.
type Kind uint8

const (
	KindAnd Kind = iota
	KindOr
	KindNor
	KindWhere
	KindComment
	KindFieldPath
	KindCallable
	KindNothingMatches
	KindEverythingMatches

	KindEquality
	KindRegex
	KindRange
	KindIn
	KindMod
	KindSize
	KindType
	KindExists
	KindElemMatchDoc
	KindElemMatchBranched
	KindNot
	KindNe
	KindNin
	KindAll
	KindNear
	KindAndBranched
)

// RangeOp identifies which of $lt/$lte/$gt/$gte a KindRange node applies.
type RangeOp uint8

const (
	RangeLt RangeOp = iota
	RangeLte
	RangeGt
	RangeGte
)

// NearSpec holds a compiled $near clause (spec §4.6).
type NearSpec struct {
	GeoJSON     bool
	Geometry    any
	Point       any
	MaxDistance float64
}

// Node is the single compiled-AST type for every selector construct. Only
// the fields relevant to Kind are populated; the rest are zero.
type Node struct {
	Kind Kind

	// KindAnd / KindOr / KindNor: document-level children.
	// KindAndBranched / KindAll: branched-level children.
	Children []*Node

	// KindFieldPath
	Path  []string
	Inner *Node // a branched-kind node applied to the branches at Path

	// KindWhere / KindCallable
	Predicate func(doc any) (bool, error)

	// Element-level operand of Equality and Range (also of each Equality
	// element inside In/All), and the wanted bool of Exists. Mod, Size and
	// Type keep their operands in the dedicated fields below.
	Operand any
	Regex   *domain.Regex
	RangeOp RangeOp

	ModDivisor   float64
	ModRemainder float64
	SizeWant     int
	TypeCode     int

	Elements []*Node // KindIn: compiled element matchers, ORed ($nin wraps a KindIn node in Positive)

	// KindElemMatchDoc / KindElemMatchBranched
	ElemChild *Node

	// KindNot / KindNe / KindNin: the positive matcher being inverted.
	Positive *Node

	// KindNear
	Near *NearSpec

	// NoExpand requests dontExpandLeafArrays (spec §4.5): C3/Expand is
	// skipped entirely and the element matcher runs directly against each
	// branch's raw value ($size, $elemMatch).
	NoExpand bool
	// SkipArrays requests dontIncludeLeafArrays: C3/Expand still runs, but
	// with skipArrays=true so a leaf array's own branch is dropped in favor
	// of its per-element branches ($type).
	SkipArrays bool
}

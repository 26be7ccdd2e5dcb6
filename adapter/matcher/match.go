package matcher

import (
	"fmt"
	"math"

	"github.com/eyalvardi/marsdb/adapter/pathlookup"
	"github.com/eyalvardi/marsdb/domain"
)

// matchContext carries the injected collaborators through one
// DocumentMatches call — nothing here is mutated during matching.
type matchContext struct {
	cmp        domain.Comparer
	geo        domain.Geo
	docFactory domain.DocumentFactory
}

// matchDocument interprets a document-level [Node] against doc (spec §4.7).
func matchDocument(ctx *matchContext, n *Node, doc any) (domain.MatchResult, error) {
	switch n.Kind {
	case KindEverythingMatches:
		return domain.MatchResult{Matched: true}, nil
	case KindNothingMatches:
		return domain.MatchResult{}, nil
	case KindCallable, KindWhere:
		ok, err := n.Predicate(doc)
		if err != nil {
			return domain.MatchResult{}, err
		}
		return domain.MatchResult{Matched: ok}, nil
	case KindAnd:
		return matchAndDocument(ctx, n.Children, doc)
	case KindOr:
		return matchOrDocument(ctx, n.Children, doc)
	case KindNor:
		return matchNorDocument(ctx, n.Children, doc)
	case KindFieldPath:
		branches := pathlookup.Lookup(doc, n.Path, false)
		return matchBranched(ctx, n.Inner, branches)
	default:
		return domain.MatchResult{}, fmt.Errorf("matchDocument: unexpected node kind %d", n.Kind)
	}
}

// matchAndDocument is the document-layer half of the "unified AND" of spec
// §4.7: short-circuits on the first failing child, and on overall success
// propagates the first Distance and the last non-empty ArrayIndices seen.
func matchAndDocument(ctx *matchContext, children []*Node, doc any) (domain.MatchResult, error) {
	var firstDist *float64
	var lastIdx []domain.IndexStep
	for _, c := range children {
		r, err := matchDocument(ctx, c, doc)
		if err != nil {
			return domain.MatchResult{}, err
		}
		if !r.Matched {
			return domain.MatchResult{}, nil
		}
		if firstDist == nil && r.Distance != nil {
			firstDist = r.Distance
		}
		if len(r.ArrayIndices) > 0 {
			lastIdx = r.ArrayIndices
		}
	}
	return domain.MatchResult{Matched: true, ArrayIndices: lastIdx, Distance: firstDist}, nil
}

func matchOrDocument(ctx *matchContext, children []*Node, doc any) (domain.MatchResult, error) {
	for _, c := range children {
		r, err := matchDocument(ctx, c, doc)
		if err != nil {
			return domain.MatchResult{}, err
		}
		if r.Matched {
			return domain.MatchResult{Matched: true}, nil
		}
	}
	return domain.MatchResult{}, nil
}

func matchNorDocument(ctx *matchContext, children []*Node, doc any) (domain.MatchResult, error) {
	for _, c := range children {
		r, err := matchDocument(ctx, c, doc)
		if err != nil {
			return domain.MatchResult{}, err
		}
		if r.Matched {
			return domain.MatchResult{}, nil
		}
	}
	return domain.MatchResult{Matched: true}, nil
}

// matchBranched interprets a branched-level [Node] against a sequence of
// resolved branches (spec §4.5).
func matchBranched(ctx *matchContext, n *Node, branches []domain.Branch) (domain.MatchResult, error) {
	switch n.Kind {
	case KindEverythingMatches:
		return domain.MatchResult{Matched: true}, nil
	case KindNothingMatches:
		return domain.MatchResult{}, nil
	case KindAndBranched, KindAll:
		return matchAndBranched(ctx, n.Children, branches)
	case KindNot:
		r, err := matchBranched(ctx, n.Positive, branches)
		if err != nil {
			return domain.MatchResult{}, err
		}
		return domain.MatchResult{Matched: !r.Matched}, nil
	case KindNe, KindNin:
		r, err := matchBranched(ctx, n.Positive, branches)
		if err != nil {
			return domain.MatchResult{}, err
		}
		return domain.MatchResult{Matched: !r.Matched}, nil
	case KindExists:
		return matchExists(n, branches)
	case KindNear:
		return matchNear(ctx, n, branches)
	case KindElemMatchDoc, KindElemMatchBranched, KindEquality, KindRegex, KindRange, KindIn, KindMod, KindSize, KindType:
		return liftElement(ctx, n, branches)
	default:
		return domain.MatchResult{}, fmt.Errorf("matchBranched: unexpected node kind %d", n.Kind)
	}
}

// matchAndBranched is the branched-layer half of the "unified AND", shared
// by $all and by a field value with multiple top-level operators.
func matchAndBranched(ctx *matchContext, children []*Node, branches []domain.Branch) (domain.MatchResult, error) {
	switch len(children) {
	case 0:
		return domain.MatchResult{Matched: true}, nil
	case 1:
		return matchBranched(ctx, children[0], branches)
	}
	var firstDist *float64
	var lastIdx []domain.IndexStep
	for _, c := range children {
		r, err := matchBranched(ctx, c, branches)
		if err != nil {
			return domain.MatchResult{}, err
		}
		if !r.Matched {
			return domain.MatchResult{}, nil
		}
		if firstDist == nil && r.Distance != nil {
			firstDist = r.Distance
		}
		if len(r.ArrayIndices) > 0 {
			lastIdx = r.ArrayIndices
		}
	}
	return domain.MatchResult{Matched: true, ArrayIndices: lastIdx, Distance: firstDist}, nil
}

// liftElement implements C5's generic element-matcher wrapping (spec §4.5).
// NoExpand (dontExpandLeafArrays) skips C3/Expand entirely and matches
// directly against each branch's raw value, so $size/$elemMatch still see
// the array itself rather than its flattened elements. Otherwise branches
// are expanded via C3, respecting SkipArrays (dontIncludeLeafArrays).
func liftElement(ctx *matchContext, n *Node, branches []domain.Branch) (domain.MatchResult, error) {
	if n.NoExpand {
		for _, b := range branches {
			ok, idx, hasIdx, err := matchElement(ctx, n, b.Value, b.Defined)
			if err != nil {
				return domain.MatchResult{}, err
			}
			if !ok {
				continue
			}
			indices := b.ArrayIndices
			if len(indices) == 0 && hasIdx {
				indices = []domain.IndexStep{{Index: idx, Explicit: false}}
			}
			return domain.MatchResult{Matched: true, ArrayIndices: indices}, nil
		}
		return domain.MatchResult{}, nil
	}

	expanded := pathlookup.Expand(branches, n.SkipArrays)
	for _, eb := range expanded {
		ok, idx, hasIdx, err := matchElement(ctx, n, eb.Value, eb.Defined)
		if err != nil {
			return domain.MatchResult{}, err
		}
		if !ok {
			continue
		}
		indices := eb.ArrayIndices
		if len(indices) == 0 && hasIdx {
			indices = []domain.IndexStep{{Index: idx, Explicit: false}}
		}
		return domain.MatchResult{Matched: true, ArrayIndices: indices}, nil
	}
	return domain.MatchResult{}, nil
}

// matchElement implements C4: single-value element predicates. The bool
// return reports the match; idx/hasIdx carry $elemMatch's matched-element
// index (spec §4.4's "element matchers may return a number instead of a
// boolean").
func matchElement(ctx *matchContext, n *Node, value any, defined bool) (ok bool, idx int, hasIdx bool, err error) {
	switch n.Kind {
	case KindEquality:
		if n.Operand == nil {
			return !defined || value == nil, 0, false, nil
		}
		v := value
		if !defined {
			v = nil
		}
		return ctx.cmp.DeepEquals(v, n.Operand), 0, false, nil

	case KindRegex:
		return matchRegexElement(n.Regex, value, defined)

	case KindRange:
		return matchRangeElement(ctx, n, value, defined)

	case KindIn:
		for _, el := range n.Elements {
			hit, _, _, err := matchElement(ctx, el, value, defined)
			if err != nil {
				return false, 0, false, err
			}
			if hit {
				return true, 0, false, nil
			}
		}
		return false, 0, false, nil

	case KindMod:
		if !defined {
			return false, 0, false, nil
		}
		num, ok := asFloatValue(value)
		if !ok {
			return false, 0, false, nil
		}
		return math.Mod(num, n.ModDivisor) == n.ModRemainder, 0, false, nil

	case KindSize:
		if !defined {
			return false, 0, false, nil
		}
		arr, ok := value.([]any)
		if !ok {
			return false, 0, false, nil
		}
		return len(arr) == n.SizeWant, 0, false, nil

	case KindType:
		if !defined {
			return false, 0, false, nil
		}
		return ctx.cmp.Type(value) == n.TypeCode, 0, false, nil

	case KindElemMatchDoc, KindElemMatchBranched:
		return matchElemMatch(ctx, n, value, defined)

	default:
		return false, 0, false, fmt.Errorf("matchElement: unexpected node kind %d", n.Kind)
	}
}

func matchRegexElement(re *domain.Regex, value any, defined bool) (bool, int, bool, error) {
	if !defined {
		return false, 0, false, nil
	}
	switch v := value.(type) {
	case string:
		ok, err := re.MatchString(v)
		return ok, 0, false, err
	case *domain.Regex:
		return re.Equal(v), 0, false, nil
	default:
		return false, 0, false, nil
	}
}

func matchRangeElement(ctx *matchContext, n *Node, value any, defined bool) (bool, int, bool, error) {
	if _, isArr := n.Operand.([]any); isArr {
		return false, 0, false, nil
	}
	v := value
	if !defined {
		v = nil
	}
	if ctx.cmp.Type(v) != ctx.cmp.Type(n.Operand) {
		return false, 0, false, nil
	}
	c, err := ctx.cmp.Compare(v, n.Operand)
	if err != nil {
		return false, 0, false, err
	}
	switch n.RangeOp {
	case RangeLt:
		return c < 0, 0, false, nil
	case RangeLte:
		return c <= 0, 0, false, nil
	case RangeGt:
		return c > 0, 0, false, nil
	case RangeGte:
		return c >= 0, 0, false, nil
	default:
		return false, 0, false, nil
	}
}

// matchElemMatch implements spec §4.4.1: iterate the candidate array's
// elements in order, applying either the branched matcher (to a synthetic
// single-element branch) or the document matcher (looking up ElemChild's
// field paths directly against the element), and report the first hit.
func matchElemMatch(ctx *matchContext, n *Node, value any, defined bool) (bool, int, bool, error) {
	if !defined {
		return false, 0, false, nil
	}
	arr, ok := value.([]any)
	if !ok {
		return false, 0, false, nil
	}
	for i, e := range arr {
		var matched bool
		var err error
		if n.Kind == KindElemMatchBranched {
			var r domain.MatchResult
			r, err = matchBranched(ctx, n.ElemChild, []domain.Branch{{Value: e, Defined: true, DontIterate: true}})
			matched = r.Matched
		} else {
			var r domain.MatchResult
			r, err = matchDocument(ctx, n.ElemChild, e)
			matched = r.Matched
		}
		if err != nil {
			return false, 0, false, err
		}
		if matched {
			return true, i, true, nil
		}
	}
	return false, 0, false, nil
}

// matchExists implements spec §4.5's $exists: existence is answered by the
// pre-expansion branches' Defined flags, since array-leaf expansion is
// irrelevant to "is the field present".
func matchExists(n *Node, branches []domain.Branch) (domain.MatchResult, error) {
	want, _ := n.Operand.(bool)
	var found *domain.Branch
	for i := range branches {
		if branches[i].Defined {
			found = &branches[i]
			break
		}
	}
	if (found != nil) != want {
		return domain.MatchResult{}, nil
	}
	if want && found != nil {
		return domain.MatchResult{Matched: true, ArrayIndices: found.ArrayIndices}, nil
	}
	return domain.MatchResult{Matched: true}, nil
}

// matchNear implements spec §4.6: always fully expand branches, compute a
// distance per candidate, and track the strictly-smallest in-range one.
func matchNear(ctx *matchContext, n *Node, branches []domain.Branch) (domain.MatchResult, error) {
	expanded := pathlookup.Expand(branches, false)

	haveBest := false
	var bestDist float64
	var bestIdx []domain.IndexStep

	for _, eb := range expanded {
		d, ok, err := nearDistance(ctx, n.Near, eb.Value)
		if err != nil {
			return domain.MatchResult{}, err
		}
		if !ok || d > n.Near.MaxDistance {
			continue
		}
		if !haveBest || d < bestDist {
			haveBest = true
			bestDist = d
			bestIdx = eb.ArrayIndices
		}
	}
	if !haveBest {
		return domain.MatchResult{}, nil
	}
	dist := bestDist
	return domain.MatchResult{Matched: true, ArrayIndices: bestIdx, Distance: &dist}, nil
}

func nearDistance(ctx *matchContext, spec *NearSpec, candidate any) (float64, bool, error) {
	if spec.GeoJSON {
		geomCandidate := ctx.asGeoValue(candidate)
		geometry := ctx.asGeoValue(spec.Geometry)

		if geoJSONType(geomCandidate) == "Point" {
			d, err := ctx.geo.PointDistance(geomCandidate, geometry)
			if err != nil {
				return 0, false, nil
			}
			return d, true, nil
		}
		within, err := ctx.geo.GeometryWithinRadius(geomCandidate, geometry, spec.MaxDistance)
		if err != nil {
			return 0, false, nil
		}
		if within {
			return 0, true, nil
		}
		return spec.MaxDistance + 1, true, nil
	}

	cp, ok := asPair(candidate)
	if !ok {
		return 0, false, nil
	}
	pp, ok := asPair(spec.Point)
	if !ok {
		return 0, false, nil
	}
	return ctx.geo.PairDistance(cp, pp), true, nil
}

// asGeoValue coerces a raw mapping operand into a [domain.Document] so the
// injected geo library sees a uniform shape, leaving already-typed values
// (orb geometries, Documents) untouched.
func (ctx *matchContext) asGeoValue(v any) any {
	if _, ok := v.(domain.Document); ok {
		return v
	}
	if d, err := ctx.docFactory(v); err == nil {
		return d
	}
	return v
}

func geoJSONType(v any) string {
	doc, ok := v.(domain.Document)
	if !ok {
		return ""
	}
	s, _ := doc.Get("type").(string)
	return s
}

func asPair(v any) ([2]float64, bool) {
	arr, ok := v.([]any)
	if !ok || len(arr) != 2 {
		return [2]float64{}, false
	}
	x, xok := asFloatValue(arr[0])
	y, yok := asFloatValue(arr[1])
	if !xok || !yok {
		return [2]float64{}, false
	}
	return [2]float64{x, y}, true
}

func asFloatValue(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	default:
		return 0, false
	}
}

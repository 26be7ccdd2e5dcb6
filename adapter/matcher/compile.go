package matcher

import (
	"fmt"
	"math"
	"slices"
	"strings"
	"time"

	"github.com/eyalvardi/marsdb/domain"
	"github.com/eyalvardi/marsdb/pkg/structure"
)

// compileState accumulates the introspection flags and collaborators shared
// across one Compile call (spec §5: "the only shared mutable state during
// compilation lives on the Matcher object being constructed").
type compileState struct {
	isSimple    bool
	hasWhere    bool
	hasGeoQuery bool
	paths       []string

	cmp        domain.Comparer
	geo        domain.Geo
	docFactory domain.DocumentFactory
}

func (s *compileState) notSimple() { s.isSimple = false }

func (s *compileState) addPath(path string, inElemMatch bool) {
	if inElemMatch {
		return
	}
	s.paths = append(s.paths, path)
}

// Predicate is a trusted callable selector — the typed-predicate analogue
// spec §9 recommends in place of replicating the source's Function(...)
// construction for $where and callable selectors.
type Predicate func(doc any) (bool, error)

// Matcher implements [domain.Matcher].
type Matcher struct {
	root        *Node
	isSimple    bool
	hasWhere    bool
	hasGeoQuery bool
	paths       []string

	cmp        domain.Comparer
	geo        domain.Geo
	docFactory domain.DocumentFactory
}

var _ domain.Matcher = (*Matcher)(nil)

// Compile implements C7: validates selector and wires C2-C6 into a Matcher.
func Compile(selector any, opts ...domain.CompileOption) (domain.Matcher, error) {
	co := domain.CompileOptions{}
	for _, o := range opts {
		o(&co)
	}
	if co.Comparer == nil {
		co.Comparer = comparerDefault()
	}
	if co.Geo == nil {
		co.Geo = geoDefault()
	}
	if co.DocumentFactory == nil {
		co.DocumentFactory = dataDefault()
	}

	state := &compileState{isSimple: true, cmp: co.Comparer, geo: co.Geo, docFactory: co.DocumentFactory}

	root, err := compileTop(selector, state)
	if err != nil {
		return nil, err
	}

	return &Matcher{
		root:        root,
		isSimple:    state.isSimple,
		hasWhere:    state.hasWhere,
		hasGeoQuery: state.hasGeoQuery,
		paths:       state.paths,
		cmp:         state.cmp,
		geo:         state.geo,
		docFactory:  state.docFactory,
	}, nil
}

// DocumentMatches implements [domain.Matcher].
func (m *Matcher) DocumentMatches(doc any) (domain.MatchResult, error) {
	if _, ok := doc.(domain.Document); !ok {
		converted, err := m.docFactory(doc)
		if err != nil {
			return domain.MatchResult{}, domain.ErrInvalidDocument{Actual: doc}
		}
		doc = converted
	}
	ctx := &matchContext{cmp: m.cmp, geo: m.geo, docFactory: m.docFactory}
	return matchDocument(ctx, m.root, doc)
}

// HasGeoQuery implements [domain.Matcher].
func (m *Matcher) HasGeoQuery() bool { return m.hasGeoQuery }

// HasWhere implements [domain.Matcher].
func (m *Matcher) HasWhere() bool { return m.hasWhere }

// IsSimple implements [domain.Matcher].
func (m *Matcher) IsSimple() bool { return m.isSimple }

// Paths implements [domain.Matcher].
func (m *Matcher) Paths() []string { return m.paths }

// compileTop implements spec §4.9's selector-shape dispatch.
func compileTop(selector any, state *compileState) (*Node, error) {
	switch sel := selector.(type) {
	case Predicate:
		state.notSimple()
		state.addPath("", false)
		return &Node{Kind: KindCallable, Predicate: sel}, nil
	case func(any) (bool, error):
		return compileTop(Predicate(sel), state)
	case func(any) bool:
		return compileTop(Predicate(func(doc any) (bool, error) { return sel(doc), nil }), state)
	}

	if isIDScalar(selector) {
		return compileTop(map[string]any{"_id": selector}, state)
	}

	if isFalsySelector(selector) {
		return &Node{Kind: KindNothingMatches}, nil
	}

	switch selector.(type) {
	case bool:
		return nil, domain.ErrInvalidSelectorShape{Reason: "top-level selector cannot be a boolean"}
	case []any:
		return nil, domain.ErrInvalidSelectorShape{Reason: "top-level selector cannot be an array"}
	case domain.Binary:
		return nil, domain.ErrInvalidSelectorShape{Reason: "top-level selector cannot be a binary value"}
	}

	doc, err := state.docFactory(selector)
	if err != nil {
		return nil, domain.ErrInvalidSelectorShape{Reason: fmt.Sprintf("selector must be a mapping: %v", err)}
	}

	if doc.Has("_id") && doc.Len() == 1 && isFalsyValue(doc.Get("_id")) {
		return &Node{Kind: KindNothingMatches}, nil
	}

	cloned := state.cmp.Clone(doc)
	clonedDoc, ok := cloned.(domain.Document)
	if !ok {
		clonedDoc = doc
	}

	return compileDocument(clonedDoc, state, true, false)
}

// compileDocument implements C6 (spec §4.7).
func compileDocument(doc domain.Document, state *compileState, isRoot, inElemMatch bool) (*Node, error) {
	type fieldEntry struct {
		key   string
		value any
	}
	entries := make([]fieldEntry, 0, doc.Len())
	for k, v := range doc.Iter() {
		entries = append(entries, fieldEntry{k, v})
	}
	// Go maps carry no declaration order; sorting keys gives compilation a
	// deterministic, reproducible order (spec invariant 1) in its place.
	slices.SortFunc(entries, func(a, b fieldEntry) int { return strings.Compare(a.key, b.key) })

	children := make([]*Node, 0, len(entries))
	for _, e := range entries {
		if strings.HasPrefix(e.key, "$") {
			node, err := compileLogicalOperator(e.key, e.value, state, inElemMatch)
			if err != nil {
				return nil, err
			}
			children = append(children, node)
			continue
		}

		path := strings.Split(e.key, ".")
		inner, err := compileValueSelector(e.value, state, isRoot)
		if err != nil {
			return nil, err
		}
		state.addPath(e.key, inElemMatch)
		children = append(children, &Node{Kind: KindFieldPath, Path: path, Inner: inner})
	}
	return andDocument(children), nil
}

func andDocument(children []*Node) *Node {
	switch len(children) {
	case 0:
		return &Node{Kind: KindEverythingMatches}
	case 1:
		return children[0]
	default:
		return &Node{Kind: KindAnd, Children: children}
	}
}

func andBranched(children []*Node) *Node {
	switch len(children) {
	case 0:
		return &Node{Kind: KindEverythingMatches}
	case 1:
		return children[0]
	default:
		return &Node{Kind: KindAndBranched, Children: children}
	}
}

func compileLogicalChildren(value any, op string, state *compileState) ([]*Node, error) {
	arr, ok := value.([]any)
	if !ok || len(arr) == 0 {
		return nil, domain.ErrInvalidSelectorShape{Reason: fmt.Sprintf("%s requires a non-empty array", op)}
	}
	children := make([]*Node, len(arr))
	for i, sub := range arr {
		doc, err := state.docFactory(sub)
		if err != nil {
			return nil, domain.ErrInvalidSelectorShape{Reason: fmt.Sprintf("%s element %d must be a mapping", op, i)}
		}
		node, err := compileDocument(doc, state, false, false)
		if err != nil {
			return nil, err
		}
		children[i] = node
	}
	return children, nil
}

func compileLogicalOperator(op string, value any, state *compileState, inElemMatch bool) (*Node, error) {
	switch op {
	case "$and":
		state.notSimple()
		children, err := compileLogicalChildren(value, op, state)
		if err != nil {
			return nil, err
		}
		return andDocument(children), nil
	case "$or":
		state.notSimple()
		children, err := compileLogicalChildren(value, op, state)
		if err != nil {
			return nil, err
		}
		if len(children) == 1 {
			return children[0], nil
		}
		return &Node{Kind: KindOr, Children: children}, nil
	case "$nor":
		state.notSimple()
		children, err := compileLogicalChildren(value, op, state)
		if err != nil {
			return nil, err
		}
		return &Node{Kind: KindNor, Children: children}, nil
	case "$where":
		state.notSimple()
		state.hasWhere = true
		state.addPath("", false)
		pred, err := asPredicate(value)
		if err != nil {
			return nil, err
		}
		return &Node{Kind: KindWhere, Predicate: pred}, nil
	case "$comment":
		return &Node{Kind: KindEverythingMatches}, nil
	default:
		return nil, domain.ErrUnknownOperator{Operator: op}
	}
}

// asPredicate accepts a typed Go callable. A string operand (the source's
// "new Function(obj){ return <operand>; }" construction) is rejected per
// spec §9's explicit safety recommendation rather than replicated.
func asPredicate(value any) (func(doc any) (bool, error), error) {
	switch v := value.(type) {
	case Predicate:
		return v, nil
	case func(any) (bool, error):
		return v, nil
	case func(any) bool:
		return func(doc any) (bool, error) { return v(doc), nil }, nil
	default:
		return nil, domain.ErrOperatorOperandType{Operator: "$where", Want: "a callable predicate", Actual: value}
	}
}

// compileValueSelector implements the C7 helper of spec §4.8.
func compileValueSelector(value any, state *compileState, isRoot bool) (*Node, error) {
	if re, ok := value.(*domain.Regex); ok {
		state.notSimple()
		return &Node{Kind: KindRegex, Regex: re}, nil
	}

	if isOperatorMapping(value, false) {
		return compileOperatorMap(value, state, isRoot)
	}

	return &Node{Kind: KindEquality, Operand: value}, nil
}

func compileOperatorMap(value any, state *compileState, isRoot bool) (*Node, error) {
	keys, get, _ := asFieldMapping(value)
	has := func(op string) bool { return slices.Contains(keys, op) }

	sortedKeys := slices.Clone(keys)
	slices.Sort(sortedKeys)

	children := make([]*Node, 0, len(sortedKeys))
	for _, op := range sortedKeys {
		switch op {
		case "$options":
			if !has("$regex") {
				return nil, domain.ErrOperatorContext{Operator: op, Reason: "requires a sibling $regex"}
			}
			children = append(children, &Node{Kind: KindEverythingMatches})
			continue
		case "$maxDistance":
			if !has("$near") {
				return nil, domain.ErrOperatorContext{Operator: op, Reason: "requires a sibling $near"}
			}
			children = append(children, &Node{Kind: KindEverythingMatches})
			continue
		}

		node, err := compileOperator(op, get(op), get, has, state, isRoot)
		if err != nil {
			return nil, err
		}
		children = append(children, node)
	}
	return andBranched(children), nil
}

func compileOperator(op string, operand any, get func(string) any, has func(string) bool, state *compileState, isRoot bool) (*Node, error) {
	switch op {
	case "$eq":
		return &Node{Kind: KindEquality, Operand: operand}, nil

	case "$ne":
		if isMappingValue(operand) {
			state.notSimple()
		}
		pos := &Node{Kind: KindEquality, Operand: operand}
		return &Node{Kind: KindNe, Positive: pos}, nil

	case "$lt", "$lte", "$gt", "$gte":
		if !isNumber(operand) {
			state.notSimple()
		}
		var rangeOp RangeOp
		switch op {
		case "$lt":
			rangeOp = RangeLt
		case "$lte":
			rangeOp = RangeLte
		case "$gt":
			rangeOp = RangeGt
		case "$gte":
			rangeOp = RangeGte
		}
		return &Node{Kind: KindRange, Operand: operand, RangeOp: rangeOp}, nil

	case "$in", "$nin":
		els, err := compileInElements(op, operand, state)
		if err != nil {
			return nil, err
		}
		inNode := &Node{Kind: KindIn, Elements: els}
		if op == "$in" {
			return inNode, nil
		}
		return &Node{Kind: KindNin, Positive: inNode}, nil

	case "$mod":
		d, r, err := compileModOperand(operand)
		if err != nil {
			return nil, err
		}
		state.notSimple()
		return &Node{Kind: KindMod, ModDivisor: d, ModRemainder: r}, nil

	case "$size":
		n, err := compileSizeOperand(operand)
		if err != nil {
			return nil, err
		}
		state.notSimple()
		return &Node{Kind: KindSize, SizeWant: n, NoExpand: true}, nil

	case "$type":
		n, ok := asInt(operand)
		if !ok {
			return nil, domain.ErrOperatorOperandType{Operator: op, Want: "a BSON type code", Actual: operand}
		}
		state.notSimple()
		return &Node{Kind: KindType, TypeCode: n, SkipArrays: true}, nil

	case "$regex":
		re, err := compileRegexOperand(operand, has, get)
		if err != nil {
			return nil, err
		}
		state.notSimple()
		return &Node{Kind: KindRegex, Regex: re}, nil

	case "$elemMatch":
		state.notSimple()
		child, kind, err := compileElemMatchOperand(operand, state)
		if err != nil {
			return nil, err
		}
		return &Node{Kind: kind, ElemChild: child, NoExpand: true}, nil

	case "$not":
		state.notSimple()
		if _, isRe := operand.(*domain.Regex); !isRe && !isOperatorMapping(operand, false) {
			return nil, domain.ErrOperatorOperandType{Operator: op, Want: "a regex or an operator mapping", Actual: operand}
		}
		child, err := compileValueSelector(operand, state, false)
		if err != nil {
			return nil, err
		}
		return &Node{Kind: KindNot, Positive: child}, nil

	case "$exists":
		state.notSimple()
		return &Node{Kind: KindExists, Operand: isTruthy(operand)}, nil

	case "$all":
		state.notSimple()
		els, err := compileAllElements(operand)
		if err != nil {
			return nil, err
		}
		return &Node{Kind: KindAll, Children: els}, nil

	case "$near":
		if !isRoot {
			return nil, domain.ErrOperatorContext{Operator: op, Reason: "must be at the root of the selector"}
		}
		state.notSimple()
		state.hasGeoQuery = true
		spec, err := compileNearOperand(operand, has, get)
		if err != nil {
			return nil, err
		}
		return &Node{Kind: KindNear, Near: spec}, nil

	default:
		return nil, domain.ErrUnknownOperator{Operator: op}
	}
}

func compileElemMatchOperand(operand any, state *compileState) (*Node, Kind, error) {
	if isOperatorMapping(operand, false) {
		node, err := compileOperatorMap(operand, state, false)
		return node, KindElemMatchBranched, err
	}
	doc, err := state.docFactory(operand)
	if err != nil {
		return nil, 0, domain.ErrInvalidSelectorShape{Reason: "$elemMatch operand must be a mapping"}
	}
	node, err := compileDocument(doc, state, false, true)
	return node, KindElemMatchDoc, err
}

func compileInElements(op string, operand any, state *compileState) ([]*Node, error) {
	arr, ok := operand.([]any)
	if !ok {
		return nil, domain.ErrOperatorOperandType{Operator: op, Want: "an array", Actual: operand}
	}
	nodes := make([]*Node, len(arr))
	anyMapping := false
	for i, el := range arr {
		if isOperatorMapping(el, false) {
			return nil, domain.ErrOperatorOperandType{Operator: op, Want: "no nested operator mappings", Actual: el}
		}
		if re, ok := el.(*domain.Regex); ok {
			nodes[i] = &Node{Kind: KindRegex, Regex: re}
			continue
		}
		if isMappingValue(el) {
			anyMapping = true
		}
		nodes[i] = &Node{Kind: KindEquality, Operand: el}
	}
	if anyMapping {
		state.notSimple()
	}
	return nodes, nil
}

func compileAllElements(operand any) ([]*Node, error) {
	arr, ok := operand.([]any)
	if !ok || len(arr) == 0 {
		return nil, domain.ErrOperatorOperandType{Operator: "$all", Want: "a non-empty array", Actual: operand}
	}
	nodes := make([]*Node, len(arr))
	for i, el := range arr {
		if isOperatorMapping(el, false) {
			return nil, domain.ErrOperatorOperandType{Operator: "$all", Want: "no nested operator mappings", Actual: el}
		}
		if re, ok := el.(*domain.Regex); ok {
			nodes[i] = &Node{Kind: KindRegex, Regex: re}
			continue
		}
		nodes[i] = &Node{Kind: KindEquality, Operand: el}
	}
	return nodes, nil
}

func compileModOperand(operand any) (float64, float64, error) {
	arr, ok := operand.([]any)
	if !ok || len(arr) != 2 {
		return 0, 0, domain.ErrOperatorOperandType{Operator: "$mod", Want: "a 2-element array of numbers", Actual: operand}
	}
	d, dok := asFloatValue(arr[0])
	r, rok := asFloatValue(arr[1])
	if !dok || !rok {
		return 0, 0, domain.ErrOperatorOperandType{Operator: "$mod", Want: "a 2-element array of numbers", Actual: operand}
	}
	return d, r, nil
}

// compileSizeOperand resolves the open question of spec §9: an integral
// numeric operand is used as-is (a non-integral float is a compile error),
// a string operand coerces to 0 (matching the
// reference's documented MongoDB-compatibility quirk), anything else is a
// compile error.
func compileSizeOperand(operand any) (int, error) {
	if n, ok := asInt(operand); ok {
		return n, nil
	}
	if _, ok := operand.(string); ok {
		return 0, nil
	}
	return 0, domain.ErrOperatorOperandType{Operator: "$size", Want: "a number", Actual: operand}
}

func compileRegexOperand(operand any, has func(string) bool, get func(string) any) (*domain.Regex, error) {
	var pattern, options string
	switch t := operand.(type) {
	case *domain.Regex:
		pattern, options = t.Pattern, t.Options
	case string:
		pattern = t
	default:
		return nil, domain.ErrOperatorOperandType{Operator: "$regex", Want: "a string or regex", Actual: operand}
	}
	if has("$options") {
		opts, ok := get("$options").(string)
		if !ok || !domain.ValidOptions(opts) {
			return nil, domain.ErrInvalidSelectorShape{Reason: "$options must be a subset of i, m, g"}
		}
		options = opts
	}
	return &domain.Regex{Pattern: pattern, Options: options}, nil
}

func compileNearOperand(operand any, has func(string) bool, get func(string) any) (*NearSpec, error) {
	if keys, opGet, ok := asFieldMapping(operand); ok && slices.Contains(keys, "$geometry") {
		maxDist := math.MaxFloat64
		if slices.Contains(keys, "$maxDistance") {
			d, ok := asFloatValue(opGet("$maxDistance"))
			if !ok {
				return nil, domain.ErrOperatorOperandType{Operator: "$maxDistance", Want: "a number", Actual: opGet("$maxDistance")}
			}
			maxDist = d
		}
		return &NearSpec{GeoJSON: true, Geometry: opGet("$geometry"), MaxDistance: maxDist}, nil
	}

	maxDist := math.MaxFloat64
	if has("$maxDistance") {
		d, ok := asFloatValue(get("$maxDistance"))
		if !ok {
			return nil, domain.ErrOperatorOperandType{Operator: "$maxDistance", Want: "a number", Actual: get("$maxDistance")}
		}
		maxDist = d
	}
	return &NearSpec{GeoJSON: false, Point: operand, MaxDistance: maxDist}, nil
}

// asFieldMapping normalizes v into a uniform (keys, get) view when it is a
// mapping shape. Arbitrary structs are deliberately excluded: the spec's
// isOperatorMapping/document dispatch only ever considers genuine mappings.
func asFieldMapping(v any) (keys []string, get func(string) any, ok bool) {
	switch t := v.(type) {
	case domain.Document:
		return slices.Collect(t.Keys()), t.Get, true
	case map[string]any:
		ks := make([]string, 0, len(t))
		for k := range t {
			ks = append(ks, k)
		}
		return ks, func(k string) any { return t[k] }, true
	default:
		return nil, nil, false
	}
}

func isOperatorMapping(v any, allowEmpty bool) bool {
	keys, _, ok := asFieldMapping(v)
	if !ok {
		return false
	}
	if len(keys) == 0 {
		return allowEmpty
	}
	for _, k := range keys {
		if !strings.HasPrefix(k, "$") {
			return false
		}
	}
	return true
}

func isMappingValue(v any) bool {
	_, _, ok := asFieldMapping(v)
	return ok
}

func isNumber(v any) bool {
	_, ok := asFloatValue(v)
	return ok
}

// asInt wires pkg/structure's integer coercion so $size/$type operands
// reject non-integral floats instead of silently truncating them.
func asInt(v any) (int, bool) {
	return structure.AsInteger(v)
}

func isIDScalar(v any) bool {
	switch v.(type) {
	case string, int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64, domain.Binary, time.Time:
		return true
	default:
		return false
	}
}

func isTruthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		return t != ""
	case int:
		return t != 0
	case int8:
		return t != 0
	case int16:
		return t != 0
	case int32:
		return t != 0
	case int64:
		return t != 0
	case uint:
		return t != 0
	case uint8:
		return t != 0
	case uint16:
		return t != 0
	case uint32:
		return t != 0
	case uint64:
		return t != 0
	case float32:
		return t != 0
	case float64:
		return t != 0
	default:
		return true
	}
}

func isFalsySelector(v any) bool { return !isTruthy(v) }
func isFalsyValue(v any) bool    { return !isTruthy(v) }

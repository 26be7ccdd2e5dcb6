package matcher_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/eyalvardi/marsdb/adapter/data"
	"github.com/eyalvardi/marsdb/adapter/matcher"
	"github.com/eyalvardi/marsdb/domain"
)

func compile(t *testing.T, selector any) domain.Matcher {
	t.Helper()
	m, err := matcher.Compile(selector)
	require.NoError(t, err)
	return m
}

func TestGtScalar(t *testing.T) {
	m := compile(t, map[string]any{"a": map[string]any{"$gt": 5}})
	r, err := m.DocumentMatches(data.M{"a": 7})
	require.NoError(t, err)
	require.True(t, r.Matched)
	require.Empty(t, r.ArrayIndices)
}

func TestGtAcrossArrayBranches(t *testing.T) {
	m := compile(t, map[string]any{"a": map[string]any{"$gt": 5}})
	r, err := m.DocumentMatches(data.M{"a": []any{3, 8, 4}})
	require.NoError(t, err)
	require.True(t, r.Matched)
	require.Equal(t, []domain.IndexStep{{Index: 1, Explicit: false}}, r.ArrayIndices)
}

func TestOrSingleFieldEach(t *testing.T) {
	m := compile(t, map[string]any{"$or": []any{
		map[string]any{"a": 1},
		map[string]any{"b": 2},
	}})
	r, err := m.DocumentMatches(data.M{"a": 1, "b": 2})
	require.NoError(t, err)
	require.True(t, r.Matched)
	require.Empty(t, r.ArrayIndices)
}

func TestElemMatchIndexPropagation(t *testing.T) {
	m := compile(t, map[string]any{"a": map[string]any{
		"$elemMatch": map[string]any{"$gt": 5, "$lt": 8},
	}})
	r, err := m.DocumentMatches(data.M{"a": []any{3, 7, 9}})
	require.NoError(t, err)
	require.True(t, r.Matched)
	require.Equal(t, []domain.IndexStep{{Index: 1, Explicit: false}}, r.ArrayIndices)
}

func TestDottedExplicitIndexIntoNestedField(t *testing.T) {
	m := compile(t, map[string]any{"a.0.b": 3})
	r, err := m.DocumentMatches(data.M{"a": []any{data.M{"b": 3}}})
	require.NoError(t, err)
	require.True(t, r.Matched)
	require.Equal(t, []domain.IndexStep{{Index: 0, Explicit: true}}, r.ArrayIndices)
}

func TestNearPairMode(t *testing.T) {
	m := compile(t, map[string]any{"loc": map[string]any{
		"$near":        []any{0.0, 0.0},
		"$maxDistance": 10.0,
	}})
	r, err := m.DocumentMatches(data.M{"loc": []any{3.0, 4.0}})
	require.NoError(t, err)
	require.True(t, r.Matched)
	require.NotNil(t, r.Distance)
	require.InDelta(t, 5.0, *r.Distance, 1e-9)
}

func TestExplicitIndexDoesNotMatchNestedArray(t *testing.T) {
	m := compile(t, map[string]any{"a.0": 5})
	r, err := m.DocumentMatches(data.M{"a": []any{5}})
	require.NoError(t, err)
	require.True(t, r.Matched)

	r, err = m.DocumentMatches(data.M{"a": []any{[]any{5}}})
	require.NoError(t, err)
	require.False(t, r.Matched)
}

func TestExplicitIndexArrayOperandMatchesNestedArray(t *testing.T) {
	m := compile(t, map[string]any{"a.0": []any{5}})
	r, err := m.DocumentMatches(data.M{"a": []any{[]any{5}}})
	require.NoError(t, err)
	require.True(t, r.Matched)
}

func TestNullMatchesMissingField(t *testing.T) {
	m := compile(t, map[string]any{"a": nil})
	r, err := m.DocumentMatches(data.M{"b": 1})
	require.NoError(t, err)
	require.True(t, r.Matched)

	r, err = m.DocumentMatches(data.M{"a": nil})
	require.NoError(t, err)
	require.True(t, r.Matched)
}

func TestInNullMatchesMissingField(t *testing.T) {
	m := compile(t, map[string]any{"a": map[string]any{"$in": []any{nil}}})
	r, err := m.DocumentMatches(data.M{"b": 1})
	require.NoError(t, err)
	require.True(t, r.Matched)
}

func TestHeterogeneousCompareFails(t *testing.T) {
	m := compile(t, map[string]any{"a": map[string]any{"$gt": 5}})
	r, err := m.DocumentMatches(data.M{"a": "x"})
	require.NoError(t, err)
	require.False(t, r.Matched)
}

func TestSizeOnNestedArrays(t *testing.T) {
	m1 := compile(t, map[string]any{"a": map[string]any{"$size": 1}})
	r, err := m1.DocumentMatches(data.M{"a": []any{[]any{5, 5}}})
	require.NoError(t, err)
	require.True(t, r.Matched)

	m2 := compile(t, map[string]any{"a": map[string]any{"$size": 2}})
	r, err = m2.DocumentMatches(data.M{"a": []any{[]any{5, 5}}})
	require.NoError(t, err)
	require.False(t, r.Matched)
}

func TestTypeArrayDistinguishesNesting(t *testing.T) {
	m := compile(t, map[string]any{"a": map[string]any{"$type": domain.TypeArray}})
	r, err := m.DocumentMatches(data.M{"a": []any{5}})
	require.NoError(t, err)
	require.False(t, r.Matched)

	r, err = m.DocumentMatches(data.M{"a": []any{[]any{5}}})
	require.NoError(t, err)
	require.True(t, r.Matched)
}

func TestIsSimpleFlag(t *testing.T) {
	m := compile(t, map[string]any{"a": map[string]any{"$gt": 5}})
	require.True(t, m.IsSimple())

	m = compile(t, map[string]any{"a": map[string]any{"$elemMatch": map[string]any{"$gt": 5}}})
	require.False(t, m.IsSimple())
}

func TestHasWhereRecordsEmptyPathSentinel(t *testing.T) {
	m := compile(t, map[string]any{"$where": matcher.Predicate(func(doc any) (bool, error) { return true, nil })})
	require.True(t, m.HasWhere())
	require.Contains(t, m.Paths(), "")
}

func TestHasGeoQuery(t *testing.T) {
	m := compile(t, map[string]any{"loc": map[string]any{
		"$near":        []any{0.0, 0.0},
		"$maxDistance": 10.0,
	}})
	require.True(t, m.HasGeoQuery())
}

func TestUnknownOperatorErrors(t *testing.T) {
	_, err := matcher.Compile(map[string]any{"a": map[string]any{"$bogus": 1}})
	require.Error(t, err)
	var target matcher.ErrUnknownOperator
	require.ErrorAs(t, err, &target)
}

func TestNearNotAtRootErrors(t *testing.T) {
	_, err := matcher.Compile(map[string]any{"$and": []any{
		map[string]any{"loc": map[string]any{"$near": []any{0.0, 0.0}}},
	}})
	require.Error(t, err)
}

func TestOptionsWithoutRegexErrors(t *testing.T) {
	_, err := matcher.Compile(map[string]any{"a": map[string]any{"$options": "i"}})
	require.Error(t, err)
}

func TestFalsySelectorMatchesNothing(t *testing.T) {
	m := compile(t, nil)
	r, err := m.DocumentMatches(data.M{"a": 1})
	require.NoError(t, err)
	require.False(t, r.Matched)
}

func TestNotInvertsOperatorMapping(t *testing.T) {
	m := compile(t, map[string]any{"a": map[string]any{"$not": map[string]any{"$gt": 5}}})
	r, err := m.DocumentMatches(data.M{"a": 3})
	require.NoError(t, err)
	require.True(t, r.Matched)

	r, err = m.DocumentMatches(data.M{"a": 7})
	require.NoError(t, err)
	require.False(t, r.Matched)
}

func TestNotInvertsRegex(t *testing.T) {
	m := compile(t, map[string]any{"a": map[string]any{"$not": &domain.Regex{Pattern: "^a"}}})
	r, err := m.DocumentMatches(data.M{"a": "bcd"})
	require.NoError(t, err)
	require.True(t, r.Matched)

	r, err = m.DocumentMatches(data.M{"a": "abc"})
	require.NoError(t, err)
	require.False(t, r.Matched)
}

func TestNotRejectsBareScalarOperand(t *testing.T) {
	_, err := matcher.Compile(map[string]any{"a": map[string]any{"$not": 5}})
	require.Error(t, err)
}

// {$not: {$not: P}} is not guaranteed semantically equal to P (spec §8):
// the Matched booleans agree here (double negation), but $not's DeMorgan-style
// metadata stripping means arrayIndices survive through P yet never through
// a $not wrapper, however deeply nested.
func TestDoubleNotNotEquivalentToPositive(t *testing.T) {
	positive := compile(t, map[string]any{"a": map[string]any{"$gt": 5}})
	doubleNegated := compile(t, map[string]any{"a": map[string]any{"$not": map[string]any{"$not": map[string]any{"$gt": 5}}}})

	doc := data.M{"a": []any{3, 8, 4}}
	rPos, err := positive.DocumentMatches(doc)
	require.NoError(t, err)
	rNeg, err := doubleNegated.DocumentMatches(doc)
	require.NoError(t, err)

	require.Equal(t, rPos.Matched, rNeg.Matched)
	require.NotEmpty(t, rPos.ArrayIndices)
	require.Empty(t, rNeg.ArrayIndices)
}

func TestIDScalarShorthand(t *testing.T) {
	m := compile(t, "abc123")
	r, err := m.DocumentMatches(data.M{"_id": "abc123"})
	require.NoError(t, err)
	require.True(t, r.Matched)
}

func TestAllRequiresEveryElement(t *testing.T) {
	m := compile(t, map[string]any{"a": map[string]any{"$all": []any{1, 3}}})
	r, err := m.DocumentMatches(data.M{"a": []any{1, 2, 3}})
	require.NoError(t, err)
	require.True(t, r.Matched)

	r, err = m.DocumentMatches(data.M{"a": []any{1, 2}})
	require.NoError(t, err)
	require.False(t, r.Matched)
}

func TestModMatchesRemainder(t *testing.T) {
	m := compile(t, map[string]any{"a": map[string]any{"$mod": []any{4, 2}}})
	r, err := m.DocumentMatches(data.M{"a": 10})
	require.NoError(t, err)
	require.True(t, r.Matched)

	r, err = m.DocumentMatches(data.M{"a": 9})
	require.NoError(t, err)
	require.False(t, r.Matched)
}

func TestRegexOperatorForm(t *testing.T) {
	m := compile(t, map[string]any{"a": map[string]any{"$regex": "^ab", "$options": "i"}})
	r, err := m.DocumentMatches(data.M{"a": "ABCD"})
	require.NoError(t, err)
	require.True(t, r.Matched)

	r, err = m.DocumentMatches(data.M{"a": "xyz"})
	require.NoError(t, err)
	require.False(t, r.Matched)
}

func TestExistsOperator(t *testing.T) {
	m := compile(t, map[string]any{"a": map[string]any{"$exists": true}})
	r, err := m.DocumentMatches(data.M{"a": 1})
	require.NoError(t, err)
	require.True(t, r.Matched)

	r, err = m.DocumentMatches(data.M{"b": 1})
	require.NoError(t, err)
	require.False(t, r.Matched)

	m = compile(t, map[string]any{"a": map[string]any{"$exists": false}})
	r, err = m.DocumentMatches(data.M{"b": 1})
	require.NoError(t, err)
	require.True(t, r.Matched)
}

func TestNinRejectsAnyMatch(t *testing.T) {
	m := compile(t, map[string]any{"a": map[string]any{"$nin": []any{1, 2}}})
	r, err := m.DocumentMatches(data.M{"a": 3})
	require.NoError(t, err)
	require.True(t, r.Matched)

	r, err = m.DocumentMatches(data.M{"a": 2})
	require.NoError(t, err)
	require.False(t, r.Matched)
}

func TestCommentIsIgnored(t *testing.T) {
	m := compile(t, map[string]any{"a": 1, "$comment": "looked up by support for ticket #123"})
	r, err := m.DocumentMatches(data.M{"a": 1})
	require.NoError(t, err)
	require.True(t, r.Matched)

	r, err = m.DocumentMatches(data.M{"a": 2})
	require.NoError(t, err)
	require.False(t, r.Matched)
}

// TestNearGeoJSONUsesGeodesicDistance guards against regressing to planar
// (Cartesian) distance for GeoJSON-mode $near: a 1-degree longitude
// separation at the equator is about 111km, not 1.0.
func TestNearGeoJSONUsesGeodesicDistance(t *testing.T) {
	m := compile(t, map[string]any{"loc": map[string]any{
		"$near": map[string]any{
			"$geometry":    data.M{"type": "Point", "coordinates": []any{0.0, 0.0}},
			"$maxDistance": 200000.0,
		},
	}})
	r, err := m.DocumentMatches(data.M{"loc": data.M{"type": "Point", "coordinates": []any{1.0, 0.0}}})
	require.NoError(t, err)
	require.True(t, r.Matched)
	require.NotNil(t, r.Distance)
	require.InDelta(t, 111319.0, *r.Distance, 1000)

	m = compile(t, map[string]any{"loc": map[string]any{
		"$near": map[string]any{
			"$geometry":    data.M{"type": "Point", "coordinates": []any{0.0, 0.0}},
			"$maxDistance": 10.0,
		},
	}})
	r, err = m.DocumentMatches(data.M{"loc": data.M{"type": "Point", "coordinates": []any{1.0, 0.0}}})
	require.NoError(t, err)
	require.False(t, r.Matched)
}

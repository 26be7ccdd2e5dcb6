package geo_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/eyalvardi/marsdb/adapter/data"
	"github.com/eyalvardi/marsdb/adapter/geo"
)

func TestPairDistance(t *testing.T) {
	g := geo.New()
	d := g.PairDistance([2]float64{0, 0}, [2]float64{3, 4})
	require.InDelta(t, 5.0, d, 1e-9)
}

func TestPointDistanceCoordinatePairs(t *testing.T) {
	g := geo.New()
	p := []any{0.0, 0.0}
	q := []any{0.0, 1.0}
	d, err := g.PointDistance(p, q)
	require.NoError(t, err)
	require.Greater(t, d, 0.0)
}

func TestGeometryWithinRadius(t *testing.T) {
	g := geo.New()
	geom, err := data.NewDocument(data.M{
		"type":        "Polygon",
		"coordinates": []any{[]any{[]any{0.0, 0.0}, []any{0.0, 1.0}, []any{1.0, 1.0}}},
	})
	require.NoError(t, err)
	center := []any{0.0, 0.0}
	ok, err := g.GeometryWithinRadius(geom, center, 1000000)
	require.NoError(t, err)
	require.True(t, ok)
}

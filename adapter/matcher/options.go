package matcher

import (
	"github.com/eyalvardi/marsdb/adapter/comparer"
	"github.com/eyalvardi/marsdb/adapter/data"
	"github.com/eyalvardi/marsdb/adapter/geo"
	"github.com/eyalvardi/marsdb/domain"
)

func comparerDefault() domain.Comparer { return comparer.New() }

func geoDefault() domain.Geo { return geo.New() }

func dataDefault() domain.DocumentFactory {
	return func(v any) (domain.Document, error) { return data.NewDocument(v) }
}
